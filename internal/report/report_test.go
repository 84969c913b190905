package report_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/metrics"
	"github.com/tyemirov/dripcheck/internal/report"
)

func sampleScenarioResult() metrics.ScenarioResult {
	return metrics.ScenarioResult{
		ScenarioName:              "steady_traffic",
		TotalDurationMilliseconds: 2000,
		TotalRequests:             10,
		Succeeded:                 8,
		Failed:                    2,
		Latencies:                 []float64{12, 18, 25, 31, 44, 58, 72, 120},
		ErrorCounts:               map[string]int{"TIMEOUT": 1, "SERVER_ERROR": 1},
	}
}

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		name           string
		rawFormat      string
		expectedFormat report.Format
		expectError    bool
	}{
		{name: "pretty", rawFormat: "pretty", expectedFormat: report.FormatPretty},
		{name: "empty_defaults_to_pretty", rawFormat: "", expectedFormat: report.FormatPretty},
		{name: "json_uppercase", rawFormat: "JSON", expectedFormat: report.FormatJSON},
		{name: "csv_padded", rawFormat: " csv ", expectedFormat: report.FormatCSV},
		{name: "unknown", rawFormat: "xml", expectError: true},
	}
	for testCaseIndex, testCase := range testCases {
		t.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			parsedFormat, parseError := report.ParseFormat(testCase.rawFormat)
			if testCase.expectError {
				require.ErrorIs(testInstance, parseError, report.ErrUnknownFormat)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedFormat, parsedFormat)
		})
	}
}

func TestScenarioRenderingIsDeterministic(t *testing.T) {
	scenarioResult := sampleScenarioResult()
	for _, outputFormat := range []report.Format{report.FormatPretty, report.FormatJSON, report.FormatCSV} {
		t.Run(string(outputFormat), func(testInstance *testing.T) {
			firstBuffer := &bytes.Buffer{}
			secondBuffer := &bytes.Buffer{}
			require.NoError(testInstance, (&report.ScenarioReporter{Writer: firstBuffer}).Render(scenarioResult, outputFormat))
			require.NoError(testInstance, (&report.ScenarioReporter{Writer: secondBuffer}).Render(scenarioResult, outputFormat))
			require.Equal(testInstance, firstBuffer.Bytes(), secondBuffer.Bytes())
		})
	}
}

func TestScenarioCSVColumns(t *testing.T) {
	outputBuffer := &bytes.Buffer{}
	require.NoError(t, (&report.ScenarioReporter{Writer: outputBuffer}).Render(sampleScenarioResult(), report.FormatCSV))

	outputLines := strings.Split(strings.TrimSpace(outputBuffer.String()), "\n")
	require.Len(t, outputLines, 2)
	require.Equal(t,
		"scenario,duration_ms,total,succeeded,failed,success_rate,min_ms,max_ms,avg_ms,p50_ms,p95_ms,p99_ms,throughput_rps",
		outputLines[0])

	dataColumns := strings.Split(outputLines[1], ",")
	require.Equal(t, "steady_traffic", dataColumns[0])
	require.Equal(t, "2000", dataColumns[1])
	require.Equal(t, "10", dataColumns[2])
	require.Equal(t, "8", dataColumns[3])
	require.Equal(t, "2", dataColumns[4])
	require.Equal(t, "80.00", dataColumns[5])
	require.Equal(t, "12", dataColumns[6])
	require.Equal(t, "120", dataColumns[7])
	require.Equal(t, "5.00", dataColumns[12])
}

func TestScenarioZeroGuards(t *testing.T) {
	outputBuffer := &bytes.Buffer{}
	emptyResult := metrics.ScenarioResult{ScenarioName: "empty"}
	require.NoError(t, (&report.ScenarioReporter{Writer: outputBuffer}).Render(emptyResult, report.FormatCSV))

	outputLines := strings.Split(strings.TrimSpace(outputBuffer.String()), "\n")
	dataColumns := strings.Split(outputLines[1], ",")
	require.Equal(t, "0.00", dataColumns[5])
	require.Equal(t, "0.00", dataColumns[12])
}

func TestScenarioJSONDocument(t *testing.T) {
	outputBuffer := &bytes.Buffer{}
	require.NoError(t, (&report.ScenarioReporter{Writer: outputBuffer}).Render(sampleScenarioResult(), report.FormatJSON))

	var decodedDocument map[string]any
	require.NoError(t, json.Unmarshal(outputBuffer.Bytes(), &decodedDocument))
	require.Equal(t, "steady_traffic", decodedDocument["scenario"])
	require.Equal(t, float64(10), decodedDocument["total"])
	require.Equal(t, float64(80), decodedDocument["success_rate"])
	require.Contains(t, decodedDocument, "latency_ms")
	require.Contains(t, decodedDocument, "errors")
}

func TestCheckReportJSONStatus(t *testing.T) {
	runOutcome := report.CheckRunOutcome{
		Outcomes: []report.CheckOutcome{
			{Name: "connectivity", Success: true, DurationMilliseconds: 12.4, Message: "ok"},
			{Name: "authentication", Success: false, DurationMilliseconds: 30.6, Message: "rejected", Suggestion: "rotate the key"},
		},
		Passed:                    1,
		Failed:                    1,
		TotalDurationMilliseconds: 43,
	}
	outputBuffer := &bytes.Buffer{}
	reporter := &report.CheckReporter{Writer: outputBuffer}
	require.NoError(t, reporter.RenderSummary(runOutcome, report.FormatJSON))

	var decodedDocument map[string]any
	require.NoError(t, json.Unmarshal(outputBuffer.Bytes(), &decodedDocument))
	require.Equal(t, "unhealthy", decodedDocument["status"])

	reportedChecks := decodedDocument["checks"].([]any)
	require.Len(t, reportedChecks, 2)
	firstCheck := reportedChecks[0].(map[string]any)
	require.Equal(t, float64(12), firstCheck["duration_ms"])
	require.NotContains(t, firstCheck, "suggestion")
	secondCheck := reportedChecks[1].(map[string]any)
	require.Equal(t, float64(31), secondCheck["duration_ms"])
	require.Equal(t, "rotate the key", secondCheck["suggestion"])
}

func TestCheckReportPrettyLines(t *testing.T) {
	outputBuffer := &bytes.Buffer{}
	reporter := &report.CheckReporter{Writer: outputBuffer, Verbose: true}

	reporter.RenderCheckLine(report.CheckOutcome{Name: "connectivity", Success: true, DurationMilliseconds: 9, Message: "ok", Details: "status ok"})
	reporter.RenderCheckLine(report.CheckOutcome{Name: "charge_create", Success: false, DurationMilliseconds: 88, Message: "failed", Suggestion: "check the meter"})
	require.NoError(t, reporter.RenderSummary(report.CheckRunOutcome{Passed: 1, Failed: 1, TotalDurationMilliseconds: 97}, report.FormatPretty))

	renderedOutput := outputBuffer.String()
	require.Contains(t, renderedOutput, "✓")
	require.Contains(t, renderedOutput, "✗")
	require.Contains(t, renderedOutput, "details: status ok")
	require.Contains(t, renderedOutput, "suggestion: check the meter")
	require.Contains(t, renderedOutput, "1 passed, 1 failed in 97ms")
	require.Contains(t, renderedOutput, "UNHEALTHY")
}

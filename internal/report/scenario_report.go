package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"

	"github.com/tyemirov/dripcheck/internal/metrics"
)

const (
	scenarioHeaderTemplateConstant     = "Scenario: %s\n"
	scenarioTotalsTemplateConstant     = "  requests: %d  succeeded: %d  failed: %d  (%.2f%% success)\n"
	scenarioDurationTemplateConstant   = "  duration: %dms  throughput: %.2f req/s\n"
	scenarioLatencyTemplateConstant    = "  latency ms  min %d  avg %d  max %d  p50 %d  p95 %d  p99 %d\n"
	scenarioErrorsHeaderConstant       = "  errors:\n"
	scenarioErrorLineTemplateConstant  = "    %s: %d\n"
	writeScenarioReportMessageConstant = "write scenario report"
	encodeScenarioMessageConstant      = "encode scenario report"

	percentFactorConstant         = 100.0
	millisecondsPerSecondConstant = 1000.0
)

var csvHeaderColumns = []string{
	"scenario", "duration_ms", "total", "succeeded", "failed", "success_rate",
	"min_ms", "max_ms", "avg_ms", "p50_ms", "p95_ms", "p99_ms", "throughput_rps",
}

// ScenarioReporter renders load-test aggregates in pretty, JSON, or CSV form.
// Rendering the same ScenarioResult twice produces byte-identical output.
type ScenarioReporter struct {
	Writer   io.Writer
	UseColor bool
}

type scenarioReportDocument struct {
	Scenario             string          `json:"scenario"`
	DurationMilliseconds int64           `json:"duration_ms"`
	TotalRequests        int             `json:"total"`
	Succeeded            int             `json:"succeeded"`
	Failed               int             `json:"failed"`
	SuccessRatePercent   float64         `json:"success_rate"`
	ThroughputPerSecond  float64         `json:"throughput_rps"`
	Latency              scenarioLatency `json:"latency_ms"`
	Errors               map[string]int  `json:"errors,omitempty"`
}

type scenarioLatency struct {
	Minimum      int64 `json:"min"`
	Maximum      int64 `json:"max"`
	Average      int64 `json:"avg"`
	Percentile50 int64 `json:"p50"`
	Percentile95 int64 `json:"p95"`
	Percentile99 int64 `json:"p99"`
}

// Render writes the scenario aggregate in the requested format.
func (reporter *ScenarioReporter) Render(scenarioResult metrics.ScenarioResult, outputFormat Format) error {
	switch outputFormat {
	case FormatJSON:
		return reporter.renderJSON(scenarioResult)
	case FormatCSV:
		return reporter.renderCSV(scenarioResult)
	default:
		return reporter.renderPretty(scenarioResult)
	}
}

func (reporter *ScenarioReporter) renderPretty(scenarioResult metrics.ScenarioResult) error {
	latencyStats := metrics.ComputeLatencyStats(scenarioResult.Latencies)
	scenarioTitle := scenarioResult.ScenarioName
	if reporter.UseColor {
		scenarioTitle = color.New(color.Bold).Sprint(scenarioTitle)
	}
	fmt.Fprintf(reporter.Writer, scenarioHeaderTemplateConstant, scenarioTitle)
	fmt.Fprintf(reporter.Writer, scenarioTotalsTemplateConstant,
		scenarioResult.TotalRequests, scenarioResult.Succeeded, scenarioResult.Failed, successRatePercent(scenarioResult))
	fmt.Fprintf(reporter.Writer, scenarioDurationTemplateConstant,
		roundMilliseconds(scenarioResult.TotalDurationMilliseconds), throughputPerSecond(scenarioResult))
	fmt.Fprintf(reporter.Writer, scenarioLatencyTemplateConstant,
		roundMilliseconds(latencyStats.Minimum), roundMilliseconds(latencyStats.Average), roundMilliseconds(latencyStats.Maximum),
		roundMilliseconds(latencyStats.Percentile50), roundMilliseconds(latencyStats.Percentile95), roundMilliseconds(latencyStats.Percentile99))
	if len(scenarioResult.ErrorCounts) > 0 {
		fmt.Fprint(reporter.Writer, scenarioErrorsHeaderConstant)
		for _, errorCode := range sortedErrorCodes(scenarioResult.ErrorCounts) {
			fmt.Fprintf(reporter.Writer, scenarioErrorLineTemplateConstant, errorCode, scenarioResult.ErrorCounts[errorCode])
		}
	}
	return nil
}

func (reporter *ScenarioReporter) renderJSON(scenarioResult metrics.ScenarioResult) error {
	latencyStats := metrics.ComputeLatencyStats(scenarioResult.Latencies)
	reportDocument := scenarioReportDocument{
		Scenario:             scenarioResult.ScenarioName,
		DurationMilliseconds: roundMilliseconds(scenarioResult.TotalDurationMilliseconds),
		TotalRequests:        scenarioResult.TotalRequests,
		Succeeded:            scenarioResult.Succeeded,
		Failed:               scenarioResult.Failed,
		SuccessRatePercent:   successRatePercent(scenarioResult),
		ThroughputPerSecond:  throughputPerSecond(scenarioResult),
		Latency: scenarioLatency{
			Minimum:      roundMilliseconds(latencyStats.Minimum),
			Maximum:      roundMilliseconds(latencyStats.Maximum),
			Average:      roundMilliseconds(latencyStats.Average),
			Percentile50: roundMilliseconds(latencyStats.Percentile50),
			Percentile95: roundMilliseconds(latencyStats.Percentile95),
			Percentile99: roundMilliseconds(latencyStats.Percentile99),
		},
		Errors: scenarioResult.ErrorCounts,
	}
	jsonEncoder := json.NewEncoder(reporter.Writer)
	jsonEncoder.SetIndent("", "  ")
	if encodeError := jsonEncoder.Encode(reportDocument); encodeError != nil {
		return pkgerrors.Wrap(encodeError, encodeScenarioMessageConstant)
	}
	return nil
}

func (reporter *ScenarioReporter) renderCSV(scenarioResult metrics.ScenarioResult) error {
	latencyStats := metrics.ComputeLatencyStats(scenarioResult.Latencies)
	dataRow := []string{
		scenarioResult.ScenarioName,
		strconv.FormatInt(roundMilliseconds(scenarioResult.TotalDurationMilliseconds), 10),
		strconv.Itoa(scenarioResult.TotalRequests),
		strconv.Itoa(scenarioResult.Succeeded),
		strconv.Itoa(scenarioResult.Failed),
		strconv.FormatFloat(successRatePercent(scenarioResult), 'f', 2, 64),
		strconv.FormatInt(roundMilliseconds(latencyStats.Minimum), 10),
		strconv.FormatInt(roundMilliseconds(latencyStats.Maximum), 10),
		strconv.FormatInt(roundMilliseconds(latencyStats.Average), 10),
		strconv.FormatInt(roundMilliseconds(latencyStats.Percentile50), 10),
		strconv.FormatInt(roundMilliseconds(latencyStats.Percentile95), 10),
		strconv.FormatInt(roundMilliseconds(latencyStats.Percentile99), 10),
		strconv.FormatFloat(throughputPerSecond(scenarioResult), 'f', 2, 64),
	}
	csvWriter := csv.NewWriter(reporter.Writer)
	if writeError := csvWriter.Write(csvHeaderColumns); writeError != nil {
		return pkgerrors.Wrap(writeError, writeScenarioReportMessageConstant)
	}
	if writeError := csvWriter.Write(dataRow); writeError != nil {
		return pkgerrors.Wrap(writeError, writeScenarioReportMessageConstant)
	}
	csvWriter.Flush()
	return pkgerrors.Wrap(csvWriter.Error(), writeScenarioReportMessageConstant)
}

func successRatePercent(scenarioResult metrics.ScenarioResult) float64 {
	if scenarioResult.TotalRequests == 0 {
		return 0
	}
	return float64(scenarioResult.Succeeded) / float64(scenarioResult.TotalRequests) * percentFactorConstant
}

func throughputPerSecond(scenarioResult metrics.ScenarioResult) float64 {
	if scenarioResult.TotalDurationMilliseconds <= 0 {
		return 0
	}
	return float64(scenarioResult.TotalRequests) / (scenarioResult.TotalDurationMilliseconds / millisecondsPerSecondConstant)
}

func sortedErrorCodes(errorCounts map[string]int) []string {
	errorCodes := make([]string, 0, len(errorCounts))
	for errorCode := range errorCounts {
		errorCodes = append(errorCodes, errorCode)
	}
	sort.Strings(errorCodes)
	return errorCodes
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
)

const (
	passGlyphConstant = "✓"
	failGlyphConstant = "✗"

	checkLineTemplateConstant       = "%s %-24s %6dms  %s\n"
	checkDetailsTemplateConstant    = "    details: %s\n"
	checkSuggestionTemplateConstant = "    suggestion: %s\n"
	checkFooterTemplateConstant     = "\n%d passed, %d failed in %dms\n"
	healthyBannerConstant           = "HEALTHY"
	unhealthyBannerConstant         = "UNHEALTHY"

	statusHealthyConstant   = "healthy"
	statusUnhealthyConstant = "unhealthy"

	encodeCheckReportMessageConstant = "encode check report"
	writeCheckReportMessageConstant  = "write check report"
)

// CheckOutcome is one check result prepared for rendering.
type CheckOutcome struct {
	Name                 string
	Success              bool
	DurationMilliseconds float64
	Message              string
	Details              string
	Suggestion           string
}

// CheckRunOutcome aggregates a completed check run for rendering.
type CheckRunOutcome struct {
	Outcomes                  []CheckOutcome
	Passed                    int
	Failed                    int
	TotalDurationMilliseconds float64
}

// Healthy reports whether every check in the run passed.
func (runOutcome CheckRunOutcome) Healthy() bool {
	return runOutcome.Failed == 0
}

// CheckReporter renders health check runs. Pretty output supports progressive
// per-check lines via RenderCheckLine while the run is still in flight.
type CheckReporter struct {
	Writer   io.Writer
	Verbose  bool
	UseColor bool
}

type checkReportEntry struct {
	Name                 string `json:"name"`
	Success              bool   `json:"success"`
	DurationMilliseconds int64  `json:"duration_ms"`
	Message              string `json:"message"`
	Details              string `json:"details,omitempty"`
	Suggestion           string `json:"suggestion,omitempty"`
}

type checkReportSummary struct {
	Total                int   `json:"total"`
	Passed               int   `json:"passed"`
	Failed               int   `json:"failed"`
	DurationMilliseconds int64 `json:"duration_ms"`
}

type checkReportDocument struct {
	Status  string             `json:"status"`
	Checks  []checkReportEntry `json:"checks"`
	Summary checkReportSummary `json:"summary"`
}

// RenderCheckLine prints one pretty result line, with details in verbose mode
// and the suggestion whenever the check failed.
func (reporter *CheckReporter) RenderCheckLine(checkResult CheckOutcome) {
	statusGlyph := reporter.colorize(passGlyphConstant, color.FgGreen)
	if !checkResult.Success {
		statusGlyph = reporter.colorize(failGlyphConstant, color.FgRed)
	}
	fmt.Fprintf(reporter.Writer, checkLineTemplateConstant,
		statusGlyph, checkResult.Name, roundMilliseconds(checkResult.DurationMilliseconds), checkResult.Message)
	if reporter.Verbose && len(checkResult.Details) > 0 {
		fmt.Fprintf(reporter.Writer, checkDetailsTemplateConstant, checkResult.Details)
	}
	if !checkResult.Success && len(checkResult.Suggestion) > 0 {
		fmt.Fprintf(reporter.Writer, checkSuggestionTemplateConstant, checkResult.Suggestion)
	}
}

// RenderSummary renders the aggregate outcome in the selected format. Pretty
// mode assumes per-check lines were already emitted progressively and only
// appends the footer and status banner.
func (reporter *CheckReporter) RenderSummary(runOutcome CheckRunOutcome, outputFormat Format) error {
	if outputFormat == FormatJSON {
		return reporter.renderJSON(runOutcome)
	}
	fmt.Fprintf(reporter.Writer, checkFooterTemplateConstant,
		runOutcome.Passed, runOutcome.Failed, roundMilliseconds(runOutcome.TotalDurationMilliseconds))
	statusBanner := reporter.colorize(healthyBannerConstant, color.FgGreen)
	if !runOutcome.Healthy() {
		statusBanner = reporter.colorize(unhealthyBannerConstant, color.FgRed)
	}
	if _, writeError := fmt.Fprintln(reporter.Writer, statusBanner); writeError != nil {
		return pkgerrors.Wrap(writeError, writeCheckReportMessageConstant)
	}
	return nil
}

func (reporter *CheckReporter) renderJSON(runOutcome CheckRunOutcome) error {
	reportStatus := statusHealthyConstant
	if !runOutcome.Healthy() {
		reportStatus = statusUnhealthyConstant
	}
	reportDocument := checkReportDocument{
		Status: reportStatus,
		Checks: make([]checkReportEntry, 0, len(runOutcome.Outcomes)),
		Summary: checkReportSummary{
			Total:                len(runOutcome.Outcomes),
			Passed:               runOutcome.Passed,
			Failed:               runOutcome.Failed,
			DurationMilliseconds: roundMilliseconds(runOutcome.TotalDurationMilliseconds),
		},
	}
	for _, checkResult := range runOutcome.Outcomes {
		reportDocument.Checks = append(reportDocument.Checks, checkReportEntry{
			Name:                 checkResult.Name,
			Success:              checkResult.Success,
			DurationMilliseconds: roundMilliseconds(checkResult.DurationMilliseconds),
			Message:              checkResult.Message,
			Details:              checkResult.Details,
			Suggestion:           checkResult.Suggestion,
		})
	}
	jsonEncoder := json.NewEncoder(reporter.Writer)
	jsonEncoder.SetIndent("", "  ")
	if encodeError := jsonEncoder.Encode(reportDocument); encodeError != nil {
		return pkgerrors.Wrap(encodeError, encodeCheckReportMessageConstant)
	}
	return nil
}

func (reporter *CheckReporter) colorize(text string, colorAttribute color.Attribute) string {
	if !reporter.UseColor {
		return text
	}
	return color.New(colorAttribute).Sprint(text)
}

func roundMilliseconds(durationMilliseconds float64) int64 {
	return int64(math.Round(durationMilliseconds))
}

// Package report renders check and load-test outcomes as console text, JSON,
// or CSV.
package report

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Format selects an output rendering.
type Format string

const (
	// FormatPretty renders human-oriented console text.
	FormatPretty Format = "pretty"
	// FormatJSON renders a single machine-readable JSON document.
	FormatJSON Format = "json"
	// FormatCSV renders a single-row CSV with a fixed column order.
	FormatCSV Format = "csv"

	unknownFormatTemplateConstant = "unknown output format %q (expected pretty, json, or csv)"
)

// ErrUnknownFormat indicates an unrecognized format name.
var ErrUnknownFormat = pkgerrors.New("unknown output format")

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(rawFormat string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(rawFormat))) {
	case FormatPretty, Format(""):
		return FormatPretty, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return Format(""), pkgerrors.Wrap(ErrUnknownFormat, fmt.Sprintf(unknownFormatTemplateConstant, rawFormat))
	}
}

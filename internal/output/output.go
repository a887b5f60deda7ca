// Package output renders command results as YAML, JSON or tables.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// Default is the default output format.
var Default Format = FormatTable

// globalFormat is set by the root command's --output flag.
var globalFormat = Default

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON, FormatTable:
		return Format(s), nil
	case "":
		return Default, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml, json or table)", s)
	}
}

// SetFormat sets the global output format.
func SetFormat(f Format) {
	globalFormat = f
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// IsStructured reports whether the current format is machine-readable.
// Commands print human-friendly messages only when it is not.
func IsStructured() bool {
	return globalFormat == FormatJSON || globalFormat == FormatYAML
}

// Write renders data to stdout in the global format.
func Write(data any) error {
	return WriteTo(os.Stdout, globalFormat, data)
}

// WriteTo renders data to w. Table format uses the Tabler implementation
// when data has one and falls back to YAML otherwise.
func WriteTo(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case FormatTable:
		if t, ok := data.(Tabler); ok {
			_, err := io.WriteString(w, t.Table())
			return err
		}
		return WriteTo(w, FormatYAML, data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Tabler is implemented by results with a human-oriented table view.
type Tabler interface {
	Table() string
}

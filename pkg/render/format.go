// Package render writes utilization reports as tables, CSV, JSON or YAML.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// Format is an output format name.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats, the default first.
var Formats = []Format{FormatTable, FormatCSV, FormatJSON, FormatYAML}

// FormatNames returns Formats as strings, for flag help.
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for _, f := range Formats {
		names = append(names, string(f))
	}
	return names
}

// ParseFormat resolves a format name; empty selects the table.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (choose from %s)", s, strings.Join(FormatNames(), ", "))
}

// ColorMode controls ANSI styling of the table.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode resolves a --color value; empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(s)) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways:
		return ColorAlways, nil
	case ColorNever:
		return ColorNever, nil
	default:
		return "", fmt.Errorf("unknown color mode %q (choose from auto, always, never)", s)
	}
}

// Enabled decides whether output to w is styled. Auto styles only terminals
// and honours NO_COLOR.
func (m ColorMode) Enabled(w io.Writer) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	nanoPerMilli = 1_000_000
	milliPerCore = 1000
	bytesBase    = 1024
)

var memoryUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatCPU renders nanocores as millicores below one core and as cores above.
func FormatCPU(nanocores int64) string {
	milli := float64(nanocores) / nanoPerMilli
	if milli >= milliPerCore {
		return fmt.Sprintf("%.2f CPU", milli/milliPerCore)
	}
	return fmt.Sprintf("%.2f mCPU", milli)
}

// FormatMemory renders bytes in 1024-based units up to TB.
func FormatMemory(bytes int64) string {
	v := float64(bytes)
	unit := 0
	for v >= bytesBase && unit < len(memoryUnits)-1 {
		v /= bytesBase
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, memoryUnits[unit])
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

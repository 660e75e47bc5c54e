package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Output writes result as JSON or YAML to w. Text output is the command's
// own concern, so FormatText falls back to YAML here.
func Output(w io.Writer, result any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	case FormatYAML, FormatText, "":
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Printer writes status lines. The zero value prints to stdout and stderr.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
}

func (p *Printer) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

func (p *Printer) err() io.Writer {
	if p.Err == nil {
		return os.Stderr
	}
	return p.Err
}

// Success prints a line with a check mark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.out(), "✓ "+format+"\n", args...)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out(), "ℹ "+format+"\n", args...)
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintf(p.out(), "⚠ "+format+"\n", args...)
}

// Error prints "Error: ..." to stderr.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.err(), "Error: "+format+"\n", args...)
}

// Verbosef prints to stderr when Verbose is set.
func (p *Printer) Verbosef(format string, args ...any) {
	if p.Verbose {
		fmt.Fprintf(p.err(), "[verbose] "+format+"\n", args...)
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mchmarny/pulse/pkg/report"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatMarkdown = "markdown"
	formatProm     = "prom"
)

func parseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	case formatMarkdown, "md":
		return formatMarkdown, nil
	case formatProm, "prometheus":
		return formatProm, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

func writer(cmd *urfave.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// encode writes v as json or yaml. The report formats are only available
// for commands that produce assessments.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	default:
		return fmt.Errorf("output format %s is not supported by this command", format)
	}
}

// encodeReports writes reports in the selected format. A single report in
// markdown is rendered as a summary, several as a comparison table.
func encodeReports(w io.Writer, format string, v any, reports []*report.Report) error {
	switch format {
	case formatMarkdown:
		if len(reports) == 1 {
			return reports[0].WriteMarkdown(w)
		}
		return report.WriteComparison(w, reports)
	case formatProm:
		return report.WritePrometheus(w, reports)
	default:
		return encode(w, format, v)
	}
}

package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/mchmarny/pulse/pkg/vitality"
)

const (
	noneValue = "-"

	reportTemplate = `# {{ .Repo.FullName }}
{{ with .Assessment }}
**Vitality score:** {{ .Score }}/100 ({{ upper .Severity }})  
**Confidence:** {{ upper .Confidence }}  
**Lead share:** {{ .RiskRatio }}%  
**Stars:** {{ count $.Repo.Stars }}{{ with $.Repo.License }}  
**License:** {{ . }}{{ end }}

> {{ .Explanation }}

**Flags:** {{ flags .Flags }}
{{ end }}
| Indicator | Value | Status |
|---|---|---|
{{- range .Indicators }}
| {{ .Title }} | {{ .Value }} | {{ upper .Status }} |
{{- end }}
{{ with .LeadMaintainer }}
**Lead maintainer:** {{ .Author }}, {{ .Commits }} commits ({{ .Share }}%), reputation {{ printf "%.2f" .Reputation }}
{{ end }}
_Generated {{ timestamp .GeneratedAt }}_
`
)

var (
	funcs = template.FuncMap{
		"upper":     func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
		"count":     formatCount,
		"flags":     formatFlags,
		"timestamp": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}

	reportTmpl = template.Must(template.New("report").Funcs(funcs).Parse(reportTemplate))
)

// WriteMarkdown writes a markdown summary of the report.
func (r *Report) WriteMarkdown(w io.Writer) error {
	if !r.OK() {
		return errors.New("report has no assessment")
	}
	if err := reportTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteComparison writes the reports side by side as a markdown table.
// Columns follow the order of reports.
func WriteComparison(w io.Writer, reports []*Report) error {
	if len(reports) == 0 {
		return errors.New("no reports to compare")
	}

	rows := []struct {
		label string
		value func(*Report) string
	}{
		{"Score", func(r *Report) string { return fmt.Sprintf("%d/100", r.Assessment.Score) }},
		{"Severity", func(r *Report) string { return strings.ToUpper(string(r.Assessment.Severity)) }},
		{"Confidence", func(r *Report) string { return strings.ToUpper(string(r.Assessment.Confidence)) }},
		{"Lead Share", func(r *Report) string { return fmt.Sprintf("%d%%", r.Assessment.RiskRatio) }},
		{"Stars", func(r *Report) string { return formatCount(r.Repo.Stars) }},
		{"Flags", func(r *Report) string { return formatFlags(r.Assessment.Flags) }},
	}

	var b strings.Builder
	b.WriteString("| Metric |")
	for _, r := range reports {
		fmt.Fprintf(&b, " %s |", cell(r.Repo.FullName))
	}
	b.WriteString("\n|---|")
	b.WriteString(strings.Repeat("---|", len(reports)))
	b.WriteString("\n")

	for i, row := range rows {
		fmt.Fprintf(&b, "| %s |", row.label)
		for _, r := range reports {
			v := noneValue
			switch {
			case r.OK():
				v = row.value(r)
			case i == 0:
				v = r.Error
				if v == "" {
					v = "could not assess"
				}
			}
			fmt.Fprintf(&b, " %s |", cell(v))
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	return nil
}

func formatFlags(flags vitality.Flags) string {
	if len(flags) == 0 {
		return "None"
	}
	list := make([]string, len(flags))
	for i, f := range flags {
		list[i] = f.Label()
	}
	return strings.Join(list, ", ")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jackzampolin/lqa/internal/batch"
	"github.com/jackzampolin/lqa/internal/report"
)

// RunSummary is the result of `lqa run`.
type RunSummary struct {
	State     batch.RunState `json:"state" yaml:"state"`
	Items     []*batch.Item  `json:"items" yaml:"items"`
	ReportDir string         `json:"report_dir,omitempty" yaml:"report_dir,omitempty"`
}

// Table renders the per-item outcome followed by run totals.
func (s RunSummary) Table() string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "Name", "Locale", "Status", "Quality", "Issues"})

	for _, it := range s.Items {
		quality, issues := "-", "-"
		if it.Report != nil {
			quality = QualityColor(it.Report.Overall.QualityLevel)
			issues = fmt.Sprintf("%d", len(it.Report.Issues))
		}
		tbl.AppendRow(table.Row{it.ID, it.Name, it.Locale, StatusColor(it.Status), quality, issues})
	}

	st := s.State
	footer := fmt.Sprintf("%d/%d done, %d ok, %d failed", st.Completed, st.Total, st.Success, st.Failed)
	if st.Cancelled {
		footer += fmt.Sprintf(", cancelled with %d pending", st.Pending())
	}

	var b strings.Builder
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	b.WriteString(footer)
	b.WriteString("\n")

	if len(st.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		errs := table.NewWriter()
		errs.SetStyle(table.StyleLight)
		errs.AppendHeader(table.Row{"ID", "Name", "Message"})
		for _, e := range st.Errors {
			errs.AppendRow(table.Row{e.ID, e.Name, e.Message})
		}
		b.WriteString(errs.Render())
		b.WriteString("\n")
	}
	if s.ReportDir != "" {
		fmt.Fprintf(&b, "Reports written to %s\n", s.ReportDir)
	}
	return b.String()
}

// ReportView is a single normalized report.
type ReportView struct {
	Report   *report.Report `json:"report" yaml:"report"`
	Original string         `json:"original_quality,omitempty" yaml:"original_quality,omitempty"`
}

// Table renders the tier, scores and issue list.
func (v ReportView) Table() string {
	r := v.Report
	var b strings.Builder

	level := QualityColor(r.Overall.QualityLevel)
	if v.Original != "" && v.Original != string(r.Overall.QualityLevel) {
		level = fmt.Sprintf("%s (reported %s)", level, v.Original)
	}
	fmt.Fprintf(&b, "Quality: %s\n", level)
	if r.Overall.Summary != "" {
		fmt.Fprintf(&b, "%s\n", r.Overall.Summary)
	}

	scores := table.NewWriter()
	scores.SetStyle(table.StyleLight)
	scores.AppendHeader(table.Row{"Dimension", "Score"})
	for _, d := range report.Dimensions {
		scores.AppendRow(table.Row{string(d), fmt.Sprintf("%.1f", r.Overall.Scores.Get(d))})
	}
	b.WriteString(scores.Render())
	b.WriteString("\n")

	if len(r.Issues) > 0 {
		issues := table.NewWriter()
		issues.SetStyle(table.StyleLight)
		issues.AppendHeader(table.Row{"Severity", "Category", "Description"})
		for _, is := range r.Issues {
			issues.AppendRow(table.Row{SeverityColor(is.Severity), string(is.Category), is.Description})
		}
		b.WriteString(issues.Render())
		b.WriteString("\n")
	}
	if r.Summary.Advice != "" {
		fmt.Fprintf(&b, "Advice: %s\n", r.Summary.Advice)
	}
	return b.String()
}

// QualityColor colors a quality tier for terminals.
func QualityColor(q report.QualityLevel) string {
	switch q {
	case report.QualityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(q)
	case report.QualityPoor:
		return color.New(color.FgRed).Sprint(q)
	case report.QualityAverage:
		return color.New(color.FgYellow).Sprint(q)
	case report.QualityGood:
		return color.New(color.FgCyan).Sprint(q)
	case report.QualityExcellent, report.QualityPerfect:
		return color.New(color.FgGreen).Sprint(q)
	default:
		return string(q)
	}
}

// SeverityColor colors an issue severity.
func SeverityColor(s report.Severity) string {
	switch s {
	case report.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	case report.SeverityMajor:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return string(s)
	}
}

// StatusColor colors an item status.
func StatusColor(s batch.Status) string {
	switch s {
	case batch.StatusCompleted:
		return color.New(color.FgGreen).Sprint(s)
	case batch.StatusFailed:
		return color.New(color.FgRed).Sprint(s)
	case batch.StatusAnalyzing:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return string(s)
	}
}

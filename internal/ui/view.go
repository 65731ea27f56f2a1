package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/util/format"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(m.viewStages())
	b.WriteString("\n")
	b.WriteString(m.viewProgress())
	if m.verbose && len(m.run.logs) > 0 {
		b.WriteString("\n")
		for _, l := range m.run.logs {
			b.WriteString(m.styles.Faint.Render("  " + truncate(l, 100)))
			b.WriteString("\n")
		}
	}
	if s := m.viewSummary(); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("clipforge")
	hint := "q: cancel"
	if m.cancelling {
		hint = "q: quit now"
	}
	sub := m.styles.Subtitle.Render(fmt.Sprintf("%s • %s", truncate(m.run.source, 60), hint))
	return title + "\n" + sub
}

func (m Model) stageStyle(st model.Stage) func(...string) string {
	switch st {
	case model.StageDownloading:
		return m.styles.StageDL.Render
	case model.StageTranscribing:
		return m.styles.StageASR.Render
	case model.StageTranscoding:
		return m.styles.StageEnc.Render
	case model.StageExporting:
		return m.styles.StageExport.Render
	}
	return m.styles.Info.Render
}

func (m Model) viewStages() string {
	var b strings.Builder
	for _, row := range m.run.rows {
		var icon string
		switch row.status {
		case stageActive:
			icon = m.styles.Spinner.Render(m.spinner.View())
		case stageDone:
			icon = m.styles.Success.Render("✓")
		case stageSkipped:
			icon = m.styles.Faint.Render("–")
		case stageFailed:
			icon = m.styles.Error.Render("✗")
		default:
			icon = m.styles.Faint.Render("·")
		}
		line := fmt.Sprintf("%s %s", icon, m.stageStyle(row.stage)(string(row.stage)))
		if row.note != "" {
			line += " " + m.styles.Faint.Render("("+row.note+")")
		}
		b.WriteString(m.styles.Box.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewProgress() string {
	bar := fmt.Sprintf("%s %3d%%", m.bar.ViewAs(float64(m.run.percent)/100.0), m.run.percent)
	status := m.styles.Info.Render(m.run.status)
	if m.run.err != nil {
		status = m.styles.Error.Render(m.run.status)
	} else if m.cancelling && !m.run.done {
		status = m.styles.Warning.Render(m.run.status)
	}
	return m.styles.Box.Render(bar + "\n" + status)
}

func (m Model) viewSummary() string {
	if !m.run.done {
		return ""
	}
	if m.run.err != nil {
		kind := errs.KindOf(m.run.err)
		return m.styles.Error.Render(fmt.Sprintf("✗ %s failure", kind)) + "\n"
	}
	if m.run.outputPath == "" {
		return ""
	}
	name := filepath.Base(m.run.outputPath)
	return m.styles.Success.Render(fmt.Sprintf("✓ Saved: %s (%s)", name, format.HumanizeBytes(m.run.bytes))) + "\n" +
		m.styles.Faint.Render("  "+m.run.outputPath) + "\n"
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

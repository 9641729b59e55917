package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 24

type RenderOptions struct {
	// Verbose adds the run id and timing line.
	Verbose bool
}

func renderView(report domain.Report, opts RenderOptions, s styles) string {
	total := len(report.Outcomes)
	succeeded := report.SuccessCount()

	lines := []string{
		s.title.Render("Xserver renewal report"),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.header.Render(fmt.Sprintf("succeeded: %d/%d ", succeeded, total)),
			renderProgressBar(succeeded, total, barWidth, s),
		),
	}
	if opts.Verbose {
		lines = append(lines, s.header.Render(runLine(report)))
	}

	if total == 0 {
		lines = append(lines, s.empty.Render("No accounts were processed."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, outcome := range report.Outcomes {
		lines = append(lines, s.section.Render(renderOutcome(outcome, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderOutcome(outcome domain.Outcome, s styles) string {
	mark := s.success.Render("✓ renewed")
	if !outcome.Success {
		mark = s.failure.Render("✗ failed")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, s.account.Render(outcome.Account), " ", mark),
		s.detail.Render(messageText(outcome.Message)),
	)
}

func messageText(message string) string {
	if strings.TrimSpace(message) == "" {
		return "(no message)"
	}

	return message
}

func runLine(report domain.Report) string {
	parts := make([]string, 0, 3)
	if report.RunID != "" {
		parts = append(parts, "run "+report.RunID)
	}
	if !report.StartedAt.IsZero() {
		parts = append(parts, "started "+report.StartedAt.Format("2006/01/02 15:04:05"))
	}
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		parts = append(parts, "took "+report.FinishedAt.Sub(report.StartedAt).Round(time.Second).String())
	}
	if len(parts) == 0 {
		return "run details unavailable"
	}

	return strings.Join(parts, " · ")
}

func renderProgressBar(succeeded, total, width int, s styles) string {
	if width <= 0 || total <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * float64(succeeded) / float64(total)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type renewDoneMsg struct {
	report domain.Report
	err    error
}

type renewProgressMsg struct {
	done  int
	total int
}

type renewSpinnerModel struct {
	spinner spinner.Model
	label   string
	run     tea.Cmd
	report  domain.Report
	err     error
	done    bool
}

func newRenewSpinnerModel(run tea.Cmd) renewSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return renewSpinnerModel{
		spinner: s,
		label:   "Renewing accounts...",
		run:     run,
	}
}

func (m renewSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m renewSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case renewProgressMsg:
		m.label = fmt.Sprintf("Renewing accounts (%d/%d done)...", msg.done, msg.total)
		return m, nil
	case renewDoneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m renewSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runRenewSpinner draws a spinner on output while run executes. run receives
// a callback that advances the spinner label.
func runRenewSpinner(ctx context.Context, output io.Writer, run func(context.Context, func(done, total int)) (domain.Report, error)) (domain.Report, error) {
	var p *tea.Program
	progress := func(done, total int) {
		if p != nil {
			p.Send(renewProgressMsg{done: done, total: total})
		}
	}
	runCmd := func() tea.Msg {
		report, err := run(ctx, progress)
		return renewDoneMsg{report: report, err: err}
	}

	p = tea.NewProgram(
		newRenewSpinnerModel(runCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.Report{}, err
	}

	result, ok := finalModel.(renewSpinnerModel)
	if !ok {
		return domain.Report{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.report, result.err
}

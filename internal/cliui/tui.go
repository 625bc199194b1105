package cliui

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer shows a live spinner and progress bar while a package's cache
// is warmed.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *warmModel
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails if Output isn't a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newWarmModel(cfg.Package)
	if cfg.NoColor || DetectNoColor() {
		model.styles = noColorStyles()
	}

	return &TUIRenderer{cfg: cfg, model: model, done: make(chan struct{})}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program == nil {
		return nil
	}
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type progressMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

type warmModel struct {
	pkg         string
	stage       Stage
	current     int
	total       int
	currentItem string
	errorCount  int
	warnCount   int
	complete    bool
	stats       CompletionStats
	quitting    bool
	spinner     spinner.Model
	bar         progress.Model
	styles      styles
	width       int
}

func newWarmModel(pkg string) *warmModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime))

	bar := progress.New(
		progress.WithSolidFill(colorLime),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &warmModel{
		pkg:     pkg,
		spinner: s,
		bar:     bar,
		styles:  defaultStyles(),
		width:   80,
	}
}

func (m *warmModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *warmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 20
		if m.bar.Width < 20 {
			m.bar.Width = 20
		}

	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.currentItem = msg.CurrentItem
		return m, nil

	case errorMsg:
		if msg.IsWarn {
			m.warnCount++
		} else {
			m.errorCount++
		}
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *warmModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	header := m.styles.Header.Render(fmt.Sprintf("Warming %s", m.pkg))

	var body string
	if m.total == 0 {
		body = fmt.Sprintf("%s %s...", m.spinner.View(), m.stage.String())
	} else {
		pct := float64(m.current) / float64(m.total)
		bar := m.bar.ViewAs(pct)
		pctStr := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", pct*100))
		count := m.styles.Label.Render(fmt.Sprintf("%d / %d items", m.current, m.total))
		body = fmt.Sprintf("%s  %s  %s\n%s", m.spinner.View(), bar, pctStr, count)
	}

	var status string
	if m.currentItem != "" {
		status = m.styles.Dim.Render(m.currentItem)
	}

	var footer string
	if m.errorCount > 0 || m.warnCount > 0 {
		footer = m.styles.Warning.Render(fmt.Sprintf("%d errors, %d warnings", m.errorCount, m.warnCount))
	} else {
		footer = m.styles.Dim.Render("q to quit")
	}

	lines := []string{header, body}
	if status != "" {
		lines = append(lines, status)
	}
	lines = append(lines, footer)

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorDarkGray)).
		Padding(0, 1)

	content := lines[0]
	for _, l := range lines[1:] {
		content += "\n" + l
	}
	return panel.Render(content) + "\n"
}

func (m *warmModel) renderComplete() string {
	lines := []string{
		m.styles.Success.Render(fmt.Sprintf("Warmed %s@%s", m.stats.Package, m.stats.Version)),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Items:"), m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Items))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), m.styles.Active.Render(m.stats.Duration.Round(100*time.Millisecond).String())),
	}
	if m.stats.Errors > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("%d errors", m.stats.Errors)))
	}
	if m.stats.Warnings > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("%d warnings", m.stats.Warnings)))
	}

	content := lines[0]
	for _, l := range lines[1:] {
		content += "\n" + l
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorLime)).
		Padding(1, 2)

	return panel.Render(content) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)

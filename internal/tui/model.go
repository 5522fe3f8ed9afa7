// Package tui is the terminal dashboard for the T5 index, served over SSH.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/render"
	"t5index/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	dateLayout   = "2006-01-02"
	buildTimeout = 2 * time.Minute
	tailRows     = 5
)

// IndexService is the part of the index pipeline the dashboard drives.
type IndexService interface {
	Build(ctx context.Context, req service.IndexRequest) (*service.IndexResult, error)
	Sources() []service.SourceInfo
	DefaultSource() string
	DefaultRange(source string) (daterange.Range, error)
	Weights() domain.WeightTable
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Width(8)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	sparkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type builtMsg struct {
	result *service.IndexResult
	err    error
}

type Model struct {
	svc     IndexService
	inputs  []textinput.Model
	focus   int
	sources []string
	source  int
	spinner spinner.Model
	loading bool
	result  *service.IndexResult
	err     error
	width   int
	height  int
}

// NewModel prefills the inputs with the service's default window.
func NewModel(svc IndexService) *Model {
	m := &Model{svc: svc, width: 80}

	source := 0
	for i, s := range svc.Sources() {
		m.sources = append(m.sources, s.Name)
		if s.Name == svc.DefaultSource() {
			source = i
		}
	}
	m.source = source

	window, err := svc.DefaultRange(svc.DefaultSource())
	if err != nil {
		window = daterange.Default(service.DefaultWindowDays, time.Now())
	}

	start := textinput.New()
	start.Placeholder = dateLayout
	start.CharLimit = len(dateLayout)
	start.SetValue(window.Start.Format(dateLayout))
	start.Focus()

	end := textinput.New()
	end.Placeholder = dateLayout
	end.CharLimit = len(dateLayout)
	end.SetValue(window.End.Format(dateLayout))

	m.inputs = []textinput.Model{start, end}
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	return m
}

func (m *Model) SetSize(width, height int) {
	if width > 0 {
		m.width = width
	}
	m.height = height
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case builtMsg:
		m.loading = false
		m.result, m.err = msg.result, msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if len(m.sources) > 0 {
				m.source = (m.source + 1) % len(m.sources)
			}
			return m, nil
		case "up", "down", "shift+tab":
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus()
		case "enter":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.build())
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) selectedSource() string {
	if len(m.sources) == 0 {
		return ""
	}
	return m.sources[m.source]
}

// build parses the inputs now and runs the pipeline off the update loop.
func (m *Model) build() tea.Cmd {
	r, err := daterange.Parse(m.inputs[0].Value(), m.inputs[1].Value())
	if err != nil {
		return func() tea.Msg { return builtMsg{err: err} }
	}
	req := service.IndexRequest{Source: m.selectedSource(), Range: r, Record: true}
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()
		result, err := svc.Build(ctx, req)
		return builtMsg{result: result, err: err}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("T5 Index") + "  " + hintStyle.Render(m.svc.Weights().Title()) + "\n\n")
	b.WriteString(labelStyle.Render("Start") + m.inputs[0].View() + "\n")
	b.WriteString(labelStyle.Render("End") + m.inputs[1].View() + "\n")
	b.WriteString(labelStyle.Render("Source") + m.sourceLine() + "\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " building index...\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.result != nil:
		b.WriteString(m.resultView())
	}

	b.WriteString("\n" + hintStyle.Render("enter build • tab source • ↑/↓ switch field • esc quit"))
	return b.String()
}

func (m *Model) sourceLine() string {
	parts := make([]string, len(m.sources))
	for i, s := range m.sources {
		if i == m.source {
			parts[i] = "[" + s + "]"
		} else {
			parts[i] = " " + s + " "
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) resultView() string {
	var b strings.Builder

	width := max(m.width-4, 10)
	b.WriteString(sparkStyle.Render(render.Sparkline(m.result.Index.Values(), width)) + "\n")
	if summary, ok := render.Summarize(m.result.Index); ok {
		b.WriteString(summary.String() + "\n")
	}

	b.WriteString(fmt.Sprintf("\nLast %d days (%s)\n", tailRows, m.result.Source))
	for _, symbol := range m.result.Weights.Active() {
		series, ok := m.result.Series[symbol]
		if !ok {
			continue
		}
		row := make([]string, 0, tailRows)
		for _, o := range render.Tail(series, tailRows) {
			row = append(row, render.FormatPrice(o.Price))
		}
		b.WriteString(fmt.Sprintf("%-4s %s\n", symbol, strings.Join(row, "  ")))
	}
	return b.String()
}

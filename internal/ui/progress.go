// Package ui renders the terminal progress view of a shadow analysis run.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/analyzer"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const padding = 2

type (
	tickMsg     time.Time
	progressMsg analyzer.Progress
	finishMsg   string
)

type keyMap struct {
	quit key.Binding
}

// model is the bubbletea state. Progress arrives from the analyzer
// goroutine through Program.Send; the mutex guards reads from View.
type model struct {
	mu        sync.Mutex
	progress  progress.Model
	keys      keyMap
	title     string
	status    string
	position  float64
	duration  float64
	intervals int
	done      bool
	onQuit    func()
}

func newModel(title string, onQuit func()) *model {
	return &model{
		progress: progress.New(progress.WithGradient("#009DEF", "#4ECDC4")),
		keys: keyMap{
			quit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "stop"),
			),
		},
		title:  title,
		status: "starting shadow copy...",
		onQuit: onQuit,
	}
}

func (m *model) Init() tea.Cmd {
	return tickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, tea.Quit
		}
		return m, tickCmd()

	case progressMsg:
		m.position = msg.Time
		m.duration = msg.Duration
		m.intervals = msg.Intervals
		m.status = fmt.Sprintf("%s / %s  %d interval(s) found",
			clock(m.position), clock(m.duration), m.intervals)
		return m, m.progress.SetPercent(m.percent())

	case finishMsg:
		m.status = string(msg)
		m.done = true
		return m, tea.Batch(m.progress.SetPercent(1), tea.Quit)

	case progress.FrameMsg:
		newModel, cmd := m.progress.Update(msg)
		m.progress = newModel.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.done = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = max(10, msg.Width-padding*2-4)
		return m, nil

	default:
		return m, nil
	}
}

func (m *model) percent() float64 {
	if m.duration <= 0 {
		return 0
	}
	p := m.position / m.duration
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

func (m *model) View() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	pad := strings.Repeat(" ", padding)
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#009DEF")).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))

	return "\n" +
		pad + titleStyle.Render(m.title) + "\n" +
		pad + statusStyle.Render(m.status) + "\n\n" +
		pad + m.progress.View() + "\n\n" +
		pad + "Press Ctrl+C to stop"
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clock formats seconds as m:ss, or h:mm:ss past the hour.
func clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// AnalyzeView is the progress bar shown by the analyze command.
type AnalyzeView struct {
	m *model
	p *tea.Program
}

// NewAnalyzeView builds the view. onQuit runs when the user presses Ctrl+C.
func NewAnalyzeView(title string, onQuit func()) *AnalyzeView {
	m := newModel(title, onQuit)
	return &AnalyzeView{m: m, p: tea.NewProgram(m)}
}

// Report forwards one analyzer progress update. Safe to call from any
// goroutine.
func (v *AnalyzeView) Report(p analyzer.Progress) {
	v.p.Send(progressMsg(p))
}

// Finish shows a final status line and ends the program.
func (v *AnalyzeView) Finish(status string) {
	v.p.Send(finishMsg(status))
}

// Run blocks until Finish is called or the user quits.
func (v *AnalyzeView) Run() error {
	_, err := v.p.Run()
	return err
}

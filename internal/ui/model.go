package ui

import (
	"context"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"clipforge/internal/model"
	"clipforge/internal/progress"
)

// StartFunc runs one export, reporting through rep, and returns its error.
type StartFunc func(ctx context.Context, rep progress.Reporter) error

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	start  StartFunc

	run        runState
	verbose    bool
	cancelling bool
	finished   bool
	runErr     error

	spinner spinner.Model
	bar     bubblesprogress.Model
	width   int
	styles  Styles

	// events carries reporter callbacks from the run goroutine.
	events chan tea.Msg
	quit   chan struct{}
}

func NewModel(ctx context.Context, source string, verbose bool, start StartFunc) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()
	sp := spinner.New()
	sp.Style = sty.Spinner
	return Model{
		ctx:     c,
		cancel:  cancel,
		start:   start,
		run:     newRunState(source),
		verbose: verbose,
		spinner: sp,
		bar:     bubblesprogress.New(bubblesprogress.WithDefaultGradient(), bubblesprogress.WithWidth(40)),
		styles:  sty,
		events:  make(chan tea.Msg, 256),
		quit:    make(chan struct{}),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCmd(), m.listenEventsCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.finished || m.cancelling {
				return m, tea.Quit
			}
			m.cancelling = true
			m.run.status = "Cancelling"
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 16; w > 10 && w < 80 {
			m.bar.Width = w
		}
		return m, nil

	case updateMsg:
		m.run.apply(msg.U)
		return m, m.listenEventsCmd()

	case logMsg:
		m.run.log(msg.L)
		return m, m.listenEventsCmd()

	case resultMsg:
		m.run.finish(msg.R)
		return m, m.listenEventsCmd()

	case finishedMsg:
		// Everything the run reported was queued before it returned.
		m.drain()
		if !m.run.done && msg.Err != nil {
			m.run.finish(progress.Result{Stage: model.StageFailed, Err: msg.Err})
		}
		m.finished = true
		m.runErr = msg.Err
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) drain() {
	for {
		select {
		case ev := <-m.events:
			switch ev := ev.(type) {
			case updateMsg:
				m.run.apply(ev.U)
			case logMsg:
				m.run.log(ev.L)
			case resultMsg:
				m.run.finish(ev.R)
			}
		default:
			return
		}
	}
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return finishedMsg{Err: m.start(m.ctx, teaReporter{ch: m.events, quit: m.quit})}
	}
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.quit:
			return nil
		case msg := <-m.events:
			return msg
		}
	}
}

type teaReporter struct {
	ch   chan tea.Msg
	quit <-chan struct{}
}

func (r teaReporter) Update(u progress.Update) {
	// Stage changes must arrive; percent ticks may be dropped.
	if u.StagePercent >= 0 && u.StagePercent < 100 {
		select {
		case r.ch <- updateMsg{U: u}:
		default:
		}
		return
	}
	r.send(updateMsg{U: u})
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- logMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	r.send(resultMsg{R: res})
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.quit:
	}
}

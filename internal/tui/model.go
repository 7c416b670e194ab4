package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/pipeline"
)

const searchTimeout = 3 * time.Minute

// Searcher runs one pipeline search. *pipeline.Orchestrator satisfies it.
type Searcher interface {
	GetJobs(ctx context.Context, req pipeline.Request) ([]model.Posting, model.RunMetadata)
}

// Options configures the browse TUI.
type Options struct {
	Searcher Searcher
	// Summarizer is asked for a summary when s is pressed. Nil disables it.
	Summarizer model.Summarizer
	// Defaults supplies recency, count and mode; Keywords pre-fills the
	// input and starts a search immediately when set.
	Defaults pipeline.Request
	// AutoRefresh re-runs the last search when it is this old. Zero disables it.
	AutoRefresh time.Duration
}

type viewState int

const (
	viewInput viewState = iota
	viewLoading
	viewList
	viewDetail
)

type searchDoneMsg struct {
	req      pipeline.Request
	postings []model.Posting
	meta     model.RunMetadata
}

type summaryDoneMsg struct {
	link    string
	summary string
	err     error
}

type refreshTickMsg time.Time

type browseModel struct {
	opts    Options
	session *pipeline.Session
	now     func() time.Time

	state    viewState
	input    textinput.Model
	spinner  spinner.Model
	list     viewport.Model
	detail   viewport.Model
	width    int
	height   int
	ready    bool
	inputErr string

	req      pipeline.Request
	postings []model.Posting
	meta     model.RunMetadata
	cursor   int

	summarizing bool
	summaryErr  string
}

func newModel(opts Options) browseModel {
	in := textinput.New()
	in.Placeholder = "e.g. golang backend engineer"
	in.CharLimit = 120
	in.Width = 50
	in.SetValue(opts.Defaults.Keywords)
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return browseModel{
		opts:    opts,
		session: &pipeline.Session{},
		now:     time.Now,
		state:   viewInput,
		input:   in,
		spinner: sp,
		req:     opts.Defaults,
	}
}

func (m browseModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.refreshTick()}
	if strings.TrimSpace(m.opts.Defaults.Keywords) != "" {
		cmds = append(cmds, func() tea.Msg {
			return tea.KeyMsg{Type: tea.KeyEnter}
		})
	}
	return tea.Batch(cmds...)
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case spinner.TickMsg:
		if m.state != viewLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case searchDoneMsg:
		m.session.Record(msg.req, msg.postings, msg.meta, m.now())
		if msg.meta.Failed() {
			// A failed refresh keeps the results on screen.
			m.inputErr = msg.meta.Error.Error()
			if m.state == viewLoading {
				m.state = viewInput
				m.input.Focus()
				return m, textinput.Blink
			}
			return m, nil
		}
		m.inputErr = ""
		m.req = msg.req
		m.meta = msg.meta
		m.postings = msg.postings
		m.cursor = clamp(m.cursor, 0, max(len(m.postings)-1, 0))
		if m.state == viewLoading {
			m.state = viewList
		}
		m.recalcContent()
		return m, nil

	case summaryDoneMsg:
		m.summarizing = false
		if msg.err != nil {
			m.summaryErr = fmt.Sprintf("summary failed: %v", msg.err)
		} else {
			m.summaryErr = ""
			for i := range m.postings {
				if m.postings[i].Link == msg.link {
					m.postings[i].Summary = msg.summary
				}
			}
		}
		m.recalcContent()
		return m, nil

	case refreshTickMsg:
		cmd := m.refreshTick()
		if m.opts.AutoRefresh > 0 && (m.state == viewList || m.state == viewDetail) &&
			m.session.Due(time.Time(msg), m.opts.AutoRefresh) {
			return m, tea.Batch(cmd, m.searchCmd(m.withNoCache()))
		}
		return m, cmd

	case tea.KeyMsg:
		switch m.state {
		case viewInput:
			return m.updateInput(msg)
		case viewLoading:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case viewList:
			return m.updateList(msg)
		case viewDetail:
			return m.updateDetail(msg)
		}
	}

	return m, nil
}

func (m browseModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if len(m.postings) > 0 {
			m.state = viewList
			return m, nil
		}
		return m, tea.Quit
	case "enter":
		keywords := strings.TrimSpace(m.input.Value())
		if keywords == "" {
			m.inputErr = "enter some keywords first"
			return m, nil
		}
		req := m.opts.Defaults
		req.Keywords = keywords
		return m.startSearch(req)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/", "n":
		m.state = viewInput
		m.inputErr = ""
		m.input.Focus()
		return m, textinput.Blink
	case "r":
		return m.startSearch(m.withNoCache())
	case "up", "k":
		m.cursor = clamp(m.cursor-1, 0, max(len(m.postings)-1, 0))
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.cursor = clamp(m.cursor+1, 0, max(len(m.postings)-1, 0))
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "o":
		if p, ok := m.selected(); ok {
			openURL(p.Link)
		}
		return m, nil
	case "enter":
		if _, ok := m.selected(); ok {
			m.state = viewDetail
			m.summaryErr = ""
			m.recalcContent()
			m.detail.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m browseModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.state = viewList
		return m, nil
	case "o":
		if p, ok := m.selected(); ok {
			openURL(p.Link)
		}
		return m, nil
	case "r":
		return m.startSearch(m.withNoCache())
	case "s":
		p, ok := m.selected()
		if !ok || m.opts.Summarizer == nil || m.summarizing {
			return m, nil
		}
		m.summarizing = true
		m.summaryErr = ""
		m.recalcContent()
		return m, m.summaryCmd(p)
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m browseModel) withNoCache() pipeline.Request {
	req := m.req
	req.NoCache = true
	return req
}

func (m browseModel) startSearch(req pipeline.Request) (tea.Model, tea.Cmd) {
	m.state = viewLoading
	m.inputErr = ""
	m.input.Blur()
	return m, tea.Batch(m.spinner.Tick, m.searchCmd(req))
}

func (m browseModel) searchCmd(req pipeline.Request) tea.Cmd {
	searcher := m.opts.Searcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		postings, meta := searcher.GetJobs(ctx, req)
		return searchDoneMsg{req: req, postings: postings, meta: meta}
	}
}

func (m browseModel) summaryCmd(p model.Posting) tea.Cmd {
	summarizer := m.opts.Summarizer
	keywords := m.req.Keywords
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		summary, err := summarizer.Summarize(ctx, p, keywords)
		return summaryDoneMsg{link: p.Link, summary: summary, err: err}
	}
}

func (m browseModel) refreshTick() tea.Cmd {
	if m.opts.AutoRefresh <= 0 {
		return nil
	}
	return tea.Tick(m.opts.AutoRefresh/4, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (m browseModel) selected() (model.Posting, bool) {
	if m.cursor < 0 || m.cursor >= len(m.postings) {
		return model.Posting{}, false
	}
	return m.postings[m.cursor], true
}

func (m *browseModel) ensureCursorVisible() {
	top := m.cursor * itemHeight
	bottom := top + itemHeight - 1

	if top < m.list.YOffset {
		m.list.SetYOffset(top)
	} else if bottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height + 1)
	}
}

func (m *browseModel) recalcLayout() {
	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	w := max(m.width-4, 20)
	h := max(m.height-4, 5)

	if !m.ready {
		m.list = viewport.New(w, h)
		m.detail = viewport.New(w, h)
		m.ready = true
	} else {
		m.list.Width, m.list.Height = w, h
		m.detail.Width, m.detail.Height = w, h
	}
	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	if !m.ready {
		return
	}
	m.list.SetContent(renderPostings(m.postings, m.cursor))
	if p, ok := m.selected(); ok {
		m.detail.SetContent(renderDetail(p, detailState{
			summarizing: m.summarizing,
			summaryErr:  m.summaryErr,
			canSummary:  m.opts.Summarizer != nil,
		}, m.width))
	}
}

func (m browseModel) View() string {
	switch m.state {
	case viewInput:
		return m.viewInput()
	case viewLoading:
		return fmt.Sprintf("\n  %s Searching for %q...\n", m.spinner.View(), strings.TrimSpace(m.input.Value()))
	}

	if !m.ready {
		return "Initializing..."
	}
	if m.state == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewInput() string {
	s := promptTitleStyle.Render("jobsift: search job postings") + "\n"
	s += "  " + m.input.View() + "\n"
	if m.inputErr != "" {
		s += "\n  " + errorStyle.Render("⚠ "+m.inputErr) + "\n"
	}
	s += promptHintStyle.Render("enter search  esc back  ctrl+c quit")
	return s
}

func (m browseModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf("%q (%d)", m.req.Keywords, len(m.postings)))
	pane := borderStyle.Width(m.list.Width).Render(m.list.View())

	info := renderMetadata(m.meta)
	if m.inputErr != "" {
		info = "⚠ " + m.inputErr
	}
	status := fmt.Sprintf(" %s    ↑/↓ cursor  enter detail  o open  r refresh  / new search  q quit", info)
	return header + "\n" + pane + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting Details")
	if m.summarizing {
		title += "  (summarizing...)"
	}
	content := borderStyle.Width(m.width - 2).Render(m.detail.View())

	status := " o open link  r refresh  esc back  ↑/↓ scroll  q quit"
	if m.opts.Summarizer != nil {
		status = " o open link  s summary  r refresh  esc back  ↑/↓ scroll  q quit"
	}
	return title + "\n" + content + "\n" + statusBarStyle.Width(m.width).Render(status)
}

// Run launches the browse TUI on the alternate screen and blocks until the
// user quits.
func Run(opts Options) error {
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

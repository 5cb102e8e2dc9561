//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/purr/internal/playback"
	"github.com/metcalfc/purr/internal/reader"
	"github.com/metcalfc/purr/internal/session"
	"github.com/metcalfc/purr/internal/speech"
)

var (
	currentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5F00AF"))

	chunkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BBBBBB"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AFFF")).
			Bold(true).
			Underline(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(1, 2)
)

type keyMap struct {
	PlayPause   key.Binding
	Stop        key.Binding
	Prev        key.Binding
	Next        key.Binding
	Up          key.Binding
	Down        key.Binding
	Jump        key.Binding
	RateUp      key.Binding
	RateDown    key.Binding
	PitchUp     key.Binding
	PitchDown   key.Binding
	Voice       key.Binding
	Edit        key.Binding
	Open        key.Binding
	Resume      key.Binding
	PrevSection key.Binding
	NextSection key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Stop, k.Prev, k.Next, k.Jump, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Stop, k.Prev, k.Next, k.PrevSection, k.NextSection},
		{k.Up, k.Down, k.Jump, k.Resume},
		{k.RateUp, k.RateDown, k.PitchUp, k.PitchDown, k.Voice},
		{k.Edit, k.Open, k.Help, k.Quit},
	}
}

var keys = keyMap{
	PlayPause:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Stop:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Prev:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev chunk")),
	Next:        key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next chunk")),
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "select prev")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "select next")),
	Jump:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read from selection")),
	RateUp:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
	RateDown:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
	PitchUp:     key.NewBinding(key.WithKeys("."), key.WithHelp(".", "higher pitch")),
	PitchDown:   key.NewBinding(key.WithKeys(","), key.WithHelp(",", "lower pitch")),
	Voice:       key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "next voice")),
	Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit text")),
	Open:        key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open file")),
	Resume:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume bookmark")),
	PrevSection: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev section")),
	NextSection: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next section")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	saveKey   = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "read text"))
	cancelKey = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	submitKey = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open"))
)

type mode int

const (
	modeRead mode = iota
	modeEdit
	modeOpen
)

type (
	changedMsg  struct{}
	voicesMsg   []speech.Voice
	progressMsg struct{ done, total int }
	loadedMsg   struct {
		doc  *reader.Document
		path string
		err  error
	}
)

// events carries notifications from other goroutines into the program.
// Each channel holds only the latest value.
type events struct {
	changes  chan struct{}
	voices   chan []speech.Voice
	progress chan progressMsg
}

// offer replaces any pending value in ch with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func listen[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return wrap(<-ch)
	}
}

type model struct {
	app    *app
	ctx    context.Context
	events *events

	viewport viewport.Model
	editor   textarea.Model
	opener   textinput.Model
	spinner  spinner.Model
	help     help.Model

	mode   mode
	snap   playback.Snapshot
	doc    *reader.Document
	cursor int
	follow bool // cursor tracks the spoken chunk
	voices []speech.Voice

	loading  string // path being loaded
	progress string
	notice   string
	isError  bool
	lastErr  error

	width    int
	height   int
	quitting bool
}

func newModel(ctx context.Context, a *app, in input) model {
	ev := &events{
		changes:  make(chan struct{}, 1),
		voices:   make(chan []speech.Voice, 1),
		progress: make(chan progressMsg, 1),
	}
	a.session.Controller().OnChange(func(playback.Snapshot) {
		offer(ev.changes, struct{}{})
	})
	a.catalog.Subscribe(func(v []speech.Voice) {
		offer(ev.voices, v)
	})

	editor := textarea.New()
	editor.Placeholder = "Type or paste text, then press ctrl+s to read it."
	editor.ShowLineNumbers = false

	opener := textinput.New()
	opener.Prompt = "Open: "
	opener.Placeholder = "path/to/document.pdf"

	m := model{
		app:      a,
		ctx:      ctx,
		events:   ev,
		viewport: viewport.New(80, 20),
		editor:   editor,
		opener:   opener,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		follow:   true,
		width:    80,
		height:   24,
	}

	if in.text != "" {
		a.session.SetText(in.text, "stdin")
	}
	m.doc = a.session.Document()
	m.snap = a.session.Controller().Snapshot()
	if in.path != "" {
		m.loading = in.path
	}
	m.resize()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listen(m.events.changes, func(struct{}) tea.Msg { return changedMsg{} }),
		listen(m.events.voices, func(v []speech.Voice) tea.Msg { return voicesMsg(v) }),
		listen(m.events.progress, func(p progressMsg) tea.Msg { return p }),
	}
	if m.loading != "" {
		cmds = append(cmds, m.loadFile(m.loading), m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, listen(m.events.changes, func(struct{}) tea.Msg { return changedMsg{} })

	case voicesMsg:
		m.voices = msg
		m.app.checkVoice(msg)
		return m, listen(m.events.voices, func(v []speech.Voice) tea.Msg { return voicesMsg(v) })

	case progressMsg:
		if m.loading != "" {
			m.progress = fmt.Sprintf("page %d of %d", msg.done, msg.total)
		}
		return m, listen(m.events.progress, func(p progressMsg) tea.Msg { return p })

	case loadedMsg:
		m.loading = ""
		m.progress = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.refresh()
		notice := fmt.Sprintf("Loaded %s: %d chunks", filepath.Base(msg.path), len(msg.doc.Chunks))
		if b, ok := m.app.session.Bookmark(); ok {
			notice += fmt.Sprintf(". Press r to resume at chunk %d", b.Chunk+1)
		}
		m.setNotice(notice)
		return m, nil

	case spinner.TickMsg:
		if m.loading == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeOpen:
			return m.updateOpen(msg)
		}
		return m.updateRead(msg)
	}

	return m, nil
}

func (m model) updateRead(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.app.session
	ctrl := sess.Controller()

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.PlayPause):
		if ctrl.Snapshot().Status == playback.Playing {
			ctrl.Pause()
		} else {
			m.follow = true
			ctrl.Play()
		}

	case key.Matches(msg, keys.Stop):
		m.follow = true
		ctrl.Stop()

	case key.Matches(msg, keys.Prev):
		m.follow = true
		ctrl.Skip(playback.Previous)

	case key.Matches(msg, keys.Next):
		m.follow = true
		ctrl.Skip(playback.Next)

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, keys.Jump):
		if err := ctrl.JumpTo(m.cursor); err != nil {
			m.setError(err)
			break
		}
		m.follow = true

	case key.Matches(msg, keys.RateUp):
		m.setNotice(fmt.Sprintf("Rate %.1f", sess.SetRate(step(m.snap.Rate, 0.1))))

	case key.Matches(msg, keys.RateDown):
		m.setNotice(fmt.Sprintf("Rate %.1f", sess.SetRate(step(m.snap.Rate, -0.1))))

	case key.Matches(msg, keys.PitchUp):
		m.setNotice(fmt.Sprintf("Pitch %.1f", sess.SetPitch(step(m.snap.Pitch, 0.1))))

	case key.Matches(msg, keys.PitchDown):
		m.setNotice(fmt.Sprintf("Pitch %.1f", sess.SetPitch(step(m.snap.Pitch, -0.1))))

	case key.Matches(msg, keys.Voice):
		v, ok := m.app.catalog.Next(m.snap.Voice)
		if !ok {
			m.setNotice("No voices available yet")
			break
		}
		sess.SetVoice(v.ID)
		m.setNotice("Voice: " + v.String())

	case key.Matches(msg, keys.Edit):
		m.mode = modeEdit
		m.editor.SetValue(m.doc.Text)
		cmd := m.editor.Focus()
		return m, cmd

	case key.Matches(msg, keys.Open):
		m.mode = modeOpen
		m.opener.SetValue("")
		cmd := m.opener.Focus()
		return m, cmd

	case key.Matches(msg, keys.Resume):
		chunk, err := sess.ResumeBookmark()
		if errors.Is(err, session.ErrNoBookmark) {
			m.setNotice("No bookmark for this document")
			break
		}
		if err != nil {
			m.setError(err)
			break
		}
		m.follow = true
		m.setNotice(fmt.Sprintf("Resumed at chunk %d", chunk+1))

	case key.Matches(msg, keys.PrevSection):
		m.follow = true
		if !sess.SkipSection(playback.Previous) {
			m.setNotice("No previous section")
		}

	case key.Matches(msg, keys.NextSection):
		m.follow = true
		if !sess.SkipSection(playback.Next) {
			m.setNotice("No next section")
		}

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil

	default:
		// pgup and pgdown scroll the viewport.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.refresh()
	return m, nil
}

func (m model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, cancelKey):
		m.mode = modeRead
		m.editor.Blur()
		return m, nil

	case key.Matches(msg, saveKey):
		m.mode = modeRead
		m.editor.Blur()
		doc := m.app.session.SetText(m.editor.Value(), "editor")
		m.refresh()
		m.setNotice(fmt.Sprintf("Text updated: %d chunks", len(doc.Chunks)))
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m model) updateOpen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, cancelKey):
		m.mode = modeRead
		m.opener.Blur()
		return m, nil

	case key.Matches(msg, submitKey):
		m.mode = modeRead
		m.opener.Blur()
		path := expandHome(strings.TrimSpace(m.opener.Value()))
		if path == "" {
			return m, nil
		}
		if m.loading != "" {
			m.setNotice("Still loading " + filepath.Base(m.loading))
			return m, nil
		}
		m.loading = path
		m.progress = ""
		m.notice = ""
		return m, tea.Batch(m.loadFile(path), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.opener, cmd = m.opener.Update(msg)
	return m, cmd
}

func (m model) loadFile(path string) tea.Cmd {
	sess := m.app.session
	ctx := m.ctx
	progress := m.events.progress
	return func() tea.Msg {
		doc, err := sess.LoadFile(ctx, path, func(done, total int) {
			offer(progress, progressMsg{done: done, total: total})
		})
		return loadedMsg{doc: doc, path: path, err: err}
	}
}

// refresh pulls the latest document and controller state and re-renders
// the reading view.
func (m *model) refresh() {
	doc := m.app.session.Document()
	if doc != m.doc {
		m.doc = doc
		m.cursor = 0
		m.follow = true
		m.viewport.SetYOffset(0)
	}
	m.snap = m.app.session.Controller().Snapshot()
	if m.snap.Err != nil && m.snap.Err != m.lastErr {
		m.setError(m.snap.Err)
	}
	m.lastErr = m.snap.Err
	if m.follow {
		m.cursor = m.snap.Position
	}
	m.render()
}

func (m *model) moveCursor(delta int) {
	if m.doc.Empty() {
		return
	}
	m.follow = false
	m.cursor = max(0, min(m.cursor+delta, len(m.doc.Chunks)-1))
	m.render()
}

func (m *model) setNotice(s string) {
	m.notice = s
	m.isError = false
}

func (m *model) setError(err error) {
	m.notice = "Error: " + err.Error()
	m.isError = true
}

func (m *model) resize() {
	m.help.Width = m.width
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-3-lipgloss.Height(m.help.View(keys)))
	m.editor.SetWidth(m.width)
	m.editor.SetHeight(m.viewport.Height)
	m.opener.Width = max(10, m.width-len(m.opener.Prompt)-2)
	m.render()
}

// render lays out the chunks with the spoken chunk highlighted and the
// selected chunk marked, and scrolls the selection into view.
func (m *model) render() {
	if m.doc.Empty() {
		m.viewport.SetContent("")
		return
	}

	width := max(10, m.width-3)
	wrap := lipgloss.NewStyle().Width(width)
	sectionAt := make(map[int]reader.Section, len(m.doc.Sections))
	for _, s := range m.doc.Sections {
		if _, ok := sectionAt[s.Chunk]; !ok {
			sectionAt[s.Chunk] = s
		}
	}

	var sb strings.Builder
	line, cursorTop, cursorBottom := 0, 0, 0
	for i, chunk := range m.doc.Chunks {
		if s, ok := sectionAt[i]; ok {
			if i > 0 {
				sb.WriteString("\n")
				line++
			}
			sb.WriteString(sectionStyle.Render(strings.Repeat("  ", s.Level) + s.Title))
			sb.WriteString("\n")
			line++
		}

		style := chunkStyle
		if i == m.snap.Position && m.snap.Status != playback.Stopped {
			style = currentStyle
		}
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("› ")
			cursorTop = line
		}

		wrapped := strings.Split(wrap.Render(strings.Join(strings.Fields(chunk), " ")), "\n")
		for j, l := range wrapped {
			if j == 0 {
				sb.WriteString(marker)
			} else {
				sb.WriteString("  ")
			}
			sb.WriteString(style.Render(strings.TrimRight(l, " ")))
			sb.WriteString("\n")
			line++
		}
		if i == m.cursor {
			cursorBottom = line - 1
		}
	}

	m.viewport.SetContent(sb.String())
	switch {
	case cursorTop < m.viewport.YOffset:
		m.viewport.SetYOffset(cursorTop)
	case cursorBottom >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(cursorBottom - m.viewport.Height + 1)
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")

	switch {
	case m.mode == modeEdit:
		sb.WriteString(m.editor.View())
	case m.doc.Empty():
		body := placeholderStyle.Render("No text loaded. Press e to type text or o to open a file.")
		sb.WriteString(lipgloss.NewStyle().Height(m.viewport.Height).Render(body))
	default:
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")

	switch {
	case m.mode == modeOpen:
		sb.WriteString(m.opener.View())
	case m.loading != "":
		status := m.spinner.View() + " Loading " + filepath.Base(m.loading)
		if m.progress != "" {
			status += " (" + m.progress + ")"
		}
		sb.WriteString(noticeStyle.Render(status))
	case m.isError:
		sb.WriteString(errorStyle.Render(m.notice))
	default:
		sb.WriteString(noticeStyle.Render(m.notice))
	}
	sb.WriteString("\n")

	switch m.mode {
	case modeEdit:
		sb.WriteString(m.help.ShortHelpView([]key.Binding{saveKey, cancelKey}))
	case modeOpen:
		sb.WriteString(m.help.ShortHelpView([]key.Binding{submitKey, cancelKey}))
	default:
		sb.WriteString(m.help.View(keys))
	}
	return sb.String()
}

func (m model) statusLine() string {
	var status string
	switch m.snap.Status {
	case playback.Playing:
		status = playingStyle.Render("[PLAYING]")
	case playback.Paused:
		status = pausedStyle.Render("[PAUSED]")
	default:
		status = "[STOPPED]"
	}

	line := progressText(m.doc, m.snap) + " " + status + " | " + settingsText(m.snap)
	if title := m.doc.SectionTitle(m.snap.Position); title != "" {
		line += " | " + title
	}
	return statusStyle.Render(line)
}

// step adds delta and rounds to one decimal so repeated steps stay on
// the 0.1 grid.
func step(v, delta float64) float64 {
	return math.Round((v+delta)*10) / 10
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func runReader(ctx context.Context, a *app, in input) error {
	a.start(ctx)

	p := tea.NewProgram(newModel(ctx, a, in), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// Package palette provides an interactive terminal picker for browsing
// and running commands: fuzzy search, a JSON argument prompt driven by
// the command schema, a confirm step for destructive commands, and a
// scrollable result view.
package palette

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/direct"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/middleware"
	"github.com/zjrosen/dispatch/internal/pubsub"
	"github.com/zjrosen/dispatch/internal/registry"
)

// maxActivity bounds the recent-executions feed under the browse list.
const maxActivity = 3

// phase tracks which screen the palette is on.
type phase int

const (
	phaseBrowse phase = iota
	phaseArgs
	phaseConfirm
	phaseRunning
	phaseResult
)

// Item is one selectable command.
type Item struct {
	Name          string
	Description   string
	Category      string
	Mutation      bool
	Destructive   bool
	ConfirmPrompt string
	ArgNames      []string
}

// HasArgs reports whether the command takes any input.
func (it Item) HasArgs() bool {
	return len(it.ArgNames) > 0
}

// resultMsg carries a finished execution back into the update loop.
type resultMsg struct {
	result command.Result
}

// Model is the palette's bubbletea model.
type Model struct {
	client   *direct.Client
	items    []Item
	filtered []Item
	cursor   int

	search   textinput.Model
	argInput textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	phase    phase
	selected Item
	args     json.RawMessage
	argErr   string
	result   *command.Result

	feed     *pubsub.ContinuousListener[middleware.ExecutionEvent]
	activity []middleware.ExecutionEvent
	logs     *log.LogListener
	lastLog  string

	width  int
	height int
	ready  bool
}

// New builds a palette over the commands exposed to the palette
// surface. events carries one entry per execution anywhere in the
// process; nil disables the activity feed.
func New(reg *registry.Registry, client *direct.Client, events *pubsub.Broker[middleware.ExecutionEvent]) Model {
	items := buildItems(reg)

	var feed *pubsub.ContinuousListener[middleware.ExecutionEvent]
	if events != nil {
		feed = pubsub.NewContinuousListener(context.Background(), events)
	}

	// Tail the process log so the running screen can show what a slow
	// command is doing. Nil when logging is disabled.
	logs := log.NewListener(context.Background())

	search := textinput.New()
	search.Placeholder = "Search commands..."
	search.Prompt = ""
	search.Focus()

	argInput := textinput.New()
	argInput.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		client:   client,
		items:    items,
		filtered: items,
		search:   search,
		argInput: argInput,
		spinner:  sp,
		feed:     feed,
		logs:     logs,
	}
}

func buildItems(reg *registry.Registry) []Item {
	defs := reg.List(registry.Filter{Surface: command.SurfacePalette})
	items := make([]Item, 0, len(defs))
	for _, def := range defs {
		items = append(items, Item{
			Name:          def.Name(),
			Description:   def.Description(),
			Category:      def.Category(),
			Mutation:      def.Mutation(),
			Destructive:   def.Destructive(),
			ConfirmPrompt: def.ConfirmPrompt(),
			ArgNames:      argNames(def.Schema()),
		})
	}
	return items
}

// argNames extracts the top-level input field names, sorted.
func argNames(schema command.InputSchema) []string {
	if schema == nil {
		return nil
	}
	js := schema.JSONSchema()
	props, ok := js["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Init starts the cursor blink, spinner tick and the activity feed.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.feed != nil {
		cmds = append(cmds, m.feed.Listen())
	}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the palette.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(msg.Width-2, max(msg.Height-6, 3))
		m.ready = true
		if m.result != nil {
			m.viewport.SetContent(m.resultContent())
		}
		return m, nil

	case spinner.TickMsg:
		if m.phase != phaseRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pubsub.Event[middleware.ExecutionEvent]:
		m.activity = append(m.activity, msg.Payload)
		if len(m.activity) > maxActivity {
			m.activity = m.activity[len(m.activity)-maxActivity:]
		}
		if m.feed != nil {
			return m, m.feed.Listen()
		}
		return m, nil

	case log.LogEvent:
		m.lastLog = strings.TrimSpace(msg.Payload)
		if m.logs != nil {
			return m, m.logs.Listen()
		}
		return m, nil

	case resultMsg:
		m.result = &msg.result
		m.phase = phaseResult
		if m.ready {
			m.viewport.SetContent(m.resultContent())
			m.viewport.GotoTop()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.phase {
	case phaseBrowse:
		return m.updateBrowse(msg)
	case phaseArgs:
		return m.updateArgs(msg)
	case phaseConfirm:
		return m.updateConfirm(msg)
	case phaseRunning:
		// Execution cannot be interrupted from the palette.
		return m, nil
	case phaseResult:
		return m.updateResult(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyDown, tea.KeyCtrlN:
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil

	case tea.KeyUp, tea.KeyCtrlP:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case tea.KeyCtrlU:
		m.search.SetValue("")
		return m.applyFilter(), nil

	case tea.KeyEnter:
		return m.selectCurrent()

	default:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m.applyFilter(), cmd
	}
}

func (m Model) selectCurrent() (tea.Model, tea.Cmd) {
	if len(m.filtered) == 0 {
		return m, nil
	}
	m.selected = m.filtered[m.cursor]
	m.args = nil
	m.argErr = ""

	if m.selected.HasArgs() {
		m.phase = phaseArgs
		m.argInput.SetValue("")
		m.argInput.Placeholder = argPlaceholder(m.selected)
		m.argInput.Focus()
		m.search.Blur()
		return m, textinput.Blink
	}
	return m.maybeConfirm()
}

// argPlaceholder sketches a JSON object from the field names.
func argPlaceholder(item Item) string {
	parts := make([]string, len(item.ArgNames))
	for i, name := range item.ArgNames {
		parts[i] = `"` + name + `": ...`
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m Model) updateArgs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.backToBrowse(), nil

	case tea.KeyEnter:
		raw := strings.TrimSpace(m.argInput.Value())
		if raw == "" {
			raw = "{}"
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			m.argErr = "Not a JSON object: " + err.Error()
			return m, nil
		}
		m.args = json.RawMessage(raw)
		m.argErr = ""
		return m.maybeConfirm()

	default:
		var cmd tea.Cmd
		m.argInput, cmd = m.argInput.Update(msg)
		return m, cmd
	}
}

// maybeConfirm routes destructive commands through the confirm step.
func (m Model) maybeConfirm() (tea.Model, tea.Cmd) {
	if m.selected.Destructive {
		m.phase = phaseConfirm
		return m, nil
	}
	return m.run()
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter, msg.String() == "y", msg.String() == "Y":
		return m.run()
	case msg.Type == tea.KeyEsc, msg.String() == "n", msg.String() == "N":
		return m.backToBrowse(), nil
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc, msg.String() == "q":
		return m.backToBrowse(), nil
	case msg.Type == tea.KeyEnter:
		return m.backToBrowse(), nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) backToBrowse() Model {
	m.phase = phaseBrowse
	m.result = nil
	m.argErr = ""
	m.argInput.Blur()
	m.search.Focus()
	return m
}

func (m Model) run() (tea.Model, tea.Cmd) {
	m.phase = phaseRunning
	name := m.selected.Name
	args := m.args
	client := m.client
	log.Debug(log.CatPalette, "running command", "command", name)

	exec := func() tea.Msg {
		return resultMsg{result: client.CallRaw(context.Background(), name, args)}
	}
	return m, tea.Batch(m.spinner.Tick, exec)
}

// applyFilter narrows the item list by fuzzy-matching the search text
// against command names, falling back to description substrings.
func (m Model) applyFilter() Model {
	query := strings.TrimSpace(m.search.Value())
	if query == "" {
		m.filtered = m.items
	} else {
		matches := fuzzy.FindFrom(query, itemSource(m.items))
		filtered := make([]Item, 0, len(matches))
		seen := make(map[string]bool, len(matches))
		for _, match := range matches {
			filtered = append(filtered, m.items[match.Index])
			seen[m.items[match.Index].Name] = true
		}
		lower := strings.ToLower(query)
		for _, item := range m.items {
			if !seen[item.Name] && strings.Contains(strings.ToLower(item.Description), lower) {
				filtered = append(filtered, item)
			}
		}
		m.filtered = filtered
	}

	if m.cursor >= len(m.filtered) {
		m.cursor = 0
	}
	return m
}

// itemSource adapts []Item to fuzzy.Source.
type itemSource []Item

func (s itemSource) String(i int) string { return s[i].Name }
func (s itemSource) Len() int            { return len(s) }

// Filtered returns the items matching the current search.
func (m Model) Filtered() []Item {
	return m.filtered
}

// Selected returns the item under the cursor.
func (m Model) Selected() (Item, bool) {
	if m.cursor >= 0 && m.cursor < len(m.filtered) {
		return m.filtered[m.cursor], true
	}
	return Item{}, false
}

// Result returns the last execution result shown, if any.
func (m Model) Result() *command.Result {
	return m.result
}

// Run starts the palette program on the current terminal.
func Run(reg *registry.Registry, client *direct.Client, events *pubsub.Broker[middleware.ExecutionEvent]) error {
	program := tea.NewProgram(New(reg, client, events), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

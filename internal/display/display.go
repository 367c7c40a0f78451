// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type keeps a session status bar and a command prompt at the
// bottom of the terminal. Typed lines are treated exactly like spoken
// ones. Everything else is printed above the rendered area via
// Program.Println / Printf, so concurrent writes never garble the
// display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/foodlens/internal/render"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#bbf7d0"))

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the startup banner colour.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd")).
			Bold(true)

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const prompt = "foodlens> "

// FrameSource is polled for the frame shown in the status bar.
// *render.Renderer satisfies it.
type FrameSource interface {
	Latest() render.Frame
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call [UI.Println], [UI.Printf], and read from [UI.InputChan] at any
// time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	frames  FrameSource
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool

	lastRecipe atomic.Value // string: title of the recipe last printed
}

// NewUI creates the display. Call Run() to start.
func NewUI(frames FrameSource) *UI {
	return &UI{
		frames:  frames,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Falls back to fmt.Println
// before the program starts. Thread-safe.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format, a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintVoice prints an utterance heard by the microphone.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("[voz] ") + primaryStyle.Render(text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("foodlens") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// PrintRecipe prints the recipe in f's menu, once per recipe and
// preparation state.
func (u *UI) PrintRecipe(f render.Frame) {
	r := f.Menu.Recipe
	if r == nil {
		return
	}
	key := fmt.Sprintf("%d|%s|%t", r.Index, r.Title, r.Preparation != "")
	if prev, _ := u.lastRecipe.Load().(string); prev == key {
		return
	}
	u.lastRecipe.Store(key)
	for _, line := range recipeLines(*r) {
		u.Println(line)
	}
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// A plain-text prompt keeps the textinput width math correct; styled
	// prompts add ANSI bytes the offset calculation does not skip.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 300
	ti.Width = 60 // updated on first WindowSizeMsg

	m := model{
		frames:  u.frames,
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		echoFn:  u.PrintUserInput,
		onFrame: u.PrintRecipe,
	}

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	frames  FrameSource
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)       // prints user input into scrollback
	onFrame func(render.Frame) // called with every newer frame
	frame   render.Frame
	seen    bool
	width   int
}

type tickMsg time.Time

const refreshInterval = 250 * time.Millisecond

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Printing from inside Update would deadlock on the
				// program's message queue.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if m.frames != nil {
			f := m.frames.Latest()
			if !m.seen || f.Version > m.frame.Version {
				m.frame, m.seen = f, true
				if m.onFrame != nil {
					onFrame := m.onFrame
					cmds = append(cmds, func() tea.Msg {
						onFrame(f)
						return nil
					})
				}
			}
		}
		cmds = append(cmds, tea.SetWindowTitle(titleStr(m.frame)))
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(renderBar(m.frame, m.width))
	b.WriteByte('\n')
	if t := m.frame.Transcript; t != "" {
		b.WriteString(secondaryStyle.Render("  « " + t + " »"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

// ── Status bar ───────────────────────────────────────────────────

func renderBar(f render.Frame, width int) string {
	var parts []string
	for _, s := range statusParts(f) {
		switch {
		case s.busy:
			parts = append(parts, labelStyle.Render(s.label+": ")+busyStyle.Render(s.value))
		case s.on:
			parts = append(parts, labelStyle.Render(s.label+": ")+onStyle.Render(s.value))
		default:
			parts = append(parts, labelStyle.Render(s.label+": ")+offStyle.Render(s.value))
		}
	}
	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

type status struct {
	label string
	value string
	on    bool
	busy  bool
}

// statusParts summarises a frame for the status bar.
func statusParts(f render.Frame) []status {
	m := f.Menu
	det := status{label: "Detección", value: "apagada"}
	if m.Detecting {
		det = status{label: "Detección", value: "activa", on: true}
	}

	items := status{label: "Alimentos", value: fmt.Sprint(len(m.Names)), on: len(m.Names) > 0}
	if m.NewInfo {
		items.value += " (nuevo)"
		items.busy = true
	}

	out := []status{det, items}

	switch m.Status {
	case render.StatusLoading:
		out = append(out, status{label: "Info", value: m.Status, busy: true})
	case render.StatusLoaded:
		out = append(out, status{label: "Info", value: m.Status, on: true})
	}

	if m.Recipe != nil {
		out = append(out, status{
			label: "Receta",
			value: fmt.Sprintf("%d/%d", m.Recipe.Index+1, m.Recipe.Count),
			on:    true,
		})
	}
	if m.User != "" {
		out = append(out, status{label: "Usuario", value: m.User, on: true})
	}
	if m.Register != nil {
		out = append(out, status{label: "Registro", value: m.Register.Focus, busy: true})
	}
	return out
}

func titleStr(f render.Frame) string {
	if f.Menu.Detecting {
		return fmt.Sprintf("FoodLens · %d alimentos", len(f.Menu.Names))
	}
	return "FoodLens"
}

func recipeLines(r render.RecipeView) []string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("  Receta %d/%d: %s", r.Index+1, r.Count, r.Title)),
		primaryStyle.Render("  Ingredientes: " + r.Ingredients),
	}
	if r.Preparation != "" {
		lines = append(lines, primaryStyle.Render("  Preparación: "+r.Preparation))
	}
	return lines
}

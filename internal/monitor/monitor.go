// Package monitor is a terminal view of a running plugin.
//
// Each tick the monitor plays the audio side: it peeks at the pending changes
// with a non-clearing drain, then runs Process on a scratch block, which
// drains them for real. Keys act as the control side and publish new values
// through SetParameter.
//
// A value published between the peek and Process is still applied, but only
// listed if it changes again later.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/internal/preset"
	"github.com/kolkov/paramxfer/internal/watch"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultRefresh   = 50 * time.Millisecond
	DefaultRows      = 16
	DefaultBlockSize = 512
)

const barWidth = 24

// Options configures a Model.
type Options struct {
	Refresh   time.Duration
	Rows      int
	BlockSize int
	// Seed makes the "r" key reproducible. Zero picks a random seed.
	Seed uint64
}

// tickMsg drives one processing block.
type tickMsg time.Time

// ReloadMsg reports a preset reload to the view.
type ReloadMsg watch.Result

// change is one drained (index, value) pair as seen by the monitor.
type change struct {
	index int
	value float32
	block uint64
}

// Model is the bubbletea model for the monitor.
type Model struct {
	plugin  *plugin.Plugin
	block   [][]float32
	refresh time.Duration
	rows    int
	rng     *rand.Rand

	// input takes "index=value" assignments while editing is true.
	input   textinput.Model
	editing bool

	recent []change
	peak   float32
	notice string
	err    error
}

// New creates a monitor for p.
func New(p *plugin.Plugin, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	block := make([][]float32, p.Info().Outputs)
	for i := range block {
		block[i] = make([]float32, opts.BlockSize)
	}

	ti := textinput.New()
	ti.Placeholder = "index=value"
	ti.Prompt = "set> "
	ti.CharLimit = 32
	ti.Width = 24

	return Model{
		plugin:  p,
		input:   ti,
		block:   block,
		refresh: opts.Refresh,
		rows:    opts.Rows,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// tick returns a command that sends a tickMsg after the refresh interval.
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tickMsg:
		m = m.step()
		return m, m.tick()

	case ReloadMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.notice = ""
		} else {
			m.err = nil
			m.notice = fmt.Sprintf("preset reloaded: %d parameters from %s", msg.Applied, msg.Path)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "s":
		m.editing = true
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "r":
		index := m.rng.IntN(m.plugin.ParameterCount())
		value := m.rng.Float32()
		m = m.publish(index, value)

	case "c":
		for i := 0; i < m.plugin.ParameterCount(); i++ {
			_ = m.plugin.SetParameter(i, 0)
		}
		m.err = nil
		m.notice = "all parameters set to 0"
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		index, value, err := preset.ParseAssignment(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.publish(index, value), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// publish sends one value through the host-side setter.
func (m Model) publish(index int, value float32) Model {
	if err := m.plugin.SetParameter(index, value); err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m.notice = fmt.Sprintf("set parameter %d = %.3f", index, value)
	return m
}

// step records the pending changes and processes one block.
func (m Model) step() Model {
	block := m.plugin.Stats().Blocks
	var fresh []change
	for index, value := range m.plugin.Transfer().All(false) {
		fresh = append(fresh, change{index: index, value: value, block: block})
	}
	m.plugin.Process(m.block)

	m.recent = mergeRecent(m.recent, fresh, m.rows)
	m.peak = peak(m.block)
	return m
}

// mergeRecent puts fresh changes first, drops older entries for the same
// index and keeps at most limit entries.
func mergeRecent(recent, fresh []change, limit int) []change {
	out := make([]change, 0, limit)
	seen := make(map[int]bool, len(fresh))
	for _, c := range fresh {
		if len(out) == limit {
			return out
		}
		out = append(out, c)
		seen[c.index] = true
	}
	for _, c := range recent {
		if len(out) == limit {
			break
		}
		if !seen[c.index] {
			out = append(out, c)
			seen[c.index] = true
		}
	}
	return out
}

func peak(block [][]float32) float32 {
	var p float32
	for _, ch := range block {
		for _, s := range ch {
			p = max(p, float32(math.Abs(float64(s))))
		}
	}
	return p
}

// View renders the monitor.
func (m Model) View() string {
	var b strings.Builder

	info := m.plugin.Info()
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  (%d parameters, %.0f Hz)",
		info.Name, info.Parameters, m.plugin.SampleRate())))
	b.WriteString("\n")

	stats := m.plugin.Stats()
	b.WriteString(mutedStyle.Render(fmt.Sprintf("blocks %d  frames %d  changes %d  host sets %d  rejected %d  peak %.3f",
		stats.Blocks, stats.Frames, stats.Changes, stats.HostSets, stats.Rejected, m.peak)))
	b.WriteString("\n\n")

	b.WriteString(panelStyle.Render(m.renderTable()))
	b.WriteString("\n")

	switch {
	case m.editing:
		b.WriteString(m.input.View())
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + firstLine(m.err.Error())))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("s set  r randomise one  c clear all  q quit"))
	return b.String()
}

func (m Model) renderTable() string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%6s  %8s  %8s  %s", "index", "target", "smoothed", "level"))}
	if len(m.recent) == 0 {
		lines = append(lines, mutedStyle.Render("no changes yet"))
	}
	for _, c := range m.recent {
		smoothed := m.plugin.Smoothed(c.index)
		lines = append(lines, fmt.Sprintf("%6d  %8.4f  %8.4f  %s",
			c.index, c.value, smoothed, barStyle.Render(bar(smoothed, barWidth))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// bar draws |v| clamped to [0, 1] as a horizontal bar of width cells.
func bar(v float32, width int) string {
	a := math.Abs(float64(v))
	if math.IsNaN(a) {
		a = 0
	}
	filled := int(math.Round(min(a, 1) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("·", width-filled)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Run starts the monitor and blocks until the user quits or ctx is done.
// Preset reloads received on reloads are shown in the status line.
func Run(ctx context.Context, m Model, reloads <-chan watch.Result) error {
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if reloads != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case r, ok := <-reloads:
					if !ok {
						return
					}
					program.Send(ReloadMsg(r))
				}
			}
		}()
	}

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

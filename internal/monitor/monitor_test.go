package monitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/internal/watch"
)

func newModel(t *testing.T) (Model, *plugin.Plugin) {
	t.Helper()
	p, err := plugin.New(plugin.Config{ParameterCount: 8})
	if err != nil {
		t.Fatal(err)
	}
	return New(p, Options{BlockSize: 64, Rows: 4, Seed: 1}), p
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

func TestNew_Defaults(t *testing.T) {
	p, err := plugin.New(plugin.Config{})
	if err != nil {
		t.Fatal(err)
	}
	m := New(p, Options{})

	if m.refresh != DefaultRefresh {
		t.Errorf("refresh = %v, want %v", m.refresh, DefaultRefresh)
	}
	if m.rows != DefaultRows {
		t.Errorf("rows = %d, want %d", m.rows, DefaultRows)
	}
	if len(m.block) != 2 || len(m.block[0]) != DefaultBlockSize {
		t.Errorf("block = %d x %d, want 2 x %d", len(m.block), len(m.block[0]), DefaultBlockSize)
	}
}

// TestTick_DrainsAndRecords verifies a tick processes a block and lists the change.
func TestTick_DrainsAndRecords(t *testing.T) {
	m, p := newModel(t)
	_ = p.SetParameter(3, 0.8)

	m, cmd := update(t, m, tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}

	if p.Transfer().Pending() != 0 {
		t.Errorf("Pending() = %d after tick, want 0", p.Transfer().Pending())
	}
	if len(m.recent) != 1 || m.recent[0].index != 3 || m.recent[0].value != 0.8 {
		t.Errorf("recent = %+v, want [{3 0.8}]", m.recent)
	}
	if p.Stats().Blocks != 1 {
		t.Errorf("Blocks = %d, want 1", p.Stats().Blocks)
	}
	if !strings.Contains(m.View(), "0.8000") {
		t.Errorf("View() does not show the new target:\n%s", m.View())
	}
}

func TestKey_Randomise(t *testing.T) {
	m, p := newModel(t)

	m, _ = update(t, m, runeKey("r"))
	if p.Transfer().Pending() != 1 {
		t.Fatalf("Pending() = %d after r, want 1", p.Transfer().Pending())
	}
	if !strings.HasPrefix(m.notice, "set parameter") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestKey_ClearAll(t *testing.T) {
	m, p := newModel(t)
	_ = p.SetParameter(1, 0.5)
	m, _ = update(t, m, tickMsg(time.Now()))

	m, _ = update(t, m, runeKey("c"))
	if p.Transfer().Pending() != p.ParameterCount() {
		t.Errorf("Pending() = %d, want %d", p.Transfer().Pending(), p.ParameterCount())
	}
	if v, _ := p.GetParameter(1); v != 0 {
		t.Errorf("GetParameter(1) = %v, want 0", v)
	}

	m, _ = update(t, m, tickMsg(time.Now()))
	if len(m.recent) != m.rows {
		t.Errorf("len(recent) = %d, want %d", len(m.recent), m.rows)
	}
}

func TestKey_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{runeKey("q"), {Type: tea.KeyCtrlC}} {
		m, _ := newModel(t)
		_, cmd := update(t, m, key)
		if cmd == nil {
			t.Fatalf("%q returned no command", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q did not quit", key.String())
		}
	}
}

func TestReloadMsg(t *testing.T) {
	m, _ := newModel(t)

	m, _ = update(t, m, ReloadMsg(watch.Result{Path: "/tmp/p.yaml", Applied: 3}))
	if !strings.Contains(m.View(), "preset reloaded: 3 parameters") {
		t.Errorf("View() missing reload notice:\n%s", m.View())
	}

	m, _ = update(t, m, ReloadMsg(watch.Result{Path: "/tmp/p.yaml", Err: errors.New("bad version\n\nSuggestion: x")}))
	view := m.View()
	if !strings.Contains(view, "error: bad version") {
		t.Errorf("View() missing reload error:\n%s", view)
	}
	if strings.Contains(view, "Suggestion") {
		t.Error("View() should show only the first error line")
	}
}

func TestMergeRecent(t *testing.T) {
	recent := []change{{index: 1}, {index: 2}, {index: 3}}
	fresh := []change{{index: 2, value: 9}, {index: 5}}

	got := mergeRecent(recent, fresh, 4)

	want := []int{2, 5, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("mergeRecent = %+v, want indices %v", got, want)
	}
	for i, c := range got {
		if c.index != want[i] {
			t.Errorf("got[%d].index = %d, want %d", i, c.index, want[i])
		}
	}
	if got[0].value != 9 {
		t.Errorf("fresh value lost: %+v", got[0])
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		v    float32
		want int
	}{
		{v: 0, want: 0},
		{v: 0.5, want: 5},
		{v: -1, want: 10},
		{v: 4, want: 10},
	}
	for _, tt := range tests {
		got := strings.Count(bar(tt.v, 10), "█")
		if got != tt.want {
			t.Errorf("bar(%v) filled %d cells, want %d", tt.v, got, tt.want)
		}
	}
}

func typeString(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = update(t, m, runeKey(string(r)))
	}
	return m
}

// TestKey_SetAssignment types an assignment into the input and submits it.
func TestKey_SetAssignment(t *testing.T) {
	m, p := newModel(t)

	m, _ = update(t, m, runeKey("s"))
	if !m.editing {
		t.Fatal("s did not enter edit mode")
	}
	m = typeString(t, m, "5=0.25")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.editing {
		t.Error("still editing after enter")
	}
	if v, _ := p.GetParameter(5); v != 0.25 {
		t.Errorf("GetParameter(5) = %v, want 0.25", v)
	}
}

func TestKey_SetRejectsBadIndex(t *testing.T) {
	m, p := newModel(t)

	m, _ = update(t, m, runeKey("s"))
	m = typeString(t, m, "8=1")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !errors.Is(m.err, plugin.ErrIndexOutOfRange) {
		t.Errorf("err = %v, want ErrIndexOutOfRange", m.err)
	}
	if p.Stats().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", p.Stats().Rejected)
	}
	if !strings.Contains(m.View(), "error: set parameter 8") {
		t.Errorf("View() missing error:\n%s", m.View())
	}
}

func TestKey_SetEscCancels(t *testing.T) {
	m, p := newModel(t)

	m, _ = update(t, m, runeKey("s"))
	// q is text while editing, not quit.
	m = typeString(t, m, "q")
	if !m.editing || m.input.Value() != "q" {
		t.Fatalf("editing = %v, input = %q after typing q", m.editing, m.input.Value())
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.editing {
		t.Error("still editing after esc")
	}
	if p.Transfer().Pending() != 0 {
		t.Errorf("Pending() = %d after cancel, want 0", p.Transfer().Pending())
	}
}

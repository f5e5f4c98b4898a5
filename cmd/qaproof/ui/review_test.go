package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"qaproof/internal/editor"
	"qaproof/internal/kv"
	"qaproof/internal/session"
)

func key(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{}
}

func newReview(t *testing.T, n int) (ReviewModel, *session.Guest) {
	t.Helper()
	g := session.NewGuest(kv.NewMemoryStore())
	e := editor.NewGuestEditor(g, 20)
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `{"prompt":"q%d","completion":"a%d"}`+"\n", i, i)
	}
	if err := e.Open(context.Background(), "input.jsonl", strings.NewReader(b.String())); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return NewReviewModel(e, g), g
}

func TestReviewNavigation(t *testing.T) {
	m, _ := newReview(t, 3)

	next, _ := m.Update(key("j"))
	m = next.(ReviewModel)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	next, _ = m.Update(key("k"))
	m = next.(ReviewModel)
	next, _ = m.Update(key("k")) // clamped at the top
	m = next.(ReviewModel)
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestReviewMarkCorrectHidesRecord(t *testing.T) {
	m, g := newReview(t, 3)
	id := g.Records()[0].ID

	next, _ := m.Update(key("c"))
	m = next.(ReviewModel)
	if !g.IsHidden(id) {
		t.Error("record not hidden after mark")
	}
	// First mark surfaces the onboarding hint.
	if !strings.Contains(m.status, "press 'a'") {
		t.Errorf("status = %q", m.status)
	}
	if got := len(m.editor.Records()); got != 2 {
		t.Errorf("visible = %d, want 2", got)
	}

	next, _ = m.Update(key("a"))
	m = next.(ReviewModel)
	if got := len(m.editor.Records()); got != 3 {
		t.Errorf("visible with show-all = %d, want 3", got)
	}
}

func TestReviewEditFlow(t *testing.T) {
	m, g := newReview(t, 2)

	next, _ := m.Update(key("enter"))
	m = next.(ReviewModel)
	if !m.editing {
		t.Fatal("not in edit mode")
	}
	if m.prompt.Value() != "q0" {
		t.Errorf("prompt preloaded as %q", m.prompt.Value())
	}

	m.prompt.SetValue("fixed q")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(ReviewModel)
	if m.editing {
		t.Error("still editing after save")
	}
	if got := g.Records()[0].Prompt; got != "fixed q" {
		t.Errorf("record prompt = %q", got)
	}
}

func TestReviewDelete(t *testing.T) {
	m, g := newReview(t, 2)

	next, _ := m.Update(key("d"))
	m = next.(ReviewModel)
	if len(g.Records()) != 1 {
		t.Errorf("records = %d, want 1", len(g.Records()))
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d", m.cursor)
	}
}

func TestReviewViewRenders(t *testing.T) {
	m, _ := newReview(t, 2)
	view := m.View()
	if !strings.Contains(view, "input.jsonl") || !strings.Contains(view, "#1") {
		t.Errorf("view missing content:\n%s", view)
	}
}

package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"qaproof/internal/editor"
	"qaproof/internal/qa"
	"qaproof/internal/session"
)

// ReviewModel is the guest review screen: a paged record list with
// mark-correct, show-all, edit, delete, and export.
type ReviewModel struct {
	editor *editor.Editor
	guest  *session.Guest

	width  int
	height int
	cursor int // position within the current page
	status string

	editing    bool
	editID     string
	prompt     textarea.Model
	completion textarea.Model
	focusDone  bool // false: prompt focused, true: completion

	styles Styles
}

// NewReviewModel creates the review screen over an open guest editor.
func NewReviewModel(e *editor.Editor, g *session.Guest) ReviewModel {
	p := textarea.New()
	p.Placeholder = "Prompt"
	c := textarea.New()
	c.Placeholder = "Completion"
	return ReviewModel{
		editor:     e,
		guest:      g,
		prompt:     p,
		completion: c,
		styles:     DefaultStyles(),
		width:      100,
		height:     30,
	}
}

// Init initializes the model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prompt.SetWidth(msg.Width - 4)
		m.completion.SetWidth(msg.Width - 4)
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m ReviewModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	records := m.editor.Records()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(records)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n", "right":
		m.editor.SetPage(ctx, m.editor.Page()+1)
		m.cursor = 0
	case "p", "left":
		m.editor.SetPage(ctx, m.editor.Page()-1)
		m.cursor = 0
	case "a":
		m.editor.ToggleShowAll()
		m.clampCursor()
	case "c":
		if rec := m.current(records); rec != nil {
			first := !m.guest.HasMarkedCorrect()
			hidden, _ := m.editor.MarkCorrect(rec.ID)
			switch {
			case first:
				m.status = "Marked correct. Correct records are hidden; press 'a' to show them."
			case hidden:
				m.status = "Marked correct."
			default:
				m.status = "Unmarked."
			}
			m.clampCursor()
		}
	case "d":
		if rec := m.current(records); rec != nil {
			m.editor.Delete(ctx, rec.ID)
			m.status = "Deleted."
			m.clampCursor()
		}
	case "e", "enter":
		if rec := m.current(records); rec != nil {
			m.editing = true
			m.editID = rec.ID
			m.prompt.SetValue(rec.Prompt)
			m.completion.SetValue(rec.Completion)
			m.focusDone = false
			m.prompt.Focus()
			m.completion.Blur()
		}
	case "x":
		m.export(ctx, "jsonl")
	case "X":
		m.export(ctx, "excel")
	}
	return m, nil
}

func (m ReviewModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.status = "Edit cancelled."
		return m, nil
	case "tab":
		m.focusDone = !m.focusDone
		if m.focusDone {
			m.prompt.Blur()
			return m, m.completion.Focus()
		}
		m.completion.Blur()
		return m, m.prompt.Focus()
	case "ctrl+s":
		m.editor.Edit(context.Background(), m.editID, m.prompt.Value(), m.completion.Value())
		m.editing = false
		m.status = "Saved."
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusDone {
		m.completion, cmd = m.completion.Update(msg)
	} else {
		m.prompt, cmd = m.prompt.Update(msg)
	}
	return m, cmd
}

// View renders the screen.
func (m ReviewModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Review: "+m.editor.Filename()) + "\n")

	if m.editing {
		sb.WriteString("\nPrompt:\n" + m.prompt.View() + "\n")
		sb.WriteString("\nCompletion:\n" + m.completion.View() + "\n\n")
		sb.WriteString(m.styles.Help.Render("tab: switch field • ctrl+s: save • esc: cancel"))
		return sb.String()
	}

	records := m.editor.Records()
	if len(records) == 0 {
		sb.WriteString(m.styles.Status.Render("\nNothing to review on this page.\n"))
	}
	for i, rec := range records {
		style := m.styles.Normal
		if m.editor.IsHidden(rec.ID) {
			style = m.styles.Hidden
		} else if rec.IsEdited {
			style = m.styles.Edited
		}
		line := fmt.Sprintf("#%d  %s", rec.IndexInFile+1, firstLine(rec.Prompt, m.width-10))
		if i == m.cursor {
			line = m.styles.Selected.Render("> " + line)
		} else {
			line = "  " + style.Render(line)
		}
		sb.WriteString(line + "\n")
		if i == m.cursor {
			sb.WriteString("    " + m.styles.Status.Render(firstLine(rec.Completion, m.width-10)) + "\n")
		}
	}

	sb.WriteString("\n" + m.styles.Status.Render(fmt.Sprintf(
		"Page %d/%d • %d shown", m.editor.Page(), m.editor.PageCount(), m.editor.Total())))
	if m.editor.ShowAll() {
		sb.WriteString(m.styles.Hint.Render("  [showing hidden]"))
	}
	if m.status != "" {
		sb.WriteString("\n" + m.styles.Hint.Render(m.status))
	}
	sb.WriteString("\n" + m.styles.Help.Render(
		"j/k: move • n/p: page • e: edit • c: mark correct • d: delete • a: show all • x/X: export • q: quit"))
	return sb.String()
}

func (m *ReviewModel) current(records []qa.Record) *qa.Record {
	if m.cursor < 0 || m.cursor >= len(records) {
		return nil
	}
	return &records[m.cursor]
}

func (m *ReviewModel) clampCursor() {
	if n := len(m.editor.Records()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *ReviewModel) export(ctx context.Context, format string) {
	blob, err := m.editor.Export(ctx, format)
	if err != nil {
		m.status = m.styles.Error.Render("Export failed: " + err.Error())
		return
	}
	if err := os.WriteFile(blob.Filename, blob.Data, 0o644); err != nil {
		m.status = m.styles.Error.Render("Export failed: " + err.Error())
		return
	}
	m.status = fmt.Sprintf("Exported %s (%d bytes).", blob.Filename, len(blob.Data))
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if max > 0 && len(runes) > max {
		s = string(runes[:max-1]) + "…"
	}
	return s
}

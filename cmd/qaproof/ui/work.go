package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"qaproof/internal/collab"
	"qaproof/internal/qa"
)

// WorkModel is the assignee's screen for a collaboration task: the assigned
// records with drafts overlaid, edits saved as drafts, submit when done.
type WorkModel struct {
	ws *collab.Workspace

	width   int
	height  int
	cursor  int
	status  string
	confirm bool // pending submit confirmation

	editing    bool
	editID     string
	prompt     textarea.Model
	completion textarea.Model
	focusDone  bool

	styles Styles
}

// NewWorkModel creates the task work screen over an opened workspace.
func NewWorkModel(ws *collab.Workspace) WorkModel {
	p := textarea.New()
	p.Placeholder = "Prompt"
	c := textarea.New()
	c.Placeholder = "Completion"
	return WorkModel{
		ws:         ws,
		prompt:     p,
		completion: c,
		styles:     DefaultStyles(),
		width:      100,
		height:     30,
	}
}

// Init initializes the model.
func (m WorkModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m WorkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prompt.SetWidth(msg.Width - 4)
		m.completion.SetWidth(msg.Width - 4)
		return m, nil
	case tea.KeyMsg:
		m.ws.Touch()
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m WorkModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	records := m.ws.Records()

	if m.confirm {
		switch msg.String() {
		case "y":
			m.confirm = false
			if err := m.ws.Submit(ctx); err != nil {
				m.status = m.styles.Error.Render("Submit failed: " + err.Error())
			} else {
				m.status = "Submitted. Your range is now read-only."
			}
		default:
			m.confirm = false
			m.status = "Submit cancelled."
		}
		return m, nil
	}

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
		if err := m.ws.SetPage(ctx, m.ws.Page()+1); err != nil {
			m.status = m.styles.Error.Render(err.Error())
		}
		m.cursor = 0
	case "p", "left":
		if err := m.ws.SetPage(ctx, m.ws.Page()-1); err != nil {
			m.status = m.styles.Error.Render(err.Error())
		}
		m.cursor = 0
	case "e", "enter":
		if m.ws.ReadOnly() {
			m.status = "This assignment is read-only."
			break
		}
		if m.cursor < len(records) {
			rec := records[m.cursor]
			m.editing = true
			m.editID = rec.ID
			// Resume from the draft when there is one.
			p, c := rec.Prompt, rec.Completion
			if rec.HasDraft {
				p, c = rec.DraftPrompt, rec.DraftCompletion
			}
			m.prompt.SetValue(p)
			m.completion.SetValue(c)
			m.focusDone = false
			m.prompt.Focus()
			m.completion.Blur()
		}
	case "c":
		if m.cursor < len(records) {
			hidden, err := m.ws.MarkCorrect(records[m.cursor].ID)
			switch {
			case err != nil:
				m.status = m.styles.Error.Render(err.Error())
			case hidden:
				m.status = "Marked correct; press 'a' to show hidden records."
			default:
				m.status = "Unmarked."
			}
			if n := len(m.ws.Records()); m.cursor >= n && n > 0 {
				m.cursor = n - 1
			}
		}
	case "a":
		m.ws.ToggleShowAll()
		if n := len(m.ws.Records()); m.cursor >= n && n > 0 {
			m.cursor = n - 1
		}
	case "s":
		if m.cursor < len(records) {
			if err := m.ws.Save(ctx, records[m.cursor].ID); err != nil {
				m.status = m.styles.Error.Render("Save failed: " + err.Error())
			} else {
				m.status = "Saved."
			}
		}
	case "d":
		if m.cursor < len(records) {
			if err := m.ws.Delete(ctx, records[m.cursor].ID); err != nil {
				m.status = m.styles.Error.Render("Delete failed: " + err.Error())
			} else {
				m.status = "Deleted."
			}
			if n := len(m.ws.Records()); m.cursor >= n && n > 0 {
				m.cursor = n - 1
			}
		}
	case "S":
		if m.ws.ReadOnly() {
			m.status = "Already submitted."
			break
		}
		m.confirm = true
	}
	return m, nil
}

func (m WorkModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
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
		if err := m.ws.EditDraft(m.editID, m.prompt.Value(), m.completion.Value()); err != nil {
			m.status = m.styles.Error.Render(err.Error())
		} else {
			m.status = "Draft updated; auto-save will sync it."
		}
		m.editing = false
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
func (m WorkModel) View() string {
	var sb strings.Builder
	title := "Task work"
	if a := m.ws.Assignment(); a != nil {
		title = fmt.Sprintf("Task work: records #%d-#%d [%s]", a.StartIndex+1, a.EndIndex+1, a.Status)
	}
	sb.WriteString(m.styles.Title.Render(title) + "\n")

	if m.editing {
		sb.WriteString("\nPrompt:\n" + m.prompt.View() + "\n")
		sb.WriteString("\nCompletion:\n" + m.completion.View() + "\n\n")
		sb.WriteString(m.styles.Help.Render("tab: switch field • ctrl+s: save draft • esc: cancel"))
		return sb.String()
	}

	if m.confirm {
		sb.WriteString("\n" + m.styles.Hint.Render("Submit your share? This cannot be undone. [y/N]") + "\n")
		return sb.String()
	}

	for i, rec := range m.ws.Records() {
		style := m.styles.Normal
		marker := " "
		if rec.HasDraft {
			style = m.styles.Edited
			marker = "*"
		}
		if m.ws.IsHidden(rec.ID) {
			style = m.styles.Hidden
		}
		line := fmt.Sprintf("%s #%d  %s", marker, rec.IndexInFile+1, firstLine(displayPrompt(rec), m.width-12))
		if i == m.cursor {
			sb.WriteString(m.styles.Selected.Render(">"+line) + "\n")
			sb.WriteString("    " + m.styles.Status.Render(firstLine(displayCompletion(rec), m.width-12)) + "\n")
		} else {
			sb.WriteString(" " + style.Render(line) + "\n")
		}
	}

	sb.WriteString("\n" + m.styles.Status.Render(fmt.Sprintf("Page %d/%d", m.ws.Page(), m.ws.PageCount())))
	if m.ws.ShowAll() {
		sb.WriteString("  " + m.styles.Hint.Render("[showing hidden]"))
	}
	if m.ws.Idle() {
		sb.WriteString("  " + m.styles.Hint.Render("[idle]"))
	}
	if m.ws.ReadOnly() {
		sb.WriteString("  " + m.styles.Hint.Render("[read-only]"))
	}
	if m.status != "" {
		sb.WriteString("\n" + m.status)
	}
	sb.WriteString("\n" + m.styles.Help.Render(
		"j/k: move • n/p: page • e: edit draft • s: save • d: delete • c: mark correct • a: show all • S: submit • q: quit"))
	return sb.String()
}

func displayPrompt(r qa.Record) string {
	if r.HasDraft {
		return r.DraftPrompt
	}
	return r.Prompt
}

func displayCompletion(r qa.Record) string {
	if r.HasDraft {
		return r.DraftCompletion
	}
	return r.Completion
}

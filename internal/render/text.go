package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/workflow"
)

type TextOption func(*TextRenderer)

func WithTextColor(c bool) TextOption {
	return func(r *TextRenderer) { r.color = c }
}

// TextRenderer prints cards to a terminal. A card drawn before is printed as
// a unified diff against its previous text.
type TextRenderer struct {
	w     io.Writer
	color bool

	mu    sync.Mutex
	lines map[string]string
}

func NewTextRenderer(w io.Writer, opts ...TextOption) *TextRenderer {
	r := &TextRenderer{w: w, color: true, lines: make(map[string]string)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TextRenderer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (r *TextRenderer) statusColor(s workflow.Status) *color.Color {
	switch s {
	case workflow.StatusReady:
		return r.paint(color.FgGreen, color.Bold)
	case workflow.StatusInProgress:
		return r.paint(color.FgCyan)
	case workflow.StatusASAP:
		return r.paint(color.FgRed, color.Bold)
	case workflow.StatusRequiresChanges:
		return r.paint(color.FgYellow)
	}
	return r.paint(color.FgWhite)
}

// FormatCard renders a card as one line without color.
func FormatCard(c Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%-16s] p%d %-20s %3dpt", c.Status, c.Priority, c.TaskID, c.Points)
	if c.Title != "" {
		fmt.Fprintf(&b, "  %s", c.Title)
	}
	if c.RequiresDocument {
		b.WriteString("  (document)")
	}
	if c.DetailsFetched {
		fmt.Fprintf(&b, "  comments=%d files=%d", c.Comments, c.Files)
	}
	return b.String()
}

func (r *TextRenderer) Reset(_ context.Context, boardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = make(map[string]string)
	if boardID == "" {
		return nil
	}
	_, err := fmt.Fprintln(r.w, r.paint(color.Bold).Sprintf("board %s", boardID))
	return err
}

func (r *TextRenderer) UpsertCard(_ context.Context, card Card) error {
	line := FormatCard(card)
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, seen := r.lines[card.ElementID]
	r.lines[card.ElementID] = line
	if !seen {
		_, err := fmt.Fprintln(r.w, r.statusColor(card.Status).Sprint(line))
		return err
	}
	if prev == line {
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev + "\n"),
		B:        difflib.SplitLines(line + "\n"),
		FromFile: card.ElementID,
		ToFile:   card.ElementID,
		Context:  0,
	})
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", card.ElementID, err)
	}
	for _, l := range difflib.SplitLines(diff) {
		l = strings.TrimSuffix(l, "\n")
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"), strings.HasPrefix(l, "@@"):
			_, err = fmt.Fprintln(r.w, r.paint(color.Faint).Sprint(l))
		case strings.HasPrefix(l, "+"):
			_, err = fmt.Fprintln(r.w, r.statusColor(card.Status).Sprint(l))
		case strings.HasPrefix(l, "-"):
			_, err = fmt.Fprintln(r.w, r.paint(color.FgHiBlack).Sprint(l))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *TextRenderer) UpsertDrawer(_ context.Context, t *board.Task, card Card) error {
	var b strings.Builder
	fmt.Fprintln(&b, r.paint(color.Bold).Sprintf("== %s ==", card.TaskID))
	fmt.Fprintln(&b, r.statusColor(card.Status).Sprint(FormatCard(card)))
	if t.Location != nil {
		fmt.Fprintf(&b, "  location: %s\n", *t.Location)
	}
	if t.Deadline != nil {
		fmt.Fprintf(&b, "  deadline: %s\n", t.Deadline.Format("2006-01-02"))
	}
	if t.Assignee != nil {
		fmt.Fprintf(&b, "  assignee: %s\n", *t.Assignee)
	}
	for _, c := range t.Comments {
		author := "support"
		if c.Author != nil {
			author = *c.Author
		}
		fmt.Fprintf(&b, "  %s: %s\n", r.paint(color.FgMagenta).Sprint(author), c.Message)
	}
	for _, f := range t.Files {
		fmt.Fprintf(&b, "  file %s %s (%s)\n", f.ID, f.FileName, f.Status)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) CloseDrawer(context.Context) error {
	return nil
}

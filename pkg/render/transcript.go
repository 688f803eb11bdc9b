package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/go-go-golems/chat-archive/pkg/conversation"
)

// timestampLayout formats turn and header timestamps in text output.
const timestampLayout = "2006-01-02 15:04:05"

// Transcript is one conversation prepared for display or export.
type Transcript struct {
	ID    string              `json:"id,omitempty"`
	Title string              `json:"title"`
	Turns []conversation.Turn `json:"messages"`

	CreateTime  time.Time `json:"-"`
	UpdateTime  time.Time `json:"-"`
	CurrentNode string    `json:"-"`

	// Row is the stored row the transcript came from, kept for raw output.
	Row map[string]any `json:"-"`
}

// FromConversation builds a display transcript from a stored row.
func FromConversation(row map[string]any) (Transcript, error) {
	conv, err := conversation.FromRow(row)
	if err != nil {
		return Transcript{}, err
	}
	turns, err := conv.Transcript()
	if err != nil {
		return Transcript{}, err
	}
	return Transcript{
		ID:          conv.ID,
		Title:       conv.Title,
		Turns:       turns,
		CreateTime:  conv.CreateTime,
		UpdateTime:  conv.UpdateTime,
		CurrentNode: conv.CurrentNode,
		Row:         row,
	}, nil
}

// Render writes one transcript in the given style.
func Render(w io.Writer, t Transcript, style Style) error {
	if style.Raw {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t.Row); err != nil {
			return errors.Wrap(err, "render: encode raw row")
		}
		return nil
	}

	var b strings.Builder
	writeHeader(&b, t, style)
	for i, turn := range t.Turns {
		if i > 0 {
			if style.Divider != "" {
				b.WriteString(style.Divider)
				b.WriteString("\n")
			}
			if style.BlankBetween {
				b.WriteString("\n")
			}
		}
		writeTurn(&b, turn, style)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "render: write transcript")
	}
	return nil
}

// writeHeader emits the bare title for the default style, or the extended
// id/timestamps/current-node header for the other text styles.
func writeHeader(b *strings.Builder, t Transcript, style Style) {
	wrote := false
	if t.Title != "" {
		fmt.Fprintf(b, "Title: %s\n", t.Title)
		wrote = true
	}
	if style.DetailedHeader {
		if t.ID != "" {
			fmt.Fprintf(b, "ID: %s\n", t.ID)
			wrote = true
		}
		if !t.CreateTime.IsZero() {
			fmt.Fprintf(b, "Created: %s\n", t.CreateTime.UTC().Format(timestampLayout))
			wrote = true
		}
		if !t.UpdateTime.IsZero() {
			fmt.Fprintf(b, "Updated: %s\n", t.UpdateTime.UTC().Format(timestampLayout))
			wrote = true
		}
		if t.CurrentNode != "" {
			fmt.Fprintf(b, "Current node: %s\n", t.CurrentNode)
			wrote = true
		}
	}
	if wrote && style.BlankBetween {
		b.WriteString("\n")
	}
}

// writeTurn emits one message line: "{timestamp} <{author}> {text}" for the
// timestamped styles, "{author}: {text}" otherwise. A turn without a
// timestamp drops the leading field rather than printing a zero time.
func writeTurn(b *strings.Builder, turn conversation.Turn, style Style) {
	if !style.Timestamps {
		fmt.Fprintf(b, "%s: %s\n", turn.Author, turn.Text)
		return
	}
	if turn.Timestamp.IsZero() {
		fmt.Fprintf(b, "<%s> %s\n", turn.Author, turn.Text)
		return
	}
	fmt.Fprintf(b, "%s <%s> %s\n",
		turn.Timestamp.UTC().Format(timestampLayout), turn.Author, turn.Text)
}

// TerminalWidth returns the width of the attached terminal, or fallback
// when stdout is not a terminal or the size cannot be read.
func TerminalWidth(fallback int) int {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fallback
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Truncate shortens s to at most width runes, ending with an ellipsis when
// anything was cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

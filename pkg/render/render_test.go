package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chat-archive/pkg/conversation"
)

func sampleTranscript() Transcript {
	asked := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	return Transcript{
		ID:          "c1",
		Title:       "greetings",
		CreateTime:  asked,
		UpdateTime:  asked.Add(45 * time.Second),
		CurrentNode: "n2",
		Turns: []conversation.Turn{
			{Author: "user", Text: "hello", Timestamp: asked},
			{Author: "ChatGPT", Text: "hi there", Timestamp: asked.Add(30 * time.Second)},
		},
		Row: map[string]any{"id": "c1", "title": "greetings"},
	}
}

func TestRender_DefaultStyle(t *testing.T) {
	style, err := StyleByName("default")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, Render(&b, sampleTranscript(), style))

	out := b.String()
	require.Contains(t, out, "Title: greetings\n")
	require.Contains(t, out, "user: hello\n\nChatGPT: hi there\n")
	require.NotContains(t, out, "ID:", "default header is the bare title")
	require.NotContains(t, out, "<user>")
}

func TestRender_IRCStyleTimestampedLines(t *testing.T) {
	style, err := StyleByName("irc")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, Render(&b, sampleTranscript(), style))

	out := b.String()
	require.Contains(t, out, "2023-11-14 22:13:20 <user> hello\n--\n2023-11-14 22:13:50 <ChatGPT> hi there\n")
}

func TestRender_FullStyleDetailedHeader(t *testing.T) {
	style, err := StyleByName("full")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, Render(&b, sampleTranscript(), style))

	out := b.String()
	require.Contains(t, out, "Title: greetings\n")
	require.Contains(t, out, "ID: c1\n")
	require.Contains(t, out, "Created: 2023-11-14 22:13:20\n")
	require.Contains(t, out, "Updated: 2023-11-14 22:14:05\n")
	require.Contains(t, out, "Current node: n2\n")
	require.Contains(t, out, "2023-11-14 22:13:20 <user> hello\n")
	require.Contains(t, out, strings.Repeat("-", 79)+"\n")
}

func TestRender_TimestampedStyleWithoutTimestampDropsField(t *testing.T) {
	style, err := StyleByName("irc")
	require.NoError(t, err)

	transcript := sampleTranscript()
	transcript.Turns[0].Timestamp = time.Time{}

	var b strings.Builder
	require.NoError(t, Render(&b, transcript, style))
	require.Contains(t, b.String(), "<user> hello\n")
	require.NotContains(t, b.String(), "0001-01-01")
}

func TestRender_RawStyleDumpsStoredRow(t *testing.T) {
	style, err := StyleByName("raw")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, Render(&b, sampleTranscript(), style))

	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(b.String()), &row))
	require.Equal(t, "c1", row["id"])
}

func TestStyleByName_UnknownFails(t *testing.T) {
	_, err := StyleByName("markdown")
	require.Error(t, err)

	style, err := StyleByName("")
	require.NoError(t, err)
	require.Equal(t, "default", style.Name)
}

func TestExport_JSONRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	style, err := StyleByName("default")
	require.NoError(t, err)

	require.NoError(t, Export(path, "json", []Transcript{sampleTranscript()}, style))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Transcript
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	require.Equal(t, "greetings", decoded[0].Title)
	require.Len(t, decoded[0].Turns, 2)
}

func TestExport_HTMLEscapesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.html")
	style, err := StyleByName("default")
	require.NoError(t, err)

	transcript := sampleTranscript()
	transcript.Turns[0].Text = "<script>alert(1)</script>"
	require.NoError(t, Export(path, "html", []Transcript{transcript}, style))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "&lt;script&gt;")
	require.NotContains(t, string(data), "<script>alert(1)</script>")
}

func TestExport_UnknownFormatFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.pdf")
	style, err := StyleByName("default")
	require.NoError(t, err)
	require.Error(t, Export(path, "pdf", []Transcript{sampleTranscript()}, style))
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "very lo...", Truncate("very long title here", 10))
	require.Equal(t, "unlimited", Truncate("unlimited", 0))
}

package cmds

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleExport = `[
  {
    "id": "abc123",
    "title": "greetings",
    "create_time": 1700000000.5,
    "current_node": "n3",
    "mapping": {
      "n1": {"id": "n1", "children": ["n2"],
             "message": {"author": {"role": "system"},
                         "content": {"content_type": "text", "parts": ["be helpful"]}}},
      "n2": {"id": "n2", "parent": "n1", "children": ["n3"],
             "message": {"author": {"role": "user"},
                         "content": {"content_type": "text", "parts": ["hello"]}}},
      "n3": {"id": "n3", "parent": "n2",
             "message": {"author": {"role": "assistant"},
                         "content": {"content_type": "text", "parts": ["hi there"]}}}
    }
  }
]`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return buf.String()
}

func TestImportPrintInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chatgpt.db")
	exportPath := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(sampleExport), 0o644))

	out := runCLI(t, "--db", dbPath, "import", exportPath)
	require.Contains(t, out, "conversations: inserted 1, skipped 0, malformed 0")

	out = runCLI(t, "--db", dbPath, "print")
	require.Contains(t, out, "Title: greetings")
	require.Contains(t, out, "user: hello")
	require.Contains(t, out, "ChatGPT: hi there")
	require.NotContains(t, out, "be helpful", "system turns are structural only")

	out = runCLI(t, "--db", dbPath, "print", "abc")
	require.Contains(t, out, "Title: greetings")

	out = runCLI(t, "--db", dbPath, "print", "zzz")
	require.NotContains(t, out, "greetings")

	out = runCLI(t, "--db", dbPath, "info")
	require.Contains(t, out, "conversations")
	require.Contains(t, out, "schema_registry")
	require.Contains(t, out, "conversations v1 -> conversations")
}

func TestExportWritesOneFilePerConversation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chatgpt.db")
	exportPath := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(sampleExport), 0o644))

	runCLI(t, "--db", dbPath, "import", exportPath)

	outDir := filepath.Join(dir, "out")
	out := runCLI(t, "--db", dbPath, "export", outDir, "--format", "txt")
	require.Contains(t, out, "exported 1 conversations")

	data, err := os.ReadFile(filepath.Join(outDir, "abc123.txt"))
	require.NoError(t, err)
	require.Contains(t, string(data), "ChatGPT: hi there")
}

func TestInspectReportsShapesWithoutStore(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(sampleExport), 0o644))

	out := runCLI(t, "inspect", exportPath)
	require.Contains(t, out, "conversations: 1 records")
	require.Contains(t, out, "create_time, current_node, id, mapping, title")

	_, err := os.Stat(filepath.Join(dir, "chatgpt.db"))
	require.True(t, os.IsNotExist(err))
}

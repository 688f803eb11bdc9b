package conversation

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func textMessage(role, text string) *Message {
	part, _ := json.Marshal(text)
	return &Message{
		Author: Author{Role: role},
		Content: Content{
			ContentType: "text",
			Parts:       []json.RawMessage{part},
		},
	}
}

func TestLinearize_RootToLeafSkippingStructuralNodes(t *testing.T) {
	mapping := map[string]Node{
		"A": {ID: "A", Children: []string{"B"}, Message: textMessage("user", "hello")},
		"B": {ID: "B", Parent: "A", Children: []string{"C"}},
		"C": {ID: "C", Parent: "B", Message: textMessage("assistant", "hi there")},
	}

	turns, err := Linearize(mapping, "C")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "user", turns[0].Author)
	require.Equal(t, "hello", turns[0].Text)
	require.Equal(t, "ChatGPT", turns[1].Author)
	require.Equal(t, "hi there", turns[1].Text)
}

func TestLinearize_ExcludesSystemAndEmptyMessages(t *testing.T) {
	mapping := map[string]Node{
		"root": {ID: "root", Message: textMessage("system", "you are a helpful assistant")},
		"u":    {ID: "u", Parent: "root", Message: textMessage("user", "question")},
		"e":    {ID: "e", Parent: "u", Message: textMessage("assistant", "   ")},
		"a":    {ID: "a", Parent: "e", Message: textMessage("assistant", "answer")},
	}

	turns, err := Linearize(mapping, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "question", turns[0].Text)
	require.Equal(t, "answer", turns[1].Text)
}

func TestLinearize_MissingCurrentNodeIsEmptyNotError(t *testing.T) {
	mapping := map[string]Node{
		"A": {ID: "A", Message: textMessage("user", "hello")},
	}

	turns, err := Linearize(mapping, "nope")
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestLinearize_DanglingParentReturnsPartialPath(t *testing.T) {
	mapping := map[string]Node{
		"B": {ID: "B", Parent: "gone", Message: textMessage("user", "orphaned question")},
		"C": {ID: "C", Parent: "B", Message: textMessage("assistant", "orphaned answer")},
	}

	turns, err := Linearize(mapping, "C")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "orphaned question", turns[0].Text)
	require.Equal(t, "orphaned answer", turns[1].Text)
}

func TestLinearize_CycleFailsWithCorruptTree(t *testing.T) {
	mapping := map[string]Node{
		"A": {ID: "A", Parent: "B", Message: textMessage("user", "a")},
		"B": {ID: "B", Parent: "A", Message: textMessage("assistant", "b")},
	}

	_, err := Linearize(mapping, "A")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorruptTree))
}

func TestLinearize_NonAssistantRolesPassThrough(t *testing.T) {
	mapping := map[string]Node{
		"u": {ID: "u", Message: textMessage("user", "run it")},
		"t": {ID: "t", Parent: "u", Message: textMessage("tool", "exit 0")},
	}

	turns, err := Linearize(mapping, "t")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "tool", turns[1].Author)
}

func TestLinearize_NonTextContentIsStructural(t *testing.T) {
	code := &Message{
		Author:  Author{Role: "assistant"},
		Content: Content{ContentType: "code", Parts: []json.RawMessage{json.RawMessage(`"print(1)"`)}},
	}
	mapping := map[string]Node{
		"u": {ID: "u", Message: textMessage("user", "show me")},
		"c": {ID: "c", Parent: "u", Message: code},
	}

	turns, err := Linearize(mapping, "c")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "show me", turns[0].Text)
}

func TestFromRow_RebuildsConversation(t *testing.T) {
	mapping := map[string]Node{
		"A": {ID: "A", Children: []string{"B"}, Message: textMessage("user", "hello")},
		"B": {ID: "B", Parent: "A", Message: textMessage("assistant", "hi")},
	}
	mappingJSON, err := json.Marshal(mapping)
	require.NoError(t, err)

	conv, err := FromRow(map[string]any{
		"conversation_id": "c1",
		"title":           "greetings",
		"create_time":     "1700000000.5",
		"current_node":    "B",
		"mapping":         string(mappingJSON),
	})
	require.NoError(t, err)
	require.Equal(t, "c1", conv.ID)
	require.Equal(t, "greetings", conv.Title)
	require.Equal(t, int64(1700000000), conv.CreateTime.Unix())

	turns, err := conv.Transcript()
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestFromRow_PrefersPrimaryKeyID(t *testing.T) {
	conv, err := FromRow(map[string]any{
		"id":              "row-key",
		"conversation_id": "other-key",
		"title":           "keys",
	})
	require.NoError(t, err)
	require.Equal(t, "row-key", conv.ID)

	conv, err = FromRow(map[string]any{
		"conversation_id": "only-key",
	})
	require.NoError(t, err)
	require.Equal(t, "only-key", conv.ID)
}

func TestFromRow_MissingMappingYieldsEmptyTranscript(t *testing.T) {
	conv, err := FromRow(map[string]any{"id": "c2", "title": "empty"})
	require.NoError(t, err)
	require.Equal(t, "c2", conv.ID)

	turns, err := conv.Transcript()
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestParseMapping_RejectsGarbage(t *testing.T) {
	_, err := ParseMapping(`{"A": not json`)
	require.Error(t, err)
}

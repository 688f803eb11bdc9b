package conversation

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Node is one entry of a conversation's mapping. Nodes form a tree through
// parent pointers; current_node on the owning conversation marks the leaf
// whose ancestor chain is the canonical transcript.
type Node struct {
	ID       string   `json:"id"`
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
	Message  *Message `json:"message"`
}

type Message struct {
	ID         string   `json:"id"`
	Author     Author   `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    Content  `json:"content"`
}

type Author struct {
	Role string `json:"role"`
}

type Content struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
}

// Conversation is one archived conversation as read back from storage.
type Conversation struct {
	ID          string
	Title       string
	CreateTime  time.Time
	UpdateTime  time.Time
	CurrentNode string
	Mapping     map[string]Node
}

// ParseMapping decodes the mapping column of a stored conversation row.
func ParseMapping(raw string) (map[string]Node, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]Node{}, nil
	}
	var mapping map[string]Node
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, errors.Wrap(err, "conversation: parse mapping")
	}
	return mapping, nil
}

// FromRow rebuilds a Conversation from a stored row. Values arrive as TEXT
// or nil; nested columns hold JSON. Rows without a mapping produce a
// conversation with an empty tree, which linearizes to no turns.
func FromRow(row map[string]any) (Conversation, error) {
	// id is the primary key and what prefix lookups match; conversation_id
	// is only a fallback for rows that lack it.
	conv := Conversation{
		ID:          rowString(row, "id", "conversation_id"),
		Title:       rowString(row, "title"),
		CurrentNode: rowString(row, "current_node"),
		CreateTime:  rowTime(row, "create_time"),
		UpdateTime:  rowTime(row, "update_time"),
	}
	mapping, err := ParseMapping(rowString(row, "mapping"))
	if err != nil {
		return Conversation{}, err
	}
	conv.Mapping = mapping
	return conv, nil
}

func rowString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func rowTime(row map[string]any, key string) time.Time {
	raw, ok := row[key].(string)
	if !ok || raw == "" {
		return time.Time{}
	}
	var epoch float64
	if err := json.Unmarshal([]byte(raw), &epoch); err != nil {
		return time.Time{}
	}
	return epochTime(&epoch)
}

func epochTime(value *float64) time.Time {
	if value == nil || *value == 0 {
		return time.Time{}
	}
	seconds, frac := math.Modf(*value)
	return time.Unix(int64(seconds), int64(frac*1e9)).UTC()
}

// text extracts the message's first non-empty text part, or "" when the
// message carries no renderable text.
func (m *Message) text() string {
	if m == nil {
		return ""
	}
	switch m.Content.ContentType {
	case "text", "multimodal_text":
	default:
		return ""
	}
	for _, part := range m.Content.Parts {
		var s string
		if err := json.Unmarshal(part, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (m *Message) role() string {
	if m == nil {
		return ""
	}
	return strings.ToLower(m.Author.Role)
}

func (m *Message) createTime() time.Time {
	if m == nil {
		return time.Time{}
	}
	return epochTime(m.CreateTime)
}

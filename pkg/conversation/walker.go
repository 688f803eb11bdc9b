package conversation

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrCorruptTree reports a parent-pointer walk that exceeded the node count,
// which only happens when the mapping contains a cycle.
var ErrCorruptTree = errors.New("conversation: corrupt tree")

// AssistantLabel is the display name used for assistant-authored turns.
const AssistantLabel = "ChatGPT"

// Turn is one rendered transcript entry.
type Turn struct {
	Author    string
	Text      string
	Timestamp time.Time
}

// Linearize walks parent pointers from currentNodeID to the root and returns
// the transcript in chronological order. Nodes without a non-empty text
// message and system-authored nodes are structural only and excluded.
//
// A currentNodeID absent from the mapping yields an empty transcript, not an
// error: that is how partial exports look. A dangling parent pointer ends
// the walk at an effective root with the turns collected so far. Visiting
// more nodes than the mapping holds means a cycle and fails with
// ErrCorruptTree.
func Linearize(mapping map[string]Node, currentNodeID string) ([]Turn, error) {
	turns := []Turn{}
	visited := 0
	nodeID := currentNodeID

	for nodeID != "" {
		node, ok := mapping[nodeID]
		if !ok {
			if nodeID != currentNodeID {
				log.Debug().Str("node_id", nodeID).Msg("parent pointer references missing node, treating as root")
			}
			break
		}
		visited++
		if visited > len(mapping) {
			return nil, errors.Wrapf(ErrCorruptTree, "cycle at node %s", nodeID)
		}

		if turn, ok := renderTurn(node.Message); ok {
			turns = append(turns, turn)
		}
		nodeID = node.Parent
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Transcript linearizes the conversation's canonical path.
func (c Conversation) Transcript() ([]Turn, error) {
	return Linearize(c.Mapping, c.CurrentNode)
}

func renderTurn(m *Message) (Turn, bool) {
	role := m.role()
	if role == "" || role == "system" {
		return Turn{}, false
	}
	text := m.text()
	if text == "" {
		return Turn{}, false
	}
	if role == "assistant" {
		role = AssistantLabel
	}
	return Turn{Author: role, Text: text, Timestamp: m.createTime()}, true
}

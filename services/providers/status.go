package providers

import (
	"encoding/json"
	"fmt"
)

// StatusKind tags the shape of a status page response.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	// StatusBlock is a block object; full and solidity nodes answer this way.
	StatusBlock
	// StatusText is a bare string; the event server answers "OK".
	StatusText
)

func (k StatusKind) String() string {
	switch k {
	case StatusBlock:
		return "block"
	case StatusText:
		return "text"
	default:
		return "unknown"
	}
}

// StatusOK is the literal an event server returns when healthy.
const StatusOK = "OK"

// blockIDField identifies a block object.
const blockIDField = "blockID"

// NodeStatus is the decoded status page response.
type NodeStatus struct {
	Kind StatusKind

	// BlockID is set for StatusBlock. Its value is not checked; only the
	// presence of the field matters.
	BlockID string

	// Text is set for StatusText.
	Text string
}

// ParseNodeStatus decodes the data returned by Provider.Request for a
// status page.
func ParseNodeStatus(data any) NodeStatus {
	switch v := data.(type) {
	case map[string]any:
		id, ok := v[blockIDField]
		if !ok {
			return NodeStatus{Kind: StatusUnknown}
		}
		return NodeStatus{Kind: StatusBlock, BlockID: stringify(id)}
	case string:
		return NodeStatus{Kind: StatusText, Text: v}
	default:
		return NodeStatus{Kind: StatusUnknown}
	}
}

// Connected reports whether the status proves the node is reachable and serving.
func (s NodeStatus) Connected() bool {
	switch s.Kind {
	case StatusBlock:
		return true
	case StatusText:
		return s.Text == StatusOK
	default:
		return false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

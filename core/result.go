package core

// ItemType classifies a unit of model output.
type ItemType string

const (
	ItemTypeMessage   ItemType = "message"
	ItemTypeToolCall  ItemType = "tool_call"
	ItemTypeReasoning ItemType = "reasoning"
	ItemTypeOther     ItemType = "other"
)

// ItemState tracks an output item's lifecycle. Transitions are one-way:
// pending → streaming → done.
type ItemState string

const (
	ItemStatePending   ItemState = "pending"
	ItemStateStreaming ItemState = "streaming"
	ItemStateDone      ItemState = "done"
)

// OutputItem is one unit of model output with identity and lifecycle.
// Text and Arguments are exact arrival-order concatenations of the deltas
// received for the item.
type OutputItem struct {
	ID    string    `json:"id"`
	Type  ItemType  `json:"type"`
	State ItemState `json:"state"`

	Text string `json:"text,omitempty"` // message items

	Name      string `json:"name,omitempty"`      // tool-call items
	CallID    string `json:"call_id,omitempty"`   // tool-call items
	Arguments string `json:"arguments,omitempty"` // tool-call items, raw JSON fragments joined

	Summary []string `json:"summary,omitempty"` // reasoning items
}

// Usage aggregates token counters, including the nested cache and
// reasoning sub-counters when the API reports them.
type Usage struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	TotalTokens       int `json:"total_tokens"`
	CachedInputTokens int `json:"cached_input_tokens,omitempty"`
	ReasoningTokens   int `json:"reasoning_tokens,omitempty"`
}

// Result is the progressively-complete representation of one call. During
// streaming, snapshots of it are emitted as frames arrive; Done marks the
// terminal snapshot.
type Result struct {
	ID     string `json:"id,omitempty"`
	Model  string `json:"model,omitempty"`
	Status string `json:"status,omitempty"`

	// Items in first-seen order. Never reordered.
	Items []OutputItem `json:"items,omitempty"`

	Usage Usage `json:"usage"`
	Done  bool  `json:"done"`
}

// Text returns the concatenated text of all message items.
func (r *Result) Text() string {
	var out string
	for _, item := range r.Items {
		if item.Type == ItemTypeMessage {
			out += item.Text
		}
	}
	return out
}

// Item returns the item with the given id, or nil.
func (r *Result) Item(id string) *OutputItem {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// ToolCalls returns the tool-call items in first-seen order.
func (r *Result) ToolCalls() []OutputItem {
	var calls []OutputItem
	for _, item := range r.Items {
		if item.Type == ItemTypeToolCall {
			calls = append(calls, item)
		}
	}
	return calls
}

// Package responses implements the Responses endpoint family: request
// construction, the response.* frame-kind mapping, and the fold of
// output-item lifecycle events into core results.
package responses

import (
	json "github.com/goccy/go-json"
)

// Request is a Responses API request. Body schema validation is the
// server's job; this struct only carries the fields the harness and tests
// exercise.
type Request struct {
	Model           string          `json:"model"`
	Input           any             `json:"input,omitempty"` // string or structured input list
	Instructions    string          `json:"instructions,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Temperature     *float32        `json:"temperature,omitempty"`
	Tools           json.RawMessage `json:"tools,omitempty"`
	PreviousID      string          `json:"previous_response_id,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
}

// streamEvent is the wire shape shared by every response.* event.
type streamEvent struct {
	Type        string          `json:"type"`
	Response    json.RawMessage `json:"response,omitempty"`
	Item        json.RawMessage `json:"item,omitempty"`
	Delta       string          `json:"delta,omitempty"`
	ItemID      string          `json:"item_id,omitempty"`
	OutputIndex int             `json:"output_index,omitempty"`
}

// responseObject is the response envelope carried by lifecycle events and
// by the non-streaming body.
type responseObject struct {
	ID     string          `json:"id"`
	Model  string          `json:"model"`
	Status string          `json:"status"`
	Output []outputItem    `json:"output,omitempty"`
	Usage  json.RawMessage `json:"usage,omitempty"`
	Error  *responseError  `json:"error,omitempty"`
}

// outputItem is the wire shape of one output item, as carried by
// output_item lifecycle events and the non-streaming body.
type outputItem struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Status    string        `json:"status,omitempty"`
	Role      string        `json:"role,omitempty"`
	Content   []contentPart `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Summary   []summaryPart `json:"summary,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type summaryPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// eventKind is the closed enumeration of stream event kinds. Kinds the SDK
// does not know map to eventUnknown and degrade gracefully instead of
// being mis-handled.
type eventKind string

const (
	eventResponseCreated    eventKind = "response.created"
	eventResponseInProgress eventKind = "response.in_progress"
	eventResponseCompleted  eventKind = "response.completed"
	eventResponseFailed     eventKind = "response.failed"
	eventItemAdded          eventKind = "response.output_item.added"
	eventItemDone           eventKind = "response.output_item.done"
	eventTextDelta          eventKind = "response.output_text.delta"
	eventTextDone           eventKind = "response.output_text.done"
	eventArgsDelta          eventKind = "response.function_call_arguments.delta"
	eventArgsDone           eventKind = "response.function_call_arguments.done"
	eventSummaryDelta       eventKind = "response.reasoning_summary_text.delta"
	eventSummaryDone        eventKind = "response.reasoning_summary_text.done"

	eventUnknown eventKind = ""
)

var knownEventKinds = map[string]eventKind{
	string(eventResponseCreated):    eventResponseCreated,
	string(eventResponseInProgress): eventResponseInProgress,
	string(eventResponseCompleted):  eventResponseCompleted,
	string(eventResponseFailed):     eventResponseFailed,
	string(eventItemAdded):          eventItemAdded,
	string(eventItemDone):           eventItemDone,
	string(eventTextDelta):          eventTextDelta,
	string(eventTextDone):           eventTextDone,
	string(eventArgsDelta):          eventArgsDelta,
	string(eventArgsDone):           eventArgsDone,
	string(eventSummaryDelta):       eventSummaryDelta,
	string(eventSummaryDone):        eventSummaryDone,
}

func parseEventKind(s string) eventKind {
	if k, ok := knownEventKinds[s]; ok {
		return k
	}
	return eventUnknown
}

package responses

import (
	"errors"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/petrel-labs/petrel/core"
	"github.com/petrel-labs/petrel/sse"
)

// adapter folds response.* frames into the core accumulator. One adapter
// serves one session; frames arrive in strict order.
type adapter struct{}

var _ core.StreamAdapter = (*adapter)(nil)

// Apply routes one frame by its kind tag.
func (a *adapter) Apply(acc *core.Accumulator, frame *sse.Frame) (bool, error) {
	var ev streamEvent
	if err := json.Unmarshal(frame.Data, &ev); err != nil {
		return false, core.NewDecodeError(err)
	}

	// The kind rides both the SSE event field and the payload's type
	// field; the payload wins when the framing omitted it.
	kindTag := frame.Kind
	if kindTag == "" {
		kindTag = ev.Type
	}

	switch parseEventKind(kindTag) {
	case eventResponseCreated, eventResponseInProgress:
		return a.applyResponseMeta(acc, ev.Response, false)

	case eventResponseCompleted:
		return a.applyResponseMeta(acc, ev.Response, true)

	case eventResponseFailed:
		return false, a.responseFailed(ev.Response)

	case eventItemAdded:
		return a.itemAdded(acc, ev.Item)

	case eventItemDone:
		return a.itemDone(acc, ev.Item)

	case eventTextDelta:
		if err := acc.AppendText(ev.ItemID, ev.Delta); err != nil {
			return false, err
		}
		return ev.Delta != "", nil

	case eventArgsDelta:
		if err := acc.AppendArguments(ev.ItemID, ev.Delta); err != nil {
			return false, err
		}
		return ev.Delta != "", nil

	case eventSummaryDelta:
		if err := acc.AppendText(ev.ItemID, ev.Delta); err != nil {
			return false, err
		}
		return ev.Delta != "", nil

	case eventTextDone, eventArgsDone, eventSummaryDone:
		// Advisory: the fold result is authoritative, the done payload's
		// own copy of the field is not re-applied.
		return false, nil

	default:
		slog.Debug("unknown stream event kind, skipping", "kind", kindTag)
		return false, nil
	}
}

func (a *adapter) applyResponseMeta(acc *core.Accumulator, raw json.RawMessage, withUsage bool) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var resp responseObject
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, core.NewDecodeError(err)
	}
	acc.SetResponseMeta(resp.ID, resp.Model, resp.Status)
	if withUsage && len(resp.Usage) > 0 {
		acc.SetUsage(parseUsage(resp.Usage))
	}
	return true, nil
}

func (a *adapter) responseFailed(raw json.RawMessage) error {
	var resp responseObject
	if err := json.Unmarshal(raw, &resp); err == nil && resp.Error != nil {
		return core.NewServerError(fmt.Errorf("response failed: %s (%s)", resp.Error.Message, resp.Error.Code))
	}
	return core.NewServerError(errors.New("response failed"))
}

func (a *adapter) itemAdded(acc *core.Accumulator, raw json.RawMessage) (bool, error) {
	var item outputItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return false, core.NewDecodeError(err)
	}
	if err := acc.StartItem(item.ID, mapItemType(item.Type)); err != nil {
		return false, err
	}
	if item.Type == "function_call" {
		if err := acc.SetToolIdentity(item.ID, item.CallID, item.Name); err != nil {
			return false, err
		}
	}
	return true, nil
}

// itemDone freezes the item. The done payload is advisory for fields that
// streamed as deltas; it is only adopted for fields no delta ever carried.
func (a *adapter) itemDone(acc *core.Accumulator, raw json.RawMessage) (bool, error) {
	var item outputItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return false, core.NewDecodeError(err)
	}

	switch item.Type {
	case "function_call":
		if err := acc.SetToolIdentity(item.ID, item.CallID, item.Name); err != nil {
			return false, err
		}
		if item.Arguments != "" && !acc.HasArguments(item.ID) {
			if err := acc.AppendArguments(item.ID, item.Arguments); err != nil {
				return false, err
			}
		}
	case "reasoning":
		if !acc.HasText(item.ID) {
			for _, part := range item.Summary {
				if part.Text == "" {
					continue
				}
				if err := acc.AppendSummary(item.ID, part.Text); err != nil {
					return false, err
				}
			}
		}
	}

	if err := acc.FinishItem(item.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Finalize validates assembled tool-call arguments: every tool item must
// hold valid JSON once its fragments are concatenated.
func (a *adapter) Finalize(acc *core.Accumulator) error {
	snap := acc.Snapshot()
	for _, call := range snap.ToolCalls() {
		args := call.Arguments
		if args == "" {
			continue
		}
		if !json.Valid([]byte(args)) {
			return core.NewDecodeError(fmt.Errorf("tool call %s: assembled arguments are not valid JSON", call.ID))
		}
	}
	return nil
}

func mapItemType(t string) core.ItemType {
	switch t {
	case "message":
		return core.ItemTypeMessage
	case "function_call":
		return core.ItemTypeToolCall
	case "reasoning":
		return core.ItemTypeReasoning
	default:
		return core.ItemTypeOther
	}
}

// parseUsage pulls the aggregate counters plus the nested cache and
// reasoning sub-counters out of a usage payload.
func parseUsage(raw json.RawMessage) core.Usage {
	u := gjson.ParseBytes(raw)
	return core.Usage{
		InputTokens:       int(u.Get("input_tokens").Int()),
		OutputTokens:      int(u.Get("output_tokens").Int()),
		TotalTokens:       int(u.Get("total_tokens").Int()),
		CachedInputTokens: int(u.Get("input_tokens_details.cached_tokens").Int()),
		ReasoningTokens:   int(u.Get("output_tokens_details.reasoning_tokens").Int()),
	}
}

package chat

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/petrel-labs/petrel/core"
	"github.com/petrel-labs/petrel/sse"
)

// Chat chunks address output by choice and tool-call index rather than by
// item id, so the adapter synthesizes stable ids for the fold.
func messageItemID(choice int) string {
	return fmt.Sprintf("choice-%d", choice)
}

func toolItemID(choice, tool int) string {
	return fmt.Sprintf("choice-%d-tool-%d", choice, tool)
}

// adapter folds chat completion chunks into the core accumulator. It keeps
// per-session bookkeeping of which synthesized items exist and which are
// frozen; one adapter serves exactly one session.
type adapter struct {
	started map[string]bool
	frozen  map[string]bool
}

func newAdapter() *adapter {
	return &adapter{
		started: make(map[string]bool),
		frozen:  make(map[string]bool),
	}
}

var _ core.StreamAdapter = (*adapter)(nil)

func (a *adapter) Apply(acc *core.Accumulator, frame *sse.Frame) (bool, error) {
	var chunk streamChunk
	if err := json.Unmarshal(frame.Data, &chunk); err != nil {
		return false, core.NewDecodeError(err)
	}

	changed := false

	for _, choice := range chunk.Choices {
		ch, err := a.applyChoice(acc, choice)
		if err != nil {
			return false, err
		}
		changed = changed || ch
	}

	// Meta lands only once the whole chunk folded: a frame that trips a
	// violation must not leave the response identity updated.
	acc.SetResponseMeta(chunk.ID, chunk.Model, "")

	if len(chunk.Usage) > 0 && gjson.ParseBytes(chunk.Usage).IsObject() {
		acc.SetUsage(parseUsage(chunk.Usage))
		changed = true
	}

	return changed, nil
}

func (a *adapter) applyChoice(acc *core.Accumulator, choice streamChoice) (bool, error) {
	changed := false

	if choice.Delta.Content != "" {
		id := messageItemID(choice.Index)
		if err := a.ensure(acc, id, core.ItemTypeMessage); err != nil {
			return false, err
		}
		if err := acc.AppendText(id, choice.Delta.Content); err != nil {
			return false, err
		}
		changed = true
	}

	for _, tc := range choice.Delta.ToolCalls {
		id := toolItemID(choice.Index, tc.Index)
		if err := a.ensure(acc, id, core.ItemTypeToolCall); err != nil {
			return false, err
		}
		if err := acc.SetToolIdentity(id, tc.ID, tc.Function.Name); err != nil {
			return false, err
		}
		if tc.Function.Arguments != "" {
			if err := acc.AppendArguments(id, tc.Function.Arguments); err != nil {
				return false, err
			}
			changed = true
		}
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		acc.SetResponseMeta("", "", *choice.FinishReason)
		if err := a.freezeChoice(acc, choice.Index); err != nil {
			return false, err
		}
		changed = true
	}

	return changed, nil
}

// ensure creates a synthesized item on first sight. Recreating an id the
// stream already froze is the done-item protocol violation, surfaced by
// the accumulator on the subsequent append.
func (a *adapter) ensure(acc *core.Accumulator, id string, typ core.ItemType) error {
	if a.started[id] {
		return nil
	}
	if err := acc.StartItem(id, typ); err != nil {
		return err
	}
	a.started[id] = true
	return nil
}

// freezeChoice freezes every item synthesized for the choice.
func (a *adapter) freezeChoice(acc *core.Accumulator, choice int) error {
	msgID := messageItemID(choice)
	toolPrefix := msgID + "-tool-"
	for id := range a.started {
		if a.frozen[id] {
			continue
		}
		if id != msgID && !strings.HasPrefix(id, toolPrefix) {
			continue
		}
		if err := acc.FinishItem(id); err != nil {
			return err
		}
		a.frozen[id] = true
	}
	return nil
}

// Finalize freezes anything the stream left open (a stream may end at
// [DONE] without a finish_reason) and validates assembled tool arguments.
func (a *adapter) Finalize(acc *core.Accumulator) error {
	for id := range a.started {
		if a.frozen[id] {
			continue
		}
		if err := acc.FinishItem(id); err != nil {
			return err
		}
		a.frozen[id] = true
	}

	snap := acc.Snapshot()
	for _, call := range snap.ToolCalls() {
		if call.Arguments == "" {
			continue
		}
		if !json.Valid([]byte(call.Arguments)) {
			return core.NewDecodeError(fmt.Errorf("tool call %s: assembled arguments are not valid JSON", call.CallID))
		}
	}
	return nil
}

// parseUsage reads chat-completions usage counters, including the cached
// and reasoning sub-counters when present.
func parseUsage(raw json.RawMessage) core.Usage {
	u := gjson.ParseBytes(raw)
	return core.Usage{
		InputTokens:       int(u.Get("prompt_tokens").Int()),
		OutputTokens:      int(u.Get("completion_tokens").Int()),
		TotalTokens:       int(u.Get("total_tokens").Int()),
		CachedInputTokens: int(u.Get("prompt_tokens_details.cached_tokens").Int()),
		ReasoningTokens:   int(u.Get("completion_tokens_details.reasoning_tokens").Int()),
	}
}

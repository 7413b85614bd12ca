package chat

import (
	json "github.com/goccy/go-json"

	"github.com/petrel-labs/petrel/core"
)

// decodeResult folds a complete non-streaming completion into a terminal
// Result, yielding the same shape the streaming fold converges on.
func decodeResult(body []byte) (*core.Result, error) {
	var comp completion
	if err := json.Unmarshal(body, &comp); err != nil {
		return nil, core.NewDecodeError(err)
	}

	acc := core.NewAccumulator()
	acc.SetResponseMeta(comp.ID, comp.Model, "")

	for _, choice := range comp.Choices {
		if err := foldWholeChoice(acc, choice); err != nil {
			return nil, core.NewDecodeError(err)
		}
	}

	if len(comp.Usage) > 0 {
		acc.SetUsage(parseUsage(comp.Usage))
	}
	acc.Finish()

	result := acc.Snapshot()
	return &result, nil
}

func foldWholeChoice(acc *core.Accumulator, choice completionChoice) error {
	if choice.FinishReason != "" {
		acc.SetResponseMeta("", "", choice.FinishReason)
	}

	if choice.Message.Content != "" {
		id := messageItemID(choice.Index)
		if err := acc.StartItem(id, core.ItemTypeMessage); err != nil {
			return err
		}
		if err := acc.AppendText(id, choice.Message.Content); err != nil {
			return err
		}
		if err := acc.FinishItem(id); err != nil {
			return err
		}
	}

	for i, tc := range choice.Message.ToolCalls {
		id := toolItemID(choice.Index, i)
		if err := acc.StartItem(id, core.ItemTypeToolCall); err != nil {
			return err
		}
		if err := acc.SetToolIdentity(id, tc.ID, tc.Function.Name); err != nil {
			return err
		}
		if tc.Function.Arguments != "" {
			if err := acc.AppendArguments(id, tc.Function.Arguments); err != nil {
				return err
			}
		}
		if err := acc.FinishItem(id); err != nil {
			return err
		}
	}

	return nil
}

package responses

import (
	json "github.com/goccy/go-json"

	"github.com/petrel-labs/petrel/core"
)

// decodeResult folds a complete non-streaming body into a terminal Result.
// It runs the same fold as the streaming path over a singleton-of-whole,
// so both paths converge on one terminal shape.
func decodeResult(body []byte) (*core.Result, error) {
	var resp responseObject
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.NewDecodeError(err)
	}

	acc := core.NewAccumulator()
	acc.SetResponseMeta(resp.ID, resp.Model, resp.Status)

	for _, item := range resp.Output {
		if err := foldWholeItem(acc, item); err != nil {
			return nil, core.NewDecodeError(err)
		}
	}

	if len(resp.Usage) > 0 {
		acc.SetUsage(parseUsage(resp.Usage))
	}
	acc.Finish()

	result := acc.Snapshot()
	return &result, nil
}

func foldWholeItem(acc *core.Accumulator, item outputItem) error {
	if err := acc.StartItem(item.ID, mapItemType(item.Type)); err != nil {
		return err
	}

	switch item.Type {
	case "message":
		for _, part := range item.Content {
			if part.Text == "" {
				continue
			}
			if err := acc.AppendText(item.ID, part.Text); err != nil {
				return err
			}
		}
	case "function_call":
		if err := acc.SetToolIdentity(item.ID, item.CallID, item.Name); err != nil {
			return err
		}
		if item.Arguments != "" {
			if err := acc.AppendArguments(item.ID, item.Arguments); err != nil {
				return err
			}
		}
	case "reasoning":
		for _, part := range item.Summary {
			if part.Text == "" {
				continue
			}
			if err := acc.AppendSummary(item.ID, part.Text); err != nil {
				return err
			}
		}
	}

	return acc.FinishItem(item.ID)
}

package core

import (
	"errors"
	"testing"
)

func TestAccumulatorFoldsTextDeltas(t *testing.T) {
	acc := NewAccumulator()
	acc.SetResponseMeta("resp_1", "gpt-4o", "in_progress")

	if err := acc.StartItem("item_1", ItemTypeMessage); err != nil {
		t.Fatal(err)
	}
	for _, delta := range []string{"Hel", "lo, wor", "ld"} {
		if err := acc.AppendText("item_1", delta); err != nil {
			t.Fatal(err)
		}
	}
	if err := acc.FinishItem("item_1"); err != nil {
		t.Fatal(err)
	}
	acc.SetResponseMeta("", "", "completed")
	acc.Finish()

	r := acc.Snapshot()
	if r.ID != "resp_1" || r.Model != "gpt-4o" || r.Status != "completed" {
		t.Errorf("meta = %q %q %q", r.ID, r.Model, r.Status)
	}
	if !r.Done {
		t.Error("terminal snapshot should be Done")
	}
	if got := r.Text(); got != "Hello, world" {
		t.Errorf("Text() = %q", got)
	}
	if r.Items[0].State != ItemStateDone {
		t.Errorf("state = %q", r.Items[0].State)
	}
}

func TestAccumulatorLifecycle(t *testing.T) {
	acc := NewAccumulator()
	if err := acc.StartItem("i", ItemTypeMessage); err != nil {
		t.Fatal(err)
	}

	if got := acc.Snapshot().Items[0].State; got != ItemStatePending {
		t.Errorf("state after start = %q", got)
	}
	if err := acc.AppendText("i", "x"); err != nil {
		t.Fatal(err)
	}
	if got := acc.Snapshot().Items[0].State; got != ItemStateStreaming {
		t.Errorf("state after delta = %q", got)
	}
	if err := acc.FinishItem("i"); err != nil {
		t.Fatal(err)
	}
	if got := acc.Snapshot().Items[0].State; got != ItemStateDone {
		t.Errorf("state after finish = %q", got)
	}
}

func TestAccumulatorProtocolViolations(t *testing.T) {
	acc := NewAccumulator()
	if err := acc.StartItem("a", ItemTypeMessage); err != nil {
		t.Fatal(err)
	}

	if err := acc.StartItem("a", ItemTypeMessage); !errors.Is(err, ErrDuplicateItem) {
		t.Errorf("duplicate start error = %v", err)
	}
	if err := acc.AppendText("ghost", "x"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("unknown id error = %v", err)
	}
	if err := acc.FinishItem("ghost"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("finish unknown error = %v", err)
	}

	if err := acc.FinishItem("a"); err != nil {
		t.Fatal(err)
	}
	if err := acc.AppendText("a", "late"); !errors.Is(err, ErrItemDone) {
		t.Errorf("mutate-after-done error = %v", err)
	}
	if err := acc.FinishItem("a"); !errors.Is(err, ErrItemDone) {
		t.Errorf("double finish error = %v", err)
	}

	for _, err := range []error{
		acc.StartItem("a", ItemTypeMessage),
		acc.AppendText("ghost", "x"),
	} {
		if !IsProtocolViolation(err) {
			t.Errorf("IsProtocolViolation(%v) = false", err)
		}
	}
}

func TestAccumulatorViolationLeavesStateIntact(t *testing.T) {
	acc := NewAccumulator()
	if err := acc.StartItem("a", ItemTypeMessage); err != nil {
		t.Fatal(err)
	}
	if err := acc.AppendText("a", "before"); err != nil {
		t.Fatal(err)
	}

	// A violation against another id must not disturb item "a".
	_ = acc.AppendText("ghost", "x")
	_ = acc.StartItem("a", ItemTypeToolCall)

	r := acc.Snapshot()
	if len(r.Items) != 1 {
		t.Fatalf("items = %d", len(r.Items))
	}
	if r.Items[0].Text != "before" || r.Items[0].Type != ItemTypeMessage {
		t.Errorf("item mutated: %+v", r.Items[0])
	}
}

func TestAccumulatorToolCall(t *testing.T) {
	acc := NewAccumulator()
	if err := acc.StartItem("t1", ItemTypeToolCall); err != nil {
		t.Fatal(err)
	}
	if err := acc.SetToolIdentity("t1", "call_9", "get_weather"); err != nil {
		t.Fatal(err)
	}
	for _, frag := range []string{`{"loc`, `ation":"Par`, `is"}`} {
		if err := acc.AppendArguments("t1", frag); err != nil {
			t.Fatal(err)
		}
	}
	if !acc.HasArguments("t1") {
		t.Error("HasArguments = false")
	}
	if err := acc.FinishItem("t1"); err != nil {
		t.Fatal(err)
	}

	r := acc.Snapshot()
	calls := r.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("tool calls = %d", len(calls))
	}
	if calls[0].Name != "get_weather" || calls[0].CallID != "call_9" {
		t.Errorf("identity = %q %q", calls[0].Name, calls[0].CallID)
	}
	if calls[0].Arguments != `{"location":"Paris"}` {
		t.Errorf("arguments = %q", calls[0].Arguments)
	}
}

func TestAccumulatorItemOrderPreserved(t *testing.T) {
	acc := NewAccumulator()
	ids := []string{"z", "a", "m"}
	for _, id := range ids {
		if err := acc.StartItem(id, ItemTypeMessage); err != nil {
			t.Fatal(err)
		}
	}
	r := acc.Snapshot()
	for i, id := range ids {
		if r.Items[i].ID != id {
			t.Errorf("Items[%d].ID = %q, want %q", i, r.Items[i].ID, id)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	acc := NewAccumulator()
	if err := acc.StartItem("i", ItemTypeMessage); err != nil {
		t.Fatal(err)
	}
	if err := acc.AppendText("i", "first"); err != nil {
		t.Fatal(err)
	}

	snap := acc.Snapshot()

	if err := acc.AppendText("i", " second"); err != nil {
		t.Fatal(err)
	}
	if err := acc.AppendSummary("i", "note"); err != nil {
		t.Fatal(err)
	}

	if snap.Items[0].Text != "first" {
		t.Errorf("earlier snapshot changed: %q", snap.Items[0].Text)
	}
	if len(snap.Items[0].Summary) != 0 {
		t.Errorf("earlier snapshot grew a summary")
	}
	if got := acc.Snapshot().Items[0].Text; got != "first second" {
		t.Errorf("later snapshot = %q", got)
	}
}

func TestAccumulatorReasoningSummary(t *testing.T) {
	acc := NewAccumulator()
	if err := acc.StartItem("r", ItemTypeReasoning); err != nil {
		t.Fatal(err)
	}
	if err := acc.AppendSummary("r", "step one"); err != nil {
		t.Fatal(err)
	}
	if err := acc.AppendSummary("r", "step two"); err != nil {
		t.Fatal(err)
	}

	got := acc.Snapshot().Items[0].Summary
	if len(got) != 2 || got[0] != "step one" || got[1] != "step two" {
		t.Errorf("Summary = %v", got)
	}
}

func TestAccumulatorUsage(t *testing.T) {
	acc := NewAccumulator()
	acc.SetUsage(Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CachedInputTokens: 4})

	u := acc.Snapshot().Usage
	if u.InputTokens != 10 || u.OutputTokens != 5 || u.TotalTokens != 15 || u.CachedInputTokens != 4 {
		t.Errorf("Usage = %+v", u)
	}
}

func TestResultHelpers(t *testing.T) {
	r := Result{Items: []OutputItem{
		{ID: "m1", Type: ItemTypeMessage, Text: "Hello "},
		{ID: "t1", Type: ItemTypeToolCall, Name: "fn"},
		{ID: "m2", Type: ItemTypeMessage, Text: "there"},
	}}

	if got := r.Text(); got != "Hello there" {
		t.Errorf("Text() = %q", got)
	}
	if item := r.Item("t1"); item == nil || item.Name != "fn" {
		t.Errorf("Item(t1) = %+v", item)
	}
	if item := r.Item("missing"); item != nil {
		t.Errorf("Item(missing) = %+v", item)
	}
	if calls := r.ToolCalls(); len(calls) != 1 || calls[0].ID != "t1" {
		t.Errorf("ToolCalls() = %+v", calls)
	}
}

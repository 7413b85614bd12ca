package core

import (
	"fmt"
	"strings"
)

// accItem is the mutable in-flight form of an OutputItem. Deltas append to
// builders so long streams stay linear.
type accItem struct {
	id      string
	typ     ItemType
	state   ItemState
	text    strings.Builder
	args    strings.Builder
	name    string
	callID  string
	summary []string
}

// Accumulator folds frames into a Result. It is owned by exactly one
// streaming session and applied in strict arrival order; it is not safe
// for concurrent use.
//
// Once an item reaches ItemStateDone, any further mutation of it is a
// protocol violation and is reported, never silently ignored. A violation
// leaves every other item's state intact.
type Accumulator struct {
	id     string
	model  string
	status string
	items  []*accItem
	index  map[string]int
	usage  Usage
	done   bool
}

// NewAccumulator creates an empty fold state for one session.
func NewAccumulator() *Accumulator {
	return &Accumulator{index: make(map[string]int)}
}

// SetResponseMeta records response identity fields as they become known.
// Empty arguments leave the existing value untouched.
func (a *Accumulator) SetResponseMeta(id, model, status string) {
	if id != "" {
		a.id = id
	}
	if model != "" {
		a.model = model
	}
	if status != "" {
		a.status = status
	}
}

// StartItem registers a new output item in pending state. A duplicate id
// is a protocol violation.
func (a *Accumulator) StartItem(id string, typ ItemType) error {
	if _, exists := a.index[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateItem, id)
	}
	if typ == "" {
		typ = ItemTypeOther
	}
	a.index[id] = len(a.items)
	a.items = append(a.items, &accItem{id: id, typ: typ, state: ItemStatePending})
	return nil
}

// item returns the mutable entry for id, enforcing the lifecycle: unknown
// ids and done items are protocol violations.
func (a *Accumulator) item(id string) (*accItem, error) {
	i, ok := a.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	it := a.items[i]
	if it.state == ItemStateDone {
		return nil, fmt.Errorf("%w: %q", ErrItemDone, id)
	}
	return it, nil
}

// AppendText appends a text delta to a message item.
func (a *Accumulator) AppendText(id, delta string) error {
	it, err := a.item(id)
	if err != nil {
		return err
	}
	it.text.WriteString(delta)
	it.state = ItemStateStreaming
	return nil
}

// AppendArguments appends an argument fragment to a tool-call item.
// Fragments are byte-exact substrings concatenated in arrival order.
func (a *Accumulator) AppendArguments(id, fragment string) error {
	it, err := a.item(id)
	if err != nil {
		return err
	}
	it.args.WriteString(fragment)
	it.state = ItemStateStreaming
	return nil
}

// AppendSummary appends a reasoning summary entry to an item.
func (a *Accumulator) AppendSummary(id, text string) error {
	it, err := a.item(id)
	if err != nil {
		return err
	}
	if text != "" {
		it.summary = append(it.summary, text)
	}
	it.state = ItemStateStreaming
	return nil
}

// SetToolIdentity records the call id and function name of a tool-call
// item. Empty values leave existing ones untouched.
func (a *Accumulator) SetToolIdentity(id, callID, name string) error {
	it, err := a.item(id)
	if err != nil {
		return err
	}
	if callID != "" {
		it.callID = callID
	}
	if name != "" {
		it.name = name
	}
	return nil
}

// HasArguments reports whether any argument fragments have been received
// for the item. Callers use this to decide whether a done frame's full
// argument payload should be adopted or treated as advisory.
func (a *Accumulator) HasArguments(id string) bool {
	i, ok := a.index[id]
	if !ok {
		return false
	}
	return a.items[i].args.Len() > 0
}

// HasText reports whether any text deltas have been received for the item.
func (a *Accumulator) HasText(id string) bool {
	i, ok := a.index[id]
	if !ok {
		return false
	}
	return a.items[i].text.Len() > 0
}

// FinishItem freezes an item. Finishing an unknown or already-done item is
// a protocol violation.
func (a *Accumulator) FinishItem(id string) error {
	it, err := a.item(id)
	if err != nil {
		return err
	}
	it.state = ItemStateDone
	return nil
}

// SetUsage records the aggregate usage counters.
func (a *Accumulator) SetUsage(u Usage) {
	a.usage = u
}

// Finish marks the fold complete; the next Snapshot is the terminal one.
func (a *Accumulator) Finish() {
	a.done = true
}

// Done reports whether Finish has been called.
func (a *Accumulator) Done() bool {
	return a.done
}

// Snapshot materializes the current fold state. The returned Result shares
// nothing mutable with the accumulator, so callers may hold snapshots
// across further frames.
func (a *Accumulator) Snapshot() Result {
	r := Result{
		ID:     a.id,
		Model:  a.model,
		Status: a.status,
		Usage:  a.usage,
		Done:   a.done,
	}
	if len(a.items) > 0 {
		r.Items = make([]OutputItem, len(a.items))
		for i, it := range a.items {
			r.Items[i] = OutputItem{
				ID:        it.id,
				Type:      it.typ,
				State:     it.state,
				Text:      it.text.String(),
				Name:      it.name,
				CallID:    it.callID,
				Arguments: it.args.String(),
			}
			if len(it.summary) > 0 {
				r.Items[i].Summary = append([]string(nil), it.summary...)
			}
		}
	}
	return r
}

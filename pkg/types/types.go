package types

import (
	"encoding/json"
	"fmt"
)

// Timestamp is the sink's logical time domain. It is totally ordered, which
// is one of the two orderings the frontier protocol allows (the other is a
// partial order over vector timestamps, not needed by this sink).
type Timestamp uint64

// MinTimestamp is the least element of the timestamp domain.
const MinTimestamp Timestamp = 0

// StepForward returns the immediate successor of t.
func (t Timestamp) StepForward() Timestamp {
	return t + 1
}

// AdvanceBy rounds t up to the join of t and f. For a totally ordered
// domain the join is just a max; the empty frontier never rounds anything
// (there is nothing beyond it to round up to).
func (t Timestamp) AdvanceBy(f Frontier) Timestamp {
	if f.closed || f.ts <= t {
		return t
	}
	return f.ts
}

// Frontier is a minimal antichain over Timestamp. Because Timestamp is
// totally ordered, an antichain here is always zero or one elements: the
// zero value is the minimum frontier ({MinTimestamp}), and closed marks the
// empty frontier ({}) used for "no more progress possible".
type Frontier struct {
	ts     Timestamp
	closed bool
}

// MinFrontier returns the frontier {MinTimestamp}.
func MinFrontier() Frontier {
	return Frontier{ts: MinTimestamp}
}

// EmptyFrontier returns the frontier {}, meaning no further progress will
// ever be observed on this stream.
func EmptyFrontier() Frontier {
	return Frontier{closed: true}
}

// At returns the frontier {t}.
func At(t Timestamp) Frontier {
	return Frontier{ts: t}
}

// IsEmpty reports whether f is the closed ({}) frontier.
func (f Frontier) IsEmpty() bool {
	return f.closed
}

// Timestamp returns the frontier's single element. Calling this on the
// empty frontier is a programming error; callers must check IsEmpty first.
func (f Frontier) Timestamp() Timestamp {
	if f.closed {
		panic("types: Timestamp() called on the empty frontier")
	}
	return f.ts
}

// LessEqual reports whether f <= g in the frontier order, i.e. whether
// everything f admits is also admitted by g. The empty frontier is the
// top of this order: everything is <= the empty frontier, and the empty
// frontier is <= nothing but itself.
func (f Frontier) LessEqual(g Frontier) bool {
	if g.closed {
		return true
	}
	if f.closed {
		return false
	}
	return f.ts <= g.ts
}

// Less reports whether f < g: f <= g and f != g.
func (f Frontier) Less(g Frontier) bool {
	return f.LessEqual(g) && f != g
}

// Join returns the least frontier that is >= both f and g.
func (f Frontier) Join(g Frontier) Frontier {
	if f.closed || g.closed {
		return EmptyFrontier()
	}
	if f.ts >= g.ts {
		return f
	}
	return g
}

// Meet returns the greatest frontier that is <= both f and g.
func (f Frontier) Meet(g Frontier) Frontier {
	if f.closed {
		return g
	}
	if g.closed {
		return f
	}
	if f.ts <= g.ts {
		return f
	}
	return g
}

// frontierWire is Frontier's JSON wire shape; Frontier's own fields are
// unexported so callers can't construct an inconsistent {closed, ts} pair.
type frontierWire struct {
	Closed bool      `json:"closed"`
	Ts     Timestamp `json:"ts,omitempty"`
}

// MarshalJSON implements json.Marshaler, needed to ship frontiers through
// the Raft command log and batch manifests.
func (f Frontier) MarshalJSON() ([]byte, error) {
	return json.Marshal(frontierWire{Closed: f.closed, Ts: f.ts})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Frontier) UnmarshalJSON(data []byte) error {
	var w frontierWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.closed = w.Closed
	f.ts = w.Ts
	return nil
}

func (f Frontier) String() string {
	if f.closed {
		return "{}"
	}
	return fmt.Sprintf("{%d}", f.ts)
}

// DataflowError is the error half of Payload's Ok|Err variant.
type DataflowError struct {
	Message string
}

func (e *DataflowError) Error() string {
	return e.Message
}

// Payload is the Ok(row) | Err(dataflow_error) union an Update carries.
// Exactly one of Row or Err is set.
type Payload struct {
	Row []byte
	Err *DataflowError
}

// Key returns a value suitable for use as a map key distinguishing this
// payload from any other (needed by the correction buffer's consolidation,
// which sums diffs per (payload, time)).
func (p Payload) Key() string {
	if p.Err != nil {
		return "err:" + p.Err.Message
	}
	return "row:" + string(p.Row)
}

// Update is a single (payload, time, diff) triple flowing through desired,
// persist-readback, or correction streams. Diffs are signed multiplicities
// that consolidate by summing when (payload, time) match.
type Update struct {
	Payload Payload
	Time    Timestamp
	Diff    int64
}

// Description names a half-open batch of time, [Lower, Upper). Two
// descriptions minted by one sink never overlap and are strictly monotonic
// in Lower.
type Description struct {
	Lower Frontier
	Upper Frontier
}

// Validate enforces the description invariants: Lower <= Upper
// and Lower != Upper.
func (d Description) Validate() error {
	if !d.Lower.LessEqual(d.Upper) {
		return fmt.Errorf("types: description lower %s is not <= upper %s", d.Lower, d.Upper)
	}
	if d.Lower == d.Upper {
		return fmt.Errorf("types: description lower %s equals upper, interval is empty", d.Lower)
	}
	return nil
}

func (d Description) String() string {
	return fmt.Sprintf("[%s, %s)", d.Lower, d.Upper)
}

// InRange reports whether time t falls in [d.Lower, d.Upper).
func (d Description) InRange(t Timestamp) bool {
	if d.Lower.closed {
		return false
	}
	if t < d.Lower.ts {
		return false
	}
	if d.Upper.closed {
		return true
	}
	return t < d.Upper.ts
}

// HollowBatch is an opaque, serializable reference to data already uploaded
// to the shard — never the data itself. It carries its own Lower/Upper,
// matching the description it was written for, and a handle the shard
// collaborator can rehydrate into a committable batch or delete outright.
type HollowBatch struct {
	Lower   Frontier
	Upper   Frontier
	PartIDs []string
}

func (h HollowBatch) String() string {
	return fmt.Sprintf("hollow%s(%d parts)", Description{Lower: h.Lower, Upper: h.Upper}, len(h.PartIDs))
}

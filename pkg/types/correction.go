package types

// correctionKey identifies a (payload, time) pair for consolidation.
type correctionKey struct {
	payload string
	time    Timestamp
}

// CorrectionBuffer is the unordered multiset desired - persisted. Diffs
// for a matching (payload, time) are summed as updates are appended;
// entries that net to zero are only dropped on demand, by Consolidate,
// immediately before the buffer is sliced for writing. Times may be
// advanced upward by the current persist frontier without altering diffs.
type CorrectionBuffer struct {
	entries map[correctionKey]*Update
}

// NewCorrectionBuffer returns an empty correction buffer.
func NewCorrectionBuffer() *CorrectionBuffer {
	return &CorrectionBuffer{entries: make(map[correctionKey]*Update)}
}

// Append adds an update to the buffer. desired data is appended verbatim;
// persist-readback data is appended with diff negated by the caller before
// calling Append.
func (c *CorrectionBuffer) Append(u Update) {
	key := correctionKey{payload: u.Payload.Key(), time: u.Time}
	if existing, ok := c.entries[key]; ok {
		existing.Diff += u.Diff
		return
	}
	cp := u
	c.entries[key] = &cp
}

// Len reports the number of distinct (payload, time) entries currently
// buffered, consolidated or not.
func (c *CorrectionBuffer) Len() int {
	return len(c.entries)
}

// AdvanceBy rounds every entry's time up via t.AdvanceBy(f); diffs are
// never altered by this operation. Entries whose rounded time collides
// with an existing entry are merged (their diffs summed), same as Append.
func (c *CorrectionBuffer) AdvanceBy(f Frontier) {
	next := make(map[correctionKey]*Update, len(c.entries))
	for _, u := range c.entries {
		advanced := u.Time.AdvanceBy(f)
		key := correctionKey{payload: u.Payload.Key(), time: advanced}
		if existing, ok := next[key]; ok {
			existing.Diff += u.Diff
			continue
		}
		cp := *u
		cp.Time = advanced
		next[key] = &cp
	}
	c.entries = next
}

// Consolidate sums diffs per (payload, time) — a no-op given Append/AdvanceBy
// already keep the map consolidated — and drops any entry whose diff has
// settled to zero. Called immediately before the buffer is sliced.
func (c *CorrectionBuffer) Consolidate() {
	for key, u := range c.entries {
		if u.Diff == 0 {
			delete(c.entries, key)
		}
	}
}

// Slice returns the consolidated updates whose time falls in
// [d.Lower, d.Upper). It does not remove them from the buffer: entries
// are only released once AdvanceBy+Consolidate nets them to zero, per the
// buffer's lifecycle.
func (c *CorrectionBuffer) Slice(d Description) []Update {
	var out []Update
	for _, u := range c.entries {
		if d.InRange(u.Time) {
			out = append(out, *u)
		}
	}
	return out
}

package netcode

// SourceList is an ordered sliding window of outstanding sources,
// ascending by id (insertion order equals id-ascending order by
// construction — the encoder only ever appends newly allocated,
// monotonically increasing ids). It backs the encoder's window
// (spec §4.F).
type SourceList struct {
	items []*Source
}

// Len returns the number of sources currently held.
func (l *SourceList) Len() int { return len(l.items) }

// PushBack appends s; callers must ensure s.ID is greater than every id
// already present, preserving the ascending-id invariant.
func (l *SourceList) PushBack(s *Source) {
	l.items = append(l.items, s)
}

// Front returns the oldest (smallest id) source, or nil if empty.
func (l *SourceList) Front() *Source {
	if len(l.items) == 0 {
		return nil
	}
	return l.items[0]
}

// PopFront removes and returns the oldest source, or nil if empty.
func (l *SourceList) PopFront() *Source {
	if len(l.items) == 0 {
		return nil
	}
	s := l.items[0]
	l.items = l.items[1:]
	return s
}

// EraseByIDs removes every source whose id appears in ids. ids must be
// sorted ascending (as an ack's source_ids always are); the removal is
// a single merge pass over both sorted streams.
func (l *SourceList) EraseByIDs(ids []uint32) {
	if len(ids) == 0 || len(l.items) == 0 {
		return
	}
	kept := l.items[:0]
	j := 0
	for _, s := range l.items {
		for j < len(ids) && ids[j] < s.ID {
			j++
		}
		if j < len(ids) && ids[j] == s.ID {
			j++
			continue
		}
		kept = append(kept, s)
	}
	l.items = kept
}

// Each calls fn for every source in ascending id order.
func (l *SourceList) Each(fn func(*Source)) {
	for _, s := range l.items {
		fn(s)
	}
}

// IDs returns the ids currently held, ascending.
func (l *SourceList) IDs() []uint32 {
	ids := make([]uint32, len(l.items))
	for i, s := range l.items {
		ids[i] = s.ID
	}
	return ids
}

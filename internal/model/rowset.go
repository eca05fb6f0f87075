package model

import (
	"strings"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// RowSet is a set of row ids. The zero value is an empty set.
type RowSet struct {
	bm *roaring64.Bitmap
}

// NewRowSet returns a set holding ids.
func NewRowSet(ids ...RowID) RowSet {
	s := RowSet{bm: roaring64.New()}
	for _, id := range ids {
		s.bm.Add(uint64(id))
	}
	return s
}

// Contains reports whether id is in the set.
func (s RowSet) Contains(id RowID) bool {
	return s.bm != nil && s.bm.Contains(uint64(id))
}

// Len returns the number of ids in the set.
func (s RowSet) Len() int {
	if s.bm == nil {
		return 0
	}
	return int(s.bm.GetCardinality())
}

// Union returns a new set holding the ids of both s and other.
func (s RowSet) Union(other RowSet) RowSet {
	out := RowSet{bm: roaring64.New()}
	if s.bm != nil {
		out.bm.Or(s.bm)
	}
	if other.bm != nil {
		out.bm.Or(other.bm)
	}
	return out
}

// Difference returns the ids of s that are not in other.
func (s RowSet) Difference(other RowSet) RowSet {
	out := RowSet{bm: roaring64.New()}
	if s.bm == nil {
		return out
	}
	out.bm.Or(s.bm)
	if other.bm != nil {
		out.bm.AndNot(other.bm)
	}
	return out
}

// IsSubsetOf reports whether every id of s is also in other.
func (s RowSet) IsSubsetOf(other RowSet) bool {
	return s.Difference(other).Len() == 0
}

// Slice returns the ids in ascending order.
func (s RowSet) Slice() []RowID {
	if s.bm == nil {
		return nil
	}
	raw := s.bm.ToArray()
	out := make([]RowID, len(raw))
	for i, v := range raw {
		out[i] = RowID(v)
	}
	return out
}

// String renders the set as {1,2,3}.
func (s RowSet) String() string {
	ids := s.Slice()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

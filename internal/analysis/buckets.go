// SPDX-License-Identifier: MIT
package analysis

import "sort"

// BucketSeconds is the width of a detection bucket.
const BucketSeconds = 0.5

// bucketsPerSecond is 1 / BucketSeconds, kept integral so bucket indices are computed exactly.
const bucketsPerSecond = 2

// BucketIndex returns the index of the bucket containing the sample at sampleIndex, i.e.
// floor((sampleIndex / sampleRate) / BucketSeconds). Integer arithmetic keeps bucket boundaries
// exact for every sample rate.
func BucketIndex(sampleIndex int64, sampleRate int) int64 {
	return sampleIndex * bucketsPerSecond / int64(sampleRate)
}

// BucketStart returns the start time in seconds of the bucket with the given index.
func BucketStart(index int64) float64 {
	return float64(index) * BucketSeconds
}

// BucketSet is a deduplicated set of flagged buckets, keyed by bucket index. The zero value is
// not usable; create one with NewBucketSet.
type BucketSet struct {
	idx map[int64]struct{}
}

// NewBucketSet returns an empty set.
func NewBucketSet() BucketSet {
	return BucketSet{idx: make(map[int64]struct{})}
}

// Add inserts the bucket index and reports whether it was not already present.
func (s BucketSet) Add(index int64) bool {
	if _, ok := s.idx[index]; ok {
		return false
	}
	s.idx[index] = struct{}{}
	return true
}

// Len returns the number of distinct buckets.
func (s BucketSet) Len() int {
	return len(s.idx)
}

// Union adds every bucket of other to s.
func (s BucketSet) Union(other BucketSet) {
	for i := range other.idx {
		s.idx[i] = struct{}{}
	}
}

// Clone returns an independent copy of s.
func (s BucketSet) Clone() BucketSet {
	c := BucketSet{idx: make(map[int64]struct{}, len(s.idx))}
	c.Union(s)
	return c
}

// Indices returns the bucket indices in ascending order.
func (s BucketSet) Indices() []int64 {
	out := make([]int64, 0, len(s.idx))
	for i := range s.idx {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Times returns the bucket start times in seconds, sorted for display. Every value is an exact
// multiple of BucketSeconds.
func (s BucketSet) Times() []float64 {
	indices := s.Indices()
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = BucketStart(idx)
	}
	return out
}

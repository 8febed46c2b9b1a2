// SPDX-License-Identifier: MIT
package analysis

// BlockProcessor is implemented by components that consume live sample blocks in arrival order.
// ProcessBlock is called from a single goroutine; implementations must not retain the block.
type BlockProcessor interface {
	ProcessBlock(block []float64)
}

// ClosableProcessor combines BlockProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	BlockProcessor
	Close() error // Close releases any resources held by the processor.
}

// ResettableProcessor is a BlockProcessor whose per-capture state can be cleared before a new
// capture starts.
type ResettableProcessor interface {
	BlockProcessor
	Reset()
}

// BucketProvider exposes the buckets flagged so far by a detector that runs concurrently with its
// readers (the live monitor, status frames).
type BucketProvider interface {
	Buckets() BucketSet // Buckets returns a copy of the current bucket set.
	Threshold() float64 // Threshold returns the amplitude threshold currently applied.
}

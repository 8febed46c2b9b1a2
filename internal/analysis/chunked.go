// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"fmt"
	"runtime"

	applog "popdetect/internal/log"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSeconds is the chunk duration used when ChunkOptions.ChunkSamples is zero.
const DefaultChunkSeconds = 600

// ChunkOptions configures DetectChunked.
type ChunkOptions struct {
	ChunkSamples int // Samples per chunk; 0 selects DefaultChunkSeconds worth of samples.
	Workers      int // Maximum concurrent chunk scans; 0 selects GOMAXPROCS.
}

// Span is a half-open range [Start, End) of absolute sample indices.
type Span struct {
	Start int
	End   int
}

// Chunks partitions n samples into contiguous, non-overlapping spans of at most size samples.
// Every index in [0, n) belongs to exactly one span.
func Chunks(n, size int) []Span {
	if n <= 0 || size <= 0 {
		return nil
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// ChunkSamplesFor converts a chunk duration in seconds to a sample count, never less than one.
func ChunkSamplesFor(seconds float64, sampleRate int) int {
	return max(int(seconds*float64(sampleRate)), 1)
}

// DetectChunked computes the same bucket set as Detect by scanning disjoint chunks on a bounded
// worker pool. Each worker fills its own set; the sets are unioned once every worker is done.
// Cancellation of ctx stops chunks that have not started yet.
func DetectChunked(ctx context.Context, samples []float64, sampleRate int, threshold float64, opts ChunkOptions) (BucketSet, error) {
	if err := validate(sampleRate, threshold); err != nil {
		return BucketSet{}, err
	}
	if opts.ChunkSamples < 0 {
		return BucketSet{}, fmt.Errorf("%w, got %d", ErrInvalidChunkSize, opts.ChunkSamples)
	}
	if opts.ChunkSamples == 0 {
		opts.ChunkSamples = ChunkSamplesFor(DefaultChunkSeconds, sampleRate)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	spans := Chunks(len(samples), opts.ChunkSamples)
	results := make([]BucketSet, len(spans))

	applog.Debugf("Analysis: chunked scan (samples: %d, chunks: %d, workers: %d)",
		len(samples), len(spans), opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, span := range spans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := NewBucketSet()
			scanRange(samples[span.Start:span.End], int64(span.Start), sampleRate, threshold, local)
			results[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BucketSet{}, fmt.Errorf("chunked detection: %w", err)
	}

	set := NewBucketSet()
	for _, r := range results {
		set.Union(r)
	}
	return set, nil
}

// SPDX-License-Identifier: MIT
/*
Package analysis implements amplitude "pop" detection.

A pop is any sample whose absolute amplitude exceeds the operator threshold. Exceedances are
grouped into 0.5 second buckets so that a burst of loud samples counts once per half second:

	t      = index / sampleRate
	bucket = floor(t / 0.5) * 0.5

The scan is stateless and single pass. DetectChunked splits the buffer into disjoint chunks and
scans them on a bounded worker pool; LiveDetector applies the same rule block by block while a
capture is running.
*/
package analysis

import "math"

// Detect returns the set of buckets containing at least one sample with |sample| > threshold.
// An empty buffer yields an empty set.
func Detect(samples []float64, sampleRate int, threshold float64) (BucketSet, error) {
	if err := validate(sampleRate, threshold); err != nil {
		return BucketSet{}, err
	}
	set := NewBucketSet()
	scanRange(samples, 0, sampleRate, threshold, set)
	return set, nil
}

// scanRange flags the buckets of samples, treating samples[0] as absolute index offset.
// A bucket already flagged lets the scan skip ahead to the next bucket boundary.
func scanRange(samples []float64, offset int64, sampleRate int, threshold float64, set BucketSet) {
	n := int64(len(samples))
	for i := int64(0); i < n; i++ {
		// NaN never exceeds the threshold.
		if !(math.Abs(samples[i]) > threshold) {
			continue
		}
		bucket := BucketIndex(offset+i, sampleRate)
		set.Add(bucket)

		// First absolute index of the next bucket: ceil((bucket+1) * rate / 2).
		next := ((bucket+1)*int64(sampleRate) + bucketsPerSecond - 1) / bucketsPerSecond
		if skip := next - offset - 1; skip > i {
			i = skip
		}
	}
}

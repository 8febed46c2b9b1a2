// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-2 helpers used to validate capture buffer sizes and to
size the capture block queue. Both functions are O(1) and allocation free.

	queue := bitint.NextPowerOfTwo(blocksPerSecond) // 86.1 blocks/s at 44.1kHz/512 -> 128
	ok := bitint.IsPowerOfTwo(framesPerBuffer)

NextPowerOfTwo subtracts one before taking the bit length so exact powers of 2 are preserved:
for 8, bits.Len(7) = 3 and 1<<3 = 8; without the subtraction bits.Len(8) = 4 would double it.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Sizes <= 0 return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of 2 has a single bit set,
// so n & (n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import "golang.org/x/exp/constraints"

// RoundDown rounds x down to a multiple of y, where y must be a power
// of 2, generic over unsigned integer width since the engine rounds
// both 32-bit section offsets and 64-bit addresses.
func RoundDown[T constraints.Unsigned](x, y T) T {
	if y&(y-1) != 0 {
		panic("y must be a power of 2")
	}
	return x &^ (y - 1)
}

// RoundUp rounds x up to a multiple of y, where y must be a power of 2.
func RoundUp[T constraints.Unsigned](x, y T) T {
	if y&(y-1) != 0 {
		panic("y must be a power of 2")
	}
	return (x + y - 1) &^ (y - 1)
}

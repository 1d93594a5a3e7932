// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runelf

import "sort"

// addrBoundary is one point where the "symbol covering this address"
// answer changes, within a single section's entries.
type addrBoundary struct {
	addr uint64
	id   int // index into Index.entries
}

// addrIndexFor builds a sorted boundary list for every entry in
// section with a non-zero size, so Addr can binary-search rather than
// scan, using a sorted-boundary-with-overlap-stack scheme: entries
// are sorted by start address then by size (smaller wins ties, since
// a more specific nested symbol should shadow its enclosing one), and
// a stack of still-open entries produces a boundary marker each time
// coverage drops back to an enclosing entry or to "nothing".
func addrIndexFor(entries []Entry, section int) []addrBoundary {
	var ids []int
	for i, e := range entries {
		if e.Section == section && e.Size != 0 {
			ids = append(ids, i)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool {
		ei, ej := entries[ids[i]], entries[ids[j]]
		if ei.Value != ej.Value {
			return ei.Value < ej.Value
		}
		if ei.Size != ej.Size {
			return ei.Size > ej.Size
		}
		return ids[i] > ids[j]
	})

	var out []addrBoundary
	stack := make([]addrBoundary, 0, 8) // addr holds each open entry's *end* address
	drain := func(addr uint64) {
		for len(stack) > 0 {
			end := stack[len(stack)-1].addr
			if end > addr {
				return
			}
			for len(stack) > 0 && stack[len(stack)-1].addr == end {
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 {
				out = append(out, addrBoundary{end, stack[len(stack)-1].id})
			}
		}
	}
	for _, id := range ids {
		e := entries[id]
		drain(e.Value)
		start := addrBoundary{e.Value, id}
		if len(out) > 0 && out[len(out)-1].addr == e.Value {
			out[len(out)-1] = start
		} else {
			out = append(out, start)
		}
		stack = append(stack, addrBoundary{e.Value + e.Size, id})
		for i := len(stack) - 1; i >= 1 && stack[i].addr > stack[i-1].addr; i-- {
			stack[i], stack[i-1] = stack[i-1], stack[i]
		}
	}
	drain(^uint64(0))
	return out
}

// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import "sort"

// SynthesizeSizes assigns sizes to symbols that don't have one, using
// the gap to the next symbol in the same section (or the end of the
// section for the last symbol), generalized from a flat symbol slice
// to Container's pointer-linked Symbols.
//
// Some compilers omit st_size for symbols inside a bundled section;
// a correct size matters to the section-symbol replacer, which needs
// symbol bounds to find the target of a section-relative relocation.
func SynthesizeSizes(syms []*Symbol) {
	var todo []*Symbol
	for _, s := range syms {
		if s.Section == nil || s.Type == SymSection {
			continue
		}
		if s.Value > uint64(len(s.Section.Payload)) {
			continue
		}
		todo = append(todo, s)
	}
	sort.Slice(todo, func(i, j int) bool {
		if todo[i].Section != todo[j].Section {
			return todo[i].Section.Index < todo[j].Section.Index
		}
		return todo[i].Value < todo[j].Value
	})

	for len(todo) != 0 {
		s1 := todo[0]
		group := 1
		anyZero := s1.Size == 0
		for group < len(todo) {
			s2 := todo[group]
			if s1.Value != s2.Value || s1.Section != s2.Section {
				break
			}
			if s2.Size == 0 {
				anyZero = true
			}
			group++
		}
		if !anyZero {
			todo = todo[group:]
			continue
		}

		var size uint64
		if group == len(todo) || s1.Section != todo[group].Section {
			size = uint64(len(s1.Section.Payload)) - s1.Value
		} else {
			size = todo[group].Value - s1.Value
		}
		for _, s := range todo[:group] {
			if s.Size == 0 {
				s.Size = size
			}
		}
		todo = todo[group:]
	}
}

// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"bytes"

	"github.com/patchkit-dev/objdiff/obj"
)

// Compare classifies every correlated (Twin != nil) section and
// symbol in patched as SAME or CHANGED. Correlate must have already run.
func Compare(patched *obj.Container) {
	for _, s := range patched.Sections {
		if s.Twin == nil {
			continue
		}
		if sectionsEqual(s, s.Twin) {
			s.Status, s.Twin.Status = obj.StatusSame, obj.StatusSame
		} else {
			s.Status, s.Twin.Status = obj.StatusChanged, obj.StatusChanged
		}
	}
	for _, sym := range patched.Symbols {
		if sym.Twin == nil {
			continue
		}
		sym.Status, sym.Twin.Status = symbolStatus(sym)
	}
}

// sectionsEqual reports whether a and b (correlated twins) are
// identical. Debug/exception-handling sections compare structurally
// via their relocation lists, since their payload encodes symbol
// references that are expected to differ even when nothing meaningful
// changed.
func sectionsEqual(a, b *obj.Section) bool {
	if a.IsDebugSection() || isExceptionSection(a.Name) {
		return relocationsEqual(a, b)
	}
	if len(a.Payload) != len(b.Payload) || !bytes.Equal(a.Payload, b.Payload) {
		return false
	}
	return relocationsEqual(a, b)
}

func relocationsEqual(a, b *obj.Section) bool {
	ra, rb := relocsOf(a), relocsOf(b)
	if len(ra) != len(rb) {
		return false
	}
	matched := make([]bool, len(rb))
	for _, r := range ra {
		found := false
		for i, r2 := range rb {
			if matched[i] {
				continue
			}
			if r.SameAs(r2) {
				matched[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func relocsOf(s *obj.Section) []*obj.Relocation {
	if s.RelocSection == nil {
		return nil
	}
	return s.RelocSection.Relocations
}

// symbolStatus derives a symbol's status from its defining section's
// status when it has one (a FUNC/OBJECT bundle); a paired symbol
// without a section of its own (an extern, an absolute) is SAME when
// its value and size match its twin's, CHANGED otherwise.
func symbolStatus(sym *obj.Symbol) (obj.Status, obj.Status) {
	if sym.Section != nil && sym.Twin.Section != nil {
		return sym.Section.Status, sym.Twin.Section.Status
	}
	if sym.Value == sym.Twin.Value && sym.Size == sym.Twin.Size {
		return obj.StatusSame, obj.StatusSame
	}
	return obj.StatusChanged, obj.StatusChanged
}

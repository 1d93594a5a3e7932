// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import "fmt"

// A Relocation is one entry of a ".rela.X" section. The
// engine only deals with RELA-style (explicit addend) relocations,
// which is what per-function/per-data-sectioned compilations emit; a
// REL-type input is out of scope.
type Relocation struct {
	// RelocSection is the ".rela.X" section this entry belongs to.
	RelocSection *Section
	// BaseSection is the ".X" section this entry applies within.
	BaseSection *Section

	// Target is the symbol this relocation references. Every
	// relocation's target symbol is present in RelocSection.Container's
	// symbol list.
	Target *Symbol

	// Type is the raw, machine-specific relocation type code. Use the
	// owning container's Desc (an arch.Descriptor) to interpret it.
	Type uint32

	// Offset is the byte offset within BaseSection this relocation
	// applies at.
	Offset uint64

	Addend int64

	// Twin is this relocation's counterpart in the other container,
	// correlated by (offset within base, type).
	Twin *Relocation
}

func (r *Relocation) String() string {
	if r == nil {
		return "<nil reloc>"
	}
	return fmt.Sprintf("%s+%#x: %s(%s)+%d", r.BaseSection, r.Offset, r.Target, r.RelocSection.Container.Desc.RelocName(r.Type), r.Addend)
}

// SameAs reports whether r and other describe structurally equal
// relocations: equal type, equal offset, equal addend, and equal
// *paired* target symbol -- i.e. it honors correlation (Target.Twin),
// not pointer identity, since comparing relocation lists across
// containers must follow the correlation, not object identity.
func (r *Relocation) SameAs(other *Relocation) bool {
	if r.Type != other.Type || r.Offset != other.Offset || r.Addend != other.Addend {
		return false
	}
	if r.Target == other.Target {
		return true
	}
	if r.Target == nil || other.Target == nil {
		return false
	}
	return r.Target.Twin == other.Target || other.Target.Twin == r.Target
}

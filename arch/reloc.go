// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import "debug/elf"

// A Descriptor supplies the architecture-specific facts the diffing
// engine needs about relocations: their size, whether they measure a
// PC-relative displacement (and therefore carry an implicit bias baked
// into the compiler-emitted addend), and whether they are a "wide
// absolute" reference (used by the section-symbol replacer's edge
// policy).
//
// Every branch on relocation type in the section-symbol replacer and
// the symbol-table rebuild should go through a Descriptor rather than
// switching on elf.R_* constants directly, so that adding a machine
// only means adding a Descriptor.
type Descriptor interface {
	Arch() *Arch

	// RelocName returns a human-readable name for a raw relocation type.
	RelocName(relType uint32) string

	// RelocSize returns the size in bytes of the relocation's target
	// field, or -1 if relType is not recognized.
	RelocSize(relType uint32) int

	// ImplicitBias returns the value that must be subtracted from
	// (reloc.Offset + reloc.Addend) to recover the byte offset the
	// relocation actually targets within its symbol's section. PC-relative
	// relocations carry this bias because the compiler's addend already
	// encodes the displacement from the end of the relocation field
	// (per the relevant psABI's relocation-calculation formulas); absolute
	// relocations have no bias.
	ImplicitBias(relType uint32) int64

	// IsWideAbsolute reports whether relType is a 32- or 64-bit absolute
	// relocation of the kind the edge policy treats
	// as fatal when it targets exactly the end of a section.
	IsWideAbsolute(relType uint32) bool
}

// DescriptorFor returns the Descriptor for the given ELF machine, or nil
// if the machine is not supported: the engine only needs to support
// the machines it can actually diff.
func DescriptorFor(machine elf.Machine) Descriptor {
	switch machine {
	case elf.EM_X86_64:
		return descAMD64{}
	case elf.EM_386:
		return desc386{}
	case elf.EM_AARCH64:
		return descARM64{}
	}
	return nil
}

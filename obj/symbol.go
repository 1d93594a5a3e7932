// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"fmt"
	"strings"

	"github.com/patchkit-dev/objdiff/runelf"
)

// SymType is a symbol's ELF type, narrowed to the five kinds the
// differencing engine distinguishes.
type SymType uint8

const (
	SymNotype SymType = iota
	SymObject
	SymFunc
	SymSection
	SymFile
)

func (t SymType) String() string {
	switch t {
	case SymObject:
		return "OBJECT"
	case SymFunc:
		return "FUNC"
	case SymSection:
		return "SECTION"
	case SymFile:
		return "FILE"
	default:
		return "NOTYPE"
	}
}

// Binding is a symbol's ELF binding.
type Binding uint8

const (
	BindLocal Binding = iota
	BindGlobal
	BindWeak
)

func (b Binding) String() string {
	switch b {
	case BindGlobal:
		return "GLOBAL"
	case BindWeak:
		return "WEAK"
	default:
		return "LOCAL"
	}
}

// A Symbol is an ELF symbol-table entry.
type Symbol struct {
	Container *Container

	Name    string
	Type    SymType
	Binding Binding

	// Value is this symbol's offset within Section, or an absolute
	// value for SHN_ABS symbols (Section == nil in that case too, see
	// Absolute).
	Value uint64
	Size  uint64

	// Index is this symbol's position in Container.Symbols, reassigned
	// densely by the Migrator when writing.
	Index int

	// Section is the section this symbol is defined in, or nil if the
	// symbol is undefined (external) or absolute.
	Section *Section
	// Absolute marks an SHN_ABS symbol: Section is nil but the symbol
	// is not an unresolved external.
	Absolute bool

	// Parent and Children link .cold/.part subfunctions to the
	// function they were split from. Parent is nil for
	// ordinary functions and for cold/part symbols whose parent lookup
	// failed (non-fatal: the symbol is simply treated as unrelated).
	Parent   *Symbol
	Children []*Symbol

	Status Status
	// Twin is this symbol's counterpart in the other container,
	// correlated by (name, type, binding), disambiguated for colliding
	// locals by the STT_FILE block each side belongs to.
	Twin *Symbol

	Include bool

	// LookupRunningFileSym is set by the local-symbol anchor on every
	// local symbol in a matched STT_FILE block: it points at the running
	// binary's STT_FILE entry the block was matched to. The Correlator
	// copies it onto the patched twin.
	LookupRunningFileSym *runelf.Entry

	// ExternalResolve marks a stub symbol:
	// a SAME local FUNC included with an emptied section so the link
	// still resolves, which the patch loader must resolve externally
	// against the running binary rather than within the patch module.
	// This is encoded into the raw st_other byte at write time,
	// following the resolution convention the kernel-side patch loader
	// expects for externally-resolved symbols.
	ExternalResolve bool

	// SymPos disambiguates same-named local symbols at patch-apply
	// time: the ordinal position of this symbol among all running-ELF
	// entries sharing its name. Populated by the local anchor alongside
	// LookupRunningFileSym.
	SymPos int
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil symbol>"
	}
	return s.Name
}

// IsCold reports whether name looks like a compiler-split cold/part
// subfunction (".cold" or ".part.N" suffix), and if so returns the
// parent function's name. Both suffixes are checked explicitly rather
// than relying on a single ambiguous substring search.
func IsCold(name string) (parent string, ok bool) {
	if i := strings.Index(name, ".cold"); i >= 0 {
		return name[:i], true
	}
	if i := strings.Index(name, ".part."); i >= 0 {
		return name[:i], true
	}
	return "", false
}

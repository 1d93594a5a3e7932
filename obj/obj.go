// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obj provides the mutable in-memory ELF object model the
// differencing engine operates on: an ELF container
// holding ordered sections, symbols and strings, with the cross-links
// (defining symbol, base/reloc section pairs, correlation twins)
// the pipeline stages populate as they run.
//
// Unlike a read-only object-file browser, every entity here is
// designed to be mutated in place by stages 2 through 8 of the
// pipeline and then partitioned by the Migrator (stage 10): included
// elements move to a fresh output Container, the rest is discarded
// with the owning Container.
package obj

import (
	"debug/elf"
	"fmt"

	"github.com/patchkit-dev/objdiff/arch"
)

// Status is the outcome of correlating an element of one container
// against its counterpart in another.
type Status uint8

const (
	// StatusUnknown is the zero value, before correlation has run.
	StatusUnknown Status = iota
	// StatusSame means a twin was found and compared identical.
	StatusSame
	// StatusChanged means a twin was found and compared different.
	StatusChanged
	// StatusNew means no twin was found in the other container.
	StatusNew
)

func (s Status) String() string {
	switch s {
	case StatusSame:
		return "SAME"
	case StatusChanged:
		return "CHANGED"
	case StatusNew:
		return "NEW"
	default:
		return "UNKNOWN"
	}
}

// Container owns the ordered sequences of sections, symbols, and
// strings that make up one ELF object: the source, the patched
// version, or the output. Cross-links between entities (defining
// symbol, base/reloc section, parent/child, correlation twin) are
// plain pointers into the same or another Container; only one arena
// -- the Container itself -- owns storage, to avoid ownership cycles.
type Container struct {
	// Name identifies this container for diagnostics, conventionally
	// the input file's basename.
	Name string

	// Header carries the subset of the ELF file header the source and
	// patched objects must agree on, and that the writer uses as a
	// template for the output object.
	Header elf.FileHeader

	// Machine is the ELF machine this container was parsed for.
	Machine elf.Machine

	// ProgramHeaderCount is the number of program headers the source
	// file carried.
	ProgramHeaderCount int

	// Desc is the architecture descriptor for Machine, or nil if
	// Machine is unsupported.
	Desc arch.Descriptor

	// Sections and Symbols are ordered, append-only sequences (until
	// the Migrator's final partition). Order is significant: symtab
	// emission and local-block scanning (§4.3) both
	// depend on it.
	Sections []*Section
	Symbols  []*Symbol

	// Strings are string-table bytes shared across strtab/shstrtab.
	// The writer rebuilds these from live names rather
	// than reusing whatever offsets were loaded.
	Strings []string

	// sectionsByName and symbolsByName are auxiliary indices for O(1)
	// lookup that never reorder Sections/Symbols themselves (design
	// notes §9: "auxiliary name-indexed map for lookups without
	// disturbing order").
	sectionsByName map[string]*Section
	symbolsByName  map[string][]*Symbol
}

// NewContainer returns an empty Container ready to have sections and
// symbols appended to it (used by the Loader and by the Migrator when
// building O_out).
func NewContainer(name string) *Container {
	return &Container{
		Name:           name,
		sectionsByName: make(map[string]*Section),
		symbolsByName:  make(map[string][]*Symbol),
	}
}

// AddSection appends s to c, assigning it the next Index and
// registering it in the name index. s.Container is set to c.
func (c *Container) AddSection(s *Section) *Section {
	s.Container = c
	s.Index = len(c.Sections)
	c.Sections = append(c.Sections, s)
	if s.Name != "" {
		c.sectionsByName[s.Name] = s
	}
	return s
}

// AddSymbol appends sym to c, assigning it the next Index and
// registering it in the name index. sym.Container is set to c.
func (c *Container) AddSymbol(sym *Symbol) *Symbol {
	sym.Container = c
	sym.Index = len(c.Symbols)
	c.Symbols = append(c.Symbols, sym)
	if sym.Name != "" {
		c.symbolsByName[sym.Name] = append(c.symbolsByName[sym.Name], sym)
	}
	return sym
}

// Section looks up a section by name, or returns nil.
func (c *Container) Section(name string) *Section {
	return c.sectionsByName[name]
}

// SymbolsNamed returns every symbol named name, in insertion order. May
// be empty. May have more than one element for colliding file-scope
// locals or when a name is both a local and a global in
// different translation units.
func (c *Container) SymbolsNamed(name string) []*Symbol {
	return c.symbolsByName[name]
}

// NullSymbol returns the container's index-0 "no symbol" entry,
// creating it if it doesn't exist yet. Every ELF symbol table begins
// with this entry; the Includer always
// marks it included.
func (c *Container) NullSymbol() *Symbol {
	if len(c.Symbols) > 0 && c.Symbols[0].Name == "" && c.Symbols[0].Type == SymNotype {
		return c.Symbols[0]
	}
	null := &Symbol{Name: "", Type: SymNotype, Binding: BindLocal, Status: StatusSame}
	// Splice to the front rather than appending, since the null symbol
	// must occupy index 0.
	c.Symbols = append([]*Symbol{null}, c.Symbols...)
	null.Container = c
	null.Index = 0
	for i := 1; i < len(c.Symbols); i++ {
		c.Symbols[i].Index = i
	}
	return null
}

func (c *Container) String() string {
	return fmt.Sprintf("%s(%d sections, %d symbols)", c.Name, len(c.Sections), len(c.Symbols))
}

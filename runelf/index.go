// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runelf builds the read-only "running-ELF index":
// a flat, ordered view of a fully linked executable or shared object's
// symbol table, used by the differencing engine to anchor file-scope
// locals and to resolve stubs and unincluded symbols
// against the address space of the process being patched.
//
// The index is deliberately not built on top of package obj's mutable
// Container: R is never mutated, never diffed against itself, and
// never written back out, so it gets its own minimal, read-only
// representation, adapted from a linked binary's address/name
// symbol table representation.
package runelf

import (
	"debug/elf"
	"fmt"
	"sort"
)

// An Entry is one symbol-table entry from the running binary.
type Entry struct {
	Name    string
	Type    elf.SymType
	Binding elf.SymBind
	Value   uint64
	Size    uint64
	Section int // ELF section index (SHN_*)

	// idx is this entry's position in Index.entries, the stable ordinal
	// the two-way file-block match walks over.
	idx int
}

// Index is the flat, ordered sequence of symbols extracted from a
// running ELF binary.
type Index struct {
	entries []Entry

	// byName indexes every entry by name. Multiple entries can share a
	// name (duplicate static locals across translation units), so this
	// maps to a slice, in the order symbols appear in entries.
	byName map[string][]int

	// fileBlocks are the positions of STT_FILE entries in entries, in
	// order, used to carve out the per-TU local blocks that the
	// anchoring step two-way matches against.
	fileBlocks []int
}

// Load reads the symbol table of a fully linked ELF executable or
// shared object (r must not be an ET_REL object: relocatable objects
// don't carry meaningful addresses, and R is always the patch target,
// never one of the two diff inputs).
func Load(f *elf.File) (*Index, error) {
	if f.Type == elf.ET_REL {
		return nil, fmt.Errorf("runelf: running binary must not be a relocatable object (got %s)", f.Type)
	}

	syms, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("runelf: reading symbol table: %w", err)
	}

	entries := make([]Entry, len(syms))
	for i, s := range syms {
		entries[i] = Entry{
			Name:    s.Name,
			Type:    elf.ST_TYPE(s.Info),
			Binding: elf.ST_BIND(s.Info),
			Value:   s.Value,
			Size:    s.Size,
			Section: int(s.Section),
		}
	}
	return NewIndex(entries), nil
}

// NewIndex builds an Index directly from a pre-decoded entry list, for
// callers that already have running-ELF symbols in hand rather than
// an *elf.File to decode -- tests, and anything that synthesizes a
// running-binary view without going through debug/elf.
func NewIndex(entries []Entry) *Index {
	idx := &Index{byName: make(map[string][]int, len(entries))}
	for _, e := range entries {
		e.idx = len(idx.entries)
		idx.entries = append(idx.entries, e)
		idx.byName[e.Name] = append(idx.byName[e.Name], e.idx)
		if e.Type == elf.STT_FILE {
			idx.fileBlocks = append(idx.fileBlocks, e.idx)
		}
	}
	return idx
}

// Entries returns all entries, in their original symbol-table order.
// The caller must not modify the returned slice.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// Names returns the positions of every entry named name, in table
// order. The result may be empty, or may have more than one element if
// name collides across translation units (static locals) or between a
// global and file-scope symbol.
func (idx *Index) Names(name string) []int {
	return idx.byName[name]
}

// FileBlocks returns the index, within Entries, of every STT_FILE
// marker, in order.
func (idx *Index) FileBlocks() []int {
	return idx.fileBlocks
}

// BlockAfter returns the half-open range [start, end) of entries that
// follow the STT_FILE marker at position fileIdx, up to (but not
// including) the next STT_FILE marker or the end of the table.
func (idx *Index) BlockAfter(fileIdx int) (start, end int) {
	start = fileIdx + 1
	end = len(idx.entries)
	for _, fb := range idx.fileBlocks {
		if fb > fileIdx {
			end = fb
			break
		}
	}
	return start, end
}

// Addr returns the index (into Entries) of the entry whose
// [Value, Value+Size) range contains addr within the given section,
// preferring the most specific (smallest, innermost) entry when
// several overlap, or -1 if none match. This backs the migrator's
// partial-resolve fallback: recovering the address/size of a symbol
// the output couldn't include, from the running binary.
func (idx *Index) Addr(section int, addr uint64) int {
	boundaries := addrIndexFor(idx.entries, section)
	i := sort.Search(len(boundaries), func(i int) bool {
		return addr < boundaries[i].addr
	}) - 1
	if i < 0 {
		return -1
	}
	id := boundaries[i].id
	e := idx.entries[id]
	if e.Value+e.Size <= addr {
		return -1
	}
	return id
}

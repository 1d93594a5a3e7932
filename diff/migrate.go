// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"github.com/patchkit-dev/objdiff/obj"
	"github.com/patchkit-dev/objdiff/runelf"
)

// PatchEntry pairs an included, changed function symbol with the
// address of the function it replaces in the running binary. The
// live-patch loader walks this table to redirect calls from OldAddr
// to NewSymbol's resolved address.
type PatchEntry struct {
	NewSymbol *obj.Symbol
	OldAddr   uint64
	SymPos    int
}

// Migrate moves every included section and symbol from patched into a
// fresh output container, resetting indices, and builds the
// patch-entry table. Symbols are emitted locals-first, preserving each
// partition's insertion order, matching the symbol-table ordering ELF
// itself requires (all STB_LOCAL entries before the first global).
//
// The correspondence between a patched-container entity and its
// migrated copy is tracked in plain local maps rather than a field on
// Section/Symbol: migration is a one-time bookkeeping concern of this
// stage, not a permanent part of the object model.
func Migrate(patched *obj.Container, running *runelf.Index) (*obj.Container, []PatchEntry) {
	out := obj.NewContainer(patched.Name)
	out.Header = patched.Header
	out.Machine = patched.Machine
	out.Desc = patched.Desc

	secOf := make(map[*obj.Section]*obj.Section, len(patched.Sections))
	symOf := make(map[*obj.Symbol]*obj.Symbol, len(patched.Symbols))

	for _, s := range patched.Sections {
		if !s.Include {
			continue
		}
		moved := &obj.Section{
			Name: s.Name, Type: s.Type, Flags: s.Flags,
			Link: s.Link, Info: s.Info, Addralign: s.Addralign, Entsize: s.Entsize,
			Payload: s.Payload, Status: s.Status,
		}
		out.AddSection(moved)
		secOf[s] = moved
	}

	var locals, globals []*obj.Symbol
	for _, sym := range patched.Symbols {
		if !sym.Include {
			continue
		}
		if sym.Binding == obj.BindLocal {
			locals = append(locals, sym)
		} else {
			globals = append(globals, sym)
		}
	}
	moveSym := func(sym *obj.Symbol) {
		moved := &obj.Symbol{
			Name: sym.Name, Type: sym.Type, Binding: sym.Binding,
			Value: sym.Value, Size: sym.Size, Absolute: sym.Absolute,
			ExternalResolve: sym.ExternalResolve, SymPos: sym.SymPos, Status: sym.Status,
		}
		if sym.Section != nil {
			moved.Section = secOf[sym.Section] // nil if that section wasn't included: becomes undefined
		}
		out.AddSymbol(moved)
		symOf[sym] = moved
	}
	for _, sym := range locals {
		moveSym(sym)
	}
	for _, sym := range globals {
		moveSym(sym)
	}

	// Second pass: now every migrated section and symbol exists, wire
	// up the cross-links (defining symbol, base/reloc section,
	// relocation targets) between migrated copies.
	for _, s := range patched.Sections {
		moved, ok := secOf[s]
		if !ok {
			continue
		}
		if s.BaseSection != nil {
			moved.BaseSection = secOf[s.BaseSection]
		}
		if s.RelocSection != nil {
			moved.RelocSection = secOf[s.RelocSection]
		}
		if s.DefiningSymbol != nil {
			moved.DefiningSymbol = symOf[s.DefiningSymbol]
		}
		moved.Relocations = make([]*obj.Relocation, 0, len(s.Relocations))
		for _, r := range s.Relocations {
			target, ok := symOf[r.Target]
			if !ok {
				continue
			}
			moved.Relocations = append(moved.Relocations, &obj.Relocation{
				BaseSection: moved.BaseSection, RelocSection: moved,
				Type: r.Type, Offset: r.Offset, Addend: r.Addend,
				Target: target,
			})
		}
	}

	resolveAgainstRunning(out, running)
	entries := buildPatchEntries(out, running)
	return out, entries
}

// resolveAgainstRunning copies address/size from the running-ELF
// index into any migrated symbol that still has no section (an
// undefined external, including stub-rule symbols), so the loader can
// resolve it against the process being patched.
func resolveAgainstRunning(out *obj.Container, running *runelf.Index) {
	if running == nil {
		return
	}
	for _, sym := range out.Symbols {
		if sym.Section != nil || sym.Absolute || sym.Name == "" {
			continue
		}
		entry := lookupRunning(running, sym.Name, sym.SymPos)
		if entry == nil {
			continue
		}
		sym.Value = entry.Value
		sym.Size = entry.Size
	}
}

func buildPatchEntries(out *obj.Container, running *runelf.Index) []PatchEntry {
	if running == nil {
		return nil
	}
	var entries []PatchEntry
	for _, sym := range out.Symbols {
		if sym.Type != obj.SymFunc || sym.Status != obj.StatusChanged {
			continue
		}
		entry := lookupRunning(running, sym.Name, sym.SymPos)
		if entry == nil {
			continue
		}
		entries = append(entries, PatchEntry{NewSymbol: sym, OldAddr: entry.Value, SymPos: sym.SymPos})
	}
	return entries
}

// lookupRunning resolves name to one running-ELF entry. symPos (set by
// AnchorLocals/pairSymbolGroup) picks out the right one among same-
// named candidates from different translation units. When symPos
// doesn't pin down a unique candidate -- a global symbol, or a local
// the anchor never reached -- the address index breaks the tie
// instead of guessing the first candidate: it resolves to whichever
// candidate's own [Value, Value+Size) range actually owns that byte,
// which differs from the naive first pick when duplicate names alias
// the same address with different extents (e.g. an ifunc resolver and
// its resolved target).
func lookupRunning(running *runelf.Index, name string, symPos int) *runelf.Entry {
	candidates := running.Names(name)
	if len(candidates) == 0 {
		return nil
	}
	entries := running.Entries()
	idx := candidates[0]
	if symPos > 0 && symPos < len(candidates) {
		idx = candidates[symPos]
	} else if len(candidates) > 1 {
		first := entries[idx]
		if owner := running.Addr(first.Section, first.Value); owner >= 0 {
			idx = owner
		}
	}
	return &entries[idx]
}

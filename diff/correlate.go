// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import "github.com/patchkit-dev/objdiff/obj"

// Correlate pairs sections, symbols, and relocations between src and
// patched by stable identity.
// Unpaired sections and symbols are marked NEW; everything paired is left as
// StatusUnknown for Compare to classify.
func Correlate(src, patched *obj.Container) {
	correlateSections(src, patched)
	correlateSymbols(src, patched)
	correlateRelocations(src, patched)
}

func correlateSections(src, patched *obj.Container) {
	for _, s := range src.Sections {
		if s.Name == "" {
			continue
		}
		if t := patched.Section(s.Name); t != nil && t.Twin == nil {
			s.Twin, t.Twin = t, s
		}
	}
	for _, s := range src.Sections {
		if s.Twin == nil {
			s.Status = obj.StatusNew
		}
	}
	for _, s := range patched.Sections {
		if s.Twin == nil {
			s.Status = obj.StatusNew
		}
	}
}

// symKey identifies a symbol for correlation purposes: name, type,
// and binding.
type symKey struct {
	name    string
	typ     obj.SymType
	binding obj.Binding
}

func correlateSymbols(src, patched *obj.Container) {
	srcGroups := groupSymbols(src.Symbols)
	patchedGroups := groupSymbols(patched.Symbols)

	matchedFiles := matchFileBlocks(src, patched)
	srcFileOf := symbolFile(src)
	patchedFileOf := symbolFile(patched)

	for key, srcSyms := range srcGroups {
		patchedSyms := patchedGroups[key]
		pairSymbolGroup(srcSyms, patchedSyms, matchedFiles, srcFileOf, patchedFileOf)
	}
	for _, s := range src.Symbols {
		if s.Twin == nil && s.Name != "" {
			s.Status = obj.StatusNew
		}
	}
	for _, s := range patched.Symbols {
		if s.Twin == nil && s.Name != "" {
			s.Status = obj.StatusNew
		}
	}
}

func groupSymbols(syms []*obj.Symbol) map[symKey][]*obj.Symbol {
	groups := make(map[symKey][]*obj.Symbol)
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		key := symKey{s.Name, s.Type, s.Binding}
		groups[key] = append(groups[key], s)
	}
	return groups
}

// pairSymbolGroup pairs same-keyed symbols across containers. A
// singleton on both sides pairs unconditionally. Multiple candidates
// (colliding file-scope statics across translation units) are
// disambiguated by matchedFiles/srcFileOf/patchedFileOf: a source
// candidate and a patched candidate pair only when they belong to
// STT_FILE blocks matched to each other (see matchFileBlocks), so
// this works even though only the source container carries a running-
// ELF anchor. Since the Migrator needs SymPos/LookupRunningFileSym on
// the patched-side symbol it actually emits, a successful pairing
// copies both over from the source twin, which is the side
// AnchorLocals populated.
func pairSymbolGroup(srcSyms, patchedSyms []*obj.Symbol, matchedFiles, srcFileOf, patchedFileOf map[*obj.Symbol]*obj.Symbol) {
	pair := func(s, p *obj.Symbol) {
		s.Twin, p.Twin = p, s
		p.SymPos = s.SymPos
		p.LookupRunningFileSym = s.LookupRunningFileSym
	}
	if len(srcSyms) == 1 && len(patchedSyms) == 1 {
		pair(srcSyms[0], patchedSyms[0])
		return
	}
	used := make(map[*obj.Symbol]bool, len(patchedSyms))
	for _, s := range srcSyms {
		sf, ok := srcFileOf[s]
		if !ok {
			continue
		}
		wantFile, ok := matchedFiles[sf]
		if !ok {
			continue
		}
		for _, p := range patchedSyms {
			if used[p] || patchedFileOf[p] != wantFile {
				continue
			}
			pair(s, p)
			used[p] = true
			break
		}
	}
}

// matchFileBlocks pairs each source STT_FILE symbol with the patched
// STT_FILE symbol for the same translation unit, by file name alone:
// the same source file recompiled still carries the same STT_FILE
// name even when the set of local symbols it defines has changed, so
// this tolerates a file-scope static being added or removed alongside
// a body edit -- unlike matching on the block's full local name set,
// which such a change would break. A source block with no patched
// counterpart (the file was removed) is simply absent from the
// result; its locals fall back to unconditional singleton pairing or
// stay unpaired.
func matchFileBlocks(src, patched *obj.Container) map[*obj.Symbol]*obj.Symbol {
	srcBlocks := fileSymbolBlocks(src)
	patchedBlocks := fileSymbolBlocks(patched)

	matched := make(map[*obj.Symbol]*obj.Symbol, len(srcBlocks))
	used := make(map[*obj.Symbol]bool, len(patchedBlocks))
	for _, sb := range srcBlocks {
		for _, pb := range patchedBlocks {
			if used[pb.file] || pb.file.Name != sb.file.Name {
				continue
			}
			matched[sb.file] = pb.file
			used[pb.file] = true
			break
		}
	}
	return matched
}

// symbolFile maps each local FUNC/OBJECT symbol in c to the STT_FILE
// symbol marking the translation unit it was carved from.
func symbolFile(c *obj.Container) map[*obj.Symbol]*obj.Symbol {
	owner := make(map[*obj.Symbol]*obj.Symbol, len(c.Symbols))
	for _, b := range fileSymbolBlocks(c) {
		for _, s := range b.locals {
			owner[s] = b.file
		}
	}
	return owner
}

func correlateRelocations(src, patched *obj.Container) {
	for _, srcSec := range src.Sections {
		if !srcSec.IsRelocSection() || srcSec.Twin == nil {
			continue
		}
		patchedSec := srcSec.Twin
		for _, r := range srcSec.Relocations {
			for _, r2 := range patchedSec.Relocations {
				if r2.Twin != nil {
					continue
				}
				if r.Offset == r2.Offset && r.Type == r2.Type {
					r.Twin, r2.Twin = r2, r
					break
				}
			}
		}
	}
}

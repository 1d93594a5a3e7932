// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"fmt"

	"github.com/patchkit-dev/objdiff/diff/config"
	"github.com/patchkit-dev/objdiff/internal/imap"
	"github.com/patchkit-dev/objdiff/obj"
)

// ReplaceSectionSymbols rewrites every relocation whose target is a
// SECTION symbol into one targeting the concrete FUNC/OBJECT symbol
// that actually lives at the referenced offset. It is idempotent: a
// relocation already retargeted at a non-SECTION symbol is left
// untouched, so running this twice over the same container yields the
// same relocation list.
func ReplaceSectionSymbols(c *obj.Container, policy *config.Policy) error {
	indices := make(map[*obj.Section]*sectionIndex)
	for _, relocSec := range c.Sections {
		if !relocSec.IsRelocSection() {
			continue
		}
		base := relocSec.BaseSection
		if base != nil && base.IsDebugSection() {
			continue
		}
		for _, r := range relocSec.Relocations {
			if r.Target == nil || r.Target.Type != obj.SymSection {
				continue
			}
			if err := replaceOne(c, r, policy, indices); err != nil {
				return err
			}
		}
	}
	return nil
}

func replaceOne(c *obj.Container, r *obj.Relocation, policy *config.Policy, indices map[*obj.Section]*sectionIndex) error {
	target := r.Target.Section
	if target == nil {
		return fmt.Errorf("%s: section symbol %s has no defining section", c.Name, r.Target)
	}

	if target.DefiningSymbol != nil {
		if r.Addend != 0 {
			return fmt.Errorf("%s: bundled section %s referenced with non-zero addend %d", c.Name, target, r.Addend)
		}
		r.Target = target.DefiningSymbol
		return nil
	}

	bias := c.Desc.ImplicitBias(r.Type)
	targetOff := int64(r.Offset) + r.Addend - bias
	if targetOff < 0 {
		return fmt.Errorf("%s: relocation in %s computes negative offset %d into %s", c.Name, r.RelocSection.BaseSection, targetOff, target)
	}

	idx, ok := indices[target]
	if !ok {
		idx = buildSectionIndex(c, target)
		indices[target] = idx
	}
	if sym := idx.at(uint64(targetOff)); sym != nil {
		r.Target = sym
		r.Addend = int64(uint64(targetOff) - sym.Value)
		return nil
	}

	atEnd := uint64(targetOff) == uint64(len(target.Payload))
	if atEnd && c.Desc.IsWideAbsolute(r.Type) {
		return fmt.Errorf("%s: relocation in %s targets the end of section %s (likely off-by-one)", c.Name, r.RelocSection.BaseSection, target)
	}

	if target.IsStringLiteralPool() || target.IsReadOnlyPool() || policy.IsReadOnlyPool(target.Name) {
		return nil
	}
	return fmt.Errorf("%s: unresolved section-relative relocation into %s at offset %#x", c.Name, target, targetOff)
}

// sectionIndex answers "which symbol covers byte offset X" for one
// section, built once per section and reused across every relocation
// targeting it. Non-zero-size symbols are indexed in an AVL-backed
// interval map for fast overlap queries over a set of byte ranges;
// zero-size symbols -- which would be empty intervals -- are indexed
// by exact offset instead, since they only ever match at their
// precise value, never as a range.
type sectionIndex struct {
	ranges *imap.Imap
	zero   map[uint64]*obj.Symbol
}

// buildSectionIndex scans every FUNC/OBJECT symbol defined in target,
// skipping mapping symbols ($a/$d/$x), which never denote real data.
func buildSectionIndex(c *obj.Container, target *obj.Section) *sectionIndex {
	idx := &sectionIndex{ranges: &imap.Imap{}, zero: make(map[uint64]*obj.Symbol)}
	for _, sym := range c.Symbols {
		if sym.Section != target {
			continue
		}
		if sym.Type != obj.SymFunc && sym.Type != obj.SymObject {
			continue
		}
		if sym.Size == 0 {
			if !isMappingSymbol(sym.Name) {
				idx.zero[sym.Value] = sym
			}
			continue
		}
		idx.ranges.Insert(imap.Interval{Low: sym.Value, High: sym.Value + sym.Size}, sym)
	}
	return idx
}

func (idx *sectionIndex) at(off uint64) *obj.Symbol {
	if _, v := idx.ranges.Find(off); v != nil {
		return v.(*obj.Symbol)
	}
	if sym, ok := idx.zero[off]; ok {
		return sym
	}
	return nil
}

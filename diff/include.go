// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import "github.com/patchkit-dev/objdiff/obj"

// Include computes the transitive closure of elements needed in the
// output object, starting from the CHANGED frontier. It mutates
// patched's Include flags in place; Migrate later partitions on them.
// Running Include again over its own output is a no-op: every
// recursive call below checks Include before doing any work.
func Include(patched *obj.Container) {
	for _, s := range patched.Sections {
		if s.Name == ".rodata" || s.IsStringLiteralPool() || s.IsDebugSection() {
			includeSection(s)
		}
	}

	patched.NullSymbol().Include = true
	for _, sym := range patched.Symbols {
		switch {
		case sym.Type == obj.SymFile:
			sym.Include = true
		case sym.Status == obj.StatusChanged && sym.Type == obj.SymFunc:
			includeSymbol(sym)
		case sym.Status == obj.StatusChanged && sym.Type == obj.SymSection && sym.Section != nil && isExceptionSection(sym.Section.Name):
			includeSymbol(sym)
		case sym.Status == obj.StatusNew && sym.Binding == obj.BindGlobal && sym.Section != nil:
			includeSymbol(sym)
		}
	}

	for _, s := range patched.Sections {
		if s.IsDebugSection() && s.RelocSection != nil {
			filterDebugRelocs(s)
		}
	}
}

func includeSymbol(sym *obj.Symbol) {
	if sym.Include {
		return
	}
	sym.Include = true
	if sym.Section != nil && sym.Status != obj.StatusSame {
		includeSection(sym.Section)
	}
}

func includeSection(s *obj.Section) {
	if s.Include {
		return
	}
	s.Include = true

	if s.DefiningSymbol != nil {
		includeSymbol(s.DefiningSymbol)
	}
	if s.BaseSection != nil {
		includeSection(s.BaseSection)
	}
	if s.RelocSection != nil {
		includeSection(s.RelocSection)
	}
	for _, r := range s.Relocations {
		if r.Target != nil {
			includeRelocTarget(r)
		}
	}
}

// includeRelocTarget applies the stub rule: a SAME local FUNC symbol
// referenced only because an included relocation points at it gets an
// emptied, zero-size section stub rather than pulling its unchanged
// body (and everything it in turn references) into the output. A
// reference from a debug/eh_frame relocation alone doesn't earn a stub:
// the target stays out and filterDebugRelocs drops the relocation.
func includeRelocTarget(r *obj.Relocation) {
	sym := r.Target
	if sym.Include {
		return
	}
	if sym.Status == obj.StatusSame && sym.Type == obj.SymFunc && sym.Binding == obj.BindLocal {
		if r.BaseSection != nil && r.BaseSection.IsDebugSection() {
			return
		}
		sym.Include = true
		sym.ExternalResolve = true
		if sym.Section != nil {
			sym.Section.Include = true
			sym.Section.Payload = nil
		}
		return
	}
	includeSymbol(sym)
}

// filterDebugRelocs drops relocation entries in a debug/eh_frame
// section whose target section didn't make it into the output.
func filterDebugRelocs(debugSec *obj.Section) {
	relocSec := debugSec.RelocSection
	kept := relocSec.Relocations[:0]
	for _, r := range relocSec.Relocations {
		if r.Target == nil {
			continue
		}
		ok := r.Target.Include
		if sec := r.Target.Section; sec != nil {
			ok = ok && sec.Include
		}
		if ok {
			kept = append(kept, r)
		}
	}
	relocSec.Relocations = kept
}

// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"debug/elf"
	"fmt"
	"path/filepath"

	"github.com/patchkit-dev/objdiff/obj"
	"github.com/patchkit-dev/objdiff/runelf"
)

// localBlock is the span of local FUNC/OBJECT symbols following one
// STT_FILE marker, in either the source container or the running
// index -- whichever collection is being scanned.
type localBlock struct {
	names map[string]obj.SymType
}

// AnchorLocals matches each STT_FILE-delimited block of source-side
// local symbols to exactly one STT_FILE block in the running index,
// recording the match on every local in the block. It is run against
// the source container only: the running binary was built from
// source, not patched, so patched local symbols have no running-ELF
// counterpart to anchor against, and a translation unit's local
// population is free to change between source and patched (adding or
// removing a file-scope static is not itself a patchability
// violation). The Correlator disambiguates colliding patched locals by
// the STT_FILE block they share with their paired source symbol
// instead (see matchFileBlocks in correlate.go), and copies the
// resulting SymPos/LookupRunningFileSym over once a pair is found.
// Zero or multiple candidate matches are both fatal, since a missing
// or ambiguous anchor means the Migrator can't safely resolve this
// translation unit's locals against the running binary.
func AnchorLocals(source *obj.Container, running *runelf.Index) error {
	fileSyms := fileSymbolBlocks(source)
	for _, block := range fileSyms {
		srcBlock := localBlockFromSymbols(block.locals)
		if len(srcBlock.names) == 0 {
			continue
		}
		base := filepath.Base(block.file.Name)

		var matchedIdx = -1
		for _, fb := range running.FileBlocks() {
			entry := running.Entries()[fb]
			if filepath.Base(entry.Name) != base {
				continue
			}
			start, end := running.BlockAfter(fb)
			runBlock := localBlockFromEntries(running.Entries()[start:end])
			if !srcBlock.twoWayMatches(runBlock) {
				continue
			}
			if matchedIdx != -1 {
				return fmt.Errorf("%s: duplicate matches for local symbols in file block %q", source.Name, base)
			}
			matchedIdx = fb
		}
		if matchedIdx == -1 {
			return fmt.Errorf("%s: no matching running-binary file block for local symbols in %q", source.Name, base)
		}

		start, end := running.BlockAfter(matchedIdx)
		fileEntry := &running.Entries()[matchedIdx]
		for _, sym := range block.locals {
			sym.LookupRunningFileSym = fileEntry
			sym.SymPos = 0
			for n, id := range running.Names(sym.Name) {
				if id >= start && id < end {
					sym.SymPos = n
					break
				}
			}
		}
	}
	return nil
}

type fileBlock struct {
	file   *obj.Symbol
	locals []*obj.Symbol
}

// fileSymbolBlocks walks the source container's ordered symbol list,
// carving out the run of local FUNC/OBJECT symbols following each
// STT_FILE marker, up to the next STT_FILE or the end of the table --
// the same traversal the running index's BlockAfter performs, kept in
// lock-step so the two-way match below compares like with like.
func fileSymbolBlocks(c *obj.Container) []fileBlock {
	var blocks []fileBlock
	var cur *fileBlock
	for _, sym := range c.Symbols {
		if sym.Type == obj.SymFile {
			blocks = append(blocks, fileBlock{file: sym})
			cur = &blocks[len(blocks)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if sym.Binding != obj.BindLocal {
			continue
		}
		if sym.Type != obj.SymFunc && sym.Type != obj.SymObject {
			continue
		}
		cur.locals = append(cur.locals, sym)
	}
	return blocks
}

func localBlockFromSymbols(syms []*obj.Symbol) localBlock {
	b := localBlock{names: make(map[string]obj.SymType, len(syms))}
	for _, s := range syms {
		b.names[s.Name] = s.Type
	}
	return b
}

func localBlockFromEntries(entries []runelf.Entry) localBlock {
	b := localBlock{names: make(map[string]obj.SymType, len(entries))}
	for _, e := range entries {
		if e.Binding != elf.STB_LOCAL {
			continue
		}
		switch e.Type {
		case elf.STT_FUNC:
			b.names[e.Name] = obj.SymFunc
		case elf.STT_OBJECT:
			b.names[e.Name] = obj.SymObject
		}
	}
	return b
}

// twoWayMatches reports whether every name in a appears in b with the
// same type and vice versa.
func (a localBlock) twoWayMatches(b localBlock) bool {
	if len(a.names) == 0 {
		return false
	}
	for name, typ := range a.names {
		if bt, ok := b.names[name]; !ok || bt != typ {
			return false
		}
	}
	for name, typ := range b.names {
		if at, ok := a.names[name]; !ok || at != typ {
			return false
		}
	}
	return true
}

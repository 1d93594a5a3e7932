// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/patchkit-dev/objdiff/arch"

// InstructionStarts disassembles text (the payload of a code section
// starting at pc) and returns the set of byte offsets, relative to pc,
// at which an instruction begins. It returns ok=false if the given
// architecture has no disassembler (the caller should then skip the
// boundary check rather than fail).
//
// This backs an additional patchability check beyond the core
// verifier rules: a relocation whose offset does not fall on an
// instruction boundary in a .text section almost always indicates the
// section-symbol replacer miscomputed a target, since relocations are
// always applied at a specific operand within an instruction.
func InstructionStarts(a *arch.Arch, text []byte, pc uint64) (starts map[uint64]bool, ok bool) {
	seq, err := Disasm(a, text, pc)
	if err != nil {
		return nil, false
	}
	starts = make(map[uint64]bool, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		starts[seq.Get(i).PC()] = true
	}
	return starts, true
}

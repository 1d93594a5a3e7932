// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import "debug/elf"

// relocInfoX86_64 gives each x86-64 relocation type its field size,
// extended with the PC-relative and wide-absolute classification the
// differencing engine needs.
type relocInfoX86_64 struct {
	size byte
	pc   bool // PC-relative: carries an implicit bias in its addend
	wide bool // "wide absolute": 32- or 64-bit absolute reference
}

var relocsX86_64 = map[elf.R_X86_64]relocInfoX86_64{
	elf.R_X86_64_NONE:     {0, false, false},
	elf.R_X86_64_64:       {8, false, true},
	elf.R_X86_64_PC32:     {4, true, false},
	elf.R_X86_64_GOT32:    {4, false, false},
	elf.R_X86_64_PLT32:    {4, true, false},
	elf.R_X86_64_COPY:     {0, false, false},
	elf.R_X86_64_GLOB_DAT: {8, false, false},
	elf.R_X86_64_JMP_SLOT: {8, false, false},
	elf.R_X86_64_RELATIVE: {8, false, false},
	elf.R_X86_64_GOTPCREL: {4, true, false},
	elf.R_X86_64_32:       {4, false, true},
	elf.R_X86_64_32S:      {4, false, true},
	elf.R_X86_64_16:       {2, false, false},
	elf.R_X86_64_PC16:     {2, true, false},
	elf.R_X86_64_8:        {1, false, false},
	elf.R_X86_64_PC8:      {1, true, false},
	elf.R_X86_64_DTPMOD64: {8, false, false},
	elf.R_X86_64_DTPOFF64: {8, false, false},
	elf.R_X86_64_TPOFF64:  {8, false, false},
	elf.R_X86_64_TLSGD:    {4, true, false},
	elf.R_X86_64_TLSLD:    {4, true, false},
	elf.R_X86_64_DTPOFF32: {4, false, false},
	elf.R_X86_64_GOTTPOFF: {4, true, false},
	elf.R_X86_64_TPOFF32:  {4, false, false},
	elf.R_X86_64_PC64:     {8, true, false},
	elf.R_X86_64_GOTOFF64: {8, false, false},
	elf.R_X86_64_GOTPC32:  {4, true, false},
	elf.R_X86_64_GOT64:    {8, false, false},

	elf.R_X86_64_GOTPCREL64:      {8, true, false},
	elf.R_X86_64_GOTPC64:         {8, true, false},
	elf.R_X86_64_GOTPLT64:        {8, false, false},
	elf.R_X86_64_PLTOFF64:        {8, false, false},
	elf.R_X86_64_SIZE32:          {4, false, false},
	elf.R_X86_64_SIZE64:          {8, false, false},
	elf.R_X86_64_GOTPC32_TLSDESC: {4, true, false},
	elf.R_X86_64_TLSDESC_CALL:    {0, false, false},
	elf.R_X86_64_TLSDESC:         {16, false, false},
	elf.R_X86_64_IRELATIVE:       {8, false, false},
	elf.R_X86_64_GOTPCRELX:       {4, true, false},
	elf.R_X86_64_REX_GOTPCRELX:   {4, true, false},
}

type descAMD64 struct{}

func (descAMD64) Arch() *Arch { return AMD64 }

func (descAMD64) RelocName(relType uint32) string {
	return elf.R_X86_64(relType).String()
}

func (descAMD64) RelocSize(relType uint32) int {
	r, ok := relocsX86_64[elf.R_X86_64(relType)]
	if !ok {
		return -1
	}
	return int(r.size)
}

// ImplicitBias returns the size of the relocation's field for
// PC-relative relocations, since the x86-64 psABI's S+A-P calculation
// means the compiler-emitted addend already accounts for the distance
// from the start of the field to the next instruction.
func (descAMD64) ImplicitBias(relType uint32) int64 {
	r, ok := relocsX86_64[elf.R_X86_64(relType)]
	if !ok || !r.pc {
		return 0
	}
	return int64(r.size)
}

func (descAMD64) IsWideAbsolute(relType uint32) bool {
	r, ok := relocsX86_64[elf.R_X86_64(relType)]
	return ok && r.wide
}

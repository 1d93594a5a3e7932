// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import "debug/elf"

type relocInfo386 struct {
	size byte
	pc   bool
	wide bool
}

var relocs386 = map[elf.R_386]relocInfo386{
	elf.R_386_NONE:          {0, false, false},
	elf.R_386_32:            {4, false, true},
	elf.R_386_PC32:          {4, true, false},
	elf.R_386_GOT32:         {4, false, false},
	elf.R_386_PLT32:         {4, true, false},
	elf.R_386_COPY:          {0, false, false},
	elf.R_386_GLOB_DAT:      {4, false, false},
	elf.R_386_JMP_SLOT:      {4, false, false},
	elf.R_386_RELATIVE:      {4, false, false},
	elf.R_386_GOTOFF:        {4, false, false},
	elf.R_386_GOTPC:         {4, true, false},
	elf.R_386_TLS_TPOFF:     {4, false, false},
	elf.R_386_TLS_IE:        {4, false, false},
	elf.R_386_TLS_GOTIE:     {4, false, false},
	elf.R_386_TLS_LE:        {4, false, false},
	elf.R_386_TLS_GD:        {4, false, false},
	elf.R_386_TLS_LDM:       {4, false, false},
	elf.R_386_16:            {2, false, false},
	elf.R_386_PC16:          {2, true, false},
	elf.R_386_8:             {1, false, false},
	elf.R_386_PC8:           {1, true, false},
	elf.R_386_SIZE32:        {4, false, false},
	elf.R_386_TLS_GOTDESC:   {4, false, false},
	elf.R_386_TLS_DESC_CALL: {0, false, false},
	elf.R_386_TLS_DESC:      {4, false, false},
	elf.R_386_IRELATIVE:     {4, false, false},
	elf.R_386_GOT32X:        {4, false, false},
}

type desc386 struct{}

func (desc386) Arch() *Arch { return I386 }

func (desc386) RelocName(relType uint32) string {
	return elf.R_386(relType).String()
}

func (desc386) RelocSize(relType uint32) int {
	r, ok := relocs386[elf.R_386(relType)]
	if !ok {
		return -1
	}
	return int(r.size)
}

func (desc386) ImplicitBias(relType uint32) int64 {
	r, ok := relocs386[elf.R_386(relType)]
	if !ok || !r.pc {
		return 0
	}
	return int64(r.size)
}

func (desc386) IsWideAbsolute(relType uint32) bool {
	r, ok := relocs386[elf.R_386(relType)]
	return ok && r.wide
}

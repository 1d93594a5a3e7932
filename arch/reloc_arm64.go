// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import "debug/elf"

// relocInfoARM64 covers the AArch64 relocations that show up in
// per-function-sectioned relocatable objects: absolute data references
// and PC-relative code references. R_AARCH64_ABS64 and R_AARCH64_ABS32
// are classified as wide-absolute for the section-symbol replacer's
// edge check; the rest round out the same table shape as the x86
// descriptors.
type relocInfoARM64 struct {
	size byte
	pc   bool
	wide bool
}

var relocsARM64 = map[elf.R_AARCH64]relocInfoARM64{
	elf.R_AARCH64_NONE:      {0, false, false},
	elf.R_AARCH64_ABS64:     {8, false, true},
	elf.R_AARCH64_ABS32:     {4, false, true},
	elf.R_AARCH64_ABS16:     {2, false, false},
	elf.R_AARCH64_PREL64:    {8, true, false},
	elf.R_AARCH64_PREL32:    {4, true, false},
	elf.R_AARCH64_PREL16:    {2, true, false},
	elf.R_AARCH64_CALL26:    {4, true, false},
	elf.R_AARCH64_JUMP26:    {4, true, false},
	elf.R_AARCH64_GLOB_DAT:  {8, false, false},
	elf.R_AARCH64_JUMP_SLOT: {8, false, false},
	elf.R_AARCH64_RELATIVE:  {8, false, false},
	elf.R_AARCH64_COPY:      {0, false, false},
}

type descARM64 struct{}

func (descARM64) Arch() *Arch { return ARM64 }

func (descARM64) RelocName(relType uint32) string {
	return elf.R_AARCH64(relType).String()
}

func (descARM64) RelocSize(relType uint32) int {
	r, ok := relocsARM64[elf.R_AARCH64(relType)]
	if !ok {
		return -1
	}
	return int(r.size)
}

func (descARM64) ImplicitBias(relType uint32) int64 {
	r, ok := relocsARM64[elf.R_AARCH64(relType)]
	if !ok || !r.pc {
		return 0
	}
	return int64(r.size)
}

func (descARM64) IsWideAbsolute(relType uint32) bool {
	r, ok := relocsARM64[elf.R_AARCH64(relType)]
	return ok && r.wide
}

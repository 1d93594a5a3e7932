// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import (
	"debug/elf"
	"testing"
)

func TestDescriptorForKnownMachines(t *testing.T) {
	for _, m := range []elf.Machine{elf.EM_X86_64, elf.EM_386, elf.EM_AARCH64} {
		if DescriptorFor(m) == nil {
			t.Errorf("DescriptorFor(%s) = nil, want a descriptor", m)
		}
	}
	if d := DescriptorFor(elf.EM_MIPS); d != nil {
		t.Errorf("DescriptorFor(EM_MIPS) = %v, want nil", d)
	}
}

func TestAMD64ImplicitBias(t *testing.T) {
	d := descAMD64{}
	if got := d.ImplicitBias(uint32(elf.R_X86_64_PC32)); got != 4 {
		t.Errorf("ImplicitBias(PC32) = %d, want 4", got)
	}
	if got := d.ImplicitBias(uint32(elf.R_X86_64_64)); got != 0 {
		t.Errorf("ImplicitBias(R_X86_64_64) = %d, want 0", got)
	}
}

func TestAMD64WideAbsolute(t *testing.T) {
	d := descAMD64{}
	for _, rt := range []elf.R_X86_64{elf.R_X86_64_32, elf.R_X86_64_32S, elf.R_X86_64_64} {
		if !d.IsWideAbsolute(uint32(rt)) {
			t.Errorf("IsWideAbsolute(%s) = false, want true", rt)
		}
	}
	if d.IsWideAbsolute(uint32(elf.R_X86_64_PC32)) {
		t.Errorf("IsWideAbsolute(PC32) = true, want false")
	}
}

func TestARM64WideAbsolute(t *testing.T) {
	d := descARM64{}
	if !d.IsWideAbsolute(uint32(elf.R_AARCH64_ABS64)) {
		t.Errorf("IsWideAbsolute(ABS64) = false, want true")
	}
	if d.ImplicitBias(uint32(elf.R_AARCH64_CALL26)) == 0 {
		t.Errorf("ImplicitBias(CALL26) = 0, want nonzero for PC-relative reloc")
	}
}

func TestRoundUpDown(t *testing.T) {
	if got := RoundUp(uint64(13), uint64(8)); got != 16 {
		t.Errorf("RoundUp(13, 8) = %d, want 16", got)
	}
	if got := RoundDown(uint64(13), uint64(8)); got != 8 {
		t.Errorf("RoundDown(13, 8) = %d, want 8", got)
	}
	if got := RoundUp(uint32(16), uint32(8)); got != 16 {
		t.Errorf("RoundUp(16, 8) = %d, want 16", got)
	}
}

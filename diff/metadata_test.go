// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"debug/elf"
	"testing"

	"github.com/patchkit-dev/objdiff/obj"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeMetadataEmptyEntries(t *testing.T) {
	out := obj.NewContainer("out.o")
	SynthesizeMetadata(out, nil)
	require.Empty(t, out.Sections)
}

func TestSynthesizeMetadataAddsSections(t *testing.T) {
	out := obj.NewContainer("out.o")
	out.Header.Data = elf.ELFDATA2LSB
	out.Machine = elf.EM_X86_64

	sym := &obj.Symbol{Name: "do_work"}
	entries := []PatchEntry{
		{NewSymbol: sym, OldAddr: 0x1000, SymPos: 2},
	}
	SynthesizeMetadata(out, entries)

	strs := out.Section(".patch.strings")
	table := out.Section(".patch.entries")
	params := out.Section(".patch.arch")
	require.NotNil(t, strs)
	require.NotNil(t, table)
	require.NotNil(t, params)

	require.Equal(t, uint32(strs.Index), table.Link)

	// Table is nameOff(4) + OldAddr(8) + SymPos(8) = 20 bytes.
	require.Len(t, table.Payload, 20)

	// String pool starts with a NUL, then the symbol name NUL-terminated.
	require.Equal(t, append([]byte{0}, append([]byte("do_work"), 0)...), strs.Payload)

	require.Equal(t, []byte{byte(elf.EM_X86_64), byte(elf.EM_X86_64 >> 8)}, params.Payload)
}

func TestSynthesizeMetadataDedupesStrings(t *testing.T) {
	out := obj.NewContainer("out.o")
	sym1 := &obj.Symbol{Name: "dup"}
	sym2 := &obj.Symbol{Name: "dup"}
	entries := []PatchEntry{
		{NewSymbol: sym1, OldAddr: 1},
		{NewSymbol: sym2, OldAddr: 2},
	}
	SynthesizeMetadata(out, entries)

	strs := out.Section(".patch.strings")
	// Leading NUL plus one copy of "dup\x00": 1 + 4 = 5 bytes total.
	require.Len(t, strs.Payload, 5)
}

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

func TestCompareSectionsIdenticalPayload(t *testing.T) {
	src := obj.NewContainer("src.o")
	pat := obj.NewContainer("pat.o")

	sSrc := src.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3}})
	sPat := pat.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3}})
	sSrc.Twin, sPat.Twin = sPat, sSrc

	Compare(pat)

	require.Equal(t, obj.StatusSame, sPat.Status)
	require.Equal(t, obj.StatusSame, sSrc.Status)
}

func TestCompareSectionsChangedPayload(t *testing.T) {
	src := obj.NewContainer("src.o")
	pat := obj.NewContainer("pat.o")

	sSrc := src.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3}})
	sPat := pat.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 4}})
	sSrc.Twin, sPat.Twin = sPat, sSrc

	Compare(pat)

	require.Equal(t, obj.StatusChanged, sPat.Status)
	require.Equal(t, obj.StatusChanged, sSrc.Status)
}

func TestCompareDebugSectionIgnoresPayloadDiff(t *testing.T) {
	src := obj.NewContainer("src.o")
	pat := obj.NewContainer("pat.o")

	sSrc := src.AddSection(&obj.Section{Name: ".debug_info", Payload: []byte{1, 2, 3}})
	sPat := pat.AddSection(&obj.Section{Name: ".debug_info", Payload: []byte{9, 9, 9}})
	sSrc.Twin, sPat.Twin = sPat, sSrc

	Compare(pat)

	// Debug sections compare only by relocation list, which is empty on
	// both sides here, so they must come out SAME despite differing bytes.
	require.Equal(t, obj.StatusSame, sPat.Status)
}

func TestCompareSectionsDifferingRelocations(t *testing.T) {
	src := obj.NewContainer("src.o")
	pat := obj.NewContainer("pat.o")

	sSrc := src.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3}})
	sPat := pat.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3}})
	sSrc.Twin, sPat.Twin = sPat, sSrc

	relaSrc := src.AddSection(&obj.Section{Name: ".rela.text.foo", Type: elf.SHT_RELA, BaseSection: sSrc})
	sSrc.RelocSection = relaSrc
	relaSrc.Relocations = []*obj.Relocation{{RelocSection: relaSrc, Offset: 0, Type: 1, Addend: 0}}

	relaPat := pat.AddSection(&obj.Section{Name: ".rela.text.foo", Type: elf.SHT_RELA, BaseSection: sPat})
	sPat.RelocSection = relaPat
	relaPat.Relocations = []*obj.Relocation{{RelocSection: relaPat, Offset: 4, Type: 1, Addend: 0}}

	Compare(pat)

	require.Equal(t, obj.StatusChanged, sPat.Status)
}

func TestCompareSymbolStatusFollowsSection(t *testing.T) {
	src := obj.NewContainer("src.o")
	pat := obj.NewContainer("pat.o")

	sSrc := src.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1}})
	sPat := pat.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{2}})
	sSrc.Twin, sPat.Twin = sPat, sSrc

	symSrc := src.AddSymbol(&obj.Symbol{Name: "foo", Type: obj.SymFunc, Section: sSrc})
	symPat := pat.AddSymbol(&obj.Symbol{Name: "foo", Type: obj.SymFunc, Section: sPat})
	symSrc.Twin, symPat.Twin = symPat, symSrc

	Compare(pat)

	require.Equal(t, obj.StatusChanged, symPat.Status)
	require.Equal(t, sPat.Status, symPat.Status)
}

func TestCompareSymbolStatusNoSectionUsesValueSize(t *testing.T) {
	src := obj.NewContainer("src.o")
	pat := obj.NewContainer("pat.o")

	symSrc := src.AddSymbol(&obj.Symbol{Name: "extern_sym", Value: 0, Size: 0})
	symPat := pat.AddSymbol(&obj.Symbol{Name: "extern_sym", Value: 0, Size: 0})
	symSrc.Twin, symPat.Twin = symPat, symSrc

	Compare(pat)

	require.Equal(t, obj.StatusSame, symPat.Status)
}

// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"debug/elf"
	"testing"

	"github.com/patchkit-dev/objdiff/obj"
	"github.com/patchkit-dev/objdiff/runelf"
	"github.com/stretchr/testify/require"
)

func TestMigrateMovesIncludedSectionsAndSymbolsLocalsFirst(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	text := patched.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3, 4}, Include: true})
	rela := patched.AddSection(&obj.Section{Name: ".rela.text.foo", Type: elf.SHT_RELA, BaseSection: text, Include: true})
	text.RelocSection = rela

	patched.AddSymbol(&obj.Symbol{Name: "foo", Type: obj.SymFunc, Binding: obj.BindGlobal, Section: text, Include: true})
	local := patched.AddSymbol(&obj.Symbol{Name: "helper", Type: obj.SymObject, Binding: obj.BindLocal, Include: true})
	rela.Relocations = []*obj.Relocation{{RelocSection: rela, BaseSection: text, Target: local, Offset: 0, Type: 1}}

	patched.AddSymbol(&obj.Symbol{Name: "untouched", Type: obj.SymFunc})

	out, _ := Migrate(patched, nil)

	require.NotNil(t, out.Section(".text.foo"))
	require.Empty(t, out.SymbolsNamed("untouched"))

	globals := out.SymbolsNamed("foo")
	locals := out.SymbolsNamed("helper")
	require.Len(t, globals, 1)
	require.Len(t, locals, 1)

	// Locals precede globals in the migrated symbol table, as ELF
	// requires (all STB_LOCAL entries before the first global).
	require.Less(t, locals[0].Index, globals[0].Index)

	movedText := out.Section(".text.foo")
	require.Same(t, movedText, movedText.RelocSection.BaseSection)
	require.Len(t, movedText.RelocSection.Relocations, 1)
	require.Same(t, locals[0], movedText.RelocSection.Relocations[0].Target)
}

func TestMigrateResolvesUndefinedAgainstRunning(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	patched.AddSymbol(&obj.Symbol{Name: "ext_helper", Type: obj.SymFunc, Binding: obj.BindGlobal, Include: true})

	running := runelf.NewIndex([]runelf.Entry{
		{Name: "ext_helper", Type: elf.STT_FUNC, Binding: elf.STB_GLOBAL, Value: 0x2000, Size: 8},
	})

	out, _ := Migrate(patched, running)
	got := out.SymbolsNamed("ext_helper")
	require.Len(t, got, 1)
	require.Equal(t, uint64(0x2000), got[0].Value)
	require.Equal(t, uint64(8), got[0].Size)
}

func TestMigrateBuildsPatchEntriesForChangedFunctions(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	text := patched.AddSection(&obj.Section{Name: ".text.foo", Payload: []byte{1, 2, 3, 4}, Include: true})
	patched.AddSymbol(&obj.Symbol{Name: "foo", Type: obj.SymFunc, Binding: obj.BindGlobal, Section: text, Include: true, Status: obj.StatusChanged})
	patched.AddSymbol(&obj.Symbol{Name: "bar", Type: obj.SymFunc, Binding: obj.BindGlobal, Include: true, Status: obj.StatusNew})

	running := runelf.NewIndex([]runelf.Entry{
		{Name: "foo", Type: elf.STT_FUNC, Binding: elf.STB_GLOBAL, Value: 0x3000, Size: 4},
	})

	_, entries := Migrate(patched, running)
	require.Len(t, entries, 1)
	require.Equal(t, "foo", entries[0].NewSymbol.Name)
	require.Equal(t, uint64(0x3000), entries[0].OldAddr)
}

func TestLookupRunningSymPosDisambiguates(t *testing.T) {
	running := runelf.NewIndex([]runelf.Entry{
		{Name: "counter", Type: elf.STT_OBJECT, Binding: elf.STB_LOCAL, Value: 0x100, Size: 4, Section: 1},
		{Name: "counter", Type: elf.STT_OBJECT, Binding: elf.STB_LOCAL, Value: 0x200, Size: 4, Section: 2},
	})

	e := lookupRunning(running, "counter", 1)
	require.NotNil(t, e)
	require.Equal(t, uint64(0x200), e.Value)
}

// TestLookupRunningFallsBackToAddrIndex validates the ambiguity
// fallback: the first same-named candidate in table order (id 0) is
// the coarser entry here, but it aliases the same start address as a
// more specific, smaller entry (id 1). The address index must resolve
// to the specific one, not the naive first pick.
func TestLookupRunningFallsBackToAddrIndex(t *testing.T) {
	running := runelf.NewIndex([]runelf.Entry{
		{Name: "resolve_ifunc", Type: elf.STT_FUNC, Binding: elf.STB_GLOBAL, Value: 0x500, Size: 0x20, Section: 1},
		{Name: "resolve_ifunc", Type: elf.STT_FUNC, Binding: elf.STB_GLOBAL, Value: 0x500, Size: 0x8, Section: 1},
	})

	e := lookupRunning(running, "resolve_ifunc", 0)
	require.NotNil(t, e)
	require.Equal(t, uint64(0x8), e.Size)
}

// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"debug/elf"
	"testing"

	"github.com/patchkit-dev/objdiff/arch"
	"github.com/patchkit-dev/objdiff/diff/config"
	"github.com/patchkit-dev/objdiff/obj"
	"github.com/stretchr/testify/require"
)

func newTestContainer() *obj.Container {
	c := obj.NewContainer("test.o")
	c.Header.Machine = elf.EM_X86_64
	c.Desc = arch.DescriptorFor(elf.EM_X86_64)
	return c
}

func TestReplaceSectionSymbolsResolvesToCoveringSymbol(t *testing.T) {
	c := newTestContainer()

	text := c.AddSection(&obj.Section{Name: ".text", Payload: make([]byte, 32)})
	secSym := c.AddSymbol(&obj.Symbol{Name: ".text", Type: obj.SymSection, Section: text})
	foo := c.AddSymbol(&obj.Symbol{Name: "foo", Type: obj.SymFunc, Section: text, Value: 0, Size: 16})
	bar := c.AddSymbol(&obj.Symbol{Name: "bar", Type: obj.SymFunc, Section: text, Value: 16, Size: 16})

	rela := c.AddSection(&obj.Section{Name: ".rela.text", Type: elf.SHT_RELA, BaseSection: text})
	text.RelocSection = rela
	r := &obj.Relocation{
		RelocSection: rela,
		Target:       secSym,
		Offset:       4,
		Addend:       20, // points at byte 20, inside bar
		Type:         uint32(elf.R_X86_64_PC32),
	}
	rela.Relocations = []*obj.Relocation{r}

	require.NoError(t, ReplaceSectionSymbols(c, &config.Policy{}))

	require.Same(t, bar, r.Target)
	require.Equal(t, int64(4), r.Addend)
	_ = foo
}

func TestReplaceSectionSymbolsZeroSizeSymbol(t *testing.T) {
	c := newTestContainer()

	data := c.AddSection(&obj.Section{Name: ".data", Payload: make([]byte, 8)})
	secSym := c.AddSymbol(&obj.Symbol{Name: ".data", Type: obj.SymSection, Section: data})
	zero := c.AddSymbol(&obj.Symbol{Name: "empty_marker", Type: obj.SymObject, Section: data, Value: 4, Size: 0})

	rela := c.AddSection(&obj.Section{Name: ".rela.data", Type: elf.SHT_RELA, BaseSection: data})
	data.RelocSection = rela
	r := &obj.Relocation{
		RelocSection: rela,
		Target:       secSym,
		Offset:       0,
		Addend:       4,
		Type:         uint32(elf.R_X86_64_64),
	}
	rela.Relocations = []*obj.Relocation{r}

	require.NoError(t, ReplaceSectionSymbols(c, &config.Policy{}))
	require.Same(t, zero, r.Target)
	require.Equal(t, int64(0), r.Addend)
}

func TestReplaceSectionSymbolsUnresolvedInRodataIsOK(t *testing.T) {
	c := newTestContainer()

	ro := c.AddSection(&obj.Section{Name: ".rodata.str1.1", Flags: elf.SHF_MERGE | elf.SHF_STRINGS, Payload: make([]byte, 8)})
	secSym := c.AddSymbol(&obj.Symbol{Name: ".rodata.str1.1", Type: obj.SymSection, Section: ro})

	rela := c.AddSection(&obj.Section{Name: ".rela.rodata.str1.1", Type: elf.SHT_RELA, BaseSection: ro})
	ro.RelocSection = rela
	r := &obj.Relocation{
		RelocSection: rela,
		Target:       secSym,
		Offset:       0,
		Addend:       3,
		Type:         uint32(elf.R_X86_64_64),
	}
	rela.Relocations = []*obj.Relocation{r}

	require.NoError(t, ReplaceSectionSymbols(c, &config.Policy{}))
	// No covering symbol exists, so the relocation is left pointing at
	// the section symbol since the target section is a string pool.
	require.Same(t, secSym, r.Target)
}

func TestReplaceSectionSymbolsUnresolvedElsewhereIsError(t *testing.T) {
	c := newTestContainer()

	other := c.AddSection(&obj.Section{Name: ".text.other", Payload: make([]byte, 8)})
	secSym := c.AddSymbol(&obj.Symbol{Name: ".text.other", Type: obj.SymSection, Section: other})

	rela := c.AddSection(&obj.Section{Name: ".rela.text.other", Type: elf.SHT_RELA, BaseSection: other})
	other.RelocSection = rela
	r := &obj.Relocation{
		RelocSection: rela,
		Target:       secSym,
		Offset:       0,
		Addend:       3,
		Type:         uint32(elf.R_X86_64_64),
	}
	rela.Relocations = []*obj.Relocation{r}

	require.Error(t, ReplaceSectionSymbols(c, &config.Policy{}))
}

func TestReplaceSectionSymbolsBundledSectionRetarget(t *testing.T) {
	c := newTestContainer()

	foo := c.AddSymbol(&obj.Symbol{Name: "foo", Type: obj.SymFunc})
	text := c.AddSection(&obj.Section{Name: ".text.foo", Payload: make([]byte, 16), DefiningSymbol: foo})
	secSym := c.AddSymbol(&obj.Symbol{Name: ".text.foo", Type: obj.SymSection, Section: text})

	rela := c.AddSection(&obj.Section{Name: ".rela.text.foo", Type: elf.SHT_RELA, BaseSection: text})
	text.RelocSection = rela
	r := &obj.Relocation{
		RelocSection: rela,
		Target:       secSym,
		Offset:       0,
		Addend:       0,
		Type:         uint32(elf.R_X86_64_64),
	}
	rela.Relocations = []*obj.Relocation{r}

	require.NoError(t, ReplaceSectionSymbols(c, &config.Policy{}))
	require.Same(t, foo, r.Target)
}

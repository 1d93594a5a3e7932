// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/patchkit-dev/objdiff/arch"
)

// Load parses an ELF relocatable object into a fresh Container (the
// pipeline's first stage). name is used only for diagnostics
// (conventionally the input path's basename).
//
// Load rejects anything that isn't an ET_REL object on a supported
// machine: the engine only targets relocatable objects built with
// per-function/per-data sectioning, on a single architecture per run.
func Load(r io.ReaderAt, name string) (*Container, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if f.Type != elf.ET_REL {
		return nil, fmt.Errorf("%s: expected a relocatable object (ET_REL), got %s", name, f.Type)
	}
	desc := arch.DescriptorFor(f.Machine)
	if desc == nil {
		return nil, fmt.Errorf("%s: unsupported machine %s", name, f.Machine)
	}

	c := NewContainer(name)
	c.Header = f.FileHeader
	c.Machine = f.Machine
	c.Desc = desc
	c.ProgramHeaderCount = len(f.Progs)

	// The null symbol always occupies index 0.
	c.AddSymbol(&Symbol{Name: "", Type: SymNotype, Binding: BindLocal, Status: StatusSame})

	shnToSection := make(map[elf.SectionIndex]*Section, len(f.Sections))
	rawToElf := make(map[int]*elf.Section, len(f.Sections))

	for rawIdx, es := range f.Sections {
		if es.Type == elf.SHT_NULL {
			continue
		}
		s := &Section{
			Name:      es.Name,
			Type:      es.Type,
			Flags:     es.Flags,
			Link:      es.Link,
			Info:      es.Info,
			Addralign: es.Addralign,
			Entsize:   es.Entsize,
		}
		if es.Type != elf.SHT_NOBITS {
			payload, perr := readSectionData(es)
			if perr != nil {
				return nil, fmt.Errorf("%s: reading section %s: %w", name, es.Name, perr)
			}
			s.Payload = payload
		} else {
			s.Payload = make([]byte, es.Size)
		}
		c.AddSection(s)
		shnToSection[elf.SectionIndex(rawIdx)] = s
		rawToElf[s.Index] = es
	}

	// Link base<->reloc section pairs and note whether a symbol table
	// is present at all.
	var symtabSec *elf.Section
	relaSections := map[*Section]*elf.Section{}
	for _, s := range c.Sections {
		es := rawToElf[s.Index]
		switch es.Type {
		case elf.SHT_SYMTAB:
			symtabSec = es
		case elf.SHT_RELA:
			target, ok := shnToSection[elf.SectionIndex(es.Info)]
			if !ok {
				return nil, fmt.Errorf("%s: relocation section %s references missing target section %d", name, es.Name, es.Info)
			}
			s.BaseSection = target
			target.RelocSection = s
			relaSections[s] = es
		case elf.SHT_REL:
			return nil, fmt.Errorf("%s: section %s uses SHT_REL; only SHT_RELA (explicit addend) objects are supported", name, es.Name)
		}
	}

	if symtabSec == nil {
		return nil, fmt.Errorf("%s: no symbol table found", name)
	}

	symbols, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("%s: reading symbol table: %w", name, err)
	}
	for _, es := range symbols {
		sym := &Symbol{
			Name:    es.Name,
			Value:   es.Value,
			Size:    es.Size,
			Type:    toSymType(elf.ST_TYPE(es.Info)),
			Binding: toBinding(elf.ST_BIND(es.Info)),
		}
		switch es.Section {
		case elf.SHN_ABS:
			sym.Absolute = true
		case elf.SHN_UNDEF, elf.SHN_COMMON:
			// Undefined/external; Section stays nil.
		default:
			if sec, ok := shnToSection[es.Section]; ok {
				sym.Section = sec
				if sym.Type == SymSection && sym.Name == "" {
					sym.Name = sec.Name
				}
			}
		}
		c.AddSymbol(sym)
	}

	// Decode relocations for each .rela section using the container's
	// symbol list (symbol index i in the ELF table is c.Symbols[i],
	// since we loaded the null symbol first and then appended in
	// order).
	for _, s := range c.Sections {
		es, ok := relaSections[s]
		if !ok {
			continue
		}
		relocs, err := decodeRela(es, f.Class, f.ByteOrder, c.Symbols)
		if err != nil {
			return nil, fmt.Errorf("%s: decoding %s: %w", name, s.Name, err)
		}
		for i := range relocs {
			relocs[i].RelocSection = s
			relocs[i].BaseSection = s.BaseSection
		}
		s.Relocations = relocs
	}

	return c, nil
}

func readSectionData(es *elf.Section) ([]byte, error) {
	r := es.Open()
	buf := make([]byte, es.Size)
	if _, err := io.ReadFull(r, buf); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf, nil
}

func toSymType(t elf.SymType) SymType {
	switch t {
	case elf.STT_OBJECT:
		return SymObject
	case elf.STT_FUNC:
		return SymFunc
	case elf.STT_SECTION:
		return SymSection
	case elf.STT_FILE:
		return SymFile
	default:
		return SymNotype
	}
}

func toBinding(b elf.SymBind) Binding {
	switch b {
	case elf.STB_GLOBAL:
		return BindGlobal
	case elf.STB_WEAK:
		return BindWeak
	default:
		return BindLocal
	}
}

// decodeRela decodes the raw Elf32_Rela/Elf64_Rela entries of es. syms
// is the destination container's symbol list, indexed the same way the
// ELF symbol table is (null symbol at 0).
func decodeRela(es *elf.Section, class elf.Class, order elfByteOrder, syms []*Symbol) ([]*Relocation, error) {
	data, err := es.Data()
	if err != nil {
		return nil, err
	}
	var out []*Relocation
	switch class {
	case elf.ELFCLASS64:
		const entSize = 24
		for off := 0; off+entSize <= len(data); off += entSize {
			offset := order.Uint64(data[off:])
			info := order.Uint64(data[off+8:])
			addend := int64(order.Uint64(data[off+16:]))
			symIdx := elf.R_SYM64(info)
			relType := elf.R_TYPE64(info)
			out = append(out, relocFor(syms, symIdx, relType, offset, addend))
		}
	case elf.ELFCLASS32:
		const entSize = 12
		for off := 0; off+entSize <= len(data); off += entSize {
			offset := uint64(order.Uint32(data[off:]))
			info := order.Uint32(data[off+4:])
			addend := int64(int32(order.Uint32(data[off+8:])))
			symIdx := elf.R_SYM32(info)
			relType := elf.R_TYPE32(info)
			out = append(out, relocFor(syms, symIdx, relType, offset, addend))
		}
	default:
		return nil, fmt.Errorf("unsupported ELF class %v", class)
	}
	return out, nil
}

func relocFor(syms []*Symbol, symIdx uint32, relType uint32, offset uint64, addend int64) *Relocation {
	var target *Symbol
	if int(symIdx) < len(syms) {
		target = syms[symIdx]
	}
	return &Relocation{Target: target, Type: relType, Offset: offset, Addend: addend}
}

// elfByteOrder is the subset of binary.ByteOrder debug/elf.File
// exposes as ByteOrder; declared locally to avoid importing
// encoding/binary just for the interface name.
type elfByteOrder interface {
	Uint16([]byte) uint16
	Uint32([]byte) uint32
	Uint64([]byte) uint64
}

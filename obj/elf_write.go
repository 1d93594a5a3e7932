// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/patchkit-dev/objdiff/arch"
)

// Write serializes c as a relocatable ELF object to path (mode 0664),
// using c.Header as the template for e_ident/e_type/e_machine/e_version.
//
// c's Sections and Symbols must already be the final, included-only
// set, with Symbols densely indexed from 0 (the Migrator's job); Write
// reassigns the 1-based section indices itself and does not decide
// what belongs in the output.
func Write(c *Container, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0664)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteTo(c, f); err != nil {
		return err
	}
	return f.Close()
}

// WriteTo serializes c to w. See Write.
func WriteTo(c *Container, w io.Writer) error {
	class := c.Header.Class
	order := byteOrderFor(c.Header.Data)
	if order == nil {
		return fmt.Errorf("%s: unknown data encoding %v", c.Name, c.Header.Data)
	}

	// Section indices are 1-based in the written file (index 0 is the
	// SHT_NULL entry); assign them before the symbol table records each
	// symbol's st_shndx.
	for i, s := range c.Sections {
		s.Index = i + 1
	}

	symtab, shstrtab, strtab, err := buildTables(c, class, order)
	if err != nil {
		return err
	}

	// Relocation entries reference symbols by table index, and the
	// Migrator renumbers symbols densely when it partitions the
	// included set; re-encode every reloc section's
	// payload against the final indices rather than reusing whatever
	// bytes were loaded.
	for _, s := range c.Sections {
		if !s.IsRelocSection() {
			continue
		}
		payload, err := encodeRela(s.Relocations, class, order)
		if err != nil {
			return fmt.Errorf("%s: re-encoding %s: %w", c.Name, s.Name, err)
		}
		s.Payload = payload
		s.Entsize = relaEntSize(class)
	}

	sections := make([]*Section, 0, len(c.Sections)+3)
	sections = append(sections, c.Sections...)
	symtabSec := &Section{Name: ".symtab", Type: elf.SHT_SYMTAB, Entsize: symEntSize(class), Payload: symtab, Addralign: uint64(class.Size())}
	strtabSec := &Section{Name: ".strtab", Type: elf.SHT_STRTAB, Payload: strtab, Addralign: 1}
	shstrtabSec := &Section{Name: ".shstrtab", Type: elf.SHT_STRTAB, Payload: shstrtab, Addralign: 1}
	sections = append(sections, symtabSec, strtabSec, shstrtabSec)

	// Reassign dense, 1-based section indices (index 0 is the
	// mandatory SHT_NULL entry) now that the synthetic metadata
	// sections are in the mix, and point .symtab's sh_link at
	// .strtab, each .rela.X's sh_link at .symtab.
	for i, s := range sections {
		s.Index = i + 1
	}
	symtabSec.Link = uint32(strtabSec.Index)
	for _, s := range sections {
		if s.IsRelocSection() {
			s.Link = uint32(symtabSec.Index)
			s.Info = uint32(s.BaseSection.Index)
		}
	}

	// Lay out section data and build the section header table.
	ehsize := ehSize(class)
	shentsize := shEntSize(class)
	off := uint64(ehsize)

	type laidOut struct {
		sec *Section
		off uint64
	}
	laid := make([]laidOut, 0, len(sections))
	for _, s := range sections {
		if s.Type == elf.SHT_NOBITS {
			laid = append(laid, laidOut{s, off})
			continue
		}
		if s.Addralign > 1 {
			off = roundUpOff(off, s.Addralign)
		}
		laid = append(laid, laidOut{s, off})
		off += uint64(len(s.Payload))
	}
	off = roundUpOff(off, uint64(class.Size()))
	shoff := off
	off += uint64(len(sections)+1) * uint64(shentsize)

	var buf bytes.Buffer
	if err := writeHeader(&buf, c.Header, class, order, shoff, shentsize, len(sections)+1, shstrtabSec.Index); err != nil {
		return err
	}
	for _, l := range laid {
		if l.sec.Type == elf.SHT_NOBITS {
			continue
		}
		pad := int64(l.off) - int64(buf.Len())
		if pad < 0 {
			return fmt.Errorf("%s: internal layout error writing %s", c.Name, l.sec.Name)
		}
		buf.Write(make([]byte, pad))
		buf.Write(l.sec.Payload)
	}
	pad := int64(shoff) - int64(buf.Len())
	if pad > 0 {
		buf.Write(make([]byte, pad))
	}

	// Null section header first.
	writeShdr(&buf, class, order, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	for _, l := range laid {
		s := l.sec
		size := uint64(len(s.Payload))
		if s.Type == elf.SHT_NOBITS {
			size = uint64(len(s.Payload))
		}
		writeShdr(&buf, class, order, nameOffset(shstrtabSec.Payload, s.Name), uint32(s.Type), uint64(s.Flags), 0, l.off, size, s.Link, s.Info, s.Addralign, s.Entsize)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// roundUpOff rounds x up to align, falling back to x unchanged when
// align is 0 (an unaligned section's Addralign), since arch.RoundUp
// requires a power of 2 and treats 0 as "round to 0".
func roundUpOff(x, align uint64) uint64 {
	if align == 0 {
		return x
	}
	return arch.RoundUp(x, align)
}

func byteOrderFor(d elf.Data) binary.ByteOrder {
	switch d {
	case elf.ELFDATA2LSB:
		return binary.LittleEndian
	case elf.ELFDATA2MSB:
		return binary.BigEndian
	default:
		return nil
	}
}

func ehSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 64
	}
	return 52
}

func shEntSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 64
	}
	return 40
}

func symEntSize(class elf.Class) uint64 {
	if class == elf.ELFCLASS64 {
		return 24
	}
	return 16
}

func relaEntSize(class elf.Class) uint64 {
	if class == elf.ELFCLASS64 {
		return 24
	}
	return 12
}

// encodeRela re-encodes relocs as raw Elf32_Rela/Elf64_Rela entries,
// looking up each target symbol's current (post-migration) Index.
func encodeRela(relocs []*Relocation, class elf.Class, order binary.ByteOrder) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range relocs {
		symIdx := uint32(0)
		if r.Target != nil {
			symIdx = uint32(r.Target.Index)
		}
		if class == elf.ELFCLASS64 {
			var tmp [24]byte
			order.PutUint64(tmp[0:8], r.Offset)
			order.PutUint64(tmp[8:16], uint64(symIdx)<<32|uint64(r.Type))
			order.PutUint64(tmp[16:24], uint64(r.Addend))
			buf.Write(tmp[:])
			continue
		}
		if symIdx > 0xffffff {
			return nil, fmt.Errorf("symbol index %d too large for 32-bit relocation", symIdx)
		}
		var tmp [12]byte
		order.PutUint32(tmp[0:4], uint32(r.Offset))
		order.PutUint32(tmp[4:8], symIdx<<8|(r.Type&0xff))
		order.PutUint32(tmp[8:12], uint32(r.Addend))
		buf.Write(tmp[:])
	}
	return buf.Bytes(), nil
}

// buildTables rebuilds .symtab, .shstrtab and .strtab from c's live
// Sections/Symbols, rather than reusing any loaded string-table bytes.
func buildTables(c *Container, class elf.Class, order binary.ByteOrder) (symtab, shstrtab, strtab []byte, err error) {
	shNames := newStrtabBuilder()
	shNames.add("") // index 0 reserved
	for _, s := range c.Sections {
		shNames.add(s.Name)
	}
	shNames.add(".symtab")
	shNames.add(".strtab")
	shNames.add(".shstrtab")

	symNames := newStrtabBuilder()
	symNames.add("")

	var symBuf bytes.Buffer
	// Index 0 is the mandatory null entry.
	writeSym(&symBuf, class, order, 0, 0, 0, 0, 0, 0)
	for _, sym := range c.Symbols {
		if sym.Index == 0 && sym.Name == "" && sym.Type == SymNotype {
			continue
		}
		nameOff := symNames.add(sym.Name)
		shndx := uint16(elf.SHN_UNDEF)
		switch {
		case sym.Absolute:
			shndx = uint16(elf.SHN_ABS)
		case sym.Section != nil:
			shndx = uint16(sym.Section.Index)
		}
		info := byte(sym.Binding.elfBind())<<4 | byte(sym.Type.elfType())
		other := byte(0)
		if sym.ExternalResolve {
			other = 1
		}
		writeSym(&symBuf, class, order, nameOff, info, other, shndx, sym.Value, sym.Size)
	}

	return symBuf.Bytes(), shNames.bytes(), symNames.bytes(), nil
}

func (t SymType) elfType() elf.SymType {
	switch t {
	case SymObject:
		return elf.STT_OBJECT
	case SymFunc:
		return elf.STT_FUNC
	case SymSection:
		return elf.STT_SECTION
	case SymFile:
		return elf.STT_FILE
	default:
		return elf.STT_NOTYPE
	}
}

func (b Binding) elfBind() elf.SymBind {
	switch b {
	case BindGlobal:
		return elf.STB_GLOBAL
	case BindWeak:
		return elf.STB_WEAK
	default:
		return elf.STB_LOCAL
	}
}

func writeSym(buf *bytes.Buffer, class elf.Class, order binary.ByteOrder, nameOff uint32, info, other byte, shndx uint16, value, size uint64) {
	if class == elf.ELFCLASS64 {
		var tmp [24]byte
		order.PutUint32(tmp[0:4], nameOff)
		tmp[4] = info
		tmp[5] = other
		order.PutUint16(tmp[6:8], shndx)
		order.PutUint64(tmp[8:16], value)
		order.PutUint64(tmp[16:24], size)
		buf.Write(tmp[:])
		return
	}
	var tmp [16]byte
	order.PutUint32(tmp[0:4], nameOff)
	order.PutUint32(tmp[4:8], uint32(value))
	order.PutUint32(tmp[8:12], uint32(size))
	tmp[12] = info
	tmp[13] = other
	order.PutUint16(tmp[14:16], shndx)
	buf.Write(tmp[:])
}

func writeShdr(buf *bytes.Buffer, class elf.Class, order binary.ByteOrder, nameOff, typ uint32, flags, addr, offset, size uint64, link, info uint32, addralign, entsize uint64) {
	if class == elf.ELFCLASS64 {
		var tmp [64]byte
		order.PutUint32(tmp[0:4], nameOff)
		order.PutUint32(tmp[4:8], typ)
		order.PutUint64(tmp[8:16], flags)
		order.PutUint64(tmp[16:24], addr)
		order.PutUint64(tmp[24:32], offset)
		order.PutUint64(tmp[32:40], size)
		order.PutUint32(tmp[40:44], link)
		order.PutUint32(tmp[44:48], info)
		order.PutUint64(tmp[48:56], addralign)
		order.PutUint64(tmp[56:64], entsize)
		buf.Write(tmp[:])
		return
	}
	var tmp [40]byte
	order.PutUint32(tmp[0:4], nameOff)
	order.PutUint32(tmp[4:8], typ)
	order.PutUint32(tmp[8:12], uint32(flags))
	order.PutUint32(tmp[12:16], uint32(addr))
	order.PutUint32(tmp[16:20], uint32(offset))
	order.PutUint32(tmp[20:24], uint32(size))
	order.PutUint32(tmp[24:28], link)
	order.PutUint32(tmp[28:32], info)
	order.PutUint32(tmp[32:36], uint32(addralign))
	order.PutUint32(tmp[36:40], uint32(entsize))
	buf.Write(tmp[:])
}

func writeHeader(buf *bytes.Buffer, h elf.FileHeader, class elf.Class, order binary.ByteOrder, shoff uint64, shentsize, shnum, shstrndx int) error {
	var ident [16]byte
	copy(ident[:4], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_DATA] = byte(h.Data)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	ident[elf.EI_OSABI] = byte(h.OSABI)
	ident[elf.EI_ABIVERSION] = byte(h.ABIVersion)
	buf.Write(ident[:])

	put16 := func(v uint16) { var b [2]byte; order.PutUint16(b[:], v); buf.Write(b[:]) }
	put32 := func(v uint32) { var b [4]byte; order.PutUint32(b[:], v); buf.Write(b[:]) }
	put64 := func(v uint64) { var b [8]byte; order.PutUint64(b[:], v); buf.Write(b[:]) }
	putWord := func(v uint64) {
		if class == elf.ELFCLASS64 {
			put64(v)
		} else {
			put32(uint32(v))
		}
	}

	put16(uint16(h.Type))
	put16(uint16(h.Machine))
	put32(uint32(h.Version))
	putWord(h.Entry)
	putWord(0) // e_phoff: no program headers in a relocatable object
	putWord(shoff)
	put32(0) // e_flags: zero for a diffed relocatable object
	put16(uint16(ehSize(class)))
	put16(0) // e_phentsize
	put16(0) // e_phnum
	put16(uint16(shentsize))
	put16(uint16(shnum))
	put16(uint16(shstrndx))
	return nil
}

type strtabBuilder struct {
	buf    bytes.Buffer
	offset map[string]uint32
}

func newStrtabBuilder() *strtabBuilder {
	b := &strtabBuilder{offset: make(map[string]uint32)}
	b.buf.WriteByte(0)
	return b
}

func (b *strtabBuilder) add(s string) uint32 {
	if s == "" {
		return 0
	}
	if off, ok := b.offset[s]; ok {
		return off
	}
	off := uint32(b.buf.Len())
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
	b.offset[s] = off
	return off
}

func (b *strtabBuilder) bytes() []byte { return b.buf.Bytes() }

func nameOffset(shstrtab []byte, name string) uint32 {
	if name == "" {
		return 0
	}
	needle := append([]byte(name), 0)
	if i := bytes.Index(shstrtab, needle); i >= 0 {
		return uint32(i)
	}
	return 0
}

// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/patchkit-dev/objdiff/obj"
)

// SynthesizeMetadata appends the engine-owned sections the patch
// loader needs: a string pool for patch symbol names, the patch-entry
// table pairing each changed function with the running-binary address
// it replaces, and a per-architecture parameter section recording
// which machine produced this patch. It does not emit a long-jump/GOT
// stub section, since none of arch/'s three machines (amd64, 386,
// arm64) need a trampoline for the relocation range these objects
// carry -- that section is only load-bearing on architectures with
// short unconditional-branch ranges, which this engine's
// supported-machine set excludes.
func SynthesizeMetadata(out *obj.Container, entries []PatchEntry) {
	if len(entries) == 0 {
		return
	}

	names := newStringPool()
	var table bytes.Buffer
	order := byteOrderFor(out.Header)
	for _, e := range entries {
		nameOff := names.add(e.NewSymbol.Name)
		binary.Write(&table, order, uint32(nameOff))
		binary.Write(&table, order, e.OldAddr)
		binary.Write(&table, order, uint64(e.SymPos))
	}

	poolSec := out.AddSection(sectionLiteral(".patch.strings", names.bytes()))
	tableSec := out.AddSection(sectionLiteral(".patch.entries", table.Bytes()))
	tableSec.Link = uint32(poolSec.Index)

	out.AddSection(sectionLiteral(".patch.arch", archParamBytes(out.Machine)))
}

// sectionLiteral builds one of the three synthesized sections above,
// none of which carry relocations or a defining symbol.
func sectionLiteral(name string, payload []byte) *obj.Section {
	return &obj.Section{Name: name, Type: elf.SHT_PROGBITS, Payload: payload, Addralign: 1}
}

func archParamBytes(machine elf.Machine) []byte {
	return []byte{byte(machine), byte(machine >> 8)}
}

func byteOrderFor(h elf.FileHeader) binary.ByteOrder {
	if h.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

type stringPool struct {
	buf    bytes.Buffer
	offset map[string]uint32
}

func newStringPool() *stringPool {
	p := &stringPool{offset: make(map[string]uint32)}
	p.buf.WriteByte(0)
	return p
}

func (p *stringPool) add(s string) uint32 {
	if off, ok := p.offset[s]; ok {
		return off
	}
	off := uint32(p.buf.Len())
	p.buf.WriteString(s)
	p.buf.WriteByte(0)
	p.offset[s] = off
	return off
}

func (p *stringPool) bytes() []byte { return p.buf.Bytes() }

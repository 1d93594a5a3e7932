// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"bytes"

	"github.com/patchkit-dev/objdiff/arch"
)

// Reader reads structured values out of a byte slice using a given
// data layout, a cursor-based approach that reads directly from a
// Section's mutable Payload rather than from an immutable mmap.
type Reader struct {
	b      []byte
	layout arch.Layout
	p      int
}

// NewReader returns a Reader over b using the given layout.
func NewReader(b []byte, layout arch.Layout) *Reader {
	return &Reader{b: b, layout: layout}
}

// Avail returns the number of bytes remaining.
func (r *Reader) Avail() int {
	return len(r.b) - r.p
}

// Offset returns the reader's current byte offset.
func (r *Reader) Offset() int {
	return r.p
}

// SetOffset moves the cursor to the given byte offset.
func (r *Reader) SetOffset(offset int) {
	r.p = offset
}

func (r *Reader) Uint8() uint8 {
	o := r.p
	r.p++
	return r.b[o]
}

func (r *Reader) Uint16() uint16 {
	o := r.p
	r.p += 2
	return r.layout.Uint16(r.b[o : o+2])
}

func (r *Reader) Uint32() uint32 {
	o := r.p
	r.p += 4
	return r.layout.Uint32(r.b[o : o+4])
}

func (r *Reader) Uint64() uint64 {
	o := r.p
	r.p += 8
	return r.layout.Uint64(r.b[o : o+8])
}

func (r *Reader) Int8() int8   { return int8(r.Uint8()) }
func (r *Reader) Int16() int16 { return int16(r.Uint16()) }
func (r *Reader) Int32() int32 { return int32(r.Uint32()) }
func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

// CString reads a NUL-terminated string starting at the cursor,
// omitting the final NUL. If there is no NUL, it reads to the end.
func (r *Reader) CString() string {
	s := r.b[r.p:]
	n := bytes.IndexByte(s, 0)
	if n < 0 {
		r.p = len(r.b)
		return string(s)
	}
	r.p += n + 1
	return string(s[:n])
}

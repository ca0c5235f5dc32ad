// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

// Package cursor provides bounded sequential readers and writers over byte slices.
// All resource layouts in the archive are little-endian; other orders are accepted
// for completeness.
package cursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds means a read passed the end of the buffer or a value exceeded its field capacity.
var ErrOutOfBounds = errors.New("out of bounds")

// maxPStringLen is the capacity of a u8 length-prefixed string.
const maxPStringLen = 0xff

// Reader reads fixed-width values from a byte slice and only moves forward.
type Reader struct {
	order binary.ByteOrder
	buf   []byte
	pos   int
}

// NewReader returns a little-endian reader over buf.
func NewReader(buf []byte) *Reader {
	return NewReaderOrder(buf, binary.LittleEndian)
}

// NewReaderOrder returns a reader over buf with explicit byte order.
func NewReaderOrder(buf []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}

	return &Reader{buf: buf, order: order}
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// take returns the next n bytes without copying.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: read %d bytes at offset %d, %d remaining", ErrOutOfBounds, n, r.pos, r.Remaining())
	}

	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// U16 reads a 16-bit unsigned integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return r.order.Uint16(b), nil
}

// U32 reads a 32-bit unsigned integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return r.order.Uint32(b), nil
}

// Uint reads an unsigned integer of width 1, 2 or 4 bytes.
func (r *Reader) Uint(width int) (uint32, error) {
	switch width {
	case 1:
		v, err := r.U8()
		return uint32(v), err
	case 2:
		v, err := r.U16()
		return uint32(v), err
	case 4:
		return r.U32()
	default:
		return 0, fmt.Errorf("unsupported integer width %d", width)
	}
}

// Bytes reads n bytes and returns a copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}

	return bytes.Clone(b), nil
}

// Rest returns a copy of all unread bytes and consumes them.
func (r *Reader) Rest() []byte {
	out := bytes.Clone(r.buf[r.pos:])
	r.pos = len(r.buf)
	if out == nil {
		out = []byte{}
	}

	return out
}

// PString reads a string prefixed by its u8 byte length.
func (r *Reader) PString() ([]byte, error) {
	n, err := r.U8()
	if err != nil {
		return nil, err
	}

	return r.Bytes(int(n))
}

// CString reads a NUL-terminated string and consumes the terminator.
func (r *Reader) CString() ([]byte, error) {
	idx := bytes.IndexByte(r.buf[r.pos:], 0)
	if idx < 0 {
		return nil, fmt.Errorf("%w: unterminated string at offset %d", ErrOutOfBounds, r.pos)
	}

	out := bytes.Clone(r.buf[r.pos : r.pos+idx])
	r.pos += idx + 1
	return out, nil
}

// Writer appends fixed-width values to a growing buffer.
type Writer struct {
	order binary.ByteOrder
	buf   []byte
}

// NewWriter returns a little-endian writer.
func NewWriter() *Writer {
	return NewWriterOrder(binary.LittleEndian)
}

// NewWriterOrder returns a writer with explicit byte order.
func NewWriterOrder(order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}

	return &Writer{order: order}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns written bytes. The slice aliases the writer buffer.
func (w *Writer) Bytes() []byte {
	if w.buf == nil {
		return []byte{}
	}

	return w.buf
}

// PutU8 appends one byte.
func (w *Writer) PutU8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutU16 appends a 16-bit unsigned integer.
func (w *Writer) PutU16(v uint16) {
	var tmp [2]byte
	w.order.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// PutU32 appends a 32-bit unsigned integer.
func (w *Writer) PutU32(v uint32) {
	var tmp [4]byte
	w.order.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// PutUint appends v using width 1, 2 or 4 bytes and fails when v does not fit.
func (w *Writer) PutUint(width int, v uint64) error {
	switch width {
	case 1, 2, 4:
	default:
		return fmt.Errorf("unsupported integer width %d", width)
	}

	if v>>(8*uint(width)) != 0 {
		return fmt.Errorf("%w: value %d does not fit %d byte(s)", ErrOutOfBounds, v, width)
	}

	switch width {
	case 1:
		w.PutU8(uint8(v))
	case 2:
		w.PutU16(uint16(v))
	default:
		w.PutU32(uint32(v))
	}

	return nil
}

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutPString appends b prefixed by its u8 length.
func (w *Writer) PutPString(b []byte) error {
	if len(b) > maxPStringLen {
		return fmt.Errorf("%w: string of %d bytes exceeds capacity %d", ErrOutOfBounds, len(b), maxPStringLen)
	}

	w.PutU8(uint8(len(b)))
	w.PutBytes(b)
	return nil
}

// PutCString appends b followed by a NUL terminator.
func (w *Writer) PutCString(b []byte) error {
	if bytes.IndexByte(b, 0) >= 0 {
		return fmt.Errorf("%w: string contains NUL byte", ErrOutOfBounds)
	}

	w.PutBytes(b)
	w.PutU8(0)
	return nil
}

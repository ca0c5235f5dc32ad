// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"bytes"
	"encoding/binary"
)

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func pstr(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// array16 builds a u16-counted array of u16-length elements.
func array16(elems ...[]byte) []byte {
	out := le16(uint16(len(elems)))
	for _, e := range elems {
		out = append(out, le16(uint16(len(e)))...)
		out = append(out, e...)
	}

	return out
}

// array32 builds a u32-counted array of u32-length elements.
func array32(elems ...[]byte) []byte {
	out := le32(uint32(len(elems)))
	for _, e := range elems {
		out = append(out, le32(uint32(len(e)))...)
		out = append(out, e...)
	}

	return out
}

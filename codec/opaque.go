// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Octets is a byte slice serialized as a JSON array of integers instead of base64.
type Octets []byte

// MarshalJSON implements json.Marshaler.
func (o Octets) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+len(o)*4)
	out = append(out, '[')
	for i, b := range o {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(b), 10)
	}

	return append(out, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Octets) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	out := make(Octets, len(values))
	for i, v := range values {
		if v < 0 || v > 0xff {
			return fmt.Errorf("byte value %d at index %d out of range", v, i)
		}
		out[i] = byte(v)
	}

	*o = out
	return nil
}

// OpaqueField is a byte range whose meaning is unknown. Offset is the original byte
// position inside the enclosing record; fixed-layout encoders put Data back at it.
type OpaqueField struct {
	Name   string `json:"name,omitempty"`
	Offset int    `json:"offset"`
	Data   Octets `json:"data"`
}

// opaqueAt returns an opaque field or nil when data is empty.
func opaqueAt(name string, offset int, data []byte) []OpaqueField {
	if len(data) == 0 {
		return nil
	}

	return []OpaqueField{{Name: name, Offset: offset, Data: Octets(data)}}
}

// sortedOpaque returns fields ordered by original offset.
func sortedOpaque(fields []OpaqueField) []OpaqueField {
	out := slices.Clone(fields)
	slices.SortStableFunc(out, func(a, b OpaqueField) int {
		return a.Offset - b.Offset
	})

	return out
}

// appendOpaque appends all fields in original offset order.
func appendOpaque(dst []byte, fields []OpaqueField) []byte {
	for _, f := range sortedOpaque(fields) {
		dst = append(dst, f.Data...)
	}

	return dst
}

// placeOpaque writes fields into a fixed-size block at their recorded offsets.
// Every slot must be filled by exactly one field of matching width.
func placeOpaque(block []byte, fields []OpaqueField, slots []opaqueSlot) error {
	filled := make(map[int]bool, len(slots))
	for _, f := range fields {
		slot, ok := findSlot(slots, f.Offset)
		if !ok {
			return fmt.Errorf("no opaque slot at offset %#x", f.Offset)
		}
		if len(f.Data) != slot.width {
			return fmt.Errorf("opaque field at offset %#x has %d byte(s), want %d", f.Offset, len(f.Data), slot.width)
		}
		if filled[f.Offset] {
			return fmt.Errorf("duplicate opaque field at offset %#x", f.Offset)
		}

		copy(block[f.Offset:], f.Data)
		filled[f.Offset] = true
	}

	for _, slot := range slots {
		if !filled[slot.offset] {
			return fmt.Errorf("missing opaque field at offset %#x", slot.offset)
		}
	}

	return nil
}

// opaqueSlot is one unknown fixed-position field of a fixed-size block.
type opaqueSlot struct {
	offset int
	width  int
}

// findSlot resolves slot by offset.
func findSlot(slots []opaqueSlot, offset int) (opaqueSlot, bool) {
	for _, s := range slots {
		if s.offset == offset {
			return s, true
		}
	}

	return opaqueSlot{}, false
}

// collectOpaque reads all slots from a fixed-size block.
func collectOpaque(block []byte, slots []opaqueSlot, name func(offset int) string) []OpaqueField {
	out := make([]OpaqueField, 0, len(slots))
	for _, s := range slots {
		out = append(out, OpaqueField{
			Name:   name(s.offset),
			Offset: s.offset,
			Data:   Octets(slices.Clone(block[s.offset : s.offset+s.width])),
		})
	}

	return out
}

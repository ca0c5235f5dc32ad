// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"github.com/woozymasta/vfs/internal/cursor"
)

// TextTable is a keyed list of display strings.
type TextTable struct {
	Entries []TextEntry `json:"entries"`
	Trailer Octets      `json:"trailer,omitempty"`
}

// Kind implements Resource.
func (*TextTable) Kind() Kind { return KindText }

// TextEntry is one string with its stable key (the original position).
type TextEntry struct {
	Text   string        `json:"text"`
	Opaque []OpaqueField `json:"opaque,omitempty"`
	Key    int           `json:"key"`
}

// TextCodec handles u16-counted tables of u16-length elements, each starting
// with a pascal string followed by unknown bytes.
type TextCodec struct{}

// Kind implements Codec.
func (TextCodec) Kind() Kind { return KindText }

// Decode implements Codec.
func (TextCodec) Decode(entry string, raw []byte) (Resource, error) {
	r := cursor.NewReader(raw)
	elems, err := readLengthArray(r, 2)
	if err != nil {
		return nil, decodeErr(entry, err, "read string table")
	}

	table := &TextTable{Entries: make([]TextEntry, 0, len(elems))}
	for i, elem := range elems {
		er := cursor.NewReader(elem)
		text, err := readPString(er)
		if err != nil {
			return nil, decodeErr(entry, err, "entry %d", i)
		}

		tailAt := er.Pos()
		table.Entries = append(table.Entries, TextEntry{
			Key:    i,
			Text:   text,
			Opaque: opaqueAt("tail", tailAt, er.Rest()),
		})
	}

	if r.Remaining() > 0 {
		table.Trailer = Octets(r.Rest())
	}

	return table, nil
}

// Encode implements Codec. Entries are written in key order; keys must be 0..n-1.
func (TextCodec) Encode(entry string, res Resource) ([]byte, error) {
	table, ok := res.(*TextTable)
	if !ok || table == nil {
		return nil, wrongResource(entry, KindText, res)
	}

	keys := make([]int, len(table.Entries))
	for i, e := range table.Entries {
		keys[i] = e.Key
	}

	order, err := keyedOrder(keys)
	if err != nil {
		return nil, encodeErr(entry, err, "text keys")
	}

	elems := make([][]byte, 0, len(order))
	for _, pos := range order {
		e := table.Entries[pos]
		ew := cursor.NewWriter()
		if err := putPString(ew, e.Text); err != nil {
			return nil, encodeErr(entry, err, "entry %d", e.Key)
		}

		elems = append(elems, appendOpaque(ew.Bytes(), e.Opaque))
	}

	w := cursor.NewWriter()
	if err := putLengthArray(w, 2, elems); err != nil {
		return nil, encodeErr(entry, err, "write string table")
	}
	w.PutBytes(table.Trailer)

	return w.Bytes(), nil
}

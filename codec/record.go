// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"fmt"

	"github.com/woozymasta/vfs/internal/cursor"
)

// FieldType is a record field storage type.
type FieldType uint8

const (
	// FieldString is a u8 length-prefixed legacy string.
	FieldString FieldType = iota
	// FieldOpaque is a fixed number of unknown bytes.
	FieldOpaque
)

// Field is one record schema field.
type Field struct {
	Name string
	Type FieldType
	// Size is the byte count of an opaque field.
	Size int
}

// Schema describes elements of a record table in storage order.
type Schema struct {
	Name   string
	Fields []Field
}

// Built-in record schemas.
var (
	QuestSchema = Schema{Name: "quest", Fields: []Field{
		{Name: "data1", Type: FieldOpaque, Size: 3},
		{Name: "name", Type: FieldString},
		{Name: "desc", Type: FieldString},
		{Name: "type", Type: FieldString},
		{Name: "data2", Type: FieldOpaque, Size: 38},
	}}
	EnemySchema = Schema{Name: "enemy", Fields: []Field{
		{Name: "name", Type: FieldString},
		{Name: "data", Type: FieldOpaque, Size: 128},
	}}
	ClassSchema = Schema{Name: "class", Fields: []Field{
		{Name: "name", Type: FieldString},
		{Name: "data", Type: FieldOpaque, Size: 59},
	}}
	SkillSchema = Schema{Name: "skill", Fields: []Field{
		{Name: "name", Type: FieldString},
		{Name: "data", Type: FieldOpaque, Size: 47},
		{Name: "desc", Type: FieldString},
	}}
)

// hasString reports whether schema declares string field name.
func (s Schema) hasString(name string) bool {
	for _, f := range s.Fields {
		if f.Type == FieldString && f.Name == name {
			return true
		}
	}

	return false
}

// RecordTable is a list of schema-described records.
type RecordTable struct {
	Schema  string   `json:"schema"`
	Records []Record `json:"records"`
	Trailer Octets   `json:"trailer,omitempty"`
}

// Kind implements Resource.
func (*RecordTable) Kind() Kind { return KindRecord }

// Record holds the string fields by name and the unknown fields by offset.
type Record struct {
	Text   map[string]string `json:"text"`
	Opaque []OpaqueField     `json:"opaque,omitempty"`
}

// RecordCodec handles u16-counted tables whose elements follow Schema.
// Bytes after the last schema field are kept as a "tail" field.
type RecordCodec struct {
	Schema Schema
}

// Kind implements Codec.
func (RecordCodec) Kind() Kind { return KindRecord }

// Decode implements Codec.
func (c RecordCodec) Decode(entry string, raw []byte) (Resource, error) {
	r := cursor.NewReader(raw)
	elems, err := readLengthArray(r, 2)
	if err != nil {
		return nil, decodeErr(entry, err, "read %s table", c.Schema.Name)
	}

	table := &RecordTable{Schema: c.Schema.Name, Records: make([]Record, 0, len(elems))}
	for i, elem := range elems {
		rec, err := c.decodeRecord(elem)
		if err != nil {
			return nil, decodeErr(entry, err, "record %d", i)
		}
		table.Records = append(table.Records, rec)
	}

	if r.Remaining() > 0 {
		table.Trailer = Octets(r.Rest())
	}

	return table, nil
}

// decodeRecord parses one element by schema.
func (c RecordCodec) decodeRecord(elem []byte) (Record, error) {
	rec := Record{Text: make(map[string]string)}
	r := cursor.NewReader(elem)
	for _, f := range c.Schema.Fields {
		offset := r.Pos()
		switch f.Type {
		case FieldString:
			s, err := readPString(r)
			if err != nil {
				return rec, fmt.Errorf("%s: %w", f.Name, err)
			}
			rec.Text[f.Name] = s
		case FieldOpaque:
			b, err := r.Bytes(f.Size)
			if err != nil {
				return rec, fmt.Errorf("%s: %w", f.Name, err)
			}
			rec.Opaque = append(rec.Opaque, OpaqueField{Name: f.Name, Offset: offset, Data: Octets(b)})
		default:
			return rec, fmt.Errorf("%s: unknown field type %d", f.Name, f.Type)
		}
	}

	rec.Opaque = append(rec.Opaque, opaqueAt("tail", r.Pos(), r.Rest())...)
	return rec, nil
}

// Encode implements Codec.
func (c RecordCodec) Encode(entry string, res Resource) ([]byte, error) {
	table, ok := res.(*RecordTable)
	if !ok || table == nil {
		return nil, wrongResource(entry, KindRecord, res)
	}
	if table.Schema != "" && table.Schema != c.Schema.Name {
		return nil, &EncodeError{Entry: entry, Reason: fmt.Sprintf("schema %q, want %q", table.Schema, c.Schema.Name)}
	}

	elems := make([][]byte, 0, len(table.Records))
	for i, rec := range table.Records {
		elem, err := c.encodeRecord(rec)
		if err != nil {
			return nil, encodeErr(entry, err, "record %d", i)
		}
		elems = append(elems, elem)
	}

	w := cursor.NewWriter()
	if err := putLengthArray(w, 2, elems); err != nil {
		return nil, encodeErr(entry, err, "write %s table", c.Schema.Name)
	}
	w.PutBytes(table.Trailer)

	return w.Bytes(), nil
}

// encodeRecord serializes one record by schema.
func (c RecordCodec) encodeRecord(rec Record) ([]byte, error) {
	opaque := make(map[string]OpaqueField, len(rec.Opaque))
	for _, f := range rec.Opaque {
		if _, dup := opaque[f.Name]; dup {
			return nil, fmt.Errorf("duplicate opaque field %q", f.Name)
		}
		opaque[f.Name] = f
	}

	for name := range rec.Text {
		if !c.Schema.hasString(name) {
			return nil, fmt.Errorf("unknown text field %q", name)
		}
	}

	w := cursor.NewWriter()
	for _, f := range c.Schema.Fields {
		switch f.Type {
		case FieldString:
			s, ok := rec.Text[f.Name]
			if !ok {
				return nil, fmt.Errorf("missing text field %q", f.Name)
			}
			if err := putPString(w, s); err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
		case FieldOpaque:
			field, ok := opaque[f.Name]
			if !ok {
				return nil, fmt.Errorf("missing opaque field %q", f.Name)
			}
			if len(field.Data) != f.Size {
				return nil, fmt.Errorf("opaque field %q has %d byte(s), want %d", f.Name, len(field.Data), f.Size)
			}
			w.PutBytes(field.Data)
			delete(opaque, f.Name)
		default:
			return nil, fmt.Errorf("%s: unknown field type %d", f.Name, f.Type)
		}
	}

	if tail, ok := opaque["tail"]; ok {
		w.PutBytes(tail.Data)
		delete(opaque, "tail")
	}

	for name := range opaque {
		return nil, fmt.Errorf("unknown opaque field %q", name)
	}

	return w.Bytes(), nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"errors"
	"fmt"
)

// Kind identifies one resource codec variant.
type Kind uint8

// Resource kinds. New resource layouts are added here as new variants.
const (
	// KindRaw stores payload bytes as-is.
	KindRaw Kind = iota
	// KindText is a string table (common text, names, menus, tips).
	KindText
	// KindDialogue is a scene script with opaque control blocks and text lines.
	KindDialogue
	// KindItem is an item group table.
	KindItem
	// KindRecord is a schema-described record table (quests, enemies, classes, skills).
	KindRecord
	// KindSprite is a sprite bank of GBM frames.
	KindSprite
)

// kindNames maps kinds to stable names used in layout files.
var kindNames = [...]string{
	KindRaw:      "raw",
	KindText:     "text",
	KindDialogue: "dialogue",
	KindItem:     "item",
	KindRecord:   "record",
	KindSprite:   "sprite",
}

// kindDirs maps kinds to decoded output subdirectories.
var kindDirs = [...]string{
	KindRaw:      "",
	KindText:     "text",
	KindDialogue: "dialogue",
	KindItem:     "items",
	KindRecord:   "records",
	KindSprite:   "sprites",
}

// String returns stable kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Dir returns decoded output directory for kind, empty for raw.
func (k Kind) Dir() string {
	if int(k) < len(kindDirs) {
		return kindDirs[k]
	}

	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown resource kind %d", uint8(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed
	return nil
}

// ParseKind resolves kind by its stable name.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}

	return KindRaw, fmt.Errorf("unknown resource kind %q", name)
}

// Resource is a decoded, editable view of one entry payload.
type Resource interface {
	Kind() Kind
}

// Codec converts one resource layout between payload bytes and its decoded form.
// Implementations hold no mutable state and are safe for concurrent use.
type Codec interface {
	// Kind reports which resource variant the codec produces.
	Kind() Kind
	// Decode parses payload bytes of entry.
	Decode(entry string, raw []byte) (Resource, error)
	// Encode serializes res back to payload bytes of entry.
	Encode(entry string, res Resource) ([]byte, error)
}

// NewResource returns an empty resource value of kind, ready for JSON decoding.
func NewResource(kind Kind) (Resource, error) {
	switch kind {
	case KindRaw:
		return &RawResource{}, nil
	case KindText:
		return &TextTable{}, nil
	case KindDialogue:
		return &DialogueScript{}, nil
	case KindItem:
		return &ItemTable{}, nil
	case KindRecord:
		return &RecordTable{}, nil
	case KindSprite:
		return &SpriteBank{}, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %d", uint8(kind))
	}
}

// DecodeError reports payload bytes that do not match the expected layout.
type DecodeError struct {
	Err    error
	Entry  string
	Reason string
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Entry, e.Reason, e.Err)
	}

	return fmt.Sprintf("decode %s: %s", e.Entry, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a decoded resource that cannot be serialized.
type EncodeError struct {
	Err    error
	Entry  string
	Reason string
}

// Error implements error.
func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode %s: %s: %v", e.Entry, e.Reason, e.Err)
	}

	return fmt.Sprintf("encode %s: %s", e.Entry, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// decodeErr builds DecodeError, keeping an existing one untouched.
func decodeErr(entry string, err error, reason string, args ...any) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}

	return &DecodeError{Entry: entry, Reason: fmt.Sprintf(reason, args...), Err: err}
}

// encodeErr builds EncodeError, keeping an existing one untouched.
func encodeErr(entry string, err error, reason string, args ...any) error {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return err
	}

	return &EncodeError{Entry: entry, Reason: fmt.Sprintf(reason, args...), Err: err}
}

// wrongResource reports a resource variant mismatch on encode.
func wrongResource(entry string, want Kind, got Resource) error {
	gotKind := "nil"
	if got != nil {
		gotKind = got.Kind().String()
	}

	return &EncodeError{Entry: entry, Reason: fmt.Sprintf("expected %s resource, got %s", want, gotKind)}
}

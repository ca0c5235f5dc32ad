// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import "bytes"

// RawResource holds payload bytes with no structure applied.
type RawResource struct {
	Data []byte `json:"-"`
}

// Kind implements Resource.
func (*RawResource) Kind() Kind { return KindRaw }

// RawCodec is the identity codec used for every entry without a dedicated layout.
type RawCodec struct{}

// Kind implements Codec.
func (RawCodec) Kind() Kind { return KindRaw }

// Decode implements Codec.
func (RawCodec) Decode(_ string, raw []byte) (Resource, error) {
	return &RawResource{Data: bytes.Clone(raw)}, nil
}

// Encode implements Codec.
func (RawCodec) Encode(entry string, res Resource) ([]byte, error) {
	r, ok := res.(*RawResource)
	if !ok || r == nil {
		return nil, wrongResource(entry, KindRaw, res)
	}

	return bytes.Clone(r.Data), nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"fmt"

	"github.com/woozymasta/vfs/internal/cursor"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
)

// TextEncoding is the legacy code page of every in-game string.
var TextEncoding encoding.Encoding = korean.EUCKR

// decodeString converts legacy encoded bytes to UTF-8.
func decodeString(b []byte) (string, error) {
	out, err := TextEncoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode string: %w", err)
	}

	return string(out), nil
}

// encodeString converts UTF-8 text to legacy encoded bytes.
func encodeString(s string) ([]byte, error) {
	out, err := TextEncoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode string %q: %w", s, err)
	}

	return out, nil
}

// readPString reads a u8 length-prefixed legacy string.
func readPString(r *cursor.Reader) (string, error) {
	b, err := r.PString()
	if err != nil {
		return "", err
	}

	return decodeString(b)
}

// putPString writes a u8 length-prefixed legacy string.
func putPString(w *cursor.Writer, s string) error {
	b, err := encodeString(s)
	if err != nil {
		return err
	}

	return w.PutPString(b)
}

// readLengthArray reads an array counted by width-byte integer whose elements are
// prefixed by width-byte lengths.
func readLengthArray(r *cursor.Reader, width int) ([][]byte, error) {
	count, err := r.Uint(width)
	if err != nil {
		return nil, fmt.Errorf("read element count: %w", err)
	}

	out := make([][]byte, 0, min(int(count), r.Remaining()))
	for i := range int(count) {
		n, err := r.Uint(width)
		if err != nil {
			return nil, fmt.Errorf("read length of element %d: %w", i, err)
		}

		elem, err := r.Bytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("read element %d: %w", i, err)
		}

		out = append(out, elem)
	}

	return out, nil
}

// putLengthArray writes elements as a width-counted array of width-prefixed elements.
func putLengthArray(w *cursor.Writer, width int, elems [][]byte) error {
	if err := w.PutUint(width, uint64(len(elems))); err != nil {
		return fmt.Errorf("element count: %w", err)
	}

	for i, elem := range elems {
		if err := w.PutUint(width, uint64(len(elem))); err != nil {
			return fmt.Errorf("length of element %d: %w", i, err)
		}
		w.PutBytes(elem)
	}

	return nil
}

// keyedOrder checks that keys are exactly 0..n-1 and returns slice positions in key order.
func keyedOrder(keys []int) ([]int, error) {
	order := make([]int, len(keys))
	seen := make([]bool, len(keys))
	for pos, key := range keys {
		if key < 0 || key >= len(keys) {
			return nil, fmt.Errorf("key %d outside 0..%d", key, len(keys)-1)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate key %d", key)
		}

		seen[key] = true
		order[key] = pos
	}

	return order, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// Reader provides read-only access to a parsed container.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// index stores parsed record layout.
	index *Index
	// byPath resolves entry position by archive path.
	byPath map[string]int
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens a container file by path and parses its index.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens a container file by path and parses its index using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFromReaderAtWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	r.file = f
	return r, nil
}

// NewReaderFromBytes parses an in-memory container.
func NewReaderFromBytes(data []byte) (*Reader, error) {
	return NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
}

// NewReaderFromReaderAt parses a container from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses a container from existing ReaderAt and known size using explicit reader options.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	idx, err := parseIndex(ra, size, opts)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]int, len(idx.Entries))
	for i, e := range idx.Entries {
		byPath[e.Path] = i
	}

	return &Reader{ra: ra, size: size, index: idx, byPath: byPath}, nil
}

// Entries returns a copy of parsed entries in physical order.
func (r *Reader) Entries() []Entry {
	if r == nil || r.index == nil {
		return nil
	}

	entries := make([]Entry, len(r.index.Entries))
	copy(entries, r.index.Entries)
	return entries
}

// Index returns a copy of the parsed record layout.
func (r *Reader) Index() *Index {
	if r == nil || r.index == nil {
		return nil
	}

	idx := *r.index
	idx.Entries = r.Entries()
	idx.ManifestOrder = append([]string(nil), r.index.ManifestOrder...)
	return &idx
}

// Size returns total container size in bytes.
func (r *Reader) Size() int64 {
	if r == nil {
		return 0
	}

	return r.size
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}

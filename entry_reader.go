// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"fmt"
	"io"
)

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// findEntryByName resolves one entry by normalized path.
func (r *Reader) findEntryByName(name string) *Entry {
	if pos, ok := r.byPath[name]; ok {
		return &r.index.Entries[pos]
	}

	if pos, ok := r.byPath[NormalizePath(name)]; ok {
		return &r.index.Entries[pos]
	}

	return nil
}

// openEntryByInfo opens payload stream for already resolved entry metadata.
func (r *Reader) openEntryByInfo(info *Entry, name string) (io.ReadCloser, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	if info.Offset < 0 || info.Offset+int64(info.Size) > r.size {
		return nil, fmt.Errorf("%w: entry %s payload out of bounds", ErrMalformedHeader, name)
	}

	return nopCloser{Reader: io.NewSectionReader(r.ra, info.Offset, int64(info.Size))}, nil
}

// checkOpen reports reader state errors.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return nil
}

// OpenEntry opens named entry for reading.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.openEntryByInfo(r.findEntryByName(name), name)
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (r *Reader) OpenEntryInfo(info Entry) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	name := info.Path
	if name == "" {
		name = "<unknown>"
	}

	return r.openEntryByInfo(&info, name)
}

// ReadEntry reads full content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.readEntryInfo(r.findEntryByName(name), name)
}

// readEntryInfo reads full payload of resolved entry.
func (r *Reader) readEntryInfo(info *Entry, name string) ([]byte, error) {
	rc, err := r.openEntryByInfo(info, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data := make([]byte, info.Size)
	if _, err := io.ReadFull(rc, data); err != nil {
		return nil, fmt.Errorf("read entry %s: %w", name, err)
	}

	return data, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"io"
)

// ListEntries opens a container and returns entry metadata without payload reads.
func ListEntries(path string) ([]Entry, error) {
	return ListEntriesWithOptions(path, ReaderOptions{})
}

// ListEntriesWithOptions opens a container and returns entry metadata without payload reads using reader options.
func ListEntriesWithOptions(path string, opts ReaderOptions) ([]Entry, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ListEntriesFromReaderAtWithOptions(f, size, opts)
}

// ListEntriesFromReaderAt parses entry metadata from a random-access source.
func ListEntriesFromReaderAt(ra io.ReaderAt, size int64) ([]Entry, error) {
	return ListEntriesFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// ListEntriesFromReaderAtWithOptions parses entry metadata from a random-access source using reader options.
func ListEntriesFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) ([]Entry, error) {
	idx, err := parseIndex(ra, size, opts)
	if err != nil {
		return nil, err
	}

	return filterEntriesByPrefix(idx.Entries, opts.EntryPathPrefix), nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/woozymasta/vfs/codec"
)

// Source identifies which file of an extracted directory supplies an entry payload.
type Source uint8

// Entry payload sources.
const (
	// SourceRaw is the verbatim payload under raw/.
	SourceRaw Source = iota
	// SourceDecoded is the decoded resource re-encoded through its codec.
	SourceDecoded
)

// String returns source name.
func (s Source) String() string {
	switch s {
	case SourceRaw:
		return "raw"
	case SourceDecoded:
		return "decoded"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// RawPath returns the raw payload file of entry under root.
func RawPath(root string, entry string) string {
	return filepath.Join(root, RawDir, filepath.FromSlash(entry))
}

// ResolveSource applies the precedence policy for one entry of an extracted
// directory: the decoded file wins whenever the entry has a registered codec
// and a decoded file exists, unless the layout is raw-only; the raw file is
// used otherwise. ErrMissingSource is returned when neither exists.
func ResolveSource(root string, entry string, reg *codec.Registry, rawOnly bool) (Source, error) {
	if !rawOnly {
		if kind := reg.Lookup(entry).Kind(); kind != codec.KindRaw {
			ok, err := decodedExists(root, kind, entry)
			if err != nil {
				return SourceRaw, err
			}
			if ok {
				return SourceDecoded, nil
			}
		}
	}

	fi, err := os.Stat(RawPath(root, entry))
	if errors.Is(err, fs.ErrNotExist) {
		return SourceRaw, fmt.Errorf("%w: %s", ErrMissingSource, entry)
	}
	if err != nil {
		return SourceRaw, fmt.Errorf("stat raw %s: %w", entry, err)
	}
	if !fi.Mode().IsRegular() {
		return SourceRaw, fmt.Errorf("%w: %s is not a regular file", ErrMissingSource, entry)
	}

	return SourceRaw, nil
}

// rawEdited reports whether the raw file of entry no longer matches the digest
// recorded at extraction. Entries without a recorded digest or raw file are unchanged.
func rawEdited(root string, entry LayoutEntry) (bool, error) {
	if entry.Digest == "" {
		return false, nil
	}
	if err := entry.Digest.Validate(); err != nil {
		return false, fmt.Errorf("layout digest of %s: %w", entry.Path, err)
	}

	f, err := os.Open(RawPath(root, entry.Path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open raw %s: %w", entry.Path, err)
	}
	defer func() { _ = f.Close() }()

	verifier := entry.Digest.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return false, fmt.Errorf("digest raw %s: %w", entry.Path, err)
	}

	return !verifier.Verified(), nil
}

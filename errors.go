// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import "errors"

// Sentinel errors for VFS operations. Use errors.Is in callers.
var (
	// ErrMalformedHeader means the record chain or manifest of a container is inconsistent.
	ErrMalformedHeader = errors.New("malformed VFS container")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrSizeOverflow means a payload exceeds the 32-bit record size field.
	ErrSizeOverflow = errors.New("size exceeds uint32 record limit")
	// ErrInvalidDecodeRule means one or more decode selection rules are invalid.
	ErrInvalidDecodeRule = errors.New("invalid decode rules")
	// ErrInvalidEntryPath means one of input entry paths is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two inputs resolve to the same path.
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrDuplicateEntryHash means two entry paths hash to the same record key.
	ErrDuplicateEntryHash = errors.New("duplicate entry hash")
	// ErrInvalidManifestOrder means manifest order is not a permutation of named entries or its slot is out of range.
	ErrInvalidManifestOrder = errors.New("invalid manifest order or placement")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrLayoutVersion means the layout file was written by an unsupported format version.
	ErrLayoutVersion = errors.New("unsupported layout version")
	// ErrMissingSource means an entry has neither a decoded nor a raw source file.
	ErrMissingSource = errors.New("missing entry source")
)

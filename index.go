// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/woozymasta/vfs/internal/cursor"
)

// Index is the parsed or planned record layout of one container.
type Index struct {
	// Entries are records in physical order, manifest excluded.
	Entries []Entry `json:"entries" yaml:"entries"`
	// ManifestOrder lists named entry paths in manifest order.
	ManifestOrder []string `json:"manifest_order" yaml:"manifest_order"`
	// ManifestSlot is physical position of the manifest record among all records.
	ManifestSlot int `json:"manifest_slot" yaml:"manifest_slot"`
	// ManifestOffset is payload offset of the manifest record.
	ManifestOffset int64 `json:"manifest_offset" yaml:"manifest_offset"`
	// ManifestSize is payload size of the manifest record.
	ManifestSize uint32 `json:"manifest_size" yaml:"manifest_size"`
	// Size is total container size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// ManifestTrailing returns the number of entry records stored after the manifest.
func (idx *Index) ManifestTrailing() int {
	if idx == nil {
		return 0
	}

	return len(idx.Entries) - idx.ManifestSlot
}

// Lookup resolves entry by exact archive path.
func (idx *Index) Lookup(path string) (Entry, bool) {
	if idx == nil {
		return Entry{}, false
	}

	for _, e := range idx.Entries {
		if e.Path == path {
			return e, true
		}
	}

	return Entry{}, false
}

// IndexInput is one planned record for BuildIndex.
type IndexInput struct {
	// Path is entry path; orphan paths keep their stored hash and stay out of the manifest.
	Path string `json:"path" yaml:"path"`
	// Size is payload size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// BuildOptions controls manifest placement in BuildIndex.
type BuildOptions struct {
	// ManifestOrder lists named entries in manifest order; nil uses entry order.
	ManifestOrder []string `json:"manifest_order,omitempty" yaml:"manifest_order,omitempty"`
	// ManifestTrailing is the number of entry records placed after the manifest.
	ManifestTrailing int `json:"manifest_trailing,omitempty" yaml:"manifest_trailing,omitempty"`
}

// ParseIndex parses the record chain and manifest of an in-memory container.
func ParseIndex(data []byte) (*Index, error) {
	return parseIndex(bytes.NewReader(data), int64(len(data)), ReaderOptions{})
}

// rawRecord is one record header found while walking the chain.
type rawRecord struct {
	offset int64
	size   uint32
	hash   uint32
}

// parseIndex walks the record chain from a random-access source.
func parseIndex(ra io.ReaderAt, size int64, opts ReaderOptions) (*Index, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	records, manifestSlot, err := walkRecords(ra, size)
	if err != nil {
		return nil, err
	}

	manifest := records[manifestSlot]
	payload := make([]byte, manifest.size)
	if _, err := ra.ReadAt(payload, manifest.offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	names, err := decodeManifest(payload)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records)-1)
	bySlot := make(map[uint32]int, len(records))
	for i, rec := range records {
		if i == manifestSlot {
			continue
		}

		bySlot[rec.hash] = len(entries)
		entries = append(entries, Entry{
			Offset: rec.offset,
			Size:   rec.size,
			Hash:   rec.hash,
		})
	}

	for _, name := range names {
		if _, ok := ParseOrphanPath(name); ok {
			return nil, fmt.Errorf("%w: manifest name %q uses reserved %s namespace", ErrMalformedHeader, name, OrphanDir)
		}

		hash := PathHash(name)
		pos, ok := bySlot[hash]
		if !ok || hash == ManifestHash {
			return nil, fmt.Errorf("%w: manifest name %q has no record", ErrMalformedHeader, name)
		}
		if entries[pos].Path != "" {
			return nil, fmt.Errorf("%w: manifest names %q and %q share record %08x", ErrMalformedHeader, entries[pos].Path, name, hash)
		}

		entries[pos].Path = name
	}

	for i := range entries {
		if entries[i].Path != "" {
			continue
		}
		if opts.RejectOrphans {
			return nil, fmt.Errorf("%w: record %08x is not named by manifest", ErrMalformedHeader, entries[i].Hash)
		}

		entries[i].Path = OrphanPath(entries[i].Hash)
		entries[i].Orphan = true
	}

	return &Index{
		Entries:        entries,
		ManifestOrder:  names,
		ManifestSlot:   manifestSlot,
		ManifestOffset: manifest.offset,
		ManifestSize:   manifest.size,
		Size:           size,
	}, nil
}

// walkRecords reads every record header and returns records with the manifest slot.
func walkRecords(ra io.ReaderAt, size int64) ([]rawRecord, int, error) {
	records := make([]rawRecord, 0, estimateRecordCapacity(size))
	seen := make(map[uint32]int64)
	manifestSlot := -1

	var header [recordHeaderSize]byte
	var off int64
	for off < size {
		if size-off < recordHeaderSize {
			return nil, 0, fmt.Errorf("%w: %d trailing byte(s) at offset %d", ErrMalformedHeader, size-off, off)
		}

		if _, err := ra.ReadAt(header[:], off); err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read record header at %d: %w", off, err)
		}

		hash := binary.LittleEndian.Uint32(header[0:4])
		n := binary.LittleEndian.Uint32(header[4:8])
		payloadAt := off + recordHeaderSize
		if int64(n) > size-payloadAt {
			return nil, 0, fmt.Errorf("%w: record %08x at offset %d declares %d byte(s), %d available", ErrMalformedHeader, hash, off, n, size-payloadAt)
		}

		if prev, ok := seen[hash]; ok {
			if hash == ManifestHash {
				return nil, 0, fmt.Errorf("%w: duplicate manifest at offsets %d and %d", ErrMalformedHeader, prev, off)
			}

			return nil, 0, fmt.Errorf("%w: duplicate record %08x at offsets %d and %d", ErrMalformedHeader, hash, prev, off)
		}

		seen[hash] = off
		if hash == ManifestHash {
			manifestSlot = len(records)
		}

		records = append(records, rawRecord{offset: payloadAt, size: n, hash: hash})
		off = payloadAt + int64(n)
	}

	if manifestSlot < 0 {
		return nil, 0, fmt.Errorf("%w: manifest record %08x not found", ErrMalformedHeader, ManifestHash)
	}

	return records, manifestSlot, nil
}

// estimateRecordCapacity returns a conservative initial capacity for parsed records.
func estimateRecordCapacity(size int64) int {
	const (
		minCap        = 16
		maxCap        = 8192
		avgRecordSize = 4096
	)

	return int(min(max(size/avgRecordSize, minCap), maxCap))
}

// decodeManifest parses the u32-counted NUL-terminated name table.
func decodeManifest(payload []byte) ([]string, error) {
	r := cursor.NewReader(payload)
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: manifest count: %w", ErrMalformedHeader, err)
	}

	// Every name takes at least one byte plus its terminator.
	if uint64(count)*2 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: manifest declares %d name(s) in %d byte(s)", ErrMalformedHeader, count, r.Remaining())
	}

	names := make([]string, 0, count)
	for i := range count {
		name, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("%w: manifest name %d: %w", ErrMalformedHeader, i, err)
		}
		if len(name) == 0 {
			return nil, fmt.Errorf("%w: manifest name %d is empty", ErrMalformedHeader, i)
		}

		names = append(names, string(name))
	}

	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d byte(s) after manifest names", ErrMalformedHeader, r.Remaining())
	}

	return names, nil
}

// encodeManifest serializes the name table.
func encodeManifest(names []string) ([]byte, error) {
	w := cursor.NewWriter()
	if err := w.PutUint(4, uint64(len(names))); err != nil {
		return nil, fmt.Errorf("%w: manifest count: %w", ErrSizeOverflow, err)
	}

	for _, name := range names {
		if err := w.PutCString([]byte(name)); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidEntryPath, name, err)
		}
	}

	if int64(w.Len()) > maxRecordSize {
		return nil, fmt.Errorf("%w: manifest of %d bytes", ErrSizeOverflow, w.Len())
	}

	return w.Bytes(), nil
}

// recordPlan is a validated entry list with manifest bytes and placement.
type recordPlan struct {
	paths    []string
	hashes   []uint32
	orphans  []bool
	order    []string
	manifest []byte
	slot     int
}

// planRecords validates entry paths and prepares manifest bytes and slot.
func planRecords(paths []string, order []string, trailing int) (*recordPlan, error) {
	plan := &recordPlan{
		paths:   paths,
		hashes:  make([]uint32, len(paths)),
		orphans: make([]bool, len(paths)),
	}

	named := make([]string, 0, len(paths))
	seenPath := make(map[string]struct{}, len(paths))
	seenHash := make(map[uint32]string, len(paths))
	for i, p := range paths {
		if _, ok := seenPath[p]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryPath, p)
		}
		seenPath[p] = struct{}{}

		hash, orphan := ParseOrphanPath(p)
		if !orphan {
			if err := validateManifestName(p); err != nil {
				return nil, err
			}

			hash = PathHash(p)
			named = append(named, p)
		}

		if hash == ManifestHash {
			return nil, fmt.Errorf("%w: %q collides with manifest record", ErrDuplicateEntryHash, p)
		}
		if other, ok := seenHash[hash]; ok {
			return nil, fmt.Errorf("%w: %q and %q share key %08x", ErrDuplicateEntryHash, other, p, hash)
		}

		seenHash[hash] = p
		plan.hashes[i] = hash
		plan.orphans[i] = orphan
	}

	if order == nil {
		order = named
	} else if err := checkManifestOrder(order, named); err != nil {
		return nil, err
	}

	if trailing < 0 || trailing > len(paths) {
		return nil, fmt.Errorf("%w: %d record(s) after manifest, %d entries", ErrInvalidManifestOrder, trailing, len(paths))
	}

	manifest, err := encodeManifest(order)
	if err != nil {
		return nil, err
	}

	plan.order = order
	plan.manifest = manifest
	plan.slot = len(paths) - trailing
	return plan, nil
}

// checkManifestOrder verifies order is a permutation of named paths.
func checkManifestOrder(order []string, named []string) error {
	if len(order) != len(named) {
		return fmt.Errorf("%w: %d name(s), %d named entries", ErrInvalidManifestOrder, len(order), len(named))
	}

	want := make(map[string]bool, len(named))
	for _, p := range named {
		want[p] = true
	}

	for _, p := range order {
		if !want[p] {
			return fmt.Errorf("%w: %q is not a named entry or is listed twice", ErrInvalidManifestOrder, p)
		}

		want[p] = false
	}

	return nil
}

// layout assigns sequential offsets for the given payload sizes.
func (plan *recordPlan) layout(sizes []int64) (*Index, error) {
	idx := &Index{
		Entries:       make([]Entry, len(plan.paths)),
		ManifestOrder: plan.order,
		ManifestSlot:  plan.slot,
		ManifestSize:  uint32(len(plan.manifest)), //nolint:gosec // bounded by encodeManifest
	}

	var off int64
	for i := 0; i <= len(plan.paths); i++ {
		if i == plan.slot {
			idx.ManifestOffset = off + recordHeaderSize
			off = idx.ManifestOffset + int64(len(plan.manifest))
		}
		if i == len(plan.paths) {
			break
		}

		if sizes[i] < 0 || sizes[i] > maxRecordSize {
			return nil, fmt.Errorf("%w: entry %s size %d", ErrSizeOverflow, plan.paths[i], sizes[i])
		}

		idx.Entries[i] = Entry{
			Path:   plan.paths[i],
			Offset: off + recordHeaderSize,
			Size:   uint32(sizes[i]),
			Hash:   plan.hashes[i],
			Orphan: plan.orphans[i],
		}
		off = idx.Entries[i].Offset + sizes[i]
	}

	idx.Size = off
	return idx, nil
}

// BuildIndex plans the record layout for entries written in the given order.
// It returns the index and the manifest payload bytes.
func BuildIndex(entries []IndexInput, opts BuildOptions) (*Index, []byte, error) {
	paths := make([]string, len(entries))
	sizes := make([]int64, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
		sizes[i] = e.Size
	}

	plan, err := planRecords(paths, opts.ManifestOrder, opts.ManifestTrailing)
	if err != nil {
		return nil, nil, err
	}

	idx, err := plan.layout(sizes)
	if err != nil {
		return nil, nil, err
	}

	return idx, plan.manifest, nil
}

// putRecordHeader encodes one record header.
func putRecordHeader(dst []byte, hash uint32, size uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], hash)
	binary.LittleEndian.PutUint32(dst[4:8], size)
}

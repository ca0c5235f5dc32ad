// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	_ "crypto/sha256" // canonical digest algorithm
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/opencontainers/go-digest"
	"github.com/woozymasta/vfs/codec"
)

// Extracted directory layout names.
const (
	// LayoutFile is the layout description written at the extraction root.
	LayoutFile = "vfs.json"
	// RawDir holds verbatim entry payloads.
	RawDir = "raw"
	// LayoutVersion is the current layout file format version.
	LayoutVersion = 1
)

// Layout describes an extracted container so it can be rebuilt byte-identically.
type Layout struct {
	// ManifestOrder lists named entries in manifest order.
	ManifestOrder []string `json:"manifest_order" yaml:"manifest_order"`
	// Entries are container records in physical order.
	Entries []LayoutEntry `json:"entries" yaml:"entries"`
	// Version is the layout format version.
	Version int `json:"version" yaml:"version"`
	// ManifestTrailing is the number of entry records stored after the manifest.
	ManifestTrailing int `json:"manifest_trailing" yaml:"manifest_trailing"`
	// RawOnly marks a layout extracted without decoding; decoded files are ignored on create.
	RawOnly bool `json:"raw_only" yaml:"raw_only"`
}

// LayoutEntry is one container record of a Layout.
type LayoutEntry struct {
	// Path is entry path inside the container.
	Path string `json:"path" yaml:"path"`
	// Digest is the digest of the raw payload written at extraction.
	Digest digest.Digest `json:"digest" yaml:"digest"`
	// Kind is the decoded form written at extraction, raw when only the payload was written.
	Kind codec.Kind `json:"kind" yaml:"kind"`
	// Hash is the stored record key.
	Hash uint32 `json:"hash" yaml:"hash"`
	// Size is raw payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// Orphan marks records not named by the manifest.
	Orphan bool `json:"orphan,omitempty" yaml:"orphan,omitempty"`
}

// ReadLayout reads the layout file from an extracted directory.
// It returns fs.ErrNotExist when the directory has no layout file.
func ReadLayout(dir string) (*Layout, error) {
	data, err := os.ReadFile(filepath.Join(dir, LayoutFile))
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	if layout.Version != LayoutVersion {
		return nil, fmt.Errorf("%w: %d, want %d", ErrLayoutVersion, layout.Version, LayoutVersion)
	}

	if err := layout.validate(); err != nil {
		return nil, err
	}

	return &layout, nil
}

// WriteLayout writes layout to the extraction root.
func WriteLayout(dir string, layout *Layout) error {
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, LayoutFile), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}

	return nil
}

// validate checks entry paths and manifest placement before use.
func (l *Layout) validate() error {
	paths := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		normalized, err := normalizeExtractEntryPath(e.Path)
		if err != nil || normalized != e.Path {
			return fmt.Errorf("%w: layout entry %q", ErrInvalidExtractPath, e.Path)
		}

		paths[i] = e.Path
	}

	if _, err := planRecords(paths, l.ManifestOrder, l.ManifestTrailing); err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	return nil
}

// layoutFromIndex returns a layout skeleton for idx.
func layoutFromIndex(idx *Index, rawOnly bool) *Layout {
	layout := &Layout{
		Version:          LayoutVersion,
		RawOnly:          rawOnly,
		ManifestOrder:    append([]string{}, idx.ManifestOrder...),
		ManifestTrailing: idx.ManifestTrailing(),
		Entries:          make([]LayoutEntry, len(idx.Entries)),
	}

	for i, e := range idx.Entries {
		layout.Entries[i] = LayoutEntry{
			Path:   e.Path,
			Hash:   e.Hash,
			Size:   e.Size,
			Orphan: e.Orphan,
			Kind:   codec.KindRaw,
		}
	}

	return layout
}

// scanLayout builds a layout for a directory without layout file: raw files and
// decoded files in lexicographic path order, manifest last.
func scanLayout(dir string, reg *codec.Registry) (*Layout, error) {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}

		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	rawRoot := filepath.Join(dir, RawDir)
	err := walkFiles(rawRoot, func(rel string) error {
		add(rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, kind := range decodedKinds {
		root := filepath.Join(dir, kind.Dir())
		err := walkFiles(root, func(rel string) error {
			entryPath, ok := decodedEntryPath(rel)
			if !ok || reg.Lookup(entryPath).Kind() != kind {
				return nil
			}

			add(entryPath)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(paths)
	layout := &Layout{Version: LayoutVersion, Entries: make([]LayoutEntry, len(paths))}
	for i, p := range paths {
		layout.Entries[i] = LayoutEntry{Path: p, Hash: entryHash(p), Kind: reg.Lookup(p).Kind()}
		if _, orphan := ParseOrphanPath(p); orphan {
			layout.Entries[i].Orphan = true
			continue
		}

		layout.ManifestOrder = append(layout.ManifestOrder, p)
	}

	if err := layout.validate(); err != nil {
		return nil, err
	}

	return layout, nil
}

// walkFiles calls fn with slash paths of regular files under root, relative to root.
// A missing root is not an error.
func walkFiles(root string, fn func(rel string) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		return fn(filepath.ToSlash(rel))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	return nil
}

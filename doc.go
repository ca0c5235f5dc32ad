// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

/*
Package vfs reads, extracts, rebuilds and edits HL5 VFS containers.

A container is a flat chain of records, each a u32 path hash, a u32 payload
size and the payload, with no padding. One record keyed by ManifestHash holds
the manifest: a u32 count followed by NUL-terminated entry paths. A path's
record is found by PathHash. Records not named by the manifest are kept as
orphans under the reserved OrphanDir namespace with their stored hash.

Rebuilding an extracted container produces identical bytes: entry order,
manifest name order and manifest slot are recorded in the layout file.

# Reading

	r, err := vfs.Open("data.vfs")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, e := range r.Entries() {
	    data, _ := r.ReadEntry(e.Path)
	    // use data
	}

For metadata-only scans:

	entries, err := vfs.ListEntriesWithOptions("data.vfs", vfs.ReaderOptions{
	    EntryPathPrefix: "c/csv",
	})

# Extracting

Extract writes raw/<path> for every entry, a decoded form for entries bound
to a codec in the codec.Registry, and vfs.json:

	res, err := r.Extract(ctx, "out", vfs.ExtractOptions{
	    Decode:     vfs.IncludeRules("/c/csv/*.dat"),
	    MaxWorkers: 4,
	})

Entries that fail to decode stay raw-only and are listed in res.Failures.

# Creating

Create rebuilds an archive from an extracted directory. For every entry a
decoded file, when present and not disabled by a raw-only layout, takes
precedence over the raw file (see ResolveSource). Raw files edited next to a
decoded file are reported in PackResult.IgnoredRawEdits.

	res, err := vfs.Create(ctx, "out", "data.vfs", vfs.CreateOptions{})

Pack and PackFile write archives from caller-provided streams (Input.Open)
in the given order.

# Editing

	ed, err := vfs.OpenEditor("data.vfs", vfs.EditOptions{BackupKeep: 1})
	if err != nil {
	    return err
	}
	_ = ed.Replace(vfs.Input{Path: "c/csv/tips.dat", Open: openTips})
	_ = ed.Delete("c/csv/old.dat")
	res, err := ed.Commit(ctx)

Commit keeps record order and manifest placement; added entries are written
right before the manifest.
*/
package vfs

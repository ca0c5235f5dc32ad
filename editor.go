// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Editor accumulates archive edit operations and applies them on Commit.
type Editor struct {
	path string
	ops  []editOperation
	opts EditOptions
}

// editOperation stores one staged editor operation.
type editOperation struct {
	inputs []Input
	paths  []string
	kind   editOperationKind
}

// editOperationKind identifies staged edit action type.
type editOperationKind uint8

const (
	// editOperationAdd appends new entries and fails on existing path.
	editOperationAdd editOperationKind = iota + 1
	// editOperationReplace rewrites existing entries.
	editOperationReplace
	// editOperationDelete removes exact paths.
	editOperationDelete
	// editOperationDeleteDir removes entries by directory prefix.
	editOperationDeleteDir
)

// OpenEditor creates staged editor for file-based archive rewrite workflow.
func OpenEditor(path string, opts EditOptions) (*Editor, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, ErrInvalidEntryPath
	}

	opts.applyDefaults()

	return &Editor{
		path: trimmedPath,
		opts: opts,
		ops:  make([]editOperation, 0, 8),
	}, nil
}

// Add schedules adding new entries and fails on path collision during commit.
func (e *Editor) Add(inputs ...Input) error {
	if e == nil {
		return ErrNilReader
	}

	normalized, err := normalizeEditorInputs(inputs)
	if err != nil {
		return err
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{
		kind:   editOperationAdd,
		inputs: normalized,
	})

	return nil
}

// Replace schedules replacing existing entries.
func (e *Editor) Replace(inputs ...Input) error {
	if e == nil {
		return ErrNilReader
	}

	normalized, err := normalizeEditorInputs(inputs)
	if err != nil {
		return err
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{
		kind:   editOperationReplace,
		inputs: normalized,
	})

	return nil
}

// Delete schedules exact-path removal.
func (e *Editor) Delete(paths ...string) error {
	if e == nil {
		return ErrNilReader
	}

	normalized, err := normalizeEditorPaths(paths)
	if err != nil {
		return err
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{
		kind:  editOperationDelete,
		paths: normalized,
	})

	return nil
}

// DeleteDir schedules directory-prefix removal.
func (e *Editor) DeleteDir(prefixes ...string) error {
	if e == nil {
		return ErrNilReader
	}

	normalized, err := normalizeEditorPaths(prefixes)
	if err != nil {
		return err
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{
		kind:  editOperationDeleteDir,
		paths: normalized,
	})

	return nil
}

// Commit applies all staged operations in one rewrite transaction.
func (e *Editor) Commit(ctx context.Context) (*PackResult, error) {
	if e == nil {
		return nil, ErrNilReader
	}

	if ctx == nil {
		ctx = context.Background()
	}

	backupPath := e.path + ".bak"
	if err := prepareBackupSlot(backupPath, e.opts.BackupKeep); err != nil {
		return nil, err
	}

	if err := os.Rename(e.path, backupPath); err != nil {
		return nil, fmt.Errorf("move archive to backup: %w", err)
	}

	res, err := e.commitFromBackup(ctx, backupPath)
	if err != nil {
		rollbackErr := rollbackFromBackup(e.path, backupPath)
		if rollbackErr != nil {
			return nil, fmt.Errorf("%v (rollback failed: %v)", err, rollbackErr)
		}

		return nil, err
	}

	if e.opts.BackupKeep == 0 {
		if err := removeIfExists(backupPath); err != nil {
			return nil, fmt.Errorf("remove backup: %w", err)
		}
	}

	return res, nil
}

// commitFromBackup writes edited archive from backup source.
func (e *Editor) commitFromBackup(ctx context.Context, backupPath string) (*PackResult, error) {
	srcFile, size, err := openFileWithSize(backupPath)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	srcIndex, err := parseIndex(srcFile, size, ReaderOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	plan, err := buildEditPlan(srcIndex, e.ops)
	if err != nil {
		return nil, err
	}

	packOpts := e.opts.PackOptions
	packOpts.ManifestOrder = plan.order
	packOpts.ManifestTrailing = plan.trailing

	dstFile, err := os.OpenFile(e.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create destination archive: %w", err)
	}

	res, writeErr := rewriteArchive(ctx, dstFile, srcFile, plan.entries, packOpts)
	if writeErr != nil {
		_ = dstFile.Close()
		return nil, writeErr
	}

	if err := dstFile.Sync(); err != nil {
		_ = dstFile.Close()
		return nil, fmt.Errorf("sync destination archive: %w", err)
	}

	if err := dstFile.Close(); err != nil {
		return nil, fmt.Errorf("close destination archive: %w", err)
	}

	packOpts.Logger.Debug("archive edited",
		slog.String("path", e.path),
		slog.Int("entries", res.WrittenEntries),
		slog.Int("ops", len(e.ops)),
	)

	return res, nil
}

// normalizeEditorInputs validates and canonicalizes editor input list.
func normalizeEditorInputs(inputs []Input) ([]Input, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	normalized := make([]Input, 0, len(inputs))
	for i := range inputs {
		canonicalPath, err := normalizeEditorArchivePath(inputs[i].Path)
		if err != nil {
			return nil, fmt.Errorf("%w: input path %q", ErrInvalidEntryPath, inputs[i].Path)
		}

		item := inputs[i]
		item.Path = canonicalPath
		normalized = append(normalized, item)
	}

	return normalized, nil
}

// normalizeEditorPaths validates and canonicalizes editor path list.
func normalizeEditorPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(paths))
	for _, raw := range paths {
		canonical, err := normalizeEditorArchivePath(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntryPath, raw)
		}

		out = append(out, canonical)
	}

	return out, nil
}

// normalizeEditorArchivePath converts path to canonical archive path form.
func normalizeEditorArchivePath(raw string) (string, error) {
	return normalizeArchiveEntryPath(raw)
}

// editPlan is the rewrite plan of a commit with manifest placement.
type editPlan struct {
	entries  []rewriteEntry
	order    []string
	trailing int
}

// editState tracks surviving records in physical order, split around the manifest.
type editState struct {
	leading  []rewriteEntry
	trailing []rewriteEntry
	order    []string
}

// find returns group and position of path.
func (st *editState) find(path string) (*[]rewriteEntry, int) {
	for _, group := range []*[]rewriteEntry{&st.leading, &st.trailing} {
		for i := range *group {
			if (*group)[i].path == path {
				return group, i
			}
		}
	}

	return nil, -1
}

// buildEditPlan applies staged operations to source records and builds final write plan.
// Surviving records keep their order and side of the manifest; added records go right before it.
func buildEditPlan(src *Index, ops []editOperation) (*editPlan, error) {
	st := &editState{order: append([]string(nil), src.ManifestOrder...)}
	for i := range src.Entries {
		entry := src.Entries[i]
		item := rewriteEntry{path: entry.Path, source: &entry}
		if i < src.ManifestSlot {
			st.leading = append(st.leading, item)
		} else {
			st.trailing = append(st.trailing, item)
		}
	}

	for _, op := range ops {
		switch op.kind {
		case editOperationAdd:
			if err := st.add(op.inputs); err != nil {
				return nil, err
			}
		case editOperationReplace:
			if err := st.replace(op.inputs); err != nil {
				return nil, err
			}
		case editOperationDelete:
			st.deleteMatching(func(path string) bool {
				for _, p := range op.paths {
					if p == path {
						return true
					}
				}

				return false
			})
		case editOperationDeleteDir:
			st.deleteMatching(func(path string) bool {
				for _, prefix := range op.paths {
					if hasEditorDirPrefix(path, prefix) {
						return true
					}
				}

				return false
			})
		default:
			return nil, fmt.Errorf("unknown edit operation kind: %d", op.kind)
		}
	}

	entries := make([]rewriteEntry, 0, len(st.leading)+len(st.trailing))
	entries = append(entries, st.leading...)
	entries = append(entries, st.trailing...)

	return &editPlan{
		entries:  entries,
		order:    st.order,
		trailing: len(st.trailing),
	}, nil
}

// add appends new records and fails on existing paths.
func (st *editState) add(inputs []Input) error {
	for _, in := range inputs {
		if group, _ := st.find(in.Path); group != nil {
			return fmt.Errorf("%w: %q", ErrDuplicateEntryPath, in.Path)
		}

		item := in
		st.leading = append(st.leading, rewriteEntry{path: item.Path, input: &item})
		if _, orphan := ParseOrphanPath(item.Path); !orphan {
			st.order = append(st.order, item.Path)
		}
	}

	return nil
}

// replace swaps payloads of existing records and fails on missing paths.
func (st *editState) replace(inputs []Input) error {
	for _, in := range inputs {
		group, pos := st.find(in.Path)
		if group == nil {
			return fmt.Errorf("%w: %q", ErrEntryNotFound, in.Path)
		}

		item := in
		(*group)[pos] = rewriteEntry{path: item.Path, input: &item}
	}

	return nil
}

// deleteMatching removes records and manifest names matching fn.
func (st *editState) deleteMatching(fn func(path string) bool) {
	keep := func(items []rewriteEntry) []rewriteEntry {
		out := items[:0]
		for _, item := range items {
			if !fn(item.path) {
				out = append(out, item)
			}
		}

		return out
	}

	st.leading = keep(st.leading)
	st.trailing = keep(st.trailing)

	order := st.order[:0]
	for _, name := range st.order {
		if !fn(name) {
			order = append(order, name)
		}
	}
	st.order = order
}

// hasEditorDirPrefix reports whether path is equal to prefix or inside prefixed directory.
func hasEditorDirPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// prepareBackupSlot rotates/removes existing backup generations before new commit.
func prepareBackupSlot(backupPath string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	switch keep {
	case 0, 1:
		return removeIfExists(backupPath)
	default:
		oldest := fmt.Sprintf("%s.%d", backupPath, keep-1)
		if err := removeIfExists(oldest); err != nil {
			return err
		}

		for i := keep - 2; i >= 1; i-- {
			from := fmt.Sprintf("%s.%d", backupPath, i)
			to := fmt.Sprintf("%s.%d", backupPath, i+1)
			if err := renameIfExists(from, to); err != nil {
				return err
			}
		}

		return renameIfExists(backupPath, backupPath+".1")
	}
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}

// rollbackFromBackup restores backup on failed commit.
func rollbackFromBackup(path string, backupPath string) error {
	_ = os.Remove(path)

	if err := os.Rename(backupPath, path); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	return nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/woozymasta/vfs/codec"
	"golang.org/x/sync/errgroup"
)

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	entry   Entry
}

// extractOutcome is the per-entry result stored by work item index.
type extractOutcome struct {
	failure *DecodeFailure
	layout  LayoutEntry
	decoded bool
}

// Extract writes every entry to dstDir: the verbatim payload under raw/, a
// decoded form for entries with a registered codec, and the layout file.
// Entries that fail to decode stay raw-only and are reported in the result;
// I/O errors abort extraction.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) (*ExtractResult, error) {
	startedAt := time.Now()

	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newDecodeMatcher(opts.Decode, opts.DecodeMatcherOptions)
	if err != nil {
		return nil, err
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	rawRoot := filepath.Join(dstRootAbs, RawDir)
	if err := os.MkdirAll(rawRoot, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	workItems, err := prepareExtractWorkItems(r.index.Entries)
	if err != nil {
		return nil, err
	}

	if err := prepareExtractDirs(rawRoot, workItems); err != nil {
		return nil, err
	}

	outcomes := make([]extractOutcome, len(workItems))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.MaxWorkers)
	for i := range workItems {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			outcome, err := r.extractPreparedEntry(dstRootAbs, workItems[i], matcher, &opts)
			if err != nil {
				return err
			}

			outcomes[i] = outcome
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	layout := layoutFromIndex(r.index, opts.RawOnly)
	res := &ExtractResult{RawEntries: len(workItems)}
	for i, outcome := range outcomes {
		layout.Entries[i] = outcome.layout
		if outcome.decoded {
			res.DecodedEntries++
		}
		if outcome.failure != nil {
			res.Failures = append(res.Failures, *outcome.failure)
		}
	}

	if err := WriteLayout(dstRootAbs, layout); err != nil {
		return nil, err
	}

	res.Duration = time.Since(startedAt)
	opts.Logger.Info("archive extracted",
		slog.String("dir", dstRootAbs),
		slog.Int("entries", res.RawEntries),
		slog.Int("decoded", res.DecodedEntries),
		slog.Int("failed", len(res.Failures)),
	)

	return res, nil
}

// prepareExtractWorkItems validates selected entries and prepares relative fs paths.
func prepareExtractWorkItems(entries []Entry) ([]extractWorkItem, error) {
	workItems := make([]extractWorkItem, 0, len(entries))
	for _, entry := range entries {
		normalizedPath, err := normalizeExtractEntryPath(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", entry.Path, err)
		}

		if normalizedPath != entry.Path {
			return nil, fmt.Errorf("%w: %q is not in canonical form", ErrInvalidExtractPath, entry.Path)
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." || relDir == "" {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if _, exists := seen[dirPath]; exists {
			continue
		}

		seen[dirPath] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry writes raw and decoded forms of one work item.
func (r *Reader) extractPreparedEntry(
	dstRootAbs string,
	task extractWorkItem,
	matcher *decodeMatcher,
	opts *ExtractOptions,
) (extractOutcome, error) {
	entry := task.entry
	data, err := r.readEntryInfo(&entry, entry.Path)
	if err != nil {
		return extractOutcome{}, err
	}

	outPath := filepath.Join(dstRootAbs, RawDir, task.relPath)
	if err := writeExtractFile(outPath, opts.FileMode, data); err != nil {
		return extractOutcome{}, fmt.Errorf("write %s: %w", entry.Path, err)
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(entry, int64(len(data)), outPath)
	}

	outcome := extractOutcome{layout: LayoutEntry{
		Path:   entry.Path,
		Digest: digest.FromBytes(data),
		Kind:   codec.KindRaw,
		Hash:   entry.Hash,
		Size:   entry.Size,
		Orphan: entry.Orphan,
	}}

	kind := opts.Registry.Lookup(entry.Path).Kind()
	if kind == codec.KindRaw {
		return outcome, nil
	}

	// Stale decoded files would shadow the raw payload on create.
	if err := removeDecoded(dstRootAbs, kind, entry.Path); err != nil {
		return extractOutcome{}, err
	}

	if opts.RawOnly || !matcher.Match(entry.Path) {
		return outcome, nil
	}

	res, err := opts.Registry.Decode(entry.Path, data)
	if err == nil {
		err = writeDecoded(dstRootAbs, entry.Path, res)
		if err != nil {
			_ = removeDecoded(dstRootAbs, kind, entry.Path)
		}
	}

	if err != nil {
		opts.Logger.Warn("entry left raw-only",
			slog.String("path", entry.Path),
			slog.String("kind", kind.String()),
			slog.Any("error", err),
		)
		outcome.failure = &DecodeFailure{Path: entry.Path, Err: err, Message: err.Error()}
		return outcome, nil
	}

	outcome.layout.Kind = kind
	outcome.decoded = true
	opts.Logger.Debug("entry decoded", slog.String("path", entry.Path), slog.String("kind", kind.String()))
	return outcome, nil
}

// openExtractFile opens output path according to selected extract file mode.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, error) {
	switch mode {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return file, nil
		}

		if !os.IsExist(err) {
			return nil, err
		}

		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}
}

// writeExtractFile writes data to path according to file mode.
func writeExtractFile(path string, mode ExtractFileMode, data []byte) error {
	file, err := openExtractFile(path, mode)
	if err != nil {
		return err
	}

	n, writeErr := file.Write(data)
	closeErr := file.Close()
	if writeErr != nil {
		return writeErr
	}
	if n != len(data) {
		return io.ErrShortWrite
	}

	return closeErr
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/woozymasta/vfs/codec"
	"golang.org/x/sync/errgroup"
)

// createItem is one resolved entry of a create run, stored by layout index.
type createItem struct {
	payload []byte
	source  Source
	edited  bool
}

// Create builds archivePath from an extracted directory. Entry order, hashes and
// manifest placement come from the layout file; without one, raw and decoded
// files are packed in lexicographic path order with the manifest last. Every
// decoded resource is encoded before the archive is touched, so an encode
// failure leaves no output.
func Create(ctx context.Context, srcDir string, archivePath string, opts CreateOptions) (*PackResult, error) {
	startedAt := time.Now()

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	layout, err := ReadLayout(srcDir)
	if errors.Is(err, fs.ErrNotExist) {
		opts.Logger.Debug("layout file not found, scanning directory", slog.String("dir", srcDir))
		layout, err = scanLayout(srcDir, opts.Registry)
	}
	if err != nil {
		return nil, err
	}

	items, err := resolveCreateItems(ctx, srcDir, layout, &opts)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, len(layout.Entries))
	var ignored []string
	encoded := 0
	for i, e := range layout.Entries {
		item := items[i]
		inputs[i] = createInput(srcDir, e.Path, item)
		if item.source == SourceDecoded {
			encoded++
		}
		if item.edited {
			ignored = append(ignored, e.Path)
			opts.Logger.Warn("raw file edit ignored, decoded file takes precedence",
				slog.String("path", e.Path),
				slog.String("raw", RawPath(srcDir, e.Path)),
				slog.String("decoded", DecodedPath(srcDir, opts.Registry.Lookup(e.Path).Kind(), e.Path)),
			)
		}
	}

	packOpts := opts.PackOptions
	packOpts.ManifestOrder = layout.ManifestOrder
	packOpts.ManifestTrailing = layout.ManifestTrailing

	res, err := PackFile(ctx, archivePath, inputs, packOpts)
	if err != nil {
		return nil, err
	}

	res.EncodedEntries = encoded
	res.IgnoredRawEdits = ignored
	res.Duration = time.Since(startedAt)
	opts.Logger.Info("archive created",
		slog.String("path", archivePath),
		slog.Int("entries", res.WrittenEntries),
		slog.Int("encoded", res.EncodedEntries),
		slog.Int("ignored_raw_edits", len(res.IgnoredRawEdits)),
	)

	return res, nil
}

// resolveCreateItems resolves sources and encodes decoded resources on a bounded worker group.
func resolveCreateItems(ctx context.Context, srcDir string, layout *Layout, opts *CreateOptions) ([]createItem, error) {
	items := make([]createItem, len(layout.Entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.MaxWorkers)
	for i := range layout.Entries {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			item, err := resolveCreateItem(srcDir, layout.Entries[i], layout.RawOnly, opts.Registry)
			if err != nil {
				return err
			}

			items[i] = item
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

// resolveCreateItem resolves one entry and encodes it when its decoded file wins.
func resolveCreateItem(srcDir string, entry LayoutEntry, rawOnly bool, reg *codec.Registry) (createItem, error) {
	source, err := ResolveSource(srcDir, entry.Path, reg, rawOnly)
	if err != nil {
		return createItem{}, err
	}

	if source == SourceRaw {
		return createItem{source: SourceRaw}, nil
	}

	kind := reg.Lookup(entry.Path).Kind()
	res, err := readDecoded(srcDir, kind, entry.Path)
	if err != nil {
		return createItem{}, fmt.Errorf("load decoded %s: %w", entry.Path, err)
	}

	payload, err := reg.Encode(entry.Path, res)
	if err != nil {
		return createItem{}, err
	}

	edited, err := rawEdited(srcDir, entry)
	if err != nil {
		return createItem{}, err
	}

	return createItem{payload: payload, source: SourceDecoded, edited: edited}, nil
}

// createInput returns the pack input of one resolved entry.
func createInput(srcDir string, entry string, item createItem) Input {
	if item.source == SourceDecoded {
		payload := item.payload
		return Input{
			Path:     entry,
			SizeHint: int64(len(payload)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(payload)), nil
			},
		}
	}

	rawPath := RawPath(srcDir, entry)
	in := Input{
		Path: entry,
		Open: func() (io.ReadCloser, error) {
			return os.Open(rawPath) //nolint:gosec // path is built from validated layout entries
		},
	}
	if fi, err := os.Stat(rawPath); err == nil {
		in.SizeHint = fi.Size()
	}

	return in
}

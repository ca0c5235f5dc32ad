// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// defaultPackWriterPool reuses default-sized bufio writers between Pack calls.
	defaultPackWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
		},
	}
	// defaultPackCopyBufferPool reuses payload copy buffers between Pack calls.
	defaultPackCopyBufferPool = sync.Pool{
		New: func() any {
			return new([packCopyBufferSize]byte)
		},
	}
)

const (
	// packCopyBufferSize is per-pack temporary buffer used by streaming payload copy.
	packCopyBufferSize = 64 * 1024
)

// rewriteEntry describes one payload source for archive rewrite core.
type rewriteEntry struct {
	input  *Input
	source *Entry
	path   string
}

// rewriteArchiveResult contains rewrite core result and written layout.
type rewriteArchiveResult struct {
	packResult *PackResult
	index      *Index
}

// sizePatch is a record header whose size field is rewritten after streaming.
type sizePatch struct {
	at   int64
	size uint32
}

// Pack writes a container to out from inputs in the given order.
// Record sizes of streamed inputs are patched in place, so out must be seekable.
func Pack(ctx context.Context, out io.WriteSeeker, inputs []Input, opts PackOptions) (*PackResult, error) {
	opts.applyDefaults()

	rewritePlan, err := preparePackRewritePlan(inputs)
	if err != nil {
		return nil, err
	}

	return rewriteArchive(ctx, out, nil, rewritePlan, opts)
}

// PackFile writes a container to outPath. Data goes to a temporary file in the
// same directory which replaces outPath only after a successful pack.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}

	tmpPath := f.Name()
	defer func() {
		if f != nil {
			_ = f.Close()
		}
		_ = removeIfExists(tmpPath)
	}()

	res, err := Pack(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync archive file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close archive file: %w", err)
	}
	f = nil

	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("replace archive file: %w", err)
	}

	return res, nil
}

// acquirePackWriter returns a buffered writer and release callback for Pack.
func acquirePackWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultPackWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultPackWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// acquirePackCopyBuffer returns reusable payload copy buffer and release callback.
func acquirePackCopyBuffer() ([]byte, func()) {
	arr := defaultPackCopyBufferPool.Get().(*[packCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	buf := arr[:]

	return buf, func() {
		defaultPackCopyBufferPool.Put(arr)
	}
}

// preparePackRewritePlan normalizes pack inputs, keeping their order.
func preparePackRewritePlan(inputs []Input) ([]rewriteEntry, error) {
	normalized := make([]Input, len(inputs))
	copy(normalized, inputs)

	rewritePlan := make([]rewriteEntry, len(normalized))
	for i := range normalized {
		normalizedPath, err := normalizeArchiveEntryPath(normalized[i].Path)
		if err != nil {
			return nil, err
		}
		if normalized[i].SizeHint > maxRecordSize {
			return nil, fmt.Errorf("%w: entry %s size hint %d", ErrSizeOverflow, normalizedPath, normalized[i].SizeHint)
		}

		normalized[i].Path = normalizedPath
		rewritePlan[i] = rewriteEntry{
			path:  normalizedPath,
			input: &normalized[i],
		}
	}

	return rewritePlan, nil
}

// openInputReader opens source stream for one input.
func openInputReader(in Input) (io.ReadCloser, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("input %s: Open is nil", in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", in.Path, err)
	}

	return rc, nil
}

// rewriteArchive is shared writer core for Pack, Create and editor commit flows.
func rewriteArchive(
	ctx context.Context,
	out io.WriteSeeker,
	src io.ReaderAt,
	rewritePlan []rewriteEntry,
	opts PackOptions,
) (*PackResult, error) {
	details, err := rewriteArchiveDetailed(ctx, out, src, rewritePlan, opts)
	if err != nil {
		return nil, err
	}

	return details.packResult, nil
}

// rewriteArchiveDetailed runs shared rewrite core and returns written layout.
func rewriteArchiveDetailed(
	ctx context.Context,
	out io.WriteSeeker,
	src io.ReaderAt,
	rewritePlan []rewriteEntry,
	opts PackOptions,
) (*rewriteArchiveResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	paths := make([]string, len(rewritePlan))
	for i, item := range rewritePlan {
		paths[i] = item.path
	}

	records, err := planRecords(paths, opts.ManifestOrder, opts.ManifestTrailing)
	if err != nil {
		return nil, err
	}

	base, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek archive start: %w", err)
	}

	w, releaseWriter := acquirePackWriter(out, opts.WriterBufferSize)
	defer releaseWriter()

	copyBuf, releaseCopyBuffer := acquirePackCopyBuffer()
	defer releaseCopyBuffer()

	var (
		header  [recordHeaderSize]byte
		patches []sizePatch
		pos     = base
	)

	sizes := make([]int64, len(rewritePlan))
	for i := 0; i <= len(rewritePlan); i++ {
		if i == records.slot {
			putRecordHeader(header[:], ManifestHash, uint32(len(records.manifest))) //nolint:gosec // bounded by encodeManifest
			if _, err := w.Write(header[:]); err != nil {
				return nil, fmt.Errorf("write manifest header: %w", err)
			}
			if _, err := w.Write(records.manifest); err != nil {
				return nil, fmt.Errorf("write manifest: %w", err)
			}

			pos += recordHeaderSize + int64(len(records.manifest))
		}
		if i == len(rewritePlan) {
			break
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := rewritePlan[i]
		declared := declaredSize(item)
		putRecordHeader(header[:], records.hashes[i], declared)
		if _, err := w.Write(header[:]); err != nil {
			return nil, fmt.Errorf("write record header %s: %w", item.path, err)
		}

		written, err := writeRewritePayload(w, src, item, copyBuf)
		if err != nil {
			return nil, err
		}

		if written != int64(declared) {
			patches = append(patches, sizePatch{at: pos + 4, size: uint32(written)}) //nolint:gosec // bounded by copyPayloadBounded
		}

		sizes[i] = written
		payloadAt := pos + recordHeaderSize
		pos = payloadAt + written

		opts.Logger.Debug("record written",
			slog.String("path", item.path),
			slog.Int64("offset", payloadAt-base),
			slog.Int64("size", written),
		)

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Path:   item.path,
				Offset: payloadAt - base,
				Size:   uint32(written), //nolint:gosec // bounded by copyPayloadBounded
				Hash:   records.hashes[i],
			})
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush records: %w", err)
	}

	if err := applySizePatches(out, patches, pos); err != nil {
		return nil, err
	}

	idx, err := records.layout(sizes)
	if err != nil {
		return nil, err
	}

	var dataSize int64
	for _, n := range sizes {
		dataSize += n
	}

	return &rewriteArchiveResult{
		packResult: &PackResult{
			WrittenEntries: len(rewritePlan),
			DataSize:       dataSize,
			IndexSize:      idx.Size - dataSize,
			Duration:       time.Since(startedAt),
		},
		index: idx,
	}, nil
}

// declaredSize returns the size written in a record header before its payload is streamed.
func declaredSize(item rewriteEntry) uint32 {
	if item.source != nil {
		return item.source.Size
	}

	if item.input != nil && item.input.SizeHint > 0 && item.input.SizeHint <= maxRecordSize {
		return uint32(item.input.SizeHint)
	}

	return 0
}

// writeRewritePayload writes one rewrite item payload and returns its size.
func writeRewritePayload(dst io.Writer, src io.ReaderAt, item rewriteEntry, copyBuf []byte) (int64, error) {
	if item.source != nil {
		if src == nil {
			return 0, ErrNilReader
		}

		return writeSourcePayload(dst, src, item.path, *item.source, copyBuf)
	}

	if item.input == nil {
		return 0, fmt.Errorf("entry %s: missing input/source", item.path)
	}

	rc, err := openInputReader(*item.input)
	if err != nil {
		return 0, err
	}

	written, writeErr := copyPayloadBounded(dst, rc, maxRecordSize, copyBuf)
	closeErr := rc.Close()
	if writeErr != nil {
		return 0, fmt.Errorf("stream input %s: %w", item.path, writeErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close input %s: %w", item.path, closeErr)
	}

	return written, nil
}

// writeSourcePayload copies an existing record payload from source archive.
func writeSourcePayload(dst io.Writer, src io.ReaderAt, path string, entry Entry, copyBuf []byte) (int64, error) {
	size := int64(entry.Size)
	sr := io.NewSectionReader(src, entry.Offset, size)
	written, err := copyPayloadBounded(dst, sr, size, copyBuf)
	if err != nil {
		return 0, fmt.Errorf("copy entry %s: %w", path, err)
	}
	if written != size {
		return 0, fmt.Errorf("copy entry %s: short read (%d/%d)", path, written, size)
	}

	return written, nil
}

// applySizePatches rewrites record size fields and seeks back to end.
func applySizePatches(out io.WriteSeeker, patches []sizePatch, end int64) error {
	if len(patches) == 0 {
		return nil
	}

	var field [4]byte
	for _, p := range patches {
		if _, err := out.Seek(p.at, io.SeekStart); err != nil {
			return fmt.Errorf("seek to record size at %d: %w", p.at, err)
		}

		binary.LittleEndian.PutUint32(field[:], p.size)
		if _, err := out.Write(field[:]); err != nil {
			return fmt.Errorf("patch record size at %d: %w", p.at, err)
		}
	}

	if _, err := out.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("seek archive end: %w", err)
	}

	return nil
}

// copyPayloadBounded streams payload from src to dst and enforces strict size limit.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}
	if src == nil {
		return 0, ErrNilReader
	}
	if limit < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		remaining := limit - written
		if int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	// If we consumed exactly the limit, probe one extra byte to ensure source is not longer.
	if written == limit {
		var probe [1]byte
		n, err := src.Read(probe[:])
		if n > 0 {
			return written, ErrSizeOverflow
		}
		if err != nil && err != io.EOF {
			return written, err
		}
	}

	return written, nil
}

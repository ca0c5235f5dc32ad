// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/vfs/codec"
)

// Internal binary layout and format limits.
const (
	recordHeaderSize = 8         // u32 path hash + u32 payload size
	maxNameLen       = 512       // max entry path length in manifest
	maxRecordSize    = 1<<32 - 1 // max payload size of one record
)

// Default packer tuning values.
const (
	DefaultWriteBuffer = 4 * 1024 * 1024
)

// Entry describes one record of a parsed container.
type Entry struct {
	// Path is the manifest name, or OrphanPath(Hash) for unnamed records.
	Path string `json:"path" yaml:"path"`
	// Offset is byte offset of entry payload.
	Offset int64 `json:"offset" yaml:"offset"`
	// Size is payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// Hash is the stored record key.
	Hash uint32 `json:"hash" yaml:"hash"`
	// Orphan reports that the manifest does not name this record.
	Orphan bool `json:"orphan,omitempty" yaml:"orphan,omitempty"`
}

// Input describes one source stream to be packed into a container entry.
type Input struct {
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path is destination path inside the container.
	Path string `json:"path" yaml:"path"`
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// PackEntryProgress contains one completed entry write event from pack flow.
type PackEntryProgress struct {
	// Path is entry path written to archive.
	Path string `json:"path" yaml:"path"`
	// Offset is payload offset in resulting archive.
	Offset int64 `json:"offset" yaml:"offset"`
	// Size is payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// Hash is the written record key.
	Hash uint32 `json:"hash" yaml:"hash"`
}

// PackOptions configures pack behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written to archive payload.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Logger receives pack diagnostics; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// ManifestOrder lists named entries in manifest order; nil uses input order.
	ManifestOrder []string `json:"manifest_order,omitempty" yaml:"manifest_order,omitempty"`
	// ManifestTrailing is the number of entry records written after the manifest.
	// Zero writes the manifest last.
	ManifestTrailing int `json:"manifest_trailing,omitempty" yaml:"manifest_trailing,omitempty"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// IgnoredRawEdits lists raw files that changed since extraction but were
	// shadowed by decoded sources.
	IgnoredRawEdits []string `json:"ignored_raw_edits,omitempty" yaml:"ignored_raw_edits,omitempty"`
	// WrittenEntries is number of entries written to archive.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// EncodedEntries is number of entries built from decoded sources.
	EncodedEntries int `json:"encoded_entries,omitempty" yaml:"encoded_entries,omitempty"`
	// DataSize is total payload bytes written.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// IndexSize is total manifest and record header bytes written.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// Duration is end-to-end pack core duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// EditOptions configures file-based archive edit flow.
type EditOptions struct {
	// PackOptions are applied during commit; manifest placement is taken from the source archive.
	PackOptions PackOptions `json:"pack_options,omitzero" yaml:"pack_options,omitzero"`
	// BackupKeep controls how many backup generations are kept after successful commit.
	// 0 means remove backup, 1 keeps only `<archive>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// ReaderOptions configures reader parse behavior.
type ReaderOptions struct {
	// RejectOrphans fails parsing when a record is not named by the manifest.
	RejectOrphans bool `json:"reject_orphans,omitempty" yaml:"reject_orphans,omitempty"`
	// EntryPathPrefix limits listed entries to one directory (ListEntries only).
	EntryPathPrefix string `json:"entry_path_prefix,omitempty" yaml:"entry_path_prefix,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one raw entry is fully written to disk.
	OnEntryDone func(entry Entry, written int64, outputPath string) `json:"-" yaml:"-"`
	// Logger receives per-entry diagnostics; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Registry resolves entry codecs; nil uses codec.DefaultRegistry.
	Registry *codec.Registry `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Decode selects entries passed to codecs; empty means every entry with a registered codec.
	Decode []pathrules.Rule `json:"decode,omitempty" yaml:"decode,omitempty"`
	// DecodeMatcherOptions control decode rule matching.
	DecodeMatcherOptions pathrules.MatcherOptions `json:"decode_matcher_options,omitzero" yaml:"decode_matcher_options,omitzero"`
	// MaxWorkers is number of decode workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawOnly skips decoding; only raw payloads and layout are written.
	RawOnly bool `json:"raw_only,omitempty" yaml:"raw_only,omitempty"`
}

// ExtractResult contains extraction statistics and per-entry decode failures.
type ExtractResult struct {
	// Failures lists entries that stayed raw-only because decoding failed.
	Failures []DecodeFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	// RawEntries is number of raw payload files written.
	RawEntries int `json:"raw_entries" yaml:"raw_entries"`
	// DecodedEntries is number of entries written in decoded form.
	DecodedEntries int `json:"decoded_entries" yaml:"decoded_entries"`
	// Duration is end-to-end extraction duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// DecodeFailure records one entry left raw-only.
type DecodeFailure struct {
	// Err is the codec or store error.
	Err error `json:"-" yaml:"-"`
	// Path is the entry path.
	Path string `json:"path" yaml:"path"`
	// Message is Err text for serialized reports.
	Message string `json:"error" yaml:"error"`
}

// CreateOptions configures building a container from an extracted directory.
type CreateOptions struct {
	// Logger receives diagnostics; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Registry resolves entry codecs; nil uses codec.DefaultRegistry.
	Registry *codec.Registry `json:"-" yaml:"-"`
	// PackOptions are applied to the final pack; manifest placement comes from layout.
	PackOptions PackOptions `json:"pack_options,omitzero" yaml:"pack_options,omitzero"`
	// MaxWorkers is number of encode workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// discardLogger returns logger or a logger that drops every record.
func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return logger
}

// defaultWorkers returns n or GOMAXPROCS when n is not positive.
func defaultWorkers(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n < 1 {
		n = 1
	}

	return n
}

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.ManifestTrailing < 0 {
		opts.ManifestTrailing = 0
	}

	opts.Logger = discardLogger(opts.Logger)
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.Registry == nil {
		opts.Registry = codec.DefaultRegistry()
	}

	if opts.DecodeMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.DecodeMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.DecodeMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.DecodeMatcherOptions.DefaultAction = pathrules.ActionExclude
	}

	opts.MaxWorkers = defaultWorkers(opts.MaxWorkers)
	opts.Logger = discardLogger(opts.Logger)
}

// applyDefaults fills zero-valued create options with defaults.
func (opts *CreateOptions) applyDefaults() {
	if opts.Registry == nil {
		opts.Registry = codec.DefaultRegistry()
	}

	opts.MaxWorkers = defaultWorkers(opts.MaxWorkers)
	opts.Logger = discardLogger(opts.Logger)
	if opts.PackOptions.Logger == nil {
		opts.PackOptions.Logger = opts.Logger
	}
}

// applyDefaults fills zero-valued edit options with defaults.
func (opts *EditOptions) applyDefaults() {
	opts.PackOptions.applyDefaults()

	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}

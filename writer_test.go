// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// streamInput returns an input without size hint.
func streamInput(path string, data []byte) Input {
	return Input{
		Path: path,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// createOutFile creates an empty output file removed with the test.
func createOutFile(t *testing.T) *os.File {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "out.vfs"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	return f
}

func TestCopyPayloadBounded(t *testing.T) {
	t.Parallel()

	t.Run("exact limit", func(t *testing.T) {
		t.Parallel()

		var dst bytes.Buffer
		src := bytes.NewReader([]byte("abc"))
		written, err := copyPayloadBounded(&dst, src, 3, make([]byte, 2))
		if err != nil {
			t.Fatalf("copyPayloadBounded: %v", err)
		}
		if written != 3 {
			t.Fatalf("written=%d, want 3", written)
		}
		if got := dst.String(); got != "abc" {
			t.Fatalf("dst=%q, want %q", got, "abc")
		}
	})

	t.Run("overflow", func(t *testing.T) {
		t.Parallel()

		var dst bytes.Buffer
		src := bytes.NewReader([]byte("abcdef"))
		written, err := copyPayloadBounded(&dst, src, 3, make([]byte, 2))
		if !errors.Is(err, ErrSizeOverflow) {
			t.Fatalf("expected ErrSizeOverflow, got %v", err)
		}
		if written != 3 {
			t.Fatalf("written=%d, want 3", written)
		}
	})

	t.Run("short source", func(t *testing.T) {
		t.Parallel()

		var dst bytes.Buffer
		written, err := copyPayloadBounded(&dst, bytes.NewReader([]byte("ab")), 10, nil)
		if err != nil {
			t.Fatalf("copyPayloadBounded: %v", err)
		}
		if written != 2 {
			t.Fatalf("written=%d, want 2", written)
		}
	})
}

// TestPack_MatchesManualContainer verifies byte-exact layout against a hand-built container.
func TestPack_MatchesManualContainer(t *testing.T) {
	t.Parallel()

	got := packToBytes(t, []Input{
		bytesInput("b.txt", []byte("second")),
		bytesInput("a.txt", []byte("first")),
		bytesInput("empty.bin", nil),
	}, PackOptions{})

	want := buildContainer(
		namedRecord("b.txt", []byte("second")),
		namedRecord("a.txt", []byte("first")),
		namedRecord("empty.bin", nil),
		manifestRecord("b.txt", "a.txt", "empty.bin"),
	)

	if !bytes.Equal(got, want) {
		t.Fatalf("packed container mismatch:\n got %x\nwant %x", got, want)
	}
}

// TestPack_EmptyArchive verifies a manifest-only container round-trips.
func TestPack_EmptyArchive(t *testing.T) {
	t.Parallel()

	got := packToBytes(t, nil, PackOptions{})
	if !bytes.Equal(got, buildContainer(manifestRecord())) {
		t.Fatalf("empty container=%x", got)
	}

	idx, err := ParseIndex(got)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	if len(idx.Entries) != 0 {
		t.Fatalf("entries=%d, want 0", len(idx.Entries))
	}
}

// TestPack_UnknownSizeHintPatched verifies streamed inputs get their record size patched.
func TestPack_UnknownSizeHintPatched(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("z"), 100*1024)
	got := packToBytes(t, []Input{
		streamInput("stream.bin", payload),
		bytesInput("tail.txt", []byte("tail")),
	}, PackOptions{})

	want := buildContainer(
		namedRecord("stream.bin", payload),
		namedRecord("tail.txt", []byte("tail")),
		manifestRecord("stream.bin", "tail.txt"),
	)

	if !bytes.Equal(got, want) {
		t.Fatal("streamed container mismatch")
	}
}

// TestPack_WrongSizeHintPatched verifies a stale size hint does not corrupt the chain.
func TestPack_WrongSizeHintPatched(t *testing.T) {
	t.Parallel()

	in := bytesInput("a.bin", []byte("actual payload"))
	in.SizeHint = 3

	got := packToBytes(t, []Input{in}, PackOptions{})
	if payload := readEntryBytes(t, got, "a.bin"); string(payload) != "actual payload" {
		t.Fatalf("payload=%q", payload)
	}
}

// TestPack_ManifestPlacement verifies explicit manifest order and trailing records.
func TestPack_ManifestPlacement(t *testing.T) {
	t.Parallel()

	got := packToBytes(t, []Input{
		bytesInput("a", []byte("A")),
		bytesInput("b", []byte("B")),
		bytesInput("c", []byte("C")),
	}, PackOptions{ManifestOrder: []string{"c", "a", "b"}, ManifestTrailing: 2})

	want := buildContainer(
		namedRecord("a", []byte("A")),
		manifestRecord("c", "a", "b"),
		namedRecord("b", []byte("B")),
		namedRecord("c", []byte("C")),
	)

	if !bytes.Equal(got, want) {
		t.Fatalf("container mismatch:\n got %x\nwant %x", got, want)
	}
}

// TestPack_OrphanInput verifies orphan paths keep their key and stay out of the manifest.
func TestPack_OrphanInput(t *testing.T) {
	t.Parallel()

	got := packToBytes(t, []Input{
		bytesInput("a", []byte("A")),
		bytesInput("_orphan/00001234.bin", []byte("lost")),
	}, PackOptions{})

	want := buildContainer(
		namedRecord("a", []byte("A")),
		manualRecord{hash: 0x1234, payload: []byte("lost")},
		manifestRecord("a"),
	)

	if !bytes.Equal(got, want) {
		t.Fatalf("container mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestPack_RejectsDuplicateEntryPaths(t *testing.T) {
	t.Parallel()

	f := createOutFile(t)
	inputs := []Input{
		bytesInput("c/csv/a.dat", []byte("ok")),
		bytesInput(`c\csv\a.dat`, []byte("ok")),
	}

	_, err := Pack(context.Background(), f, inputs, PackOptions{})
	if !errors.Is(err, ErrDuplicateEntryPath) {
		t.Fatalf("expected ErrDuplicateEntryPath, got %v", err)
	}
}

func TestPack_CaseDistinctPathsAllowed(t *testing.T) {
	t.Parallel()

	got := packToBytes(t, []Input{
		bytesInput("data/a.txt", []byte("lower")),
		bytesInput("data/A.TXT", []byte("upper")),
	}, PackOptions{})

	if payload := readEntryBytes(t, got, "data/A.TXT"); string(payload) != "upper" {
		t.Fatalf("payload=%q", payload)
	}
}

func TestPack_RejectsInvalidNormalizedEntryPath(t *testing.T) {
	t.Parallel()

	f := createOutFile(t)
	_, err := Pack(context.Background(), f, []Input{bytesInput("/", []byte("ok"))}, PackOptions{})
	if !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("expected ErrInvalidEntryPath, got %v", err)
	}
}

func TestPack_RejectsOversizedHint(t *testing.T) {
	t.Parallel()

	in := bytesInput("a", []byte("A"))
	in.SizeHint = maxRecordSize + 1

	f := createOutFile(t)
	_, err := Pack(context.Background(), f, []Input{in}, PackOptions{})
	if !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}
}

func TestPack_NilWriter(t *testing.T) {
	t.Parallel()

	_, err := Pack(context.Background(), nil, nil, PackOptions{})
	if !errors.Is(err, ErrNilWriter) {
		t.Fatalf("expected ErrNilWriter, got %v", err)
	}
}

func TestPack_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := createOutFile(t)
	_, err := Pack(ctx, f, []Input{bytesInput("a", []byte("A"))}, PackOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPackFile_FailureLeavesNoOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.vfs")
	openErr := errors.New("boom")

	inputs := []Input{
		bytesInput("a", []byte("A")),
		{Path: "b", Open: func() (io.ReadCloser, error) { return nil, openErr }},
	}

	_, err := PackFile(context.Background(), outPath, inputs, PackOptions{})
	if !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("directory must stay empty, found %d file(s): %s", len(entries), entries[0].Name())
	}
}

func TestPackFile_ReplacesExisting(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "out.vfs")
	if err := os.WriteFile(outPath, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := PackFile(context.Background(), outPath, []Input{bytesInput("a", []byte("A"))}, PackOptions{}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	r, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if len(r.Entries()) != 1 {
		t.Fatalf("entries=%d, want 1", len(r.Entries()))
	}
}

func TestPack_TelemetryAndOnEntryDone(t *testing.T) {
	t.Parallel()

	f := createOutFile(t)
	inputs := []Input{
		bytesInput("c.bin", []byte("raw-content")),
		streamInput("a.txt", bytes.Repeat([]byte("x"), 1024)),
		bytesInput("b.txt", nil),
	}

	progress := make([]PackEntryProgress, 0, len(inputs))
	res, err := Pack(context.Background(), f, inputs, PackOptions{
		OnEntryDone: func(entry PackEntryProgress) {
			progress = append(progress, entry)
		},
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if res.WrittenEntries != len(inputs) {
		t.Fatalf("written_entries=%d, want %d", res.WrittenEntries, len(inputs))
	}
	if res.DataSize != int64(len("raw-content")+1024) {
		t.Fatalf("data_size=%d", res.DataSize)
	}
	if res.IndexSize != int64(8*4+4+len("c.bin")+len("a.txt")+len("b.txt")+3) {
		t.Fatalf("index_size=%d", res.IndexSize)
	}
	if res.Duration < 0 {
		t.Fatalf("duration=%s, want >= 0", res.Duration)
	}

	if len(progress) != len(inputs) {
		t.Fatalf("on_entry_done events=%d, want %d", len(progress), len(inputs))
	}

	wantOffsets := []int64{8, 8 + 11 + 8, 8 + 11 + 8 + 1024 + 8}
	for i, e := range progress {
		if e.Path != inputs[i].Path {
			t.Fatalf("event %d path=%q, want %q", i, e.Path, inputs[i].Path)
		}
		if e.Offset != wantOffsets[i] {
			t.Fatalf("event %d offset=%d, want %d", i, e.Offset, wantOffsets[i])
		}
		if e.Hash != PathHash(e.Path) {
			t.Fatalf("event %d hash=%08x", i, e.Hash)
		}
	}
	if progress[1].Size != 1024 {
		t.Fatalf("streamed size=%d, want 1024", progress[1].Size)
	}
}

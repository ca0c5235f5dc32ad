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
	"slices"
	"testing"
)

func TestEditorCommit_AddReplaceDeleteDir(t *testing.T) {
	t.Parallel()

	archivePath := writeContainer(t, buildContainer(
		namedRecord("dir/a.txt", []byte("old-a")),
		manifestRecord("scripts/main.c", "dir/a.txt", "dir/sub/b.txt"),
		namedRecord("dir/sub/b.txt", []byte("old-b")),
		namedRecord("scripts/main.c", []byte("main")),
	))

	editor, err := OpenEditor(archivePath, EditOptions{BackupKeep: 0})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	if err := editor.Replace(bytesInput(`dir\a.txt`, []byte("new-a"))); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := editor.Add(bytesInput("new/new.txt", []byte("added"))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := editor.DeleteDir("dir/sub"); err != nil {
		t.Fatalf("DeleteDir: %v", err)
	}

	res, err := editor.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.WrittenEntries != 3 {
		t.Fatalf("written=%d, want 3", res.WrittenEntries)
	}

	got, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}

	// Added records go right before the manifest; the trailing group keeps its side.
	want := buildContainer(
		namedRecord("dir/a.txt", []byte("new-a")),
		namedRecord("new/new.txt", []byte("added")),
		manifestRecord("scripts/main.c", "dir/a.txt", "new/new.txt"),
		namedRecord("scripts/main.c", []byte("main")),
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("edited archive mismatch:\n got %x\nwant %x", got, want)
	}

	if _, err := os.Stat(archivePath + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf(".bak must be removed for BackupKeep=0, stat err=%v", err)
	}
}

func TestEditorCommit_DeleteKeepsOrphans(t *testing.T) {
	t.Parallel()

	archivePath := writeContainer(t, buildContainer(
		namedRecord("a", []byte("A")),
		manualRecord{hash: 0x77, payload: []byte("orphan")},
		namedRecord("b", []byte("B")),
		manifestRecord("b", "a"),
	))

	editor, err := OpenEditor(archivePath, EditOptions{})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}
	if err := editor.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := editor.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	idx := r.Index()
	if !slices.Equal(idx.ManifestOrder, []string{"b"}) {
		t.Fatalf("manifest order=%v", idx.ManifestOrder)
	}

	data, err := r.ReadEntry(OrphanPath(0x77))
	if err != nil {
		t.Fatalf("ReadEntry orphan: %v", err)
	}
	if string(data) != "orphan" {
		t.Fatalf("orphan payload=%q", data)
	}
}

func TestEditorCommit_AddExistingFails(t *testing.T) {
	t.Parallel()

	archivePath := writeContainer(t, buildContainer(namedRecord("a", []byte("A")), manifestRecord("a")))
	editor, err := OpenEditor(archivePath, EditOptions{})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	if err := editor.Add(bytesInput("a", []byte("again"))); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err = editor.Commit(context.Background())
	if !errors.Is(err, ErrDuplicateEntryPath) {
		t.Fatalf("expected ErrDuplicateEntryPath, got %v", err)
	}

	got, err := readEntryFromFile(archivePath, "a")
	if err != nil {
		t.Fatalf("readEntryFromFile: %v", err)
	}
	if string(got) != "A" {
		t.Fatalf("restored payload=%q, want %q", got, "A")
	}
}

func TestEditorCommit_ReplaceMissingPathFailsAndRestoresSource(t *testing.T) {
	t.Parallel()

	archivePath := writeContainer(t, buildContainer(namedRecord("a.txt", []byte("orig")), manifestRecord("a.txt")))

	editor, err := OpenEditor(archivePath, EditOptions{BackupKeep: 0})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	if err := editor.Replace(bytesInput("missing.txt", []byte("x"))); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	_, err = editor.Commit(context.Background())
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	got, err := readEntryFromFile(archivePath, "a.txt")
	if err != nil {
		t.Fatalf("readEntryFromFile: %v", err)
	}
	if string(got) != "orig" {
		t.Fatalf("restored payload=%q, want %q", got, "orig")
	}
}

func TestEditorCommit_InputOpenErrorRollsBack(t *testing.T) {
	t.Parallel()

	archivePath := writeContainer(t, buildContainer(namedRecord("a.txt", []byte("orig")), manifestRecord("a.txt")))

	editor, err := OpenEditor(archivePath, EditOptions{BackupKeep: 0})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	if err := editor.Replace(Input{
		Path: "a.txt",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("boom")
		},
		SizeHint: 1,
	}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	_, err = editor.Commit(context.Background())
	if err == nil {
		t.Fatal("Commit must fail")
	}

	got, readErr := readEntryFromFile(archivePath, "a.txt")
	if readErr != nil {
		t.Fatalf("readEntryFromFile: %v", readErr)
	}
	if string(got) != "orig" {
		t.Fatalf("restored payload=%q, want %q", got, "orig")
	}
}

func TestEditor_InvalidInputs(t *testing.T) {
	t.Parallel()

	if _, err := OpenEditor("  ", EditOptions{}); !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("OpenEditor: expected ErrInvalidEntryPath, got %v", err)
	}

	editor, err := OpenEditor(filepath.Join(t.TempDir(), "x.vfs"), EditOptions{})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	if err := editor.Add(bytesInput("/", nil)); !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("Add: expected ErrInvalidEntryPath, got %v", err)
	}
	if err := editor.Delete(""); !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("Delete: expected ErrInvalidEntryPath, got %v", err)
	}

	var nilEditor *Editor
	if _, err := nilEditor.Commit(context.Background()); !errors.Is(err, ErrNilReader) {
		t.Fatalf("nil Commit: expected ErrNilReader, got %v", err)
	}
}

func TestEditorCommit_BackupKeepPolicies(t *testing.T) {
	t.Parallel()

	archivePath := writeContainer(t, buildContainer(namedRecord("a.txt", []byte("v0")), manifestRecord("a.txt")))

	replaceAndCommit := func(value string) {
		t.Helper()

		editor, openErr := OpenEditor(archivePath, EditOptions{BackupKeep: 2})
		if openErr != nil {
			t.Fatalf("OpenEditor: %v", openErr)
		}

		if replaceErr := editor.Replace(bytesInput("a.txt", []byte(value))); replaceErr != nil {
			t.Fatalf("Replace: %v", replaceErr)
		}

		if _, commitErr := editor.Commit(context.Background()); commitErr != nil {
			t.Fatalf("Commit: %v", commitErr)
		}
	}

	replaceAndCommit("v1")
	replaceAndCommit("v2")

	currentBak, err := readEntryFromFile(archivePath+".bak", "a.txt")
	if err != nil {
		t.Fatalf("read current bak: %v", err)
	}
	if string(currentBak) != "v1" {
		t.Fatalf("current bak payload=%q, want %q", currentBak, "v1")
	}

	previousBak, err := readEntryFromFile(archivePath+".bak.1", "a.txt")
	if err != nil {
		t.Fatalf("read previous bak: %v", err)
	}
	if string(previousBak) != "v0" {
		t.Fatalf("previous bak payload=%q, want %q", previousBak, "v0")
	}
}

func readEntryFromFile(path string, entryPath string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.ReadEntry(entryPath)
}

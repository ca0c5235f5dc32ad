// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// manualRecord is one hand-built container record.
type manualRecord struct {
	payload []byte
	hash    uint32
}

// namedRecord returns a record keyed by hash of name.
func namedRecord(name string, payload []byte) manualRecord {
	return manualRecord{hash: PathHash(name), payload: payload}
}

// manifestRecord returns a manifest record listing names.
func manifestRecord(names ...string) manualRecord {
	return manualRecord{hash: ManifestHash, payload: manifestPayload(uint32(len(names)), names...)}
}

// manifestPayload encodes a manifest with explicit count.
func manifestPayload(count uint32, names ...string) []byte {
	out := binary.LittleEndian.AppendUint32(nil, count)
	for _, name := range names {
		out = append(out, name...)
		out = append(out, 0)
	}

	return out
}

// buildContainer concatenates records without going through the writer.
func buildContainer(records ...manualRecord) []byte {
	var out []byte
	for _, rec := range records {
		out = binary.LittleEndian.AppendUint32(out, rec.hash)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(rec.payload)))
		out = append(out, rec.payload...)
	}

	return out
}

// writeContainer stores data in a temp file and returns its path.
func writeContainer(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.vfs")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write container: %v", err)
	}

	return path
}

// bytesInput returns an input with in-memory payload and exact size hint.
func bytesInput(path string, data []byte) Input {
	return Input{
		Path:     path,
		SizeHint: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// packToBytes packs inputs through a temp file and returns archive bytes.
func packToBytes(t *testing.T, inputs []Input, opts PackOptions) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "packed.vfs")
	if _, err := PackFile(context.Background(), path, inputs, opts); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read packed archive: %v", err)
	}

	return data
}

// le16 encodes v little-endian.
func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

// le32 encodes v little-endian.
func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// pstr encodes a u8 length-prefixed string.
func pstr(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

// array16 builds a u16-counted array of u16-length elements.
func array16(elems ...[]byte) []byte {
	out := le16(uint16(len(elems)))
	for _, e := range elems {
		out = append(out, le16(uint16(len(e)))...)
		out = append(out, e...)
	}

	return out
}

// menuTextPayload is a valid text table for c/csv/menu_text.dat.
func menuTextPayload() []byte {
	return array16(pstr("Start"), append(pstr("Options"), 0x01, 0x02), pstr("Quit"))
}

// weaponPayload is a valid equipment table for c/csv/item_03.dat.
func weaponPayload() []byte {
	block := bytes.Join([][]byte{
		le16(100), le16(2), {1, 3}, le16(10), le16(20),
		le16(0x0102), {1, 2, 3, 4, 5, 6, 7, 8, 9},
	}, nil)

	item := bytes.Join([][]byte{le16(7), pstr("Sword"), le32(1500), pstr("Sharp"), block, {0xee}}, nil)
	return array16(item)
}

// Scenario entry paths.
const (
	menuTextEntry = "c/csv/menu_text.dat"
	weaponEntry   = "c/csv/item_03.dat"
	unknownEntry  = "unknown.bin"
)

// scenarioArchive returns a three-entry archive: text table, item table and unregistered blob.
func scenarioArchive(t *testing.T) []byte {
	t.Helper()

	return packToBytes(t, []Input{
		bytesInput(menuTextEntry, menuTextPayload()),
		bytesInput(weaponEntry, weaponPayload()),
		bytesInput(unknownEntry, []byte{0xde, 0xad, 0xbe, 0xef}),
	}, PackOptions{})
}

// extractArchive extracts data into a new temp dir and returns it with the result.
func extractArchive(t *testing.T, data []byte, opts ExtractOptions) (string, *ExtractResult) {
	t.Helper()

	r, err := NewReaderFromBytes(data)
	if err != nil {
		t.Fatalf("NewReaderFromBytes: %v", err)
	}
	defer func() { _ = r.Close() }()

	dir := filepath.Join(t.TempDir(), "extracted")
	res, err := r.Extract(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	return dir, res
}

// createArchive builds an archive from dir and returns its bytes and result.
func createArchive(t *testing.T, dir string, opts CreateOptions) ([]byte, *PackResult) {
	t.Helper()

	out := filepath.Join(t.TempDir(), "rebuilt.vfs")
	res, err := Create(context.Background(), dir, out, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read rebuilt archive: %v", err)
	}

	return data, res
}

// readEntryBytes reads one entry from an in-memory archive.
func readEntryBytes(t *testing.T, data []byte, path string) []byte {
	t.Helper()

	r, err := NewReaderFromBytes(data)
	if err != nil {
		t.Fatalf("NewReaderFromBytes: %v", err)
	}
	defer func() { _ = r.Close() }()

	payload, err := r.ReadEntry(path)
	if err != nil {
		t.Fatalf("ReadEntry(%s): %v", path, err)
	}

	return payload
}

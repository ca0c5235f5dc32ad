// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/woozymasta/vfs/codec"
	"github.com/woozymasta/vfs/internal/imagefile"
)

// decodedExt is the extension of decoded resource files.
const decodedExt = ".json"

// blobExt is the extension of sprite frames kept as opaque bytes.
const blobExt = ".bin"

// decodedKinds lists kinds persisted as decoded files.
var decodedKinds = []codec.Kind{
	codec.KindText,
	codec.KindDialogue,
	codec.KindItem,
	codec.KindRecord,
	codec.KindSprite,
}

// DecodedPath returns the decoded file of entry under root for kind.
func DecodedPath(root string, kind codec.Kind, entry string) string {
	return filepath.Join(root, kind.Dir(), filepath.FromSlash(entry)+decodedExt)
}

// framesDir returns the sprite frame directory of entry under root.
func framesDir(root string, entry string) string {
	return filepath.Join(root, codec.KindSprite.Dir(), filepath.FromSlash(entry))
}

// decodedEntryPath maps a decoded file path relative to its kind dir back to the entry path.
func decodedEntryPath(rel string) (string, bool) {
	entry, ok := strings.CutSuffix(rel, decodedExt)
	if !ok || entry == "" {
		return "", false
	}

	return path.Clean(entry), true
}

// writeDecoded stores res for entry under root.
func writeDecoded(root string, entry string, res codec.Resource) error {
	if bank, ok := res.(*codec.SpriteBank); ok {
		if err := writeSpriteFrames(root, entry, bank); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", entry, err)
	}

	out := DecodedPath(root, res.Kind(), entry)
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", entry, err)
	}

	if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	return nil
}

// writeSpriteFrames writes frame files and records their names in bank.
func writeSpriteFrames(root string, entry string, bank *codec.SpriteBank) error {
	dir := framesDir(root, entry)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear frames of %s: %w", entry, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create frames of %s: %w", entry, err)
	}

	for i := range bank.Frames {
		frame := &bank.Frames[i]
		if frame.Image != nil {
			frame.File = fmt.Sprintf("%03d%s", i, imagefile.Ext)
			if err := imagefile.Save(filepath.Join(dir, frame.File), frame.Image.Image()); err != nil {
				return fmt.Errorf("frame %d of %s: %w", i, entry, err)
			}

			continue
		}

		frame.File = fmt.Sprintf("%03d%s", i, blobExt)
		if err := os.WriteFile(filepath.Join(dir, frame.File), frame.Blob, 0o600); err != nil {
			return fmt.Errorf("frame %d of %s: %w", i, entry, err)
		}
	}

	return nil
}

// readDecoded loads the decoded resource of entry for kind.
func readDecoded(root string, kind codec.Kind, entry string) (codec.Resource, error) {
	res, err := codec.NewResource(kind)
	if err != nil {
		return nil, err
	}

	in := DecodedPath(root, kind, entry)
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in, err)
	}

	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("parse %s: %w", in, err)
	}

	if bank, ok := res.(*codec.SpriteBank); ok {
		if err := readSpriteFrames(root, entry, bank); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// readSpriteFrames loads frame files referenced by bank.
func readSpriteFrames(root string, entry string, bank *codec.SpriteBank) error {
	dir := framesDir(root, entry)
	for i := range bank.Frames {
		frame := &bank.Frames[i]
		name := frame.File
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("frame %d of %s: invalid file name %q", i, entry, name)
		}

		file := filepath.Join(dir, name)
		if frame.Image == nil {
			blob, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("frame %d of %s: %w", i, entry, err)
			}

			frame.Blob = blob
			continue
		}

		img, err := imagefile.Load(file)
		if err != nil {
			return fmt.Errorf("frame %d of %s: %w", i, entry, err)
		}
		if err := frame.Image.SetImage(img); err != nil {
			return fmt.Errorf("frame %d of %s: %w", i, entry, err)
		}
	}

	return nil
}

// removeDecoded deletes stale decoded files of entry.
func removeDecoded(root string, kind codec.Kind, entry string) error {
	err := os.Remove(DecodedPath(root, kind, entry))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove decoded %s: %w", entry, err)
	}

	if kind == codec.KindSprite {
		if err := os.RemoveAll(framesDir(root, entry)); err != nil {
			return fmt.Errorf("remove frames of %s: %w", entry, err)
		}
	}

	return nil
}

// decodedExists reports whether a decoded file of entry exists for kind.
func decodedExists(root string, kind codec.Kind, entry string) (bool, error) {
	fi, err := os.Stat(DecodedPath(root, kind, entry))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat decoded %s: %w", entry, err)
	}

	return fi.Mode().IsRegular(), nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"fmt"
	"strconv"
	"strings"
)

// ManifestHash is the record key of the name manifest.
const ManifestHash uint32 = 0xBC909D54

// pathHashSeed is the initial accumulator of PathHash.
const pathHashSeed uint32 = 5381

// OrphanDir is the reserved directory holding records not named by the manifest.
const OrphanDir = "_orphan"

// PathHash returns the record key of an entry path: acc = acc*33 + c over path bytes.
func PathHash(name string) uint32 {
	acc := pathHashSeed
	for i := 0; i < len(name); i++ {
		acc = acc + uint32(name[i]) + acc<<5
	}

	return acc
}

// OrphanPath returns the entry path used for a record with no manifest name.
func OrphanPath(hash uint32) string {
	return fmt.Sprintf("%s/%08x.bin", OrphanDir, hash)
}

// ParseOrphanPath reports whether path names an orphan record and returns its key.
func ParseOrphanPath(path string) (uint32, bool) {
	rest, ok := strings.CutPrefix(path, OrphanDir+"/")
	if !ok {
		return 0, false
	}

	hexPart, ok := strings.CutSuffix(rest, ".bin")
	if !ok || len(hexPart) != 8 {
		return 0, false
	}

	v, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return 0, false
	}

	return uint32(v), true
}

// entryHash returns the record key for path, honoring orphan paths.
func entryHash(path string) uint32 {
	if hash, ok := ParseOrphanPath(path); ok {
		return hash
	}

	return PathHash(path)
}

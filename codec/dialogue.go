// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"fmt"

	"github.com/woozymasta/vfs/internal/cursor"
)

const (
	// dialogueHeaderSize is the fixed scene header length.
	dialogueHeaderSize = 15
	// dialogueWidthCount is the number of length-width bytes leading the header.
	dialogueWidthCount = 3
)

// DialogueScript is a scene: two control blocks kept as opaque bytes and the
// text lines shown to the player. Line 0 holds the scene name, "0" when unnamed.
type DialogueScript struct {
	Header  []OpaqueField  `json:"header"`
	Control [2][]Octets    `json:"control"`
	Lines   []DialogueLine `json:"lines"`
	Trailer Octets         `json:"trailer,omitempty"`
	Widths  [3]uint8       `json:"widths"`
}

// Kind implements Resource.
func (*DialogueScript) Kind() Kind { return KindDialogue }

// DialogueLine is one NUL-terminated line with its ordinal id.
type DialogueLine struct {
	Text   string        `json:"text"`
	Opaque []OpaqueField `json:"opaque,omitempty"`
	ID     int           `json:"id"`
}

// DialogueCodec handles scene scripts.
//
// Layout: a 15-byte header whose first three bytes give the length width
// (1 or 2) of the three following arrays. Each array is a u8 count, count
// lengths of that width, then the element payloads.
type DialogueCodec struct{}

// Kind implements Codec.
func (DialogueCodec) Kind() Kind { return KindDialogue }

// Decode implements Codec.
func (DialogueCodec) Decode(entry string, raw []byte) (Resource, error) {
	r := cursor.NewReader(raw)
	header, err := r.Bytes(dialogueHeaderSize)
	if err != nil {
		return nil, decodeErr(entry, err, "read scene header")
	}

	script := &DialogueScript{
		Header: opaqueAt("header", dialogueWidthCount, header[dialogueWidthCount:]),
	}
	for i := range dialogueWidthCount {
		if err := checkWidth(header[i]); err != nil {
			return nil, decodeErr(entry, err, "array %d", i)
		}
		script.Widths[i] = header[i]
	}

	for i := range script.Control {
		blocks, err := readExtArray(r, int(script.Widths[i]))
		if err != nil {
			return nil, decodeErr(entry, err, "control block %d", i)
		}

		script.Control[i] = make([]Octets, len(blocks))
		for j, b := range blocks {
			script.Control[i][j] = Octets(b)
		}
	}

	lines, err := readExtArray(r, int(script.Widths[2]))
	if err != nil {
		return nil, decodeErr(entry, err, "read lines")
	}

	script.Lines = make([]DialogueLine, 0, len(lines))
	for i, elem := range lines {
		lr := cursor.NewReader(elem)
		b, err := lr.CString()
		if err != nil {
			return nil, decodeErr(entry, err, "line %d", i)
		}

		text, err := decodeString(b)
		if err != nil {
			return nil, decodeErr(entry, err, "line %d", i)
		}

		tailAt := lr.Pos()
		script.Lines = append(script.Lines, DialogueLine{
			ID:     i,
			Text:   text,
			Opaque: opaqueAt("tail", tailAt, lr.Rest()),
		})
	}

	if r.Remaining() > 0 {
		script.Trailer = Octets(r.Rest())
	}

	return script, nil
}

// Encode implements Codec. Lines are written in id order; ids must be 0..n-1.
func (DialogueCodec) Encode(entry string, res Resource) ([]byte, error) {
	script, ok := res.(*DialogueScript)
	if !ok || script == nil {
		return nil, wrongResource(entry, KindDialogue, res)
	}

	header := make([]byte, dialogueHeaderSize)
	for i, width := range script.Widths {
		if err := checkWidth(width); err != nil {
			return nil, encodeErr(entry, err, "array %d", i)
		}
		header[i] = width
	}

	if err := placeOpaque(header, script.Header, []opaqueSlot{{offset: dialogueWidthCount, width: dialogueHeaderSize - dialogueWidthCount}}); err != nil {
		return nil, encodeErr(entry, err, "scene header")
	}

	w := cursor.NewWriter()
	w.PutBytes(header)

	for i, blocks := range script.Control {
		elems := make([][]byte, len(blocks))
		for j, b := range blocks {
			elems[j] = b
		}

		if err := putExtArray(w, int(script.Widths[i]), elems); err != nil {
			return nil, encodeErr(entry, err, "control block %d", i)
		}
	}

	ids := make([]int, len(script.Lines))
	for i, line := range script.Lines {
		ids[i] = line.ID
	}

	order, err := keyedOrder(ids)
	if err != nil {
		return nil, encodeErr(entry, err, "line ids")
	}

	elems := make([][]byte, 0, len(order))
	for _, pos := range order {
		line := script.Lines[pos]
		b, err := encodeString(line.Text)
		if err != nil {
			return nil, encodeErr(entry, err, "line %d", line.ID)
		}

		lw := cursor.NewWriter()
		if err := lw.PutCString(b); err != nil {
			return nil, encodeErr(entry, err, "line %d", line.ID)
		}

		elems = append(elems, appendOpaque(lw.Bytes(), line.Opaque))
	}

	if err := putExtArray(w, int(script.Widths[2]), elems); err != nil {
		return nil, encodeErr(entry, err, "write lines")
	}
	w.PutBytes(script.Trailer)

	return w.Bytes(), nil
}

// checkWidth validates a length width byte.
func checkWidth(width uint8) error {
	if width != 1 && width != 2 {
		return fmt.Errorf("length width %d, want 1 or 2", width)
	}

	return nil
}

// readExtArray reads a u8 count, count lengths of width bytes, then the payloads.
func readExtArray(r *cursor.Reader, width int) ([][]byte, error) {
	count, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("read element count: %w", err)
	}

	lengths := make([]int, count)
	for i := range lengths {
		n, err := r.Uint(width)
		if err != nil {
			return nil, fmt.Errorf("read length of element %d: %w", i, err)
		}
		lengths[i] = int(n)
	}

	out := make([][]byte, 0, count)
	for i, n := range lengths {
		elem, err := r.Bytes(n)
		if err != nil {
			return nil, fmt.Errorf("read element %d: %w", i, err)
		}
		out = append(out, elem)
	}

	return out, nil
}

// putExtArray writes elems in the layout read by readExtArray.
func putExtArray(w *cursor.Writer, width int, elems [][]byte) error {
	if err := w.PutUint(1, uint64(len(elems))); err != nil {
		return fmt.Errorf("element count: %w", err)
	}

	for i, elem := range elems {
		if err := w.PutUint(width, uint64(len(elem))); err != nil {
			return fmt.Errorf("length of element %d: %w", i, err)
		}
	}

	for _, elem := range elems {
		w.PutBytes(elem)
	}

	return nil
}

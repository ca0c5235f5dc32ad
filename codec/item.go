// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"fmt"
	"path"
	"regexp"
	"strconv"

	"github.com/woozymasta/vfs/internal/cursor"
)

// equipmentBlockSize is the fixed size of the equipment attribute block.
const equipmentBlockSize = 0x15

// Known equipment block field offsets.
const (
	equipSpriteID          = 0x00
	equipSpriteColorEffect = 0x02
	equipAttackSpeed       = 0x04
	equipClass             = 0x05
	equipAttack            = 0x06
	equipDefense           = 0x08
)

// equipmentParams are the equipment block fields with unknown meaning.
var equipmentParams = []opaqueSlot{
	{offset: 0x0a, width: 2},
	{offset: 0x0c, width: 1},
	{offset: 0x0d, width: 1},
	{offset: 0x0e, width: 1},
	{offset: 0x0f, width: 1},
	{offset: 0x10, width: 1},
	{offset: 0x11, width: 1},
	{offset: 0x12, width: 1},
	{offset: 0x13, width: 1},
	{offset: 0x14, width: 1},
}

// itemGroupPattern extracts the group number from an item table file name.
var itemGroupPattern = regexp.MustCompile(`^item_(\d+)\.dat$`)

// ItemTable is the list of items of one group, in game id order.
type ItemTable struct {
	Items   []Item `json:"items"`
	Trailer Octets `json:"trailer,omitempty"`
}

// Kind implements Resource.
func (*ItemTable) Kind() Kind { return KindItem }

// Item is one item record.
type Item struct {
	Equipment   *Equipment    `json:"equipment,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"desc"`
	Opaque      []OpaqueField `json:"opaque,omitempty"`
	Price       uint32        `json:"price"`
	TypeID      uint16        `json:"type_id"`
}

// Equipment holds the attribute block of equipment groups.
// Attack is the minimum attack for weapons and physical defense for armor;
// Defense is the maximum attack for weapons and magic defense for armor.
type Equipment struct {
	Params            []OpaqueField `json:"params"`
	SpriteID          uint16        `json:"sprite_id"`
	SpriteColorEffect uint16        `json:"sprite_color_effect"`
	Attack            uint16        `json:"atk"`
	Defense           uint16        `json:"def"`
	AttackSpeed       uint8         `json:"atk_speed"`
	Class             uint8         `json:"class"`
}

// ItemCodec handles item group tables. Group number comes from the entry file name.
type ItemCodec struct {
	// EquipmentGroups lists groups whose items carry an equipment block.
	// Nil means groups 0 through 10.
	EquipmentGroups []int
}

// Kind implements Codec.
func (ItemCodec) Kind() Kind { return KindItem }

// isEquipment reports whether group carries equipment blocks.
func (c ItemCodec) isEquipment(group int) bool {
	if c.EquipmentGroups == nil {
		return group >= 0 && group <= 10
	}

	for _, g := range c.EquipmentGroups {
		if g == group {
			return true
		}
	}

	return false
}

// ItemGroup parses the group number from an item table entry path.
func ItemGroup(entry string) (int, error) {
	m := itemGroupPattern.FindStringSubmatch(path.Base(entry))
	if m == nil {
		return 0, fmt.Errorf("entry name does not match item_NN.dat")
	}

	return strconv.Atoi(m[1])
}

// Decode implements Codec.
func (c ItemCodec) Decode(entry string, raw []byte) (Resource, error) {
	group, err := ItemGroup(entry)
	if err != nil {
		return nil, decodeErr(entry, err, "item group")
	}
	equipment := c.isEquipment(group)

	r := cursor.NewReader(raw)
	elems, err := readLengthArray(r, 2)
	if err != nil {
		return nil, decodeErr(entry, err, "read item table")
	}

	table := &ItemTable{Items: make([]Item, 0, len(elems))}
	for i, elem := range elems {
		item, err := decodeItem(elem, equipment)
		if err != nil {
			return nil, decodeErr(entry, err, "item %d", i)
		}
		table.Items = append(table.Items, item)
	}

	if r.Remaining() > 0 {
		table.Trailer = Octets(r.Rest())
	}

	return table, nil
}

// decodeItem parses one item element.
func decodeItem(elem []byte, equipment bool) (Item, error) {
	var item Item
	var err error

	r := cursor.NewReader(elem)
	if item.TypeID, err = r.U16(); err != nil {
		return item, fmt.Errorf("type id: %w", err)
	}
	if item.Name, err = readPString(r); err != nil {
		return item, fmt.Errorf("name: %w", err)
	}
	if item.Price, err = r.U32(); err != nil {
		return item, fmt.Errorf("price: %w", err)
	}
	if item.Description, err = readPString(r); err != nil {
		return item, fmt.Errorf("desc: %w", err)
	}

	if !equipment {
		item.Opaque = opaqueAt("extras", r.Pos(), r.Rest())
		return item, nil
	}

	block, err := r.Bytes(equipmentBlockSize)
	if err != nil {
		return item, fmt.Errorf("equipment block: %w", err)
	}

	item.Equipment = decodeEquipment(block)
	item.Opaque = opaqueAt("tail", r.Pos(), r.Rest())
	return item, nil
}

// decodeEquipment parses the fixed equipment block.
func decodeEquipment(block []byte) *Equipment {
	br := cursor.NewReader(block)
	eq := &Equipment{}
	// Block size is checked by the caller; reads below cannot fail.
	eq.SpriteID, _ = br.U16()
	eq.SpriteColorEffect, _ = br.U16()
	eq.AttackSpeed, _ = br.U8()
	eq.Class, _ = br.U8()
	eq.Attack, _ = br.U16()
	eq.Defense, _ = br.U16()
	eq.Params = collectOpaque(block, equipmentParams, func(offset int) string {
		return fmt.Sprintf("param_%xh", offset)
	})

	return eq
}

// Encode implements Codec.
func (c ItemCodec) Encode(entry string, res Resource) ([]byte, error) {
	table, ok := res.(*ItemTable)
	if !ok || table == nil {
		return nil, wrongResource(entry, KindItem, res)
	}

	group, err := ItemGroup(entry)
	if err != nil {
		return nil, encodeErr(entry, err, "item group")
	}
	equipment := c.isEquipment(group)

	elems := make([][]byte, 0, len(table.Items))
	for i, item := range table.Items {
		elem, err := encodeItem(item, equipment)
		if err != nil {
			return nil, encodeErr(entry, err, "item %d", i)
		}
		elems = append(elems, elem)
	}

	w := cursor.NewWriter()
	if err := putLengthArray(w, 2, elems); err != nil {
		return nil, encodeErr(entry, err, "write item table")
	}
	w.PutBytes(table.Trailer)

	return w.Bytes(), nil
}

// encodeItem serializes one item element.
func encodeItem(item Item, equipment bool) ([]byte, error) {
	switch {
	case equipment && item.Equipment == nil:
		return nil, fmt.Errorf("equipment block missing")
	case !equipment && item.Equipment != nil:
		return nil, fmt.Errorf("equipment block set on a non-equipment group")
	}

	w := cursor.NewWriter()
	w.PutU16(item.TypeID)
	if err := putPString(w, item.Name); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	w.PutU32(item.Price)
	if err := putPString(w, item.Description); err != nil {
		return nil, fmt.Errorf("desc: %w", err)
	}

	if item.Equipment != nil {
		block, err := encodeEquipment(item.Equipment)
		if err != nil {
			return nil, err
		}
		w.PutBytes(block)
	}

	return appendOpaque(w.Bytes(), item.Opaque), nil
}

// encodeEquipment serializes the fixed equipment block.
func encodeEquipment(eq *Equipment) ([]byte, error) {
	block := make([]byte, equipmentBlockSize)
	w := cursor.NewWriter()
	w.PutU16(eq.SpriteID)
	w.PutU16(eq.SpriteColorEffect)
	w.PutU8(eq.AttackSpeed)
	w.PutU8(eq.Class)
	w.PutU16(eq.Attack)
	w.PutU16(eq.Defense)
	copy(block, w.Bytes())

	if err := placeOpaque(block, eq.Params, equipmentParams); err != nil {
		return nil, fmt.Errorf("equipment params: %w", err)
	}

	return block, nil
}

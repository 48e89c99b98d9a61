/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphstorage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/graphtx/graph/util"
)

func init() {

	// Make sure we can use the relevant types in a gob operation

	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
}

/*
Column categories
*/
const (
	CategoryProperty byte = 0x00
	CategoryEdgeOut  byte = 0x02
	CategoryEdgeIn   byte = 0x03
)

/*
Sort value tags
*/
const (
	tagAbsent  byte = 0x00
	tagPresent byte = 0x01

	tagBool    byte = 0x01
	tagInt64   byte = 0x02
	tagFloat64 byte = 0x03
	tagString  byte = 0x04
)

/*
TypePrefixLen is the length of the category and type id prefix of a column.
*/
const TypePrefixLen = 9

/*
VertexKey returns the row key of a vertex.
*/
func VertexKey(id int64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, uint64(id))
	return ret
}

/*
KeyVertexID returns the vertex id of a row key.
*/
func KeyVertexID(key []byte) int64 {
	errorutil.AssertTrue(len(key) == 8, fmt.Sprint("Invalid row key: ", key))
	return int64(binary.BigEndian.Uint64(key))
}

/*
TypePrefix returns the column prefix of all relations of a type in a given
category.
*/
func TypePrefix(category byte, typeID int64) []byte {
	ret := make([]byte, TypePrefixLen)
	ret[0] = category
	binary.BigEndian.PutUint64(ret[1:], uint64(typeID))
	return ret
}

/*
IDBytes returns the order-preserving encoding of an id.
*/
func IDBytes(id int64) []byte {
	return VertexKey(id)
}

/*
Successor returns the smallest byte slice which is greater than all byte
slices with the given prefix. Returns nil if there is no such slice.
*/
func Successor(prefix []byte) []byte {
	ret := append([]byte(nil), prefix...)

	for i := len(ret) - 1; i >= 0; i-- {
		if ret[i] != 0xFF {
			ret[i]++
			return ret[:i+1]
		}
	}

	return nil
}

/*
EncodeSortValue encodes a value so that the byte order of encoded values
follows the natural order of the values. Absent (nil) values sort first.
*/
func EncodeSortValue(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if v == nil {
		buf.WriteByte(tagAbsent)
		return buf.Bytes(), nil
	}

	buf.WriteByte(tagPresent)

	switch val := v.(type) {

	case bool:
		buf.WriteByte(tagBool)
		if val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case int64:
		buf.WriteByte(tagInt64)
		binary.Write(&buf, binary.BigEndian, uint64(val)^(1<<63))

	case float64:

		// Negative zero sorts and compares as zero

		if val == 0 {
			val = 0
		}

		bits := math.Float64bits(val)
		if val >= 0 {
			bits ^= 1 << 63
		} else {
			bits = ^bits
		}
		buf.WriteByte(tagFloat64)
		binary.Write(&buf, binary.BigEndian, bits)

	case string:
		buf.WriteByte(tagString)
		for i := 0; i < len(val); i++ {
			buf.WriteByte(val[i])
			if val[i] == 0x00 {
				buf.WriteByte(0xFF)
			}
		}
		buf.Write([]byte{0x00, 0x01})

	default:
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Cannot encode sort value %v (%T)", v, v)}
	}

	return buf.Bytes(), nil
}

/*
decodeSortValue decodes a single sort value. Returns the value and the
number of consumed bytes.
*/
func decodeSortValue(b []byte) (interface{}, int, error) {

	if len(b) == 0 {
		return nil, 0, fmt.Errorf("Missing sort value")
	} else if b[0] == tagAbsent {
		return nil, 1, nil
	} else if len(b) < 3 {
		return nil, 0, fmt.Errorf("Truncated sort value")
	}

	switch b[1] {

	case tagBool:
		return b[2] == 1, 3, nil

	case tagInt64:
		if len(b) < 10 {
			return nil, 0, fmt.Errorf("Truncated int64 sort value")
		}
		return int64(binary.BigEndian.Uint64(b[2:10]) ^ (1 << 63)), 10, nil

	case tagFloat64:
		if len(b) < 10 {
			return nil, 0, fmt.Errorf("Truncated float64 sort value")
		}
		bits := binary.BigEndian.Uint64(b[2:10])
		if bits&(1<<63) != 0 {
			bits ^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), 10, nil

	case tagString:
		var buf bytes.Buffer

		for i := 2; i < len(b)-1; i++ {
			if b[i] == 0x00 {
				if b[i+1] == 0x01 {
					return buf.String(), i + 2, nil
				}
				i++
				buf.WriteByte(0x00)
				continue
			}
			buf.WriteByte(b[i])
		}

		return nil, 0, fmt.Errorf("Unterminated string sort value")
	}

	return nil, 0, fmt.Errorf("Unknown sort value tag: %v", b[1])
}

/*
RelationColumn is the decoded form of a relation column.
*/
type RelationColumn struct {
	Category      byte          // Column category
	TypeID        int64         // Id of the relation type
	SortValues    []interface{} // Values of the sort key (edges only)
	OtherVertexID int64         // Id of the adjacent vertex (edges only)
	RelationID    int64         // Id of the relation
}

/*
IsEdge checks if this column holds an edge.
*/
func (rc *RelationColumn) IsEdge() bool {
	return rc.Category != CategoryProperty
}

/*
Column encodes this relation column.
*/
func (rc *RelationColumn) Column() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(TypePrefix(rc.Category, rc.TypeID))

	if rc.IsEdge() {
		for _, v := range rc.SortValues {
			b, err := EncodeSortValue(v)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.Write(IDBytes(rc.OtherVertexID))
	}

	buf.Write(IDBytes(rc.RelationID))

	return buf.Bytes(), nil
}

/*
String returns a string representation of this relation column.
*/
func (rc *RelationColumn) String() string {
	if rc.IsEdge() {
		return fmt.Sprintf("Column %v/%v %v -> %v (%v)", rc.Category, rc.TypeID,
			rc.SortValues, rc.OtherVertexID, rc.RelationID)
	}
	return fmt.Sprintf("Column %v/%v (%v)", rc.Category, rc.TypeID, rc.RelationID)
}

/*
DecodeColumn decodes a relation column.
*/
func DecodeColumn(col []byte) (*RelationColumn, error) {

	if len(col) < TypePrefixLen+8 {
		return nil, &util.GraphError{Type: util.ErrReading,
			Detail: fmt.Sprint("Column too short: ", col)}
	}

	rc := &RelationColumn{
		Category: col[0],
		TypeID:   int64(binary.BigEndian.Uint64(col[1:TypePrefixLen])),
	}

	end := len(col) - 8
	rc.RelationID = int64(binary.BigEndian.Uint64(col[end:]))

	if !rc.IsEdge() {
		return rc, nil
	}

	if end-8 < TypePrefixLen {
		return nil, &util.GraphError{Type: util.ErrReading,
			Detail: fmt.Sprint("Edge column too short: ", col)}
	}

	end -= 8
	rc.OtherVertexID = int64(binary.BigEndian.Uint64(col[end : end+8]))

	for i := TypePrefixLen; i < end; {
		v, n, err := decodeSortValue(col[i:end])
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
		}
		rc.SortValues = append(rc.SortValues, v)
		i += n
	}

	return rc, nil
}

/*
RelationValue is the decoded form of a relation column value.
*/
type RelationValue struct {
	Value      interface{}           // Property value (properties only)
	Properties map[int64]interface{} // Properties of the relation by key id
}

/*
EncodeRelation encodes a relation into a store entry.
*/
func EncodeRelation(rc *RelationColumn, rv *RelationValue) (Entry, error) {
	var buf bytes.Buffer

	col, err := rc.Column()
	if err != nil {
		return Entry{}, err
	}

	if err := gob.NewEncoder(&buf).Encode(rv); err != nil {
		return Entry{}, &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return Entry{col, buf.Bytes()}, nil
}

/*
DecodeEntry decodes a store entry into a relation.
*/
func DecodeEntry(e Entry) (*RelationColumn, *RelationValue, error) {
	var rv RelationValue

	rc, err := DecodeColumn(e.Column)
	if err != nil {
		return nil, nil, err
	}

	if err := gob.NewDecoder(bytes.NewReader(e.Value)).Decode(&rv); err != nil {
		return nil, nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	return rc, &rv, nil
}

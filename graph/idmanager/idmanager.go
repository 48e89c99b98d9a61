/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package idmanager contains the bit layout of vertex, relation and schema ids.

Id layout

All ids are positive 63 bit numbers. User vertex ids and relation ids have
the following layout (most significant bit first):

	[ 0 | count | partition | padding ]

The padding is only present on vertex ids. It is 3 bits wide and encodes
the vertex type:

	000 normal vertex
	010 partitioned vertex
	100 unmodifiable vertex

Schema ids carry no partition. They consist of a count followed by a
type specific padding (6 bits for relation types, 5 bits for vertex labels).

Partitioned vertices

A partitioned vertex has a representative id in every partition. All
representatives share the same count; the canonical id is the
representative in the partition given by a hash of the count. Relations
incident on a partitioned vertex are placed into the partition of the other
endpoint so that a single partition contains a complete slice of relations.

Temporary ids

Temporary ids are negative numbers which preserve the bit pattern of the
underlying count. They are given to elements which have not been assigned
a permanent id yet.
*/
package idmanager

import (
	"fmt"

	"devt.de/krotik/graphtx/graph/util"
)

/*
TotalBits is the number of usable bits of an id
*/
const TotalBits = 63

/*
MaxPartitionBits is the maximum number of partition bits
*/
const MaxPartitionBits = 16

/*
UserVertexPaddingBits is the padding width of user vertex ids
*/
const UserVertexPaddingBits = 3

/*
VertexIDType is the type of a user vertex id.
*/
type VertexIDType int

/*
Known user vertex types
*/
const (
	NormalVertex VertexIDType = iota
	PartitionedVertex
	UnmodifiableVertex
)

/*
padding describes the padding (offset and suffix) of an id type.
*/
type padding struct {
	offset uint
	suffix uint64
}

var vertexPaddings = map[VertexIDType]padding{
	NormalVertex:       {3, 0},
	PartitionedVertex:  {3, 2},
	UnmodifiableVertex: {3, 4},
}

/*
addPadding adds a padding to a given count.
*/
func (p padding) addPadding(count uint64) uint64 {
	return (count << p.offset) | p.suffix
}

/*
is checks if a given id has this padding.
*/
func (p padding) is(id uint64) bool {
	return id&((1<<p.offset)-1) == p.suffix
}

/*
IDManager manages the id layout for a given number of partition bits.
*/
type IDManager struct {
	partitionBits      uint   // Number of partition bits
	partitionIDBound   uint64 // Upper bound of partition ids
	relationCountBound uint64 // Upper bound of relation counts
	vertexCountBound   uint64 // Upper bound of vertex counts
}

/*
NewIDManager creates a new IDManager object.
*/
func NewIDManager(partitionBits uint) (*IDManager, error) {

	if partitionBits > MaxPartitionBits {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Partition bits must be <= %v: %v", MaxPartitionBits, partitionBits)}
	}

	relationCountBound := uint64(1) << (TotalBits - partitionBits)
	if partitionBits == 0 {
		relationCountBound = uint64(1)<<TotalBits - 1
	}

	return &IDManager{
		partitionBits:      partitionBits,
		partitionIDBound:   uint64(1) << partitionBits,
		relationCountBound: relationCountBound,
		vertexCountBound:   uint64(1) << (TotalBits - partitionBits - UserVertexPaddingBits),
	}, nil
}

/*
PartitionBits returns the number of partition bits.
*/
func (im *IDManager) PartitionBits() uint {
	return im.partitionBits
}

/*
PartitionBound returns the (exclusive) upper bound of partition ids.
*/
func (im *IDManager) PartitionBound() uint64 {
	return im.partitionIDBound
}

/*
constructID builds an id from a count and a partition.
*/
func (im *IDManager) constructID(count uint64, partition uint64, vtype *VertexIDType) int64 {
	id := (count << im.partitionBits) + partition

	if vtype != nil {
		id = vertexPaddings[*vtype].addPadding(id)
	}

	return int64(id)
}

/*
VertexID returns the id of a user vertex. Partitioned vertices always get
their canonical id regardless of the given partition.
*/
func (im *IDManager) VertexID(count uint64, partition uint64, vtype VertexIDType) (int64, error) {

	if count == 0 || count >= im.vertexCountBound {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid vertex count for bound %v: %v", im.vertexCountBound, count)}
	}

	if vtype == PartitionedVertex {
		return im.canonicalFromCount(count), nil
	}

	if partition >= im.partitionIDBound {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid partition: %v", partition)}
	}

	return im.constructID(count, partition, &vtype), nil
}

/*
RelationID returns the id of a relation.
*/
func (im *IDManager) RelationID(count uint64, partition uint64) (int64, error) {

	if count == 0 || count >= im.relationCountBound {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid relation count for bound %v: %v", im.relationCountBound, count)}
	}

	if partition >= im.partitionIDBound {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid partition: %v", partition)}
	}

	return im.constructID(count, partition, nil), nil
}

/*
IsUserVertexID checks if a given id is a user vertex id.
*/
func (im *IDManager) IsUserVertexID(id int64) bool {
	if id <= 0 {
		return false
	}

	uid := uint64(id)

	return (vertexPaddings[NormalVertex].is(uid) ||
		vertexPaddings[PartitionedVertex].is(uid) ||
		vertexPaddings[UnmodifiableVertex].is(uid)) &&
		uid>>(im.partitionBits+UserVertexPaddingBits) > 0
}

/*
IsPartitionedVertex checks if a given id is the id of a partitioned vertex.
*/
func (im *IDManager) IsPartitionedVertex(id int64) bool {
	return im.IsUserVertexID(id) && vertexPaddings[PartitionedVertex].is(uint64(id))
}

/*
IsUnmodifiableVertex checks if a given id is the id of an unmodifiable vertex.
*/
func (im *IDManager) IsUnmodifiableVertex(id int64) bool {
	return im.IsUserVertexID(id) && vertexPaddings[UnmodifiableVertex].is(uint64(id))
}

/*
PartitionID returns the partition of a given vertex id. Schema ids are always
in partition 0.
*/
func (im *IDManager) PartitionID(id int64) uint64 {
	if IsSchemaID(id) || !im.IsUserVertexID(id) {
		return 0
	}

	return (uint64(id) >> UserVertexPaddingBits) & (im.partitionIDBound - 1)
}

/*
PartitionHash calculates the partition hash of a given count.
*/
func (im *IDManager) PartitionHash(count uint64) uint64 {
	var result uint64

	if im.partitionBits == 0 {
		return 0
	}

	for offset := uint(0); offset < 64; offset += im.partitionBits {
		result = result ^ ((count >> offset) & (im.partitionIDBound - 1))
	}

	return result
}

/*
canonicalFromCount returns the canonical id of a partitioned vertex count.
*/
func (im *IDManager) canonicalFromCount(count uint64) int64 {
	vtype := PartitionedVertex
	return im.constructID(count, im.PartitionHash(count), &vtype)
}

/*
count extracts the count of a user vertex id.
*/
func (im *IDManager) count(id int64) uint64 {
	return uint64(id) >> (im.partitionBits + UserVertexPaddingBits)
}

/*
CanonicalVertexID maps any representative of a partitioned vertex to its
canonical id. All other ids are returned unchanged.
*/
func (im *IDManager) CanonicalVertexID(id int64) int64 {
	if !im.IsPartitionedVertex(id) {
		return id
	}

	return im.canonicalFromCount(im.count(id))
}

/*
IsCanonicalVertexID checks if a given id is canonical.
*/
func (im *IDManager) IsCanonicalVertexID(id int64) bool {
	return im.CanonicalVertexID(id) == id
}

/*
PartitionedVertexID returns the representative of a partitioned vertex in a
given partition.
*/
func (im *IDManager) PartitionedVertexID(id int64, partition uint64) (int64, error) {

	if !im.IsPartitionedVertex(id) {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Not a partitioned vertex: %v", id)}
	}

	if partition >= im.partitionIDBound {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid partition: %v", partition)}
	}

	vtype := PartitionedVertex

	return im.constructID(im.count(id), partition, &vtype), nil
}

/*
PartitionedVertexRepresentatives returns the representatives of a
partitioned vertex in all partitions.
*/
func (im *IDManager) PartitionedVertexRepresentatives(id int64) ([]int64, error) {

	if !im.IsPartitionedVertex(id) {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Not a partitioned vertex: %v", id)}
	}

	vtype := PartitionedVertex
	count := im.count(id)
	ret := make([]int64, im.partitionIDBound)

	for i := uint64(0); i < im.partitionIDBound; i++ {
		ret[i] = im.constructID(count, i, &vtype)
	}

	return ret, nil
}

/*
RelationPartition returns the partition of a relation between an out vertex
and an in vertex (use a non-positive in vertex id for properties). Relations
of a partitioned vertex are placed with the other endpoint.
*/
func (im *IDManager) RelationPartition(outVertex int64, inVertex int64) uint64 {

	if im.IsPartitionedVertex(outVertex) && im.IsUserVertexID(inVertex) &&
		!im.IsPartitionedVertex(inVertex) {

		return im.PartitionID(inVertex)
	}

	return im.PartitionID(outVertex)
}

/*
RelationVertexKey returns the id under which a relation is stored for one
of its endpoints. For partitioned endpoints this is the representative in
the relation's partition.
*/
func (im *IDManager) RelationVertexKey(vertex int64, partition uint64) int64 {
	if im.IsPartitionedVertex(vertex) {
		id, _ := im.PartitionedVertexID(vertex, partition)
		return id
	}

	return vertex
}

/*
ToVertexID converts a user provided id into a vertex id.
*/
func (im *IDManager) ToVertexID(id int64) (int64, error) {

	if id <= 0 || uint64(id) >= im.vertexCountBound {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("User id out of range: %v", id)}
	}

	return id << (im.partitionBits + UserVertexPaddingBits), nil
}

/*
FromVertexID converts a vertex id back into the user provided id.
*/
func (im *IDManager) FromVertexID(id int64) (int64, error) {
	if id <= 0 || im.count(id) == 0 ||
		uint64(id) > (im.vertexCountBound-1)<<(UserVertexPaddingBits+im.partitionBits) {

		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid vertex id: %v", id)}
	}

	return id >> (UserVertexPaddingBits + im.partitionBits), nil
}

// Schema ids
// ==========

/*
SchemaType is the type of a schema id.
*/
type SchemaType int

/*
Known schema types
*/
const (
	UserPropertyKey SchemaType = iota
	SystemPropertyKey
	UserEdgeLabel
	SystemEdgeLabel
	VertexLabel
)

var schemaPaddings = map[SchemaType]padding{
	UserPropertyKey:   {6, 5},  // 000101
	SystemPropertyKey: {6, 37}, // 100101
	UserEdgeLabel:     {6, 21}, // 010101
	SystemEdgeLabel:   {6, 53}, // 110101
	VertexLabel:       {5, 13}, // 01101
}

/*
schemaTypeOrder is the lookup order for schema types
*/
var schemaTypeOrder = []SchemaType{UserPropertyKey, SystemPropertyKey,
	UserEdgeLabel, SystemEdgeLabel, VertexLabel}

/*
SchemaID returns the id of a schema type.
*/
func SchemaID(stype SchemaType, count uint64) (int64, error) {
	p := schemaPaddings[stype]

	if count == 0 || count >= uint64(1)<<(TotalBits-p.offset-3) {
		return 0, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Schema count out of range: %v", count)}
	}

	return int64(p.addPadding(count)), nil
}

/*
SchemaTypeOf returns the schema type of a given id.
*/
func SchemaTypeOf(id int64) (SchemaType, bool) {
	if id > 0 {
		for _, t := range schemaTypeOrder {
			if schemaPaddings[t].is(uint64(id)) {
				return t, true
			}
		}
	}

	return 0, false
}

/*
IsSchemaID checks if a given id is a schema id.
*/
func IsSchemaID(id int64) bool {
	_, ok := SchemaTypeOf(id)
	return ok
}

/*
IsSystemRelationTypeID checks if a given id is a system relation type id.
*/
func IsSystemRelationTypeID(id int64) bool {
	t, ok := SchemaTypeOf(id)
	return ok && (t == SystemPropertyKey || t == SystemEdgeLabel)
}

// Temporary ids
// =============

/*
TemporaryID returns a temporary id for a given count.
*/
func TemporaryID(count uint64) int64 {
	return int64((uint64(1) << 63) | count)
}

/*
IsTemporary checks if a given id is temporary.
*/
func IsTemporary(id int64) bool {
	return id < 0
}

/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package idmanager

import "sync"

/*
Allocator supplies fresh vertex and relation ids.
*/
type Allocator interface {

	/*
	   NextVertexID returns a new vertex id. Partitioned vertices get their
	   canonical id.
	*/
	NextVertexID(partitioned bool) (int64, error)

	/*
	   NextRelationID returns a new relation id for a relation between two
	   vertices (use a non-positive in vertex id for properties).
	*/
	NextRelationID(outVertex int64, inVertex int64) (int64, error)
}

/*
SimpleAllocator is an in-process allocator which hands out consecutive counts
and spreads normal vertices round-robin over all partitions.
*/
type SimpleAllocator struct {
	im            *IDManager  // Id layout
	vertexCount   uint64      // Last used vertex count
	relationCount uint64      // Last used relation count
	nextPartition uint64      // Next partition for normal vertices
	mutex         *sync.Mutex // Mutex to protect counters
}

/*
NewSimpleAllocator creates a new SimpleAllocator which continues counting
from the given counts.
*/
func NewSimpleAllocator(im *IDManager, vertexCount uint64, relationCount uint64) *SimpleAllocator {
	return &SimpleAllocator{im, vertexCount, relationCount, 0, &sync.Mutex{}}
}

/*
NextVertexID returns a new vertex id.
*/
func (sa *SimpleAllocator) NextVertexID(partitioned bool) (int64, error) {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	sa.vertexCount++

	if partitioned {
		return sa.im.VertexID(sa.vertexCount, 0, PartitionedVertex)
	}

	partition := sa.nextPartition
	sa.nextPartition = (sa.nextPartition + 1) % sa.im.PartitionBound()

	return sa.im.VertexID(sa.vertexCount, partition, NormalVertex)
}

/*
NextRelationID returns a new relation id.
*/
func (sa *SimpleAllocator) NextRelationID(outVertex int64, inVertex int64) (int64, error) {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	sa.relationCount++

	return sa.im.RelationID(sa.relationCount, sa.im.RelationPartition(outVertex, inVertex))
}

/*
Counts returns the last used vertex and relation counts.
*/
func (sa *SimpleAllocator) Counts() (uint64, uint64) {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	return sa.vertexCount, sa.relationCount
}

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
Package graph contains the transaction API of the graph datastore.

Manager API

The main API is provided by a Manager object which can be created with the
NewManager() constructor function. The manager owns the graph storage, the
schema provider, the id allocator and the graph rules. It hands out
transactions with NewTx().

Transactions

A transaction holds the vertices, edges and properties which are used by a
single goroutine. Vertices are loaded lazily from the storage. A vertex
which is mutated becomes resident: all its stored relations are read into
its adjacency store so multiplicity can be enforced in memory. Nothing is
written to the storage before calling Commit(). New relations get their ids
on commit.

Queries

Query() returns a vertex-centric query on a vertex of the transaction.
Queries on resident vertices are evaluated in memory. Queries on all other
vertices are translated into column ranges of the vertex row and run
against the storage.

Rules

Graph rules trigger on graph events of a transaction. The rule
SystemRuleRemoveVertexRelations is automatically loaded when a new Manager
is created. It removes all relations of a vertex when the vertex is removed.

Storage layout

Each vertex has a row in the key-column-value store of the graph storage.
Relations are stored on the rows of all their endpoints (unidirected edges
only on their out vertex). Partitioned vertices have a row in every
partition; relations with other vertices are placed in the row of the
partition of the other vertex.

Main database

MainDB stores schema definitions, id counters and version information.
*/
package graph

import "errors"

/*
VERSION of the Manager
*/
const VERSION = 1

/*
MainDBEntryPrefix is the prefix for entries stored in the main database
*/
const MainDBEntryPrefix = "\x03"

// MainDB entries
// ==============

/*
MainDBVersion is the MainDB entry key for version information
*/
const MainDBVersion = MainDBEntryPrefix + "ver"

/*
MainDBVertexCount is the MainDB entry key for the last used vertex count
*/
const MainDBVertexCount = MainDBEntryPrefix + "vcnt"

/*
MainDBRelationCount is the MainDB entry key for the last used relation count
*/
const MainDBRelationCount = MainDBEntryPrefix + "rcnt"

/*
MainDBPartitionBits is the MainDB entry key for the number of partition bits
*/
const MainDBPartitionBits = MainDBEntryPrefix + "pbits"

// Graph events
// ============

/*
EventVertexCreated is thrown when a vertex was created.

Parameters: vertex
*/
const EventVertexCreated = 0x01

/*
EventVertexRemoved is thrown before a vertex is removed.

Parameters: vertex
*/
const EventVertexRemoved = 0x02

/*
EventRelationAdded is thrown when an edge or a property was added.

Parameters: relation
*/
const EventRelationAdded = 0x03

/*
EventRelationRemoved is thrown when an edge or a property was removed.

Parameters: relation
*/
const EventRelationRemoved = 0x04

/*
EventPropertySet is thrown when a single valued property was set.

Parameters: property, old values ([]interface{})
*/
const EventPropertySet = 0x05

/*
EventCommit is thrown after a transaction was written to the storage.

Parameters: transaction id, number of written columns
*/
const EventCommit = 0x06

/*
EventNames are the names of graph events.
*/
var EventNames = map[int]string{
	EventVertexCreated:   "vertex.created",
	EventVertexRemoved:   "vertex.removed",
	EventRelationAdded:   "relation.added",
	EventRelationRemoved: "relation.removed",
	EventPropertySet:     "property.set",
	EventCommit:          "commit",
}

/*
ErrEventHandled is a special error which an event handler can return to
signal that an event has been handled
*/
var ErrEventHandled = errors.New("Event handled upstream")

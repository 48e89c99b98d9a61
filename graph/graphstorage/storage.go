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
Package graphstorage contains the storage backend of the graph transaction
core.

Storage objects

A Storage holds a main database (a small string map for meta data such as
schema definitions and id counters) and a key-column-value store for the
relations of vertices. There are two storage objects: MemoryGraphStorage
which keeps everything in memory and DiskGraphStorage which writes the
memory data to files on flush.

Key-column-value store

Each vertex has a row. A row is a sorted list of columns; each column holds
one relation. GetSlice reads a range of columns of a row and Mutate adds and
deletes columns of a row.

Codec

The codec defines the column layout. Columns of a row are grouped by
category (properties, outgoing edges, incoming edges) and relation type.
Edge columns continue with the values of the sort key of their label in an
order-preserving encoding, the id of the adjacent vertex and the relation
id. Column values hold the property value or the edge properties.
*/
package graphstorage

import (
	"fmt"

	"devt.de/krotik/common/bitutil"
)

/*
Entry is a column of a row together with its value.
*/
type Entry struct {
	Column []byte // Column name
	Value  []byte // Column value
}

/*
String returns a string representation of this entry.
*/
func (e Entry) String() string {
	return fmt.Sprintf("Entry: %v", bitutil.HexDump(e.Column))
}

/*
KCVStore is a key-column-value store.
*/
type KCVStore interface {

	/*
	   GetSlice returns all columns of a row within [start, end) in column
	   order. A nil end means no upper bound. A limit of 0 means no limit.
	*/
	GetSlice(key []byte, start []byte, end []byte, limit int) ([]Entry, error)

	/*
	   Mutate deletes and adds columns of a row. Deletions are applied first.
	*/
	Mutate(key []byte, additions []Entry, deletions [][]byte) error
}

/*
Storage interface models the storage backend for a graph manager.
*/
type Storage interface {

	/*
	   Name returns the name of the Storage instance.
	*/
	Name() string

	/*
		MainDB returns the main database. The main database is a quick
		lookup map for meta data which is always kept in memory.
	*/
	MainDB() map[string]string

	/*
	   RollbackMain rollback the main database.
	*/
	RollbackMain() error

	/*
	   FlushMain writes the main database to the storage.
	*/
	FlushMain() error

	/*
	   FlushAll writes all pending changes to the storage.
	*/
	FlushAll() error

	/*
	   Store returns the key-column-value store which holds the relations.
	*/
	Store() KCVStore

	/*
		Close closes the storage.
	*/
	Close() error
}

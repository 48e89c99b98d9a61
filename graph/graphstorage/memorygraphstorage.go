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
	"fmt"
	"sort"
	"sync"
)

/*
Return values for Close, FlushMain, FlushAll and RollbackMain calls
*/
var MgsRetClose, MgsRetFlushMain, MgsRetFlushAll, MgsRetRollbackMain error

/*
Return values for GetSlice and Mutate calls of memory stores
*/
var MgsRetGetSlice, MgsRetMutate error

/*
MemoryGraphStorage data structure
*/
type MemoryGraphStorage struct {
	name   string            // Name of the graph storage
	mainDB map[string]string // Database storing names
	store  *MemoryKCVStore   // Store for relations
}

/*
NewMemoryGraphStorage creates a new MemoryGraphStorage instance.
*/
func NewMemoryGraphStorage(name string) Storage {
	return &MemoryGraphStorage{name, make(map[string]string), NewMemoryKCVStore()}
}

/*
Name returns the name of the MemoryGraphStorage instance.
*/
func (mgs *MemoryGraphStorage) Name() string {
	return mgs.name
}

/*
MainDB returns the main database.
*/
func (mgs *MemoryGraphStorage) MainDB() map[string]string {
	return mgs.mainDB
}

/*
RollbackMain rollback the main database.
*/
func (mgs *MemoryGraphStorage) RollbackMain() error {
	return MgsRetRollbackMain
}

/*
FlushMain writes the main database to the storage.
*/
func (mgs *MemoryGraphStorage) FlushMain() error {
	return MgsRetFlushMain
}

/*
FlushAll writes all pending changes to the storage.
*/
func (mgs *MemoryGraphStorage) FlushAll() error {
	return MgsRetFlushAll
}

/*
Store returns the key-column-value store which holds the relations.
*/
func (mgs *MemoryGraphStorage) Store() KCVStore {
	return mgs.store
}

/*
Close closes the storage.
*/
func (mgs *MemoryGraphStorage) Close() error {
	return MgsRetClose
}

/*
MemoryKCVStore is a key-column-value store which keeps its rows in memory.
*/
type MemoryKCVStore struct {
	rows  map[string][]Entry // Rows sorted by column
	mutex *sync.RWMutex      // Lock for rows
}

/*
NewMemoryKCVStore creates a new MemoryKCVStore instance.
*/
func NewMemoryKCVStore() *MemoryKCVStore {
	return &MemoryKCVStore{make(map[string][]Entry), &sync.RWMutex{}}
}

/*
GetSlice returns all columns of a row within [start, end) in column order.
*/
func (ms *MemoryKCVStore) GetSlice(key []byte, start []byte, end []byte, limit int) ([]Entry, error) {
	var ret []Entry

	if MgsRetGetSlice != nil {
		return nil, MgsRetGetSlice
	}

	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	row := ms.rows[string(key)]

	i := sort.Search(len(row), func(i int) bool {
		return bytes.Compare(row[i].Column, start) >= 0
	})

	for ; i < len(row); i++ {

		if end != nil && bytes.Compare(row[i].Column, end) >= 0 {
			break
		} else if limit > 0 && len(ret) >= limit {
			break
		}

		ret = append(ret, copyEntry(row[i]))
	}

	return ret, nil
}

/*
Mutate deletes and adds columns of a row. Deletions are applied first.
*/
func (ms *MemoryKCVStore) Mutate(key []byte, additions []Entry, deletions [][]byte) error {

	if MgsRetMutate != nil {
		return MgsRetMutate
	}

	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	row := ms.rows[string(key)]

	for _, col := range deletions {
		if i, ok := findColumn(row, col); ok {
			row = append(row[:i], row[i+1:]...)
		}
	}

	for _, e := range additions {
		i, ok := findColumn(row, e.Column)

		if ok {
			row[i] = copyEntry(e)
		} else {
			row = append(row, Entry{})
			copy(row[i+1:], row[i:])
			row[i] = copyEntry(e)
		}
	}

	if len(row) == 0 {
		delete(ms.rows, string(key))
	} else {
		ms.rows[string(key)] = row
	}

	return nil
}

/*
RowCount returns the number of rows in this store.
*/
func (ms *MemoryKCVStore) RowCount() int {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	return len(ms.rows)
}

/*
String returns a string representation of this store.
*/
func (ms *MemoryKCVStore) String() string {
	var buf bytes.Buffer

	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	keys := make([]string, 0, len(ms.rows))
	for k := range ms.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf.WriteString(fmt.Sprintf("%x: %v columns\n", k, len(ms.rows[k])))
	}

	return buf.String()
}

/*
findColumn finds the position of a column in a sorted row.
*/
func findColumn(row []Entry, col []byte) (int, bool) {
	i := sort.Search(len(row), func(i int) bool {
		return bytes.Compare(row[i].Column, col) >= 0
	})
	return i, i < len(row) && bytes.Equal(row[i].Column, col)
}

/*
copyEntry returns a copy of an entry which does not share memory.
*/
func copyEntry(e Entry) Entry {
	return Entry{append([]byte(nil), e.Column...), append([]byte(nil), e.Value...)}
}

/*
snapshot returns a deep copy of all rows.
*/
func (ms *MemoryKCVStore) snapshot() map[string][]Entry {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	ret := make(map[string][]Entry, len(ms.rows))

	for k, row := range ms.rows {
		cp := make([]Entry, len(row))
		for i, e := range row {
			cp[i] = copyEntry(e)
		}
		ret[k] = cp
	}

	return ret
}

/*
restore replaces all rows of this store.
*/
func (ms *MemoryKCVStore) restore(rows map[string][]Entry) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if rows == nil {
		rows = make(map[string][]Entry)
	}

	ms.rows = rows
}

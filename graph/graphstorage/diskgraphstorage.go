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
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/graphtx/graph/util"
)

/*
FilenameNameDB is the filename for the name storage file
*/
var FilenameNameDB = "names.pm"

/*
FilenameRowDB is the filename for the relation storage file
*/
var FilenameRowDB = "rows.db"

/*
DiskGraphStorage data structure
*/
type DiskGraphStorage struct {
	name     string                        // Name of the graph storage
	readonly bool                          // Flag for readonly mode
	mainDB   *datautil.PersistentStringMap // Database storing names
	store    *MemoryKCVStore               // Store for relations
}

/*
NewDiskGraphStorage creates a new DiskGraphStorage instance.
*/
func NewDiskGraphStorage(name string, readonly bool) (Storage, error) {

	dgs := &DiskGraphStorage{name, readonly, nil, NewMemoryKCVStore()}

	// Load the graph storage if the storage directory already exists if not try to create it

	if res, _ := fileutil.PathExists(name); !res {

		if readonly {
			return nil, &util.GraphError{Type: util.ErrOpening,
				Detail: fmt.Sprintf("Storage directory %v does not exist", name)}
		}

		if err := os.Mkdir(name, 0770); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

		// Create the graph storage files

		mainDB, err := datautil.NewPersistentStringMap(dgs.filename(FilenameNameDB))
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

		dgs.mainDB = mainDB

		if err := dgs.writeRows(); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

	} else {

		// Load graph storage files

		mainDB, err := datautil.LoadPersistentStringMap(dgs.filename(FilenameNameDB))
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

		dgs.mainDB = mainDB

		if err := dgs.readRows(); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}
	}

	return dgs, nil
}

/*
Name returns the name of the DiskGraphStorage instance.
*/
func (dgs *DiskGraphStorage) Name() string {
	return dgs.name
}

/*
MainDB returns the main database.
*/
func (dgs *DiskGraphStorage) MainDB() map[string]string {
	return dgs.mainDB.Data
}

/*
RollbackMain rollback the main database.
*/
func (dgs *DiskGraphStorage) RollbackMain() error {

	// Fail operation when readonly

	if dgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: "Cannot rollback main db"}
	}

	mainDB, err := datautil.LoadPersistentStringMap(dgs.filename(FilenameNameDB))
	if err != nil {
		return &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	dgs.mainDB = mainDB

	return nil
}

/*
FlushMain writes the main database to the storage.
*/
func (dgs *DiskGraphStorage) FlushMain() error {

	// Fail operation when readonly

	if dgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: "Cannot flush main db"}
	}

	if err := dgs.mainDB.Flush(); err != nil {
		return &util.GraphError{Type: util.ErrFlushing, Detail: err.Error()}
	}
	return nil
}

/*
Store returns the key-column-value store which holds the relations.
*/
func (dgs *DiskGraphStorage) Store() KCVStore {
	if dgs.readonly {
		return &readonlyStore{dgs.store}
	}
	return dgs.store
}

/*
FlushAll writes all pending changes to the storage.
*/
func (dgs *DiskGraphStorage) FlushAll() error {

	if dgs.readonly {
		return nil
	}

	var errors []string

	if err := dgs.mainDB.Flush(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := dgs.writeRows(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		details := fmt.Sprint(dgs.name, " :", strings.Join(errors, "; "))

		return &util.GraphError{Type: util.ErrFlushing, Detail: details}
	}

	return nil
}

/*
Close closes the storage.
*/
func (dgs *DiskGraphStorage) Close() error {

	if dgs.readonly {
		return nil
	}

	var errors []string

	if err := dgs.mainDB.Flush(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := dgs.writeRows(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		details := fmt.Sprint(dgs.name, " :", strings.Join(errors, "; "))

		return &util.GraphError{Type: util.ErrClosing, Detail: details}
	}

	return nil
}

/*
filename returns the full path of a storage file.
*/
func (dgs *DiskGraphStorage) filename(name string) string {
	return filepath.Join(dgs.name, name)
}

/*
writeRows writes all rows of the relation store to disk. The rows are first
written to a temporary file which then replaces the old file.
*/
func (dgs *DiskGraphStorage) writeRows() error {
	filename := dgs.filename(FilenameRowDB)

	f, err := os.Create(filename + ".tmp")
	if err != nil {
		return err
	}

	if err = gob.NewEncoder(f).Encode(dgs.store.snapshot()); err != nil {
		f.Close()
		return err
	}

	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(filename+".tmp", filename)
}

/*
readRows reads all rows of the relation store from disk.
*/
func (dgs *DiskGraphStorage) readRows() error {
	var rows map[string][]Entry

	f, err := os.Open(dgs.filename(FilenameRowDB))
	if err != nil {
		return err
	}
	defer f.Close()

	if err = gob.NewDecoder(f).Decode(&rows); err != nil {
		return err
	}

	dgs.store.restore(rows)

	return nil
}

/*
readonlyStore is a store wrapper which rejects all mutations.
*/
type readonlyStore struct {
	*MemoryKCVStore
}

/*
Mutate always returns an error.
*/
func (rs *readonlyStore) Mutate(key []byte, additions []Entry, deletions [][]byte) error {
	return &util.GraphError{Type: util.ErrReadOnly, Detail: "Cannot mutate relation store"}
}

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
	"errors"
	"flag"
	"fmt"
	"os"
	"testing"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/graphtx/graph/util"
)

const diskGraphStorageTestDBDir = "diskgraphstoragetest1"
const diskGraphStorageTestDBDir2 = "diskgraphstoragetest2"
const diskGraphStorageTestDBDir3 = "diskgraphstoragetest3"

var dbdirs = []string{diskGraphStorageTestDBDir, diskGraphStorageTestDBDir2,
	diskGraphStorageTestDBDir3}

const invalidFileName = "**" + "\x00"

// Main function for all tests in this package

func TestMain(m *testing.M) {
	flag.Parse()

	for _, dbdir := range dbdirs {
		if res, _ := fileutil.PathExists(dbdir); res {
			if err := os.RemoveAll(dbdir); err != nil {
				fmt.Print("Could not remove test directory:", err.Error())
			}
		}
	}

	// Run the tests

	res := m.Run()

	// Teardown

	for _, dbdir := range dbdirs {
		if res, _ := fileutil.PathExists(dbdir); res {
			if err := os.RemoveAll(dbdir); err != nil {
				fmt.Print("Could not remove test directory:", err.Error())
			}
		}
	}

	os.Exit(res)
}

func TestDiskGraphStorage(t *testing.T) {
	dgsnew, err := NewDiskGraphStorage(diskGraphStorageTestDBDir, false)
	if err != nil {
		t.Error(err)
		return
	}

	if res := dgsnew.Name(); res != diskGraphStorageTestDBDir {
		t.Error("Unexpected name:", res)
		return
	}

	// Check that the storage files exist

	if res, _ := fileutil.PathExists(diskGraphStorageTestDBDir + "/" + FilenameNameDB); !res {
		t.Error("Name DB does not exist")
		return
	}

	if res, _ := fileutil.PathExists(diskGraphStorageTestDBDir + "/" + FilenameRowDB); !res {
		t.Error("Row DB does not exist")
		return
	}

	m := dgsnew.MainDB()
	m["test1"] = "test1value"
	dgsnew.FlushMain()
	dgsnew.RollbackMain()

	key := VertexKey(42)

	if err := dgsnew.Store().Mutate(key, []Entry{{[]byte{1, 2}, []byte("a")},
		{[]byte{1, 1}, []byte("b")}}, nil); err != nil {
		t.Error(err)
		return
	}

	if err := dgsnew.FlushAll(); err != nil {
		t.Error("Unexpected error return:", err)
	}

	if err := dgsnew.Close(); err != nil {
		t.Error(err)
		return
	}

	// Open the storage again to make sure we can load it

	dgs, err := NewDiskGraphStorage(diskGraphStorageTestDBDir, false)
	if err != nil {
		t.Error(err)
		return
	}

	if res := dgs.MainDB()["test1"]; res != "test1value" {
		t.Error("Unexpected value in mainDB value:", res)
		return
	}

	res, err := dgs.Store().GetSlice(key, nil, nil, 0)
	if err != nil || len(res) != 2 || string(res[0].Value) != "b" || string(res[1].Value) != "a" {
		t.Error("Unexpected result:", res, err)
		return
	}

	// Check readonly mode

	dgs.(*DiskGraphStorage).readonly = true

	if err := dgs.RollbackMain(); err.Error() != "GraphError: Failed write to readonly storage (Cannot rollback main db)" {
		t.Error("Unexpected error return:", err)
	}

	if err := dgs.FlushMain(); err.Error() != "GraphError: Failed write to readonly storage (Cannot flush main db)" {
		t.Error("Unexpected error return:", err)
	}

	if err := dgs.Store().Mutate(key, nil, [][]byte{{1, 1}}); !errors.Is(err, util.ErrReadOnly) {
		t.Error("Unexpected error return:", err)
	}

	if res, _ := dgs.Store().GetSlice(key, nil, nil, 0); len(res) != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	if err := dgs.FlushAll(); err != nil {
		t.Error("Unexpected error return:", err)
	}

	if err := dgs.Close(); err != nil {
		t.Error(err)
		return
	}

	// A readonly storage cannot be created

	if _, err := NewDiskGraphStorage(diskGraphStorageTestDBDir3, true); !errors.Is(err, util.ErrOpening) {
		t.Error("Unexpected error return:", err)
		return
	}
}

func TestDiskGraphStorageErrors(t *testing.T) {
	_, err := NewDiskGraphStorage(invalidFileName, false)
	if err == nil {
		t.Error("Unexpected new disk graph storage result")
		return
	}

	// Test names map error case

	old := FilenameNameDB
	FilenameNameDB = invalidFileName

	_, err = NewDiskGraphStorage(diskGraphStorageTestDBDir2, false)
	if err == nil {
		t.Error("Unexpected new disk graph storage result")
		FilenameNameDB = old
		return
	}

	_, err = NewDiskGraphStorage(diskGraphStorageTestDBDir2, false)
	if err == nil {
		t.Error("Unexpected new disk graph storage result")
		FilenameNameDB = old
		return
	}

	FilenameNameDB = old

	dgs := &DiskGraphStorage{invalidFileName, false, nil, NewMemoryKCVStore()}
	pm, _ := datautil.NewPersistentStringMap(invalidFileName)
	dgs.mainDB = pm

	if err := dgs.RollbackMain(); err == nil {
		t.Error("Unexpected flush result")
		return
	}

	if err := dgs.FlushMain(); err == nil {
		t.Error("Unexpected flush result")
		return
	}

	if err := dgs.FlushAll(); !errors.Is(err, util.ErrFlushing) {
		t.Error("Unexpected flush all result:", err)
		return
	}

	if err := dgs.Close(); !errors.Is(err, util.ErrClosing) {
		t.Error("Unexpected close result:", err)
		return
	}
}

/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"fmt"
	"os"
	"testing"
)

const testconf = "testconfig"

func TestConfig(t *testing.T) {

	Config = nil

	os.WriteFile(testconf, []byte(`{
    "MemoryOnlyStorage": false,
    "PartitionBits": "3"
}`), 0644)

	defer func() {
		if err := os.Remove(testconf); err != nil {
			fmt.Print("Could not remove test config file:", err.Error())
		}
	}()

	if err := LoadConfigFile(testconf); err != nil {
		t.Error(err)
		return
	}

	if res := Str(MemoryOnlyStorage); res != "false" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Bool(MemoryOnlyStorage); res {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(PartitionBits); res != 3 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(TxVertexCacheSize); fmt.Sprint(res) != DefaultConfig[TxVertexCacheSize] {
		t.Error("Unexpected result:", res)
		return
	}

	LoadDefaultConfig()

	if res := Bool(MemoryOnlyStorage); !res {
		t.Error("Unexpected result:", res)
		return
	}

	Config[PartitionBits] = "7"

	if res := Int(PartitionBits); fmt.Sprint(res) == DefaultConfig[PartitionBits] {
		t.Error("Unexpected result:", res)
		return
	}

	if res := DatastorePath("123", "456"); res != "db/123/456" {
		t.Error("Unexpected result:", res)
		return
	}

	Config = nil
	EnsureConfig()

	if res := Str(LogLevel); res != "info" {
		t.Error("Unexpected result:", res)
		return
	}
}

/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package schema

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

/*
cacheSnapshot is an immutable view of the shared cache.
*/
type cacheSnapshot struct {
	generation uint64
	byName     map[string]Type
	byID       map[int64]Type
}

/*
SharedCache is a cache of resolved schema types which is shared between
transactions. Readers never block; writers replace the current snapshot.
*/
type SharedCache struct {
	snapshot atomic.Pointer[cacheSnapshot] // Current snapshot
	mutex    sync.Mutex                    // Lock for writers
	group    singleflight.Group            // Group for concurrent resolution
}

/*
NewSharedCache creates a new empty SharedCache.
*/
func NewSharedCache() *SharedCache {
	sc := &SharedCache{}
	sc.snapshot.Store(&cacheSnapshot{0, map[string]Type{}, map[int64]Type{}})
	return sc
}

/*
Get returns a cached type by name.
*/
func (sc *SharedCache) Get(name string) (Type, bool) {
	t, ok := sc.snapshot.Load().byName[name]
	return t, ok
}

/*
GetByID returns a cached type by id.
*/
func (sc *SharedCache) GetByID(id int64) (Type, bool) {
	t, ok := sc.snapshot.Load().byID[id]
	return t, ok
}

/*
Generation returns the number of inserts into this cache.
*/
func (sc *SharedCache) Generation() uint64 {
	return sc.snapshot.Load().generation
}

/*
Len returns the number of cached types.
*/
func (sc *SharedCache) Len() int {
	return len(sc.snapshot.Load().byName)
}

/*
PutIfAbsent inserts a type unless a type of the same name is already cached.
Returns the cached instance.
*/
func (sc *SharedCache) PutIfAbsent(t Type) Type {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	old := sc.snapshot.Load()

	if existing, ok := old.byName[t.Name()]; ok {
		return existing
	}

	snap := &cacheSnapshot{old.generation + 1,
		make(map[string]Type, len(old.byName)+1),
		make(map[int64]Type, len(old.byID)+1)}

	for k, v := range old.byName {
		snap.byName[k] = v
	}
	for k, v := range old.byID {
		snap.byID[k] = v
	}

	snap.byName[t.Name()] = t
	snap.byID[t.ID()] = t

	sc.snapshot.Store(snap)

	return t
}

/*
resolve resolves a type through a given lookup function. Concurrent calls
for the same key share a single lookup. Results are inserted into the cache.
*/
func (sc *SharedCache) resolve(key string, name string, lookup func() (*Definition, error)) (Type, error) {

	if t, ok := sc.Get(name); ok {
		return t, nil
	}

	res, err, _ := sc.group.Do(key, func() (interface{}, error) {

		if t, ok := sc.Get(name); ok {
			return t, nil
		}

		def, err := lookup()
		if err != nil || def == nil {
			return nil, err
		}

		return sc.PutIfAbsent(NewType(def)), nil
	})

	if res == nil {
		return nil, err
	}

	return res.(Type), err
}

/*
String returns a string representation of this cache.
*/
func (sc *SharedCache) String() string {
	snap := sc.snapshot.Load()
	return fmt.Sprintf("SharedCache (generation: %v types: %v)", snap.generation, len(snap.byName))
}

/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"bytes"
	"fmt"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/graphtx/graph/schema"
)

/*
EmptyAdjacency is the shared adjacency store of all elements without
relations. It must never be modified.
*/
var EmptyAdjacency = &Adjacency{}

/*
bucket holds the relations of one type in one direction in insertion order.
*/
type bucket struct {
	rtype schema.RelationType
	rels  []Relation
}

/*
Adjacency stores the relations of an element by direction and type.
*/
type Adjacency struct {
	buckets [2]map[string]*bucket // Buckets for OUT and IN by type name
	order   [2][]string           // Insertion order of type names
}

/*
newAdjacency creates a new empty modifiable adjacency store.
*/
func newAdjacency() *Adjacency {
	return &Adjacency{buckets: [2]map[string]*bucket{
		make(map[string]*bucket), make(map[string]*bucket)}}
}

/*
Types returns all relation types which have a bucket in a given direction.
*/
func (a *Adjacency) Types(dir schema.Direction) []schema.RelationType {
	var ret []schema.RelationType

	for _, name := range a.order[dirIndex(dir)] {
		ret = append(ret, a.buckets[dirIndex(dir)][name].rtype)
	}

	return ret
}

/*
Relations returns a copy of all relations of a given type in a given
direction including removed relations.
*/
func (a *Adjacency) Relations(dir schema.Direction, typeName string) []Relation {
	if b, ok := a.buckets[dirIndex(dir)][typeName]; ok {
		return append([]Relation(nil), b.rels...)
	}
	return nil
}

/*
Len returns the number of stored relations including removed relations.
*/
func (a *Adjacency) Len() int {
	var count int

	for _, buckets := range a.buckets {
		for _, b := range buckets {
			count += len(b.rels)
		}
	}

	return count
}

/*
Live returns all non-removed relations of a given type in a given direction.
*/
func (a *Adjacency) Live(dir schema.Direction, typeName string) []Relation {
	var ret []Relation

	if b, ok := a.buckets[dirIndex(dir)][typeName]; ok {
		for _, r := range b.rels {
			if !r.IsRemoved() {
				ret = append(ret, r)
			}
		}
	}

	return ret
}

/*
find returns the relation which is structurally equal to a given relation.
*/
func (a *Adjacency) find(dir schema.Direction, r Relation) Relation {
	if b, ok := a.buckets[dirIndex(dir)][r.Type().Name()]; ok {
		for _, ex := range b.rels {
			if ex.Equals(r) {
				return ex
			}
		}
	}
	return nil
}

/*
add appends a relation to its bucket.
*/
func (a *Adjacency) add(dir schema.Direction, r Relation) {
	errorutil.AssertTrue(a != EmptyAdjacency, "Empty adjacency must not be modified")

	i := dirIndex(dir)
	name := r.Type().Name()

	b, ok := a.buckets[i][name]
	if !ok {
		b = &bucket{r.Type(), nil}
		a.buckets[i][name] = b
		a.order[i] = append(a.order[i], name)
	}

	b.rels = append(b.rels, r)
}

/*
remove removes a relation from its bucket. Returns if the relation was found.
*/
func (a *Adjacency) remove(dir schema.Direction, r Relation) bool {
	if b, ok := a.buckets[dirIndex(dir)][r.Type().Name()]; ok {
		for i, ex := range b.rels {
			if ex == r {
				b.rels = append(b.rels[:i:i], b.rels[i+1:]...)
				return true
			}
		}
	}
	return false
}

/*
replace replaces a stored relation with another in place.
*/
func (a *Adjacency) replace(dir schema.Direction, old Relation, r Relation) bool {
	if b, ok := a.buckets[dirIndex(dir)][old.Type().Name()]; ok {
		for i, ex := range b.rels {
			if ex == old {
				b.rels[i] = r
				return true
			}
		}
	}
	return false
}

/*
String returns a string representation of this adjacency store.
*/
func (a *Adjacency) String() string {
	var buf bytes.Buffer

	for _, dir := range schema.ProperDirections {
		i := dirIndex(dir)
		for _, name := range a.order[i] {
			buf.WriteString(fmt.Sprintf("%v %v: %v\n", dir, name, a.buckets[i][name].rels))
		}
	}

	return buf.String()
}

/*
dirIndex returns the bucket index of a proper direction.
*/
func dirIndex(dir schema.Direction) int {
	if dir == schema.In {
		return 1
	}
	return 0
}

/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package query

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
)

/*
RelationIterator iterates over the result of a vertex query. Relations are
pulled from the underlying sequence only when they are needed.
*/
type RelationIterator struct {
	source    func() (data.Relation, bool) // Underlying sequence
	cond      Condition                    // Filter condition (nil for no filter)
	remove    func(data.Relation) error    // Function to remove relations
	limit     int                          // Result limit (0 is unlimited)
	emitted   int                          // Number of returned relations
	pulled    int                          // Number of relations taken from the sequence
	next      data.Relation                // Next relation
	last      data.Relation                // Last returned relation
	LastError error                        // Last encountered error
}

/*
HasNext returns if there is a next relation.
*/
func (it *RelationIterator) HasNext() bool {

	if it.next != nil {
		return true
	} else if it.limit > 0 && it.emitted >= it.limit {
		return false
	}

	for {
		r, ok := it.source()
		if !ok {
			return false
		}

		it.pulled++

		if it.cond == nil || it.cond.Evaluate(r) {
			it.next = r
			return true
		}
	}
}

/*
Next returns the next relation or nil if there are no more relations.
*/
func (it *RelationIterator) Next() data.Relation {

	if !it.HasNext() {
		return nil
	}

	r := it.next
	it.next = nil
	it.last = r
	it.emitted++

	return r
}

/*
Remove removes the relation which was last returned by Next from the graph.
*/
func (it *RelationIterator) Remove() error {

	if it.last == nil {
		it.LastError = &util.GraphError{Type: util.ErrInvalidQuery, Detail: "No relation to remove"}
		return it.LastError
	}

	r := it.last
	it.last = nil

	if err := it.remove(r); err != nil {
		it.LastError = err
	}

	return it.LastError
}

/*
Pulled returns the number of relations which were taken from the underlying
sequence so far.
*/
func (it *RelationIterator) Pulled() int {
	return it.pulled
}

/*
Error returns the last encountered error.
*/
func (it *RelationIterator) Error() error {
	return it.LastError
}

/*
newSliceIterator creates an iterator over a list of relations.
*/
func newSliceIterator(rels []data.Relation, cond Condition, remove func(data.Relation) error) *RelationIterator {
	var i int

	return &RelationIterator{source: func() (data.Relation, bool) {
		if i < len(rels) {
			i++
			return rels[i-1], true
		}
		return nil, false
	}, cond: cond, remove: remove}
}

/*
adjacencySource returns a lazy sequence over the relations of a resident
element. Only the buckets of the given types are read if there are any.
Values of implicit keys are computed.
*/
func adjacencySource(c *Compiled) func() (data.Relation, bool) {
	var dirs []schema.Direction
	var di, ti int
	var types []schema.RelationType
	var rels []data.Relation

	for _, d := range schema.ProperDirections {
		if c.Direction.Includes(d) {
			dirs = append(dirs, d)
		}
	}

	adj := c.Base.Adjacency()

	enterDirection := func() {
		types = c.Types
		if types == nil {
			types = adj.Types(dirs[di])
		}
		ti = 0
	}

	if len(dirs) > 0 {
		enterDirection()
	}

	return func() (data.Relation, bool) {

		for {
			if len(rels) > 0 {
				r := rels[0]
				rels = rels[1:]

				// Loops are only returned once

				if e, ok := r.(*data.Edge); ok && dirs[di] == schema.In &&
					c.Direction == schema.Both && e.Vertex(schema.Out) == c.Base {
					continue
				}

				return r, true
			}

			if di >= len(dirs) {
				return nil, false
			}

			if ti >= len(types) {
				if di++; di >= len(dirs) {
					return nil, false
				}
				enterDirection()
				continue
			}

			t := types[ti]
			ti++

			if pk, ok := t.(*schema.PropertyKey); ok && pk.IsImplicit() {
				if dirs[di] == schema.Out {
					rels = implicitProperties(pk, c.Base)
				}
				continue
			}

			rels = adj.Relations(dirs[di], t.Name())
		}
	}
}

/*
implicitProperties returns a property which holds the computed value of an
implicit key.
*/
func implicitProperties(key *schema.PropertyKey, base data.Element) []data.Relation {
	if v := data.ComputeImplicit(key.Implicit(), base, nil); v != nil {
		return []data.Relation{data.LoadProperty(data.NoID, key, base, v)}
	}
	return nil
}

/*
Iterator runs this query and returns an iterator over the result.
*/
func (q *VertexQuery) Iterator(rt ReturnType) (*RelationIterator, error) {

	c, err := q.Compile(rt)

	if err != nil {
		return nil, err
	} else if c == nil {
		return newSliceIterator(nil, nil, nil), nil
	}

	if v, ok := q.base.(*data.Vertex); ok && q.backend != nil && !q.backend.IsResident(v) {
		return q.backendIterator(v, c)
	}

	it := &RelationIterator{source: adjacencySource(c), cond: c.Condition,
		remove: data.RemoveRelation}

	if q.backend != nil {
		it.remove = q.backend.Remove
	}

	if len(c.Orders) > 0 {
		return sortIterator(it, c), nil
	}

	it.limit = c.Limit

	return it, nil
}

/*
backendIterator runs a compiled query against the backend.
*/
func (q *VertexQuery) backendIterator(v *data.Vertex, c *Compiled) (*RelationIterator, error) {
	var rels []data.Relation
	var fitted, sorted bool

	bq, err := Translate(c)

	if err != nil && !errors.Is(err, util.ErrUnsatisfiableQuery) {
		return nil, err
	}

	// Nothing is read if no stored relation can match

	if bq != nil {
		var sq *SliceQuery

		sq, fitted, sorted = bq.Bounds()

		if rels, err = q.backend.Slice(v, sq); err != nil {
			return nil, err
		}
	}

	// Implicit keys are not stored

	for _, t := range c.Types {
		if pk, ok := t.(*schema.PropertyKey); ok && pk.IsImplicit() {
			rels = append(rels, implicitProperties(pk, v)...)
		}
	}

	var cond Condition
	if !fitted {
		cond = c.Condition
	}

	it := newSliceIterator(rels, cond, q.backend.Remove)

	if len(c.Orders) > 0 && !sorted {
		return sortIterator(it, c), nil
	}

	it.limit = c.Limit

	return it, nil
}

/*
sortIterator drains a filtered iterator, sorts the result and applies the
limit of the query. The sort is stable.
*/
func sortIterator(it *RelationIterator, c *Compiled) *RelationIterator {
	var rels []data.Relation

	for it.HasNext() {
		rels = append(rels, it.Next())
	}

	sort.SliceStable(rels, func(i, j int) bool {
		return compareRelations(rels[i], rels[j], c) < 0
	})

	if c.Limit > 0 && len(rels) > c.Limit {
		rels = rels[:c.Limit]
	}

	ret := newSliceIterator(rels, nil, it.remove)
	ret.pulled = it.pulled

	return ret
}

/*
compareRelations compares two relations by the ordering of a query. Absent
values come first in ascending order.
*/
func compareRelations(r1 data.Relation, r2 data.Relation, c *Compiled) int {

	for _, o := range c.Orders {
		v1 := data.Value(r1, o.Key, c.Base)
		v2 := data.Value(r2, o.Key, c.Base)

		res, ok := compare(v1, v2)
		if !ok {
			res = compareUnordered(v1, v2)
		}

		if res != 0 {
			if o.Order == Desc {
				return -res
			}
			return res
		}
	}

	return 0
}

/*
Kinds of values for the ordering of values which cannot be compared
*/
const (
	kindBool = iota
	kindNumber
	kindString
	kindOther
)

func valueKind(v interface{}) int {
	switch v.(type) {
	case bool:
		return kindBool
	case string:
		return kindString
	}
	if _, ok := toFloat(v); ok {
		return kindNumber
	}
	return kindOther
}

/*
compareUnordered orders two values which cannot be compared with each other.
Values are ordered by kind first. NaN comes before all other numbers. Other
values are ordered by type name and string representation.
*/
func compareUnordered(v1 interface{}, v2 interface{}) int {
	k1, k2 := valueKind(v1), valueKind(v2)

	if k1 != k2 {
		return k1 - k2
	}

	if k1 == kindNumber {
		f1, _ := toFloat(v1)
		f2, _ := toFloat(v2)

		switch n1, n2 := math.IsNaN(f1), math.IsNaN(f2); {
		case n1 && !n2:
			return -1
		case !n1 && n2:
			return 1
		}

		return 0
	}

	if res := strings.Compare(fmt.Sprintf("%T", v1), fmt.Sprintf("%T", v2)); res != 0 {
		return res
	}

	return strings.Compare(fmt.Sprint(v1), fmt.Sprint(v2))
}

// Terminal calls
// ==============

/*
Relations returns all relations which match this query.
*/
func (q *VertexQuery) Relations() ([]data.Relation, error) {
	var ret []data.Relation

	it, err := q.Iterator(ReturnRelation)
	if err != nil {
		return nil, err
	}

	for it.HasNext() {
		ret = append(ret, it.Next())
	}

	return ret, nil
}

/*
Edges returns all edges which match this query.
*/
func (q *VertexQuery) Edges() ([]*data.Edge, error) {
	var ret []*data.Edge

	it, err := q.Iterator(ReturnEdge)
	if err != nil {
		return nil, err
	}

	for it.HasNext() {
		ret = append(ret, it.Next().(*data.Edge))
	}

	return ret, nil
}

/*
Properties returns all properties which match this query.
*/
func (q *VertexQuery) Properties() ([]*data.Property, error) {
	var ret []*data.Property

	it, err := q.Iterator(ReturnProperty)
	if err != nil {
		return nil, err
	}

	for it.HasNext() {
		ret = append(ret, it.Next().(*data.Property))
	}

	return ret, nil
}

/*
Vertices returns the adjacent vertices of all edges which match this query.
*/
func (q *VertexQuery) Vertices() ([]*data.Vertex, error) {
	var ret []*data.Vertex

	err := q.eachAdjacent(func(v *data.Vertex) error {
		if err := v.ResolveLabel(); err != nil {
			return err
		}
		ret = append(ret, v)
		return nil
	})

	return ret, err
}

/*
VertexIDs returns the ids of the adjacent vertices of all edges which match
this query. The adjacent vertices are not read.
*/
func (q *VertexQuery) VertexIDs() (*VertexIDList, error) {
	var ids []int64

	err := q.eachAdjacent(func(v *data.Vertex) error {
		ids = append(ids, v.ID())
		return nil
	})

	if err != nil {
		return nil, err
	}

	return NewVertexIDList(ids, len(ids) < 2), nil
}

/*
eachAdjacent calls a function for the adjacent vertex of every matching edge.
*/
func (q *VertexQuery) eachAdjacent(f func(v *data.Vertex) error) error {

	v, ok := q.base.(*data.Vertex)
	if !ok {
		return &util.GraphError{Type: util.ErrInvalidQuery,
			Detail: fmt.Sprintf("Adjacent vertices require a vertex base: %v", q.base)}
	}

	it, err := q.Iterator(ReturnVertex)
	if err != nil {
		return err
	}

	for it.HasNext() {
		if err := f(it.Next().(*data.Edge).OtherVertex(v)); err != nil {
			return err
		}
	}

	return nil
}

/*
Count returns the number of relations which match this query.
*/
func (q *VertexQuery) Count() (int, error) {
	var ret int

	it, err := q.Iterator(ReturnRelation)
	if err != nil {
		return 0, err
	}

	for it.HasNext() {
		it.Next()
		ret++
	}

	return ret, nil
}

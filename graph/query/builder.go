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
Package query contains the vertex-centric query engine.

Vertex queries

A VertexQuery collects constraints on the relations of a base element
(direction, types, property predicates, an adjacent vertex, ordering and a
limit). A terminal call compiles the query into a condition tree and runs
it. Relations of resident elements are read from their adjacency store.
Relations of vertices which are not resident are fetched from a Backend
within the bounds produced by the translator.

Condition trees

A condition tree is an immutable boolean expression over relations. And
and Or nodes short-circuit; an empty Or never holds.

Bounds translation

Translate maps a compiled query onto column ranges of the relation store.
A single fitted range returns exactly the result of the query so no
filtering is required afterwards.
*/
package query

import (
	"fmt"

	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
)

/*
Order is a sort order.
*/
type Order int

/*
Known sort orders
*/
const (
	Asc Order = iota
	Desc
)

/*
String returns a string representation of a sort order.
*/
func (o Order) String() string {
	if o == Desc {
		return "DESC"
	}
	return "ASC"
}

/*
Backend fetches the relations of vertices which are not resident.
*/
type Backend interface {

	/*
	   IsResident checks if all relations of a vertex are held in memory.
	*/
	IsResident(v *data.Vertex) bool

	/*
	   Slice fetches and decodes the relations of a vertex which are stored
	   within the bounds of a slice query.
	*/
	Slice(v *data.Vertex, sq *SliceQuery) ([]data.Relation, error)

	/*
	   Remove removes a relation which was returned by a query.
	*/
	Remove(r data.Relation) error
}

/*
constraint is a property constraint as given to the builder.
*/
type constraint struct {
	key   string
	pred  Predicate
	value interface{}
}

/*
orderBy is an ordering as given to the builder.
*/
type orderBy struct {
	key   string
	order Order
}

/*
VertexQuery is a query over the relations of a base element.
*/
type VertexQuery struct {
	registry    *schema.Registry // Registry to resolve type names
	base        data.Element     // Base element
	backend     Backend          // Backend for non-resident vertices (may be nil)
	dir         schema.Direction // Direction of relations
	dirSet      bool             // Flag if the direction was given explicitly
	types       []string         // Type names
	constraints []constraint     // Property constraints
	adjacent    *data.Vertex     // Adjacent vertex
	orders      []orderBy        // Requested ordering
	limit       int              // Result limit (0 is unlimited)
	queryAll    bool             // Flag to include hidden and removed relations
	err         error            // Error while building the query
}

/*
NewVertexQuery creates a new query over the relations of a base element.
*/
func NewVertexQuery(registry *schema.Registry, base data.Element, backend Backend) *VertexQuery {
	return &VertexQuery{registry: registry, base: base, backend: backend, dir: schema.Both}
}

/*
Direction sets the direction of the queried relations.
*/
func (q *VertexQuery) Direction(dir schema.Direction) *VertexQuery {
	if dir < schema.Out || dir > schema.Both {
		q.fail("Invalid direction: %v", dir)
	}
	q.dir = dir
	q.dirSet = true
	return q
}

/*
Types restricts the result to relations of the given types.
*/
func (q *VertexQuery) Types(names ...string) *VertexQuery {
	q.types = append(q.types, names...)
	return q
}

/*
Labels restricts the result to edges of the given labels.
*/
func (q *VertexQuery) Labels(names ...string) *VertexQuery {
	return q.Types(names...)
}

/*
Keys restricts the result to properties of the given keys.
*/
func (q *VertexQuery) Keys(names ...string) *VertexQuery {
	return q.Types(names...)
}

/*
Has adds a property constraint. A nil value stands for "no value".
*/
func (q *VertexQuery) Has(key string, pred Predicate, value interface{}) *VertexQuery {
	if pred < Equal || pred > GreaterThanEqual {
		q.fail("Invalid predicate: %v", pred)
	} else if value == nil && pred != Equal && pred != NotEqual {
		q.fail("Predicate %v requires a value", pred)
	}
	q.constraints = append(q.constraints, constraint{key, pred, value})
	return q
}

/*
HasNot requires that a property key has no value.
*/
func (q *VertexQuery) HasNot(key string) *VertexQuery {
	return q.Has(key, Equal, nil)
}

/*
Interval requires that a property value is within [start, end).
*/
func (q *VertexQuery) Interval(key string, start interface{}, end interface{}) *VertexQuery {
	return q.Has(key, GreaterThanEqual, start).Has(key, LessThan, end)
}

/*
Adjacent restricts the result to edges which connect to a given vertex.
*/
func (q *VertexQuery) Adjacent(v *data.Vertex) *VertexQuery {
	if v == nil {
		q.fail("Adjacent vertex must not be nil")
	}
	q.adjacent = v
	return q
}

/*
OrderBy orders the result by the values of a property key.
*/
func (q *VertexQuery) OrderBy(key string, order Order) *VertexQuery {
	q.orders = append(q.orders, orderBy{key, order})
	return q
}

/*
Limit limits the number of results.
*/
func (q *VertexQuery) Limit(n int) *VertexQuery {
	if n < 0 {
		q.fail("Invalid limit: %v", n)
	}
	q.limit = n
	return q
}

/*
QueryAll includes hidden and removed relations in the result.
*/
func (q *VertexQuery) QueryAll() *VertexQuery {
	q.queryAll = true
	return q
}

/*
fail records the first error while building the query.
*/
func (q *VertexQuery) fail(format string, args ...interface{}) {
	if q.err == nil {
		q.err = &util.GraphError{Type: util.ErrInvalidQuery, Detail: fmt.Sprintf(format, args...)}
	}
}

/*
SortOrder is a resolved ordering.
*/
type SortOrder struct {
	Key   *schema.PropertyKey
	Order Order
}

/*
Compiled is a compiled vertex query.
*/
type Compiled struct {
	Condition   Condition             // Condition tree
	Base        data.Element          // Base element
	Return      ReturnType            // Result category
	Direction   schema.Direction      // Direction (OUT for non-vertex base elements)
	Types       []schema.RelationType // Explicit types (nil for all types)
	Constraints []*PropertyPredicate  // Property constraints
	Adjacent    *data.Vertex          // Adjacent vertex
	Orders      []*SortOrder          // Ordering
	Limit       int                   // Result limit
	QueryAll    bool                  // Flag to include hidden and removed relations
}

/*
Compile compiles this query for a result category. Returns nil if the
query cannot have any result.
*/
func (q *VertexQuery) Compile(rt ReturnType) (*Compiled, error) {

	if q.err != nil {
		return nil, q.err
	}

	dir := q.dir
	vbase, isVertex := q.base.(*data.Vertex)

	if !isVertex {

		// Relations only have outgoing relations

		if q.dirSet && dir != schema.Out {
			return nil, &util.GraphError{Type: util.ErrInvalidQuery,
				Detail: fmt.Sprintf("Direction %v is not valid for %v", dir, q.base)}
		}
		dir = schema.Out
	}

	if q.adjacent != nil && rt == ReturnProperty {
		return nil, &util.GraphError{Type: util.ErrInvalidQuery,
			Detail: "Adjacent vertex constraint requires edge results"}
	}

	c := &Compiled{Base: q.base, Return: rt, Direction: dir, Adjacent: q.adjacent,
		Limit: q.limit, QueryAll: q.queryAll}

	conds := []Condition{&ReturnCategory{rt}}

	if len(q.types) > 0 {

		for _, name := range q.types {
			t, err := q.registry.RelationType(name)
			if err != nil {
				return nil, err
			} else if t != nil && !containsType(c.Types, t) {
				c.Types = append(c.Types, t)
			}
		}

		if len(c.Types) == 0 {
			return nil, nil
		}

		conds = append(conds, &TypeMembership{c.Types})
	}

	for _, con := range q.constraints {

		t, err := q.registry.RelationType(con.key)
		if err != nil {
			return nil, err
		}

		key, ok := t.(*schema.PropertyKey)

		if !ok {

			// A missing key trivially has no value

			if con.pred == Equal && con.value == nil {
				continue
			}

			return nil, nil
		}

		value := con.value

		if value != nil {
			if v, err := key.DataType().Convert(value); err == nil {
				value = v
			}
		}

		pp := &PropertyPredicate{key, con.pred, value, q.base}
		c.Constraints = append(c.Constraints, pp)
		conds = append(conds, pp)
	}

	if dir != schema.Both {
		conds = append(conds, &DirectionCondition{q.base, dir})
	}

	if q.adjacent != nil {
		if !isVertex {
			return nil, nil
		}
		conds = append(conds, &AdjacencyCondition{vbase, q.adjacent})
	}

	if !q.queryAll {
		conds = append(conds, &Not{&HiddenOrRemoved{}})
	}

	for _, o := range q.orders {

		t, err := q.registry.RelationType(o.key)
		if err != nil {
			return nil, err
		}

		if key, ok := t.(*schema.PropertyKey); ok {
			c.Orders = append(c.Orders, &SortOrder{key, o.order})
		}
	}

	c.Condition = NewAnd(conds...)

	return c, nil
}

/*
BuildCondition compiles this query into a condition tree for a result
category. Returns nil if the query cannot have any result.
*/
func (q *VertexQuery) BuildCondition(rt ReturnType) (Condition, error) {
	c, err := q.Compile(rt)
	if c == nil {
		return nil, err
	}
	return c.Condition, nil
}

/*
containsType checks if a list of types contains a given type.
*/
func containsType(types []schema.RelationType, t schema.RelationType) bool {
	for _, ex := range types {
		if schema.SameType(ex, t) {
			return true
		}
	}
	return false
}

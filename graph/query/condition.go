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
	"bytes"
	"fmt"
	"sort"
	"strings"

	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/schema"
)

/*
Condition is a node of a condition tree. Conditions are immutable and
evaluating them has no side effects.
*/
type Condition interface {

	/*
	   Evaluate checks if a relation satisfies this condition.
	*/
	Evaluate(r data.Relation) bool

	/*
	   String returns a string representation of this condition.
	*/
	String() string

	/*
	   cost returns the evaluation cost of this condition.
	*/
	cost() int
}

// Internal nodes
// ==============

/*
And holds if all its children hold.
*/
type And struct {
	Children []Condition
}

/*
NewAnd creates a new And condition. Children are ordered by evaluation cost.
*/
func NewAnd(children ...Condition) *And {
	c := append([]Condition(nil), children...)

	sort.SliceStable(c, func(i, j int) bool {
		return c[i].cost() < c[j].cost()
	})

	return &And{c}
}

/*
Evaluate checks if a relation satisfies all children.
*/
func (a *And) Evaluate(r data.Relation) bool {
	for _, c := range a.Children {
		if !c.Evaluate(r) {
			return false
		}
	}
	return true
}

func (a *And) String() string {
	return join("AND", a.Children)
}

func (a *And) cost() int {
	return sumCost(a.Children)
}

/*
Or holds if any of its children holds. An empty Or never holds.
*/
type Or struct {
	Children []Condition
}

/*
NewOr creates a new Or condition.
*/
func NewOr(children ...Condition) *Or {
	return &Or{append([]Condition(nil), children...)}
}

/*
Evaluate checks if a relation satisfies any child.
*/
func (o *Or) Evaluate(r data.Relation) bool {
	for _, c := range o.Children {
		if c.Evaluate(r) {
			return true
		}
	}
	return false
}

func (o *Or) String() string {
	return join("OR", o.Children)
}

func (o *Or) cost() int {
	return sumCost(o.Children)
}

/*
Not negates its child.
*/
type Not struct {
	Child Condition
}

/*
Evaluate checks if a relation does not satisfy the child.
*/
func (n *Not) Evaluate(r data.Relation) bool {
	return !n.Child.Evaluate(r)
}

func (n *Not) String() string {
	return fmt.Sprintf("NOT %v", n.Child)
}

func (n *Not) cost() int {
	return n.Child.cost()
}

// Leaves
// ======

/*
TypeMembership holds if the type of a relation is one of a set of types.
*/
type TypeMembership struct {
	Types []schema.RelationType
}

/*
Evaluate checks the type of a relation.
*/
func (tm *TypeMembership) Evaluate(r data.Relation) bool {
	for _, t := range tm.Types {
		if schema.SameType(t, r.Type()) {
			return true
		}
	}
	return false
}

func (tm *TypeMembership) String() string {
	var names []string
	for _, t := range tm.Types {
		names = append(names, t.Name())
	}
	return fmt.Sprintf("type in [%v]", strings.Join(names, ", "))
}

func (tm *TypeMembership) cost() int {
	return 2
}

/*
PropertyPredicate holds if the values of a property key on a relation
satisfy a predicate. Values of implicit keys are computed relative to the
base element.
*/
type PropertyPredicate struct {
	Key       *schema.PropertyKey
	Predicate Predicate
	Value     interface{}
	Base      data.Element
}

/*
Evaluate checks the property values of a relation.
*/
func (pp *PropertyPredicate) Evaluate(r data.Relation) bool {
	return pp.Predicate.Evaluate(data.Values(r, pp.Key, pp.Base), pp.Value)
}

func (pp *PropertyPredicate) String() string {
	return fmt.Sprintf("%v %v %v", pp.Key.Name(), pp.Predicate, pp.Value)
}

func (pp *PropertyPredicate) cost() int {
	return 4
}

/*
ReturnType is the result category of a query.
*/
type ReturnType int

/*
Known result categories
*/
const (
	ReturnRelation ReturnType = iota
	ReturnEdge
	ReturnProperty
	ReturnVertex
)

var returnTypeNames = []string{"relation", "edge", "property", "vertex"}

/*
String returns a string representation of a result category.
*/
func (rt ReturnType) String() string {
	if int(rt) < len(returnTypeNames) && rt >= 0 {
		return returnTypeNames[rt]
	}
	return fmt.Sprintf("ReturnType(%d)", int(rt))
}

/*
ReturnCategory holds if a relation belongs to a result category. Vertex
results are produced from edges.
*/
type ReturnCategory struct {
	Type ReturnType
}

/*
Evaluate checks the category of a relation.
*/
func (rc *ReturnCategory) Evaluate(r data.Relation) bool {
	switch rc.Type {
	case ReturnEdge, ReturnVertex:
		_, ok := r.(*data.Edge)
		return ok
	case ReturnProperty:
		_, ok := r.(*data.Property)
		return ok
	}
	return true
}

func (rc *ReturnCategory) String() string {
	return fmt.Sprintf("returns %v", rc.Type)
}

func (rc *ReturnCategory) cost() int {
	return 0
}

/*
DirectionCondition holds if a relation has a given orientation relative to
the base element. Properties are always outgoing from their owner.
*/
type DirectionCondition struct {
	Base      data.Element
	Direction schema.Direction
}

/*
Evaluate checks the orientation of a relation.
*/
func (dc *DirectionCondition) Evaluate(r data.Relation) bool {

	if dc.Direction == schema.Both {
		return true
	}

	if e, ok := r.(*data.Edge); ok {
		v := e.Vertex(dc.Direction)
		return v == dc.Base || (v.ID() != data.NoID && v.ID() == dc.Base.ID())
	}

	return dc.Direction == schema.Out
}

func (dc *DirectionCondition) String() string {
	return fmt.Sprintf("direction %v", dc.Direction)
}

func (dc *DirectionCondition) cost() int {
	return 1
}

/*
AdjacencyCondition holds if an edge connects the base vertex with a given
vertex.
*/
type AdjacencyCondition struct {
	Base   *data.Vertex
	Vertex *data.Vertex
}

/*
Evaluate checks the other vertex of an edge.
*/
func (ac *AdjacencyCondition) Evaluate(r data.Relation) bool {
	if e, ok := r.(*data.Edge); ok {
		v := e.OtherVertex(ac.Base)
		return v == ac.Vertex || (v.ID() != data.NoID && v.ID() == ac.Vertex.ID())
	}
	return false
}

func (ac *AdjacencyCondition) String() string {
	return fmt.Sprintf("adjacent %v", ac.Vertex.ID())
}

func (ac *AdjacencyCondition) cost() int {
	return 1
}

/*
HiddenOrRemoved holds if the type of a relation is hidden or the relation
is removed.
*/
type HiddenOrRemoved struct {
}

/*
Evaluate checks if a relation is hidden or removed.
*/
func (hr *HiddenOrRemoved) Evaluate(r data.Relation) bool {
	return r.Type().IsHidden() || r.IsRemoved()
}

func (hr *HiddenOrRemoved) String() string {
	return "hidden or removed"
}

func (hr *HiddenOrRemoved) cost() int {
	return 0
}

// Helper functions
// ================

func join(op string, children []Condition) string {
	var buf bytes.Buffer

	buf.WriteString("(")
	for i, c := range children {
		if i > 0 {
			buf.WriteString(" " + op + " ")
		}
		buf.WriteString(c.String())
	}
	buf.WriteString(")")

	return buf.String()
}

func sumCost(children []Condition) int {
	var ret int
	for _, c := range children {
		ret += c.cost()
	}
	return ret
}

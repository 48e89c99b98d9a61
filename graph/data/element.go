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
	"fmt"
	"reflect"

	"devt.de/krotik/graphtx/graph/lifecycle"
	"devt.de/krotik/graphtx/graph/schema"
)

/*
HasLifecycle is implemented by all objects which have a lifecycle state.
*/
type HasLifecycle interface {

	/*
	   State returns the lifecycle state.
	*/
	State() lifecycle.State

	/*
	   Update applies a lifecycle event.
	*/
	Update(e lifecycle.Event) error

	/*
	   IsNew checks if the object was created in the current transaction.
	*/
	IsNew() bool

	/*
	   IsLoaded checks if the object was loaded and is unmodified.
	*/
	IsLoaded() bool

	/*
	   IsRemoved checks if the object was removed.
	*/
	IsRemoved() bool

	/*
	   IsModified checks if the object has pending changes.
	*/
	IsModified() bool
}

/*
HasAdjacency is implemented by all objects which hold relations.
*/
type HasAdjacency interface {

	/*
	   Adjacency returns the adjacency store. The returned store must not be
	   modified directly.
	*/
	Adjacency() *Adjacency
}

/*
Element is a vertex, an edge or a property.
*/
type Element interface {
	HasLifecycle
	HasAdjacency

	/*
	   ID returns the id of this element or NoID.
	*/
	ID() int64

	/*
	   SetID assigns the id of this element.
	*/
	SetID(id int64)

	/*
	   Label returns the vertex label name or the relation type name.
	*/
	Label() string

	/*
	   PathCount returns the number of traversal paths leading to this element.
	*/
	PathCount() int64

	/*
	   String returns a string representation of this element.
	*/
	String() string

	adjacencyForWrite() *Adjacency
}

/*
Relation is an edge or a property.
*/
type Relation interface {
	Element

	/*
	   Type returns the relation type.
	*/
	Type() schema.RelationType

	/*
	   Arity returns the number of elements this relation connects.
	*/
	Arity() int

	/*
	   Element returns the element at a given position (0 is the out vertex
	   or owner, 1 is the in vertex).
	*/
	Element(pos int) Element

	/*
	   Equals checks if this relation is structurally equal to another.
	*/
	Equals(other Relation) bool

	/*
	   directions returns the directions in which this relation is stored on
	   a given element.
	*/
	directions(e Element) []schema.Direction
}

// Element base
// ============

/*
element is the common part of all elements.
*/
type element struct {
	id        int64
	state     lifecycle.State
	adj       *Adjacency
	pathCount int64
}

/*
newElement creates a new element base.
*/
func newElement(id int64) element {
	return element{id, lifecycle.Undefined, EmptyAdjacency, 0}
}

/*
ID returns the id of this element or NoID.
*/
func (el *element) ID() int64 {
	return el.id
}

/*
SetID assigns the id of this element.
*/
func (el *element) SetID(id int64) {
	el.id = id
}

/*
State returns the lifecycle state.
*/
func (el *element) State() lifecycle.State {
	return el.state
}

/*
Update applies a lifecycle event.
*/
func (el *element) Update(e lifecycle.Event) error {
	s, err := lifecycle.Update(el.state, e)
	if err == nil {
		el.state = s
	}
	return err
}

/*
IsNew checks if the element was created in the current transaction.
*/
func (el *element) IsNew() bool {
	return lifecycle.IsNew(el.state)
}

/*
IsLoaded checks if the element was loaded and is unmodified.
*/
func (el *element) IsLoaded() bool {
	return lifecycle.IsLoaded(el.state)
}

/*
IsRemoved checks if the element was removed.
*/
func (el *element) IsRemoved() bool {
	return lifecycle.IsRemoved(el.state)
}

/*
IsModified checks if the element has pending changes.
*/
func (el *element) IsModified() bool {
	return lifecycle.IsModified(el.state)
}

/*
Adjacency returns the adjacency store.
*/
func (el *element) Adjacency() *Adjacency {
	return el.adj
}

/*
adjacencyForWrite returns the adjacency store and allocates it if necessary.
*/
func (el *element) adjacencyForWrite() *Adjacency {
	if el.adj == EmptyAdjacency {
		el.adj = newAdjacency()
	}
	return el.adj
}

/*
PathCount returns the number of traversal paths leading to this element.
*/
func (el *element) PathCount() int64 {
	return el.pathCount
}

/*
SetPathCount sets the number of traversal paths leading to this element.
*/
func (el *element) SetPathCount(count int64) {
	el.pathCount = count
}

/*
IncPathCount adds to the number of traversal paths leading to this element.
*/
func (el *element) IncPathCount(count int64) {
	el.pathCount += count
}

// Vertex
// ======

/*
Vertex is a vertex of the graph.
*/
type Vertex struct {
	element
	label   *schema.VertexLabel                 // Label of this vertex (nil for the default label)
	resolve func() (*schema.VertexLabel, error) // Pending label lookup
}

/*
NewVertex creates a vertex which was created in the current transaction.
*/
func NewVertex(id int64, label *schema.VertexLabel) *Vertex {
	v := &Vertex{newElement(id), label, nil}
	v.Update(lifecycle.Created)
	return v
}

/*
LoadVertex creates a vertex which represents stored data.
*/
func LoadVertex(id int64, label *schema.VertexLabel) *Vertex {
	v := &Vertex{newElement(id), label, nil}
	v.Update(lifecycle.LoadedEvent)
	return v
}

/*
LoadVertexRef creates a loaded vertex whose label is looked up by a given
function when it is first needed.
*/
func LoadVertexRef(id int64, resolve func() (*schema.VertexLabel, error)) *Vertex {
	v := LoadVertex(id, nil)
	v.resolve = resolve
	return v
}

/*
ResolveLabel runs a pending label lookup. A failed lookup stays pending.
*/
func (v *Vertex) ResolveLabel() error {
	if v.resolve != nil {
		label, err := v.resolve()
		if err != nil {
			return err
		}
		v.label, v.resolve = label, nil
	}
	return nil
}

/*
VertexLabel returns the label of this vertex (nil for the default label).
Use ResolveLabel to see errors of a pending label lookup.
*/
func (v *Vertex) VertexLabel() *schema.VertexLabel {
	v.ResolveLabel()
	return v.label
}

/*
SetVertexLabel sets the label of a loaded vertex.
*/
func (v *Vertex) SetVertexLabel(label *schema.VertexLabel) {
	v.label, v.resolve = label, nil
}

/*
Label returns the label name of this vertex.
*/
func (v *Vertex) Label() string {
	v.ResolveLabel()

	if v.label == nil {
		return DefaultVertexLabel
	}
	return v.label.Name()
}

/*
String returns a string representation of this vertex.
*/
func (v *Vertex) String() string {
	return fmt.Sprintf("Vertex %v (%v %v)", v.id, v.Label(), v.state)
}

// Edge
// ====

/*
Edge is a directed edge between two vertices.
*/
type Edge struct {
	element
	label *schema.EdgeLabel
	out   *Vertex
	in    *Vertex
}

/*
NewEdge creates an edge which was created in the current transaction.
*/
func NewEdge(label *schema.EdgeLabel, out *Vertex, in *Vertex) *Edge {
	e := &Edge{newElement(NoID), label, out, in}
	e.Update(lifecycle.Created)
	return e
}

/*
LoadEdge creates an edge which represents stored data.
*/
func LoadEdge(id int64, label *schema.EdgeLabel, out *Vertex, in *Vertex) *Edge {
	e := &Edge{newElement(id), label, out, in}
	e.Update(lifecycle.LoadedEvent)
	return e
}

/*
Type returns the edge label.
*/
func (e *Edge) Type() schema.RelationType {
	return e.label
}

/*
EdgeLabel returns the edge label.
*/
func (e *Edge) EdgeLabel() *schema.EdgeLabel {
	return e.label
}

/*
Label returns the name of the edge label.
*/
func (e *Edge) Label() string {
	return e.label.Name()
}

/*
Arity returns 2.
*/
func (e *Edge) Arity() int {
	return 2
}

/*
Element returns the out vertex (0) or the in vertex (1).
*/
func (e *Edge) Element(pos int) Element {
	if pos == 0 {
		return e.out
	}
	return e.in
}

/*
Vertex returns the vertex of this edge in a given direction.
*/
func (e *Edge) Vertex(dir schema.Direction) *Vertex {
	if dir == schema.In {
		return e.in
	}
	return e.out
}

/*
OtherVertex returns the vertex on the other side of a given vertex.
*/
func (e *Edge) OtherVertex(v *Vertex) *Vertex {
	if sameElement(e.out, v) {
		return e.in
	}
	return e.out
}

/*
Equals checks if this edge connects the same vertices with the same label
as another edge. Edges which both have an id are equal if their ids are equal.
*/
func (e *Edge) Equals(other Relation) bool {
	o, ok := other.(*Edge)

	if !ok || !schema.SameType(e.label, o.label) {
		return false
	} else if e.id != NoID && o.id != NoID {
		return e.id == o.id
	}

	return sameElement(e.out, o.out) && sameElement(e.in, o.in)
}

/*
directions returns the directions in which this edge is stored on a given
element. Unidirected edges are only stored on the out vertex.
*/
func (e *Edge) directions(el Element) []schema.Direction {
	var dirs []schema.Direction

	if sameElement(e.out, el) {
		dirs = append(dirs, schema.Out)
	}
	if !e.label.IsUnidirected() && sameElement(e.in, el) {
		dirs = append(dirs, schema.In)
	}

	return dirs
}

/*
String returns a string representation of this edge.
*/
func (e *Edge) String() string {
	return fmt.Sprintf("Edge %v (%v -%v-> %v %v)", e.id, e.out.id, e.label.Name(), e.in.id, e.state)
}

// Property
// ========

/*
Property is a value of a property key attached to an owner element.
*/
type Property struct {
	element
	key   *schema.PropertyKey
	owner Element
	value interface{}
}

/*
NewProperty creates a property which was created in the current transaction.
*/
func NewProperty(key *schema.PropertyKey, owner Element, value interface{}) *Property {
	p := &Property{newElement(NoID), key, owner, value}
	p.Update(lifecycle.Created)
	return p
}

/*
LoadProperty creates a property which represents stored data.
*/
func LoadProperty(id int64, key *schema.PropertyKey, owner Element, value interface{}) *Property {
	p := &Property{newElement(id), key, owner, value}
	p.Update(lifecycle.LoadedEvent)
	return p
}

/*
Type returns the property key.
*/
func (p *Property) Type() schema.RelationType {
	return p.key
}

/*
PropertyKey returns the property key.
*/
func (p *Property) PropertyKey() *schema.PropertyKey {
	return p.key
}

/*
Label returns the name of the property key.
*/
func (p *Property) Label() string {
	return p.key.Name()
}

/*
Value returns the value of this property.
*/
func (p *Property) Value() interface{} {
	return p.value
}

/*
Owner returns the element this property is attached to.
*/
func (p *Property) Owner() Element {
	return p.owner
}

/*
Arity returns 1.
*/
func (p *Property) Arity() int {
	return 1
}

/*
Element returns the owner of this property.
*/
func (p *Property) Element(pos int) Element {
	return p.owner
}

/*
Equals checks if this property has the same key, owner and value as another
property. Properties which both have an id are equal if their ids are equal.
*/
func (p *Property) Equals(other Relation) bool {
	o, ok := other.(*Property)

	if !ok || !schema.SameType(p.key, o.key) {
		return false
	} else if p.id != NoID && o.id != NoID {
		return p.id == o.id
	}

	return sameElement(p.owner, o.owner) && reflect.DeepEqual(p.value, o.value)
}

/*
directions returns OUT for the owner of this property.
*/
func (p *Property) directions(el Element) []schema.Direction {
	if sameElement(p.owner, el) {
		return []schema.Direction{schema.Out}
	}
	return nil
}

/*
String returns a string representation of this property.
*/
func (p *Property) String() string {
	return fmt.Sprintf("Property %v (%v=%v %v)", p.id, p.key.Name(), p.value, p.state)
}

/*
sameElement checks if two elements are the same element. Elements are the
same if they are identical or if they have the same assigned id.
*/
func sameElement(e1 Element, e2 Element) bool {
	if e1 == nil || e2 == nil {
		return e1 == e2
	} else if e1 == e2 {
		return true
	}

	_, isV1 := e1.(*Vertex)
	_, isV2 := e2.(*Vertex)

	return isV1 && isV2 && e1.ID() != NoID && e1.ID() == e2.ID()
}

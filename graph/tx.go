/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"errors"
	"fmt"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/graphtx/config"
	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/graphstorage"
	"devt.de/krotik/graphtx/graph/query"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
	"github.com/google/uuid"
)

/*
Tx is a graph transaction. A transaction must only be used by a single
goroutine.
*/
type Tx struct {
	id       string                    // Unique transaction id
	gm       *Manager                  // Graph manager which created this transaction
	registry *schema.Registry          // Schema registry of this transaction
	store    graphstorage.KCVStore     // Relation store
	slices   *datautil.MapCache        // Cache for read row slices
	vertices map[int64]*data.Vertex    // All vertices of this transaction by id
	resident map[int64]bool            // Vertices whose stored relations are in memory
	loaded   map[int64]data.Relation   // Relations read from the store by id
	stored   map[int64]*storedRelation // Stored form of loaded edges by id
	closed   bool                      // Flag if this transaction was committed or rolled back
}

/*
storedRelation is the stored form of a loaded relation.
*/
type storedRelation struct {
	sortValues []interface{} // Sort values of an edge
	value      []byte        // Encoded column value
}

/*
NewTx creates a new transaction.
*/
func (gm *Manager) NewTx() *Tx {
	return &Tx{uuid.New().String(), gm, gm.NewRegistry(), gm.gs.Store(),
		datautil.NewMapCache(uint64(config.Int(config.TxVertexCacheSize)),
			config.Int(config.TxVertexCacheMaxAge)),
		make(map[int64]*data.Vertex), make(map[int64]bool),
		make(map[int64]data.Relation), make(map[int64]*storedRelation), false}
}

/*
ID returns the unique id of this transaction.
*/
func (tx *Tx) ID() string {
	return tx.id
}

/*
Registry returns the schema registry of this transaction.
*/
func (tx *Tx) Registry() *schema.Registry {
	return tx.registry
}

/*
IsClosed checks if this transaction was committed or rolled back.
*/
func (tx *Tx) IsClosed() bool {
	return tx.closed
}

/*
String returns a string representation of this transaction.
*/
func (tx *Tx) String() string {
	return fmt.Sprintf("Transaction %v - Vertices: %v Resident: %v Loaded relations: %v",
		tx.id, len(tx.vertices), len(tx.resident), len(tx.loaded))
}

/*
checkOpen returns an error if this transaction is closed.
*/
func (tx *Tx) checkOpen() error {
	if tx.closed {
		return &util.GraphError{Type: util.ErrClosed, Detail: tx.id}
	}
	return nil
}

// Vertices
// ========

/*
AddVertex creates a new vertex with a given label. An empty label is the
default vertex label.
*/
func (tx *Tx) AddVertex(label string) (*data.Vertex, error) {

	if err := tx.checkOpen(); err != nil {
		return nil, err
	}

	if label == "" {
		label = data.DefaultVertexLabel
	}

	vl, err := tx.registry.GetOrCreateVertexLabel(label)
	if err != nil {
		return nil, err
	}

	id, err := tx.gm.alloc.NextVertexID(vl.IsPartitioned())
	if err != nil {
		return nil, err
	}

	v := data.NewVertex(id, vl)

	if _, err := data.AddRelation(v, data.NewProperty(schema.VertexLabelKey, v, vl.Name())); err != nil {
		return nil, err
	}

	tx.vertices[id] = v
	tx.gm.metrics.Mutations.WithLabelValues(OpAddVertex).Inc()

	return v, tx.event(EventVertexCreated, v)
}

/*
GetVertex returns a vertex of this transaction. The vertex is loaded from
the store if necessary. Returns nil if the vertex does not exist or was
removed. Representatives of partitioned vertices resolve to the canonical
vertex.
*/
func (tx *Tx) GetVertex(id int64) (*data.Vertex, error) {

	if err := tx.checkOpen(); err != nil {
		return nil, err
	}

	v, err := tx.lookupVertex(tx.gm.im.CanonicalVertexID(id))

	if v != nil && v.IsRemoved() {
		v = nil
	}

	return v, err
}

/*
RemoveVertex removes a vertex and all its relations.
*/
func (tx *Tx) RemoveVertex(v *data.Vertex) error {

	if err := tx.checkVertex(v); err != nil {
		return err
	} else if v.IsRemoved() {
		return &util.GraphError{Type: util.ErrInvalidStateTransition,
			Detail: fmt.Sprintf("%v was already removed", v)}
	}

	if err := tx.makeResident(v); err != nil {
		return err
	}

	if err := tx.event(EventVertexRemoved, v); err != nil {
		return err
	}

	if err := data.RemoveVertex(v); err != nil {
		return err
	}

	tx.gm.metrics.Mutations.WithLabelValues(OpRemoveVertex).Inc()

	return nil
}

/*
lookupVertex returns the vertex object of a canonical id. Returns nil if
the vertex has no stored label.
*/
func (tx *Tx) lookupVertex(id int64) (*data.Vertex, error) {

	if v, ok := tx.vertices[id]; ok {
		if err := v.ResolveLabel(); err != nil {
			return nil, err
		}
		return v, nil
	}

	label, err := tx.readVertexLabel(id)
	if err != nil || label == "" {
		return nil, err
	}

	vl, err := tx.registry.GetOrCreateVertexLabel(label)
	if err != nil {
		return nil, err
	}

	v := data.LoadVertex(id, vl)
	tx.vertices[id] = v

	return v, nil
}

/*
vertexRef returns a vertex of this transaction. The label of a vertex which
was not read before is only read when it is needed.
*/
func (tx *Tx) vertexRef(id int64) *data.Vertex {

	if v, ok := tx.vertices[id]; ok {
		return v
	}

	v := data.LoadVertexRef(id, func() (*schema.VertexLabel, error) {
		label, err := tx.readVertexLabel(id)
		if err != nil || label == "" {
			return nil, err
		}
		return tx.registry.GetOrCreateVertexLabel(label)
	})

	tx.vertices[id] = v

	return v
}

/*
readVertexLabel reads the stored label of a vertex. Returns an empty string
if the vertex has no stored label.
*/
func (tx *Tx) readVertexLabel(id int64) (string, error) {
	prefix := graphstorage.TypePrefix(graphstorage.CategoryProperty, schema.VertexLabelKey.ID())

	row := tx.gm.im.RelationVertexKey(id, tx.gm.im.RelationPartition(id, data.NoID))

	entries, err := tx.getSlice(graphstorage.VertexKey(row),
		&query.SliceQuery{Start: prefix, End: graphstorage.Successor(prefix), Limit: 1})

	if err != nil || len(entries) == 0 {
		return "", err
	}

	_, rv, err := graphstorage.DecodeEntry(entries[0])
	if err != nil {
		return "", err
	}

	return fmt.Sprint(rv.Value), nil
}

/*
checkVertex checks that a vertex belongs to this transaction.
*/
func (tx *Tx) checkVertex(v *data.Vertex) error {

	if err := tx.checkOpen(); err != nil {
		return err
	}

	if v == nil || tx.vertices[v.ID()] != v {
		return &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("%v does not belong to transaction %v", v, tx.id)}
	}

	return nil
}

// Relations
// =========

/*
AddEdge adds an edge between two vertices. If an equal edge exists it is
returned instead.
*/
func (tx *Tx) AddEdge(label string, out *data.Vertex, in *data.Vertex) (*data.Edge, error) {

	if err := tx.checkVertex(out); err != nil {
		return nil, err
	} else if err := tx.checkVertex(in); err != nil {
		return nil, err
	}

	el, err := tx.registry.GetOrCreateEdgeLabel(label)
	if err != nil {
		return nil, err
	}

	r, err := tx.addRelation(out, data.NewEdge(el, out, in))
	if err != nil {
		return nil, err
	}

	return r.(*data.Edge), nil
}

/*
AddProperty adds a property value to a vertex or an edge.
*/
func (tx *Tx) AddProperty(el data.Element, key string, value interface{}) (*data.Property, error) {

	pk, v, err := tx.propertyValue(key, value)
	if err != nil {
		return nil, err
	}

	r, err := tx.addRelation(el, data.NewProperty(pk, el, v))
	if err != nil {
		return nil, err
	}

	return r.(*data.Property), nil
}

/*
SetProperty sets the value of a property of a vertex or an edge. All other
values of the property key are removed. Returns the new property.
*/
func (tx *Tx) SetProperty(el data.Element, key string, value interface{}) (*data.Property, error) {

	pk, v, err := tx.propertyValue(key, value)
	if err != nil {
		return nil, err
	} else if err := tx.prepare(el); err != nil {
		return nil, err
	}

	old := data.Values(el, pk, nil)

	r, err := data.SetRelation(el, data.NewProperty(pk, el, v))
	if err != nil {
		tx.countViolation(err)
		return nil, err
	}

	tx.gm.metrics.Mutations.WithLabelValues(OpSetProperty).Inc()

	return r.(*data.Property), tx.event(EventPropertySet, r, old)
}

/*
RemoveProperty removes all values of a property key from a vertex or an
edge. Returns the removed values.
*/
func (tx *Tx) RemoveProperty(el data.Element, key string) ([]interface{}, error) {
	var ret []interface{}

	if err := tx.prepare(el); err != nil {
		return nil, err
	}

	for _, r := range el.Adjacency().Live(schema.Out, key) {
		if p, ok := r.(*data.Property); ok {

			if err := tx.RemoveRelation(p); err != nil {
				return ret, err
			}

			ret = append(ret, p.Value())
		}
	}

	return ret, nil
}

/*
RemoveRelation removes an edge or a property.
*/
func (tx *Tx) RemoveRelation(r data.Relation) error {

	if err := tx.checkOpen(); err != nil {
		return err
	}

	for i := 0; i < r.Arity(); i++ {
		if err := tx.prepare(r.Element(i)); err != nil {
			return err
		}
	}

	if err := data.RemoveRelation(r); err != nil {
		return err
	}

	tx.gm.metrics.Mutations.WithLabelValues(OpRemoveRelation).Inc()

	return tx.event(EventRelationRemoved, r)
}

/*
addRelation adds a new relation to an element.
*/
func (tx *Tx) addRelation(el data.Element, r data.Relation) (data.Relation, error) {

	if err := tx.checkOpen(); err != nil {
		return nil, err
	}

	for i := 0; i < r.Arity(); i++ {
		if err := tx.prepare(r.Element(i)); err != nil {
			return nil, err
		}
	}

	res, err := data.AddRelation(el, r)
	if err != nil {
		tx.countViolation(err)
		return nil, err
	}

	tx.gm.metrics.Mutations.WithLabelValues(OpAddRelation).Inc()

	return res, tx.event(EventRelationAdded, res)
}

/*
propertyValue resolves a property key and converts a value to its data type.
*/
func (tx *Tx) propertyValue(key string, value interface{}) (*schema.PropertyKey, interface{}, error) {

	if schema.IsSystemName(key) {
		return nil, nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Cannot modify system property %v", key)}
	}

	pk, err := tx.registry.GetOrCreatePropertyKey(key)
	if err != nil {
		return nil, nil, err
	}

	v, err := pk.DataType().Convert(value)

	return pk, v, err
}

/*
prepare makes sure that all stored relations of an element are in memory
before it is modified. The endpoints of edges are prepared.
*/
func (tx *Tx) prepare(el data.Element) error {

	switch e := el.(type) {

	case *data.Vertex:
		if err := tx.checkVertex(e); err != nil {
			return err
		}
		return tx.makeResident(e)

	case *data.Edge:
		if err := tx.prepare(e.Vertex(schema.Out)); err != nil {
			return err
		}
		return tx.prepare(e.Vertex(schema.In))

	case *data.Property:
		return tx.prepare(e.Owner())
	}

	return nil
}

/*
makeResident reads all stored relations of a vertex into its adjacency store.
*/
func (tx *Tx) makeResident(v *data.Vertex) error {

	if v.IsNew() || tx.resident[v.ID()] {
		return nil
	}

	rels, err := tx.Slice(v, &query.SliceQuery{Start: []byte{}})
	if err != nil {
		return err
	}

	for _, r := range rels {
		if _, err := data.AddRelation(v, r); err != nil {
			return err
		}
	}

	tx.resident[v.ID()] = true

	return nil
}

/*
countViolation counts multiplicity violations.
*/
func (tx *Tx) countViolation(err error) {
	if errors.Is(err, util.ErrMultiplicityViolation) {
		tx.gm.metrics.MultiplicityViolations.Inc()
	}
}

/*
event sends a graph event to all rules. An event which was handled by a
rule is not an error.
*/
func (tx *Tx) event(event int, ed ...interface{}) error {
	if err := tx.gm.gr.graphEvent(tx, event, ed...); err != nil && err != ErrEventHandled {
		return err
	}
	return nil
}

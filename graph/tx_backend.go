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
	"bytes"
	"fmt"
	"sort"

	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/graphstorage"
	"devt.de/krotik/graphtx/graph/query"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
)

// Queries
// =======

/*
Query returns a new vertex-centric query on a vertex or an edge of this
transaction.
*/
func (tx *Tx) Query(el data.Element) *query.VertexQuery {
	return query.NewVertexQuery(tx.registry, el, tx)
}

/*
IsResident checks if all relations of a vertex are held in memory.
*/
func (tx *Tx) IsResident(v *data.Vertex) bool {
	res := v.IsNew() || tx.resident[v.ID()]

	if res {
		tx.gm.metrics.Queries.WithLabelValues(PathMemory).Inc()
	} else {
		tx.gm.metrics.Queries.WithLabelValues(PathBackend).Inc()
	}

	return res
}

/*
Slice reads and decodes the stored relations of a vertex within the bounds
of a slice query. Each relation is returned once.
*/
func (tx *Tx) Slice(v *data.Vertex, sq *query.SliceQuery) ([]data.Relation, error) {
	var ret []data.Relation
	var entries []graphstorage.Entry

	if err := tx.checkOpen(); err != nil {
		return nil, err
	}

	rows := []int64{v.ID()}

	if tx.gm.im.IsPartitionedVertex(v.ID()) {
		rows, _ = tx.gm.im.PartitionedVertexRepresentatives(v.ID())
	}

	for _, row := range rows {
		res, err := tx.getSlice(graphstorage.VertexKey(row), sq)
		if err != nil {
			return nil, err
		}
		entries = append(entries, res...)
	}

	// Rows of partitioned vertices are merged into a single column order

	if len(rows) > 1 {
		sort.SliceStable(entries, func(i, j int) bool {
			return bytes.Compare(entries[i].Column, entries[j].Column) < 0
		})

		if sq.Limit > 0 && len(entries) > sq.Limit {
			entries = entries[:sq.Limit]
		}
	}

	seen := make(map[data.Relation]bool)

	for _, e := range entries {
		r, err := tx.decode(v, e)
		if err != nil {
			return nil, err
		}

		if !seen[r] {
			seen[r] = true
			ret = append(ret, r)
		}
	}

	return ret, nil
}

/*
Remove removes a relation which was returned by a query.
*/
func (tx *Tx) Remove(r data.Relation) error {
	return tx.RemoveRelation(r)
}

/*
getSlice reads a slice of a row. Results are cached for the lifetime of the
transaction.
*/
func (tx *Tx) getSlice(key []byte, sq *query.SliceQuery) ([]graphstorage.Entry, error) {
	ck := fmt.Sprintf("%x/%x/%x/%v/%v", key, sq.Start, sq.End, sq.End == nil, sq.Limit)

	if res, ok := tx.slices.Get(ck); ok {
		return res.([]graphstorage.Entry), nil
	}

	res, err := tx.store.GetSlice(key, sq.Start, sq.End, sq.Limit)

	if err == nil {
		tx.slices.Put(ck, res)
	}

	return res, err
}

/*
decode decodes a stored entry of a vertex row. Relations which were read
before are returned as the same object.
*/
func (tx *Tx) decode(v *data.Vertex, e graphstorage.Entry) (data.Relation, error) {

	rc, rv, err := graphstorage.DecodeEntry(e)
	if err != nil {
		return nil, err
	}

	if r, ok := tx.loaded[rc.RelationID]; ok {
		return r, nil
	}

	rt, err := tx.registry.RelationTypeByID(rc.TypeID)

	if err == nil && rt == nil {
		err = &util.GraphError{Type: util.ErrUnresolvedType,
			Detail: fmt.Sprint("Unknown relation type id ", rc.TypeID)}
	}

	if err != nil {
		return nil, err
	}

	var r data.Relation

	if !rc.IsEdge() {

		pk, ok := rt.(*schema.PropertyKey)
		if !ok {
			return nil, &util.GraphError{Type: util.ErrReading,
				Detail: fmt.Sprintf("%v is not a property key", rt.Name())}
		}

		r = data.LoadProperty(rc.RelationID, pk, v, rv.Value)

	} else {

		el, ok := rt.(*schema.EdgeLabel)
		if !ok {
			return nil, &util.GraphError{Type: util.ErrReading,
				Detail: fmt.Sprintf("%v is not an edge label", rt.Name())}
		}

		other := tx.vertexRef(tx.gm.im.CanonicalVertexID(rc.OtherVertexID))

		var edge *data.Edge

		if rc.Category == graphstorage.CategoryEdgeOut {
			edge = data.LoadEdge(rc.RelationID, el, v, other)
		} else {
			edge = data.LoadEdge(rc.RelationID, el, other, v)
		}

		// Edge properties are stored in the column value

		keyIDs := make([]int64, 0, len(rv.Properties))
		for id := range rv.Properties {
			keyIDs = append(keyIDs, id)
		}
		sort.Slice(keyIDs, func(i, j int) bool { return keyIDs[i] < keyIDs[j] })

		for _, id := range keyIDs {
			kt, err := tx.registry.RelationTypeByID(id)
			if err != nil {
				return nil, err
			}

			if pk, ok := kt.(*schema.PropertyKey); ok {
				if _, err := data.AddRelation(edge, data.LoadProperty(data.NoID, pk, edge, rv.Properties[id])); err != nil {
					return nil, err
				}
			}
		}

		tx.stored[rc.RelationID] = &storedRelation{rc.SortValues, e.Value}
		r = edge
	}

	if _, ok := tx.stored[rc.RelationID]; !ok {
		tx.stored[rc.RelationID] = &storedRelation{nil, e.Value}
	}

	tx.loaded[rc.RelationID] = r

	return r, nil
}

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
	"time"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/graphstorage"
	"devt.de/krotik/graphtx/graph/schema"
)

// Commit
// ======

/*
rowMutation holds the changes of a single row.
*/
type rowMutation struct {
	key       []byte               // Row key
	additions []graphstorage.Entry // Columns to add
	deletions [][]byte             // Columns to delete
	originals []graphstorage.Entry // Stored entries of deleted columns
}

/*
Rollback discards all changes of this transaction.
*/
func (tx *Tx) Rollback() error {

	if err := tx.checkOpen(); err != nil {
		return err
	}

	tx.closed = true

	return nil
}

/*
Commit writes all changes of this transaction to the store. New relations
get their ids. Rows which were already written are restored if a write
fails. The transaction is closed afterwards in any case.
*/
func (tx *Tx) Commit() error {
	var written []*rowMutation

	if err := tx.checkOpen(); err != nil {
		return err
	}

	gm := tx.gm

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	tx.closed = true

	start := time.Now()
	defer func() {
		gm.metrics.CommitDuration.Observe(time.Since(start).Seconds())
	}()

	muts, err := tx.mutations()

	if err == nil {
		errs := errorutil.NewCompositeError()

		for _, m := range muts {
			if err := tx.store.Mutate(m.key, m.additions, m.deletions); err != nil {
				errs.Add(err)
				break
			}
			written = append(written, m)
		}

		if errs.HasErrors() {

			// Undo the rows which were already written

			for _, m := range written {
				var cols [][]byte

				for _, e := range m.additions {
					cols = append(cols, e.Column)
				}

				if err := tx.store.Mutate(m.key, m.originals, cols); err != nil {
					errs.Add(err)
				}
			}

			if err := gm.gs.RollbackMain(); err != nil {
				errs.Add(err)
			}

			err = errs
		}
	}

	if err == nil {
		gm.storeCounts()

		if err = gm.gs.FlushMain(); err == nil {
			err = gm.gs.FlushAll()
		}
	}

	if err != nil {
		gm.metrics.Commits.WithLabelValues(ResultFailed).Inc()
		return err
	}

	var cols int
	for _, m := range muts {
		cols += len(m.additions) + len(m.deletions)
	}

	gm.metrics.Commits.WithLabelValues(ResultOk).Inc()
	gm.logger.LogDebug(fmt.Sprintf("Committed transaction %v: %v rows %v columns",
		tx.id, len(muts), cols))

	return tx.event(EventCommit, tx.id, cols)
}

/*
mutations collects the row mutations of all changed relations in the order
of the row keys.
*/
func (tx *Tx) mutations() ([]*rowMutation, error) {
	var ids []int64

	rows := make(map[string]*rowMutation)
	done := make(map[data.Relation]bool)

	for id := range tx.vertices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	row := func(key []byte) *rowMutation {
		m, ok := rows[string(key)]
		if !ok {
			m = &rowMutation{key: key}
			rows[string(key)] = m
		}
		return m
	}

	for _, id := range ids {
		adj := tx.vertices[id].Adjacency()

		for _, dir := range schema.ProperDirections {
			for _, t := range adj.Types(dir) {
				for _, r := range adj.Relations(dir, t.Name()) {

					if done[r] {
						continue
					}
					done[r] = true

					if err := tx.relationMutations(r, row); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	ret := make([]*rowMutation, 0, len(rows))
	for _, m := range rows {
		if len(m.additions) > 0 || len(m.deletions) > 0 {
			ret = append(ret, m)
		}
	}

	sort.Slice(ret, func(i, j int) bool {
		return bytes.Compare(ret[i].key, ret[j].key) < 0
	})

	return ret, nil
}

/*
relationMutations adds the column changes of a single relation.
*/
func (tx *Tx) relationMutations(r data.Relation, row func([]byte) *rowMutation) error {

	deleteStored := func() error {
		sr, ok := tx.stored[r.ID()]
		if !ok {
			return nil
		}

		cols, err := tx.columns(r, sr.sortValues)
		for _, c := range cols {
			m := row(c.key)
			m.deletions = append(m.deletions, c.col)
			m.originals = append(m.originals, graphstorage.Entry{Column: c.col, Value: sr.value})
		}

		return err
	}

	writeNew := func() error {
		var sortValues []interface{}

		if e, ok := r.(*data.Edge); ok {
			sortValues = tx.sortValues(e)
		}

		cols, err := tx.columns(r, sortValues)
		if err != nil {
			return err
		}

		rv := &graphstorage.RelationValue{}

		if p, ok := r.(*data.Property); ok {
			rv.Value = p.Value()
		} else {
			rv.Properties = make(map[int64]interface{})
			for _, p := range data.Properties(r) {
				rv.Properties[p.Type().ID()] = p.Value()
			}
		}

		for _, c := range cols {
			entry, err := graphstorage.EncodeRelation(c.rc, rv)
			if err != nil {
				return err
			}

			m := row(c.key)
			m.additions = append(m.additions, entry)
		}

		return nil
	}

	if _, ok := r.(*data.Property); ok {
		if _, ok := r.Element(0).(*data.Vertex); !ok {
			return nil
		}
	}

	switch {

	case r.IsRemoved():
		if r.ID() != data.NoID {
			return deleteStored()
		}

	case r.IsNew():
		var id int64
		var err error

		if e, ok := r.(*data.Edge); ok {
			id, err = tx.gm.alloc.NextRelationID(e.Vertex(schema.Out).ID(), e.Vertex(schema.In).ID())
		} else {
			id, err = tx.gm.alloc.NextRelationID(r.Element(0).ID(), data.NoID)
		}

		if err != nil {
			return err
		}

		r.SetID(id)

		return writeNew()

	case r.IsModified():
		if err := deleteStored(); err != nil {
			return err
		}
		return writeNew()
	}

	return nil
}

/*
rowColumn is a column of a row.
*/
type rowColumn struct {
	key []byte                       // Row key
	rc  *graphstorage.RelationColumn // Decoded column
	col []byte                       // Column
}

/*
columns returns the columns of a relation on the rows of its endpoints.
*/
func (tx *Tx) columns(r data.Relation, sortValues []interface{}) ([]rowColumn, error) {
	var ret []rowColumn

	im := tx.gm.im

	add := func(vertex int64, partition uint64, rc *graphstorage.RelationColumn) error {
		col, err := rc.Column()
		if err == nil {
			ret = append(ret, rowColumn{graphstorage.VertexKey(im.RelationVertexKey(vertex, partition)), rc, col})
		}
		return err
	}

	switch rel := r.(type) {

	case *data.Property:
		owner := rel.Owner().ID()

		return ret, add(owner, im.RelationPartition(owner, data.NoID), &graphstorage.RelationColumn{
			Category: graphstorage.CategoryProperty, TypeID: rel.Type().ID(), RelationID: rel.ID()})

	case *data.Edge:
		out, in := rel.Vertex(schema.Out).ID(), rel.Vertex(schema.In).ID()
		partition := im.RelationPartition(out, in)

		err := add(out, partition, &graphstorage.RelationColumn{
			Category: graphstorage.CategoryEdgeOut, TypeID: rel.Type().ID(),
			SortValues: sortValues, OtherVertexID: in, RelationID: rel.ID()})

		if err == nil && !rel.EdgeLabel().IsUnidirected() {
			err = add(in, partition, &graphstorage.RelationColumn{
				Category: graphstorage.CategoryEdgeIn, TypeID: rel.Type().ID(),
				SortValues: sortValues, OtherVertexID: out, RelationID: rel.ID()})
		}

		return ret, err
	}

	return ret, nil
}

/*
sortValues returns the values of the sort key of an edge in their stored
form. Values which cannot be stored in a column are absent.
*/
func (tx *Tx) sortValues(e *data.Edge) []interface{} {
	var ret []interface{}

	for _, name := range e.EdgeLabel().SortKey() {
		var sv interface{}

		rt, _ := tx.registry.RelationType(name)

		if pk, ok := rt.(*schema.PropertyKey); ok && pk.DataType() != schema.DataTypeObject {
			if v := data.Value(e, pk, nil); v != nil {
				sv, _ = pk.DataType().Convert(v)
			}
		}

		ret = append(ret, sv)
	}

	return ret
}

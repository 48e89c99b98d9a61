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
	"sort"
	"strings"
	"testing"

	"devt.de/krotik/common/errorutil"
	ecalutil "devt.de/krotik/ecal/util"
	"devt.de/krotik/graphtx/config"
	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/graphstorage"
	"devt.de/krotik/graphtx/graph/query"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestManager() *Manager {
	config.LoadDefaultConfig()

	gm, err := NewManager(graphstorage.NewMemoryGraphStorage("mystorage"), nil)
	errorutil.AssertOk(err)

	for _, def := range []*schema.Definition{
		schema.NewPropertyKey("name", schema.Single, schema.DataTypeString),
		schema.NewPropertyKey("weight", schema.Single, schema.DataTypeFloat64),
		schema.NewPropertyKey("time", schema.Single, schema.DataTypeInt64),
		schema.NewPropertyKey("tags", schema.Set, schema.DataTypeString),
		schema.NewEdgeLabel("knows", schema.Many2One),
		schema.NewEdgeLabel("visits", schema.Multi, "time"),
		schema.NewVertexLabel("person", false),
		schema.NewVertexLabel("hub", true),
	} {
		_, err := gm.DefineType(def)
		errorutil.AssertOk(err)
	}

	return gm
}

/*
testGraph is a hub vertex with 30 outgoing visits edges and 50 incoming
knows edges. The time values of visits edges are a permutation of 0..29.
20 knows edges have a weight greater than 10.
*/
type testGraph struct {
	hub     int64
	persons []int64
}

func buildTestGraph(gm *Manager, hubLabel string) *testGraph {
	tx := gm.NewTx()

	hub, err := tx.AddVertex(hubLabel)
	errorutil.AssertOk(err)

	_, err = tx.AddProperty(hub, "name", "hub")
	errorutil.AssertOk(err)

	tg := &testGraph{hub: hub.ID()}

	for i := 0; i < 50; i++ {
		p, err := tx.AddVertex("person")
		errorutil.AssertOk(err)

		tg.persons = append(tg.persons, p.ID())

		if i < 30 {
			e, err := tx.AddEdge("visits", hub, p)
			errorutil.AssertOk(err)

			_, err = tx.SetProperty(e, "time", int64((i*7)%30))
			errorutil.AssertOk(err)
		}

		e, err := tx.AddEdge("knows", p, hub)
		errorutil.AssertOk(err)

		weight := float64(i % 10)
		if i < 20 {
			weight = float64(11 + i)
		}

		_, err = tx.SetProperty(e, "weight", weight)
		errorutil.AssertOk(err)
	}

	errorutil.AssertOk(tx.Commit())

	return tg
}

func describe(rels []data.Relation, ordered bool) string {
	var res []string

	for _, r := range rels {
		if p, ok := r.(*data.Property); ok {
			res = append(res, fmt.Sprintf("%v=%v", p.Label(), p.Value()))
		} else {
			res = append(res, fmt.Sprintf("%v#%v", r.Label(), r.ID()))
		}
	}

	if !ordered {
		sort.Strings(res)
	}

	return strings.Join(res, " ")
}

func TestScenarioSetProperty(t *testing.T) {
	gm := newTestManager()
	tx := gm.NewTx()

	v, _ := tx.AddVertex("person")

	p1, err := tx.AddProperty(v, "name", "Node1")
	if err != nil {
		t.Error(err)
		return
	}

	if _, err := tx.AddProperty(v, "name", "Node3"); !errors.Is(err, util.ErrMultiplicityViolation) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := tx.SetProperty(v, "name", "Node2"); err != nil {
		t.Error(err)
		return
	}

	props, err := tx.Query(v).Keys("name").Properties()
	if err != nil || len(props) != 1 || props[0].Value() != "Node2" || !p1.IsRemoved() {
		t.Error("Unexpected result:", props, err, p1)
		return
	}

	if err := tx.Commit(); err != nil {
		t.Error(err)
		return
	}

	// Replace a stored value

	tx = gm.NewTx()

	v, _ = tx.GetVertex(v.ID())

	if props, _ := tx.Query(v).Keys("name").Properties(); len(props) != 1 || props[0].Value() != "Node2" {
		t.Error("Unexpected result:", props)
		return
	}

	if _, err := tx.SetProperty(v, "name", "Node3"); err != nil {
		t.Error(err)
		return
	}

	if res, _ := tx.Query(v).Keys("name").Properties(); len(res) != 1 || res[0].Value() != "Node3" {
		t.Error("Unexpected result:", res)
		return
	}

	all, _ := tx.Query(v).Keys("name").QueryAll().Relations()
	if len(all) != 2 || !all[0].IsRemoved() && !all[1].IsRemoved() {
		t.Error("Unexpected result:", all)
		return
	}

	errorutil.AssertOk(tx.Commit())

	tx = gm.NewTx()

	v, _ = tx.GetVertex(v.ID())

	if res, _ := tx.Query(v).QueryAll().Keys("name").Properties(); len(res) != 1 || res[0].Value() != "Node3" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, err := tx.RemoveProperty(v, "name"); err != nil || fmt.Sprint(res) != "[Node3]" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if res := data.PropertyMap(v); len(res) != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestScenarioMultiplicity(t *testing.T) {
	gm := newTestManager()
	tx := gm.NewTx()

	v1, _ := tx.AddVertex("person")
	v2, _ := tx.AddVertex("person")
	v3, _ := tx.AddVertex("")

	if v3.Label() != data.DefaultVertexLabel {
		t.Error("Unexpected result:", v3.Label())
		return
	}

	e, err := tx.AddEdge("knows", v1, v2)
	if err != nil {
		t.Error(err)
		return
	}

	if _, err := tx.AddEdge("knows", v1, v3); !errors.Is(err, util.ErrMultiplicityViolation) {
		t.Error("Unexpected result:", err)
		return
	}

	// An equal edge is reconciled

	if res, err := tx.AddEdge("knows", v1, v2); err != nil || res != e {
		t.Error("Unexpected result:", res, err)
		return
	}

	if res := testutil.ToFloat64(gm.Metrics().MultiplicityViolations); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	errorutil.AssertOk(tx.Commit())

	// The stored edge is checked when the vertex becomes resident

	tx = gm.NewTx()

	v1, _ = tx.GetVertex(v1.ID())
	v3, _ = tx.GetVertex(v3.ID())

	if _, err := tx.AddEdge("knows", v1, v3); !errors.Is(err, util.ErrMultiplicityViolation) {
		t.Error("Unexpected result:", err)
		return
	}

	if res := testutil.ToFloat64(gm.Metrics().MultiplicityViolations); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	// Replace the edge

	edges, _ := tx.Query(v1).Direction(schema.Out).Labels("knows").Edges()
	if len(edges) != 1 || edges[0].Vertex(schema.In).ID() != v2.ID() {
		t.Error("Unexpected result:", edges)
		return
	}

	errorutil.AssertOk(tx.RemoveRelation(edges[0]))

	if _, err := tx.AddEdge("knows", v1, v3); err != nil {
		t.Error(err)
		return
	}

	errorutil.AssertOk(tx.Commit())

	tx = gm.NewTx()

	v1, _ = tx.GetVertex(v1.ID())

	if res, _ := tx.Query(v1).Direction(schema.Out).Labels("knows").VertexIDs(); fmt.Sprint(res.IDs()) != fmt.Sprint([]int64{v3.ID()}) {
		t.Error("Unexpected result:", res)
		return
	}

	v2, _ = tx.GetVertex(v2.ID())

	if res, _ := tx.Query(v2).Labels("knows").Count(); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestQueryRoundTrip(t *testing.T) {
	for _, label := range []string{"person", "hub"} {
		if !testQueryRoundTrip(t, label) {
			return
		}
	}
}

func testQueryRoundTrip(t *testing.T, hubLabel string) bool {
	gm := newTestManager()
	tg := buildTestGraph(gm, hubLabel)

	// Results are read from the store in one transaction and from memory
	// in another

	backendTx := gm.NewTx()
	memoryTx := gm.NewTx()

	backendHub, _ := backendTx.GetVertex(tg.hub)
	memoryHub, _ := memoryTx.GetVertex(tg.hub)

	if backendHub == nil || backendHub.Label() != hubLabel {
		t.Error("Unexpected result:", backendHub)
		return false
	}

	errorutil.AssertOk(memoryTx.makeResident(memoryHub))

	backendTarget, _ := backendTx.GetVertex(tg.persons[3])
	memoryTarget, _ := memoryTx.GetVertex(tg.persons[3])

	tests := []struct {
		build   func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery
		count   int
		ordered bool
	}{
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Labels("visits")
		}, 30, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Labels("visits").Has("time", query.GreaterThan, int64(20))
		}, 9, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Labels("visits").Interval("time", int64(5), int64(10))
		}, 5, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Labels("visits").OrderBy("time", query.Asc).Limit(5)
		}, 5, true},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Labels("visits").OrderBy("time", query.Desc).Limit(3)
		}, 3, true},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Direction(schema.In).Labels("knows").Has("weight", query.GreaterThanEqual, 5.0)
		}, 35, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Direction(schema.Out).Labels("knows")
		}, 0, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Keys("name")
		}, 1, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q
		}, 81, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.QueryAll()
		}, 82, false},
		{func(q *query.VertexQuery, target *data.Vertex) *query.VertexQuery {
			return q.Labels("visits").Adjacent(target)
		}, 1, false},
	}

	for i, test := range tests {

		bres, err := test.build(backendTx.Query(backendHub), backendTarget).Relations()
		if err != nil {
			t.Error(hubLabel, i, err)
			return false
		}

		mres, err := test.build(memoryTx.Query(memoryHub), memoryTarget).Relations()
		if err != nil {
			t.Error(hubLabel, i, err)
			return false
		}

		if len(bres) != test.count || describe(bres, test.ordered) != describe(mres, test.ordered) {
			t.Error("Unexpected result:", hubLabel, i, len(bres), len(mres), "\n",
				describe(bres, test.ordered), "\n", describe(mres, test.ordered))
			return false
		}
	}

	// Ordered results

	edges, _ := backendTx.Query(backendHub).Labels("visits").OrderBy("time", query.Desc).Limit(3).Edges()

	var times []interface{}
	for _, e := range edges {
		times = append(times, data.PropertyMap(e)["time"])
	}

	if fmt.Sprint(times) != "[29 28 27]" {
		t.Error("Unexpected result:", times)
		return false
	}

	ids, _ := backendTx.Query(backendHub).Labels("visits").Has("time", query.Equal, int64(3)).VertexIDs()
	if ids.Len() != 1 || ids.Get(0) != tg.persons[9] {
		t.Error("Unexpected result:", ids)
		return false
	}

	// Limit on an unordered query

	res, _ := backendTx.Query(backendHub).Direction(schema.In).Labels("knows").
		Has("weight", query.GreaterThan, 10.0).Limit(5).Edges()

	if len(res) != 5 {
		t.Error("Unexpected result:", res)
		return false
	}

	for _, e := range res {
		if w := data.PropertyMap(e)["weight"]; w.(float64) <= 10 {
			t.Error("Unexpected result:", e, w)
			return false
		}
	}

	// Both paths were used

	if testutil.ToFloat64(gm.Metrics().Queries.WithLabelValues(PathBackend)) == 0 ||
		testutil.ToFloat64(gm.Metrics().Queries.WithLabelValues(PathMemory)) == 0 {
		t.Error("Both query paths should have been counted")
		return false
	}

	return true
}

func TestPartitionedVertex(t *testing.T) {
	gm := newTestManager()
	tg := buildTestGraph(gm, "hub")

	if !gm.IDManager().IsPartitionedVertex(tg.hub) {
		t.Error("Hub should be partitioned")
		return
	}

	reps, err := gm.IDManager().PartitionedVertexRepresentatives(tg.hub)
	if err != nil || len(reps) != int(gm.IDManager().PartitionBound()) {
		t.Error("Unexpected result:", reps, err)
		return
	}

	tx := gm.NewTx()

	hub, _ := tx.GetVertex(tg.hub)

	for _, rep := range reps {
		if v, err := tx.GetVertex(rep); err != nil || v != hub {
			t.Error("Representatives should resolve to the canonical vertex:", rep, v, err)
			return
		}
	}

	// Edges on the other side point to the canonical vertex

	p, _ := tx.GetVertex(tg.persons[0])

	if res, _ := tx.Query(p).Direction(schema.Out).Labels("knows").VertexIDs(); res.Len() != 1 || res.Get(0) != tg.hub {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := tx.Query(p).Direction(schema.In).Labels("visits").Vertices(); len(res) != 1 || res[0] != hub {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestRemoveVertex(t *testing.T) {
	gm := newTestManager()
	tx := gm.NewTx()

	v1, _ := tx.AddVertex("person")
	v2, _ := tx.AddVertex("person")

	tx.AddProperty(v1, "name", "v1")
	tx.AddProperty(v2, "name", "v2")
	tx.AddEdge("knows", v1, v2)

	errorutil.AssertOk(tx.Commit())

	store := gm.Storage().Store().(*graphstorage.MemoryKCVStore)

	if res := store.RowCount(); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}

	tx = gm.NewTx()

	v1, _ = tx.GetVertex(v1.ID())

	if err := tx.RemoveVertex(v1); err != nil {
		t.Error(err)
		return
	}

	if !v1.IsRemoved() {
		t.Error("Vertex should be removed")
		return
	}

	if res, _ := tx.GetVertex(v1.ID()); res != nil {
		t.Error("Unexpected result:", res)
		return
	}

	// The other endpoint is resident and sees the removal

	v2, _ = tx.GetVertex(v2.ID())

	if !tx.resident[v2.ID()] {
		t.Error("Other endpoint should be resident")
		return
	}

	if res, _ := tx.Query(v2).Labels("knows").Count(); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	errorutil.AssertOk(tx.Commit())

	if res := store.RowCount(); res != 1 {
		t.Error("Unexpected result:", res, store)
		return
	}

	tx = gm.NewTx()

	if res, _ := tx.GetVertex(v1.ID()); res != nil {
		t.Error("Unexpected result:", res)
		return
	}

	v2, _ = tx.GetVertex(v2.ID())

	// Relations of a vertex which is not resident are only visible through queries

	if res := fmt.Sprint(data.PropertyMap(v2)); res != "map[]" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := tx.Query(v2).Direction(schema.In).Labels("knows").Count(); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := tx.Query(v2).Keys("name").Properties(); len(res) != 1 || res[0].Value() != "v2" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestQueryIteratorRemove(t *testing.T) {
	gm := newTestManager()
	tg := buildTestGraph(gm, "person")

	tx := gm.NewTx()

	hub, _ := tx.GetVertex(tg.hub)

	it, err := tx.Query(hub).Labels("visits").Has("time", query.LessThan, int64(10)).Iterator(query.ReturnEdge)
	if err != nil {
		t.Error(err)
		return
	}

	for it.HasNext() {
		it.Next()
		errorutil.AssertOk(it.Remove())
	}

	if res, _ := tx.Query(hub).Labels("visits").Count(); res != 20 {
		t.Error("Unexpected result:", res)
		return
	}

	errorutil.AssertOk(tx.Commit())

	tx = gm.NewTx()

	hub, _ = tx.GetVertex(tg.hub)

	if res, _ := tx.Query(hub).Labels("visits").Count(); res != 20 {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := tx.Query(hub).Labels("visits").OrderBy("time", query.Asc).Limit(1).Edges(); len(res) != 1 ||
		data.PropertyMap(res[0])["time"] != int64(10) {
		t.Error("Unexpected result:", res)
		return
	}

	p, _ := tx.GetVertex(tg.persons[0])

	if res, _ := tx.Query(p).Direction(schema.In).Labels("visits").Count(); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestEdgeProperties(t *testing.T) {
	gm := newTestManager()
	tg := buildTestGraph(gm, "person")

	tx := gm.NewTx()

	hub, _ := tx.GetVertex(tg.hub)

	// Changing the sort key value moves the stored columns

	edges, _ := tx.Query(hub).Labels("visits").Has("time", query.Equal, int64(0)).Edges()
	if len(edges) != 1 {
		t.Error("Unexpected result:", edges)
		return
	}

	id := edges[0].ID()

	if _, err := tx.SetProperty(edges[0], "time", int64(100)); err != nil {
		t.Error(err)
		return
	}

	if !edges[0].IsModified() {
		t.Error("Edge should be modified:", edges[0])
		return
	}

	errorutil.AssertOk(tx.Commit())

	tx = gm.NewTx()

	hub, _ = tx.GetVertex(tg.hub)

	if res, _ := tx.Query(hub).Labels("visits").Has("time", query.Equal, int64(0)).Count(); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}

	edges, _ = tx.Query(hub).Labels("visits").OrderBy("time", query.Desc).Limit(1).Edges()
	if len(edges) != 1 || edges[0].ID() != id || data.PropertyMap(edges[0])["time"] != int64(100) {
		t.Error("Unexpected result:", edges)
		return
	}

	if res, _ := tx.Query(hub).Labels("visits").Count(); res != 30 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestRestoredEdge(t *testing.T) {
	gm := newTestManager()
	tg := buildTestGraph(gm, "person")

	tx := gm.NewTx()

	hub, _ := tx.GetVertex(tg.hub)

	edges, _ := tx.Query(hub).Labels("visits").Has("time", query.Equal, int64(0)).Edges()
	if len(edges) != 1 {
		t.Error("Unexpected result:", edges)
		return
	}

	id := edges[0].ID()
	other := edges[0].Vertex(schema.In)

	// Removing an edge and adding it again without properties

	errorutil.AssertOk(tx.RemoveRelation(edges[0]))

	e, err := tx.AddEdge("visits", hub, other)
	if err != nil || e.ID() != id || len(data.PropertyMap(e)) != 0 {
		t.Error("Unexpected result:", e, err)
		return
	}

	errorutil.AssertOk(tx.Commit())

	tx = gm.NewTx()

	hub, _ = tx.GetVertex(tg.hub)

	if res, _ := tx.Query(hub).Labels("visits").Has("time", query.Equal, int64(0)).Count(); res != 0 {
		t.Error("Old edge properties should be gone:", res)
		return
	}

	edges, _ = tx.Query(hub).Labels("visits").HasNot("time").Edges()
	if len(edges) != 1 || edges[0].ID() != id || len(data.PropertyMap(edges[0])) != 0 {
		t.Error("Unexpected result:", edges)
		return
	}

	if res, _ := tx.Query(hub).Labels("visits").Count(); res != 30 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestTxErrors(t *testing.T) {
	gm := newTestManager()
	tx := gm.NewTx()
	tx2 := gm.NewTx()

	if tx.ID() == tx2.ID() || tx.Registry() == nil {
		t.Error("Unexpected result:", tx.ID(), tx2.ID())
		return
	}

	v, _ := tx.AddVertex("person")
	v2, _ := tx2.AddVertex("person")

	if _, err := tx.AddEdge("knows", v, v2); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := tx.SetProperty(v, "~id", 5); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := tx.SetProperty(v, "time", "abc"); err == nil {
		t.Error("Unexpected result:", err)
		return
	}

	if !strings.HasPrefix(tx.String(), "Transaction "+tx.ID()) {
		t.Error("Unexpected result:", tx.String())
		return
	}

	if err := tx.Rollback(); err != nil {
		t.Error(err)
		return
	}

	if !tx.IsClosed() {
		t.Error("Transaction should be closed")
		return
	}

	if _, err := tx.AddVertex("person"); !errors.Is(err, util.ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := tx.Commit(); !errors.Is(err, util.ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := tx.Rollback(); !errors.Is(err, util.ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := tx.GetVertex(v.ID()); !errors.Is(err, util.ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	// Nothing was written

	tx = gm.NewTx()

	if res, _ := tx.GetVertex(v.ID()); res != nil {
		t.Error("Unexpected result:", res)
		return
	}

	errorutil.AssertOk(tx2.Commit())

	if _, err := tx2.AddVertex("person"); !errors.Is(err, util.ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}
}

/*
failingStore fails a given Mutate call.
*/
type failingStore struct {
	graphstorage.KCVStore
	calls  int
	failAt int
}

func (fs *failingStore) Mutate(key []byte, additions []graphstorage.Entry, deletions [][]byte) error {
	fs.calls++
	if fs.calls == fs.failAt {
		return errors.New("TestError")
	}
	return fs.KCVStore.Mutate(key, additions, deletions)
}

/*
countingStore counts GetSlice calls.
*/
type countingStore struct {
	graphstorage.KCVStore
	slices int
}

func (cs *countingStore) GetSlice(key []byte, start []byte, end []byte, limit int) ([]graphstorage.Entry, error) {
	cs.slices++
	return cs.KCVStore.GetSlice(key, start, end, limit)
}

func TestVertexIDsReadNoVertices(t *testing.T) {
	gm := newTestManager()
	tg := buildTestGraph(gm, "person")

	tx := gm.NewTx()

	hub, _ := tx.GetVertex(tg.hub)

	cs := &countingStore{KCVStore: tx.store}
	tx.store = cs

	ids, err := tx.Query(hub).Direction(schema.Out).Labels("visits").VertexIDs()
	if err != nil || ids.Len() != 30 {
		t.Error("Unexpected result:", ids, err)
		return
	}

	if cs.slices != 1 {
		t.Error("Unexpected number of reads:", cs.slices)
		return
	}

	// Full vertices read their labels

	vertices, err := tx.Query(hub).Direction(schema.Out).Labels("visits").Vertices()
	if err != nil || len(vertices) != 30 {
		t.Error("Unexpected result:", vertices, err)
		return
	}

	if cs.slices != 31 {
		t.Error("Unexpected number of reads:", cs.slices)
		return
	}

	for i, v := range vertices {
		if v.ID() != ids.Get(i) || v.Label() != "person" {
			t.Error("Unexpected result:", v, ids.Get(i))
			return
		}
	}

	// Labels are read once

	if res, _ := tx.GetVertex(vertices[0].ID()); res != vertices[0] || cs.slices != 31 {
		t.Error("Unexpected result:", res, cs.slices)
		return
	}
}

func TestCommitFailure(t *testing.T) {
	gm := newTestManager()
	tx := gm.NewTx()

	v1, _ := tx.AddVertex("person")
	tx.AddProperty(v1, "name", "a")

	errorutil.AssertOk(tx.Commit())

	// The second row fails and the first row is restored

	tx = gm.NewTx()
	tx.store = &failingStore{KCVStore: tx.store, failAt: 2}

	v1, _ = tx.GetVertex(v1.ID())
	tx.SetProperty(v1, "name", "b")

	v2, _ := tx.AddVertex("person")
	tx.AddProperty(v2, "name", "c")

	err := tx.Commit()

	if err == nil || !strings.Contains(err.Error(), "TestError") {
		t.Error("Unexpected result:", err)
		return
	}

	if _, ok := err.(*errorutil.CompositeError); !ok {
		t.Error("Unexpected result:", err)
		return
	}

	if !tx.IsClosed() {
		t.Error("Transaction should be closed")
		return
	}

	if res := testutil.ToFloat64(gm.Metrics().Commits.WithLabelValues(ResultFailed)); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	tx = gm.NewTx()

	v1, _ = tx.GetVertex(v1.ID())

	if res, _ := tx.Query(v1).Keys("name").Properties(); len(res) != 1 || res[0].Value() != "a" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := tx.GetVertex(v2.ID()); res != nil {
		t.Error("Unexpected result:", res)
		return
	}

	// Read errors

	graphstorage.MgsRetGetSlice = errors.New("ReadError")

	if _, err := gm.NewTx().GetVertex(v1.ID()); err == nil || err.Error() != "ReadError" {
		t.Error("Unexpected result:", err)
		graphstorage.MgsRetGetSlice = nil
		return
	}

	// Cached slices are not read again

	if res, _ := tx.Query(v1).Keys("name").Properties(); len(res) != 1 {
		t.Error("Unexpected result:", res)
		graphstorage.MgsRetGetSlice = nil
		return
	}

	graphstorage.MgsRetGetSlice = nil

	// Flush errors

	graphstorage.MgsRetFlushAll = errors.New("FlushError")

	tx.AddProperty(v1, "tags", "x")

	if err := tx.Commit(); err == nil || err.Error() != "FlushError" {
		t.Error("Unexpected result:", err)
		graphstorage.MgsRetFlushAll = nil
		return
	}

	graphstorage.MgsRetFlushAll = nil
}

func TestCommitEvent(t *testing.T) {
	gm := newTestManager()

	logger := ecalutil.NewMemoryLogger(10)
	gm.SetLogger(logger)

	rule := &testRule{"test.commit", []int{EventCommit}, nil, nil}
	gm.SetGraphRule(rule)

	tx := gm.NewTx()

	v, _ := tx.AddVertex("person")
	tx.AddProperty(v, "name", "a")

	errorutil.AssertOk(tx.Commit())

	// Two property columns are written

	if res := fmt.Sprint(rule.handled); res != fmt.Sprintf("[commit %v 2]", tx.ID()) {
		t.Error("Unexpected result:", res)
		return
	}

	if res := logger.String(); !strings.Contains(res, "Committed transaction "+tx.ID()+": 1 rows 2 columns") {
		t.Error("Unexpected result:", res)
		return
	}

	if res := testutil.ToFloat64(gm.Metrics().Commits.WithLabelValues(ResultOk)); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}
}

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
	"strings"
	"testing"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/graphtx/graph/util"
)

type testRule struct {
	name    string
	events  []int
	handled []interface{}
	err     error
}

func (r *testRule) Name() string {
	return r.name
}

func (r *testRule) Handles() []int {
	return r.events
}

func (r *testRule) Handle(gm *Manager, tx *Tx, event int, ed ...interface{}) error {
	r.handled = append(r.handled, EventNames[event])
	r.handled = append(r.handled, ed...)
	return r.err
}

/*
orderRule records the order in which rules are called.
*/
type orderRule struct {
	name  string
	order *[]string
}

func (r *orderRule) Name() string {
	return r.name
}

func (r *orderRule) Handles() []int {
	return []int{EventVertexCreated}
}

func (r *orderRule) Handle(gm *Manager, tx *Tx, event int, ed ...interface{}) error {
	*r.order = append(*r.order, r.name)
	return nil
}

func TestRules(t *testing.T) {
	gm := newTestManager()

	if res := fmt.Sprint(gm.GraphRules()); res != "[system.removevertexrelations]" {
		t.Error("Unexpected result:", res)
		return
	}

	created := &testRule{"test.created", []int{EventVertexCreated, EventPropertySet}, nil, nil}
	handled := &testRule{"test.handled", []int{EventRelationAdded}, nil, ErrEventHandled}
	failing := &testRule{"test.failing", []int{EventRelationRemoved}, nil, errors.New("oops")}

	gm.SetGraphRule(created)
	gm.SetGraphRule(handled)
	gm.SetGraphRule(failing)

	if res := fmt.Sprint(gm.GraphRules()); res !=
		"[system.removevertexrelations test.created test.failing test.handled]" {
		t.Error("Unexpected result:", res)
		return
	}

	tx := gm.NewTx()

	v, err := tx.AddVertex("person")
	if err != nil || len(created.handled) != 2 || created.handled[0] != "vertex.created" || created.handled[1] != v {
		t.Error("Unexpected result:", created.handled, err)
		return
	}

	// Set events carry the old values

	tx.SetProperty(v, "name", "a")
	tx.SetProperty(v, "name", "b")

	if res := fmt.Sprint(created.handled[len(created.handled)-1]); res != "[a]" {
		t.Error("Unexpected result:", created.handled)
		return
	}

	// A handled event is not an error

	v2, _ := tx.AddVertex("person")

	e, err := tx.AddEdge("knows", v, v2)
	if err != nil || len(handled.handled) != 2 || handled.handled[1] != e {
		t.Error("Unexpected result:", handled.handled, err)
		return
	}

	// Rule errors are returned

	err = tx.RemoveRelation(e)

	if !errors.Is(err, util.ErrRule) || !strings.Contains(err.Error(), "oops") {
		t.Error("Unexpected result:", err)
		return
	}

	if !e.IsRemoved() {
		t.Error("Relation should be removed:", e)
		return
	}

	errorutil.AssertOk(tx.Commit())
}

func TestRuleOrder(t *testing.T) {
	var order []string

	gm := newTestManager()

	gm.SetGraphRule(&orderRule{"c", &order})
	gm.SetGraphRule(&orderRule{"a", &order})
	gm.SetGraphRule(&orderRule{"b", &order})

	// Setting a rule again replaces it

	gm.SetGraphRule(&orderRule{"a", &order})

	if _, err := gm.NewTx().AddVertex("person"); err != nil {
		t.Error(err)
		return
	}

	if res := fmt.Sprint(order); res != "[a b c]" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestRemoveVertexRule(t *testing.T) {
	gm := newTestManager()

	removed := &testRule{"test.removed", []int{EventRelationRemoved}, nil, nil}
	gm.SetGraphRule(removed)

	tx := gm.NewTx()

	v1, _ := tx.AddVertex("person")
	v2, _ := tx.AddVertex("person")
	v3, _ := tx.AddVertex("person")

	tx.AddProperty(v1, "name", "v1")
	tx.AddEdge("knows", v1, v2)
	tx.AddEdge("knows", v3, v1)
	tx.AddEdge("visits", v1, v1)

	if err := tx.RemoveVertex(v1); err != nil {
		t.Error(err)
		return
	}

	// Label, name, two knows edges and the loop

	if res := len(removed.handled) / 2; res != 5 {
		t.Error("Unexpected result:", res, removed.handled)
		return
	}

	for _, v := range []int64{v2.ID(), v3.ID()} {
		other, _ := tx.GetVertex(v)

		if res, _ := tx.Query(other).Labels("knows").Count(); res != 0 {
			t.Error("Unexpected result:", res)
			return
		}
	}

	if err := tx.RemoveVertex(v1); !errors.Is(err, util.ErrInvalidStateTransition) {
		t.Error("Unexpected result:", err)
		return
	}
}

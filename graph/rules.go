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
	"sort"
	"strings"
	"sync"

	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
)

/*
graphRulesManager data structure
*/
type graphRulesManager struct {
	gm       *Manager                // Manager which provides events
	rules    map[string]Rule         // Map of graph rules
	eventMap map[int]map[string]Rule // Map of events to graph rules
	lock     sync.RWMutex            // Lock for the rule maps
}

/*
Rule models a graph rule.
*/
type Rule interface {

	/*
	   Name returns the name of the rule.
	*/
	Name() string

	/*
		Handles returns a list of events which are handled by this rule.
	*/
	Handles() []int

	/*
		Handle handles an event. The function should write all changes to the
		given transaction.
	*/
	Handle(gm *Manager, tx *Tx, event int, data ...interface{}) error
}

/*
graphEvent main event handler which receives all graph related events.
Rules run in the order of their names.
*/
func (gr *graphRulesManager) graphEvent(tx *Tx, event int, data ...interface{}) error {
	var errors []string

	gr.lock.RLock()
	rules := make([]Rule, 0, len(gr.eventMap[event]))
	for _, rule := range gr.eventMap[event] {
		rules = append(rules, rule)
	}
	gr.lock.RUnlock()

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Name() < rules[j].Name()
	})

	handled := false // Flag to return a special handled error if no other error occured

	for _, rule := range rules {

		if err := rule.Handle(gr.gm, tx, event, data...); err != nil {
			if err == ErrEventHandled {
				handled = true
			} else {
				errors = append(errors, err.Error())
			}
		}
	}

	if errors != nil {
		return &util.GraphError{Type: util.ErrRule, Detail: strings.Join(errors, ";")}
	}

	if handled {
		return ErrEventHandled
	}

	return nil
}

/*
SetGraphRule sets a GraphRule.
*/
func (gr *graphRulesManager) SetGraphRule(rule Rule) {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	gr.rules[rule.Name()] = rule

	for _, handledEvent := range rule.Handles() {

		rules, ok := gr.eventMap[handledEvent]
		if !ok {
			rules = make(map[string]Rule)
			gr.eventMap[handledEvent] = rules
		}

		rules[rule.Name()] = rule
	}
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gr *graphRulesManager) GraphRules() []string {
	gr.lock.RLock()
	defer gr.lock.RUnlock()

	ret := make([]string, 0, len(gr.rules))

	for rule := range gr.rules {
		ret = append(ret, rule)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

// System rule SystemRuleRemoveVertexRelations
// ===========================================

/*
SystemRuleRemoveVertexRelations is a system rule to remove all edges and
properties of a vertex when the vertex is removed. The other endpoints of
removed edges become resident in the transaction.
*/
type SystemRuleRemoveVertexRelations struct {
}

/*
Name returns the name of the rule.
*/
func (r *SystemRuleRemoveVertexRelations) Name() string {
	return "system.removevertexrelations"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (r *SystemRuleRemoveVertexRelations) Handles() []int {
	return []int{EventVertexRemoved}
}

/*
Handle handles an event.
*/
func (r *SystemRuleRemoveVertexRelations) Handle(gm *Manager, tx *Tx, event int, ed ...interface{}) error {
	v := ed[0].(*data.Vertex)

	// Hidden relations are included; removed relations are skipped

	rels, err := tx.Query(v).Direction(schema.Both).QueryAll().Relations()

	for _, rel := range rels {
		if err != nil {
			break
		}

		if !rel.IsRemoved() {
			err = tx.RemoveRelation(rel)
		}
	}

	return err
}

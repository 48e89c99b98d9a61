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
	"devt.de/krotik/graphtx/graph/schema"
)

/*
ComputeImplicit computes the value of an implicit property of an element.
The base element is the element from which the element was reached (used
for the adjacent id of edges). Returns nil if the element has no such value.
*/
func ComputeImplicit(kind schema.ImplicitKind, el Element, base Element) interface{} {

	switch kind {

	case schema.ImplicitID:
		return el.ID()

	case schema.ImplicitLabel:
		return el.Label()

	case schema.ImplicitPathCount:
		return el.PathCount()

	case schema.ImplicitAdjacentID:
		if e, ok := el.(*Edge); ok {
			if v, ok := base.(*Vertex); ok {
				return e.OtherVertex(v).ID()
			}
			return e.in.ID()
		}
	}

	return nil
}

/*
Values returns the values of all non-removed properties of a given key on an
element. Values of implicit keys are computed.
*/
func Values(el Element, key *schema.PropertyKey, base Element) []interface{} {
	var ret []interface{}

	if key.IsImplicit() {
		if v := ComputeImplicit(key.Implicit(), el, base); v != nil {
			ret = append(ret, v)
		}
		return ret
	}

	for _, r := range el.Adjacency().Live(schema.Out, key.Name()) {
		if p, ok := r.(*Property); ok {
			ret = append(ret, p.value)
		}
	}

	return ret
}

/*
Value returns the value of the first non-removed property of a given key on
an element or nil.
*/
func Value(el Element, key *schema.PropertyKey, base Element) interface{} {
	if vals := Values(el, key, base); len(vals) > 0 {
		return vals[0]
	}
	return nil
}

/*
Properties returns all non-removed properties of an element in insertion
order.
*/
func Properties(el Element) []*Property {
	var ret []*Property

	for _, t := range el.Adjacency().Types(schema.Out) {
		if !t.IsPropertyKey() {
			continue
		}

		for _, r := range el.Adjacency().Live(schema.Out, t.Name()) {
			ret = append(ret, r.(*Property))
		}
	}

	return ret
}

/*
PropertyMap returns the values of all non-removed properties of an element
which are not hidden.
*/
func PropertyMap(el Element) map[string]interface{} {
	ret := make(map[string]interface{})

	for _, p := range Properties(el) {
		if p.key.IsHidden() {
			continue
		}

		if p.key.Cardinality() == schema.Single {
			ret[p.key.Name()] = p.value
		} else {
			vals, _ := ret[p.key.Name()].([]interface{})
			ret[p.key.Name()] = append(vals, p.value)
		}
	}

	return ret
}

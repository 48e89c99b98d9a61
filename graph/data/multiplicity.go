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

	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/graphtx/graph/lifecycle"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
)

/*
AdjustedMultiplicity returns the multiplicity of a relation type on a given
element. Relations on relations are always MANY2ONE.
*/
func AdjustedMultiplicity(e Element, t schema.RelationType) schema.Multiplicity {
	if _, ok := e.(*Vertex); !ok {
		return schema.Many2One
	}
	return t.Multiplicity()
}

/*
AddRelation adds a relation to all its endpoints. The given element must be
an endpoint of the relation.

If the element is a vertex which already stores a structurally equal
relation the two are reconciled and the stored relation is returned: a new
relation replaces an equal removed one (taking over its id and becoming
loaded) and a stored new relation becomes loaded if an equal loaded
relation is added. Otherwise the multiplicity of the relation type is
checked on every endpoint before any store is changed.
*/
func AddRelation(e Element, r Relation) (Relation, error) {
	dirs := r.directions(e)

	if len(dirs) == 0 {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("%v is not incident on %v", r, e)}
	} else if r.IsRemoved() {
		return nil, &util.GraphError{Type: util.ErrInvalidStateTransition,
			Detail: fmt.Sprintf("Cannot add removed relation %v", r)}
	}

	eps := endpoints(r)

	for _, el := range eps {
		if el.IsRemoved() {
			return nil, &util.GraphError{Type: util.ErrInvalidStateTransition,
				Detail: fmt.Sprintf("Cannot add relation to removed element %v", el)}
		}
	}

	var ex Relation

	if _, ok := e.(*Vertex); ok {
		ex = e.Adjacency().find(dirs[0], r)
	}

	// A new relation which replaces a removed one must pass the checks

	if ex != nil && !(ex.IsRemoved() && r.IsNew()) {
		return reconcile(ex, r)
	}

	for _, el := range eps {
		for _, dir := range r.directions(el) {
			if err := checkMultiplicity(el, dir, r); err != nil {
				return nil, err
			}
		}
	}

	if ex != nil {
		return reconcile(ex, r)
	}

	for _, el := range eps {
		adj := el.adjacencyForWrite()

		for _, dir := range r.directions(el) {
			adj.add(dir, r)
		}

		// Loaded relations represent stored data and do not modify the element

		if !r.IsLoaded() {
			if err := el.Update(lifecycle.ModifiedRelation); err != nil {
				return nil, err
			}
		}
	}

	LogDebug("Added relation ", r, " to ", e)

	return r, nil
}

/*
SetRelation replaces all relations of the type of a given relation on an
element with the given relation. Replaced relations are removed. This
function should only be used for single valued types.
*/
func SetRelation(e Element, r Relation) (Relation, error) {
	var killed int

	// Check all other endpoints first so a failure leaves everything unchanged

	for _, el := range endpoints(r) {
		for _, dir := range r.directions(el) {
			if sameElement(el, e) && dir == schema.Out {
				continue
			}
			if err := checkMultiplicity(el, dir, r); err != nil {
				return nil, err
			}
		}
	}

	for _, ex := range e.Adjacency().Live(schema.Out, r.Type().Name()) {
		if ex.Equals(r) {
			continue
		}

		if err := RemoveRelation(ex); err != nil {
			return nil, err
		}

		killed++
	}

	if adjMulti := AdjustedMultiplicity(e, r.Type()); adjMulti != schema.Many2One && killed > 0 {
		LogInfo(fmt.Sprintf("Set relation removed %v relation%v of type %v with multiplicity %v; "+
			"add relations instead to avoid removal", killed,
			stringutil.Plural(killed), r.Type().Name(), adjMulti))
	}

	return AddRelation(e, r)
}

/*
RemoveRelation removes a relation from all its endpoints. New relations are
dropped from the adjacency stores; other relations stay as removed
relations until the end of the transaction.
*/
func RemoveRelation(r Relation) error {
	wasNew := r.IsNew()

	if err := r.Update(lifecycle.RemovedEvent); err != nil {
		return err
	}

	for _, el := range endpoints(r) {
		dirs := r.directions(el)

		if len(dirs) == 0 {
			continue
		}

		if wasNew && el.Adjacency() != EmptyAdjacency {
			for _, dir := range dirs {
				el.Adjacency().remove(dir, r)
			}
		}

		if !el.IsRemoved() {
			if err := el.Update(lifecycle.RemovedRelation); err != nil {
				return err
			}
		}
	}

	LogDebug("Removed relation ", r)

	return nil
}

/*
RemoveProperties removes all properties of a given key from an element.
Returns the values of the removed properties.
*/
func RemoveProperties(e Element, key string) ([]interface{}, error) {
	var ret []interface{}

	for _, r := range e.Adjacency().Live(schema.Out, key) {
		if p, ok := r.(*Property); ok {

			if err := RemoveRelation(p); err != nil {
				return ret, err
			}

			ret = append(ret, p.Value())
		}
	}

	return ret, nil
}

/*
RemoveVertex removes a vertex and all relations it is incident on.
*/
func RemoveVertex(v *Vertex) error {

	for _, dir := range schema.ProperDirections {
		for _, t := range v.Adjacency().Types(dir) {
			for _, r := range v.Adjacency().Live(dir, t.Name()) {
				if err := RemoveRelation(r); err != nil {
					return err
				}
			}
		}
	}

	return v.Update(lifecycle.RemovedEvent)
}

/*
reconcile reconciles a stored relation with a structurally equal relation
which is being added.
*/
func reconcile(ex Relation, r Relation) (Relation, error) {

	if ex == r {
		return ex, nil
	}

	if ex.IsRemoved() && r.IsNew() {

		// The removed relation stays removed; the new relation takes its
		// place and represents the stored data

		r.SetID(ex.ID())

		if err := r.Update(lifecycle.LoadedEvent); err != nil {
			return nil, err
		}

		// The stored column holds the properties of the removed relation

		if r.Adjacency().Len() > 0 || ex.Adjacency().Len() > 0 {
			if err := r.Update(lifecycle.ModifiedProperty); err != nil {
				return nil, err
			}
		}

		for _, el := range endpoints(ex) {
			dirs := ex.directions(el)

			for _, dir := range dirs {
				el.adjacencyForWrite().replace(dir, ex, r)
			}

			if len(dirs) > 0 {
				if err := el.Update(lifecycle.ModifiedRelation); err != nil {
					return nil, err
				}
			}
		}

		LogDebug("Restored relation ", r)

		return r, nil

	} else if r.IsLoaded() && ex.IsNew() {

		ex.SetID(r.ID())

		if err := ex.Update(lifecycle.LoadedEvent); err != nil {
			return nil, err
		}
	}

	return ex, nil
}

/*
checkMultiplicity checks if a relation can be added to an element in a
given direction.
*/
func checkMultiplicity(el Element, dir schema.Direction, r Relation) error {
	m := AdjustedMultiplicity(el, r.Type())

	if m == schema.Multi {
		return nil
	}

	for _, ex := range el.Adjacency().Live(dir, r.Type().Name()) {

		if ex == r {
			continue
		}

		if m.IsUnique(dir) || (m == schema.Simple && sameIncidence(ex, r)) {
			return &util.GraphError{Type: util.ErrMultiplicityViolation,
				Detail: fmt.Sprintf("%v relation %v already exists on %v", m, ex, el)}
		}
	}

	return nil
}

/*
sameIncidence checks if two relations connect the same vertices or hold the
same value.
*/
func sameIncidence(r1 Relation, r2 Relation) bool {
	if p1, ok := r1.(*Property); ok {
		if p2, ok := r2.(*Property); ok {
			return reflect.DeepEqual(p1.Value(), p2.Value())
		}
		return false
	}

	return r1.Arity() == r2.Arity() && sameElement(r1.Element(0), r2.Element(0)) &&
		sameElement(r1.Element(1), r2.Element(1))
}

/*
endpoints returns the distinct elements a relation is incident on.
*/
func endpoints(r Relation) []Element {
	if r.Arity() == 1 || sameElement(r.Element(0), r.Element(1)) {
		return []Element{r.Element(0)}
	}
	return []Element{r.Element(0), r.Element(1)}
}

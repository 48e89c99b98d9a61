/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package schema

import (
	"fmt"

	"devt.de/krotik/graphtx/graph/util"
)

/*
Registry resolves schema types for a single transaction. A registry is not
safe for concurrent use; the shared cache it reads through is.
*/
type Registry struct {
	provider  Provider        // Provider for unknown names
	shared    *SharedCache    // Cache shared between transactions
	local     map[string]Type // Types resolved by this registry
	localByID map[int64]Type  // Types resolved by this registry by id
}

/*
NewRegistry creates a new registry. If no shared cache is given the registry
uses a private one.
*/
func NewRegistry(provider Provider, shared *SharedCache) *Registry {
	if shared == nil {
		shared = NewSharedCache()
	}
	return &Registry{provider, shared, make(map[string]Type), make(map[int64]Type)}
}

/*
Provider returns the provider of this registry.
*/
func (r *Registry) Provider() Provider {
	return r.provider
}

/*
RelationType returns a known relation type by name. Returns nil if no
relation type of the given name exists. This function never creates types.
*/
func (r *Registry) RelationType(name string) (RelationType, error) {
	t, err := r.lookup("rt", name, r.provider.RelationType)

	if rt, ok := t.(RelationType); ok {
		return rt, err
	}

	return nil, err
}

/*
RelationTypeByID returns a known relation type by id. Returns nil if no
relation type of the given id exists.
*/
func (r *Registry) RelationTypeByID(id int64) (RelationType, error) {
	var err error

	if st, ok := SystemTypeByID(id); ok {
		return st, nil
	}

	t, ok := r.localByID[id]

	if !ok {
		if t, ok = r.shared.GetByID(id); !ok {
			var def *Definition

			if def, err = r.provider.Definition(id); err == nil && def != nil {
				t = r.shared.PutIfAbsent(NewType(def))
			}
		}

		if t != nil {
			r.remember(t)
		}
	}

	if rt, ok := t.(RelationType); ok {
		return rt, err
	}

	return nil, err
}

/*
GetOrCreatePropertyKey returns a property key. The key is created by the
provider if it does not exist.
*/
func (r *Registry) GetOrCreatePropertyKey(name string) (*PropertyKey, error) {
	t, err := r.lookup("pk", name, r.provider.PropertyKey)

	if err == nil {
		if pk, ok := t.(*PropertyKey); ok {
			return pk, nil
		}
		err = r.categoryError(name, t, CategoryPropertyKey)
	}

	return nil, err
}

/*
GetOrCreateEdgeLabel returns an edge label. The label is created by the
provider if it does not exist.
*/
func (r *Registry) GetOrCreateEdgeLabel(name string) (*EdgeLabel, error) {
	t, err := r.lookup("el", name, r.provider.EdgeLabel)

	if err == nil {
		if el, ok := t.(*EdgeLabel); ok {
			return el, nil
		}
		err = r.categoryError(name, t, CategoryEdgeLabel)
	}

	return nil, err
}

/*
GetOrCreateVertexLabel returns a vertex label. The label is created by the
provider if it does not exist.
*/
func (r *Registry) GetOrCreateVertexLabel(name string) (*VertexLabel, error) {
	t, err := r.lookup("vl", name, r.provider.VertexLabel)

	if err == nil {
		if vl, ok := t.(*VertexLabel); ok {
			return vl, nil
		}
		err = r.categoryError(name, t, CategoryVertexLabel)
	}

	return nil, err
}

/*
ContainsRelationType checks if a relation type of a given name exists.
*/
func (r *Registry) ContainsRelationType(name string) bool {
	rt, err := r.RelationType(name)
	return err == nil && rt != nil
}

/*
ContainsPropertyKey checks if a property key of a given name exists.
*/
func (r *Registry) ContainsPropertyKey(name string) bool {
	rt, err := r.RelationType(name)
	return err == nil && rt != nil && rt.IsPropertyKey()
}

/*
ContainsEdgeLabel checks if an edge label of a given name exists.
*/
func (r *Registry) ContainsEdgeLabel(name string) bool {
	rt, err := r.RelationType(name)
	return err == nil && rt != nil && rt.IsEdgeLabel()
}

/*
lookup resolves a name: system types first, then the local cache, the shared
cache and finally the given provider function.
*/
func (r *Registry) lookup(op string, name string, fetch func(string) (*Definition, error)) (Type, error) {

	if st, ok := SystemType(name); ok {
		return st, nil
	} else if IsSystemName(name) {
		return nil, nil
	}

	if t, ok := r.local[name]; ok {
		return t, nil
	}

	t, err := r.shared.resolve(op+"\x00"+name, name, func() (*Definition, error) {
		return fetch(name)
	})

	if t != nil {
		r.remember(t)
	}

	return t, err
}

/*
remember stores a resolved type in the local cache.
*/
func (r *Registry) remember(t Type) {
	r.local[t.Name()] = t
	r.localByID[t.ID()] = t
}

/*
categoryError returns an error for a name which could not be resolved to a
type of the expected category.
*/
func (r *Registry) categoryError(name string, t Type, expected Category) error {

	if t == nil {
		if rt, _ := r.RelationType(name); rt != nil {
			t = rt
		}
	}

	if t == nil {
		return &util.GraphError{Type: util.ErrUnresolvedType,
			Detail: fmt.Sprintf("%v %v", expected, name)}
	}
	return &util.GraphError{Type: util.ErrInvalidData,
		Detail: fmt.Sprintf("%v is a %v not a %v", name, t.Category(), expected)}
}

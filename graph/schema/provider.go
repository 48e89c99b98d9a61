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
	"encoding/json"
	"fmt"
	"sync"

	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/graphtx/graph/idmanager"
	"devt.de/krotik/graphtx/graph/util"
)

/*
Provider resolves names to schema type definitions. All lookup functions
return nil if a name is unknown.
*/
type Provider interface {

	/*
	   PropertyKey returns the definition of a property key.
	*/
	PropertyKey(name string) (*Definition, error)

	/*
	   EdgeLabel returns the definition of an edge label.
	*/
	EdgeLabel(name string) (*Definition, error)

	/*
	   VertexLabel returns the definition of a vertex label.
	*/
	VertexLabel(name string) (*Definition, error)

	/*
	   RelationType returns the definition of a property key or edge label.
	   This function never creates new definitions.
	*/
	RelationType(name string) (*Definition, error)

	/*
	   Definition returns the definition of a schema type by id.
	*/
	Definition(id int64) (*Definition, error)
}

/*
Registrar is a provider which can register new definitions.
*/
type Registrar interface {
	Provider

	/*
	   Register registers a new definition and assigns its id. Registering an
	   already known name of the same category returns the known definition.
	*/
	Register(def *Definition) (*Definition, error)
}

// Backup chaining
// ===============

/*
BackupProvider is a provider which falls back to a backup provider if the
primary provider does not know a name.
*/
type BackupProvider struct {
	Primary Provider // Primary provider
	Backup  Provider // Provider which is consulted on misses
}

/*
WithBackup wraps a primary provider so that misses fall through to a backup
provider. Wrapping is idempotent: a provider which already falls back to
the given backup is returned unchanged.
*/
func WithBackup(primary Provider, backup Provider) Provider {

	if backup == nil || primary == backup {
		return primary
	} else if primary == nil {
		return backup
	}

	if bp, ok := primary.(*BackupProvider); ok && (bp.Backup == backup || bp.Primary == backup) {
		return primary
	}

	return &BackupProvider{primary, backup}
}

/*
PropertyKey returns the definition of a property key.
*/
func (bp *BackupProvider) PropertyKey(name string) (*Definition, error) {
	return bp.chain(func(p Provider) (*Definition, error) { return p.PropertyKey(name) })
}

/*
EdgeLabel returns the definition of an edge label.
*/
func (bp *BackupProvider) EdgeLabel(name string) (*Definition, error) {
	return bp.chain(func(p Provider) (*Definition, error) { return p.EdgeLabel(name) })
}

/*
VertexLabel returns the definition of a vertex label.
*/
func (bp *BackupProvider) VertexLabel(name string) (*Definition, error) {
	return bp.chain(func(p Provider) (*Definition, error) { return p.VertexLabel(name) })
}

/*
RelationType returns the definition of a property key or edge label.
*/
func (bp *BackupProvider) RelationType(name string) (*Definition, error) {
	return bp.chain(func(p Provider) (*Definition, error) { return p.RelationType(name) })
}

/*
Definition returns the definition of a schema type by id.
*/
func (bp *BackupProvider) Definition(id int64) (*Definition, error) {
	return bp.chain(func(p Provider) (*Definition, error) { return p.Definition(id) })
}

/*
chain runs a lookup on the primary and, on a miss, on the backup provider.
*/
func (bp *BackupProvider) chain(f func(p Provider) (*Definition, error)) (*Definition, error) {
	def, err := f(bp.Primary)

	if err != nil || def != nil {
		return def, err
	}

	return f(bp.Backup)
}

// Storage provider
// ================

/*
Prefixes for entries in the definition database
*/
const (
	PrefixDefinition   = "\x10"
	PrefixDefinitionID = "\x11"
)

/*
StorageProvider keeps definitions as JSON in a string map such as the main
database of a graph storage. Ids are assigned from per-category counters.
*/
type StorageProvider struct {
	db    map[string]string  // Definition database
	names *util.NamesManager // Counters for ids
	lock  sync.Locker        // Lock which protects the database
}

/*
NewStorageProvider creates a new StorageProvider. The given lock must be
held by every other writer of the given database.
*/
func NewStorageProvider(db map[string]string, lock sync.Locker) *StorageProvider {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &StorageProvider{db, util.NewNamesManager(db), lock}
}

/*
PropertyKey returns the definition of a property key.
*/
func (sp *StorageProvider) PropertyKey(name string) (*Definition, error) {
	return sp.category(name, CategoryPropertyKey)
}

/*
EdgeLabel returns the definition of an edge label.
*/
func (sp *StorageProvider) EdgeLabel(name string) (*Definition, error) {
	return sp.category(name, CategoryEdgeLabel)
}

/*
VertexLabel returns the definition of a vertex label.
*/
func (sp *StorageProvider) VertexLabel(name string) (*Definition, error) {
	return sp.category(name, CategoryVertexLabel)
}

/*
RelationType returns the definition of a property key or edge label.
*/
func (sp *StorageProvider) RelationType(name string) (*Definition, error) {
	def, err := sp.lookup(name)

	if def != nil && def.Category == CategoryVertexLabel {
		def = nil
	}

	return def, err
}

/*
Definition returns the definition of a schema type by id.
*/
func (sp *StorageProvider) Definition(id int64) (*Definition, error) {
	sp.lock.Lock()
	name, ok := sp.db[PrefixDefinitionID+fmt.Sprint(id)]
	sp.lock.Unlock()

	if !ok {
		return nil, nil
	}

	return sp.lookup(name)
}

/*
Register registers a new definition and assigns its id.
*/
func (sp *StorageProvider) Register(def *Definition) (*Definition, error) {
	var stype idmanager.SchemaType
	var prefix string

	if def.Name == "" || !stringutil.IsAlphaNumeric(def.Name) {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Invalid type name: %q", def.Name)}
	}

	switch def.Category {
	case CategoryPropertyKey:
		stype, prefix = idmanager.UserPropertyKey, util.PrefixPropertyKey
	case CategoryEdgeLabel:
		stype, prefix = idmanager.UserEdgeLabel, util.PrefixEdgeLabel
	default:
		stype, prefix = idmanager.VertexLabel, util.PrefixVertexLabel
	}

	// Sort keys must refer to known property keys

	for _, sk := range def.SortKey {
		if skdef, err := sp.PropertyKey(sk); err != nil || skdef == nil {
			return nil, &util.GraphError{Type: util.ErrInvalidData,
				Detail: fmt.Sprintf("Unknown sort key %v for %v", sk, def.Name)}
		}
	}

	// Take writer lock

	sp.lock.Lock()
	defer sp.lock.Unlock()

	if existing, ok := sp.db[PrefixDefinition+def.Name]; ok {
		var edef Definition

		if err := json.Unmarshal([]byte(existing), &edef); err != nil {
			return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
		}

		if edef.Category != def.Category {
			return nil, &util.GraphError{Type: util.ErrInvalidData,
				Detail: fmt.Sprintf("%v is already defined as %v", def.Name, edef.Category)}
		}

		return &edef, nil
	}

	ndef := def.copy()

	id, err := idmanager.SchemaID(stype, sp.names.Encode(prefix, def.Name, true))
	if err != nil {
		return nil, err
	}
	ndef.ID = id

	data, err := json.Marshal(ndef)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	sp.db[PrefixDefinition+def.Name] = string(data)
	sp.db[PrefixDefinitionID+fmt.Sprint(id)] = def.Name

	return ndef, nil
}

/*
category looks up a definition and checks its category.
*/
func (sp *StorageProvider) category(name string, c Category) (*Definition, error) {
	def, err := sp.lookup(name)

	if def != nil && def.Category != c {
		def = nil
	}

	return def, err
}

/*
lookup looks up a definition by name.
*/
func (sp *StorageProvider) lookup(name string) (*Definition, error) {
	sp.lock.Lock()
	data, ok := sp.db[PrefixDefinition+name]
	sp.lock.Unlock()

	if !ok {
		return nil, nil
	}

	var def Definition

	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	return &def, nil
}

// Map provider
// ============

/*
NewMapProvider creates a provider with a fixed set of definitions. Ids are
assigned in the given order.
*/
func NewMapProvider(defs ...*Definition) (*StorageProvider, error) {
	sp := NewStorageProvider(make(map[string]string), nil)

	for _, def := range defs {
		if _, err := sp.Register(def); err != nil {
			return nil, err
		}
	}

	return sp, nil
}

// Default provider
// ================

/*
DefaultProvider synthesises permissive definitions for unknown names:
property keys with LIST cardinality (MULTI multiplicity) and generic values,
directed MULTI edge labels and unpartitioned vertex labels. Synthesised
definitions are registered with a registrar so they keep their ids.
*/
type DefaultProvider struct {
	registrar Registrar
}

/*
NewDefaultProvider creates a new DefaultProvider. If no registrar is given
definitions are registered in a private in-memory database.
*/
func NewDefaultProvider(registrar Registrar) *DefaultProvider {
	if registrar == nil {
		registrar = NewStorageProvider(make(map[string]string), nil)
	}
	return &DefaultProvider{registrar}
}

/*
PropertyKey returns the definition of a property key.
*/
func (dp *DefaultProvider) PropertyKey(name string) (*Definition, error) {
	return dp.synthesise(name, NewPropertyKey(name, List, DataTypeObject))
}

/*
EdgeLabel returns the definition of an edge label.
*/
func (dp *DefaultProvider) EdgeLabel(name string) (*Definition, error) {
	return dp.synthesise(name, NewEdgeLabel(name, Multi))
}

/*
VertexLabel returns the definition of a vertex label.
*/
func (dp *DefaultProvider) VertexLabel(name string) (*Definition, error) {
	return dp.synthesise(name, NewVertexLabel(name, false))
}

/*
RelationType returns the definition of a previously synthesised relation type.
*/
func (dp *DefaultProvider) RelationType(name string) (*Definition, error) {
	return dp.registrar.RelationType(name)
}

/*
Definition returns the definition of a previously synthesised type.
*/
func (dp *DefaultProvider) Definition(id int64) (*Definition, error) {
	return dp.registrar.Definition(id)
}

/*
synthesise registers a permissive definition. Names which are already
registered in another category are not synthesised.
*/
func (dp *DefaultProvider) synthesise(name string, def *Definition) (*Definition, error) {

	if IsSystemName(name) {
		return nil, nil
	}

	ndef, err := dp.registrar.Register(def)

	if err != nil {
		if gerr, ok := err.(*util.GraphError); ok && gerr.Type == util.ErrInvalidData {
			return nil, nil
		}
	}

	return ndef, err
}

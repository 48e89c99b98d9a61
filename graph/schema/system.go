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
	"strings"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/graphtx/graph/idmanager"
)

/*
SystemPrefix is the name prefix of all system types
*/
const SystemPrefix = "~"

/*
ImplicitKind is the kind of computed value of an implicit property key.
*/
type ImplicitKind int

/*
Known implicit kinds
*/
const (
	ImplicitNone       ImplicitKind = iota
	ImplicitID                      // Id of the element
	ImplicitLabel                   // Label of the vertex or type name of the relation
	ImplicitPathCount               // Number of traversal paths which lead to the element
	ImplicitAdjacentID              // Id of the other vertex of an edge
)

/*
System property keys
*/
var (
	ImplicitIDKey        = newSystemKey("~id", 1, DataTypeInt64, ImplicitID, false)
	ImplicitLabelKey     = newSystemKey("~label", 2, DataTypeString, ImplicitLabel, false)
	ImplicitPathCountKey = newSystemKey("~pathcount", 3, DataTypeInt64, ImplicitPathCount, false)
	ImplicitAdjacentKey  = newSystemKey("~adjacent", 4, DataTypeInt64, ImplicitAdjacentID, false)
	VertexLabelKey       = newSystemKey("~vertexlabel", 5, DataTypeString, ImplicitNone, true)
)

var systemTypes = map[string]RelationType{}
var systemTypesByID = map[int64]RelationType{}

func init() {
	for _, t := range []*PropertyKey{ImplicitIDKey, ImplicitLabelKey,
		ImplicitPathCountKey, ImplicitAdjacentKey, VertexLabelKey} {

		systemTypes[t.Name()] = t
		systemTypesByID[t.ID()] = t
	}
}

/*
newSystemKey creates a new system property key.
*/
func newSystemKey(name string, count uint64, dt DataType, kind ImplicitKind, hidden bool) *PropertyKey {
	id, err := idmanager.SchemaID(idmanager.SystemPropertyKey, count)
	errorutil.AssertOk(err)

	return &PropertyKey{baseType{&Definition{
		Category:     CategoryPropertyKey,
		Name:         name,
		ID:           id,
		Multiplicity: Many2One,
		Cardinality:  Single,
		DataType:     dt,
		Hidden:       hidden,
	}}, kind}
}

/*
IsSystemName checks if a given name is reserved for system types.
*/
func IsSystemName(name string) bool {
	return strings.HasPrefix(name, SystemPrefix)
}

/*
SystemType returns a system type by name.
*/
func SystemType(name string) (RelationType, bool) {
	t, ok := systemTypes[name]
	return t, ok
}

/*
SystemTypeByID returns a system type by id.
*/
func SystemTypeByID(id int64) (RelationType, bool) {
	t, ok := systemTypesByID[id]
	return t, ok
}

/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package schema contains the relation type model and the relation type registry.

Relation types

A relation type is either a property key or an edge label. Relation types are
immutable and identified by their name. Each type has a multiplicity which
constrains how many relations of the type an element may hold. Property keys
have a cardinality and a data type; edge labels can be unidirected (only
stored on the out vertex). Vertex labels are also schema types but not
relation types.

Providers

A Provider resolves names to type definitions. Providers can be chained so
that misses of a primary provider fall through to a backup provider. The
DefaultProvider synthesises permissive definitions for unknown names. The
StorageProvider keeps definitions in the main database of a graph storage.

Registry

A Registry is the per-transaction handle used to resolve types. It keeps a
local cache and reads through a SharedCache which is shared by all
transactions of a graph manager. The shared cache is an immutable snapshot
which is replaced atomically on insert; concurrent resolution of the same
name converges on a single instance.
*/
package schema

import (
	"fmt"
	"strings"

	"devt.de/krotik/graphtx/graph/util"
)

/*
Direction of a relation relative to an element.
*/
type Direction int

/*
Known directions
*/
const (
	Out Direction = iota
	In
	Both
)

/*
ProperDirections are the directions a relation can actually have.
*/
var ProperDirections = []Direction{Out, In}

/*
String returns a string representation of a direction.
*/
func (d Direction) String() string {
	switch d {
	case Out:
		return "OUT"
	case In:
		return "IN"
	case Both:
		return "BOTH"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

/*
Opposite returns the opposite direction.
*/
func (d Direction) Opposite() Direction {
	switch d {
	case Out:
		return In
	case In:
		return Out
	}
	return Both
}

/*
Includes checks if a direction includes another (proper) direction.
*/
func (d Direction) Includes(other Direction) bool {
	return d == Both || d == other
}

/*
Multiplicity is a structural uniqueness constraint of a relation type.
*/
type Multiplicity int

/*
Known multiplicities
*/
const (
	Multi    Multiplicity = iota // No constraint
	Simple                       // No duplicate incident pair
	Many2One                     // At most one outgoing relation per element
	One2Many                     // At most one incoming relation per element
	One2One                      // At most one relation in each direction
)

var multiplicityNames = []string{"MULTI", "SIMPLE", "MANY2ONE", "ONE2MANY", "ONE2ONE"}

/*
String returns a string representation of a multiplicity.
*/
func (m Multiplicity) String() string {
	if int(m) < len(multiplicityNames) && m >= 0 {
		return multiplicityNames[m]
	}
	return fmt.Sprintf("Multiplicity(%d)", int(m))
}

/*
IsUnique checks if there can only be one relation of this multiplicity in
a given direction.
*/
func (m Multiplicity) IsUnique(d Direction) bool {
	switch m {
	case Many2One:
		return d == Out
	case One2Many:
		return d == In
	case One2One:
		return true
	}
	return false
}

/*
IsConstrained checks if this multiplicity constrains relations in a given
direction.
*/
func (m Multiplicity) IsConstrained(d Direction) bool {
	if m == Multi {
		return false
	} else if m == Simple || d == Both {
		return true
	}
	return m.IsUnique(d)
}

/*
ParseMultiplicity parses a multiplicity name.
*/
func ParseMultiplicity(s string) (Multiplicity, error) {
	for i, name := range multiplicityNames {
		if strings.EqualFold(name, s) {
			return Multiplicity(i), nil
		}
	}
	return Multi, &util.GraphError{Type: util.ErrInvalidData,
		Detail: fmt.Sprintf("Unknown multiplicity: %v", s)}
}

/*
Cardinality is the number of values a property key may hold per element.
*/
type Cardinality int

/*
Known cardinalities
*/
const (
	Single Cardinality = iota
	List
	Set
)

/*
String returns a string representation of a cardinality.
*/
func (c Cardinality) String() string {
	switch c {
	case Single:
		return "SINGLE"
	case List:
		return "LIST"
	case Set:
		return "SET"
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

/*
Multiplicity returns the multiplicity which corresponds to a cardinality.
*/
func (c Cardinality) Multiplicity() Multiplicity {
	switch c {
	case Single:
		return Many2One
	case Set:
		return Simple
	}
	return Multi
}

/*
Category of a schema type.
*/
type Category int

/*
Known categories
*/
const (
	CategoryPropertyKey Category = iota
	CategoryEdgeLabel
	CategoryVertexLabel
)

/*
String returns a string representation of a category.
*/
func (c Category) String() string {
	switch c {
	case CategoryPropertyKey:
		return "PropertyKey"
	case CategoryEdgeLabel:
		return "EdgeLabel"
	case CategoryVertexLabel:
		return "VertexLabel"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

/*
Definition is the plain description of a schema type as it is exchanged with
providers.
*/
type Definition struct {
	Category     Category     `json:"category"`
	Name         string       `json:"name"`
	ID           int64        `json:"id"`
	Multiplicity Multiplicity `json:"multiplicity"`
	Cardinality  Cardinality  `json:"cardinality"`
	DataType     DataType     `json:"datatype"`
	Unidirected  bool         `json:"unidirected"`
	Hidden       bool         `json:"hidden"`
	SortKey      []string     `json:"sortkey,omitempty"`
	Partitioned  bool         `json:"partitioned"`
}

/*
copy returns a deep copy of this definition.
*/
func (d *Definition) copy() *Definition {
	c := *d
	if d.SortKey != nil {
		c.SortKey = append([]string(nil), d.SortKey...)
	}
	return &c
}

/*
Type is a schema type.
*/
type Type interface {

	/*
	   Name returns the unique name of this type.
	*/
	Name() string

	/*
	   ID returns the schema id of this type.
	*/
	ID() int64

	/*
	   Category returns the category of this type.
	*/
	Category() Category

	/*
	   Definition returns a copy of the definition of this type.
	*/
	Definition() *Definition
}

/*
RelationType is a property key or an edge label.
*/
type RelationType interface {
	Type

	/*
	   Multiplicity returns the multiplicity of this type.
	*/
	Multiplicity() Multiplicity

	/*
	   IsHidden checks if relations of this type are hidden from queries.
	*/
	IsHidden() bool

	/*
	   SortKey returns the names of the property keys relations of this type
	   are sorted by.
	*/
	SortKey() []string

	/*
	   IsPropertyKey checks if this type is a property key.
	*/
	IsPropertyKey() bool

	/*
	   IsEdgeLabel checks if this type is an edge label.
	*/
	IsEdgeLabel() bool

	/*
	   String returns a string representation of this type.
	*/
	String() string
}

/*
SameType checks if two types are the same. Types are identified by name.
*/
func SameType(t1 Type, t2 Type) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	return t1.Name() == t2.Name()
}

/*
baseType is the common implementation of all schema types.
*/
type baseType struct {
	def *Definition
}

/*
Name returns the unique name of this type.
*/
func (bt *baseType) Name() string {
	return bt.def.Name
}

/*
ID returns the schema id of this type.
*/
func (bt *baseType) ID() int64 {
	return bt.def.ID
}

/*
Category returns the category of this type.
*/
func (bt *baseType) Category() Category {
	return bt.def.Category
}

/*
Definition returns a copy of the definition of this type.
*/
func (bt *baseType) Definition() *Definition {
	return bt.def.copy()
}

/*
Multiplicity returns the multiplicity of this type.
*/
func (bt *baseType) Multiplicity() Multiplicity {
	return bt.def.Multiplicity
}

/*
IsHidden checks if relations of this type are hidden from queries.
*/
func (bt *baseType) IsHidden() bool {
	return bt.def.Hidden
}

/*
SortKey returns the sort key of this type.
*/
func (bt *baseType) SortKey() []string {
	return bt.def.SortKey
}

/*
PropertyKey is a relation type for properties.
*/
type PropertyKey struct {
	baseType
	implicit ImplicitKind
}

/*
IsPropertyKey returns true.
*/
func (pk *PropertyKey) IsPropertyKey() bool {
	return true
}

/*
IsEdgeLabel returns false.
*/
func (pk *PropertyKey) IsEdgeLabel() bool {
	return false
}

/*
Cardinality returns the cardinality of this key.
*/
func (pk *PropertyKey) Cardinality() Cardinality {
	return pk.def.Cardinality
}

/*
DataType returns the data type of this key.
*/
func (pk *PropertyKey) DataType() DataType {
	return pk.def.DataType
}

/*
Implicit returns the kind of computed value of an implicit key.
*/
func (pk *PropertyKey) Implicit() ImplicitKind {
	return pk.implicit
}

/*
IsImplicit checks if values of this key are computed.
*/
func (pk *PropertyKey) IsImplicit() bool {
	return pk.implicit != ImplicitNone
}

/*
String returns a string representation of this key.
*/
func (pk *PropertyKey) String() string {
	return fmt.Sprintf("PropertyKey %v (%v %v %v)", pk.def.Name, pk.def.Cardinality,
		pk.def.DataType, pk.def.Multiplicity)
}

/*
EdgeLabel is a relation type for edges.
*/
type EdgeLabel struct {
	baseType
}

/*
IsPropertyKey returns false.
*/
func (el *EdgeLabel) IsPropertyKey() bool {
	return false
}

/*
IsEdgeLabel returns true.
*/
func (el *EdgeLabel) IsEdgeLabel() bool {
	return true
}

/*
IsUnidirected checks if edges of this label are only stored on the out vertex.
*/
func (el *EdgeLabel) IsUnidirected() bool {
	return el.def.Unidirected
}

/*
IsUnique checks if there can only be one edge of this label in a direction.
*/
func (el *EdgeLabel) IsUnique(d Direction) bool {
	return el.def.Multiplicity.IsUnique(d)
}

/*
String returns a string representation of this label.
*/
func (el *EdgeLabel) String() string {
	dir := "directed"
	if el.def.Unidirected {
		dir = "unidirected"
	}
	return fmt.Sprintf("EdgeLabel %v (%v %v)", el.def.Name, el.def.Multiplicity, dir)
}

/*
VertexLabel is the label of a vertex.
*/
type VertexLabel struct {
	baseType
}

/*
IsPartitioned checks if vertices of this label are partitioned.
*/
func (vl *VertexLabel) IsPartitioned() bool {
	return vl.def.Partitioned
}

/*
String returns a string representation of this label.
*/
func (vl *VertexLabel) String() string {
	return fmt.Sprintf("VertexLabel %v", vl.def.Name)
}

/*
NewType creates a new immutable schema type from a definition.
*/
func NewType(def *Definition) Type {
	def = def.copy()

	switch def.Category {
	case CategoryEdgeLabel:
		return &EdgeLabel{baseType{def}}
	case CategoryVertexLabel:
		return &VertexLabel{baseType{def}}
	}

	return &PropertyKey{baseType{def}, ImplicitNone}
}

/*
NewPropertyKey creates a new property key definition. The multiplicity is
derived from the cardinality.
*/
func NewPropertyKey(name string, card Cardinality, dt DataType) *Definition {
	return &Definition{Category: CategoryPropertyKey, Name: name,
		Multiplicity: card.Multiplicity(), Cardinality: card, DataType: dt}
}

/*
NewEdgeLabel creates a new edge label definition.
*/
func NewEdgeLabel(name string, m Multiplicity, sortKey ...string) *Definition {
	return &Definition{Category: CategoryEdgeLabel, Name: name,
		Multiplicity: m, DataType: DataTypeObject, SortKey: sortKey}
}

/*
NewVertexLabel creates a new vertex label definition.
*/
func NewVertexLabel(name string, partitioned bool) *Definition {
	return &Definition{Category: CategoryVertexLabel, Name: name, Partitioned: partitioned}
}

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
Package data contains the in-memory element model of a graph transaction.

Elements

Vertices, edges and properties are elements. Edges and properties are
relations: an edge connects an out vertex with an in vertex, a property
attaches a value to an owner element. Every element has a lifecycle state
which is only changed through its Update function and an adjacency store
which holds the relations the element is incident on. An adjacency store is
allocated on the first insert; until then all elements share EmptyAdjacency.

Multiplicity

AddRelation, SetRelation and RemoveRelation are the only functions which
change adjacency stores. AddRelation reconciles structurally equal relations
and enforces the multiplicity of the relation type on every endpoint before
it touches any store. RemoveRelation detaches a relation from all its
endpoints.
*/
package data

import "log"

// Logging
// =======

/*
Logger is a function which processes log messages from the element model
*/
type Logger func(v ...interface{})

/*
LogInfo is called if an info message is logged
*/
var LogInfo = Logger(log.Print)

/*
LogDebug is called if a debug message is logged (by default disabled)
*/
var LogDebug = Logger(LogNull)

/*
LogNull is a discarding logger to be used for disabling loggers
*/
var LogNull = func(v ...interface{}) {
}

/*
NoID is the id of elements which have not been assigned an id yet
*/
const NoID int64 = -1

/*
DefaultVertexLabel is the label name of vertices without an explicit label
*/
const DefaultVertexLabel = "vertex"

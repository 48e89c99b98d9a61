/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package query

import (
	"fmt"

	"devt.de/krotik/common/sortutil"
)

/*
VertexIDList is a list of raw vertex ids.
*/
type VertexIDList struct {
	ids    []int64 // Vertex ids
	sorted bool    // Flag if the ids are sorted
}

/*
NewVertexIDList creates a new VertexIDList.
*/
func NewVertexIDList(ids []int64, sorted bool) *VertexIDList {
	return &VertexIDList{ids, sorted}
}

/*
Len returns the number of ids in this list.
*/
func (l *VertexIDList) Len() int {
	return len(l.ids)
}

/*
Get returns the id at a given position.
*/
func (l *VertexIDList) Get(i int) int64 {
	return l.ids[i]
}

/*
IDs returns a copy of all ids.
*/
func (l *VertexIDList) IDs() []int64 {
	return append([]int64(nil), l.ids...)
}

/*
IsSorted checks if the ids are in ascending order.
*/
func (l *VertexIDList) IsSorted() bool {
	return l.sorted
}

/*
Sort sorts the ids in ascending order.
*/
func (l *VertexIDList) Sort() {
	if !l.sorted {
		sortutil.Int64s(l.ids)
		l.sorted = true
	}
}

/*
String returns a string representation of this list.
*/
func (l *VertexIDList) String() string {
	return fmt.Sprintf("VertexIDList %v (sorted: %v)", l.ids, l.sorted)
}

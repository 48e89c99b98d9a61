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
	"bytes"
	"fmt"

	"devt.de/krotik/common/bitutil"
	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/graphstorage"
	"devt.de/krotik/graphtx/graph/schema"
	"devt.de/krotik/graphtx/graph/util"
)

/*
SliceQuery is a column range [Start, End) of a vertex row. A nil End is
unbounded. A limit of 0 means no limit.
*/
type SliceQuery struct {
	Start []byte // First column (inclusive)
	End   []byte // Last column (exclusive)
	Limit int    // Maximum number of columns
}

/*
Contains checks if a column is within the range of this slice query.
*/
func (sq *SliceQuery) Contains(col []byte) bool {
	return bytes.Compare(col, sq.Start) >= 0 && (sq.End == nil || bytes.Compare(col, sq.End) < 0)
}

/*
String returns a string representation of this slice query.
*/
func (sq *SliceQuery) String() string {
	end := "unbounded\n"
	if sq.End != nil {
		end = bitutil.HexDump(sq.End)
	}
	return fmt.Sprintf("SliceQuery (limit: %v)\nStart:\n%vEnd:\n%v", sq.Limit,
		bitutil.HexDump(sq.Start), end)
}

/*
BackendQuery is the translation of a compiled query into slice queries.
*/
type BackendQuery struct {
	Queries []*SliceQuery // Slice queries
	fitted  bool          // Flag if a single slice query returns the exact result
	sorted  bool          // Flag if a single slice query returns the result in order
}

/*
Bounds returns the slice query which should be sent to the backend. For a
single slice query this is the query itself together with the fitted and
sorted flags. For several slice queries this is the covering range without
limit which is neither fitted nor sorted.
*/
func (bq *BackendQuery) Bounds() (*SliceQuery, bool, bool) {

	if len(bq.Queries) == 1 {
		return bq.Queries[0], bq.fitted, bq.sorted
	}

	env := &SliceQuery{Start: bq.Queries[0].Start, End: bq.Queries[0].End}

	for _, sq := range bq.Queries[1:] {
		if bytes.Compare(sq.Start, env.Start) < 0 {
			env.Start = sq.Start
		}
		if env.End != nil && (sq.End == nil || bytes.Compare(sq.End, env.End) > 0) {
			env.End = sq.End
		}
	}

	return env, false, false
}

/*
Translate translates a compiled query into slice queries over the row of
its base vertex. Returns an ErrUnsatisfiableQuery error if the query
cannot have any stored result.
*/
func Translate(c *Compiled) (*BackendQuery, error) {

	if c == nil || c.Condition == nil {
		return nil, &util.GraphError{Type: util.ErrUnsatisfiableQuery, Detail: "Query has no condition"}
	}

	if _, ok := c.Base.(*data.Vertex); !ok {
		return nil, &util.GraphError{Type: util.ErrInvalidQuery,
			Detail: fmt.Sprintf("Cannot translate query on %v", c.Base)}
	}

	bq := &BackendQuery{}
	exact := true

	var cats []byte

	if c.Return == ReturnRelation || c.Return == ReturnProperty {
		if c.Direction.Includes(schema.Out) && c.Adjacent == nil {
			cats = append(cats, graphstorage.CategoryProperty)
		}
	}

	if c.Return != ReturnProperty {
		if c.Direction.Includes(schema.Out) {
			cats = append(cats, graphstorage.CategoryEdgeOut)
		}
		if c.Direction.Includes(schema.In) {
			cats = append(cats, graphstorage.CategoryEdgeIn)
		}
	}

	if c.Types == nil {

		// Whole categories - hidden relations must be filtered unless requested

		for _, cat := range cats {
			bq.Queries = append(bq.Queries, &SliceQuery{Start: []byte{cat}, End: graphstorage.Successor([]byte{cat})})
		}

		exact = c.QueryAll && len(c.Constraints) == 0 && c.Adjacent == nil
		bq.sorted = len(c.Orders) == 0

	} else {

		for _, t := range c.Types {

			if pk, ok := t.(*schema.PropertyKey); ok && pk.IsImplicit() {
				exact = false
				continue
			} else if t.IsHidden() && !c.QueryAll {
				continue
			}

			for _, cat := range cats {

				if t.IsPropertyKey() != (cat == graphstorage.CategoryProperty) {
					continue
				} else if el, ok := t.(*schema.EdgeLabel); ok && el.IsUnidirected() &&
					cat == graphstorage.CategoryEdgeIn {
					continue
				}

				sq, covered, sorted := translateType(c, t, cat)

				bq.Queries = append(bq.Queries, sq)
				exact = exact && covered
				bq.sorted = sorted
			}
		}
	}

	if len(bq.Queries) == 0 {
		return nil, &util.GraphError{Type: util.ErrUnsatisfiableQuery,
			Detail: fmt.Sprintf("No stored relations can match %v", c.Condition)}
	}

	if len(bq.Queries) == 1 {
		bq.fitted = exact

		if bq.fitted && bq.sorted {
			bq.Queries[0].Limit = c.Limit
		}
	} else {
		bq.sorted = false
	}

	return bq, nil
}

/*
translateType translates a query for a single relation type in a column
category. Returns the slice query, if all constraints of the query are
enforced by the slice query and if the columns are in the requested order.
*/
func translateType(c *Compiled, t schema.RelationType, cat byte) (*SliceQuery, bool, bool) {
	var start, end []byte

	covered := make(map[*PropertyPredicate]bool)
	prefix := graphstorage.TypePrefix(cat, t.ID())
	sortKey := t.SortKey()
	ranged := false
	adjCovered := false
	i := 0

	if cat != graphstorage.CategoryProperty {

		for ; i < len(sortKey); i++ {
			var eq, lower, upper *PropertyPredicate
			var eqEnc, lowerEnc, upperEnc []byte

			for _, pp := range c.Constraints {
				if pp.Key.Name() != sortKey[i] || !storedAs(pp.Key, pp.Value) {
					continue
				}

				enc, err := graphstorage.EncodeSortValue(pp.Value)
				if err != nil {
					continue
				}

				switch {
				case pp.Predicate == Equal && eq == nil:
					eq, eqEnc = pp, enc
				case pp.Predicate.IsRange() && pp.Predicate.isLower() && lower == nil:
					lower, lowerEnc = pp, enc
				case pp.Predicate.IsRange() && !pp.Predicate.isLower() && upper == nil:
					upper, upperEnc = pp, enc
				}
			}

			if eq != nil {
				prefix = concat(prefix, eqEnc)
				covered[eq] = true
				continue
			}

			if lower == nil && upper == nil {
				break
			}

			// Absent values are stored first and never satisfy a range

			absent, _ := graphstorage.EncodeSortValue(nil)
			start = graphstorage.Successor(concat(prefix, absent))
			end = graphstorage.Successor(prefix)

			if lower != nil {
				if b := concat(prefix, lowerEnc); lower.Predicate == GreaterThan {
					start = graphstorage.Successor(b)
				} else {
					start = b
				}
				covered[lower] = true
			}

			if upper != nil {
				if b := concat(prefix, upperEnc); upper.Predicate == LessThan {
					end = b
				} else {
					end = graphstorage.Successor(b)
				}
				covered[upper] = true
			}

			ranged = true
			break
		}

		if !ranged && i == len(sortKey) && c.Adjacent != nil && c.Adjacent.ID() != data.NoID {
			prefix = concat(prefix, graphstorage.IDBytes(c.Adjacent.ID()))
			adjCovered = true
		}
	}

	if !ranged {
		start = prefix
		end = graphstorage.Successor(prefix)
	}

	isCovered := c.Adjacent == nil || adjCovered
	for _, pp := range c.Constraints {
		isCovered = isCovered && covered[pp]
	}

	// Columns are ordered by the sort key values after the equality prefix

	isSorted := true
	for j, o := range c.Orders {
		if cat == graphstorage.CategoryProperty || adjCovered || i+j >= len(sortKey) ||
			o.Key.Name() != sortKey[i+j] || o.Order != Asc ||
			o.Key.DataType() == schema.DataTypeObject {

			isSorted = false
			break
		}
	}

	return &SliceQuery{Start: start, End: end}, isCovered, isSorted
}

/*
storedAs checks if a value has the type which is used to store values of a
given key in columns.
*/
func storedAs(key *schema.PropertyKey, v interface{}) bool {

	if v == nil {
		return key.DataType() != schema.DataTypeObject
	}

	switch key.DataType() {
	case schema.DataTypeString:
		_, ok := v.(string)
		return ok
	case schema.DataTypeInt64:
		_, ok := v.(int64)
		return ok
	case schema.DataTypeFloat64:
		_, ok := v.(float64)
		return ok
	case schema.DataTypeBool:
		_, ok := v.(bool)
		return ok
	}

	return false
}

/*
concat concatenates two byte slices into a new slice.
*/
func concat(b1 []byte, b2 []byte) []byte {
	ret := make([]byte, 0, len(b1)+len(b2))
	return append(append(ret, b1...), b2...)
}

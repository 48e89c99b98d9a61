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
	"math"
	"reflect"
	"strings"
)

/*
Predicate is a comparison between a property value and a condition value.
*/
type Predicate int

/*
Known predicates
*/
const (
	Equal Predicate = iota
	NotEqual
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
)

var predicateNames = []string{"=", "!=", "<", "<=", ">", ">="}

/*
String returns a string representation of a predicate.
*/
func (p Predicate) String() string {
	if int(p) < len(predicateNames) && p >= 0 {
		return predicateNames[p]
	}
	return fmt.Sprintf("Predicate(%d)", int(p))
}

/*
IsRange checks if this predicate bounds a value range.
*/
func (p Predicate) IsRange() bool {
	return p >= LessThan && p <= GreaterThanEqual
}

/*
isLower checks if this predicate is a lower bound.
*/
func (p Predicate) isLower() bool {
	return p == GreaterThan || p == GreaterThanEqual
}

/*
Evaluate evaluates this predicate against all values of a property. A nil
condition value stands for "no value": Equal nil holds if there are no
values and NotEqual nil holds if there is at least one value. NotEqual holds
if no value is equal to the condition value. All other predicates hold if
any value satisfies them.
*/
func (p Predicate) Evaluate(values []interface{}, cond interface{}) bool {

	if cond == nil {
		switch p {
		case Equal:
			return len(values) == 0
		case NotEqual:
			return len(values) > 0
		}
		return false
	}

	if p == NotEqual {
		for _, v := range values {
			if c, ok := compare(v, cond); ok && c == 0 {
				return false
			}
		}
		return true
	}

	for _, v := range values {
		if p.holds(v, cond) {
			return true
		}
	}

	return false
}

/*
holds evaluates this predicate for a single value.
*/
func (p Predicate) holds(v interface{}, cond interface{}) bool {
	c, ok := compare(v, cond)

	if !ok {
		return false
	}

	switch p {
	case Equal:
		return c == 0
	case LessThan:
		return c < 0
	case LessThanEqual:
		return c <= 0
	case GreaterThan:
		return c > 0
	case GreaterThanEqual:
		return c >= 0
	}

	return false
}

/*
compare compares two values. Numbers are compared by value regardless of
their type, strings lexicographically and booleans with false < true.
Other values can only be equal. Returns false if the values cannot be
compared (this includes NaN).
*/
func compare(v1 interface{}, v2 interface{}) (int, bool) {

	if v1 == nil || v2 == nil {
		if v1 == v2 {
			return 0, true
		} else if v1 == nil {
			return -1, true
		}
		return 1, true
	}

	if f1, ok := toFloat(v1); ok {
		if f2, ok := toFloat(v2); ok {

			// NaN is not ordered and equal to nothing

			if math.IsNaN(f1) || math.IsNaN(f2) {
				return 0, false
			}

			return compareFloat(f1, f2, v1, v2), true
		}
		return 0, false
	}

	switch s1 := v1.(type) {

	case string:
		if s2, ok := v2.(string); ok {
			return strings.Compare(s1, s2), true
		}
		return 0, false

	case bool:
		if b2, ok := v2.(bool); ok {
			if s1 == b2 {
				return 0, true
			} else if !s1 {
				return -1, true
			}
			return 1, true
		}
		return 0, false
	}

	if reflect.DeepEqual(v1, v2) {
		return 0, true
	}

	return 0, false
}

/*
compareFloat compares two numbers. Integers are compared exactly.
*/
func compareFloat(f1 float64, f2 float64, v1 interface{}, v2 interface{}) int {

	if i1, ok := v1.(int64); ok {
		if i2, ok := v2.(int64); ok {
			switch {
			case i1 < i2:
				return -1
			case i1 > i2:
				return 1
			}
			return 0
		}
	}

	switch {
	case f1 < f2:
		return -1
	case f1 > f2:
		return 1
	}

	return 0
}

/*
toFloat converts a number into a float64.
*/
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

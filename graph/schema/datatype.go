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
	"math"

	"devt.de/krotik/graphtx/graph/util"
)

/*
DataType is the value type of a property key.
*/
type DataType int

/*
Known data types
*/
const (
	DataTypeObject DataType = iota
	DataTypeString
	DataTypeInt64
	DataTypeFloat64
	DataTypeBool
)

var dataTypeNames = []string{"Object", "String", "Int64", "Float64", "Bool"}

/*
String returns a string representation of a data type.
*/
func (dt DataType) String() string {
	if int(dt) < len(dataTypeNames) && dt >= 0 {
		return dataTypeNames[dt]
	}
	return fmt.Sprintf("DataType(%d)", int(dt))
}

/*
Convert converts a given value into the canonical representation of this
data type. All signed and unsigned integers become int64 and all floating
point numbers become float64.
*/
func (dt DataType) Convert(v interface{}) (interface{}, error) {

	if v == nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: "Value must not be nil"}
	}

	i, isInt, isNum := toNumber(v)

	switch dt {

	case DataTypeObject:
		if isInt {
			return i, nil
		} else if isNum {
			return toFloat(v), nil
		}
		return v, nil

	case DataTypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}

	case DataTypeInt64:
		if isInt {
			return i, nil
		} else if isNum {
			if f := toFloat(v); f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
				return int64(f), nil
			}
		}

	case DataTypeFloat64:
		if isNum {
			if f := toFloat(v); !math.IsNaN(f) {
				return f, nil
			}
		}

	case DataTypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}

	return nil, &util.GraphError{Type: util.ErrInvalidData,
		Detail: fmt.Sprintf("Value %v (%T) is not of data type %v", v, v, dt)}
}

/*
toNumber checks if a given value is a number. Integers are returned as int64.
*/
func toNumber(v interface{}) (int64, bool, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true, true
	case int8:
		return int64(n), true, true
	case int16:
		return int64(n), true, true
	case int32:
		return int64(n), true, true
	case int64:
		return n, true, true
	case uint8:
		return int64(n), true, true
	case uint16:
		return int64(n), true, true
	case uint32:
		return int64(n), true, true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true, true
		}
		return 0, false, true
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true, true
		}
		return 0, false, true
	case float32, float64:
		return 0, false, true
	}
	return 0, false, false
}

/*
toFloat converts a number into a float64.
*/
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	}
	i, _, _ := toNumber(v)
	return float64(i)
}

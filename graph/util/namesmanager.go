/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import "encoding/binary"

/*
PrefixCode is the prefix for entries storing codes
*/
const PrefixCode = "\x00"

/*
PrefixName is the prefix for entries storing names
*/
const PrefixName = "\x01"

/*
PrefixCounter is the prefix for counter entries
*/
const PrefixCounter = "\x02"

/*
Category prefixes for schema names
*/
const (
	PrefixPropertyKey = "\x01"
	PrefixEdgeLabel   = "\x02"
	PrefixVertexLabel = "\x03"
)

/*
NamesManager data structure
*/
type NamesManager struct {
	nameDB map[string]string // Database storing names
}

/*
NewNamesManager creates a new names manager instance.
*/
func NewNamesManager(nameDB map[string]string) *NamesManager {
	return &NamesManager{nameDB}
}

/*
Encode returns the count of a name in a given category. If the create flag
is set to false then a new entry will not be created if it does not exist
and 0 is returned.
*/
func (nm *NamesManager) Encode(prefix string, name string, create bool) uint64 {
	codekey := PrefixCode + prefix + name

	code, ok := nm.nameDB[codekey]

	// If the code doesn't exist yet create it

	if !ok {
		if !create {
			return 0
		}

		code = nm.newCode(prefix)

		nm.nameDB[codekey] = code
		nm.nameDB[PrefixName+prefix+code] = name
	}

	return binary.BigEndian.Uint64([]byte(code))
}

/*
Decode returns the name of a given count in a category.
*/
func (nm *NamesManager) Decode(prefix string, count uint64) string {
	return nm.nameDB[PrefixName+prefix+codeString(count)]
}

/*
newCode generates a new 64 bit number for a category.
*/
func (nm *NamesManager) newCode(prefix string) string {
	var resnum uint64

	// Calculate count entry

	countAttr := PrefixCounter + prefix

	val, ok := nm.nameDB[countAttr]
	if !ok {
		resnum = 1
	} else {
		resnum = binary.BigEndian.Uint64([]byte(val)) + 1
	}

	res := codeString(resnum)

	// Write back

	nm.nameDB[countAttr] = res

	return res
}

/*
codeString converts a count into its string representation.
*/
func codeString(count uint64) string {
	resStr := make([]byte, 8)
	binary.BigEndian.PutUint64(resStr, count)
	return string(resStr)
}

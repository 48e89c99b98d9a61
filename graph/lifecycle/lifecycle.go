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
Package lifecycle contains the state machine which governs the lifecycle of
vertices, edges and properties within a transaction.

States

An element is either New (created in the current transaction), Loaded (read
from storage) or Removed. A loaded element which was changed moves into one
of the modified states: AddedRelations, RemovedRelations or Modified (both
or a property change). New elements are always considered modified.

Removed is terminal. Every event applied to a removed element is an invalid
state transition.
*/
package lifecycle

import (
	"fmt"

	"devt.de/krotik/graphtx/graph/util"
)

/*
State is the lifecycle state of an element.
*/
type State byte

/*
Lifecycle states
*/
const (
	Undefined State = iota
	New
	Loaded
	AddedRelations
	RemovedRelations
	Modified
	Removed
)

var stateNames = map[State]string{
	Undefined:        "Undefined",
	New:              "New",
	Loaded:           "Loaded",
	AddedRelations:   "AddedRelations",
	RemovedRelations: "RemovedRelations",
	Modified:         "Modified",
	Removed:          "Removed",
}

/*
String returns a string representation of a state.
*/
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", byte(s))
}

/*
Event is a lifecycle event.
*/
type Event byte

/*
Lifecycle events
*/
const (
	Created Event = iota + 1
	LoadedEvent
	RemovedEvent
	ModifiedProperty
	ModifiedRelation
	RemovedRelation
)

var eventNames = map[Event]string{
	Created:          "Created",
	LoadedEvent:      "Loaded",
	RemovedEvent:     "Removed",
	ModifiedProperty: "ModifiedProperty",
	ModifiedRelation: "ModifiedRelation",
	RemovedRelation:  "RemovedRelation",
}

/*
String returns a string representation of an event.
*/
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", byte(e))
}

/*
Update calculates the state which results from applying an event to a given
state.
*/
func Update(s State, e Event) (State, error) {

	invalid := func() (State, error) {
		return s, &util.GraphError{Type: util.ErrInvalidStateTransition,
			Detail: fmt.Sprintf("Cannot apply %v to %v element", e, s)}
	}

	if s == Removed {
		return invalid()
	}

	switch e {

	case Created:
		if s == Undefined {
			return New, nil
		}

	case LoadedEvent:

		// New elements are reconciled to Loaded if they match stored data

		if s == Undefined || s == New || s == Loaded {
			return Loaded, nil
		}

	case RemovedEvent:
		if s != Undefined {
			return Removed, nil
		}

	case ModifiedProperty:
		if s == New {
			return New, nil
		} else if s != Undefined {
			return Modified, nil
		}

	case ModifiedRelation:
		switch s {
		case New:
			return New, nil
		case Loaded, AddedRelations:
			return AddedRelations, nil
		case RemovedRelations, Modified:
			return Modified, nil
		}

	case RemovedRelation:
		switch s {
		case New:
			return New, nil
		case Loaded, RemovedRelations:
			return RemovedRelations, nil
		case AddedRelations, Modified:
			return Modified, nil
		}
	}

	return invalid()
}

/*
IsNew checks if a state is New.
*/
func IsNew(s State) bool {
	return s == New
}

/*
IsLoaded checks if a state is Loaded (and unmodified).
*/
func IsLoaded(s State) bool {
	return s == Loaded
}

/*
IsRemoved checks if a state is Removed.
*/
func IsRemoved(s State) bool {
	return s == Removed
}

/*
IsModified checks if an element in a given state holds unpersisted changes.
*/
func IsModified(s State) bool {
	return s == New || (s >= AddedRelations && s <= Modified)
}

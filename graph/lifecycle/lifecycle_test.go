/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package lifecycle

import (
	"errors"
	"testing"

	"devt.de/krotik/graphtx/graph/util"
)

var allEvents = []Event{Created, LoadedEvent, RemovedEvent,
	ModifiedProperty, ModifiedRelation, RemovedRelation}

func TestTransitions(t *testing.T) {

	apply := func(s State, events ...Event) (State, error) {
		var err error
		for _, e := range events {
			if s, err = Update(s, e); err != nil {
				break
			}
		}
		return s, err
	}

	tests := []struct {
		events []Event
		result State
	}{
		{[]Event{Created}, New},
		{[]Event{Created, ModifiedProperty, ModifiedRelation, RemovedRelation}, New},
		{[]Event{Created, RemovedEvent}, Removed},
		{[]Event{Created, LoadedEvent}, Loaded},
		{[]Event{LoadedEvent}, Loaded},
		{[]Event{LoadedEvent, LoadedEvent}, Loaded},
		{[]Event{LoadedEvent, ModifiedRelation}, AddedRelations},
		{[]Event{LoadedEvent, RemovedRelation}, RemovedRelations},
		{[]Event{LoadedEvent, ModifiedRelation, RemovedRelation}, Modified},
		{[]Event{LoadedEvent, RemovedRelation, ModifiedRelation}, Modified},
		{[]Event{LoadedEvent, ModifiedProperty}, Modified},
		{[]Event{LoadedEvent, ModifiedProperty, RemovedEvent}, Removed},
	}

	for _, test := range tests {
		res, err := apply(Undefined, test.events...)
		if err != nil || res != test.result {
			t.Error("Unexpected result:", test.events, res, err)
			return
		}
	}

	// Invalid transitions

	if _, err := Update(Undefined, ModifiedProperty); !errors.Is(err, util.ErrInvalidStateTransition) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := Update(Loaded, Created); err == nil ||
		err.Error() != "GraphError: Invalid state transition (Cannot apply Created to Loaded element)" {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := Update(Modified, LoadedEvent); err == nil {
		t.Error("Modified element should not be reloaded")
		return
	}
}

func TestRemovedIsTerminal(t *testing.T) {

	for _, e := range allEvents {
		s, err := Update(Removed, e)

		if err == nil || !IsRemoved(s) {
			t.Error("Removed element should not accept event:", e, s)
			return
		}

		if res := err.Error(); res != "GraphError: Invalid state transition (Cannot apply "+
			e.String()+" to Removed element)" {
			t.Error("Unexpected result:", res)
			return
		}
	}

	// Any sequence of events keeps a removed element removed

	s := Removed
	for i := 0; i < 20; i++ {
		s, _ = Update(s, allEvents[i%len(allEvents)])
		if !IsRemoved(s) {
			t.Error("Element left removed state")
			return
		}
	}
}

func TestStateQueries(t *testing.T) {

	if !IsNew(New) || IsNew(Loaded) || !IsLoaded(Loaded) || IsLoaded(Modified) {
		t.Error("Unexpected state classification")
		return
	}

	for _, s := range []State{New, AddedRelations, RemovedRelations, Modified} {
		if !IsModified(s) {
			t.Error("State should be modified:", s)
			return
		}
	}

	for _, s := range []State{Undefined, Loaded, Removed} {
		if IsModified(s) {
			t.Error("State should not be modified:", s)
			return
		}
	}

	if res := State(99).String(); res != "State(99)" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Event(99).String(); res != "Event(99)" {
		t.Error("Unexpected result:", res)
		return
	}
}

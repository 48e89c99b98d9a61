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
Package ecal forwards graph events to the event condition action language
(ECAL) and to websocket clients.

EventBridge

The event bridge is a graph rule which injects graph events into an ECAL
event processor. Sinks can veto a mutation by raising an error or mark an
event as handled.

EventStream

The event stream is a graph rule and an HTTP handler. Clients connect via
websocket and receive every graph event as a JSON object.
*/
package ecal

import (
	"errors"
	"fmt"
	"strings"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/ecal/engine"
	"devt.de/krotik/ecal/scope"
	"devt.de/krotik/ecal/util"
	"devt.de/krotik/graphtx/config"
	"devt.de/krotik/graphtx/graph"
	"devt.de/krotik/graphtx/graph/data"
	"devt.de/krotik/graphtx/graph/schema"
)

/*
EventMapping is a mapping between graph event types and event kinds in ECAL.
*/
var EventMapping = map[int]string{

	/*
	   EventVertexCreated is thrown when a vertex was created.

	   State: tx, vertex
	*/
	graph.EventVertexCreated: "db.vertex.created",

	/*
	   EventVertexRemoved is thrown before a vertex is removed.

	   State: tx, vertex
	*/
	graph.EventVertexRemoved: "db.vertex.removed",

	/*
	   EventRelationAdded is thrown when an edge or a property was added.

	   State: tx, relation
	*/
	graph.EventRelationAdded: "db.relation.added",

	/*
	   EventRelationRemoved is thrown when an edge or a property was removed.

	   State: tx, relation
	*/
	graph.EventRelationRemoved: "db.relation.removed",

	/*
	   EventPropertySet is thrown when a single valued property was set.

	   State: tx, relation, old
	*/
	graph.EventPropertySet: "db.property.set",

	/*
	   EventCommit is thrown after a transaction was written.

	   State: tx, columns
	*/
	graph.EventCommit: "db.commit",
}

/*
NewEventProcessor creates an ECAL event processor with the configured number
of workers.
*/
func NewEventProcessor() engine.Processor {
	return engine.NewProcessor(int(config.Int(config.ECALWorkerCount)))
}

/*
AttachEventBridge forwards all graph events of a graph manager to an ECAL
event processor if the bridge is enabled in the configuration.
*/
func AttachEventBridge(gm *graph.Manager, proc engine.Processor) bool {

	if !config.Bool(config.EnableECALBridge) {
		return false
	}

	gm.SetGraphRule(&EventBridge{
		Processor: proc,
		Logger:    gm.Logger(),
	})

	return true
}

/*
EventBridge is a rule for a graph manager to forward all graph events to ECAL.
*/
type EventBridge struct {
	Processor engine.Processor
	Logger    util.Logger
}

/*
Name returns the name of the rule.
*/
func (eb *EventBridge) Name() string {
	return "ecal.eventbridge"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (eb *EventBridge) Handles() []int {
	return []int{
		graph.EventVertexCreated,
		graph.EventVertexRemoved,
		graph.EventRelationAdded,
		graph.EventRelationRemoved,
		graph.EventPropertySet,
		graph.EventCommit,
	}
}

/*
Handle handles an event.
*/
func (eb *EventBridge) Handle(gm *graph.Manager, tx *graph.Tx, event int, ed ...interface{}) error {
	var err error

	if name, ok := EventMapping[event]; ok {
		eventName := fmt.Sprintf("graphtx: %v", name)
		eventKind := strings.Split(name, ".")

		// Construct an event which can be used to check if any rule will trigger.
		// This is to avoid the relative costly state construction below for events
		// which would not trigger any rules.

		triggerCheckEvent := engine.NewEvent(eventName, eventKind, nil)

		if !eb.Processor.IsTriggering(triggerCheckEvent) {
			return nil
		}

		// Build up state

		state := make(map[interface{}]interface{})

		for k, v := range EventObject(tx, event, ed...) {
			if k != "event" {
				state[k] = scope.ConvertJSONToECALObject(v)
			}
		}

		// Try to inject the event

		var m engine.Monitor
		m, err = eb.Processor.AddEventAndWait(engine.NewEvent(eventName, eventKind, state), nil)

		if err == nil {

			// If there was no direct error adding the event then check if an error was
			// raised in a sink

			if errs := m.(*engine.RootMonitor).AllErrors(); len(errs) > 0 {
				var errList []error

				for _, e := range errs {

					addError := true

					for _, se := range e.ErrorMap {
						if isEventHandled(se) {
							addError = false
						}
					}

					if addError {
						errList = append(errList, e)
					}
				}

				if len(errList) > 0 {
					err = &errorutil.CompositeError{Errors: errList}
				} else {
					err = graph.ErrEventHandled
				}
			}
		}

		if err != nil && eb.Logger != nil {
			eb.Logger.LogDebug(fmt.Sprintf("Graph event %v was handled by ECAL and returned: %v", name, err))
		}
	}

	return err
}

/*
isEventHandled checks if a sink error signals a handled event. ECAL scripts
raise a runtime error with the text of graph.ErrEventHandled as detail.
*/
func isEventHandled(err error) bool {
	if re, ok := err.(*util.RuntimeErrorWithDetail); ok {
		return re.Detail == graph.ErrEventHandled.Error()
	}
	return errors.Is(err, graph.ErrEventHandled)
}

// Event objects
// =============

/*
EventObject returns a JSON compatible object which describes a graph event.
*/
func EventObject(tx *graph.Tx, event int, ed ...interface{}) map[string]interface{} {
	ret := map[string]interface{}{
		"event": graph.EventNames[event],
	}

	if tx != nil {
		ret["tx"] = tx.ID()
	}

	switch event {

	case graph.EventVertexCreated, graph.EventVertexRemoved:
		ret["vertex"] = vertexObject(ed[0].(*data.Vertex))

	case graph.EventRelationAdded, graph.EventRelationRemoved:
		ret["relation"] = relationObject(ed[0].(data.Relation))

	case graph.EventPropertySet:
		ret["relation"] = relationObject(ed[0].(data.Relation))
		ret["old"] = ed[1]

	case graph.EventCommit:
		ret["columns"] = ed[1]
	}

	return ret
}

func vertexObject(v *data.Vertex) map[string]interface{} {
	return map[string]interface{}{
		"id":    v.ID(),
		"label": v.Label(),
	}
}

func relationObject(r data.Relation) map[string]interface{} {

	if p, ok := r.(*data.Property); ok {
		return map[string]interface{}{
			"kind":  "property",
			"id":    p.ID(),
			"key":   p.Label(),
			"owner": p.Owner().ID(),
			"value": p.Value(),
		}
	}

	e := r.(*data.Edge)

	return map[string]interface{}{
		"kind":       "edge",
		"id":         e.ID(),
		"label":      e.Label(),
		"out":        e.Vertex(schema.Out).ID(),
		"in":         e.Vertex(schema.In).ID(),
		"properties": data.PropertyMap(e),
	}
}

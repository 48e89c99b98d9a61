/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecal

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/graphtx/config"
	"devt.de/krotik/graphtx/graph"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

/*
EventStream pushes graph events to websocket clients. It is a graph rule and
an HTTP handler which accepts new clients.

Clients receive an init_success message with their id. A client can send
{"events": [<event name>, ...]} to restrict the events it receives; the
stream answers with a subscribed message.
*/
type EventStream struct {
	upgrader   websocket.Upgrader
	clients    *datautil.MapCache // Connected clients by id
	maxClients int                // Maximum number of connected clients
	lock       sync.Mutex         // Lock for adding clients
}

/*
NewEventStream creates a new event stream. The maximum number of clients is
taken from the configuration.
*/
func NewEventStream() *EventStream {
	return &EventStream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    datautil.NewMapCache(0, 0),
		maxClients: int(config.Int(config.EventStreamMaxClients)),
	}
}

/*
Clients returns the ids of all connected clients.
*/
func (es *EventStream) Clients() []string {
	var ret []string

	for id := range es.clients.GetAll() {
		ret = append(ret, id)
	}

	sort.Strings(ret)

	return ret
}

/*
Close closes the connections of all clients.
*/
func (es *EventStream) Close() {
	for _, c := range es.clients.GetAll() {
		c.(*WebsocketConnection).Close("Event stream closed")
	}
}

/*
ServeHTTP upgrades a request to a websocket and registers the client until
the connection is closed.
*/
func (es *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	es.lock.Lock()

	if int(es.clients.Size()) >= es.maxClients {
		es.lock.Unlock()
		http.Error(w, "Too many event stream clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := es.upgrader.Upgrade(w, r, nil)
	if err != nil {

		// The upgrader has replied already

		es.lock.Unlock()
		return
	}

	wc := NewWebsocketConnection(uuid.New().String(), conn)
	es.clients.Put(wc.CommID, wc)

	es.lock.Unlock()

	defer func() {
		es.clients.Remove(wc.CommID)
		conn.Close()
	}()

	if err := wc.Init(); err != nil {
		return
	}

	for {
		msg, fatal, err := wc.ReadData()

		if fatal {
			return
		} else if err != nil {
			wc.WriteMessage("error", map[string]interface{}{"error": err.Error()})
			continue
		}

		var names []string

		if events, ok := msg["events"].([]interface{}); ok {
			for _, e := range events {
				names = append(names, fmt.Sprint(e))
			}
		}

		wc.Subscribe(names)

		wc.WriteMessage("subscribed", map[string]interface{}{"events": names})
	}
}

/*
Name returns the name of the rule.
*/
func (es *EventStream) Name() string {
	return "ecal.eventstream"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (es *EventStream) Handles() []int {
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
Handle sends an event to all subscribed clients. Failed writes are logged
and never fail the transaction.
*/
func (es *EventStream) Handle(gm *graph.Manager, tx *graph.Tx, event int, ed ...interface{}) error {
	var obj map[string]interface{}

	name := graph.EventNames[event]

	for id, c := range es.clients.GetAll() {
		wc := c.(*WebsocketConnection)

		if !wc.Accepts(name) {
			continue
		}

		if obj == nil {
			obj = EventObject(tx, event, ed...)
		}

		if err := wc.WriteData(obj); err != nil {
			gm.Logger().LogDebug(fmt.Sprintf("Could not send event %v to client %v: %v", name, id, err))
		}
	}

	return nil
}

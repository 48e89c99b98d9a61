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
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

/*
WebsocketConnection models a single websocket connection.

Websocket connections support one concurrent reader and one concurrent writer.
See: https://godoc.org/github.com/gorilla/websocket#hdr-Concurrency
*/
type WebsocketConnection struct {
	CommID string
	Conn   *websocket.Conn
	RMutex *sync.Mutex
	WMutex *sync.Mutex

	events map[string]bool // Subscribed event names (nil for all events)
}

/*
NewWebsocketConnection creates a new WebsocketConnection object.
*/
func NewWebsocketConnection(commID string, c *websocket.Conn) *WebsocketConnection {
	return &WebsocketConnection{
		CommID: commID,
		Conn:   c,
		RMutex: &sync.Mutex{},
		WMutex: &sync.Mutex{}}
}

/*
Init initializes the websocket connection.
*/
func (wc *WebsocketConnection) Init() error {
	return wc.WriteMessage("init_success", map[string]interface{}{
		"commID": wc.CommID,
	})
}

/*
Subscribe restricts the events which are sent to this connection. An empty
list subscribes to all events.
*/
func (wc *WebsocketConnection) Subscribe(names []string) {
	wc.WMutex.Lock()
	defer wc.WMutex.Unlock()

	wc.events = nil

	if len(names) > 0 {
		wc.events = make(map[string]bool)
		for _, name := range names {
			wc.events[name] = true
		}
	}
}

/*
Accepts checks if this connection is subscribed to an event.
*/
func (wc *WebsocketConnection) Accepts(name string) bool {
	wc.WMutex.Lock()
	defer wc.WMutex.Unlock()

	return wc.events == nil || wc.events[name]
}

/*
ReadData reads data from the websocket connection.
*/
func (wc *WebsocketConnection) ReadData() (map[string]interface{}, bool, error) {
	var data map[string]interface{}
	var fatal = true

	wc.RMutex.Lock()
	_, msg, err := wc.Conn.ReadMessage()
	wc.RMutex.Unlock()

	if err == nil {
		fatal = false
		err = json.Unmarshal(msg, &data)
	}

	return data, fatal, err
}

/*
WriteData writes data to the websocket.
*/
func (wc *WebsocketConnection) WriteData(data map[string]interface{}) error {
	return wc.WriteMessage("data", data)
}

/*
WriteMessage writes a message of a given type to the websocket.
*/
func (wc *WebsocketConnection) WriteMessage(msgType string, payload map[string]interface{}) error {
	jsonData, err := json.Marshal(map[string]interface{}{
		"commID":  wc.CommID,
		"type":    msgType,
		"payload": payload,
	})

	if err == nil {
		wc.WMutex.Lock()
		err = wc.Conn.WriteMessage(websocket.TextMessage, jsonData)
		wc.WMutex.Unlock()
	}

	return err
}

/*
Close closes the websocket connection.
*/
func (wc *WebsocketConnection) Close(msg string) {
	wc.WMutex.Lock()
	wc.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(
			websocket.CloseNormalClosure, msg), time.Now().Add(10*time.Second))
	wc.WMutex.Unlock()

	wc.Conn.Close()
}

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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"devt.de/krotik/graphtx/config"
	"github.com/gorilla/websocket"
)

/*
readMessage reads a JSON message from a websocket.
*/
func readMessage(c *websocket.Conn) (map[string]interface{}, error) {
	var ret map[string]interface{}

	c.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, msg, err := c.ReadMessage()
	if err == nil {
		err = json.Unmarshal(msg, &ret)
	}

	return ret, err
}

/*
waitForClients waits until an event stream has a given number of clients.
*/
func waitForClients(es *EventStream, n int) bool {
	for i := 0; i < 100; i++ {
		if len(es.Clients()) == n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestEventStream(t *testing.T) {
	config.LoadDefaultConfig()
	config.Config[config.EventStreamMaxClients] = "1"
	defer config.LoadDefaultConfig()

	gm := newTestManager()

	es := NewEventStream()
	gm.SetGraphRule(es)

	srv := httptest.NewServer(es)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Error("Could not open websocket:", err)
		return
	}

	msg, err := readMessage(c)
	if err != nil || msg["type"] != "init_success" {
		t.Error("Unexpected response:", msg, err)
		return
	}

	commID := msg["commID"]

	if !waitForClients(es, 1) || fmt.Sprint(es.Clients()) != fmt.Sprintf("[%v]", commID) {
		t.Error("Unexpected result:", es.Clients(), commID)
		return
	}

	// Only one client is allowed

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Error("Unexpected result:", resp, err)
		return
	}

	// Subscribe to some events

	err = c.WriteMessage(websocket.TextMessage, []byte(`{"events":["vertex.created","commit"]}`))
	if err != nil {
		t.Error("Could not send message:", err)
		return
	}

	if msg, err := readMessage(c); err != nil || msg["type"] != "subscribed" ||
		fmt.Sprint(msg["payload"]) != "map[events:[vertex.created commit]]" {
		t.Error("Unexpected response:", msg, err)
		return
	}

	tx := gm.NewTx()

	v, _ := tx.AddVertex("person")
	tx.AddProperty(v, "name", "a")

	if err := tx.Commit(); err != nil {
		t.Error(err)
		return
	}

	msg, err = readMessage(c)
	if err != nil || msg["type"] != "data" || msg["commID"] != commID {
		t.Error("Unexpected response:", msg, err)
		return
	}

	payload := msg["payload"].(map[string]interface{})

	if payload["event"] != "vertex.created" || payload["tx"] != tx.ID() ||
		fmt.Sprint(payload["vertex"]) != fmt.Sprintf("map[id:%v label:person]", v.ID()) {
		t.Error("Unexpected response:", payload)
		return
	}

	// The added property was filtered

	msg, err = readMessage(c)
	if err != nil || msg["type"] != "data" {
		t.Error("Unexpected response:", msg, err)
		return
	}

	if res := fmt.Sprint(msg["payload"]); res != fmt.Sprintf("map[columns:2 event:commit tx:%v]", tx.ID()) {
		t.Error("Unexpected response:", res)
		return
	}

	// Invalid messages are answered with an error

	c.WriteMessage(websocket.TextMessage, []byte(`{`))

	if msg, err := readMessage(c); err != nil || msg["type"] != "error" {
		t.Error("Unexpected response:", msg, err)
		return
	}

	// Closed clients are removed

	c.Close()

	if !waitForClients(es, 0) {
		t.Error("Client should have been removed:", es.Clients())
		return
	}

	// Events without clients are dropped

	tx = gm.NewTx()
	tx.AddVertex("person")

	if err := tx.Commit(); err != nil {
		t.Error(err)
		return
	}
}

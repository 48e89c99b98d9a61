/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/graphtx/config"
	"github.com/gorilla/websocket"
)

var printLog []string
var printLock sync.Mutex

func TestMain(m *testing.M) {

	// Log all print messages

	print = func(v ...interface{}) {
		printLock.Lock()
		printLog = append(printLog, fmt.Sprint(v...))
		printLock.Unlock()
	}

	m.Run()
}

func logged(msg string) bool {
	printLock.Lock()
	defer printLock.Unlock()

	for _, l := range printLog {
		if strings.Contains(l, msg) {
			return true
		}
	}

	return false
}

func TestServer(t *testing.T) {
	config.LoadDefaultConfig()
	config.Config[config.HTTPPort] = "0"
	config.Config[config.EnableECALBridge] = true
	defer config.LoadDefaultConfig()

	s, err := NewServer("test")
	if err != nil {
		t.Error(err)
		return
	}

	if s.Addr() != "" {
		t.Error("Unexpected result:", s.Addr())
		return
	}

	if err := s.Start(); err != nil {
		t.Error(err)
		return
	}

	if err := s.Start(); err == nil || err.Error() != "Server was already started" {
		t.Error("Unexpected result:", err)
		return
	}

	if !logged("Forwarding graph events to ECAL") || !logged("Starting server on: "+s.Addr()) {
		t.Error("Unexpected log:", printLog)
		return
	}

	// Connect an event stream client

	c, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+EndpointEvents, nil)
	if err != nil {
		t.Error("Could not open websocket:", err)
		return
	}
	defer c.Close()

	c.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]interface{}

	if _, data, err := c.ReadMessage(); err != nil || json.Unmarshal(data, &msg) != nil ||
		msg["type"] != "init_success" {
		t.Error("Unexpected response:", msg, err)
		return
	}

	tx := s.GM.NewTx()
	tx.AddVertex("person")

	if err := tx.Commit(); err != nil {
		t.Error(err)
		return
	}

	// The client receives the events of the commit

	if _, data, err := c.ReadMessage(); err != nil || !strings.Contains(string(data), "vertex.created") {
		t.Error("Unexpected response:", string(data), err)
		return
	}

	// Metrics are served

	resp, err := http.Get("http://" + s.Addr() + EndpointMetrics)
	if err != nil {
		t.Error(err)
		return
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if res := string(body); !strings.Contains(res, `graphtx_commits_total{result="ok"} 1`) ||
		!strings.Contains(res, `graphtx_mutations_total{op="add_vertex"} 1`) ||
		!strings.Contains(res, "go_goroutines") {
		t.Error("Unexpected result:", res)
		return
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Error(err)
		return
	}

	// Clients are disconnected

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	if _, err := http.Get("http://" + s.Addr() + EndpointMetrics); err == nil {
		t.Error("Server should not be reachable")
		return
	}
}

func TestServerDiskStorage(t *testing.T) {
	config.LoadDefaultConfig()
	config.Config[config.MemoryOnlyStorage] = false
	config.Config[config.LocationDatastore] = filepath.Join(t.TempDir(), "db")
	defer config.LoadDefaultConfig()

	s, err := NewServer("test")
	if err != nil {
		t.Error(err)
		return
	}

	if res, _ := fileutil.PathExists(config.DatastorePath("test")); !res {
		t.Error("Storage directory should exist")
		return
	}

	tx := s.GM.NewTx()
	v, _ := tx.AddVertex("person")

	if err := tx.Commit(); err != nil {
		t.Error(err)
		return
	}

	// Shutdown without start only closes the storage

	if err := s.Shutdown(context.Background()); err != nil {
		t.Error(err)
		return
	}

	s, err = NewServer("test")
	if err != nil {
		t.Error(err)
		return
	}
	defer s.Shutdown(context.Background())

	if res, err := s.GM.NewTx().GetVertex(v.ID()); err != nil || res == nil || res.Label() != "person" {
		t.Error("Unexpected result:", res, err)
		return
	}
}

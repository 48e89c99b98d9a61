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
Package server contains an HTTP server which exposes a graph manager.

The server opens the configured graph storage and serves two endpoints:

	/events   websocket stream of graph events
	/metrics  Prometheus metrics of the graph manager

If the ECAL bridge is enabled all graph events are also forwarded to an ECAL
event processor which is started and stopped together with the server.
*/
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/ecal/engine"
	"devt.de/krotik/graphtx/config"
	"devt.de/krotik/graphtx/ecal"
	"devt.de/krotik/graphtx/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/*
Using custom consolelogger type so we can capture server output in unit tests.
*/
type consolelogger func(v ...interface{})

var print = consolelogger(log.Print)

/*
Endpoints of the server
*/
const (
	EndpointEvents  = "/events"
	EndpointMetrics = "/metrics"
)

/*
Server serves the event stream and the metrics of a graph manager.
*/
type Server struct {
	GM        *graph.Manager       // Graph manager of the server
	Processor engine.Processor     // ECAL processor which receives graph events
	Stream    *ecal.EventStream    // Websocket event stream
	Registry  *prometheus.Registry // Registry of all metrics

	bridge   bool         // Flag if the ECAL bridge is attached
	hs       *http.Server // Running HTTP server
	listener net.Listener // Listener of the HTTP server
}

/*
NewServer opens the configured graph storage with a given name and creates a
graph manager for it.
*/
func NewServer(name string) (*Server, error) {

	config.EnsureConfig()

	if config.Bool(config.MemoryOnlyStorage) {
		print("Starting memory only datastore")

	} else {
		loc := config.Str(config.LocationDatastore)

		print("Starting datastore in ", config.DatastorePath(name))

		// Ensure path for database exists

		if err := ensurePath(loc); err != nil {
			return nil, err
		}
	}

	gs, err := graph.OpenStorage(name)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	print("Creating graph manager instance")

	gm, err := graph.NewManager(gs, reg)
	if err != nil {
		gs.Close()
		return nil, err
	}

	s := &Server{
		GM:        gm,
		Processor: ecal.NewEventProcessor(),
		Stream:    ecal.NewEventStream(),
		Registry:  reg,
	}

	gm.SetGraphRule(s.Stream)

	if s.bridge = ecal.AttachEventBridge(gm, s.Processor); s.bridge {
		print("Forwarding graph events to ECAL")
	}

	return s, nil
}

/*
Handler returns the HTTP handler of the server.
*/
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(EndpointEvents, s.Stream)
	mux.Handle(EndpointMetrics, promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))

	return mux
}

/*
Start starts the HTTP server on the configured host and port. The server runs
until Shutdown is called.
*/
func (s *Server) Start() error {

	if s.hs != nil {
		return errors.New("Server was already started")
	}

	l, err := net.Listen("tcp", net.JoinHostPort(config.Str(config.HTTPHost),
		config.Str(config.HTTPPort)))
	if err != nil {
		return err
	}

	if s.bridge {
		s.Processor.Start()
	}

	s.listener = l
	s.hs = &http.Server{Handler: s.Handler()}

	print("Starting server on: ", l.Addr())

	go func() {
		if err := s.hs.Serve(l); err != nil && err != http.ErrServerClosed {
			print("Server stopped: ", err)
		}
	}()

	return nil
}

/*
Addr returns the address of the running server.
*/
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

/*
Shutdown stops the HTTP server, disconnects all event stream clients and
closes the graph storage.
*/
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	print("Shutting down")

	if s.hs != nil {
		if err := s.hs.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		// Websocket connections are hijacked and not closed by the HTTP server

		s.Stream.Close()

		if s.bridge {
			s.Processor.Finish()
		}
	}

	print("Closing datastore")

	if err := s.GM.Storage().Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return &errorutil.CompositeError{Errors: errs}
	}

	return nil
}

/*
ensurePath ensures that a given relative path exists.
*/
func ensurePath(path string) error {
	if res, _ := fileutil.PathExists(path); !res {
		return os.MkdirAll(path, 0770)
	}
	return nil
}

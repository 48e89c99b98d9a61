/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"fmt"
	"strconv"
	"sync"

	"devt.de/krotik/ecal/util"
	"devt.de/krotik/graphtx/config"
	"devt.de/krotik/graphtx/graph/graphstorage"
	"devt.de/krotik/graphtx/graph/idmanager"
	"devt.de/krotik/graphtx/graph/schema"
	gutil "devt.de/krotik/graphtx/graph/util"
	"github.com/prometheus/client_golang/prometheus"
)

/*
Manager data structure
*/
type Manager struct {
	gs        graphstorage.Storage       // Graph storage of this graph manager
	gr        *graphRulesManager         // Manager for graph rules
	im        *idmanager.IDManager       // Id layout
	alloc     *idmanager.SimpleAllocator // Allocator for new ids
	registrar *schema.StorageProvider    // Schema definitions in the main database
	provider  schema.Provider            // Provider for all transaction registries
	shared    *schema.SharedCache        // Schema cache shared by all transactions
	logger    util.Logger                // Logger for commits and rules
	metrics   *Metrics                   // Metric collectors
	mainLock  *sync.Mutex                // Lock for the main database
	mutex     *sync.RWMutex              // Mutex to protect commits
}

/*
NewManager returns a new Manager instance. Metrics are registered with the
given registerer (may be nil).
*/
func NewManager(gs graphstorage.Storage, reg prometheus.Registerer) (*Manager, error) {
	gm, err := createManager(gs, reg)

	if err == nil {
		gm.SetGraphRule(&SystemRuleRemoveVertexRelations{})
	}

	return gm, err
}

/*
createManager creates a new Manager instance.
*/
func createManager(gs graphstorage.Storage, reg prometheus.Registerer) (*Manager, error) {

	config.EnsureConfig()

	mdb := gs.MainDB()

	// Check version

	if version, ok := mdb[MainDBVersion]; !ok {

		mdb[MainDBVersion] = strconv.Itoa(VERSION)

	} else if v, _ := strconv.Atoi(version); v > VERSION {

		return nil, &gutil.GraphError{Type: gutil.ErrOpening,
			Detail: fmt.Sprintf("Cannot open graph storage of version: %v - "+
				"max supported version: %v", version, VERSION)}
	}

	// The partition bits of an existing storage cannot change

	if _, ok := mdb[MainDBPartitionBits]; !ok {
		mdb[MainDBPartitionBits] = config.Str(config.PartitionBits)
	}

	bits, err := strconv.ParseUint(mdb[MainDBPartitionBits], 10, 8)
	if err != nil {
		return nil, &gutil.GraphError{Type: gutil.ErrInvalidData,
			Detail: fmt.Sprint("Invalid partition bits: ", mdb[MainDBPartitionBits])}
	}

	im, err := idmanager.NewIDManager(uint(bits))
	if err != nil {
		return nil, err
	}

	// Restore the id counters

	vcount, _ := strconv.ParseUint(mdb[MainDBVertexCount], 10, 64)
	rcount, _ := strconv.ParseUint(mdb[MainDBRelationCount], 10, 64)

	if err := gs.FlushMain(); err != nil {
		return nil, err
	}

	mainLock := &sync.Mutex{}
	registrar := schema.NewStorageProvider(mdb, mainLock)

	var provider schema.Provider = registrar
	if config.Bool(config.EnableDefaultSchema) {
		provider = schema.NewDefaultProvider(registrar)
	}

	logger, err := util.NewLogLevelLogger(util.NewStdOutLogger(), config.Str(config.LogLevel))
	if err != nil {
		return nil, err
	}

	gm := &Manager{gs, &graphRulesManager{rules: make(map[string]Rule),
		eventMap: make(map[int]map[string]Rule)}, im, idmanager.NewSimpleAllocator(im, vcount, rcount),
		registrar, provider, schema.NewSharedCache(), logger, NewMetrics(reg),
		mainLock, &sync.RWMutex{}}

	gm.gr.gm = gm

	return gm, nil
}

/*
OpenStorage opens the graph storage which is selected in the configuration.
*/
func OpenStorage(name string) (graphstorage.Storage, error) {

	config.EnsureConfig()

	if config.Bool(config.MemoryOnlyStorage) {
		return graphstorage.NewMemoryGraphStorage(name), nil
	}

	return graphstorage.NewDiskGraphStorage(config.DatastorePath(name), false)
}

/*
Name returns the name of this graph manager.
*/
func (gm *Manager) Name() string {
	return fmt.Sprint("Graph ", gm.gs.Name())
}

/*
Storage returns the graph storage of this graph manager.
*/
func (gm *Manager) Storage() graphstorage.Storage {
	return gm.gs
}

/*
IDManager returns the id layout of this graph manager.
*/
func (gm *Manager) IDManager() *idmanager.IDManager {
	return gm.im
}

/*
Metrics returns the metric collectors of this graph manager.
*/
func (gm *Manager) Metrics() *Metrics {
	return gm.metrics
}

/*
Logger returns the logger of this graph manager.
*/
func (gm *Manager) Logger() util.Logger {
	return gm.logger
}

/*
SetLogger sets the logger of this graph manager.
*/
func (gm *Manager) SetLogger(logger util.Logger) {
	gm.logger = logger
}

/*
SetGraphRule sets a GraphRule.
*/
func (gm *Manager) SetGraphRule(rule Rule) {
	gm.gr.SetGraphRule(rule)
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gm *Manager) GraphRules() []string {
	return gm.gr.GraphRules()
}

/*
NewRegistry returns a new schema registry which reads through the shared
schema cache of this graph manager.
*/
func (gm *Manager) NewRegistry() *schema.Registry {
	return schema.NewRegistry(gm.provider, gm.shared)
}

/*
DefineType registers a schema type definition and writes it to the main
database. An existing definition of the same name is returned unchanged.
*/
func (gm *Manager) DefineType(def *schema.Definition) (*schema.Definition, error) {

	ndef, err := gm.registrar.Register(def)

	if err == nil {
		gm.mainLock.Lock()
		err = gm.gs.FlushMain()
		gm.mainLock.Unlock()
	}

	return ndef, err
}

/*
Counts returns the last used vertex and relation counts.
*/
func (gm *Manager) Counts() (uint64, uint64) {
	return gm.alloc.Counts()
}

/*
storeCounts writes the id counters to the main database.
*/
func (gm *Manager) storeCounts() {
	vcount, rcount := gm.alloc.Counts()

	gm.mainLock.Lock()
	defer gm.mainLock.Unlock()

	mdb := gm.gs.MainDB()
	mdb[MainDBVertexCount] = strconv.FormatUint(vcount, 10)
	mdb[MainDBRelationCount] = strconv.FormatUint(rcount, 10)
}

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/*
Metric label values
*/
const (
	OpAddVertex      = "add_vertex"
	OpRemoveVertex   = "remove_vertex"
	OpAddRelation    = "add_relation"
	OpRemoveRelation = "remove_relation"
	OpSetProperty    = "set_property"

	PathMemory  = "memory"
	PathBackend = "backend"

	ResultOk     = "ok"
	ResultFailed = "failed"
)

/*
Metrics holds the collectors of a graph manager. All transactions of a
manager share them.
*/
type Metrics struct {
	Mutations              *prometheus.CounterVec // Mutations by operation
	MultiplicityViolations prometheus.Counter     // Rejected mutations
	Queries                *prometheus.CounterVec // Queries by execution path
	Commits                *prometheus.CounterVec // Commits by result
	CommitDuration         prometheus.Histogram   // Duration of commits
}

/*
NewMetrics creates the collectors and registers them with a given registerer.
Nothing is registered if the registerer is nil.
*/
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphtx_mutations_total",
			Help: "Total number of applied graph mutations.",
		}, []string{"op"}),

		MultiplicityViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "graphtx_multiplicity_violations_total",
			Help: "Total number of mutations which were rejected by a multiplicity constraint.",
		}),

		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphtx_queries_total",
			Help: "Total number of vertex queries by execution path.",
		}, []string{"path"}),

		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphtx_commits_total",
			Help: "Total number of transaction commits by result.",
		}, []string{"result"}),

		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphtx_commit_seconds",
			Help:    "Time spent writing a transaction to the storage.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

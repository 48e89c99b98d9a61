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
Package util contains utility classes for the graph transaction core.

GraphError

Models a graph related error. Low-level errors (e.g. from the storage backend)
should be wrapped in a GraphError before they are returned to a client. The
Type of a GraphError is one of the error types declared in this package and
can be used for equal checks or with errors.Is.

NamesManager

Manages counters for schema type names. Each registered name of a schema
category (property key, edge label or vertex label) gets a 64 bit count
assigned. The counts are used to construct schema type ids.
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Unwrap returns the error type of this error.
*/
func (ge *GraphError) Unwrap() error {
	return ge.Type
}

/*
Storage backend related error types
*/
var (
	ErrBackend  = errors.New("Storage backend failure")
	ErrOpening  = errors.New("Failed to open graph storage")
	ErrFlushing = errors.New("Failed to flush changes")
	ErrClosing  = errors.New("Failed to close graph storage")
	ErrReadOnly = errors.New("Failed write to readonly storage")
	ErrReading  = errors.New("Could not read graph information")
	ErrWriting  = errors.New("Could not write graph information")
)

/*
Graph related error types
*/
var (
	ErrInvalidData            = errors.New("Invalid data")
	ErrInvalidStateTransition = errors.New("Invalid state transition")
	ErrMultiplicityViolation  = errors.New("Multiplicity constraint violated")
	ErrUnresolvedType         = errors.New("Could not resolve relation type")
	ErrUnsatisfiableQuery     = errors.New("Query cannot be satisfied")
	ErrInvalidQuery           = errors.New("Invalid query")
	ErrClosed                 = errors.New("Transaction is closed")
	ErrRule                   = errors.New("Graph rule error")
)

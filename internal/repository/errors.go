// Package repository implements the custody ledger on top of database/sql.
// This file defines the sentinel errors shared by the ledger operations so
// that higher layers (orchestrator, dashboard handlers, console) can
// distinguish failure scenarios without inspecting error strings.
package repository

import "errors"

// ErrContainerNotFound is returned when no container row matches the given
// serial number.
var ErrContainerNotFound = errors.New("container not found")

// ErrUserNotFound is returned when no user row matches the given badge code
// or identifier.
var ErrUserNotFound = errors.New("user not found")

// ErrContainerExists is returned when registering a container whose serial
// number is already taken.
var ErrContainerExists = errors.New("container already exists")

// ErrUserExists is returned when registering a user whose name or badge code
// collides with an existing row.
var ErrUserExists = errors.New("user already exists")

// Package models defines domain entities and persistence interfaces for the lrx run history.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs for rendering and JSON output
//   - [RunSummary] : One run's counters and timestamps
//   - [OutcomeRecord] : One file's terminal status within a run
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Run] : A completed scan with per-status counts
//   - [RunOutcome] : A single file outcome belonging to a run
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models

// Package task implements the generation task orchestrator: the per-task
// state machine, the polling policy against the external image provider,
// the bounded worker pool that drives submissions to a terminal state, and
// the stores that hold task records while they are in flight.
package task

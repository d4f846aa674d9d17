// Package queue implements the try-on job processing engine: a periodic
// scheduler that selects pending jobs oldest first, a dispatcher that fans a
// batch out in bounded concurrent chunks, and a processor that drives one job
// from its claim through the AI provider to a terminal state.
//
// State lives entirely in the job store; nothing in this package survives
// between scheduler ticks, so a restart loses no work and multiple engine
// instances stay correct because the pending->processing claim is an atomic
// compare-and-swap in the store.
package queue

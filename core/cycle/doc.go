// Package cycle implements the three periodic evaluations of the charge
// controller: planning, execution and balancing.
//
// The cycles never call each other. They share the plan, the status label
// and the last applied limits through state.Store; every read may be one
// period stale and every write is last-writer-wins.
package cycle

// Package scheduler triggers periodic jobs from a single goroutine, so two
// jobs of the same scheduler never run at the same time.
package scheduler

// Package events defines the events the cycles publish on the event bus.
//
//   - PlanEvent: a plan was generated and persisted
//   - StatusEvent: the charge status label changed
//   - AllocationEvent: one balance cycle computed a current ceiling
//   - ActuationEvent: a command was sent to the charger
package events

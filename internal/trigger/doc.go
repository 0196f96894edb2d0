// Package trigger evaluates rule-based habit triggers against synced
// device metrics.
//
// Triggers are edge-triggered: they fire on the transition into a
// satisfied condition, never on repeated polls while the condition
// stays satisfied. Fired triggers are handed to the habit-completion
// collaborator as events; this engine never mutates habit records.
//
// Trigger records are owned by their device and cascade-deleted on
// disconnect via RemoveByDevice.
package trigger

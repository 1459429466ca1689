package domain

import "time"

// StepEvent is a timestamped progress notification for a logical stage of a run.
// Events sharing an ID are progressive updates of the same step.
type StepEvent struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Status    StepStatus `json:"status"`
	Timestamp string     `json:"timestamp"`
	Details   string     `json:"details,omitempty"`
}

// NewStepEvent builds a step event stamped with the current UTC time.
func NewStepEvent(id, label string, status StepStatus, details string) StepEvent {
	return StepEvent{
		ID:        id,
		Label:     label,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Details:   details,
	}
}

// IsTerminal reports whether the step reached completed or error.
func (e StepEvent) IsTerminal() bool {
	return e.Status == StepStatusCompleted || e.Status == StepStatusError
}

// ReduceSteps collapses an append-only event stream into one entry per step ID.
// The last event for an ID wins; entries keep the position of the ID's first
// appearance.
func ReduceSteps(events []StepEvent) []StepEvent {
	if len(events) == 0 {
		return []StepEvent{}
	}
	index := make(map[string]int, len(events))
	out := make([]StepEvent, 0, len(events))
	for _, evt := range events {
		if i, ok := index[evt.ID]; ok {
			out[i] = evt
			continue
		}
		index[evt.ID] = len(out)
		out = append(out, evt)
	}
	return out
}

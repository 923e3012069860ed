package bus

import (
	"time"

	"github.com/google/uuid"
)

// Kind partitions records into independently bounded histories.
type Kind string

const (
	// KindStatus carries agent state transitions (busy, idle, ...).
	KindStatus Kind = "status"
	// KindTask carries per-delegation lifecycle records.
	KindTask Kind = "task"
	// KindCommunication carries inter-agent messages.
	KindCommunication Kind = "communication"
	// KindMetrics carries measurement snapshots.
	KindMetrics Kind = "metrics"
	// KindLifecycle carries registration/unregistration records.
	KindLifecycle Kind = "lifecycle"
)

// Record is one observability event. Treat it as immutable after emission.
// AgentID is empty for process-wide records.
type Record struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	AgentID   string         `json:"agent_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewRecord creates a record with a fresh id and UTC timestamp.
func NewRecord(kind Kind, agentID string, payload map[string]any) Record {
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		AgentID:   agentID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusRecord reports an agent state transition.
func NewStatusRecord(agentID, state string) Record {
	return NewRecord(KindStatus, agentID, map[string]any{"state": state})
}

// NewTaskRecord reports a delegation lifecycle step for an agent.
func NewTaskRecord(agentID, taskID, state string, extra map[string]any) Record {
	payload := map[string]any{"task_id": taskID, "state": state}
	for k, v := range extra {
		payload[k] = v
	}
	return NewRecord(KindTask, agentID, payload)
}

// NewLifecycleRecord reports agent registration or removal.
func NewLifecycleRecord(agentID, phase string) Record {
	return NewRecord(KindLifecycle, agentID, map[string]any{"phase": phase})
}

// NewCommunicationRecord reports a message between agents.
func NewCommunicationRecord(from, to, message string) Record {
	return NewRecord(KindCommunication, from, map[string]any{"to": to, "message": message})
}

// State returns the payload "state" field, if present.
func (r Record) State() string {
	s, _ := r.Payload["state"].(string)
	return s
}

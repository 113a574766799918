package workflow

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/repo"
)

// EventAppender is the event-sourcing half of repo.ExecutionRepository,
// reused here because domain.WorkflowExecution.ID is itself a
// domain.ExecutionID: the same monotonic (execution_id,
// sequence_number) ledger durability needs for a crash-resume replay
// serves both plain Executions and WorkflowExecutions.
type EventAppender interface {
	AppendEvent(ctx context.Context, executionID domain.ExecutionID, sequenceNumber int64, eventType string, payload []byte, iterationNumber *int) error
}

// NATSBridge optionally mirrors every appended event onto a durable,
// externally-consumable stream. A nil *NATSBridge is safe to call
// through; every method is a no-op when durability isn't enabled.
type NATSBridge struct {
	publish func(ctx context.Context, subject string, payload []byte) error
	prefix  string
}

// NewNATSBridge wires a publish function (typically *nats.Conn.Publish
// or a JetStream context's Publish) under subjectPrefix. Passing a nil
// publish func yields a no-op bridge.
func NewNATSBridge(subjectPrefix string, publish func(ctx context.Context, subject string, payload []byte) error) *NATSBridge {
	return &NATSBridge{publish: publish, prefix: subjectPrefix}
}

func (b *NATSBridge) mirror(ctx context.Context, weID, eventType string, payload []byte) error {
	if b == nil || b.publish == nil {
		return nil
	}
	return b.publish(ctx, b.prefix+"."+weID+"."+eventType, payload)
}

// durabilityLedger sequences and persists every state transition for
// one WorkflowExecution, optionally mirroring to a NATSBridge.
type durabilityLedger struct {
	events repo.WorkflowExecutionRepository
	append EventAppender
	bridge *NATSBridge
	seq    atomic.Int64
}

func newDurabilityLedger(events repo.WorkflowExecutionRepository, appender EventAppender, bridge *NATSBridge) *durabilityLedger {
	return &durabilityLedger{events: events, append: appender, bridge: bridge}
}

func (d *durabilityLedger) record(ctx context.Context, we *domain.WorkflowExecution, eventType string, payload interface{}) error {
	if err := d.events.Save(ctx, we); err != nil {
		return err
	}
	if d.append == nil {
		return nil
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	seq := d.seq.Add(1)
	if err := d.append.AppendEvent(ctx, we.ID, seq, eventType, buf, nil); err != nil {
		return err
	}
	return d.bridge.mirror(ctx, we.ID.String(), eventType, buf)
}

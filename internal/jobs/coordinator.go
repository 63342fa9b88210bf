// Package jobs serializes the operations that mutate shared evaluation state:
// replacing the staged dataset and producing artifacts. Reads are never
// blocked.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrBusy = errors.New("another operation is in progress")

type Coordinator struct {
	mu sync.Mutex

	stateMu sync.Mutex
	active  *Operation
}

type Operation struct {
	Id        uuid.UUID
	Name      string
	StartTime time.Time
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Exclusive runs fn if no other exclusive operation is in flight and returns
// ErrBusy otherwise. It never waits for the running operation.
func (c *Coordinator) Exclusive(ctx context.Context, name string, fn func(ctx context.Context, op Operation) error) error {
	if !c.mu.TryLock() {
		active, _ := c.Active()
		slog.Warn("rejecting operation, coordinator busy", "operation", name, "active", active.Name, "active_id", active.Id)
		return fmt.Errorf("cannot start %s: %w", name, ErrBusy)
	}
	defer c.mu.Unlock()

	op := Operation{Id: uuid.New(), Name: name, StartTime: time.Now()}
	c.setActive(&op)
	defer c.setActive(nil)

	slog.Info("operation started", "operation", name, "id", op.Id)
	err := fn(ctx, op)
	slog.Info("operation finished", "operation", name, "id", op.Id, "duration", time.Since(op.StartTime), "failed", err != nil)
	return err
}

// Active reports the operation currently holding the coordinator, if any.
func (c *Coordinator) Active() (Operation, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.active == nil {
		return Operation{}, false
	}
	return *c.active, true
}

func (c *Coordinator) setActive(op *Operation) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.active = op
}

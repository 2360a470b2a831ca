package board

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

var (
	ErrUnknownOrder    = errors.New("order is not on the board")
	ErrCommandInFlight = errors.New("order already has a change in flight")
	ErrTerminal        = errors.New("order cannot advance further")
	ErrStopped         = errors.New("board stopped")
)

type OutcomeKind string

const (
	// AppliedLocally means the board shows the change but storage has not
	// confirmed it yet.
	AppliedLocally OutcomeKind = "applied_locally"
	Confirmed      OutcomeKind = "confirmed"
	Rejected       OutcomeKind = "rejected"
)

type Outcome struct {
	Kind    OutcomeKind  `json:"kind"`
	OrderID uuid.UUID    `json:"order_id"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Order   *order.Order `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
	Err     error        `json:"-"`
}

// Pending tracks one status command from local application to its final
// outcome.
type Pending struct {
	applied Outcome

	once  sync.Once
	done  chan struct{}
	final Outcome
}

func newPending(applied Outcome) *Pending {
	return &Pending{applied: applied, done: make(chan struct{})}
}

func (p *Pending) Applied() Outcome {
	return p.applied
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the command is confirmed or rejected. The error is the
// rejection cause or the context error.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		if p.final.Kind == Rejected {
			return p.final, p.final.Err
		}
		return p.final, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (p *Pending) resolve(o Outcome) {
	p.once.Do(func() {
		p.final = o
		close(p.done)
	})
}

type command struct {
	id          uint64
	orderID     uuid.UUID
	from        orderstatus.Status
	target      orderstatus.Status
	baseVersion int
	issuedAt    time.Time
	pending     *Pending
}

func (c *command) outcome(kind OutcomeKind) Outcome {
	return Outcome{
		Kind:    kind,
		OrderID: c.orderID,
		From:    c.from.Code(),
		To:      c.target.Code(),
	}
}

func (c *command) confirm(o *order.Order) {
	out := c.outcome(Confirmed)
	out.Order = o
	c.pending.resolve(out)
}

func (c *command) reject(err error) {
	out := c.outcome(Rejected)
	out.Err = err
	out.Error = err.Error()
	c.pending.resolve(out)
}

// transient reports whether a failed write may succeed when retried as is.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, order.ErrVersionConflict),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

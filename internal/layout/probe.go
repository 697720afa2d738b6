package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravitas-games/gridinv/internal/geom"
)

var (
	// ErrSettlePending is returned when a position is proposed while the
	// previous proposal has not settled yet.
	ErrSettlePending = errors.New("layout: previous proposal has not settled")
	// ErrNotProposed is returned by Settle without a preceding Propose.
	ErrNotProposed = errors.New("layout: nothing proposed")
	// ErrNotSettled is returned by Read before the proposal has settled.
	ErrNotSettled = errors.New("layout: bounding box read before layout settled")
)

type probeState int

const (
	probeIdle probeState = iota
	probeProposed
	probeSettled
)

// Probe runs the propose -> settle -> read protocol against a layout
// service. One probe serialises every proposal made through it, so a
// position is never proposed while an earlier settlement is outstanding.
type Probe struct {
	svc    Service
	handle Handle
	state  probeState
}

// NewProbe creates a probe bound to svc.
func NewProbe(svc Service) *Probe {
	return &Probe{svc: svc}
}

// Propose writes a candidate position to h and requests a layout pass.
func (p *Probe) Propose(h Handle, pos geom.Vec) error {
	if p.state == probeProposed {
		return ErrSettlePending
	}
	p.handle = h
	p.state = probeProposed
	h.SetPosition(pos)
	p.svc.RequestLayout()
	return nil
}

// Settle waits for the requested pass to complete.
func (p *Probe) Settle(ctx context.Context) error {
	if p.state != probeProposed {
		return ErrNotProposed
	}
	if err := p.svc.AwaitSettled(ctx); err != nil {
		p.state = probeIdle
		return fmt.Errorf("layout: await settled: %w", err)
	}
	p.state = probeSettled
	return nil
}

// Read returns the settled bounding box of the handle last proposed.
func (p *Probe) Read() (geom.Rect, error) {
	if p.state != probeSettled || p.handle == nil {
		return geom.Rect{}, ErrNotSettled
	}
	return p.handle.BoundingBox(), nil
}

// Pending reports whether a proposal is waiting for its layout pass.
func (p *Probe) Pending() bool { return p.state == probeProposed }

// Sync runs a bare layout pass with no proposal, for callers that changed
// handles directly and need authoritative boxes afterwards.
func (p *Probe) Sync(ctx context.Context) error {
	if p.state == probeProposed {
		return ErrSettlePending
	}
	p.svc.RequestLayout()
	if err := p.svc.AwaitSettled(ctx); err != nil {
		return fmt.Errorf("layout: await settled: %w", err)
	}
	return nil
}

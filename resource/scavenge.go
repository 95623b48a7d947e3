package resource

import "context"

// PacedReleaser returns chunk memory to a backing allocator at the
// controller's scavenge rate, smoothing the cost of freeing large chains
// from background jobs.
type PacedReleaser struct {
	rc  *Controller
	ctx context.Context
}

// NewPacedReleaser creates a new PacedReleaser.
func NewPacedReleaser(ctx context.Context, rc *Controller) *PacedReleaser {
	return &PacedReleaser{
		rc:  rc,
		ctx: ctx,
	}
}

// Release waits until the scavenge limit covers bytes, then runs free.
// A canceled context skips free and reports the cancellation.
func (p *PacedReleaser) Release(bytes int, free func() error) error {
	if err := p.rc.AcquireScavenge(p.ctx, bytes); err != nil {
		return err
	}
	return free()
}

package dma

import (
	"errors"
	"fmt"
)

// ErrGrowFailed is returned when the external allocator cannot grow the
// trace region far enough to satisfy the next call.
var ErrGrowFailed = errors.New("dma: trace region grow failed")

// GrowFunc grows a trace region to hold at least minLen words, returning
// the (possibly reallocated) backing slice. It is an external allocator
// and coordinator, modeled as a callback supplied at construction rather
// than as global state. A grow implementation is free to log, allocate,
// or consult a process-wide threshold — none of that runs on the hot
// path unless this callback is actually invoked.
type GrowFunc func(current []uint64, minLen int) ([]uint64, error)

// GovernorConfig bounds the pre-check: MaxMtMargin is the worst-case
// word growth a single call can produce; MaxBytesPerStep is the
// per-step budget used to decide whether a capacity shortfall is
// "normal chunk progression" (no grow needed yet) or a genuine
// overrun (grow now).
type GovernorConfig struct {
	MaxMtMargin     int
	MaxBytesPerStep int
}

// Governor guards a single caller-owned trace region, growing it via
// GrowFunc when the pre-check threshold is crossed and the crossing
// exceeds what normal per-step growth would predict, or when the region
// cannot hold the next call's words at all. It never reorders or
// truncates previously written entries.
type Governor struct {
	cfg  GovernorConfig
	grow GrowFunc
	buf  []uint64
	used int
}

// NewGovernor creates a Governor over an initial trace region. grow may
// be nil, in which case the Governor never attempts to grow and simply
// reports ErrGrowFailed once the region is exhausted.
func NewGovernor(cfg GovernorConfig, initial []uint64, grow GrowFunc) *Governor {
	return &Governor{cfg: cfg, grow: grow, buf: initial}
}

// Len returns the number of words written into the governed region so far.
func (g *Governor) Len() int { return g.used }

// Written returns the portion of the governed region written so far.
// The returned slice aliases the Governor's backing buffer and must not
// be retained past the next call that grows it.
func (g *Governor) Written() []uint64 { return g.buf[:g.used] }

// Prepare reserves the next wantWords of the trace region for a single
// Mtrace call, growing the backing buffer first if the pre-check
// determines it's needed or if the remaining region is shorter than
// wantWords. stepsConsumed is the caller's running count
// of memcpy steps executed so far, used only to compute the per-step
// budget prediction.
func (g *Governor) Prepare(stepsConsumed int, wantWords int) ([]uint64, error) {
	remaining := len(g.buf) - g.used
	worstCase := wantWords + g.cfg.MaxMtMargin

	if remaining < worstCase {
		usedBytes := g.used * 8
		budgetBytes := stepsConsumed * g.cfg.MaxBytesPerStep
		if usedBytes > budgetBytes {
			if g.grow == nil {
				return nil, ErrGrowFailed
			}
			grown, err := g.grow(g.buf, g.used+worstCase)
			if err != nil {
				return nil, fmt.Errorf("dma: governor grow failed: %w", err)
			}
			g.buf = grown
		}
	}

	if len(g.buf)-g.used < wantWords {
		if g.grow == nil {
			return nil, ErrGrowFailed
		}
		grown, err := g.grow(g.buf, g.used+worstCase)
		if err != nil {
			return nil, fmt.Errorf("dma: governor grow failed: %w", err)
		}
		g.buf = grown
		if len(g.buf)-g.used < wantWords {
			return nil, ErrGrowFailed
		}
	}

	region := g.buf[g.used : g.used+wantWords]
	g.used += wantWords
	return region, nil
}

// TracedCopy is the governed entry point for a single traced memcpy: it
// sizes and reserves trace space for (dst, src, count) and runs Mtrace
// into it, returning the number of words written.
func (g *Governor) TracedCopy(dst, src, count uint64, mem *Memory, stepsConsumed int) (int, error) {
	descriptor := Encode(dst, src, count)
	want := TraceLen(descriptor)

	region, err := g.Prepare(stepsConsumed, want)
	if err != nil {
		return 0, err
	}

	return Mtrace(dst, src, count, mem, region)
}

package launch

import "sync"

// Planner memoizes launch parameters by shape. Building parameters is cheap
// but dispatch sites tend to see the same handful of shapes over and over,
// and the records are deterministic, so caching them is free correctness-wise.
//
// Safe for concurrent use.
type Planner struct {
	mu      sync.RWMutex
	conv    map[ConvShape]*Params
	unified map[ConvShape]*UnifiedParams
}

// NewPlanner returns an empty planner.
func NewPlanner() *Planner {
	return &Planner{
		conv:    make(map[ConvShape]*Params),
		unified: make(map[ConvShape]*UnifiedParams),
	}
}

// Plan returns the forward/backward-regime parameters for the shape,
// computing them on first use. The returned record is shared; callers must
// treat it as read-only.
func (pl *Planner) Plan(s ConvShape) *Params {
	pl.mu.RLock()
	if p, ok := pl.conv[s]; ok {
		pl.mu.RUnlock()
		return p
	}
	pl.mu.RUnlock()

	built := Build(s)

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if p, ok := pl.conv[s]; ok {
		return p
	}
	pl.conv[s] = &built
	return &built
}

// PlanUnified is Plan for the unified regime.
func (pl *Planner) PlanUnified(s ConvShape) *UnifiedParams {
	pl.mu.RLock()
	if p, ok := pl.unified[s]; ok {
		pl.mu.RUnlock()
		return p
	}
	pl.mu.RUnlock()

	built := BuildUnified(s)

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if p, ok := pl.unified[s]; ok {
		return p
	}
	pl.unified[s] = &built
	return &built
}

// Package quota provides operating mode controls.
package quota

import (
	"context"
	"sync/atomic"
	"time"
)

// OperatingMode represents the current operating state.
type OperatingMode int32

const (
	ModeNormal OperatingMode = iota
	ModeDegraded
	ModeEmergency
)

// DegradeThresholds defines how long the store may stay unhealthy before
// the mode switches.
type DegradeThresholds struct {
	StoreUnhealthyFor   time.Duration
	StoreEmergencyAfter time.Duration
}

// DegradeController tracks store health for mode reporting. The mode is
// informational (surfaced on /mode and in metrics); admission decisions
// degrade per call through the engine's fallback path.
type DegradeController struct {
	mode        atomic.Int32
	lastMode    atomic.Int32
	lastHealthy atomic.Int64
	store       BucketStore
	thresholds  DegradeThresholds
	logger      Logger
	now         func() time.Time
}

// NewDegradeController constructs a DegradeController.
func NewDegradeController(store BucketStore, th DegradeThresholds, now func() time.Time) *DegradeController {
	if th.StoreUnhealthyFor <= 0 {
		th.StoreUnhealthyFor = 2 * time.Second
	}
	if th.StoreEmergencyAfter <= 0 {
		th.StoreEmergencyAfter = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	controller := &DegradeController{
		store:      store,
		thresholds: th,
		now:        now,
	}
	controller.mode.Store(int32(ModeNormal))
	controller.lastMode.Store(int32(ModeNormal))
	controller.lastHealthy.Store(now().UnixNano())
	return controller
}

// SetLogger configures a logger for mode changes.
func (dc *DegradeController) SetLogger(l Logger) {
	if dc == nil {
		return
	}
	dc.logger = l
}

// Mode returns the current operating mode.
func (dc *DegradeController) Mode() OperatingMode {
	if dc == nil {
		return ModeNormal
	}
	return OperatingMode(dc.mode.Load())
}

// Update probes store health and refreshes the mode.
func (dc *DegradeController) Update(ctx context.Context) {
	if dc == nil {
		return
	}
	now := dc.now()
	healthy := true
	if dc.store != nil {
		healthy = dc.store.Healthy(ctx)
	}
	if healthy {
		dc.lastHealthy.Store(now.UnixNano())
	}

	unhealthyFor := now.Sub(time.Unix(0, dc.lastHealthy.Load()))
	mode := ModeNormal
	if unhealthyFor >= dc.thresholds.StoreUnhealthyFor {
		mode = ModeDegraded
		if unhealthyFor >= dc.thresholds.StoreEmergencyAfter {
			mode = ModeEmergency
		}
	}
	dc.mode.Store(int32(mode))

	prev := OperatingMode(dc.lastMode.Load())
	if prev != mode {
		dc.lastMode.Store(int32(mode))
		if dc.logger != nil {
			dc.logger.Info("mode changed", map[string]any{
				"old": ModeLabel(prev),
				"new": ModeLabel(mode),
			})
		}
	}
}

// ModeLabel returns the wire label for a mode.
func ModeLabel(mode OperatingMode) string {
	switch mode {
	case ModeDegraded:
		return "degraded"
	case ModeEmergency:
		return "emergency"
	default:
		return "normal"
	}
}

// Package quota provides limit policy resolution.
package quota

import (
	"fmt"
	"time"
)

// LimitClass identifies one of the independent quota dimensions enforced
// against an upstream API.
type LimitClass string

const (
	ClassPerMinuteRequests LimitClass = "per-minute-requests"
	ClassPerMinuteUnits    LimitClass = "per-minute-units"
	ClassPerDayRequests    LimitClass = "per-day-requests"
)

// Valid reports whether the class is one of the known quota dimensions.
func (c LimitClass) Valid() bool {
	switch c {
	case ClassPerMinuteRequests, ClassPerMinuteUnits, ClassPerDayRequests:
		return true
	}
	return false
}

// defaultWindow returns the nominal fixed window for the class.
func (c LimitClass) defaultWindow() time.Duration {
	if c == ClassPerDayRequests {
		return 24 * time.Hour
	}
	return time.Minute
}

// ClassLimit configures one quota dimension.
type ClassLimit struct {
	Capacity int64
	Window   time.Duration
}

// LimitPolicy configures the three quota dimensions for one upstream resource.
type LimitPolicy struct {
	ResourceID        string
	PerMinuteRequests ClassLimit
	PerMinuteUnits    ClassLimit
	PerDayRequests    ClassLimit
}

func (p LimitPolicy) classLimit(class LimitClass) ClassLimit {
	switch class {
	case ClassPerMinuteRequests:
		return p.PerMinuteRequests
	case ClassPerMinuteUnits:
		return p.PerMinuteUnits
	case ClassPerDayRequests:
		return p.PerDayRequests
	}
	return ClassLimit{}
}

// BucketPolicy is the resolved parameter set for one bucket. Engine and
// fallback limiter both resolve through here so their key formats and
// refill rates can never diverge.
type BucketPolicy struct {
	Key        string
	Capacity   int64
	RefillRate float64
	Window     time.Duration
}

// BucketKey builds the store key for a resource and limit class.
func BucketKey(resourceID string, class LimitClass) string {
	return resourceID + "-" + string(class)
}

// PolicyResolver maps a resource and limit class to bucket parameters.
type PolicyResolver struct {
	policies map[string]LimitPolicy
}

// NewPolicyResolver constructs a resolver over the configured policies.
func NewPolicyResolver(policies []LimitPolicy) *PolicyResolver {
	byID := make(map[string]LimitPolicy, len(policies))
	for _, p := range policies {
		if p.ResourceID == "" {
			continue
		}
		byID[p.ResourceID] = p
	}
	return &PolicyResolver{policies: byID}
}

// Resolve returns the bucket parameters for a resource and limit class.
func (r *PolicyResolver) Resolve(resourceID string, class LimitClass) (BucketPolicy, error) {
	if r == nil || resourceID == "" {
		return BucketPolicy{}, ErrInvalidInput
	}
	if !class.Valid() {
		return BucketPolicy{}, Wrap(CodeUnknownClass, fmt.Sprintf("unknown limit class %q", class), nil)
	}
	policy, ok := r.policies[resourceID]
	if !ok {
		return BucketPolicy{}, Wrap(CodePolicyNotFound, fmt.Sprintf("no limit policy for resource %q", resourceID), nil)
	}
	limit := policy.classLimit(class)
	if limit.Capacity <= 0 {
		return BucketPolicy{}, Wrap(CodePolicyNotFound, fmt.Sprintf("resource %q has no %s limit", resourceID, class), nil)
	}
	window := limit.Window
	if window <= 0 {
		window = class.defaultWindow()
	}
	return BucketPolicy{
		Key:        BucketKey(resourceID, class),
		Capacity:   limit.Capacity,
		RefillRate: float64(limit.Capacity) / window.Seconds(),
		Window:     window,
	}, nil
}

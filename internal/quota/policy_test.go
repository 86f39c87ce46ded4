package quota

import (
	"testing"
	"time"
)

func testPolicies() []LimitPolicy {
	return []LimitPolicy{
		{
			ResourceID:        "embeddings",
			PerMinuteRequests: ClassLimit{Capacity: 500},
			PerMinuteUnits:    ClassLimit{Capacity: 350000},
			PerDayRequests:    ClassLimit{Capacity: 10000},
		},
	}
}

func TestPolicyResolver_ResolvesBucketParameters(t *testing.T) {
	t.Parallel()

	resolver := NewPolicyResolver(testPolicies())

	policy, err := resolver.Resolve("embeddings", ClassPerMinuteRequests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Key != "embeddings-per-minute-requests" {
		t.Fatalf("unexpected key: %s", policy.Key)
	}
	if policy.Capacity != 500 || policy.Window != time.Minute {
		t.Fatalf("unexpected parameters: %+v", policy)
	}
	wantRate := 500.0 / 60.0
	if policy.RefillRate != wantRate {
		t.Fatalf("expected refill rate %f, got %f", wantRate, policy.RefillRate)
	}

	daily, err := resolver.Resolve("embeddings", ClassPerDayRequests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if daily.Window != 24*time.Hour {
		t.Fatalf("expected daily window, got %v", daily.Window)
	}
}

func TestPolicyResolver_ExplicitWindowOverridesDefault(t *testing.T) {
	t.Parallel()

	resolver := NewPolicyResolver([]LimitPolicy{{
		ResourceID:        "search",
		PerMinuteRequests: ClassLimit{Capacity: 5, Window: 60 * time.Second},
	}})

	policy, err := resolver.Resolve("search", ClassPerMinuteRequests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.RefillRate != 5.0/60.0 {
		t.Fatalf("unexpected refill rate: %f", policy.RefillRate)
	}
}

func TestPolicyResolver_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	resolver := NewPolicyResolver(testPolicies())

	if _, err := resolver.Resolve("embeddings", LimitClass("per-hour-requests")); CodeOf(err) != CodeUnknownClass {
		t.Fatalf("expected UNKNOWN_CLASS, got %v", err)
	}
	if _, err := resolver.Resolve("unknown", ClassPerMinuteRequests); CodeOf(err) != CodePolicyNotFound {
		t.Fatalf("expected POLICY_NOT_FOUND, got %v", err)
	}
	if _, err := resolver.Resolve("", ClassPerMinuteRequests); CodeOf(err) != CodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}

	noUnits := NewPolicyResolver([]LimitPolicy{{
		ResourceID:        "search",
		PerMinuteRequests: ClassLimit{Capacity: 5},
	}})
	if _, err := noUnits.Resolve("search", ClassPerMinuteUnits); CodeOf(err) != CodePolicyNotFound {
		t.Fatalf("expected POLICY_NOT_FOUND for missing class limit, got %v", err)
	}
}

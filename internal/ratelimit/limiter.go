// Package ratelimit provides fixed-window admission control for HTTP requests.
// Each named Policy (auth, api, upload) counts requests per client key inside a
// fixed window; the first request for a key starts its window, and once the
// count reaches the policy ceiling further requests are rejected until the
// window ends. Counts live in a Store: MemoryStore for a single process or
// RedisStore when replicas must share counts.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bind8/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Policy names for the built-in limiters.
const (
	PolicyAuth   = "auth"
	PolicyAPI    = "api"
	PolicyUpload = "upload"
)

// KeyFunc derives the counting key for a request.
type KeyFunc func(r *http.Request) string

// Policy is an immutable admission policy.
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
	KeyFunc     KeyFunc
}

// Validate checks that the policy can admit at least one request per window.
func (p Policy) Validate() error {
	if p.Name == "" {
		return errors.New("policy name cannot be empty")
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("policy %s: max requests must be positive", p.Name)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %s: window must be positive", p.Name)
	}
	return nil
}

// NamespacedIP keys requests as "<namespace>:<client ip>" so each policy keeps
// its own count for the same caller.
func NamespacedIP(namespace string) KeyFunc {
	return func(r *http.Request) string {
		return namespace + ":" + ClientIP(r)
	}
}

// AuthPolicy allows 5 requests per 15 minutes per client.
func AuthPolicy() Policy {
	return Policy{Name: PolicyAuth, MaxRequests: 5, Window: 15 * time.Minute, KeyFunc: NamespacedIP(PolicyAuth)}
}

// APIPolicy allows 100 requests per minute per client.
func APIPolicy() Policy {
	return Policy{Name: PolicyAPI, MaxRequests: 100, Window: time.Minute, KeyFunc: NamespacedIP(PolicyAPI)}
}

// UploadPolicy allows 10 requests per minute per client.
func UploadPolicy() Policy {
	return Policy{Name: PolicyUpload, MaxRequests: 10, Window: time.Minute, KeyFunc: NamespacedIP(PolicyUpload)}
}

// DefaultPolicies returns the auth, api and upload policies.
func DefaultPolicies() []Policy {
	return []Policy{AuthPolicy(), APIPolicy(), UploadPolicy()}
}

// PoliciesFromConfig returns DefaultPolicies with any non-zero overrides applied.
// Overrides for unknown policy names are ignored.
func PoliciesFromConfig(overrides map[string]models.PolicyConfig) []Policy {
	policies := DefaultPolicies()
	for i, p := range policies {
		o, ok := overrides[p.Name]
		if !ok {
			continue
		}
		if o.MaxRequests > 0 {
			policies[i].MaxRequests = o.MaxRequests
		}
		if o.Window > 0 {
			policies[i].Window = o.Window
		}
	}
	return policies
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int       // Policy ceiling
	Remaining  int       // Requests left in the current window
	ResetAt    time.Time // End of the current window
	RetryAfter int       // Whole seconds until the window ends; set only when rejected
}

// Limiter applies one Policy against a shared Store.
type Limiter struct {
	policy    Policy
	store     Store
	decisions metric.Int64Counter
}

// NewLimiter validates policy and binds it to store. A policy without a
// KeyFunc is keyed by NamespacedIP(policy.Name).
func NewLimiter(policy Policy, store Store) (*Limiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("rate limit store cannot be nil")
	}
	if policy.KeyFunc == nil {
		policy.KeyFunc = NamespacedIP(policy.Name)
	}

	decisions, err := otel.Meter("bind8/ratelimit").Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Admission decisions by policy and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create decisions counter: %w", err)
	}

	return &Limiter{policy: policy, store: store, decisions: decisions}, nil
}

// Policy returns the limiter's policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Check decides whether r is admitted and, if so, counts it.
func (l *Limiter) Check(ctx context.Context, r *http.Request) (Decision, error) {
	return l.CheckKey(ctx, l.policy.KeyFunc(r))
}

// CheckKey is Check for an already derived key.
func (l *Limiter) CheckKey(ctx context.Context, key string) (Decision, error) {
	_, d, err := l.store.Take(ctx, key, l.policy.MaxRequests, l.policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", l.policy.Name, err)
	}

	outcome := "admitted"
	if !d.Allowed {
		outcome = "rejected"
	}
	l.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", l.policy.Name),
		attribute.String("outcome", outcome),
	))

	return d, nil
}

// Set holds one Limiter per policy name.
type Set map[string]*Limiter

// NewSet builds a Limiter for each policy over a single shared store.
func NewSet(store Store, policies ...Policy) (Set, error) {
	set := make(Set, len(policies))
	for _, p := range policies {
		if _, dup := set[p.Name]; dup {
			return nil, fmt.Errorf("duplicate policy %s", p.Name)
		}
		l, err := NewLimiter(p, store)
		if err != nil {
			return nil, err
		}
		set[p.Name] = l
	}
	return set, nil
}

// Policies lists the configured policies.
func (s Set) Policies() []Policy {
	out := make([]Policy, 0, len(s))
	for _, name := range []string{PolicyAuth, PolicyAPI, PolicyUpload} {
		if l, ok := s[name]; ok {
			out = append(out, l.policy)
		}
	}
	for name, l := range s {
		if name != PolicyAuth && name != PolicyAPI && name != PolicyUpload {
			out = append(out, l.policy)
		}
	}
	return out
}

package rate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FailurePolicy decides what a store error means for the request.
type FailurePolicy string

const (
	// FailureError surfaces ErrStoreUnavailable to the caller.
	FailureError FailurePolicy = "error"
	// FailureOpen admits the request.
	FailureOpen FailurePolicy = "open"
	// FailureClosed denies the request for one window.
	FailureClosed FailurePolicy = "closed"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailureError, nil
	case FailureError, FailureOpen, FailureClosed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rate limit failure policy %q", s)
	}
}

// Policy is the ceiling applied to one route.
type Policy struct {
	Route  string
	Limit  int
	Window time.Duration
}

// ParsePolicy parses "<limit>/<window>", e.g. "5/1m" or "100/30s".
func ParsePolicy(s string) (Policy, error) {
	limitPart, windowPart, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Policy{}, fmt.Errorf("rate policy %q: want <limit>/<window>", s)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(limitPart))
	if err != nil {
		return Policy{}, fmt.Errorf("rate policy %q: bad limit: %w", s, err)
	}
	if limit < 0 {
		return Policy{}, fmt.Errorf("rate policy %q: limit must not be negative", s)
	}
	window, err := time.ParseDuration(strings.TrimSpace(windowPart))
	if err != nil {
		return Policy{}, fmt.Errorf("rate policy %q: bad window: %w", s, err)
	}
	if window <= 0 {
		return Policy{}, fmt.Errorf("rate policy %q: window must be positive", s)
	}
	return Policy{Limit: limit, Window: window}, nil
}

// ParseRoutes parses a comma separated list of route=policy pairs, e.g.
// "auth.login=5/1m,contacts.create=10/1m".
func ParseRoutes(s string) (map[string]Policy, error) {
	out := make(map[string]Policy)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		route, raw, ok := strings.Cut(item, "=")
		route = strings.TrimSpace(route)
		if !ok || route == "" {
			return nil, fmt.Errorf("rate route %q: want <route>=<limit>/<window>", item)
		}
		p, err := ParsePolicy(raw)
		if err != nil {
			return nil, err
		}
		p.Route = route
		out[route] = p
	}
	return out, nil
}

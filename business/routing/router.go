package routing

import "priceSense/domain"

type Thresholds struct {
	Fast  float64
	Smart float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Fast: 0.3, Smart: 0.7}
}

// Router picks an execution path per request. It holds no state across
// requests.
type Router struct {
	th Thresholds
}

func NewRouter(th Thresholds) *Router {
	return &Router{th: th}
}

// Route applies the transition table in order; the first match wins.
func (r *Router) Route(complexity float64, cacheAvailable bool) domain.ExecutionPath {
	switch {
	case cacheAvailable && complexity < r.th.Fast:
		return domain.PathFast
	case complexity < r.th.Fast:
		return domain.PathSmart
	case complexity < r.th.Smart:
		return domain.PathSmart
	default:
		return domain.PathDeep
	}
}

// Decide honours a forced path when one is given. A forced FAST without a
// cached result cannot be served and falls back to SMART.
func (r *Router) Decide(complexity float64, cacheAvailable bool, force domain.ExecutionPath) domain.ExecutionPath {
	if force.Valid() {
		if force == domain.PathFast && !cacheAvailable {
			return domain.PathSmart
		}
		return force
	}
	return r.Route(complexity, cacheAvailable)
}

func Describe(path domain.ExecutionPath) string {
	switch path {
	case domain.PathFast:
		return "cached result served without analysis"
	case domain.PathSmart:
		return "semantic search and ranking with neutral affordability"
	case domain.PathDeep:
		return "full analysis with affordability checks and alternative paths"
	}
	return "unknown path"
}

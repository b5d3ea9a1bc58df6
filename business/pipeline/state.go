package pipeline

import (
	"fmt"
	"math/rand/v2"

	"priceSense/domain"
)

// State is threaded through the stages of one request. It is owned by a
// single execution and never shared.
type State struct {
	TraceID    string
	Query      domain.Query
	Path       domain.ExecutionPath
	Complexity float64

	// Rng drives every random draw of the request.
	Rng *rand.Rand

	// Cached is the response replayed by the FAST path.
	Cached *domain.SearchResponse

	// Candidates is nil until discovery runs.
	Candidates []domain.CandidateItem

	// Assessed holds one verdict per candidate once affordability, or the
	// neutral adapter, has run. Affordable is the subset handed to ranking.
	Assessed        []domain.AssessedCandidate
	Affordable      []domain.AssessedCandidate
	AllUnaffordable bool

	Alternatives []domain.AlternativePath
	Ranked       []domain.Recommendation

	CacheHit bool

	// Degraded marks that a stage replaced its output with a safe default
	// that later stages consumed.
	Degraded bool

	Errors   []StageError
	Warnings []string
	Timings  []domain.StageTiming
}

func NewState(traceID string, q domain.Query, path domain.ExecutionPath, complexity float64, rng *rand.Rand) *State {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &State{
		TraceID:    traceID,
		Query:      q,
		Path:       path,
		Complexity: complexity,
		Rng:        rng,
	}
}

func (s *State) Warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

func (s *State) ErrorMessages() []string {
	out := make([]string, len(s.Errors))
	for i, e := range s.Errors {
		out[i] = e.Error()
	}
	return out
}

// Failed reports whether the named stage recorded an error.
func (s *State) Failed(stage string) (StageError, bool) {
	for _, e := range s.Errors {
		if e.Stage == stage {
			return e, true
		}
	}
	return StageError{}, false
}

// TotalCandidates is the number of candidates the request considered.
func (s *State) TotalCandidates() int {
	if s.CacheHit && s.Cached != nil {
		return s.Cached.TotalCandidates
	}
	return len(s.Candidates)
}

package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"priceSense/business/pipeline"
	"priceSense/business/routing"
	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/metrics"
	"priceSense/pkg/tracing"

	"github.com/go-playground/validator/v10"
)

// ErrUnavailable is returned when neither the similarity search nor the
// result cache could be reached, so not even a degraded answer exists.
var ErrUnavailable = errors.New("search infrastructure unavailable")

// ValidationError reports a malformed request. No pipeline stage runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ResultCache stores finished responses for the FAST path.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error)
	Set(ctx context.Context, key string, resp domain.SearchResponse, ttl time.Duration) error
}

type Config struct {
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	StageTimeout   time.Duration
	Policy         pipeline.Policy
}

type Service struct {
	estimator *routing.Estimator
	router    *routing.Router
	deps      pipeline.Deps
	cache     ResultCache
	validate  *validator.Validate
	orch      *pipeline.Orchestrator
	cfg       Config

	// newRand seeds the per-request random source.
	newRand func() *rand.Rand
}

func NewService(estimator *routing.Estimator, router *routing.Router, deps pipeline.Deps, cache ResultCache, cfg Config) *Service {
	orch := pipeline.NewOrchestrator(cfg.StageTimeout, cfg.RequestTimeout)
	if cfg.Policy != nil {
		orch = orch.WithPolicy(cfg.Policy)
	}
	return &Service{
		estimator: estimator,
		router:    router,
		deps:      deps,
		cache:     cache,
		validate:  validator.New(),
		orch:      orch,
		cfg:       cfg,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// Search validates the request, routes it, runs the chosen stage graph and
// assembles the response. Stage failures never fail the call; they show up
// in the response's errors and warnings.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	start := time.Now()

	q, err := s.normalize(req)
	if err != nil {
		logger.Debug("search_rejected", "trace_id", tracing.TraceIDFromContext(ctx), "error", err)
		return domain.SearchResponse{}, err
	}

	tid := tracing.TraceIDFromContext(ctx)
	complexity := s.estimator.EstimateQuery(q)
	key := CacheKey(q)

	var cached *domain.SearchResponse
	cacheErr := false
	if req.CacheEnabled() && s.cache != nil {
		resp, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			cacheErr = true
			metrics.CacheLookups.WithLabelValues("error").Inc()
			logger.Warn("cache_lookup_failed", "trace_id", tid, "key", key, "error", err)
		case ok:
			cached = resp
			metrics.CacheLookups.WithLabelValues("hit").Inc()
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	path := s.router.Decide(complexity, cached != nil, req.ForcePath)
	logger.Info("search_routed",
		"trace_id", tid,
		"path", path,
		"complexity", complexity,
		"cache_available", cached != nil,
	)

	g, err := pipeline.BuildGraph(path, s.deps)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("build %s graph: %w", path, err)
	}

	st := pipeline.NewState(tid, q, path, complexity, s.newRand())
	st.Cached = cached

	if err := s.orch.Execute(ctx, g, st); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.SearchResponse{}, fmt.Errorf("context error: %w", ctxErr)
		}
		return domain.SearchResponse{}, err
	}

	if _, failed := st.Failed(pipeline.StageDiscovery); failed && cacheErr {
		logger.Error("search_unavailable", "trace_id", tid)
		return domain.SearchResponse{}, ErrUnavailable
	}

	resp := domain.SearchResponse{
		Success:         true,
		Query:           q.Text,
		PathTaken:       path,
		PathDescription: routing.Describe(path),
		ComplexityScore: complexity,
		Recommendations: st.Ranked,
		TotalCandidates: st.TotalCandidates(),
		CacheHit:        st.CacheHit,
		Degraded:        st.Degraded,
		Errors:          st.ErrorMessages(),
		Warnings:        st.Warnings,
		Alternatives:    st.Alternatives,
		Timings:         st.Timings,
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []domain.Recommendation{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}

	elapsed := time.Since(start)
	resp.ExecutionTimeMs = float64(elapsed.Microseconds()) / 1000
	metrics.RankingRequests.WithLabelValues(string(path)).Inc()
	metrics.RankingLatency.WithLabelValues(string(path)).Observe(elapsed.Seconds())

	if s.cacheable(path, resp) {
		if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			logger.Warn("cache_store_failed", "trace_id", tid, "key", key, "error", err)
		}
	}

	logger.Info("search_done",
		"trace_id", tid,
		"path", path,
		"recommendations", len(resp.Recommendations),
		"errors", len(resp.Errors),
		"degraded", resp.Degraded,
		"elapsed_ms", resp.ExecutionTimeMs,
	)
	return resp, nil
}

// cacheable admits only clean answers: a degraded response replayed from
// the cache would hide that its inputs were substituted.
func (s *Service) cacheable(path domain.ExecutionPath, resp domain.SearchResponse) bool {
	return s.cache != nil &&
		path != domain.PathFast &&
		len(resp.Recommendations) > 0 &&
		len(resp.Errors) == 0 &&
		!resp.Degraded
}

func (s *Service) normalize(req domain.SearchRequest) (domain.Query, error) {
	text := strings.TrimSpace(req.Query)
	if text == "" {
		return domain.Query{}, &ValidationError{Field: "query", Message: "query must not be empty"}
	}
	if req.ForcePath != "" && !req.ForcePath.Valid() {
		return domain.Query{}, &ValidationError{Field: "forcePath", Message: fmt.Sprintf("unknown execution path %q", req.ForcePath)}
	}
	if req.Filters != nil {
		if err := s.validate.Struct(req.Filters); err != nil {
			return domain.Query{}, &ValidationError{Field: "filters", Message: err.Error()}
		}
	}
	if req.Profile != nil {
		if err := s.validate.Struct(req.Profile); err != nil {
			return domain.Query{}, &ValidationError{Field: "profile", Message: err.Error()}
		}
	}

	q := domain.Query{Text: text, Profile: req.Profile, HasImage: req.HasImage}
	if req.Filters != nil {
		q.Filters = *req.Filters
	}
	return q, nil
}

// CacheKey is search:{first 12 hex chars of sha256(query)}:{user id}.
func CacheKey(q domain.Query) string {
	sum := sha256.Sum256([]byte(q.Text))
	user := "anonymous"
	if q.Profile != nil && q.Profile.UserID != "" {
		user = q.Profile.UserID
	}
	return fmt.Sprintf("search:%s:%s", hex.EncodeToString(sum[:])[:12], user)
}

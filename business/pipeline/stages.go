package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"priceSense/business/explain"
	"priceSense/business/pathfinder"
	"priceSense/business/ranking"
	"priceSense/domain"
	"priceSense/pkg/logger"
)

const (
	StageCache                = "cache"
	StageDiscovery            = "discovery"
	StageAffordability        = "affordability"
	StageNeutralAffordability = "neutral_affordability"
	StagePathfinder           = "pathfinder"
	StageRanking              = "ranking"
	StageExplanation          = "explanation"
)

// SimilaritySearch returns catalog items ranked by similarity to the query.
type SimilaritySearch interface {
	Search(ctx context.Context, query string, filters domain.SearchFilters, topK int, threshold float64) ([]domain.SearchHit, error)
}

type Ranker interface {
	Rank(ctx context.Context, q domain.Query, assessed []domain.AssessedCandidate, rng *rand.Rand) ([]domain.Recommendation, ranking.Report)
}

// ClusterCatalog looks up in-stock items sharing a cluster.
type ClusterCatalog interface {
	FindInCluster(ctx context.Context, clusterID, excludeID string, limit int) ([]domain.CandidateItem, error)
}

type AlternativeFinder interface {
	FindAlternatives(ctx context.Context, candidates []domain.CandidateItem, profile *domain.UserProfile) (pathfinder.Result, error)
}

var errNoCachedResult = errors.New("no cached result to serve")

// cacheNode replays a previously computed response.
type cacheNode struct{}

func (cacheNode) Name() string { return StageCache }

func (cacheNode) Run(_ context.Context, st *State) error {
	if st.Cached == nil {
		return StageError{Kind: KindInternal, Err: errNoCachedResult}
	}
	st.Ranked = append([]domain.Recommendation(nil), st.Cached.Recommendations...)
	st.Alternatives = st.Cached.Alternatives
	st.Warnings = append(st.Warnings, st.Cached.Warnings...)
	st.Degraded = st.Degraded || st.Cached.Degraded
	st.CacheHit = true
	return nil
}

func (cacheNode) Fallback(st *State) {
	st.Ranked = []domain.Recommendation{}
	st.Degraded = true
}

type discoveryNode struct {
	search    SimilaritySearch
	topK      int
	threshold float64
}

func (discoveryNode) Name() string { return StageDiscovery }

func (n discoveryNode) Run(ctx context.Context, st *State) error {
	hits, err := n.search.Search(ctx, st.Query.Text, st.Query.Filters, n.topK, n.threshold)
	if err != nil {
		return err
	}

	st.Candidates = make([]domain.CandidateItem, 0, len(hits))
	for _, h := range hits {
		item := h.Item
		item.Similarity = h.Similarity
		st.Candidates = append(st.Candidates, item)
	}
	if len(st.Candidates) == 0 {
		st.Warn("no candidates matched the query")
	}
	return nil
}

func (discoveryNode) Fallback(st *State) {
	st.Candidates = []domain.CandidateItem{}
}

// affordabilityNode asks the oracle about every candidate. A candidate the
// oracle cannot judge gets a neutral verdict and marks the state degraded.
type affordabilityNode struct {
	oracle pathfinder.Oracle
}

func (affordabilityNode) Name() string { return StageAffordability }

func (n affordabilityNode) Run(ctx context.Context, st *State) error {
	if len(st.Candidates) == 0 {
		st.Assessed = []domain.AssessedCandidate{}
		st.Affordable = []domain.AssessedCandidate{}
		return nil
	}
	if st.Query.Profile == nil {
		st.Warn("no user profile supplied; affordability assumed")
		neutralize(st)
		return nil
	}

	assessed := make([]domain.AssessedCandidate, 0, len(st.Candidates))
	failures := 0
	var lastErr error
	for _, item := range st.Candidates {
		v, err := n.oracle.Evaluate(ctx, item, st.Query.Profile)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			lastErr = err
			v = domain.NeutralVerdict()
		}
		assessed = append(assessed, domain.AssessedCandidate{Item: item, Verdict: v})
	}

	if failures == len(st.Candidates) {
		return lastErr
	}
	if failures > 0 {
		st.Degraded = true
		st.Warn("affordability unavailable for %d of %d candidates; neutral verdicts used", failures, len(st.Candidates))
		recordError(st, Classify(StageAffordability, fmt.Errorf("%d of %d candidates unjudged: %w", failures, len(st.Candidates), lastErr)))
	}

	st.Assessed = assessed
	st.Affordable = affordableOnly(assessed)
	st.AllUnaffordable = len(st.Affordable) == 0
	return nil
}

func (affordabilityNode) Fallback(st *State) {
	neutralize(st)
	st.Degraded = true
}

// neutralAffordabilityNode stands in for the oracle on paths that skip it.
type neutralAffordabilityNode struct{}

func (neutralAffordabilityNode) Name() string { return StageNeutralAffordability }

func (neutralAffordabilityNode) Run(_ context.Context, st *State) error {
	neutralize(st)
	return nil
}

func (neutralAffordabilityNode) Fallback(st *State) { neutralize(st) }

type pathfinderNode struct {
	finder AlternativeFinder
}

func (pathfinderNode) Name() string { return StagePathfinder }

func (n pathfinderNode) Run(ctx context.Context, st *State) error {
	res, err := n.finder.FindAlternatives(ctx, st.Candidates, st.Query.Profile)
	if err != nil {
		return err
	}
	st.Warnings = append(st.Warnings, res.Warnings...)
	st.Alternatives = res.Paths
	if len(res.Affordable) > 0 {
		st.Affordable = res.Affordable
		st.AllUnaffordable = false
	}
	return nil
}

func (pathfinderNode) Fallback(st *State) {
	st.Alternatives = nil
}

// rankingNode ranks the affordable candidates and, when a catalog is
// configured, attaches same-cluster alternatives to each recommendation.
type rankingNode struct {
	ranker       Ranker
	catalog      ClusterCatalog
	alternatives int
}

func (rankingNode) Name() string { return StageRanking }

func (n rankingNode) Run(ctx context.Context, st *State) error {
	if len(st.Affordable) == 0 {
		st.Ranked = []domain.Recommendation{}
		return nil
	}
	if st.Degraded {
		st.Warn("ranking used fallback affordability input")
	}

	recs, rep := n.ranker.Rank(ctx, st.Query, st.Affordable, st.Rng)
	st.Ranked = recs
	if rep.BanditFallbacks > 0 {
		st.Degraded = true
		st.Warn("bandit scores unavailable for %d of %d candidates; neutral score used", rep.BanditFallbacks, len(st.Affordable))
		recordError(st, Classify(StageRanking, fmt.Errorf("%d of %d bandit samples fell back: %w", rep.BanditFallbacks, len(st.Affordable), rep.BanditErr)))
	}

	n.attachClusterAlternatives(ctx, st)
	return nil
}

// attachClusterAlternatives is best-effort: the first lookup failure leaves
// the remaining recommendations without alternatives and adds a warning.
func (n rankingNode) attachClusterAlternatives(ctx context.Context, st *State) {
	if n.catalog == nil || n.alternatives <= 0 {
		return
	}
	for i := range st.Ranked {
		rec := &st.Ranked[i]
		if rec.Item.ClusterID == "" {
			continue
		}
		alts, err := n.catalog.FindInCluster(ctx, rec.Item.ClusterID, rec.Item.ID, n.alternatives)
		if err != nil {
			logger.Warn("cluster_alternatives_failed", "trace_id", st.TraceID, "item_id", rec.Item.ID, "error", err)
			st.Warn("cluster alternatives unavailable: %v", err)
			return
		}
		rec.ClusterAlternatives = alts
	}
}

func (rankingNode) Fallback(st *State) {
	st.Ranked = []domain.Recommendation{}
}

// explanationNode asks the explainer about the first detailed
// recommendations and uses the template for the rest or on failure.
type explanationNode struct {
	explainer explain.Explainer
	detailed  int
	timeout   time.Duration
}

func (explanationNode) Name() string { return StageExplanation }

func (n explanationNode) Run(ctx context.Context, st *State) error {
	for i := range st.Ranked {
		rec := &st.Ranked[i]
		if n.explainer != nil && i < n.detailed {
			text, err := n.explainOne(ctx, st, *rec)
			if err == nil {
				rec.Explanation = text
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("explanation_fallback", "trace_id", st.TraceID, "item_id", rec.Item.ID, "error", err)
			st.Warn("explanation for %s fell back to template", rec.Item.ID)
		}
		rec.Explanation, _ = explain.Template{}.Explain(ctx, st.Query.Text, st.Query.Profile, *rec)
	}
	return nil
}

func (n explanationNode) explainOne(ctx context.Context, st *State, rec domain.Recommendation) (string, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	return n.explainer.Explain(ctx, st.Query.Text, st.Query.Profile, rec)
}

func (explanationNode) Fallback(st *State) {
	for i := range st.Ranked {
		if st.Ranked[i].Explanation == "" {
			st.Ranked[i].Explanation, _ = explain.Template{}.Explain(context.Background(), st.Query.Text, st.Query.Profile, st.Ranked[i])
		}
	}
}

func neutralize(st *State) {
	st.Assessed = make([]domain.AssessedCandidate, len(st.Candidates))
	for i, item := range st.Candidates {
		st.Assessed[i] = domain.AssessedCandidate{Item: item, Verdict: domain.NeutralVerdict()}
	}
	st.Affordable = st.Assessed
	st.AllUnaffordable = false
}

func affordableOnly(in []domain.AssessedCandidate) []domain.AssessedCandidate {
	out := make([]domain.AssessedCandidate, 0, len(in))
	for _, a := range in {
		if a.Verdict.Affordable() {
			out = append(out, a)
		}
	}
	return out
}

func allUnaffordable(st *State) bool {
	return st.AllUnaffordable
}

package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"priceSense/business/bandit"
	"priceSense/business/explain"
	"priceSense/business/pathfinder"
	"priceSense/business/ranking"
	"priceSense/domain"
	"priceSense/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFunc func(ctx context.Context, query string) ([]domain.SearchHit, error)

func (f searchFunc) Search(ctx context.Context, query string, _ domain.SearchFilters, _ int, _ float64) ([]domain.SearchHit, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, query)
}

type oracleFunc func(item domain.CandidateItem) (domain.AffordabilityVerdict, error)

func (f oracleFunc) Evaluate(_ context.Context, item domain.CandidateItem, _ *domain.UserProfile) (domain.AffordabilityVerdict, error) {
	if f == nil {
		return domain.NeutralVerdict(), nil
	}
	return f(item)
}

type finderFunc func(cands []domain.CandidateItem) (pathfinder.Result, error)

func (f finderFunc) FindAlternatives(_ context.Context, cands []domain.CandidateItem, _ *domain.UserProfile) (pathfinder.Result, error) {
	if f == nil {
		return pathfinder.Result{}, nil
	}
	return f(cands)
}

type rankerFunc func(assessed []domain.AssessedCandidate) []domain.Recommendation

func (f rankerFunc) Rank(_ context.Context, _ domain.Query, assessed []domain.AssessedCandidate, _ *rand.Rand) ([]domain.Recommendation, ranking.Report) {
	return f(assessed), ranking.Report{}
}

type catalogFunc func(cluster string, maxPrice float64) []domain.CandidateItem

func (f catalogFunc) FindCheaperInCluster(_ context.Context, cluster string, maxPrice float64, _ string, _ int) ([]domain.CandidateItem, error) {
	return f(cluster, maxPrice), nil
}

type failingExplainer struct{}

func (failingExplainer) Explain(context.Context, string, *domain.UserProfile, domain.Recommendation) (string, error) {
	return "", errors.New("llm quota exceeded")
}

func queryFor(text string, profile *domain.UserProfile) domain.Query {
	return domain.Query{Text: text, Profile: profile}
}

func realRanker() *ranking.Ranker {
	store := bandit.NewStore(memory.NewCounterStore(1, 1), bandit.DefaultConfig())
	return ranking.NewRanker(store, ranking.DefaultWeights(), ranking.NewDiversityInjector(ranking.DefaultDiversityConfig()))
}

func hits(items ...domain.CandidateItem) searchFunc {
	return func(context.Context, string) ([]domain.SearchHit, error) {
		out := make([]domain.SearchHit, len(items))
		for i, it := range items {
			out[i] = domain.SearchHit{Item: it, Similarity: 0.9 - float64(i)*0.01}
		}
		return out, nil
	}
}

func run(t *testing.T, path domain.ExecutionPath, d Deps, st *State) *State {
	t.Helper()
	g, err := BuildGraph(path, d)
	require.NoError(t, err)
	require.NoError(t, NewOrchestrator(0, 0).Execute(context.Background(), g, st))
	return st
}

var testProfile = &domain.UserProfile{UserID: "u1", MonthlyIncome: 3000, MonthlyExpenses: 2800, CreditScore: 600}

func TestScenario_ZeroCandidates(t *testing.T) {
	rankerCalled := false
	d := Deps{
		Search: hits(),
		Ranker: rankerFunc(func([]domain.AssessedCandidate) []domain.Recommendation {
			rankerCalled = true
			return nil
		}),
		Explainer: failingExplainer{},
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("unicorn", nil), domain.PathSmart, 0.4, rand.New(rand.NewPCG(1, 1))))

	assert.False(t, rankerCalled)
	assert.NotNil(t, st.Ranked)
	assert.Empty(t, st.Ranked)
	assert.Zero(t, st.TotalCandidates())
	assert.Empty(t, st.Errors)
	assert.Len(t, st.Timings, 4)
}

func TestScenario_DeepAllUnaffordableOneAffordableAlternative(t *testing.T) {
	expensive := []domain.CandidateItem{
		{ID: "pro-1", Name: "Pro Laptop 16", Price: 3200, ClusterID: "4", InStock: true},
		{ID: "pro-2", Name: "Pro Laptop 14", Price: 2800, ClusterID: "4", InStock: true},
	}
	budget := domain.CandidateItem{ID: "air-1", Name: "Air Laptop", Price: 700, ClusterID: "4", InStock: true}

	oracle := oracleFunc(func(item domain.CandidateItem) (domain.AffordabilityVerdict, error) {
		if item.Price <= 1000 {
			return domain.AffordabilityVerdict{CanAffordCash: true, Risk: domain.RiskSafe, Score: 85}, nil
		}
		return domain.AffordabilityVerdict{Risk: domain.RiskRisky, Score: 10}, nil
	})

	sent := false
	catalog := catalogFunc(func(cluster string, maxPrice float64) []domain.CandidateItem {
		if cluster == "4" && budget.Price < maxPrice && !sent {
			sent = true
			return []domain.CandidateItem{budget}
		}
		return nil
	})

	d := Deps{
		Search:     hits(expensive...),
		Oracle:     oracle,
		Pathfinder: pathfinder.New(catalog, oracle, pathfinder.DefaultConfig()),
		Ranker:     realRanker(),
	}

	st := run(t, domain.PathDeep, d, NewState("t", queryFor("laptop", testProfile), domain.PathDeep, 0.8, rand.New(rand.NewPCG(2, 2))))

	require.Empty(t, st.Errors)
	require.Len(t, st.Ranked, 1)
	assert.Equal(t, "air-1", st.Ranked[0].Item.ID)
	assert.True(t, st.Ranked[0].Affordability.CanAffordCash)
	assert.NotEmpty(t, st.Ranked[0].Explanation)
	assert.NotEmpty(t, st.Alternatives)
	assert.Equal(t, 2, st.TotalCandidates())

	var stages []string
	for _, tm := range st.Timings {
		stages = append(stages, tm.Stage)
	}
	assert.Equal(t, []string{StageDiscovery, StageAffordability, StagePathfinder, StageRanking, StageExplanation}, stages)
}

func TestScenario_DeepAffordableSkipsPathfinder(t *testing.T) {
	finderCalled := false
	d := Deps{
		Search: hits(domain.CandidateItem{ID: "a", Price: 10}, domain.CandidateItem{ID: "b", Price: 5000}),
		Oracle: oracleFunc(func(item domain.CandidateItem) (domain.AffordabilityVerdict, error) {
			return domain.AffordabilityVerdict{CanAffordCash: item.Price < 100}, nil
		}),
		Pathfinder: finderFunc(func([]domain.CandidateItem) (pathfinder.Result, error) {
			finderCalled = true
			return pathfinder.Result{}, nil
		}),
		Ranker: realRanker(),
	}

	st := run(t, domain.PathDeep, d, NewState("t", queryFor("thing", testProfile), domain.PathDeep, 0.9, rand.New(rand.NewPCG(3, 3))))

	assert.False(t, finderCalled)
	require.Len(t, st.Ranked, 1)
	assert.Equal(t, "a", st.Ranked[0].Item.ID)
}

func TestScenario_DeepOracleDownIsDegraded(t *testing.T) {
	d := Deps{
		Search: hits(domain.CandidateItem{ID: "a"}, domain.CandidateItem{ID: "b"}),
		Oracle: oracleFunc(func(domain.CandidateItem) (domain.AffordabilityVerdict, error) {
			return domain.AffordabilityVerdict{}, errors.New("oracle: 503")
		}),
		Pathfinder: finderFunc(nil),
		Ranker:     realRanker(),
	}

	st := run(t, domain.PathDeep, d, NewState("t", queryFor("thing", testProfile), domain.PathDeep, 0.9, rand.New(rand.NewPCG(4, 4))))

	assert.True(t, st.Degraded)
	se, failed := st.Failed(StageAffordability)
	require.True(t, failed)
	assert.Equal(t, KindUpstreamUnavailable, se.Kind)

	require.Len(t, st.Ranked, 2)
	for _, r := range st.Ranked {
		assert.True(t, r.Affordability.Neutral)
	}
	assert.Contains(t, st.Warnings, "ranking used fallback affordability input")
}

func TestScenario_DeepPartialOracleFailure(t *testing.T) {
	d := Deps{
		Search: hits(domain.CandidateItem{ID: "a"}, domain.CandidateItem{ID: "b"}),
		Oracle: oracleFunc(func(item domain.CandidateItem) (domain.AffordabilityVerdict, error) {
			if item.ID == "b" {
				return domain.AffordabilityVerdict{}, errors.New("timeout")
			}
			return domain.AffordabilityVerdict{CanAffordCash: true, Score: 70}, nil
		}),
		Pathfinder: finderFunc(nil),
		Ranker:     realRanker(),
	}

	st := run(t, domain.PathDeep, d, NewState("t", queryFor("thing", testProfile), domain.PathDeep, 0.9, nil))

	assert.True(t, st.Degraded)
	assert.Len(t, st.Ranked, 2)
	se, failed := st.Failed(StageAffordability)
	require.True(t, failed)
	assert.Equal(t, KindUpstreamUnavailable, se.Kind)
	assert.Contains(t, se.Error(), "1 of 2 candidates")
	assert.Contains(t, st.Warnings, "affordability unavailable for 1 of 2 candidates; neutral verdicts used")
}

func TestScenario_DiscoveryFailure(t *testing.T) {
	d := Deps{
		Search: searchFunc(func(context.Context, string) ([]domain.SearchHit, error) {
			return nil, errors.New("vector store unreachable")
		}),
		Ranker: realRanker(),
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("laptop", nil), domain.PathSmart, 0.4, nil))

	require.Len(t, st.Errors, 1)
	assert.Equal(t, StageDiscovery, st.Errors[0].Stage)
	assert.Empty(t, st.Ranked)
	assert.Zero(t, st.TotalCandidates())
}

func TestScenario_SmartUsesNeutralVerdicts(t *testing.T) {
	d := Deps{
		Search:               hits(domain.CandidateItem{ID: "a", Name: "Laptop"}, domain.CandidateItem{ID: "b"}, domain.CandidateItem{ID: "c"}),
		Ranker:               realRanker(),
		Explainer:            failingExplainer{},
		DetailedExplanations: 1,
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("laptop", nil), domain.PathSmart, 0.4, rand.New(rand.NewPCG(5, 5))))

	require.Len(t, st.Ranked, 3)
	for i, r := range st.Ranked {
		assert.True(t, r.Affordability.Neutral)
		assert.Equal(t, i+1, r.Rank)
		assert.NotEmpty(t, r.Explanation)
	}
	assert.Len(t, st.Warnings, 1, "only the detailed explanation falls back")
	assert.Empty(t, st.Errors)
}

type downCounters struct{}

func (downCounters) Get(context.Context, string) (domain.BanditParameters, bool, error) {
	return domain.BanditParameters{}, false, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}
func (downCounters) IncrementAlpha(context.Context, string, float64) error { return nil }
func (downCounters) IncrementBeta(context.Context, string, float64) error  { return nil }

func TestScenario_BanditStoreDownIsDegraded(t *testing.T) {
	store := bandit.NewStore(downCounters{}, bandit.DefaultConfig())
	d := Deps{
		Search: hits(domain.CandidateItem{ID: "a"}, domain.CandidateItem{ID: "b"}, domain.CandidateItem{ID: "c"}),
		Ranker: ranking.NewRanker(store, ranking.DefaultWeights(), ranking.NewDiversityInjector(ranking.DefaultDiversityConfig())),
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("laptop", nil), domain.PathSmart, 0.4, rand.New(rand.NewPCG(8, 8))))

	require.Len(t, st.Ranked, 3)
	for _, r := range st.Ranked {
		assert.Equal(t, 50.0, r.Scores.BanditSample)
	}
	assert.True(t, st.Degraded)
	se, failed := st.Failed(StageRanking)
	require.True(t, failed)
	assert.Equal(t, KindUpstreamUnavailable, se.Kind)
	assert.ErrorIs(t, se, bandit.ErrStoreUnavailable)
	assert.Contains(t, st.Warnings, "bandit scores unavailable for 3 of 3 candidates; neutral score used")
}

type clusterFunc func(clusterID, excludeID string, limit int) ([]domain.CandidateItem, error)

func (f clusterFunc) FindInCluster(_ context.Context, clusterID, excludeID string, limit int) ([]domain.CandidateItem, error) {
	return f(clusterID, excludeID, limit)
}

func TestScenario_ClusterAlternativesAttached(t *testing.T) {
	var limits []int
	catalog := clusterFunc(func(clusterID, excludeID string, limit int) ([]domain.CandidateItem, error) {
		limits = append(limits, limit)
		return []domain.CandidateItem{
			{ID: excludeID + "-alt1", ClusterID: clusterID},
			{ID: excludeID + "-alt2", ClusterID: clusterID},
		}, nil
	})
	d := Deps{
		Search:              hits(domain.CandidateItem{ID: "a", ClusterID: "1"}, domain.CandidateItem{ID: "b"}, domain.CandidateItem{ID: "c", ClusterID: "2"}),
		Ranker:              realRanker(),
		Catalog:             catalog,
		ClusterAlternatives: 2,
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("laptop", nil), domain.PathSmart, 0.4, rand.New(rand.NewPCG(9, 9))))

	require.Len(t, st.Ranked, 3)
	assert.Equal(t, []int{2, 2}, limits, "items without a cluster are not looked up")
	for _, r := range st.Ranked {
		if r.Item.ClusterID == "" {
			assert.Empty(t, r.ClusterAlternatives)
			continue
		}
		require.Len(t, r.ClusterAlternatives, 2)
		assert.Equal(t, r.Item.ID+"-alt1", r.ClusterAlternatives[0].ID)
	}
	assert.Empty(t, st.Errors)
	assert.Empty(t, st.Warnings)
}

func TestScenario_ClusterAlternativesFailureIsWarning(t *testing.T) {
	catalog := clusterFunc(func(string, string, int) ([]domain.CandidateItem, error) {
		return nil, errors.New("catalog offline")
	})
	d := Deps{
		Search:              hits(domain.CandidateItem{ID: "a", ClusterID: "1"}, domain.CandidateItem{ID: "b", ClusterID: "1"}),
		Ranker:              realRanker(),
		Catalog:             catalog,
		ClusterAlternatives: 2,
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("laptop", nil), domain.PathSmart, 0.4, rand.New(rand.NewPCG(10, 10))))

	require.Len(t, st.Ranked, 2)
	for _, r := range st.Ranked {
		assert.Empty(t, r.ClusterAlternatives)
	}
	assert.Empty(t, st.Errors)
	assert.Equal(t, []string{"cluster alternatives unavailable: catalog offline"}, st.Warnings)
}

func TestScenario_FastReplaysCachedWarnings(t *testing.T) {
	st := NewState("t", queryFor("laptop", nil), domain.PathFast, 0.1, nil)
	st.Cached = &domain.SearchResponse{
		Recommendations: []domain.Recommendation{{Rank: 1, Item: domain.CandidateItem{ID: "x"}}},
		Warnings:        []string{"explanation for x fell back to template"},
	}

	run(t, domain.PathFast, Deps{}, st)

	assert.Equal(t, []string{"explanation for x fell back to template"}, st.Warnings)
	assert.False(t, st.Degraded)
}

func TestScenario_FastServesCache(t *testing.T) {
	cached := &domain.SearchResponse{
		TotalCandidates: 12,
		Recommendations: []domain.Recommendation{{Rank: 1, Item: domain.CandidateItem{ID: "x"}}},
	}
	st := NewState("t", queryFor("laptop", nil), domain.PathFast, 0.1, nil)
	st.Cached = cached

	run(t, domain.PathFast, Deps{}, st)

	assert.True(t, st.CacheHit)
	require.Len(t, st.Ranked, 1)
	assert.Equal(t, 12, st.TotalCandidates())
	require.Len(t, st.Timings, 1)
	assert.Equal(t, StageCache, st.Timings[0].Stage)
}

func TestScenario_FastWithoutCacheFailsSoft(t *testing.T) {
	st := run(t, domain.PathFast, Deps{}, NewState("t", queryFor("laptop", nil), domain.PathFast, 0.1, nil))

	require.Len(t, st.Errors, 1)
	assert.Equal(t, KindInternal, st.Errors[0].Kind)
	assert.Empty(t, st.Ranked)
}

func TestScenario_LLMExplanationsForTopOnly(t *testing.T) {
	calls := 0
	exp := explainerFunc(func(rec domain.Recommendation) (string, error) {
		calls++
		return "because " + rec.Item.ID, nil
	})
	d := Deps{
		Search:               hits(domain.CandidateItem{ID: "a"}, domain.CandidateItem{ID: "b"}, domain.CandidateItem{ID: "c"}, domain.CandidateItem{ID: "d"}),
		Ranker:               realRanker(),
		Explainer:            exp,
		DetailedExplanations: 2,
	}

	st := run(t, domain.PathSmart, d, NewState("t", queryFor("q", nil), domain.PathSmart, 0.4, rand.New(rand.NewPCG(6, 6))))

	assert.Equal(t, 2, calls)
	assert.Equal(t, "because "+st.Ranked[0].Item.ID, st.Ranked[0].Explanation)
	assert.NotContains(t, st.Ranked[3].Explanation, "because")
}

type explainerFunc func(rec domain.Recommendation) (string, error)

func (f explainerFunc) Explain(_ context.Context, _ string, _ *domain.UserProfile, rec domain.Recommendation) (string, error) {
	return f(rec)
}

var _ explain.Explainer = explainerFunc(nil)

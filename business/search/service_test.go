package search_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"priceSense/business/bandit"
	"priceSense/business/pathfinder"
	"priceSense/business/pipeline"
	"priceSense/business/ranking"
	"priceSense/business/routing"
	"priceSense/business/search"
	"priceSense/domain"
	"priceSense/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	calls int
	err   error
	hits  []domain.SearchHit
}

func (f *fakeSearch) Search(context.Context, string, domain.SearchFilters, int, float64) ([]domain.SearchHit, error) {
	f.calls++
	return f.hits, f.err
}

type allAffordable struct{}

func (allAffordable) Evaluate(context.Context, domain.CandidateItem, *domain.UserProfile) (domain.AffordabilityVerdict, error) {
	return domain.AffordabilityVerdict{CanAffordCash: true, Risk: domain.RiskSafe, Score: 90}, nil
}

type noAlternatives struct{}

func (noAlternatives) FindAlternatives(context.Context, []domain.CandidateItem, *domain.UserProfile) (pathfinder.Result, error) {
	return pathfinder.Result{}, nil
}

// flakyOracle fails for a single item and judges the rest affordable.
type flakyOracle struct {
	failID string
}

func (o flakyOracle) Evaluate(ctx context.Context, item domain.CandidateItem, p *domain.UserProfile) (domain.AffordabilityVerdict, error) {
	if item.ID == o.failID {
		return domain.AffordabilityVerdict{}, errors.New("oracle: 502 bad gateway")
	}
	return allAffordable{}.Evaluate(ctx, item, p)
}

type downCounters struct{}

func (downCounters) Get(context.Context, string) (domain.BanditParameters, bool, error) {
	return domain.BanditParameters{}, false, errors.New("redis: connection refused")
}
func (downCounters) IncrementAlpha(context.Context, string, float64) error { return nil }
func (downCounters) IncrementBeta(context.Context, string, float64) error  { return nil }

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*domain.SearchResponse, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func (brokenCache) Set(context.Context, string, domain.SearchResponse, time.Duration) error {
	return errors.New("redis: connection refused")
}

func catalogHits() []domain.SearchHit {
	return []domain.SearchHit{
		{Item: domain.CandidateItem{ID: "lap-1", Name: "Gaming Laptop", Price: 1200, ClusterID: "1", Rating: 4.6}, Similarity: 0.91},
		{Item: domain.CandidateItem{ID: "lap-2", Name: "Office Laptop", Price: 650, ClusterID: "1", Rating: 4.1}, Similarity: 0.84},
		{Item: domain.CandidateItem{ID: "tab-1", Name: "Tablet", Price: 400, ClusterID: "2", Rating: 4.3}, Similarity: 0.71},
	}
}

func newService(t *testing.T, s pipeline.SimilaritySearch, cache search.ResultCache) *search.Service {
	t.Helper()
	return newServiceWith(t, s, allAffordable{}, memory.NewCounterStore(1, 1), cache)
}

func newServiceWith(t *testing.T, s pipeline.SimilaritySearch, oracle pathfinder.Oracle, counters bandit.CounterStore, cache search.ResultCache) *search.Service {
	t.Helper()
	store := bandit.NewStore(counters, bandit.DefaultConfig())
	deps := pipeline.Deps{
		Search:     s,
		Oracle:     oracle,
		Pathfinder: noAlternatives{},
		Ranker:     ranking.NewRanker(store, ranking.DefaultWeights(), ranking.NewDiversityInjector(ranking.DefaultDiversityConfig())),
		TopK:       50,
	}
	return search.NewService(
		routing.NewEstimator(nil, nil),
		routing.NewRouter(routing.DefaultThresholds()),
		deps,
		cache,
		search.Config{CacheTTL: time.Hour, StageTimeout: time.Second, RequestTimeout: 5 * time.Second},
	)
}

func TestSearch_Validation(t *testing.T) {
	negative := -5.0
	tests := []struct {
		name  string
		req   domain.SearchRequest
		field string
	}{
		{"empty query", domain.SearchRequest{Query: ""}, "query"},
		{"blank query", domain.SearchRequest{Query: "   \t"}, "query"},
		{"negative max price", domain.SearchRequest{Query: "laptop", Filters: &domain.SearchFilters{MaxPrice: &negative}}, "filters"},
		{"unknown path", domain.SearchRequest{Query: "laptop", ForcePath: "TURBO"}, "forcePath"},
		{"negative income", domain.SearchRequest{Query: "laptop", Profile: &domain.UserProfile{MonthlyIncome: -1}}, "profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSearch{hits: catalogHits()}
			svc := newService(t, fs, memory.NewResultCache(16, time.Hour))

			_, err := svc.Search(context.Background(), tt.req)

			var ve *search.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, fs.calls, "no stage may run on a rejected request")
		})
	}
}

func TestSearch_SmartThenFastFromCache(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	svc := newService(t, fs, memory.NewResultCache(16, time.Hour))

	first, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, domain.PathSmart, first.PathTaken)
	assert.False(t, first.CacheHit)
	assert.Len(t, first.Recommendations, 3)
	assert.Equal(t, 3, first.TotalCandidates)
	assert.Empty(t, first.Errors)
	assert.False(t, first.Degraded)
	assert.Equal(t, routing.Describe(domain.PathSmart), first.PathDescription)

	second, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, domain.PathFast, second.PathTaken)
	assert.True(t, second.CacheHit)
	assert.Equal(t, routing.Describe(domain.PathFast), second.PathDescription)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, 3, second.TotalCandidates)
	assert.Equal(t, 1, fs.calls)
}

func TestSearch_CacheDisabledPerRequest(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	svc := newService(t, fs, memory.NewResultCache(16, time.Hour))
	off := false

	_, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop", UseCache: &off})
	require.NoError(t, err)
	assert.Equal(t, domain.PathSmart, resp.PathTaken)
	assert.Equal(t, 2, fs.calls)
}

func TestSearch_ComplexQueryTakesDeepPath(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	svc := newService(t, fs, memory.NewResultCache(16, time.Hour))
	profile := &domain.UserProfile{UserID: "u7", MonthlyIncome: 5000, MonthlyExpenses: 3000, Savings: 2000, CreditScore: 720}

	resp, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:   "can I afford a gaming laptop with monthly payment",
		Profile: profile,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PathDeep, resp.PathTaken)
	assert.GreaterOrEqual(t, resp.ComplexityScore, 0.7)
	require.NotEmpty(t, resp.Recommendations)
	for _, r := range resp.Recommendations {
		assert.False(t, r.Affordability.Neutral)
	}
}

func TestSearch_ForcedFastWithoutCacheRunsSmart(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	svc := newService(t, fs, memory.NewResultCache(16, time.Hour))

	resp, err := svc.Search(context.Background(), domain.SearchRequest{Query: "tablet", ForcePath: domain.PathFast})
	require.NoError(t, err)
	assert.Equal(t, domain.PathSmart, resp.PathTaken)
}

func TestSearch_DiscoveryFailureIsSoft(t *testing.T) {
	fs := &fakeSearch{err: errors.New("vector store down")}
	cache := memory.NewResultCache(16, time.Hour)
	svc := newService(t, fs, cache)

	resp, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Recommendations)
	assert.Empty(t, resp.Recommendations)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], pipeline.StageDiscovery)

	_, hit, _ := cache.Get(context.Background(), search.CacheKey(domain.Query{Text: "laptop"}))
	assert.False(t, hit, "degraded responses are not cached")
}

func TestSearch_PartialOracleFailureIsReportedAndNotCached(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	cache := memory.NewResultCache(16, time.Hour)
	svc := newServiceWith(t, fs, flakyOracle{failID: "tab-1"}, memory.NewCounterStore(1, 1), cache)
	profile := &domain.UserProfile{UserID: "u9", MonthlyIncome: 4000, MonthlyExpenses: 2500, Savings: 1000, CreditScore: 700}

	first, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop", Profile: profile, ForcePath: domain.PathDeep})
	require.NoError(t, err)
	assert.True(t, first.Degraded)
	require.Len(t, first.Errors, 1)
	assert.Contains(t, first.Errors[0], pipeline.StageAffordability)
	assert.Contains(t, first.Warnings, "affordability unavailable for 1 of 3 candidates; neutral verdicts used")

	_, hit, _ := cache.Get(context.Background(), search.CacheKey(domain.Query{Text: "laptop", Profile: profile}))
	assert.False(t, hit)

	second, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop", Profile: profile})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.NotEqual(t, domain.PathFast, second.PathTaken)
	assert.Equal(t, 2, fs.calls)
}

func TestSearch_BanditOutageIsReportedAndNotCached(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	cache := memory.NewResultCache(16, time.Hour)
	svc := newServiceWith(t, fs, allAffordable{}, downCounters{}, cache)

	resp, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.Len(t, resp.Recommendations, 3)
	for _, r := range resp.Recommendations {
		assert.Equal(t, 50.0, r.Scores.BanditSample)
	}
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], pipeline.StageRanking)

	_, hit, _ := cache.Get(context.Background(), search.CacheKey(domain.Query{Text: "laptop"}))
	assert.False(t, hit)
}

func TestSearch_TotalOutage(t *testing.T) {
	fs := &fakeSearch{err: errors.New("vector store down")}
	svc := newService(t, fs, brokenCache{})

	_, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	assert.ErrorIs(t, err, search.ErrUnavailable)
}

func TestSearch_CacheOutageAloneIsSoft(t *testing.T) {
	fs := &fakeSearch{hits: catalogHits()}
	svc := newService(t, fs, brokenCache{})

	resp, err := svc.Search(context.Background(), domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.Len(t, resp.Recommendations, 3)
}

func TestCacheKey(t *testing.T) {
	shape := regexp.MustCompile(`^search:[0-9a-f]{12}:(anonymous|u1)$`)

	anon := search.CacheKey(domain.Query{Text: "laptop"})
	user := search.CacheKey(domain.Query{Text: "laptop", Profile: &domain.UserProfile{UserID: "u1"}})

	assert.Regexp(t, shape, anon)
	assert.Regexp(t, shape, user)
	assert.NotEqual(t, anon, user)
	assert.Equal(t, anon[:19], user[:19])
	assert.NotEqual(t, anon, search.CacheKey(domain.Query{Text: "tablet"}))
}

package bandit_test

import (
	"context"
	"errors"
	"testing"

	"priceSense/business/bandit"
	"priceSense/domain"
	"priceSense/pkg/tracing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEvents struct {
	saved []domain.FeedbackEvent
	err   error
}

func (r *recordingEvents) SaveEvent(_ context.Context, ev *domain.FeedbackEvent) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *ev)
	return nil
}

func TestIngest_RewardMapping(t *testing.T) {
	tests := []struct {
		action      domain.FeedbackAction
		wantReward  float64
		wantUpdated bool
		wantAlpha   float64
		wantBeta    float64
	}{
		{domain.ActionPurchase, 1.0, true, 2.0, 1.0},
		{domain.ActionLike, 0.5, true, 1.5, 1.0},
		{domain.ActionClick, 0.1, true, 1.1, 1.0},
		{domain.ActionView, 0.0, false, 1.0, 1.0},
		{domain.ActionDislike, -0.5, true, 1.0, 1.5},
		{domain.ActionReturn, -1.0, true, 1.0, 2.0},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			ctx := context.Background()
			store, _ := newStore()
			svc := bandit.NewFeedbackService(store, nil, nil)

			res, err := svc.Ingest(ctx, domain.FeedbackEvent{ItemID: "p1", Action: tt.action})
			require.NoError(t, err)
			assert.InDelta(t, tt.wantReward, res.Reward, 1e-12)
			assert.Equal(t, tt.wantUpdated, res.Updated)

			p, err := store.Params(ctx, "p1")
			require.NoError(t, err)
			assert.InDelta(t, tt.wantAlpha, p.Alpha, 1e-12)
			assert.InDelta(t, tt.wantBeta, p.Beta, 1e-12)
		})
	}
}

func TestIngest_ZeroRewardIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, counters := newStore()
	svc := bandit.NewFeedbackService(store, nil, nil)

	for i := 0; i < 5; i++ {
		_, err := svc.Ingest(ctx, domain.FeedbackEvent{ItemID: "p1", Action: domain.ActionView})
		require.NoError(t, err)
	}

	_, found, err := counters.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, found, "view must not create counters")
}

func TestIngest_UnknownAction(t *testing.T) {
	store, _ := newStore()
	svc := bandit.NewFeedbackService(store, nil, nil)

	_, err := svc.Ingest(context.Background(), domain.FeedbackEvent{ItemID: "p1", Action: "teleport"})
	require.Error(t, err)
	assert.True(t, bandit.IsValidation(err))

	var unknown bandit.ErrUnknownAction
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, domain.FeedbackAction("teleport"), unknown.Action)
}

func TestIngest_MissingItem(t *testing.T) {
	store, _ := newStore()
	_, err := bandit.NewFeedbackService(store, nil, nil).Ingest(context.Background(), domain.FeedbackEvent{Action: domain.ActionClick})
	assert.True(t, bandit.IsValidation(err))
}

func TestIngest_PersistsEventWithReward(t *testing.T) {
	store, _ := newStore()
	events := &recordingEvents{}
	svc := bandit.NewFeedbackService(store, nil, events)

	ctx := tracing.WithTraceID(context.Background(), "req-9")
	_, err := svc.Ingest(ctx, domain.FeedbackEvent{ItemID: "p1", UserID: "u1", Action: domain.ActionPurchase})
	require.NoError(t, err)

	require.Len(t, events.saved, 1)
	assert.Equal(t, 1.0, events.saved[0].Reward)
	assert.Equal(t, "req-9", events.saved[0].Context["trace_id"])
	assert.False(t, events.saved[0].CreatedAt.IsZero())
}

func TestIngest_EventLogFailureDoesNotBlockUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	svc := bandit.NewFeedbackService(store, nil, &recordingEvents{err: errors.New("db down")})

	res, err := svc.Ingest(ctx, domain.FeedbackEvent{ItemID: "p1", Action: domain.ActionPurchase})
	require.NoError(t, err)
	assert.True(t, res.Updated)

	p, _ := store.Params(ctx, "p1")
	assert.Equal(t, 2.0, p.Alpha)
}

func TestIngest_StoreFailureSurfaces(t *testing.T) {
	svc := bandit.NewFeedbackService(bandit.NewStore(failingCounters{}, bandit.DefaultConfig()), nil, nil)

	_, err := svc.Ingest(context.Background(), domain.FeedbackEvent{ItemID: "p1", Action: domain.ActionPurchase})
	require.Error(t, err)
	assert.False(t, bandit.IsValidation(err))
}

func TestRewardTable_Overrides(t *testing.T) {
	table := bandit.DefaultRewardTable().WithOverrides(map[string]float64{"like": 0.4, "share": 0.2})

	r, err := table.RewardFor(domain.ActionLike)
	require.NoError(t, err)
	assert.Equal(t, 0.4, r)

	r, err = table.RewardFor("share")
	require.NoError(t, err)
	assert.Equal(t, 0.2, r)

	orig, _ := bandit.DefaultRewardTable().RewardFor(domain.ActionLike)
	assert.Equal(t, 0.5, orig)
}

package bandit

import (
	"fmt"

	"priceSense/domain"
)

// RewardTable maps a feedback action to the reward fed to the bandit.
type RewardTable map[domain.FeedbackAction]float64

func DefaultRewardTable() RewardTable {
	return RewardTable{
		domain.ActionPurchase:       1.0,
		domain.ActionAddToCart:      0.7,
		domain.ActionLike:           0.5,
		domain.ActionClick:          0.1,
		domain.ActionView:           0.0,
		domain.ActionSkip:           -0.3,
		domain.ActionDislike:        -0.5,
		domain.ActionRemoveFromCart: -0.5,
		domain.ActionReturn:         -1.0,
	}
}

// WithOverrides returns a copy of t with the given action rewards replaced
// or added.
func (t RewardTable) WithOverrides(overrides map[string]float64) RewardTable {
	out := make(RewardTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[domain.FeedbackAction(k)] = v
	}
	return out
}

// ErrUnknownAction is returned for actions missing from the table.
type ErrUnknownAction struct {
	Action domain.FeedbackAction
}

func (e ErrUnknownAction) Error() string {
	return fmt.Sprintf("unknown feedback action: %q", string(e.Action))
}

func (t RewardTable) RewardFor(action domain.FeedbackAction) (float64, error) {
	r, ok := t[action]
	if !ok {
		return 0, ErrUnknownAction{Action: action}
	}
	return r, nil
}

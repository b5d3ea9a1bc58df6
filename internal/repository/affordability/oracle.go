package affordability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"priceSense/domain"
)

type OracleConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OracleRepository asks the external affordability service for a verdict.
type OracleRepository struct {
	cfg    OracleConfig
	client *http.Client
}

func NewOracleRepository(cfg OracleConfig) *OracleRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &OracleRepository{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type evaluateRequest struct {
	Item    domain.CandidateItem `json:"item"`
	Profile *domain.UserProfile  `json:"profile"`
}

type evaluateResponse struct {
	CanAffordCash      bool    `json:"canAffordCash"`
	CanAffordFinancing bool    `json:"canAffordFinancing"`
	RiskLevel          string  `json:"riskLevel"`
	AffordabilityScore float64 `json:"affordabilityScore"`
}

func (r *OracleRepository) Evaluate(ctx context.Context, item domain.CandidateItem, profile *domain.UserProfile) (domain.AffordabilityVerdict, error) {
	payload, err := json.Marshal(evaluateRequest{Item: item, Profile: profile})
	if err != nil {
		return domain.AffordabilityVerdict{}, fmt.Errorf("failed to marshal evaluate request: %w", err)
	}

	url := strings.TrimRight(r.cfg.BaseURL, "/") + "/evaluate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.AffordabilityVerdict{}, err
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return domain.AffordabilityVerdict{}, fmt.Errorf("affordability oracle: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return domain.AffordabilityVerdict{}, err
	}
	if res.StatusCode != http.StatusOK {
		return domain.AffordabilityVerdict{}, fmt.Errorf("affordability oracle: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out evaluateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.AffordabilityVerdict{}, fmt.Errorf("failed to decode verdict: %w", err)
	}

	return domain.AffordabilityVerdict{
		CanAffordCash:      out.CanAffordCash,
		CanAffordFinancing: out.CanAffordFinancing,
		Risk:               riskLevel(out.RiskLevel),
		Score:              max(0, min(100, out.AffordabilityScore)),
	}, nil
}

// riskLevel treats anything the oracle sends outside the known set as RISKY.
func riskLevel(s string) domain.RiskLevel {
	switch domain.RiskLevel(strings.ToUpper(s)) {
	case domain.RiskSafe:
		return domain.RiskSafe
	case domain.RiskCaution:
		return domain.RiskCaution
	}
	return domain.RiskRisky
}

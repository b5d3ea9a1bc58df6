package ranking

import (
	"strings"

	"priceSense/domain"
)

const (
	affinityPerCategoryPurchase = 10.0
	affinitySameCluster         = 15.0
	affinityPreferredCategory   = 30.0

	relevancePerKeyword  = 20.0
	relevanceKeywordCap  = 60.0
	relevanceRatingScale = 25.0
	relevanceNameMatch   = 15.0
	relevanceMinWordLen  = 4
)

// Affinity scores how well an item fits the user's purchase history and
// stated preferences. Without a profile it is 0.
func Affinity(item domain.CandidateItem, profile *domain.UserProfile) float64 {
	if profile == nil {
		return 0
	}

	score := 0.0
	sameCluster := false
	for _, p := range profile.PurchaseHistory {
		if p.Category != "" && strings.EqualFold(p.Category, item.Category) {
			score += affinityPerCategoryPurchase
		}
		if item.ClusterID != "" && p.ClusterID == item.ClusterID {
			sameCluster = true
		}
	}
	if score > 100 {
		score = 100
	}
	if sameCluster {
		score += affinitySameCluster
	}
	for _, c := range profile.PreferredCategories {
		if strings.EqualFold(c, item.Category) {
			score += affinityPreferredCategory
			break
		}
	}
	return clamp100(score)
}

// Relevance is a lexical estimate of how well an item answers the query:
// keyword overlap, rating, and an exact name match.
func Relevance(item domain.CandidateItem, query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	text := strings.ToLower(item.Name + " " + item.Description)

	score := 0.0
	overlap := 0.0
	for _, w := range strings.Fields(q) {
		if len(w) < relevanceMinWordLen {
			continue
		}
		if strings.Contains(text, w) {
			overlap += relevancePerKeyword
		}
	}
	if overlap > relevanceKeywordCap {
		overlap = relevanceKeywordCap
	}
	score += overlap

	if item.Rating > 0 {
		score += clamp(item.Rating, 0, 5) / 5 * relevanceRatingScale
	}

	name := strings.ToLower(strings.TrimSpace(item.Name))
	if q != "" && name != "" && (strings.Contains(q, name) || strings.Contains(name, q)) {
		score += relevanceNameMatch
	}

	return clamp100(score)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

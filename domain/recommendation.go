package domain

type ScoreVector struct {
	BanditSample   float64 `json:"banditSample"`
	AffinityScore  float64 `json:"affinityScore"`
	RelevanceScore float64 `json:"relevanceScore"`
	CompositeScore float64 `json:"compositeScore"`
	DiversityBonus float64 `json:"diversityBonus"`
	FinalScore     float64 `json:"finalScore"`
}

type ScoredCandidate struct {
	Item    CandidateItem
	Verdict AffordabilityVerdict
	Scores  ScoreVector
}

type Recommendation struct {
	Rank                int                  `json:"rank"`
	Item                CandidateItem        `json:"item"`
	Scores              ScoreVector          `json:"scores"`
	Affordability       AffordabilityVerdict `json:"affordability"`
	Serendipity         bool                 `json:"serendipity,omitempty"`
	Explanation         string               `json:"explanation,omitempty"`
	ClusterAlternatives []CandidateItem      `json:"clusterAlternatives,omitempty"`
}

type SearchResponse struct {
	Success         bool              `json:"success"`
	Query           string            `json:"query"`
	PathTaken       ExecutionPath     `json:"pathTaken"`
	PathDescription string            `json:"pathDescription"`
	ComplexityScore float64           `json:"complexityScore"`
	Recommendations []Recommendation  `json:"recommendations"`
	TotalCandidates int               `json:"totalCandidates"`
	ExecutionTimeMs float64           `json:"executionTimeMs"`
	CacheHit        bool              `json:"cacheHit"`
	Degraded        bool              `json:"degraded"`
	Errors          []string          `json:"errors"`
	Warnings        []string          `json:"warnings"`
	Alternatives    []AlternativePath `json:"alternatives,omitempty"`
	Timings         []StageTiming     `json:"stageTimings,omitempty"`
}

type StageTiming struct {
	Stage      string  `json:"stage"`
	DurationMs float64 `json:"durationMs"`
	Failed     bool    `json:"failed,omitempty"`
}

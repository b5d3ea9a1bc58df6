package pipeline

import (
	"fmt"
	"time"

	"priceSense/business/explain"
	"priceSense/business/pathfinder"
	"priceSense/domain"
)

// Deps are the collaborators the stages call out to.
type Deps struct {
	Search     SimilaritySearch
	Oracle     pathfinder.Oracle
	Pathfinder AlternativeFinder
	Ranker     Ranker
	Explainer  explain.Explainer
	Catalog    ClusterCatalog

	TopK                 int
	ClusterAlternatives  int
	ScoreThreshold       float64
	DetailedExplanations int
	ExplainTimeout       time.Duration
}

// BuildGraph assembles the stage graph for one execution path.
//
//	FAST:  cache
//	SMART: discovery -> neutral_affordability -> ranking -> explanation
//	DEEP:  discovery -> affordability -> (all unaffordable ? pathfinder : ranking)
//	       pathfinder -> ranking -> explanation
func BuildGraph(path domain.ExecutionPath, d Deps) (*Graph, error) {
	var g *Graph

	switch path {
	case domain.PathFast:
		g = NewGraph("fast").AddNode(cacheNode{})

	case domain.PathSmart:
		if d.Search == nil || d.Ranker == nil {
			return nil, fmt.Errorf("smart path needs search and ranker")
		}
		g = NewGraph("smart").
			AddNode(discoveryNode{search: d.Search, topK: d.TopK, threshold: d.ScoreThreshold}).
			AddNode(neutralAffordabilityNode{}).
			AddNode(rankingNode{ranker: d.Ranker, catalog: d.Catalog, alternatives: d.ClusterAlternatives}).
			AddNode(explanationNode{explainer: d.Explainer, detailed: d.DetailedExplanations, timeout: d.ExplainTimeout}).
			Edge(StageDiscovery, StageNeutralAffordability).
			Edge(StageNeutralAffordability, StageRanking).
			Edge(StageRanking, StageExplanation)

	case domain.PathDeep:
		if d.Search == nil || d.Ranker == nil || d.Oracle == nil || d.Pathfinder == nil {
			return nil, fmt.Errorf("deep path needs search, oracle, pathfinder and ranker")
		}
		g = NewGraph("deep").
			AddNode(discoveryNode{search: d.Search, topK: d.TopK, threshold: d.ScoreThreshold}).
			AddNode(affordabilityNode{oracle: d.Oracle}).
			AddNode(pathfinderNode{finder: d.Pathfinder}).
			AddNode(rankingNode{ranker: d.Ranker, catalog: d.Catalog, alternatives: d.ClusterAlternatives}).
			AddNode(explanationNode{explainer: d.Explainer, detailed: d.DetailedExplanations, timeout: d.ExplainTimeout}).
			Edge(StageDiscovery, StageAffordability).
			Branch(StageAffordability, allUnaffordable, StagePathfinder, StageRanking).
			Edge(StagePathfinder, StageRanking).
			Edge(StageRanking, StageExplanation)

	default:
		return nil, fmt.Errorf("unknown execution path %q", path)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

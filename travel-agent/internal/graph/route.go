package graph

import "strings"

// Route is the router's classification of a question.
type Route string

const (
	RouteVector Route = "vector"
	RouteGraph  Route = "graph"
	RouteBoth   Route = "both"
	RouteNone   Route = "none"
)

// ParseRoute accepts the four route names, case-insensitively. The backend names
// "pinecone" and "cypher" are accepted as aliases for vector and graph.
func ParseRoute(s string) (Route, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vector", "pinecone":
		return RouteVector, true
	case "graph", "cypher":
		return RouteGraph, true
	case "both":
		return RouteBoth, true
	case "none":
		return RouteNone, true
	default:
		return RouteNone, false
	}
}

// Stage is a node of the execution graph.
type Stage string

const (
	StageRouter         Stage = "router"
	StageVectorSearch   Stage = "vector_search"
	StageGraphSearch    Stage = "graph_search"
	StageParallelSearch Stage = "parallel_search"
	StageSynthesize     Stage = "synthesize"
	StageEnd            Stage = "end"
)

// Next is the transition table. More than one result means the stages run
// concurrently and must all finish before their common successor starts. The route
// only matters when leaving the router.
func Next(from Stage, route Route) []Stage {
	switch from {
	case StageRouter:
		switch route {
		case RouteVector:
			return []Stage{StageVectorSearch}
		case RouteGraph:
			return []Stage{StageGraphSearch}
		case RouteBoth:
			return []Stage{StageParallelSearch}
		default:
			return []Stage{StageSynthesize}
		}
	case StageParallelSearch:
		return []Stage{StageVectorSearch, StageGraphSearch}
	case StageVectorSearch, StageGraphSearch:
		return []Stage{StageSynthesize}
	case StageSynthesize:
		return []Stage{StageEnd}
	default:
		return nil
	}
}

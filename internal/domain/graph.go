package domain

// Node is a graph node shaped for presentation. ID is a synthesized
// composite ("content_bilibili_42"); nodes are deduplicated by it
// within one response.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Edge is directed and typed. Edges are not deduplicated: the same
// (source, target, type) triple may appear once per matching path.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

type GraphStats struct {
	TotalNodes  int            `json:"totalNodes"`
	TotalEdges  int            `json:"totalEdges"`
	NodesByType map[string]int `json:"nodesByType"`
}

type GraphData struct {
	Nodes []Node     `json:"nodes"`
	Edges []Edge     `json:"edges"`
	Stats GraphStats `json:"stats"`
}

// EmptyGraphData is the degraded response when the graph store is
// unreachable.
func EmptyGraphData() *GraphData {
	return &GraphData{
		Nodes: []Node{},
		Edges: []Edge{},
		Stats: GraphStats{NodesByType: map[string]int{}},
	}
}

type KeywordCount struct {
	TagID int64  `json:"tagId,omitempty"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type SearchResult struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"mediagraph/internal/domain"
	"mediagraph/internal/graph"
)

const minSearchLen = 2

// GraphQueryService serves the read side of both graphs. Store
// failures degrade to empty shaped results so the API stays up while
// the graph store is down.
type GraphQueryService struct {
	store  GraphStore
	logger *slog.Logger
}

func NewGraphQueryService(store GraphStore, logger *slog.Logger) *GraphQueryService {
	return &GraphQueryService{
		store:  store,
		logger: logger.With("component", "graph_query"),
	}
}

// Subgraph returns the platform/content/keyword neighborhood, filtered
// by platform, keyword, or both. Nodes are deduplicated by composite
// id; edges are not.
func (s *GraphQueryService) Subgraph(ctx context.Context, platform, keyword string, limit int) *domain.GraphData {
	if limit <= 0 {
		limit = 100
	}

	query := graph.SubgraphAllQuery
	params := map[string]any{"limit": limit}
	switch {
	case platform != "" && keyword != "":
		query = graph.SubgraphByPlatformAndKeywordQuery
		params["platform"] = platform
		params["keyword"] = keyword
	case platform != "":
		query = graph.SubgraphByPlatformQuery
		params["platform"] = platform
	case keyword != "":
		query = graph.SubgraphByKeywordQuery
		params["keyword"] = keyword
	}

	records, err := s.store.RunRead(ctx, query, params)
	if err != nil {
		s.logger.Error("subgraph query failed", "error", err)
		return domain.EmptyGraphData()
	}

	b := newGraphBuilder()
	for _, record := range records {
		platformNode, ok := recordNode(record, "p")
		if !ok {
			continue
		}
		contentNode, ok := recordNode(record, "c")
		if !ok {
			continue
		}

		platformName, _ := platformNode.Props["name"].(string)
		platformID := "platform_" + platformName
		b.addNode(domain.Node{
			ID:         platformID,
			Type:       "platform",
			Label:      stringProp(platformNode.Props, "displayName", platformName),
			Properties: platformNode.Props,
		})

		contentID := fmt.Sprintf("content_%s_%v",
			contentNode.Props["platform"], contentNode.Props["contentId"])
		props := contentNode.Props
		if count, ok := recordInt(record, "commentCount"); ok {
			props["commentCount"] = count
		}
		b.addNode(domain.Node{
			ID:         contentID,
			Type:       "content",
			Label:      stringProp(props, "title", contentID),
			Properties: props,
		})
		b.addEdge(platformID, contentID, "HAS_CONTENT")

		for _, kw := range recordNodeList(record, "keywords") {
			name, _ := kw.Props["name"].(string)
			if name == "" {
				continue
			}
			keywordID := "keyword_" + name
			b.addNode(domain.Node{
				ID:         keywordID,
				Type:       "keyword",
				Label:      name,
				Properties: kw.Props,
			})
			b.addEdge(contentID, keywordID, "HAS_KEYWORD")
		}
	}
	return b.build()
}

// TaskGraph returns one crawl task's Channel→Article→Tag neighborhood.
func (s *GraphQueryService) TaskGraph(ctx context.Context, taskID string) *domain.GraphData {
	records, err := s.store.RunRead(ctx, graph.TaskGraphQuery, map[string]any{"taskId": taskID})
	if err != nil {
		s.logger.Error("task graph query failed", "task_id", taskID, "error", err)
		return domain.EmptyGraphData()
	}

	b := newGraphBuilder()
	for _, record := range records {
		channelNode, ok := recordNode(record, "c")
		if !ok {
			continue
		}
		articleNode, ok := recordNode(record, "a")
		if !ok {
			continue
		}

		channelID := fmt.Sprintf("channel_%v", channelNode.Props["nodeId"])
		b.addNode(domain.Node{
			ID:         channelID,
			Type:       "channel",
			Label:      stringProp(channelNode.Props, "name", channelID),
			Properties: channelNode.Props,
		})

		articleID := fmt.Sprintf("article_%v", articleNode.Props["contId"])
		b.addNode(domain.Node{
			ID:         articleID,
			Type:       "article",
			Label:      stringProp(articleNode.Props, "title", articleID),
			Properties: articleNode.Props,
		})
		b.addEdge(channelID, articleID, "CONTAINS")

		for _, tag := range recordNodeList(record, "tags") {
			tagID := fmt.Sprintf("tag_%v", tag.Props["tagId"])
			b.addNode(domain.Node{
				ID:         tagID,
				Type:       "tag",
				Label:      stringProp(tag.Props, "name", tagID),
				Properties: tag.Props,
			})
			b.addEdge(articleID, tagID, "HAS_TAG")
		}
	}
	return b.build()
}

// PopularKeywords returns the most linked media keywords, optionally
// for one platform.
func (s *GraphQueryService) PopularKeywords(ctx context.Context, platform string, limit int) []domain.KeywordCount {
	if limit <= 0 {
		limit = 20
	}

	query := graph.PopularKeywordsAllQuery
	params := map[string]any{"limit": limit}
	if platform != "" {
		query = graph.PopularKeywordsByPlatformQuery
		params["platform"] = platform
	}

	records, err := s.store.RunRead(ctx, query, params)
	if err != nil {
		s.logger.Error("popular keywords query failed", "error", err)
		return []domain.KeywordCount{}
	}
	return keywordCounts(records, false)
}

// PopularTags returns the most linked article tags, optionally for one
// crawl task.
func (s *GraphQueryService) PopularTags(ctx context.Context, taskID string, limit int) []domain.KeywordCount {
	if limit <= 0 {
		limit = 20
	}

	query := graph.PopularTagsAllQuery
	params := map[string]any{"limit": limit}
	if taskID != "" {
		query = graph.PopularTagsByTaskQuery
		params["taskId"] = taskID
	}

	records, err := s.store.RunRead(ctx, query, params)
	if err != nil {
		s.logger.Error("popular tags query failed", "error", err)
		return []domain.KeywordCount{}
	}
	return keywordCounts(records, true)
}

// SearchKeywords finds media keywords by substring. Queries shorter
// than two characters return nothing without touching the store.
func (s *GraphQueryService) SearchKeywords(ctx context.Context, q string, limit int) []domain.KeywordCount {
	if len([]rune(q)) < minSearchLen {
		return []domain.KeywordCount{}
	}
	if limit <= 0 {
		limit = 20
	}

	records, err := s.store.RunRead(ctx, graph.SearchKeywordsQuery, map[string]any{
		"query": q,
		"limit": limit,
	})
	if err != nil {
		s.logger.Error("keyword search failed", "error", err)
		return []domain.KeywordCount{}
	}
	return keywordCounts(records, false)
}

// SearchNodes finds articles and tags by substring, with the same
// minimum query length guard.
func (s *GraphQueryService) SearchNodes(ctx context.Context, q string, limit int) []domain.SearchResult {
	if len([]rune(q)) < minSearchLen {
		return []domain.SearchResult{}
	}
	if limit <= 0 {
		limit = 20
	}

	records, err := s.store.RunRead(ctx, graph.SearchNodesQuery, map[string]any{
		"query": q,
		"limit": limit,
	})
	if err != nil {
		s.logger.Error("node search failed", "error", err)
		return []domain.SearchResult{}
	}

	results := make([]domain.SearchResult, 0, len(records))
	for _, record := range records {
		var r domain.SearchResult
		if v, ok := record.Get("id"); ok {
			r.ID, _ = v.(string)
		}
		if v, ok := record.Get("type"); ok {
			r.Type, _ = v.(string)
		}
		if v, ok := record.Get("label"); ok {
			r.Label, _ = v.(string)
		}
		if v, ok := record.Get("properties"); ok {
			r.Properties, _ = v.(map[string]any)
		}
		results = append(results, r)
	}
	return results
}

type graphBuilder struct {
	data *domain.GraphData
	seen map[string]bool
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{data: domain.EmptyGraphData(), seen: make(map[string]bool)}
}

func (b *graphBuilder) addNode(node domain.Node) {
	if b.seen[node.ID] {
		return
	}
	b.seen[node.ID] = true
	b.data.Nodes = append(b.data.Nodes, node)
	b.data.Stats.NodesByType[node.Type]++
}

func (b *graphBuilder) addEdge(source, target, edgeType string) {
	b.data.Edges = append(b.data.Edges, domain.Edge{Source: source, Target: target, Type: edgeType})
}

func (b *graphBuilder) build() *domain.GraphData {
	b.data.Stats.TotalNodes = len(b.data.Nodes)
	b.data.Stats.TotalEdges = len(b.data.Edges)
	return b.data
}

func recordNode(record *neo4j.Record, key string) (dbtype.Node, bool) {
	v, ok := record.Get(key)
	if !ok {
		return dbtype.Node{}, false
	}
	node, ok := v.(dbtype.Node)
	return node, ok
}

func recordNodeList(record *neo4j.Record, key string) []dbtype.Node {
	v, ok := record.Get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	nodes := make([]dbtype.Node, 0, len(raw))
	for _, item := range raw {
		if node, ok := item.(dbtype.Node); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func recordInt(record *neo4j.Record, key string) (int64, bool) {
	v, ok := record.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

func stringProp(props map[string]any, key, fallback string) string {
	if s, ok := props[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func keywordCounts(records []*neo4j.Record, withTagID bool) []domain.KeywordCount {
	counts := make([]domain.KeywordCount, 0, len(records))
	for _, record := range records {
		var kc domain.KeywordCount
		if v, ok := record.Get("name"); ok {
			kc.Name, _ = v.(string)
		}
		if v, ok := record.Get("count"); ok {
			kc.Count, _ = v.(int64)
		}
		if withTagID {
			if v, ok := record.Get("tagId"); ok {
				kc.TagID, _ = v.(int64)
			}
		}
		counts = append(counts, kc)
	}
	return counts
}

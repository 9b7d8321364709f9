// Package graph wraps the Neo4j driver behind a small read/write
// surface. All upserts executed through it rely on MERGE-by-key
// semantics: re-applying the same statement never duplicates a node or
// relationship.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// WriteSummary carries the store's creation/update counters for one
// write statement.
type WriteSummary struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
}

// Session runs statements sharing one session context. A failed
// statement does not invalidate the session; callers iterate per record
// and decide what to do with individual errors.
type Session interface {
	Run(ctx context.Context, query string, params map[string]any) error
}

type Client struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewClient connects to the graph store and verifies connectivity.
// Connection failure is fatal here, not at first use.
func NewClient(ctx context.Context, uri, user, password string, logger *slog.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	logger.Info("connected to neo4j", "uri", uri)
	return &Client{driver: driver, logger: logger}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) RunRead(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("run read query: %w", err)
	}
	return result.Records, nil
}

func (c *Client) RunWrite(ctx context.Context, query string, params map[string]any) (WriteSummary, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, params,
		neo4j.EagerResultTransformer)
	if err != nil {
		return WriteSummary{}, fmt.Errorf("run write query: %w", err)
	}

	counters := result.Summary.Counters()
	return WriteSummary{
		NodesCreated:         counters.NodesCreated(),
		RelationshipsCreated: counters.RelationshipsCreated(),
		PropertiesSet:        counters.PropertiesSet(),
	}, nil
}

// WithSession opens a write session, passes it to fn, and closes it
// afterwards.
func (c *Client) WithSession(ctx context.Context, fn func(Session) error) error {
	sess := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer sess.Close(ctx)

	return fn(&session{sess: sess})
}

type session struct {
	sess neo4j.SessionWithContext
}

func (s *session) Run(ctx context.Context, query string, params map[string]any) error {
	result, err := s.sess.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// EnsureIndexes creates lookup indexes for the node keys. Failures are
// logged and skipped; the index may already exist.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX media_content_key IF NOT EXISTS FOR (c:MediaContent) ON (c.contentId, c.platform)",
		"CREATE INDEX media_keyword_name IF NOT EXISTS FOR (k:MediaKeyword) ON (k.name)",
		"CREATE INDEX media_comment_key IF NOT EXISTS FOR (cm:MediaComment) ON (cm.commentId, cm.platform)",
		"CREATE INDEX article_cont_id IF NOT EXISTS FOR (a:Article) ON (a.contId)",
		"CREATE INDEX article_task_id IF NOT EXISTS FOR (a:Article) ON (a.taskId)",
		"CREATE INDEX tag_id IF NOT EXISTS FOR (t:Tag) ON (t.tagId)",
	}

	for _, q := range queries {
		if _, err := c.RunWrite(ctx, q, nil); err != nil {
			c.logger.Warn("failed to create index", "query", q, "error", err)
		}
	}

	return nil
}

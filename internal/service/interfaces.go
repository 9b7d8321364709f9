package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"mediagraph/internal/domain"
	"mediagraph/internal/graph"
	"mediagraph/internal/queue"
)

type GraphStore interface {
	RunRead(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)
	RunWrite(ctx context.Context, query string, params map[string]any) (graph.WriteSummary, error)
	WithSession(ctx context.Context, fn func(graph.Session) error) error
}

type MediaSource interface {
	Platform() string
	DisplayName() string
	ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error)
	ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error)
	MarkSynced(ctx context.Context, contentIDs []string) error
}

type NewsSource interface {
	ChannelIDFromURL(url string) string
	ListContentIDs(ctx context.Context, channelID string, maxPages int) ([]string, error)
	FetchArticle(ctx context.Context, contID string) (*domain.CrawlArticle, error)
}

type StatusStore interface {
	Get(ctx context.Context) (*domain.SyncStatus, error)
	Set(ctx context.Context, status *domain.SyncStatus) error
}

type TaskStore interface {
	Create(ctx context.Context, targetURL, crawlType string) (*domain.CrawlTask, error)
	Get(ctx context.Context, id string) (*domain.CrawlTask, error)
	List(ctx context.Context, limit int) ([]domain.CrawlTask, error)
	MarkRunning(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, totalItems int) error
	MarkFailed(ctx context.Context, id string, message string) error
}

type ItemStore interface {
	Create(ctx context.Context, taskID string, article *domain.CrawlArticle) (*domain.CrawlItem, error)
	ExistsByContID(ctx context.Context, contID string) (bool, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.CrawlItem, error)
	ListUnsyncedByTask(ctx context.Context, taskID string) ([]domain.CrawlItem, error)
	MarkSynced(ctx context.Context, ids []string) error
}

type JobQueue interface {
	Publish(ctx context.Context, job *queue.Job) error
}

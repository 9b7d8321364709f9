package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mediagraph/internal/domain"
)

// ItemStore persists crawled articles. Tags are stored as a JSONB
// column since they only travel to and from the graph as a unit.
type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

func (s *ItemStore) Create(ctx context.Context, taskID string, article *domain.CrawlArticle) (*domain.CrawlItem, error) {
	item := &domain.CrawlItem{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		ContID:      article.ContID,
		URL:         article.URL,
		Title:       article.Title,
		Author:      article.Author,
		Summary:     article.Summary,
		ContentText: article.ContentText,
		ChannelID:   article.ChannelID,
		ChannelName: article.ChannelName,
		PublishTime: article.PublishTime,
		Tags:        article.Tags,
		CreatedAt:   time.Now().UTC(),
	}

	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO crawl_item (
			id, task_id, cont_id, url, title, author, summary,
			content_text, channel_id, channel_name, publish_time,
			tags, neo4j_synced, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13
		)
		ON CONFLICT (cont_id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			summary = EXCLUDED.summary,
			content_text = EXCLUDED.content_text,
			channel_id = EXCLUDED.channel_id,
			channel_name = EXCLUDED.channel_name,
			publish_time = EXCLUDED.publish_time,
			tags = EXCLUDED.tags`

	if _, err := s.db.ExecContext(ctx, query,
		item.ID, item.TaskID, item.ContID, item.URL, item.Title,
		item.Author, item.Summary, item.ContentText, item.ChannelID,
		item.ChannelName, item.PublishTime, tags, item.CreatedAt,
	); err != nil {
		return nil, err
	}
	return item, nil
}

// ExistsByContID reports whether an article was already crawled, so
// detail pages are not fetched twice.
func (s *ItemStore) ExistsByContID(ctx context.Context, contID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM crawl_item WHERE cont_id = $1)`, contID)
	return exists, err
}

func (s *ItemStore) ListByTask(ctx context.Context, taskID string) ([]domain.CrawlItem, error) {
	return s.list(ctx, `
		SELECT id, task_id, cont_id, url, title, author, summary,
			content_text, channel_id, channel_name, publish_time,
			tags, neo4j_synced, created_at
		FROM crawl_item
		WHERE task_id = $1
		ORDER BY created_at`, taskID)
}

func (s *ItemStore) ListUnsyncedByTask(ctx context.Context, taskID string) ([]domain.CrawlItem, error) {
	return s.list(ctx, `
		SELECT id, task_id, cont_id, url, title, author, summary,
			content_text, channel_id, channel_name, publish_time,
			tags, neo4j_synced, created_at
		FROM crawl_item
		WHERE task_id = $1 AND neo4j_synced = FALSE
		ORDER BY created_at`, taskID)
}

func (s *ItemStore) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE crawl_item SET neo4j_synced = TRUE WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	return err
}

type itemRow struct {
	domain.CrawlItem
	TagsJSON []byte `db:"tags"`
}

func (s *ItemStore) list(ctx context.Context, query string, args ...any) ([]domain.CrawlItem, error) {
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	items := make([]domain.CrawlItem, 0, len(rows))
	for _, r := range rows {
		item := r.CrawlItem
		if len(r.TagsJSON) > 0 {
			if err := json.Unmarshal(r.TagsJSON, &item.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags for item %s: %w", item.ID, err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

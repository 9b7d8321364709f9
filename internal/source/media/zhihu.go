package media

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mediagraph/internal/domain"
	"mediagraph/internal/keyword"
)

// Zhihu content spans answers, articles and videos under one table.
// Timestamps are numeric strings of epoch seconds, counters are
// integer columns.
type zhihuContentRow struct {
	ContentID     string        `db:"content_id"`
	ContentType   string        `db:"content_type"`
	Title         string        `db:"title"`
	Desc          string        `db:"desc"`
	ContentURL    string        `db:"content_url"`
	CreatedTime   string        `db:"created_time"`
	UserID        string        `db:"user_id"`
	UserNickname  string        `db:"user_nickname"`
	VoteupCount   sql.NullInt64 `db:"voteup_count"`
	CommentCount  sql.NullInt64 `db:"comment_count"`
	SourceKeyword string        `db:"source_keyword"`
}

type zhihuCommentRow struct {
	CommentID    string        `db:"comment_id"`
	ContentID    string        `db:"content_id"`
	Content      string        `db:"content"`
	UserID       string        `db:"user_id"`
	UserNickname string        `db:"user_nickname"`
	PublishTime  string        `db:"publish_time"`
	LikeCount    sql.NullInt64 `db:"like_count"`
}

type ZhihuSource struct {
	db *sqlx.DB
}

func NewZhihuSource(db *sqlx.DB) *ZhihuSource {
	return &ZhihuSource{db: db}
}

func (s *ZhihuSource) Platform() string    { return PlatformZhihu }
func (s *ZhihuSource) DisplayName() string { return "知乎" }

func (s *ZhihuSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT content_id, content_type, title, "desc", content_url,
			created_time, user_id, user_nickname, voteup_count,
			comment_count, source_keyword
		FROM zhihu_content
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []zhihuContentRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformZhihuContent(r))
	}
	return items, nil
}

func (s *ZhihuSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, content_id, content, user_id, user_nickname,
			publish_time, like_count
		FROM zhihu_comment
		WHERE content_id = $1
		ORDER BY publish_time DESC` + limitClause(limit)

	var rows []zhihuCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformZhihuComment(r))
	}
	return comments, nil
}

func (s *ZhihuSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE zhihu_content SET neo4j_synced = TRUE WHERE content_id = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformZhihuContent(r zhihuContentRow) domain.ContentItem {
	contentType := r.ContentType
	if contentType == "" {
		contentType = "answer"
	}
	return domain.ContentItem{
		ContentID:    r.ContentID,
		Platform:     PlatformZhihu,
		ContentType:  contentType,
		Title:        r.Title,
		Author:       r.UserNickname,
		AuthorID:     r.UserID,
		URL:          r.ContentURL,
		CreateTime:   fromStringSeconds(r.CreatedTime),
		LikedCount:   int(r.VoteupCount.Int64),
		CommentCount: int(r.CommentCount.Int64),
		Keywords:     keyword.Extract(r.SourceKeyword, r.Title, r.Desc, ""),
	}
}

func transformZhihuComment(r zhihuCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  r.CommentID,
		Platform:   PlatformZhihu,
		ContentID:  r.ContentID,
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.UserNickname,
		AuthorID:   r.UserID,
		CreateTime: fromStringSeconds(r.PublishTime),
		LikedCount: int(r.LikeCount.Int64),
	}
}

package media

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mediagraph/internal/domain"
	"mediagraph/internal/keyword"
)

// Kuaishou exposes no comment-count or comment-like counters; those
// stay 0 in the graph. create_time is epoch seconds.
type kuaishouVideoRow struct {
	VideoID       string        `db:"video_id"`
	VideoURL      string        `db:"video_url"`
	UserID        string        `db:"user_id"`
	Nickname      string        `db:"nickname"`
	Title         string        `db:"title"`
	Desc          string        `db:"desc"`
	CreateTime    sql.NullInt64 `db:"create_time"`
	LikedCount    string        `db:"liked_count"`
	SourceKeyword string        `db:"source_keyword"`
}

type kuaishouCommentRow struct {
	CommentID  int64         `db:"comment_id"`
	VideoID    string        `db:"video_id"`
	UserID     string        `db:"user_id"`
	Nickname   string        `db:"nickname"`
	Content    string        `db:"content"`
	CreateTime sql.NullInt64 `db:"create_time"`
}

type KuaishouSource struct {
	db *sqlx.DB
}

func NewKuaishouSource(db *sqlx.DB) *KuaishouSource {
	return &KuaishouSource{db: db}
}

func (s *KuaishouSource) Platform() string    { return PlatformKuaishou }
func (s *KuaishouSource) DisplayName() string { return "快手" }

func (s *KuaishouSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT video_id, video_url, user_id, nickname, title, "desc",
			create_time, liked_count, source_keyword
		FROM kuaishou_video
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []kuaishouVideoRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformKuaishouVideo(r))
	}
	return items, nil
}

func (s *KuaishouSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, video_id, user_id, nickname, content, create_time
		FROM kuaishou_video_comment
		WHERE video_id = $1
		ORDER BY create_time DESC` + limitClause(limit)

	var rows []kuaishouCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformKuaishouComment(r))
	}
	return comments, nil
}

func (s *KuaishouSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE kuaishou_video SET neo4j_synced = TRUE WHERE video_id = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformKuaishouVideo(r kuaishouVideoRow) domain.ContentItem {
	return domain.ContentItem{
		ContentID:   r.VideoID,
		Platform:    PlatformKuaishou,
		ContentType: "video",
		Title:       r.Title,
		Author:      r.Nickname,
		AuthorID:    r.UserID,
		URL:         r.VideoURL,
		CreateTime:  fromSeconds(r.CreateTime.Int64),
		LikedCount:  safeInt(r.LikedCount),
		Keywords:    keyword.Extract(r.SourceKeyword, r.Title, r.Desc, ""),
	}
}

func transformKuaishouComment(r kuaishouCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  strconv.FormatInt(r.CommentID, 10),
		Platform:   PlatformKuaishou,
		ContentID:  r.VideoID,
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.Nickname,
		AuthorID:   r.UserID,
		CreateTime: fromSeconds(r.CreateTime.Int64),
	}
}

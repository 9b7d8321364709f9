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

// Bilibili stores liked_count numerically but the comment counter as
// text; create_time is epoch seconds.
type bilibiliVideoRow struct {
	VideoID       int64         `db:"video_id"`
	VideoURL      string        `db:"video_url"`
	UserID        sql.NullInt64 `db:"user_id"`
	Nickname      string        `db:"nickname"`
	Title         string        `db:"title"`
	Desc          string        `db:"desc"`
	CreateTime    sql.NullInt64 `db:"create_time"`
	LikedCount    sql.NullInt64 `db:"liked_count"`
	VideoComment  string        `db:"video_comment"`
	SourceKeyword string        `db:"source_keyword"`
}

type bilibiliCommentRow struct {
	CommentID  int64         `db:"comment_id"`
	VideoID    int64         `db:"video_id"`
	UserID     string        `db:"user_id"`
	Nickname   string        `db:"nickname"`
	Content    string        `db:"content"`
	CreateTime sql.NullInt64 `db:"create_time"`
	LikeCount  string        `db:"like_count"`
}

type BilibiliSource struct {
	db *sqlx.DB
}

func NewBilibiliSource(db *sqlx.DB) *BilibiliSource {
	return &BilibiliSource{db: db}
}

func (s *BilibiliSource) Platform() string    { return PlatformBilibili }
func (s *BilibiliSource) DisplayName() string { return "Bilibili" }

func (s *BilibiliSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT video_id, video_url, user_id, nickname, title, "desc",
			create_time, liked_count, video_comment, source_keyword
		FROM bilibili_video
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []bilibiliVideoRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformBilibiliVideo(r))
	}
	return items, nil
}

func (s *BilibiliSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, video_id, user_id, nickname, content, create_time, like_count
		FROM bilibili_video_comment
		WHERE video_id::text = $1
		ORDER BY create_time DESC` + limitClause(limit)

	var rows []bilibiliCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformBilibiliComment(r))
	}
	return comments, nil
}

func (s *BilibiliSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE bilibili_video SET neo4j_synced = TRUE WHERE video_id::text = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformBilibiliVideo(r bilibiliVideoRow) domain.ContentItem {
	authorID := ""
	if r.UserID.Valid {
		authorID = strconv.FormatInt(r.UserID.Int64, 10)
	}
	return domain.ContentItem{
		ContentID:    strconv.FormatInt(r.VideoID, 10),
		Platform:     PlatformBilibili,
		ContentType:  "video",
		Title:        r.Title,
		Author:       r.Nickname,
		AuthorID:     authorID,
		URL:          r.VideoURL,
		CreateTime:   fromSeconds(r.CreateTime.Int64),
		LikedCount:   int(r.LikedCount.Int64),
		CommentCount: safeInt(r.VideoComment),
		Keywords:     keyword.Extract(r.SourceKeyword, r.Title, r.Desc, ""),
	}
}

func transformBilibiliComment(r bilibiliCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  strconv.FormatInt(r.CommentID, 10),
		Platform:   PlatformBilibili,
		ContentID:  strconv.FormatInt(r.VideoID, 10),
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.Nickname,
		AuthorID:   r.UserID,
		CreateTime: fromSeconds(r.CreateTime.Int64),
		LikedCount: safeInt(r.LikeCount),
	}
}

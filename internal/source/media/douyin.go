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

// Douyin stores every counter as text; create_time is epoch seconds.
type douyinAwemeRow struct {
	AwemeID       int64         `db:"aweme_id"`
	AwemeType     string        `db:"aweme_type"`
	AwemeURL      string        `db:"aweme_url"`
	UserID        string        `db:"user_id"`
	Nickname      string        `db:"nickname"`
	Title         string        `db:"title"`
	Desc          string        `db:"desc"`
	CreateTime    sql.NullInt64 `db:"create_time"`
	LikedCount    string        `db:"liked_count"`
	CommentCount  string        `db:"comment_count"`
	SourceKeyword string        `db:"source_keyword"`
}

type douyinCommentRow struct {
	CommentID  int64         `db:"comment_id"`
	AwemeID    int64         `db:"aweme_id"`
	UserID     string        `db:"user_id"`
	Nickname   string        `db:"nickname"`
	Content    string        `db:"content"`
	CreateTime sql.NullInt64 `db:"create_time"`
	LikeCount  string        `db:"like_count"`
}

type DouyinSource struct {
	db *sqlx.DB
}

func NewDouyinSource(db *sqlx.DB) *DouyinSource {
	return &DouyinSource{db: db}
}

func (s *DouyinSource) Platform() string    { return PlatformDouyin }
func (s *DouyinSource) DisplayName() string { return "抖音" }

func (s *DouyinSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT aweme_id, aweme_type, aweme_url, user_id, nickname, title, "desc",
			create_time, liked_count, comment_count, source_keyword
		FROM douyin_aweme
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []douyinAwemeRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformDouyinAweme(r))
	}
	return items, nil
}

func (s *DouyinSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, aweme_id, user_id, nickname, content, create_time, like_count
		FROM douyin_aweme_comment
		WHERE aweme_id::text = $1
		ORDER BY create_time DESC` + limitClause(limit)

	var rows []douyinCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformDouyinComment(r))
	}
	return comments, nil
}

func (s *DouyinSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE douyin_aweme SET neo4j_synced = TRUE WHERE aweme_id::text = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformDouyinAweme(r douyinAwemeRow) domain.ContentItem {
	contentType := r.AwemeType
	if contentType == "" {
		contentType = "video"
	}
	return domain.ContentItem{
		ContentID:    strconv.FormatInt(r.AwemeID, 10),
		Platform:     PlatformDouyin,
		ContentType:  contentType,
		Title:        r.Title,
		Author:       r.Nickname,
		AuthorID:     r.UserID,
		URL:          r.AwemeURL,
		CreateTime:   fromSeconds(r.CreateTime.Int64),
		LikedCount:   safeInt(r.LikedCount),
		CommentCount: safeInt(r.CommentCount),
		Keywords:     keyword.Extract(r.SourceKeyword, r.Title, r.Desc, ""),
	}
}

func transformDouyinComment(r douyinCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  strconv.FormatInt(r.CommentID, 10),
		Platform:   PlatformDouyin,
		ContentID:  strconv.FormatInt(r.AwemeID, 10),
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.Nickname,
		AuthorID:   r.UserID,
		CreateTime: fromSeconds(r.CreateTime.Int64),
		LikedCount: safeInt(r.LikeCount),
	}
}

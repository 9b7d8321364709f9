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

// Weibo notes have no separate title; the first 100 characters of the
// note body stand in for one. create_time is epoch seconds, counters
// are text.
type weiboNoteRow struct {
	NoteID        int64         `db:"note_id"`
	NoteURL       string        `db:"note_url"`
	UserID        string        `db:"user_id"`
	Nickname      string        `db:"nickname"`
	Content       string        `db:"content"`
	CreateTime    sql.NullInt64 `db:"create_time"`
	LikedCount    string        `db:"liked_count"`
	CommentsCount string        `db:"comments_count"`
	SourceKeyword string        `db:"source_keyword"`
}

type weiboCommentRow struct {
	CommentID        int64         `db:"comment_id"`
	NoteID           int64         `db:"note_id"`
	UserID           string        `db:"user_id"`
	Nickname         string        `db:"nickname"`
	Content          string        `db:"content"`
	CreateTime       sql.NullInt64 `db:"create_time"`
	CommentLikeCount string        `db:"comment_like_count"`
}

type WeiboSource struct {
	db *sqlx.DB
}

func NewWeiboSource(db *sqlx.DB) *WeiboSource {
	return &WeiboSource{db: db}
}

func (s *WeiboSource) Platform() string    { return PlatformWeibo }
func (s *WeiboSource) DisplayName() string { return "微博" }

func (s *WeiboSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT note_id, note_url, user_id, nickname, content,
			create_time, liked_count, comments_count, source_keyword
		FROM weibo_note
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []weiboNoteRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformWeiboNote(r))
	}
	return items, nil
}

func (s *WeiboSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, note_id, user_id, nickname, content, create_time, comment_like_count
		FROM weibo_note_comment
		WHERE note_id::text = $1
		ORDER BY create_time DESC` + limitClause(limit)

	var rows []weiboCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformWeiboComment(r))
	}
	return comments, nil
}

func (s *WeiboSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE weibo_note SET neo4j_synced = TRUE WHERE note_id::text = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformWeiboNote(r weiboNoteRow) domain.ContentItem {
	return domain.ContentItem{
		ContentID:    strconv.FormatInt(r.NoteID, 10),
		Platform:     PlatformWeibo,
		ContentType:  "note",
		Title:        truncate(r.Content, 100),
		Author:       r.Nickname,
		AuthorID:     r.UserID,
		URL:          r.NoteURL,
		CreateTime:   fromSeconds(r.CreateTime.Int64),
		LikedCount:   safeInt(r.LikedCount),
		CommentCount: safeInt(r.CommentsCount),
		Keywords:     keyword.Extract(r.SourceKeyword, r.Content, "", ""),
	}
}

func transformWeiboComment(r weiboCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  strconv.FormatInt(r.CommentID, 10),
		Platform:   PlatformWeibo,
		ContentID:  strconv.FormatInt(r.NoteID, 10),
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.Nickname,
		AuthorID:   r.UserID,
		CreateTime: fromSeconds(r.CreateTime.Int64),
		LikedCount: safeInt(r.CommentLikeCount),
	}
}

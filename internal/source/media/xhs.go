package media

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mediagraph/internal/domain"
	"mediagraph/internal/keyword"
)

// Xiaohongshu is the odd one out on timestamps: the note time is epoch
// milliseconds, not seconds. It is also the only platform with a
// structured tag_list field feeding the keyword extractor.
type xhsNoteRow struct {
	NoteID        string        `db:"note_id"`
	Type          string        `db:"type"`
	NoteURL       string        `db:"note_url"`
	UserID        string        `db:"user_id"`
	Nickname      string        `db:"nickname"`
	Title         string        `db:"title"`
	Desc          string        `db:"desc"`
	Time          sql.NullInt64 `db:"time"`
	LikedCount    string        `db:"liked_count"`
	CommentCount  string        `db:"comment_count"`
	TagList       string        `db:"tag_list"`
	SourceKeyword string        `db:"source_keyword"`
}

type xhsCommentRow struct {
	CommentID  string        `db:"comment_id"`
	NoteID     string        `db:"note_id"`
	UserID     string        `db:"user_id"`
	Nickname   string        `db:"nickname"`
	Content    string        `db:"content"`
	CreateTime sql.NullInt64 `db:"create_time"`
	LikeCount  string        `db:"like_count"`
}

type XhsSource struct {
	db *sqlx.DB
}

func NewXhsSource(db *sqlx.DB) *XhsSource {
	return &XhsSource{db: db}
}

func (s *XhsSource) Platform() string    { return PlatformXhs }
func (s *XhsSource) DisplayName() string { return "小红书" }

func (s *XhsSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT note_id, type, note_url, user_id, nickname, title, "desc",
			"time", liked_count, comment_count, tag_list, source_keyword
		FROM xhs_note
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []xhsNoteRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformXhsNote(r))
	}
	return items, nil
}

func (s *XhsSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, note_id, user_id, nickname, content, create_time, like_count
		FROM xhs_note_comment
		WHERE note_id = $1
		ORDER BY create_time DESC` + limitClause(limit)

	var rows []xhsCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformXhsComment(r))
	}
	return comments, nil
}

func (s *XhsSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE xhs_note SET neo4j_synced = TRUE WHERE note_id = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformXhsNote(r xhsNoteRow) domain.ContentItem {
	contentType := r.Type
	if contentType == "" {
		contentType = "note"
	}
	return domain.ContentItem{
		ContentID:    r.NoteID,
		Platform:     PlatformXhs,
		ContentType:  contentType,
		Title:        r.Title,
		Author:       r.Nickname,
		AuthorID:     r.UserID,
		URL:          r.NoteURL,
		CreateTime:   fromMillis(r.Time.Int64),
		LikedCount:   safeInt(r.LikedCount),
		CommentCount: safeInt(r.CommentCount),
		Keywords:     keyword.Extract(r.SourceKeyword, r.Title, r.Desc, r.TagList),
	}
}

func transformXhsComment(r xhsCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  r.CommentID,
		Platform:   PlatformXhs,
		ContentID:  r.NoteID,
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.Nickname,
		AuthorID:   r.UserID,
		CreateTime: fromMillis(r.CreateTime.Int64),
		LikedCount: safeInt(r.LikeCount),
	}
}

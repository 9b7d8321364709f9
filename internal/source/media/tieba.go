package media

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mediagraph/internal/domain"
	"mediagraph/internal/keyword"
)

// Tieba stores publish times as preformatted strings, has no like
// counters, and identifies authors by profile link rather than id. The
// forum name is injected as an extra keyword on every note.
type tiebaNoteRow struct {
	NoteID        string `db:"note_id"`
	Title         string `db:"title"`
	Desc          string `db:"desc"`
	NoteURL       string `db:"note_url"`
	PublishTime   string `db:"publish_time"`
	UserNickname  string `db:"user_nickname"`
	TiebaName     string `db:"tieba_name"`
	TotalReplyNum int    `db:"total_replay_num"`
	SourceKeyword string `db:"source_keyword"`
}

type tiebaCommentRow struct {
	CommentID    string `db:"comment_id"`
	NoteID       string `db:"note_id"`
	Content      string `db:"content"`
	UserNickname string `db:"user_nickname"`
	PublishTime  string `db:"publish_time"`
}

type TiebaSource struct {
	db *sqlx.DB
}

func NewTiebaSource(db *sqlx.DB) *TiebaSource {
	return &TiebaSource{db: db}
}

func (s *TiebaSource) Platform() string    { return PlatformTieba }
func (s *TiebaSource) DisplayName() string { return "贴吧" }

func (s *TiebaSource) ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := `
		SELECT note_id, title, "desc", note_url, publish_time,
			user_nickname, tieba_name, total_replay_num, source_keyword
		FROM tieba_note
		WHERE neo4j_synced = FALSE
		ORDER BY id` + limitClause(limit)

	var rows []tiebaNoteRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, transformTiebaNote(r))
	}
	return items, nil
}

func (s *TiebaSource) ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error) {
	query := `
		SELECT comment_id, note_id, content, user_nickname, publish_time
		FROM tieba_comment
		WHERE note_id = $1
		ORDER BY publish_time DESC` + limitClause(limit)

	var rows []tiebaCommentRow
	if err := s.db.SelectContext(ctx, &rows, query, contentID); err != nil {
		return nil, err
	}

	comments := make([]domain.CommentItem, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, transformTiebaComment(r))
	}
	return comments, nil
}

func (s *TiebaSource) MarkSynced(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tieba_note SET neo4j_synced = TRUE WHERE note_id = ANY($1)`,
		pq.Array(contentIDs),
	)
	return err
}

func transformTiebaNote(r tiebaNoteRow) domain.ContentItem {
	keywords := keyword.Extract(r.SourceKeyword, r.Title, r.Desc, "")
	if name := strings.ToLower(strings.TrimSpace(r.TiebaName)); name != "" {
		keywords = append(keywords, name)
	}
	return domain.ContentItem{
		ContentID:    r.NoteID,
		Platform:     PlatformTieba,
		ContentType:  "post",
		Title:        r.Title,
		Author:       r.UserNickname,
		URL:          r.NoteURL,
		CreateTime:   normalizeTiebaTime(r.PublishTime),
		CommentCount: r.TotalReplyNum,
		Keywords:     keywords,
	}
}

func transformTiebaComment(r tiebaCommentRow) domain.CommentItem {
	return domain.CommentItem{
		CommentID:  r.CommentID,
		Platform:   PlatformTieba,
		ContentID:  r.NoteID,
		Content:    truncate(r.Content, maxCommentLen),
		Author:     r.UserNickname,
		CreateTime: normalizeTiebaTime(r.PublishTime),
	}
}

// Tieba publish times arrive as "2006-01-02 15:04" local strings.
// Unparseable values pass through verbatim rather than being dropped.
func normalizeTiebaTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

package media

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupported(t *testing.T) {
	for _, p := range SupportedPlatforms {
		assert.True(t, Supported(p))
	}
	assert.False(t, Supported("youtube"))
	assert.False(t, Supported(""))
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 42, safeInt("42"))
	assert.Equal(t, 42, safeInt(" 42 "))
	assert.Equal(t, 0, safeInt(""))
	assert.Equal(t, 0, safeInt("10w+"))
	assert.Equal(t, 0, safeInt("abc"))
	assert.Equal(t, -3, safeInt("-3"))
}

func TestTimestampNormalization(t *testing.T) {
	assert.Equal(t, "2024-01-15T10:30:00Z", fromSeconds(1705314600))
	assert.Equal(t, "", fromSeconds(0))

	assert.Equal(t, "2024-01-15T10:30:00Z", fromMillis(1705314600000))
	assert.Equal(t, "", fromMillis(0))

	assert.Equal(t, "2024-01-15T10:30:00Z", fromStringSeconds("1705314600"))
	assert.Equal(t, "", fromStringSeconds(""))
	assert.Equal(t, "", fromStringSeconds("  "))
	// Re-normalizing an already-normalized value must not drift.
	assert.Equal(t, "2024-01-15T10:30:00Z", fromStringSeconds("2024-01-15T10:30:00Z"))
	// Unparseable values pass through.
	assert.Equal(t, "soon", fromStringSeconds("soon"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefg", 5))
	// Rune-safe: never splits a multibyte character.
	assert.Equal(t, "你好", truncate("你好世界", 2))
}

func TestLimitClause(t *testing.T) {
	assert.Equal(t, " LIMIT 20", limitClause(20))
	assert.Equal(t, "", limitClause(0))
	assert.Equal(t, "", limitClause(-1))
}

func TestTransformBilibiliVideo(t *testing.T) {
	item := transformBilibiliVideo(bilibiliVideoRow{
		VideoID:       12345,
		VideoURL:      "https://www.bilibili.com/video/BV1",
		UserID:        sql.NullInt64{Int64: 777, Valid: true},
		Nickname:      "uploader",
		Title:         "Launch #AI# recap",
		Desc:          "details",
		CreateTime:    sql.NullInt64{Int64: 1705314600, Valid: true},
		LikedCount:    sql.NullInt64{Int64: 9, Valid: true},
		VideoComment:  "4",
		SourceKeyword: "Tech",
	})

	assert.Equal(t, "12345", item.ContentID)
	assert.Equal(t, PlatformBilibili, item.Platform)
	assert.Equal(t, "video", item.ContentType)
	assert.Equal(t, "uploader", item.Author)
	assert.Equal(t, "777", item.AuthorID)
	assert.Equal(t, "2024-01-15T10:30:00Z", item.CreateTime)
	assert.Equal(t, 9, item.LikedCount)
	assert.Equal(t, 4, item.CommentCount)
	assert.Contains(t, item.Keywords, "tech")
	assert.Contains(t, item.Keywords, "ai")
}

func TestTransformBilibiliComment(t *testing.T) {
	c := transformBilibiliComment(bilibiliCommentRow{
		CommentID:  99,
		VideoID:    12345,
		UserID:     "u1",
		Nickname:   "viewer",
		Content:    strings.Repeat("长", 600),
		CreateTime: sql.NullInt64{Int64: 1705314600, Valid: true},
		LikeCount:  "7",
	})

	assert.Equal(t, "99", c.CommentID)
	assert.Equal(t, "12345", c.ContentID)
	assert.Equal(t, 500, len([]rune(c.Content)))
	assert.Equal(t, 7, c.LikedCount)
	assert.Equal(t, "2024-01-15T10:30:00Z", c.CreateTime)
}

func TestTransformDouyinAweme(t *testing.T) {
	item := transformDouyinAweme(douyinAwemeRow{
		AwemeID:       555,
		AwemeType:     "",
		Title:         "clip",
		CreateTime:    sql.NullInt64{Int64: 1705314600, Valid: true},
		LikedCount:    "1200",
		CommentCount:  "not a number",
		SourceKeyword: "trend",
	})

	assert.Equal(t, "555", item.ContentID)
	assert.Equal(t, "video", item.ContentType)
	assert.Equal(t, 1200, item.LikedCount)
	assert.Equal(t, 0, item.CommentCount)
	assert.Equal(t, "2024-01-15T10:30:00Z", item.CreateTime)
}

func TestTransformKuaishouVideo(t *testing.T) {
	item := transformKuaishouVideo(kuaishouVideoRow{
		VideoID:    "ks-abc",
		Title:      "short",
		CreateTime: sql.NullInt64{Int64: 1705314600, Valid: true},
		LikedCount: "33",
	})

	assert.Equal(t, "ks-abc", item.ContentID)
	assert.Equal(t, 33, item.LikedCount)
	// Kuaishou carries no comment counter.
	assert.Equal(t, 0, item.CommentCount)
}

func TestTransformWeiboNote(t *testing.T) {
	long := strings.Repeat("微", 150)
	item := transformWeiboNote(weiboNoteRow{
		NoteID:        888,
		Content:       long,
		CreateTime:    sql.NullInt64{Int64: 1705314600, Valid: true},
		LikedCount:    "12",
		CommentsCount: "3",
	})

	assert.Equal(t, "888", item.ContentID)
	// Weibo has no title; the note text is truncated into one.
	assert.Equal(t, 100, len([]rune(item.Title)))
	assert.Equal(t, 12, item.LikedCount)
	assert.Equal(t, 3, item.CommentCount)
}

func TestTransformXhsNote(t *testing.T) {
	item := transformXhsNote(xhsNoteRow{
		NoteID:        "xhs-1",
		Type:          "",
		Title:         "travel log",
		Time:          sql.NullInt64{Int64: 1705314600000, Valid: true},
		LikedCount:    "5",
		TagList:       "travel,food",
		SourceKeyword: "",
	})

	assert.Equal(t, "note", item.ContentType)
	// xhs timestamps are epoch milliseconds.
	assert.Equal(t, "2024-01-15T10:30:00Z", item.CreateTime)
	assert.Contains(t, item.Keywords, "travel")
	assert.Contains(t, item.Keywords, "food")
}

func TestTransformTiebaNote(t *testing.T) {
	item := transformTiebaNote(tiebaNoteRow{
		NoteID:        "tb-1",
		Title:         "thread",
		PublishTime:   "2024-01-15 10:30:00",
		TiebaName:     "Gaming",
		TotalReplyNum: 6,
		SourceKeyword: "esports",
	})

	assert.Equal(t, "post", item.ContentType)
	assert.Equal(t, "2024-01-15T10:30:00Z", item.CreateTime)
	assert.Equal(t, 6, item.CommentCount)
	// The forum name rides along as a keyword.
	assert.Contains(t, item.Keywords, "gaming")
	assert.Contains(t, item.Keywords, "esports")
}

func TestNormalizeTiebaTime(t *testing.T) {
	assert.Equal(t, "2024-01-15T10:30:00Z", normalizeTiebaTime("2024-01-15 10:30"))
	assert.Equal(t, "2024-01-15T10:30:00Z", normalizeTiebaTime("2024-01-15T10:30:00Z"))
	assert.Equal(t, "", normalizeTiebaTime("  "))
	assert.Equal(t, "last week", normalizeTiebaTime("last week"))
}

func TestTransformZhihuContent(t *testing.T) {
	item := transformZhihuContent(zhihuContentRow{
		ContentID:    "z-42",
		ContentType:  "",
		Title:        "why",
		CreatedTime:  "1705314600",
		VoteupCount:  sql.NullInt64{Int64: 21, Valid: true},
		CommentCount: sql.NullInt64{Int64: 2, Valid: true},
	})

	assert.Equal(t, "answer", item.ContentType)
	assert.Equal(t, "2024-01-15T10:30:00Z", item.CreateTime)
	assert.Equal(t, 21, item.LikedCount)
	assert.Equal(t, 2, item.CommentCount)
}

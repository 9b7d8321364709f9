package domain

// ContentItem is one unit of media content mapped to its graph
// representation. Counters are already coerced to integers and the
// create time is normalized to RFC 3339 UTC regardless of how the
// source stores it.
type ContentItem struct {
	ContentID    string
	Platform     string
	ContentType  string
	Title        string
	Author       string
	AuthorID     string
	URL          string
	CreateTime   string
	LikedCount   int
	CommentCount int
	Keywords     []string
}

// CommentItem is a single comment attached to a ContentItem. The body
// is truncated to 500 characters at mapping time.
type CommentItem struct {
	CommentID  string
	Platform   string
	ContentID  string
	Content    string
	Author     string
	AuthorID   string
	CreateTime string
	LikedCount int
}

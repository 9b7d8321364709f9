package domain

import "time"

type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskRunning TaskStatus = "RUNNING"
	TaskDone    TaskStatus = "DONE"
	TaskFailed  TaskStatus = "FAILED"
)

// Terminal reports whether no further status transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskFailed
}

// CrawlTask tracks one news crawl job through its lifecycle
// PENDING → RUNNING → DONE|FAILED.
type CrawlTask struct {
	ID           string     `db:"id"`
	TargetURL    string     `db:"target_url"`
	CrawlType    string     `db:"crawl_type"`
	Status       TaskStatus `db:"status"`
	TotalItems   int        `db:"total_items"`
	CreatedAt    time.Time  `db:"created_at"`
	StartedAt    *time.Time `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
	ErrorMessage string     `db:"error_message"`
}

// CrawlArticle is one article fetched from the news source, already
// transformed from the upstream API shape.
type CrawlArticle struct {
	ContID      string
	URL         string
	Title       string
	Author      string
	Summary     string
	ContentText string
	ChannelID   int
	ChannelName string
	PublishTime *time.Time
	Tags        []ArticleTag
}

type ArticleTag struct {
	TagID int64  `json:"tagId"`
	Name  string `json:"tag"`
}

// CrawlItem is a crawled article persisted relationally, pending graph
// sync while Synced is false.
type CrawlItem struct {
	ID          string     `db:"id"`
	TaskID      string     `db:"task_id"`
	ContID      string     `db:"cont_id"`
	URL         string     `db:"url"`
	Title       string     `db:"title"`
	Author      string     `db:"author"`
	Summary     string     `db:"summary"`
	ContentText string     `db:"content_text"`
	ChannelID   int        `db:"channel_id"`
	ChannelName string     `db:"channel_name"`
	PublishTime *time.Time `db:"publish_time"`
	Tags        []ArticleTag
	Synced      bool      `db:"neo4j_synced"`
	CreatedAt   time.Time `db:"created_at"`
}

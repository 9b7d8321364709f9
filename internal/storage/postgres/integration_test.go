//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"mediagraph/internal/domain"
	"mediagraph/internal/source/media"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_media_tables.up.sql"),
			filepath.Join(migrationsPath, "002_create_crawl_tables.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM crawl_item")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM crawl_task")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM bilibili_video_comment")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM bilibili_video")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestTaskStore_Lifecycle() {
	store := NewTaskStore(s.db)

	task, err := store.Create(s.ctx, "https://www.thepaper.cn/channel_25953", "channel")
	s.NoError(err)
	s.Equal(domain.TaskPending, task.Status)

	s.NoError(store.MarkRunning(s.ctx, task.ID))

	got, err := store.Get(s.ctx, task.ID)
	s.NoError(err)
	s.Equal(domain.TaskRunning, got.Status)
	s.NotNil(got.StartedAt)

	s.NoError(store.MarkDone(s.ctx, task.ID, 12))

	got, err = store.Get(s.ctx, task.ID)
	s.NoError(err)
	s.Equal(domain.TaskDone, got.Status)
	s.Equal(12, got.TotalItems)
	s.NotNil(got.FinishedAt)
}

func (s *PostgresIntegrationSuite) TestTaskStore_TerminalStateIsFinal() {
	store := NewTaskStore(s.db)

	task, err := store.Create(s.ctx, "https://www.thepaper.cn/channel_25953", "channel")
	s.NoError(err)
	s.NoError(store.MarkRunning(s.ctx, task.ID))
	s.NoError(store.MarkDone(s.ctx, task.ID, 3))

	err = store.MarkFailed(s.ctx, task.ID, "late failure")
	s.ErrorIs(err, domain.ErrTaskConflict)

	got, err := store.Get(s.ctx, task.ID)
	s.NoError(err)
	s.Equal(domain.TaskDone, got.Status)
	s.Empty(got.ErrorMessage)
}

func (s *PostgresIntegrationSuite) TestTaskStore_MarkRunningRequiresPending() {
	store := NewTaskStore(s.db)

	task, err := store.Create(s.ctx, "https://www.thepaper.cn/channel_25953", "channel")
	s.NoError(err)
	s.NoError(store.MarkRunning(s.ctx, task.ID))

	err = store.MarkRunning(s.ctx, task.ID)
	s.ErrorIs(err, domain.ErrTaskConflict)
}

func (s *PostgresIntegrationSuite) TestTaskStore_GetMissing() {
	store := NewTaskStore(s.db)

	_, err := store.Get(s.ctx, "00000000-0000-0000-0000-000000000000")
	s.True(errors.Is(err, domain.ErrTaskNotFound))
}

func (s *PostgresIntegrationSuite) TestTaskStore_ListNewestFirst() {
	store := NewTaskStore(s.db)

	first, err := store.Create(s.ctx, "https://www.thepaper.cn/channel_1", "channel")
	s.NoError(err)
	time.Sleep(10 * time.Millisecond)
	second, err := store.Create(s.ctx, "https://www.thepaper.cn/channel_2", "channel")
	s.NoError(err)

	tasks, err := store.List(s.ctx, 10)
	s.NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal(second.ID, tasks[0].ID)
	s.Equal(first.ID, tasks[1].ID)
}

func (s *PostgresIntegrationSuite) TestItemStore_CreateAndDedup() {
	taskStore := NewTaskStore(s.db)
	itemStore := NewItemStore(s.db)

	task, err := taskStore.Create(s.ctx, "https://www.thepaper.cn/channel_25953", "channel")
	s.NoError(err)

	pub := time.Now().UTC().Truncate(time.Microsecond)
	article := &domain.CrawlArticle{
		ContID:      "30012345",
		URL:         "https://m.thepaper.cn/newsDetail_forward_30012345",
		Title:       "城市更新观察",
		Author:      "记者甲",
		ContentText: "正文",
		ChannelID:   25953,
		ChannelName: "生活",
		PublishTime: &pub,
		Tags: []domain.ArticleTag{
			{TagID: 7, Name: "城市"},
		},
	}

	exists, err := itemStore.ExistsByContID(s.ctx, article.ContID)
	s.NoError(err)
	s.False(exists)

	_, err = itemStore.Create(s.ctx, task.ID, article)
	s.NoError(err)

	exists, err = itemStore.ExistsByContID(s.ctx, article.ContID)
	s.NoError(err)
	s.True(exists)

	// Re-crawling the same article updates in place.
	article.Title = "城市更新观察（修订）"
	_, err = itemStore.Create(s.ctx, task.ID, article)
	s.NoError(err)

	items, err := itemStore.ListByTask(s.ctx, task.ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal("城市更新观察（修订）", items[0].Title)
	s.Require().Len(items[0].Tags, 1)
	s.Equal(int64(7), items[0].Tags[0].TagID)
}

func (s *PostgresIntegrationSuite) TestItemStore_MarkSynced() {
	taskStore := NewTaskStore(s.db)
	itemStore := NewItemStore(s.db)

	task, err := taskStore.Create(s.ctx, "https://www.thepaper.cn/channel_25953", "channel")
	s.NoError(err)

	a, err := itemStore.Create(s.ctx, task.ID, &domain.CrawlArticle{ContID: "1", Title: "a"})
	s.NoError(err)
	_, err = itemStore.Create(s.ctx, task.ID, &domain.CrawlArticle{ContID: "2", Title: "b"})
	s.NoError(err)

	s.NoError(itemStore.MarkSynced(s.ctx, []string{a.ID}))

	unsynced, err := itemStore.ListUnsyncedByTask(s.ctx, task.ID)
	s.NoError(err)
	s.Require().Len(unsynced, 1)
	s.Equal("2", unsynced[0].ContID)
}

func (s *PostgresIntegrationSuite) TestMediaSource_ListAndMarkSynced() {
	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO bilibili_video (video_id, video_url, user_id, nickname, title, "desc", create_time, liked_count, video_comment, source_keyword)
		VALUES (101, 'https://b.example/101', 7, 'up主', '标题 #AI#', '描述', 1705314600, 5, '2', 'tech')`)
	s.NoError(err)
	_, err = s.db.ExecContext(s.ctx, `
		INSERT INTO bilibili_video_comment (comment_id, video_id, user_id, nickname, content, create_time, like_count)
		VALUES (900, 101, 'u1', '观众', '不错', 1705314700, '3')`)
	s.NoError(err)

	src := media.NewBilibiliSource(s.db)

	items, err := src.ListUnsynced(s.ctx, 10)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal("101", items[0].ContentID)
	s.Equal("2024-01-15T10:30:00Z", items[0].CreateTime)
	s.Contains(items[0].Keywords, "ai")

	comments, err := src.ListComments(s.ctx, "101", 10)
	s.NoError(err)
	s.Require().Len(comments, 1)
	s.Equal("900", comments[0].CommentID)
	s.Equal(3, comments[0].LikedCount)

	s.NoError(src.MarkSynced(s.ctx, []string{"101"}))

	items, err = src.ListUnsynced(s.ctx, 10)
	s.NoError(err)
	s.Len(items, 0)
}

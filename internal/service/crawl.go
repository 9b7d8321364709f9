package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mediagraph/internal/config"
	"mediagraph/internal/domain"
	"mediagraph/internal/graph"
	"mediagraph/internal/queue"
)

const (
	websiteDomain = "thepaper.cn"
	websiteName   = "澎湃新闻"
)

// CrawlService runs news crawl tasks and syncs their results into the
// graph. A task moves PENDING → RUNNING → DONE or FAILED, and never
// leaves a terminal state.
type CrawlService struct {
	source NewsSource
	tasks  TaskStore
	items  ItemStore
	store  GraphStore
	jobs   JobQueue
	logger *slog.Logger
	config config.CrawlerConfig
}

func NewCrawlService(
	source NewsSource,
	tasks TaskStore,
	items ItemStore,
	store GraphStore,
	jobs JobQueue,
	logger *slog.Logger,
	cfg config.CrawlerConfig,
) *CrawlService {
	return &CrawlService{
		source: source,
		tasks:  tasks,
		items:  items,
		store:  store,
		jobs:   jobs,
		logger: logger.With("component", "crawl"),
		config: cfg,
	}
}

// CreateTask registers a new pending crawl task and enqueues it.
func (s *CrawlService) CreateTask(ctx context.Context, targetURL string) (*domain.CrawlTask, error) {
	if s.source.ChannelIDFromURL(targetURL) == "" {
		return nil, fmt.Errorf("no channel id in url %q", targetURL)
	}

	task, err := s.tasks.Create(ctx, targetURL, "channel")
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if s.jobs != nil {
		if err := s.jobs.Publish(ctx, &queue.Job{Kind: queue.JobCrawl, TaskID: task.ID}); err != nil {
			return nil, fmt.Errorf("enqueue task %s: %w", task.ID, err)
		}
	}
	return task, nil
}

func (s *CrawlService) GetTask(ctx context.Context, id string) (*domain.CrawlTask, error) {
	return s.tasks.Get(ctx, id)
}

func (s *CrawlService) ListTasks(ctx context.Context, limit int) ([]domain.CrawlTask, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.tasks.List(ctx, limit)
}

// RunTask executes one crawl task end to end: list the channel feed,
// fetch article details for ids not yet crawled, and persist them.
// When a job queue is attached the graph sync runs as a follow-up job,
// otherwise inline.
func (s *CrawlService) RunTask(ctx context.Context, taskID string) error {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	if err := s.tasks.MarkRunning(ctx, task.ID); err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}

	count, err := s.crawl(ctx, task)
	if err != nil {
		s.logger.Error("crawl failed", "task_id", task.ID, "error", err)
		if markErr := s.tasks.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark task failed", "task_id", task.ID, "error", markErr)
		}
		return err
	}

	if err := s.tasks.MarkDone(ctx, task.ID, count); err != nil {
		return fmt.Errorf("mark task done: %w", err)
	}

	s.logger.Info("crawl task completed", "task_id", task.ID, "items", count)

	if s.jobs != nil {
		if err := s.jobs.Publish(ctx, &queue.Job{Kind: queue.JobTaskSync, TaskID: task.ID}); err != nil {
			s.logger.Error("failed to enqueue task sync", "task_id", task.ID, "error", err)
		}
		return nil
	}

	// Sync failures leave the items pending in postgres; the task
	// itself already completed.
	if _, err := s.SyncTask(ctx, task.ID); err != nil {
		s.logger.Error("task graph sync failed", "task_id", task.ID, "error", err)
	}
	return nil
}

func (s *CrawlService) crawl(ctx context.Context, task *domain.CrawlTask) (int, error) {
	channelID := s.source.ChannelIDFromURL(task.TargetURL)
	if channelID == "" {
		return 0, fmt.Errorf("no channel id in url %q", task.TargetURL)
	}

	contIDs, err := s.source.ListContentIDs(ctx, channelID, s.config.MaxPages)
	if err != nil {
		return 0, fmt.Errorf("list channel content: %w", err)
	}

	s.logger.Info("channel feed fetched",
		"task_id", task.ID,
		"channel_id", channelID,
		"items", len(contIDs),
	)

	count := 0
	for i, contID := range contIDs {
		// Known articles skip the detail fetch entirely.
		exists, err := s.items.ExistsByContID(ctx, contID)
		if err != nil {
			return count, fmt.Errorf("check item %s: %w", contID, err)
		}
		if exists {
			s.logger.Debug("skipping known article", "cont_id", contID)
			continue
		}

		article, err := s.source.FetchArticle(ctx, contID)
		if err != nil {
			s.logger.Warn("skipping article", "cont_id", contID, "error", err)
			continue
		}

		if _, err := s.items.Create(ctx, task.ID, article); err != nil {
			return count, fmt.Errorf("store article %s: %w", contID, err)
		}
		count++

		if i < len(contIDs)-1 {
			select {
			case <-ctx.Done():
				return count, ctx.Err()
			case <-time.After(s.config.RequestDelay):
			}
		}
	}

	return count, nil
}

// SyncTask pushes one task's crawled items into the news graph and
// marks them synced.
func (s *CrawlService) SyncTask(ctx context.Context, taskID string) (*domain.TaskSyncResult, error) {
	items, err := s.items.ListUnsyncedByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list unsynced items: %w", err)
	}

	result := &domain.TaskSyncResult{TaskID: taskID}
	if len(items) == 0 {
		return result, nil
	}

	if _, err := s.store.RunWrite(ctx, graph.MergeWebsiteQuery, map[string]any{
		"domain": websiteDomain,
		"name":   websiteName,
	}); err != nil {
		return nil, fmt.Errorf("merge website node: %w", err)
	}

	var syncedIDs []string
	channels := make(map[int]bool)
	tags := make(map[int64]bool)

	err = s.store.WithSession(ctx, func(sess graph.Session) error {
		for i := range items {
			item := &items[i]
			if err := s.syncTaskItem(ctx, sess, item, channels, tags); err != nil {
				s.logger.Warn("skipping crawl item",
					"cont_id", item.ContID,
					"error", err,
				)
				continue
			}
			result.ItemsSynced++
			syncedIDs = append(syncedIDs, item.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph session: %w", err)
	}

	if err := s.items.MarkSynced(ctx, syncedIDs); err != nil {
		return nil, fmt.Errorf("mark items synced: %w", err)
	}

	result.ChannelsSynced = len(channels)
	result.TagsSynced = len(tags)

	s.logger.Info("task graph sync completed",
		"task_id", taskID,
		"items", result.ItemsSynced,
		"channels", result.ChannelsSynced,
		"tags", result.TagsSynced,
	)
	return result, nil
}

func (s *CrawlService) syncTaskItem(ctx context.Context, sess graph.Session, item *domain.CrawlItem, channels map[int]bool, tags map[int64]bool) error {
	if !channels[item.ChannelID] {
		err := sess.Run(ctx, graph.MergeChannelQuery, map[string]any{
			"nodeId": item.ChannelID,
			"name":   item.ChannelName,
			"desc":   "",
			"domain": websiteDomain,
		})
		if err != nil {
			return fmt.Errorf("merge channel %d: %w", item.ChannelID, err)
		}
		channels[item.ChannelID] = true
	}

	pubTime := ""
	if item.PublishTime != nil {
		pubTime = item.PublishTime.UTC().Format(time.RFC3339)
	}

	err := sess.Run(ctx, graph.MergeArticleQuery, map[string]any{
		"contId":    item.ContID,
		"title":     item.Title,
		"author":    item.Author,
		"url":       item.URL,
		"summary":   item.Summary,
		"pubTime":   pubTime,
		"taskId":    item.TaskID,
		"channelId": item.ChannelID,
	})
	if err != nil {
		return fmt.Errorf("merge article: %w", err)
	}

	for _, tag := range item.Tags {
		err := sess.Run(ctx, graph.MergeTagQuery, map[string]any{
			"tagId":  tag.TagID,
			"name":   tag.Name,
			"contId": item.ContID,
		})
		if err != nil {
			return fmt.Errorf("merge tag %d: %w", tag.TagID, err)
		}
		tags[tag.TagID] = true
	}

	return nil
}

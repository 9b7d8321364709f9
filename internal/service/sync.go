package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mediagraph/internal/config"
	"mediagraph/internal/domain"
	"mediagraph/internal/graph"
)

// SyncService pushes unsynced media content into the graph. One
// service instance serves all platforms; a run may cover one platform
// or all of them in registration order.
type SyncService struct {
	sources map[string]MediaSource
	order   []string
	store   GraphStore
	status  StatusStore
	logger  *slog.Logger
	config  config.SyncConfig
}

func NewSyncService(
	sources []MediaSource,
	store GraphStore,
	status StatusStore,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	byPlatform := make(map[string]MediaSource, len(sources))
	order := make([]string, 0, len(sources))
	for _, src := range sources {
		byPlatform[src.Platform()] = src
		order = append(order, src.Platform())
	}
	return &SyncService{
		sources: byPlatform,
		order:   order,
		store:   store,
		status:  status,
		logger:  logger.With("component", "media_sync"),
		config:  cfg,
	}
}

// Platforms lists the registered platforms in sync order.
func (s *SyncService) Platforms() []string {
	return append([]string(nil), s.order...)
}

// Status reads the current run status.
func (s *SyncService) Status(ctx context.Context) (*domain.SyncStatus, error) {
	return s.status.Get(ctx)
}

// SyncAll runs a sync over every registered platform.
func (s *SyncService) SyncAll(ctx context.Context, limit int) (*domain.SyncResult, error) {
	return s.run(ctx, s.order, limit)
}

// SyncPlatform runs a sync over a single platform.
func (s *SyncService) SyncPlatform(ctx context.Context, platform string, limit int) (*domain.SyncResult, error) {
	if _, ok := s.sources[platform]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, platform)
	}
	return s.run(ctx, []string{platform}, limit)
}

func (s *SyncService) run(ctx context.Context, platforms []string, limit int) (*domain.SyncResult, error) {
	current, err := s.status.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to read sync status", "error", err)
	} else if current.Status == domain.SyncRunning {
		return nil, domain.ErrSyncRunning
	}

	if limit <= 0 {
		limit = s.config.ContentLimit
	}

	start := time.Now()
	s.logger.Info("starting media sync", "platforms", platforms, "limit", limit)

	result := domain.NewSyncResult()
	s.setStatus(ctx, &domain.SyncStatus{Status: domain.SyncRunning, Progress: 0})

	for i, platform := range platforms {
		pr := s.syncPlatform(ctx, s.sources[platform], limit)
		result.Add(platform, pr)

		s.setStatus(ctx, &domain.SyncStatus{
			Status:   domain.SyncRunning,
			Progress: (i + 1) * 100 / len(platforms),
		})
	}

	finished := time.Now().UTC().Format(time.RFC3339)
	s.setStatus(ctx, &domain.SyncStatus{
		Status:       domain.SyncIdle,
		Progress:     100,
		LastSyncTime: &finished,
		LastResult:   result,
	})

	s.logger.Info("media sync completed",
		"content", result.Totals.ContentSynced,
		"keywords", result.Totals.KeywordsSynced,
		"comments", result.Totals.CommentsSynced,
		"duration", time.Since(start),
	)
	return result, nil
}

// syncPlatform merges one platform's pending content. Item-level
// failures are logged and skipped so one bad record cannot stall the
// rest of the batch.
func (s *SyncService) syncPlatform(ctx context.Context, src MediaSource, limit int) domain.PlatformResult {
	var pr domain.PlatformResult
	logger := s.logger.With("platform", src.Platform())

	if _, err := s.store.RunWrite(ctx, graph.MergePlatformQuery, map[string]any{
		"name":        src.Platform(),
		"displayName": src.DisplayName(),
	}); err != nil {
		pr.Error = fmt.Sprintf("merge platform node: %v", err)
		logger.Error("failed to merge platform node", "error", err)
		return pr
	}

	items, err := src.ListUnsynced(ctx, limit)
	if err != nil {
		pr.Error = fmt.Sprintf("list unsynced content: %v", err)
		logger.Error("failed to list unsynced content", "error", err)
		return pr
	}
	if len(items) == 0 {
		return pr
	}

	var syncedIDs []string
	err = s.store.WithSession(ctx, func(sess graph.Session) error {
		for i := range items {
			item := &items[i]
			counts, err := s.syncItem(ctx, sess, src, item)
			if err != nil {
				logger.Warn("skipping content item",
					"content_id", item.ContentID,
					"error", err,
				)
				continue
			}
			pr.ContentSynced++
			pr.KeywordsSynced += counts.keywords
			pr.CommentsSynced += counts.comments
			syncedIDs = append(syncedIDs, item.ContentID)
		}
		return nil
	})
	if err != nil {
		pr.Error = fmt.Sprintf("graph session: %v", err)
		logger.Error("graph session failed", "error", err)
		return pr
	}

	if err := src.MarkSynced(ctx, syncedIDs); err != nil {
		pr.Error = fmt.Sprintf("mark synced: %v", err)
		logger.Error("failed to mark content synced", "error", err)
		return pr
	}

	logger.Info("platform synced",
		"content", pr.ContentSynced,
		"keywords", pr.KeywordsSynced,
		"comments", pr.CommentsSynced,
	)
	return pr
}

type itemCounts struct {
	keywords int
	comments int
}

func (s *SyncService) syncItem(ctx context.Context, sess graph.Session, src MediaSource, item *domain.ContentItem) (itemCounts, error) {
	var counts itemCounts

	err := sess.Run(ctx, graph.MergeContentQuery, map[string]any{
		"contentId":    item.ContentID,
		"platform":     item.Platform,
		"contentType":  item.ContentType,
		"title":        item.Title,
		"author":       item.Author,
		"authorId":     item.AuthorID,
		"url":          item.URL,
		"createTime":   item.CreateTime,
		"likedCount":   item.LikedCount,
		"commentCount": item.CommentCount,
	})
	if err != nil {
		return counts, fmt.Errorf("merge content: %w", err)
	}

	for _, kw := range item.Keywords {
		err := sess.Run(ctx, graph.MergeKeywordQuery, map[string]any{
			"name":      kw,
			"contentId": item.ContentID,
			"platform":  item.Platform,
		})
		if err != nil {
			return counts, fmt.Errorf("merge keyword %q: %w", kw, err)
		}
		counts.keywords++
	}

	comments, err := src.ListComments(ctx, item.ContentID, s.config.CommentsPerItem)
	if err != nil {
		return counts, fmt.Errorf("list comments: %w", err)
	}
	for i := range comments {
		cm := &comments[i]
		err := sess.Run(ctx, graph.MergeCommentQuery, map[string]any{
			"commentId":  cm.CommentID,
			"platform":   cm.Platform,
			"contentId":  cm.ContentID,
			"content":    cm.Content,
			"author":     cm.Author,
			"authorId":   cm.AuthorID,
			"createTime": cm.CreateTime,
			"likedCount": cm.LikedCount,
		})
		if err != nil {
			return counts, fmt.Errorf("merge comment %s: %w", cm.CommentID, err)
		}
		counts.comments++
	}

	return counts, nil
}

func (s *SyncService) setStatus(ctx context.Context, status *domain.SyncStatus) {
	if status.LastResult == nil || status.LastSyncTime == nil {
		if prev, err := s.status.Get(ctx); err == nil {
			if status.LastResult == nil {
				status.LastResult = prev.LastResult
			}
			if status.LastSyncTime == nil {
				status.LastSyncTime = prev.LastSyncTime
			}
		}
	}
	if err := s.status.Set(ctx, status); err != nil {
		s.logger.Warn("failed to update sync status", "error", err)
	}
}

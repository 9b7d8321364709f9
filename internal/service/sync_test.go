package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mediagraph/internal/config"
	"mediagraph/internal/domain"
	"mediagraph/internal/graph"
	"mediagraph/internal/service/mocks"
)

// fakeSession routes statement runs to a test hook.
type fakeSession struct {
	run func(query string, params map[string]any) error
}

func (s *fakeSession) Run(ctx context.Context, query string, params map[string]any) error {
	if s.run == nil {
		return nil
	}
	return s.run(query, params)
}

type SyncServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source *mocks.MockMediaSource
	store  *mocks.MockGraphStore
	status *mocks.MockStatusStore

	service  *SyncService
	statuses []domain.SyncStatus
	logger   *slog.Logger
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockMediaSource(s.ctrl)
	s.store = mocks.NewMockGraphStore(s.ctrl)
	s.status = mocks.NewMockStatusStore(s.ctrl)
	s.statuses = nil

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().Platform().Return("weibo").AnyTimes()
	s.source.EXPECT().DisplayName().Return("微博").AnyTimes()

	s.service = NewSyncService(
		[]MediaSource{s.source},
		s.store,
		s.status,
		s.logger,
		config.SyncConfig{ContentLimit: 100, CommentsPerItem: 50},
	)
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func (s *SyncServiceTestSuite) expectIdleStatus() {
	s.status.EXPECT().Get(gomock.Any()).Return(domain.IdleStatus(), nil).AnyTimes()
	s.status.EXPECT().Set(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, status *domain.SyncStatus) error {
			s.statuses = append(s.statuses, *status)
			return nil
		}).AnyTimes()
}

func (s *SyncServiceTestSuite) expectSession(sess *fakeSession) {
	s.store.EXPECT().WithSession(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(graph.Session) error) error {
			return fn(sess)
		}).AnyTimes()
}

func contentItems(ids ...string) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, domain.ContentItem{
			ContentID: id,
			Platform:  "weibo",
			Title:     "note " + id,
			Keywords:  []string{"tech"},
		})
	}
	return items
}

func (s *SyncServiceTestSuite) TestSyncPlatform_UnsupportedPlatform() {
	_, err := s.service.SyncPlatform(context.Background(), "youtube", 0)
	s.ErrorIs(err, domain.ErrUnsupportedPlatform)
}

func (s *SyncServiceTestSuite) TestSyncPlatform_HappyPath() {
	s.expectIdleStatus()
	s.expectSession(&fakeSession{})

	s.store.EXPECT().RunWrite(gomock.Any(), graph.MergePlatformQuery, gomock.Any()).
		Return(graph.WriteSummary{}, nil)
	s.source.EXPECT().ListUnsynced(gomock.Any(), 100).Return(contentItems("1", "2"), nil)
	s.source.EXPECT().ListComments(gomock.Any(), "1", 50).
		Return([]domain.CommentItem{{CommentID: "c1", Platform: "weibo", ContentID: "1"}}, nil)
	s.source.EXPECT().ListComments(gomock.Any(), "2", 50).Return(nil, nil)
	s.source.EXPECT().MarkSynced(gomock.Any(), []string{"1", "2"}).Return(nil)

	result, err := s.service.SyncPlatform(context.Background(), "weibo", 0)
	s.NoError(err)

	pr := result.Platforms["weibo"]
	s.Equal(2, pr.ContentSynced)
	s.Equal(2, pr.KeywordsSynced)
	s.Equal(1, pr.CommentsSynced)
	s.Empty(pr.Error)
	s.Equal(2, result.Totals.ContentSynced)
}

func (s *SyncServiceTestSuite) TestSyncPlatform_BadItemDoesNotStallBatch() {
	s.expectIdleStatus()
	s.expectSession(&fakeSession{
		run: func(query string, params map[string]any) error {
			if query == graph.MergeContentQuery && params["contentId"] == "3" {
				return errors.New("merge failed")
			}
			return nil
		},
	})

	s.store.EXPECT().RunWrite(gomock.Any(), graph.MergePlatformQuery, gomock.Any()).
		Return(graph.WriteSummary{}, nil)
	s.source.EXPECT().ListUnsynced(gomock.Any(), 100).
		Return(contentItems("1", "2", "3", "4", "5"), nil)
	s.source.EXPECT().ListComments(gomock.Any(), gomock.Any(), 50).Return(nil, nil).Times(4)
	s.source.EXPECT().MarkSynced(gomock.Any(), []string{"1", "2", "4", "5"}).Return(nil)

	result, err := s.service.SyncPlatform(context.Background(), "weibo", 0)
	s.NoError(err)

	pr := result.Platforms["weibo"]
	s.Equal(4, pr.ContentSynced)
	s.Empty(pr.Error)
}

func (s *SyncServiceTestSuite) TestSyncPlatform_ListFailureRecordedPerPlatform() {
	s.expectIdleStatus()

	s.store.EXPECT().RunWrite(gomock.Any(), graph.MergePlatformQuery, gomock.Any()).
		Return(graph.WriteSummary{}, nil)
	s.source.EXPECT().ListUnsynced(gomock.Any(), 100).Return(nil, errors.New("db down"))

	result, err := s.service.SyncPlatform(context.Background(), "weibo", 0)
	s.NoError(err)

	pr := result.Platforms["weibo"]
	s.Equal(0, pr.ContentSynced)
	s.True(strings.Contains(pr.Error, "db down"))
}

func (s *SyncServiceTestSuite) TestSync_RefusedWhileRunning() {
	s.status.EXPECT().Get(gomock.Any()).
		Return(&domain.SyncStatus{Status: domain.SyncRunning, Progress: 40}, nil)

	_, err := s.service.SyncAll(context.Background(), 0)
	s.ErrorIs(err, domain.ErrSyncRunning)
}

func (s *SyncServiceTestSuite) TestSync_StatusLifecycle() {
	s.expectIdleStatus()
	s.expectSession(&fakeSession{})

	s.store.EXPECT().RunWrite(gomock.Any(), graph.MergePlatformQuery, gomock.Any()).
		Return(graph.WriteSummary{}, nil)
	s.source.EXPECT().ListUnsynced(gomock.Any(), 100).Return(contentItems("1"), nil)
	s.source.EXPECT().ListComments(gomock.Any(), "1", 50).Return(nil, nil)
	s.source.EXPECT().MarkSynced(gomock.Any(), []string{"1"}).Return(nil)

	_, err := s.service.SyncAll(context.Background(), 0)
	s.NoError(err)

	s.Require().GreaterOrEqual(len(s.statuses), 2)
	s.Equal(domain.SyncRunning, s.statuses[0].Status)
	s.Equal(0, s.statuses[0].Progress)

	final := s.statuses[len(s.statuses)-1]
	s.Equal(domain.SyncIdle, final.Status)
	s.Equal(100, final.Progress)
	s.NotNil(final.LastSyncTime)
	s.Require().NotNil(final.LastResult)
	s.Equal(1, final.LastResult.Totals.ContentSynced)
}

func (s *SyncServiceTestSuite) TestSync_SecondRunHasNothingToDo() {
	s.expectIdleStatus()
	s.expectSession(&fakeSession{})

	s.store.EXPECT().RunWrite(gomock.Any(), graph.MergePlatformQuery, gomock.Any()).
		Return(graph.WriteSummary{}, nil)
	s.source.EXPECT().ListUnsynced(gomock.Any(), 100).Return(nil, nil)

	result, err := s.service.SyncPlatform(context.Background(), "weibo", 0)
	s.NoError(err)
	s.Equal(0, result.Totals.ContentSynced)
	s.Empty(result.Platforms["weibo"].Error)
}

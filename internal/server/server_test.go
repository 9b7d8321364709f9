package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mediagraph/internal/config"
	"mediagraph/internal/domain"
	"mediagraph/internal/queue"
	"mediagraph/internal/service"
	"mediagraph/internal/service/mocks"
)

type ServerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	graphStore *mocks.MockGraphStore
	status     *mocks.MockStatusStore
	tasks      *mocks.MockTaskStore
	items      *mocks.MockItemStore
	news       *mocks.MockNewsSource
	jobs       *mocks.MockJobQueue

	router *gin.Engine
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctrl = gomock.NewController(s.T())

	s.graphStore = mocks.NewMockGraphStore(s.ctrl)
	s.status = mocks.NewMockStatusStore(s.ctrl)
	s.tasks = mocks.NewMockTaskStore(s.ctrl)
	s.items = mocks.NewMockItemStore(s.ctrl)
	s.news = mocks.NewMockNewsSource(s.ctrl)
	s.jobs = mocks.NewMockJobQueue(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	syncSvc := service.NewSyncService(nil, s.graphStore, s.status, logger, config.SyncConfig{})
	crawlSvc := service.NewCrawlService(s.news, s.tasks, s.items, s.graphStore, s.jobs, logger, config.CrawlerConfig{})
	querySvc := service.NewGraphQueryService(s.graphStore, logger)

	srv := New(syncSvc, crawlSvc, querySvc, s.jobs, nil, nil, logger)
	s.router = srv.SetupRouter()
}

func (s *ServerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) TestTriggerSync_QueuedByDefault() {
	s.jobs.EXPECT().
		Publish(gomock.Any(), &queue.Job{Kind: queue.JobMediaSync, Platform: "bilibili", Limit: 10}).
		Return(nil)

	w := s.do(http.MethodPost, "/api/media/sync", `{"platform":"bilibili","limit":10}`)

	s.Equal(http.StatusAccepted, w.Code)
	var res map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Equal("queued", res["status"])
}

func (s *ServerTestSuite) TestTriggerSync_EmptyBodyMeansAll() {
	s.jobs.EXPECT().
		Publish(gomock.Any(), &queue.Job{Kind: queue.JobMediaSync}).
		Return(nil)

	w := s.do(http.MethodPost, "/api/media/sync", "")

	s.Equal(http.StatusAccepted, w.Code)
}

func (s *ServerTestSuite) TestTriggerSync_UnknownPlatform() {
	w := s.do(http.MethodPost, "/api/media/sync", `{"platform":"myspace"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "unsupported platform")
	s.Contains(w.Body.String(), "bilibili")
}

func (s *ServerTestSuite) TestSyncStatus() {
	last := "2024-01-15T10:30:00Z"
	s.status.EXPECT().Get(gomock.Any()).Return(&domain.SyncStatus{
		Status:       domain.SyncRunning,
		Progress:     40,
		LastSyncTime: &last,
	}, nil)

	w := s.do(http.MethodGet, "/api/media/sync/status", "")

	s.Equal(http.StatusOK, w.Code)
	var res domain.SyncStatus
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Equal(domain.SyncRunning, res.Status)
	s.Equal(40, res.Progress)
}

func (s *ServerTestSuite) TestCreateTask() {
	url := "https://www.thepaper.cn/list_25953"
	s.news.EXPECT().ChannelIDFromURL(url).Return("25953")
	s.tasks.EXPECT().Create(gomock.Any(), url, "channel").Return(&domain.CrawlTask{
		ID:        "task-1",
		TargetURL: url,
		CrawlType: "channel",
		Status:    domain.TaskPending,
		CreatedAt: time.Now(),
	}, nil)
	s.jobs.EXPECT().
		Publish(gomock.Any(), &queue.Job{Kind: queue.JobCrawl, TaskID: "task-1"}).
		Return(nil)

	w := s.do(http.MethodPost, "/api/tasks", `{"target_url":"`+url+`"}`)

	s.Equal(http.StatusCreated, w.Code)
	var res map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Equal("task-1", res["id"])
	s.Equal(string(domain.TaskPending), res["status"])
}

func (s *ServerTestSuite) TestCreateTask_URLWithoutChannel() {
	s.news.EXPECT().ChannelIDFromURL("https://www.thepaper.cn/about").Return("")

	w := s.do(http.MethodPost, "/api/tasks", `{"target_url":"https://www.thepaper.cn/about"}`)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ServerTestSuite) TestCreateTask_UnknownCrawlType() {
	w := s.do(http.MethodPost, "/api/tasks", `{"target_url":"https://www.thepaper.cn/list_25953","crawl_type":"sitemap"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "crawl_type")
}

func (s *ServerTestSuite) TestCreateTask_MissingURL() {
	w := s.do(http.MethodPost, "/api/tasks", `{}`)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ServerTestSuite) TestGetTask_NotFound() {
	s.tasks.EXPECT().Get(gomock.Any(), "nope").Return(nil, domain.ErrTaskNotFound)

	w := s.do(http.MethodGet, "/api/tasks/nope", "")

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestListTasks() {
	s.tasks.EXPECT().List(gomock.Any(), 50).Return([]domain.CrawlTask{
		{ID: "a", Status: domain.TaskDone},
		{ID: "b", Status: domain.TaskPending},
	}, nil)

	w := s.do(http.MethodGet, "/api/tasks", "")

	s.Equal(http.StatusOK, w.Code)
	var res struct {
		Tasks []map[string]any `json:"tasks"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Len(res.Tasks, 2)
	s.Equal("a", res.Tasks[0]["id"])
}

func (s *ServerTestSuite) TestSearchKeywords_ShortQueryNeverHitsStore() {
	w := s.do(http.MethodGet, "/api/media/keywords/search?q=x", "")

	s.Equal(http.StatusOK, w.Code)
	var res struct {
		Keywords []domain.KeywordCount `json:"keywords"`
		Total    int                   `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Empty(res.Keywords)
	s.Zero(res.Total)
}

func (s *ServerTestSuite) TestMediaGraph_StoreErrorDegradesToEmpty() {
	s.graphStore.EXPECT().
		RunRead(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("neo4j down"))

	w := s.do(http.MethodGet, "/api/media/graph", "")

	s.Equal(http.StatusOK, w.Code)
	var res domain.GraphData
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Empty(res.Nodes)
	s.Empty(res.Edges)
}

func (s *ServerTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"ok"`)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

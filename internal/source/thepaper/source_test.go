package thepaper

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, baseURL string) *Source {
	t.Helper()
	return New(Config{
		BaseURL:        baseURL,
		DetailBaseURL:  baseURL,
		PageSize:       20,
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestChannelIDFromURL(t *testing.T) {
	src := newTestSource(t, "http://example.invalid")
	assert.Equal(t, "25953", src.ChannelIDFromURL("https://www.thepaper.cn/channel_25953"))
	assert.Equal(t, "25953", src.ChannelIDFromURL("https://www.thepaper.cn/list_25953"))
	assert.Equal(t, "25953", src.ChannelIDFromURL("https://www.thepaper.cn/?nodeId=25953"))
	assert.Equal(t, "", src.ChannelIDFromURL("https://www.thepaper.cn/about"))
}

func TestListContentIDsPaginates(t *testing.T) {
	var page atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, channelPath, r.URL.Path)

		var req channelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "25953", req.ChannelID)

		switch page.Add(1) {
		case 1:
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{
					"list":      []map[string]any{{"contId": 111}, {"contId": 222}},
					"hasNext":   true,
					"startTime": 1700000000,
				},
			})
		default:
			// The second page carries the cursor from the first.
			require.Equal(t, int64(1700000000), req.StartTime)
			require.Equal(t, []string{"111", "222"}, req.ExcludeContIDs)
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{
					"list":    []map[string]any{{"contId": 333}},
					"hasNext": false,
				},
			})
		}
	}))
	defer srv.Close()

	ids, err := newTestSource(t, srv.URL).ListContentIDs(context.Background(), "25953", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222", "333"}, ids)
	assert.Equal(t, int32(2), page.Load())
}

func TestListContentIDsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 500, "msg": "rate limited"})
	}))
	defer srv.Close()

	_, err := newTestSource(t, srv.URL).ListContentIDs(context.Background(), "25953", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(articlePage(t, "hello")))
	}))
	defer srv.Close()

	article, err := newTestSource(t, srv.URL).FetchArticle(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "hello", article.Title)
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestSource(t, srv.URL).FetchArticle(context.Background(), "123")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchArticleParsesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/newsDetail_forward_456", r.URL.Path)
		w.Write([]byte(articlePage(t, "城市更新观察")))
	}))
	defer srv.Close()

	article, err := newTestSource(t, srv.URL).FetchArticle(context.Background(), "456")
	require.NoError(t, err)

	assert.Equal(t, "456", article.ContID)
	assert.Equal(t, "城市更新观察", article.Title)
	assert.Equal(t, "记者甲", article.Author)
	assert.Equal(t, "第一段\n\n第二段", article.ContentText)
	assert.Equal(t, 25953, article.ChannelID)
	assert.Equal(t, "生活", article.ChannelName)
	require.NotNil(t, article.PublishTime)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), article.PublishTime.UTC())
	require.Len(t, article.Tags, 1)
	assert.Equal(t, int64(7), article.Tags[0].TagID)
	assert.Equal(t, "城市", article.Tags[0].Name)
}

func TestParseArticleHTMLMissingScript(t *testing.T) {
	_, err := parseArticleHTML([]byte("<html><body>nothing here</body></html>"), "1", "u")
	require.Error(t, err)
}

func articlePage(t *testing.T, title string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{
				"detailData": map[string]any{
					"contentDetail": map[string]any{
						"name":    title,
						"summary": "摘要",
						"author":  "记者甲",
						"pubTime": "2024-01-15 10:30",
						"content": "<p>第一段</p><p>  </p><p><b>第二段</b></p>",
						"nodeInfo": map[string]any{
							"nodeId": 25953,
							"name":   "生活",
						},
						"tagList": []map[string]any{
							{"tagId": 7, "tag": "城市"},
						},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return `<html><head><script id="__NEXT_DATA__" type="application/json">` + string(payload) + `</script></head><body></body></html>`
}

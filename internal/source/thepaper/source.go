// Package thepaper fetches article lists and detail pages from
// ThePaper.cn and maps them into crawl articles.
package thepaper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"mediagraph/internal/domain"
)

const (
	SourceID   = "thepaper"
	SourceName = "澎湃新闻"

	channelPath = "/contentapi/nodeCont/getByChannelId"
	detailPath  = "/newsDetail_forward_%s"

	pubTimeLayout = "2006-01-02 15:04"
)

var channelIDPattern = regexp.MustCompile(`(?:channel[_/]|list[_/]|nodeId=)(\d+)`)

// Config holds ThePaper source configuration.
type Config struct {
	BaseURL        string
	DetailBaseURL  string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements source.NewsSource for ThePaper.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	detailBaseURL  string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new ThePaper source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		detailBaseURL:  strings.TrimSuffix(cfg.DetailBaseURL, "/"),
		pageSize:       cfg.PageSize,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// ChannelIDFromURL extracts the channel id from a ThePaper channel or
// list URL. Unrecognized URLs fall back to the empty string.
func (s *Source) ChannelIDFromURL(url string) string {
	if m := channelIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// ListContentIDs fetches up to maxPages pages of the channel feed and
// returns the content ids in feed order. Pagination follows the API's
// startTime cursor; previously seen ids are excluded on the next page.
func (s *Source) ListContentIDs(ctx context.Context, channelID string, maxPages int) ([]string, error) {
	var (
		ids        []string
		startTime  int64
		excludeIDs []string
	)

	for page := 1; page <= maxPages; page++ {
		resp, err := s.fetchChannelPage(ctx, channelID, page, startTime, excludeIDs)
		if err != nil {
			return ids, fmt.Errorf("fetch page %d: %w", page, err)
		}

		if len(resp.Data.List) == 0 {
			break
		}

		excludeIDs = excludeIDs[:0]
		for _, item := range resp.Data.List {
			id := item.ContID.String()
			if id == "" || id == "0" {
				continue
			}
			ids = append(ids, id)
			excludeIDs = append(excludeIDs, id)
		}
		startTime = resp.Data.StartTime

		s.logger.Debug("fetched channel page",
			"channel_id", channelID,
			"page", page,
			"items", len(resp.Data.List),
			"total", len(ids),
		)

		if !resp.Data.HasNext {
			break
		}
	}

	return ids, nil
}

// FetchArticle fetches one article detail page and parses its embedded
// data into a crawl article.
func (s *Source) FetchArticle(ctx context.Context, contID string) (*domain.CrawlArticle, error) {
	url := s.detailBaseURL + fmt.Sprintf(detailPath, contID)

	body, err := s.fetchWithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return s.doGet(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch article %s: %w", contID, err)
	}

	article, err := parseArticleHTML(body, contID, url)
	if err != nil {
		return nil, fmt.Errorf("parse article %s: %w", contID, err)
	}
	return article, nil
}

func (s *Source) fetchChannelPage(ctx context.Context, channelID string, page int, startTime int64, excludeIDs []string) (*channelResponse, error) {
	reqBody := channelRequest{
		ChannelID:        channelID,
		ExcludeContIDs:   excludeIDs,
		ListRecommendIDs: []string{},
		PageSize:         s.pageSize,
		PageNum:          page,
		StartTime:        startTime,
	}
	if reqBody.ExcludeContIDs == nil {
		reqBody.ExcludeContIDs = []string{}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, err := s.fetchWithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return s.doPost(ctx, s.baseURL+channelPath, payload)
	})
	if err != nil {
		return nil, err
	}

	var resp channelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("api error: %s", resp.Msg)
	}
	return &resp, nil
}

// fetchWithRetry retries transport errors and server errors with
// exponential backoff. Client errors are returned immediately.
func (s *Source) fetchWithRetry(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	var body []byte
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		body, err = fn(ctx)
		if err == nil {
			return body, nil
		}

		var httpErr *statusError
		if errors.As(err, &httpErr) && httpErr.Code >= 400 && httpErr.Code < 500 {
			return nil, err
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req)
	return s.execute(req)
}

func (s *Source) doPost(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return s.execute(req)
}

func (s *Source) execute(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Origin", "https://www.thepaper.cn")
	req.Header.Set("Referer", "https://www.thepaper.cn/")
}

type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// parseArticleHTML extracts the __NEXT_DATA__ JSON island from a
// detail page and maps it to a crawl article.
func parseArticleHTML(page []byte, contID, url string) (*domain.CrawlArticle, error) {
	raw, err := extractNextData(page)
	if err != nil {
		return nil, err
	}

	var data nextData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode page data: %w", err)
	}

	detail := data.Props.PageProps.DetailData.ContentDetail
	if detail.Name == "" && detail.Content == "" {
		return nil, fmt.Errorf("page data has no article detail")
	}

	article := &domain.CrawlArticle{
		ContID:      contID,
		URL:         url,
		Title:       detail.Name,
		Author:      detail.Author,
		Summary:     detail.Summary,
		ContentText: strings.Join(extractParagraphs(detail.Content), "\n\n"),
		ChannelName: detail.NodeInfo.Name,
	}

	if id, err := strconv.Atoi(detail.NodeInfo.NodeID.String()); err == nil {
		article.ChannelID = id
	}

	if detail.PubTime != "" {
		if t, err := time.Parse(pubTimeLayout, detail.PubTime); err == nil {
			article.PublishTime = &t
		}
	}

	for _, tag := range detail.TagList {
		article.Tags = append(article.Tags, domain.ArticleTag{
			TagID: tag.TagID,
			Name:  tag.Tag,
		})
	}

	return article, nil
}

// extractNextData returns the body of <script id="__NEXT_DATA__">.
func extractNextData(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var raw []byte
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if raw != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "id" && attr.Val == "__NEXT_DATA__" {
					if n.FirstChild != nil {
						raw = []byte(n.FirstChild.Data)
					}
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if raw == nil {
		return nil, fmt.Errorf("page data script not found")
	}
	return raw, nil
}

// extractParagraphs collects the text of each <p> in an HTML fragment,
// skipping empty paragraphs.
func extractParagraphs(fragment string) []string {
	if fragment == "" {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return paragraphs
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

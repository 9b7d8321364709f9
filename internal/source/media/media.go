// Package media holds one source per supported platform. Each source
// reads unsynced rows from the relational store and transforms them
// into graph-ready content and comment items.
//
// The platforms disagree on how they store counters (numeric vs string)
// and timestamps (epoch seconds, epoch milliseconds, or a formatted
// string). All of that is normalized here, at the mapping boundary:
// counters become ints (missing or non-numeric values default to 0) and
// timestamps become RFC 3339 UTC strings.
package media

import (
	"context"
	"strconv"
	"strings"
	"time"

	"mediagraph/internal/domain"
)

// Platform names, in sync order.
const (
	PlatformBilibili = "bilibili"
	PlatformDouyin   = "douyin"
	PlatformKuaishou = "kuaishou"
	PlatformWeibo    = "weibo"
	PlatformXhs      = "xhs"
	PlatformTieba    = "tieba"
	PlatformZhihu    = "zhihu"
)

// SupportedPlatforms lists every platform a sync run may target.
var SupportedPlatforms = []string{
	PlatformBilibili,
	PlatformDouyin,
	PlatformKuaishou,
	PlatformWeibo,
	PlatformXhs,
	PlatformTieba,
	PlatformZhihu,
}

// Supported reports whether platform names a known source.
func Supported(platform string) bool {
	for _, p := range SupportedPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Source is one content origin. ListUnsynced returns already-mapped
// items; a limit <= 0 means unbounded.
type Source interface {
	Platform() string
	DisplayName() string
	ListUnsynced(ctx context.Context, limit int) ([]domain.ContentItem, error)
	ListComments(ctx context.Context, contentID string, limit int) ([]domain.CommentItem, error)
	MarkSynced(ctx context.Context, contentIDs []string) error
}

const maxCommentLen = 500

// safeInt coerces a counter stored as text. Values like "42 " parse;
// anything else defaults to 0.
func safeInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// fromSeconds converts an epoch-seconds timestamp to RFC 3339 UTC.
// Zero or absent timestamps become "".
func fromSeconds(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// fromMillis converts an epoch-milliseconds timestamp to RFC 3339 UTC.
func fromMillis(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.UnixMilli(ts).UTC().Format(time.RFC3339)
}

// fromStringSeconds converts an epoch stored as a numeric string.
// Already-normalized RFC 3339 input passes through unchanged, so
// repeated normalization cannot drift.
func fromStringSeconds(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromSeconds(ts)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

package domain

// PlatformResult holds per-platform sync counters. Error carries the
// failure message when the whole platform errored out; counters then
// reflect what completed before the failure.
type PlatformResult struct {
	ContentSynced  int    `json:"content_synced"`
	KeywordsSynced int    `json:"keywords_synced"`
	CommentsSynced int    `json:"comments_synced"`
	Error          string `json:"error,omitempty"`
}

// SyncResult is the aggregate outcome of one media sync run.
type SyncResult struct {
	Platforms map[string]PlatformResult `json:"platforms"`
	Totals    PlatformResult            `json:"totals"`
}

func NewSyncResult() *SyncResult {
	return &SyncResult{Platforms: make(map[string]PlatformResult)}
}

func (r *SyncResult) Add(platform string, pr PlatformResult) {
	r.Platforms[platform] = pr
	r.Totals.ContentSynced += pr.ContentSynced
	r.Totals.KeywordsSynced += pr.KeywordsSynced
	r.Totals.CommentsSynced += pr.CommentsSynced
}

// Sync run states as observed through the status store.
const (
	SyncIdle    = "idle"
	SyncRunning = "running"
)

// SyncStatus is the single observable record describing the
// orchestrator's current run. Absence in the cache is equivalent to the
// idle zero value.
type SyncStatus struct {
	Status       string      `json:"status"`
	Progress     int         `json:"progress"`
	LastSyncTime *string     `json:"lastSyncTime"`
	LastResult   *SyncResult `json:"lastResult"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
}

// IdleStatus is what a missing or expired status record decodes to.
func IdleStatus() *SyncStatus {
	return &SyncStatus{Status: SyncIdle, Progress: 0}
}

// TaskSyncResult summarizes syncing one crawl task's items to the graph.
type TaskSyncResult struct {
	TaskID         string `json:"task_id"`
	ItemsSynced    int    `json:"items_synced"`
	ChannelsSynced int    `json:"channels_synced"`
	TagsSynced     int    `json:"tags_synced"`
}

package thepaper

import "encoding/json"

// channelResponse is the envelope of the channel content API. The API
// signals errors through the body code, not the HTTP status.
type channelResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data channelData `json:"data"`
}

type channelData struct {
	List      []channelItem `json:"list"`
	HasNext   bool          `json:"hasNext"`
	StartTime int64         `json:"startTime"`
}

type channelItem struct {
	ContID json.Number `json:"contId"`
	Name   string      `json:"name"`
}

// channelRequest is the POST body of the channel content API.
// StartTime and ExcludeContIDs form the pagination cursor.
type channelRequest struct {
	ChannelID        string   `json:"channelId"`
	ExcludeContIDs   []string `json:"excludeContIds"`
	ListRecommendIDs []string `json:"listRecommendIds"`
	Province         *string  `json:"province"`
	PageSize         int      `json:"pageSize"`
	PageNum          int      `json:"pageNum"`
	StartTime        int64    `json:"startTime,omitempty"`
}

// nextData mirrors the __NEXT_DATA__ payload embedded in article
// detail pages, pruned to the fields the sync cares about.
type nextData struct {
	Props struct {
		PageProps struct {
			DetailData struct {
				ContentDetail contentDetail `json:"contentDetail"`
			} `json:"detailData"`
		} `json:"pageProps"`
	} `json:"props"`
}

type contentDetail struct {
	Name     string    `json:"name"`
	Summary  string    `json:"summary"`
	Author   string    `json:"author"`
	PubTime  string    `json:"pubTime"`
	Content  string    `json:"content"`
	NodeInfo nodeInfo  `json:"nodeInfo"`
	TagList  []tagItem `json:"tagList"`
}

type nodeInfo struct {
	NodeID json.Number `json:"nodeId"`
	Name   string      `json:"name"`
}

type tagItem struct {
	TagID int64  `json:"tagId"`
	Tag   string `json:"tag"`
}

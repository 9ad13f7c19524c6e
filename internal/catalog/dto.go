package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Wire shapes for the two Web API endpoints. Both are normalized into Item
// so the filter engine never sees which variant produced a candidate.

type queryFilesResponse struct {
	Response struct {
		Total      int64        `json:"total"`
		Files      []itemDetail `json:"publishedfiledetails"`
		NextCursor string       `json:"next_cursor"`
	} `json:"response"`
}

type fileDetailsResponse struct {
	Response struct {
		Result int          `json:"result"`
		Files  []itemDetail `json:"publishedfiledetails"`
	} `json:"response"`
}

type itemDetail struct {
	PublishedFileID json.Number `json:"publishedfileid"`
	Title           string      `json:"title"`
	Creator         string      `json:"creator"`
	Tags            []itemTag   `json:"tags"`
	KVTags          []itemKVTag `json:"kv_tags"`
	Subscriptions   int64       `json:"subscriptions"`
	Favorited       int64       `json:"favorited"`
	Views           int64       `json:"views"`
	TimeCreated     int64       `json:"time_created"`
	TimeUpdated     int64       `json:"time_updated"`
}

type itemTag struct {
	Tag string `json:"tag"`
}

type itemKVTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (d *itemDetail) toItem() (Item, bool) {
	id, err := strconv.ParseUint(d.PublishedFileID.String(), 10, 64)
	if err != nil || id == 0 {
		return Item{}, false
	}
	it := Item{
		ID:            id,
		Title:         d.Title,
		CreatorID:     strings.TrimSpace(d.Creator),
		Subscriptions: d.Subscriptions,
		Favorited:     d.Favorited,
		Views:         d.Views,
		TimeCreated:   d.TimeCreated,
		TimeUpdated:   d.TimeUpdated,
	}
	for _, t := range d.Tags {
		if tag := strings.TrimSpace(t.Tag); tag != "" {
			it.Tags = append(it.Tags, tag)
		}
	}
	for _, kv := range d.KVTags {
		k := strings.ToLower(strings.TrimSpace(kv.Key))
		if k == "" {
			continue
		}
		if it.KVTags == nil {
			it.KVTags = make(map[string]string, len(d.KVTags))
		}
		if _, dup := it.KVTags[k]; !dup {
			it.KVTags[k] = strings.TrimSpace(kv.Value)
		}
	}
	return it, true
}

package fhir

import (
	"fmt"
	"time"

	"github.com/npd/provider-directory/pkg/pagination"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string        `json:"fullUrl,omitempty"`
	Resource interface{}   `json:"resource,omitempty"`
	Search   *BundleSearch `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// NewSearchBundle wraps a page of assembled resources into a searchset
// Bundle. Total is the count of entries in the current page, mirroring the
// Bundle-per-page convention, and each fullUrl is the resource's own detail
// route under baseURL.
func NewSearchBundle(resources []map[string]interface{}, baseURL string, links []pagination.Link) *Bundle {
	now := time.Now().UTC()
	entries := make([]BundleEntry, len(resources))
	for i, r := range resources {
		entries[i] = BundleEntry{
			FullURL:  fullURL(r, baseURL),
			Resource: r,
			Search:   &BundleSearch{Mode: "match"},
		}
	}

	bundleLinks := make([]BundleLink, len(links))
	for i, l := range links {
		bundleLinks[i] = BundleLink{Relation: l.Relation, URL: l.URL}
	}

	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        len(entries),
		Timestamp:    &now,
		Link:         bundleLinks,
		Entry:        entries,
	}
}

func fullURL(r map[string]interface{}, baseURL string) string {
	rt, _ := r["resourceType"].(string)
	id, _ := r["id"].(string)
	if rt == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("%s/fhir/%s/%s", baseURL, rt, id)
}

package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// Params holds pagination parameters extracted from a request.
// Pages are 1-based; Offset is derived. Query carries the request's full
// query string so bundle links replay the same search on every page.
type Params struct {
	Page     int
	PageSize int
	Query    url.Values
}

// FromContext extracts page and page_size from the echo context.
// page_size values that fail to parse as a positive integer fall back to the
// default; values above the ceiling are clamped, not rejected.
func FromContext(c echo.Context) Params {
	size := DefaultPageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	return Params{Page: page, PageSize: size, Query: c.QueryParams()}
}

// Limit returns the page size for SQL LIMIT.
func (p Params) Limit() int { return p.PageSize }

// Offset returns the row offset for SQL OFFSET.
func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

// HasNext reports whether there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.PageSize < total
}

// HasPrevious reports whether there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Page > 1
}

// Links generates FHIR Bundle pagination links for a search result.
// basePath should be the request path (e.g., "/fhir/Practitioner"). The
// request's filter and sort parameters are echoed back with only the page
// number swapped, so following next/previous never changes the result set.
func (p Params) Links(basePath string, total int) []Link {
	links := []Link{
		{Relation: "self", URL: p.pageURL(basePath, p.Page)},
	}

	if p.HasNext(total) {
		links = append(links, Link{Relation: "next", URL: p.pageURL(basePath, p.Page+1)})
	}

	if p.HasPrevious() {
		links = append(links, Link{Relation: "previous", URL: p.pageURL(basePath, p.Page-1)})
	}

	return links
}

func (p Params) pageURL(basePath string, page int) string {
	q := url.Values{}
	for key, values := range p.Query {
		if key == "page" || key == "page_size" {
			continue
		}
		for _, v := range values {
			q.Add(key, v)
		}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(p.PageSize))
	return basePath + "?" + q.Encode()
}

// Link represents a single FHIR Bundle link entry.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

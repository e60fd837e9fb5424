package pagination

import (
	"math"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context. Page-based
// parameters (page, page_size) take precedence over limit/offset.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("page_size"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		if page-1 > maxOffset(limit)/limit {
			return Params{Limit: limit, Offset: maxOffset(limit)}
		}
		return Params{Limit: limit, Offset: (page - 1) * limit}
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset(limit) {
		offset = maxOffset(limit)
	}

	return Params{Limit: limit, Offset: offset}
}

// maxOffset is the largest page-aligned offset for which Offset+Limit still
// fits in an int.
func maxOffset(limit int) int {
	return (math.MaxInt/limit - 1) * limit
}

// Response wraps a paginated API response.
type Response struct {
	Data        interface{} `json:"data"`
	Total       int         `json:"total"`
	Limit       int         `json:"limit"`
	Offset      int         `json:"offset"`
	CurrentPage int         `json:"current_page"`
	TotalPages  int         `json:"total_pages"`
	HasMore     bool        `json:"has_more"`
	HasPrevious bool        `json:"has_previous"`
	Links       []Link      `json:"links,omitempty"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	p := Params{Limit: limit, Offset: offset}
	return &Response{
		Data:        data,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		CurrentPage: p.Page(),
		TotalPages:  p.TotalPages(total),
		HasMore:     p.HasNext(total),
		HasPrevious: p.HasPrevious(),
	}
}

// Page returns the 1-based page the offset falls on.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// TotalPages returns how many pages of Limit items cover total.
func (p Params) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Links generates navigation links for a list result. basePath should be the
// request path (e.g., "/api/v1/patients").
func (p Params) Links(basePath string, total int) []Link {
	return p.LinksWithQuery(basePath, nil, total)
}

// LinksWithQuery is Links with extra query parameters, such as a search term,
// carried into every link.
func (p Params) LinksWithQuery(basePath string, extra url.Values, total int) []Link {
	links := []Link{
		{Relation: "self", URL: pageURL(basePath, extra, p.Page(), p.Limit)},
	}

	if p.HasNext(total) {
		links = append(links, Link{
			Relation: "next",
			URL:      pageURL(basePath, extra, p.Page()+1, p.Limit),
		})
	}

	if p.HasPrevious() {
		prev := Params{Limit: p.Limit, Offset: p.PreviousOffset()}
		links = append(links, Link{
			Relation: "previous",
			URL:      pageURL(basePath, extra, prev.Page(), p.Limit),
		})
	}

	return links
}

func pageURL(basePath string, extra url.Values, page, limit int) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(limit))
	return basePath + "?" + q.Encode()
}

// Link represents a single navigation link.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

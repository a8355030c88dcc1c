package recapi

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParams expresses the common list options.
type QueryParams struct {
	Page    int
	Limit   int
	Sort    string
	Filters map[string][]string
}

// NewQueryParams creates empty query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Filters: make(map[string][]string),
	}
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithLimit sets the page size.
func (q *QueryParams) WithLimit(limit int) *QueryParams {
	q.Limit = limit

	return q
}

// WithSort sets the sort field; prefix with "-" for descending order.
func (q *QueryParams) WithSort(sort string) *QueryParams {
	q.Sort = sort

	return q
}

// WithFilter appends values to a filter.
func (q *QueryParams) WithFilter(key string, values ...string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string][]string)
	}

	q.Filters[key] = append(q.Filters[key], values...)

	return q
}

// ToValues converts the parameters to url.Values.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}

	for key, vals := range q.Filters {
		if len(vals) > 0 {
			values.Set(key, strings.Join(vals, ","))
		}
	}

	return values
}

// SearchParams expresses a record search.
type SearchParams struct {
	Term   string
	Status RecordStatus
	Source string
	Page   int
	Limit  int
}

// ToValues converts the parameters to url.Values.
func (s *SearchParams) ToValues() url.Values {
	values := url.Values{}
	if s == nil {
		return values
	}

	values.Set("q", s.Term)

	if s.Status != "" {
		values.Set("status", string(s.Status))
	}

	if s.Source != "" {
		values.Set("source", s.Source)
	}

	if s.Page > 0 {
		values.Set("page", strconv.Itoa(s.Page))
	}

	if s.Limit > 0 {
		values.Set("limit", strconv.Itoa(s.Limit))
	}

	return values
}

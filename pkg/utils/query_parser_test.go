package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery_Defaults(t *testing.T) {
	p := ParseQuery(url.Values{})
	assert.Equal(t, uint64(10), p.Limit)
	assert.Equal(t, uint64(1), p.Page)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, "desc", p.SortOrder)
}

func TestParseQuery_FiltersAndPaging(t *testing.T) {
	q, _ := url.ParseQuery("filter[status]=assigned,in_progress&filter[technician_id]=t-1&limit=20&page=3&sort=scheduled_date")
	p := ParseQuery(q)

	assert.Equal(t, []string{"assigned", "in_progress"}, p.Filters["status"])
	assert.Equal(t, []string{"t-1"}, p.Filters["technician_id"])
	assert.Equal(t, uint64(20), p.Limit)
	assert.Equal(t, uint64(40), p.Offset)
	assert.Equal(t, "asc", p.SortOrder)

	f := p.ToFilter()
	assert.Equal(t, "t-1", f.Filter["technician_id"])
	assert.Equal(t, []string{"assigned", "in_progress"}, f.Filter["status"])
	assert.Equal(t, "asc", f.Sort["scheduled_date"])
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "", "b", "a"}))
}

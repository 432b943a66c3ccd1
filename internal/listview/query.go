package listview

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// All is the select-box value meaning "no filter".
const All = "all"

// DateLayout is the wire format of every date filter.
const DateLayout = "2006-01-02"

// Query accumulates filter parameters, dropping values that mean "no filter".
type Query struct {
	v url.Values
}

func NewQuery() *Query {
	return &Query{v: url.Values{}}
}

// Filters is implemented by each page's filter struct.
type Filters interface {
	Apply(q *Query)
}

// Set adds key unless value is blank or the All sentinel (any case).
func (q *Query) Set(key, value string) *Query {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, All) {
		q.v.Del(key)
		return q
	}
	q.v.Set(key, value)
	return q
}

// SetDate adds key as YYYY-MM-DD unless t is nil or zero.
func (q *Query) SetDate(key string, t *time.Time) *Query {
	if t == nil || t.IsZero() {
		q.v.Del(key)
		return q
	}
	q.v.Set(key, t.Format(DateLayout))
	return q
}

// SetInt adds key unless n is zero.
func (q *Query) SetInt(key string, n int) *Query {
	if n == 0 {
		q.v.Del(key)
		return q
	}
	q.v.Set(key, strconv.Itoa(n))
	return q
}

func (q *Query) Values() url.Values {
	out := make(url.Values, len(q.v))
	for k, vs := range q.v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func (q *Query) Encode() string {
	return q.v.Encode()
}

// ListQuery builds the parameters of a paginated list fetch.
func ListQuery(f Filters, page, limit int) url.Values {
	q := NewQuery()
	f.Apply(q)
	v := q.Values()
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// ExportQuery builds the parameters of an export: the same filters, never
// pagination.
func ExportQuery(f Filters) url.Values {
	q := NewQuery()
	f.Apply(q)
	v := q.Values()
	v.Del("page")
	v.Del("limit")
	return v
}

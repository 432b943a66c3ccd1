package listview

import (
	"bytes"
	"encoding/json"
	"time"
)

// Date is a calendar-day filter value. It binds from query strings and
// JSON as YYYY-MM-DD; the zero value means "no filter".
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// UnmarshalParam lets gin bind Date from a query string.
func (d *Date) UnmarshalParam(param string) error {
	parsed, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalParam(s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// SetDay adds key unless d is zero.
func (q *Query) SetDay(key string, d Date) *Query {
	if d.IsZero() {
		q.v.Del(key)
		return q
	}
	return q.SetDate(key, &d.Time)
}

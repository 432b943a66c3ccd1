// Package stats holds the reducers behind KPI cards and charts. Every
// reducer is a pure function of the rows it is given and returns a zero
// value for empty input.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Bucket is one labelled point of a chart series.
type Bucket struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func Sum[T any](rows []T, value func(T) float64) float64 {
	var total float64
	for _, r := range rows {
		total += value(r)
	}
	return total
}

func SumDecimal[T any](rows []T, value func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(value(r))
	}
	return total
}

// CountBy counts rows per key. Buckets come out in first-seen order.
func CountBy[T any](rows []T, key func(T) string) []Bucket {
	return SumBy(rows, key, func(T) float64 { return 1 })
}

// SumBy accumulates value per key. Buckets come out in first-seen order.
func SumBy[T any](rows []T, key func(T) string, value func(T) float64) []Bucket {
	index := make(map[string]int)
	out := []Bucket{}
	for _, r := range rows {
		k := key(r)
		if k == "" {
			k = Unknown
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Bucket{Label: k})
		}
		out[i].Value += value(r)
	}
	return out
}

// Unknown labels rows whose group key is empty.
const Unknown = "غير محدد"

// TopN returns the n largest buckets. Ties keep their input order.
func TopN(buckets []Bucket, n int) []Bucket {
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Percent is part/whole*100, and 0 when whole is 0.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// Average is 0 for an empty input.
func Average[T any](rows []T, value func(T) float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	return Sum(rows, value) / float64(len(rows))
}

// Float converts d for chart values.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

package output

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Bytes formats n using binary units, e.g. "1.5 GiB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Ago formats t relative to now, e.g. "3 weeks ago". A nil or zero time
// renders as "never".
func Ago(t *time.Time) string {
	if t == nil || t.IsZero() || t.Unix() <= 0 {
		return "never"
	}
	return humanize.Time(*t)
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

package models

import (
	"sync/atomic"
	"time"
)

// TrendItem is one normalized trend label. Its rank is its position in the
// sequence it belongs to.
type TrendItem string

// RunRecord is the document produced by one successful run
type RunRecord struct {
	UniqueID  int64       `json:"uniqueId"`
	Trends    []TrendItem `json:"trends"`
	EndTime   time.Time   `json:"endTime"`
	ProxyUsed string      `json:"proxyUsed"`
}

// ErrorDescriptor is returned in place of a RunRecord when a run aborts
type ErrorDescriptor struct {
	Error string `json:"error"`
}

var lastID atomic.Int64

// NextUniqueID returns a millisecond timestamp derived from t. Successive
// calls within one process always return strictly increasing values, even
// when the clock stalls or steps backwards.
func NextUniqueID(t time.Time) int64 {
	candidate := t.UnixMilli()
	for {
		prev := lastID.Load()
		next := candidate
		if next <= prev {
			next = prev + 1
		}
		if lastID.CompareAndSwap(prev, next) {
			return next
		}
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReportType string

const (
	ReportTrade     ReportType = "trade"
	ReportOrderbook ReportType = "orderbook"
	ReportCancel    ReportType = "cancel"
)

// DatastreamReport is one event on the anonymous public channel.
// Side is empty for "trade" reports and set otherwise. Qty means:
// amount traded for "trade" (always nonzero), current remaining aggregate
// depth at the level for "orderbook" (may be zero when the level emptied),
// canceled amount for "cancel".
type DatastreamReport struct {
	Type  ReportType
	Side  Side
	Time  time.Time
	Price decimal.Decimal
	Qty   int64
}

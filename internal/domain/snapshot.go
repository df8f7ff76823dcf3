package domain

import "time"

// OrderbookSnapshot is a point-in-time copy of all resting orders,
// bids best-first and asks best-first.
type OrderbookSnapshot struct {
	Bids      []Order   `json:"bids"`
	Asks      []Order   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

package dto

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexID accepts both JSON strings and numbers: simulator clients send
// numeric order ids, interactive ones send strings.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*f = FlexID(s)
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// ClientRequest is one line on the private order channel.
// Message is "createOrder" or "cancelOrder".
type ClientRequest struct {
	Message  string          `json:"message"`
	OrderID  FlexID          `json:"orderId"`
	Side     string          `json:"side,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
	Quantity int64           `json:"quantity,omitempty"`
}

const (
	ReportNew      = "NEW"
	ReportFill     = "FILL"
	ReportRejected = "REJECTED"
)

// ExecutionReport is the private channel reply. For FILL reports Quantity
// is the traded amount, not the remaining one.
type ExecutionReport struct {
	Message  string `json:"message"` // always "executionReport"
	Report   string `json:"report"`
	OrderID  FlexID `json:"orderId"`
	Price    string `json:"price,omitempty"`
	Quantity int64  `json:"quantity,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CancelAck acknowledges receipt of a cancel request.
type CancelAck struct {
	Message string `json:"message"` // always "cancelOrder"
	OrderID FlexID `json:"orderId"`
}

// DatastreamMessage is one event on the anonymous public channel. Side is
// "bid" or "ask" and absent for "trade" events. Time is unix seconds.
type DatastreamMessage struct {
	Type     string  `json:"type"`
	Side     string  `json:"side,omitempty"`
	Price    string  `json:"price"`
	Quantity int64   `json:"quantity"`
	Time     float64 `json:"time"`
}

// HTTP admin API shapes.

type SubmitOrderRequest struct {
	OrderID  string          `json:"order_id" binding:"required"`
	ClientID int64           `json:"client_id"`
	Side     string          `json:"side" binding:"required"`
	Price    decimal.Decimal `json:"price" binding:"required"`
	Quantity int64           `json:"quantity" binding:"required"`
}

type CancelOrderRequest struct {
	OrderID  string `json:"order_id" binding:"required"`
	ClientID int64  `json:"client_id"`
}

type DepthResponse struct {
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// Package simtypes holds the value types that flow through the simulator:
// orders, trades, candles, market data, and the event sum type. Everything
// here is a value, not a resource — mutation always produces a new value.
package simtypes

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/simerrors"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is the order's execution style. Only Market and Limit are
// implemented by the matching engine; the stop types are reserved and
// rejected as unsupported.
type OrderType int

const (
	Market OrderType = iota
	Limit
	StopLoss
	StopLimit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case StopLoss:
		return "STOP_LOSS"
	case StopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus is the order's lifecycle state.
type OrderStatus int

const (
	Pending OrderStatus = iota
	Open
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Open:
		return "OPEN"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// TimeInForce is the order's lifetime policy. DAY is accepted but behaves
// exactly like GTC in-core — no expiry semantics are implemented.
type TimeInForce int

const (
	GTC TimeInForce = iota
	IOC
	FOK
	DAY
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case DAY:
		return "DAY"
	default:
		return "UNKNOWN"
	}
}

// Order is an immutable value; every state transition produces a new Order
// via With* helpers rather than mutating in place.
type Order struct {
	OrderID     string
	AgentID     string
	Side        Side
	OrderType   OrderType
	Size        decimal.Decimal
	Price       *decimal.Decimal // nil for MARKET orders
	TIF         TimeInForce
	TimestampUs int64
	Status      OrderStatus
	FilledSize  decimal.Decimal
}

// Remaining returns size - filled_size.
func (o Order) Remaining() decimal.Decimal {
	return o.Size.Sub(o.FilledSize)
}

// Validate checks an Order's structural invariants (positive size, a
// price present iff the order type requires one, and so on).
func (o Order) Validate() error {
	if o.Size.LessThanOrEqual(decimal.Zero) {
		return simerrors.ErrInvalidSize
	}
	if o.OrderType == Limit && o.Price == nil {
		return simerrors.ErrPriceMissing
	}
	if o.FilledSize.GreaterThan(o.Size) {
		return simerrors.ErrInvalidSize
	}
	return nil
}

// WithFill returns a copy of o with filled_size and status updated.
func (o Order) WithFill(filledSize decimal.Decimal, status OrderStatus) Order {
	n := o
	n.FilledSize = filledSize
	n.Status = status
	return n
}

// WithSize returns a copy of o with a reduced size (used when a resting
// remainder is re-added to the book with less size than originally quoted).
func (o Order) WithSize(size decimal.Decimal) Order {
	n := o
	n.Size = size
	return n
}

// Trade is a terminal, immutable record of one execution.
type Trade struct {
	TradeID      string
	TimestampUs  int64
	Price        decimal.Decimal
	Size         decimal.Decimal
	BuyOrderID   string
	SellOrderID  string
	Aggressor    Side
}

// Candle is one OHLCV bucket for a given timeframe tag.
type Candle struct {
	TimestampUs  int64
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       decimal.Decimal
	TradeCount   int64
	TimeframeTag string
}

// MarketData is the orchestrator's read-only snapshot of recent activity,
// handed to agents every wakeup.
type MarketData struct {
	TimestampUs int64
	Symbol      string
	LastPrice   *decimal.Decimal
	BidPrice    *decimal.Decimal
	AskPrice    *decimal.Decimal
	BidSize     *decimal.Decimal
	AskSize     *decimal.Decimal
	Volume24h   decimal.Decimal
	Trades      []Trade
}

// MidPrice returns (bid+ask)/2 when both sides are present.
func (m MarketData) MidPrice() *decimal.Decimal {
	if m.BidPrice == nil || m.AskPrice == nil {
		return nil
	}
	mid := m.BidPrice.Add(*m.AskPrice).Div(decimal.NewFromInt(2))
	return &mid
}

// EventKind tags the sum type carried by Event.
type EventKind int

const (
	EventOrder EventKind = iota
	EventTrade
	EventAgentWakeup
	EventCandleClose // reserved, not emitted by the core
	EventSnapshot    // periodic depth-sampling tick, orchestrator-internal
)

// Event priorities: lower number dispatches first at identical timestamps.
const (
	PriorityTrade       = 2
	PriorityOrder       = 3
	PriorityAgentWakeup = 4
	PrioritySnapshot    = 5
)

// Event is the tagged union dispatched by the time engine. At most one of
// Order/Trade/AgentID is populated, selected by Kind.
type Event struct {
	Kind        EventKind
	TimestampUs int64
	Priority    int

	Order   *Order
	Trade   *Trade
	AgentID string
}

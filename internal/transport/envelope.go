// Package transport is the demonstration external collaborator: JSON wire
// envelopes plus a gorilla/websocket broadcast hub and gin HTTP surface
// bridging the core's publication streams to outside consumers. The core
// (internal/orchestrator and below) never imports this package — it only
// ever flows the other way, matching cmd/server's pattern of wiring
// internal/handlers on top of library-agnostic services.
package transport

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/candles"
	"github.com/ayoubachak/marksim/internal/orchestrator"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// MarketDataEnvelope is the wire shape for a market-data update.
type MarketDataEnvelope struct {
	Type        string           `json:"type"`
	Symbol      string           `json:"symbol"`
	TimestampUs int64            `json:"timestamp_us"`
	LastPrice   *decimal.Decimal `json:"last_price,omitempty"`
	BidPrice    *decimal.Decimal `json:"bid_price,omitempty"`
	AskPrice    *decimal.Decimal `json:"ask_price,omitempty"`
	Volume24h   decimal.Decimal  `json:"volume_24h"`
}

// NewMarketDataEnvelope adapts a simtypes.MarketData into its wire form.
func NewMarketDataEnvelope(symbol string, md simtypes.MarketData) MarketDataEnvelope {
	return MarketDataEnvelope{
		Type:        "market_data",
		Symbol:      symbol,
		TimestampUs: md.TimestampUs,
		LastPrice:   md.LastPrice,
		BidPrice:    md.BidPrice,
		AskPrice:    md.AskPrice,
		Volume24h:   md.Volume24h,
	}
}

// TradeEnvelope is the wire shape for one executed trade.
type TradeEnvelope struct {
	Type        string          `json:"type"`
	TradeID     string          `json:"trade_id"`
	TimestampUs int64           `json:"timestamp_us"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	Aggressor   string          `json:"aggressor_side"`
}

// NewTradeEnvelope adapts a simtypes.Trade into its wire form.
func NewTradeEnvelope(t simtypes.Trade) TradeEnvelope {
	return TradeEnvelope{
		Type:        "trade",
		TradeID:     t.TradeID,
		TimestampUs: t.TimestampUs,
		Price:       t.Price,
		Size:        t.Size,
		Aggressor:   t.Aggressor.String(),
	}
}

// DepthLevelEnvelope is one row of an order-book depth snapshot.
type DepthLevelEnvelope struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookEnvelope is the wire shape for a depth snapshot, sampled on the
// orchestrator's depth-sampling cadence and emitted only when the book's
// version has changed since the previous sample.
type OrderBookEnvelope struct {
	Type        string               `json:"type"`
	Symbol      string               `json:"symbol"`
	Version     uint64               `json:"version"`
	Bids        []DepthLevelEnvelope `json:"bids"`
	Asks        []DepthLevelEnvelope `json:"asks"`
	Spread      *decimal.Decimal     `json:"spread,omitempty"`
	Mid         *decimal.Decimal     `json:"mid,omitempty"`
	TimestampMs int64                `json:"timestamp_ms"`
}

func depthLevelEnvelopes(levels []orderbook.DepthLevel) []DepthLevelEnvelope {
	out := make([]DepthLevelEnvelope, len(levels))
	for i, l := range levels {
		out[i] = DepthLevelEnvelope{Price: l.Price, Size: l.Size}
	}
	return out
}

// NewOrderBookEnvelope adapts an orchestrator.DepthSnapshot into its wire
// form, converting the snapshot's microsecond timestamp to milliseconds.
func NewOrderBookEnvelope(symbol string, snap orchestrator.DepthSnapshot) OrderBookEnvelope {
	return OrderBookEnvelope{
		Type:        "orderbook",
		Symbol:      symbol,
		Version:     snap.Version,
		Bids:        depthLevelEnvelopes(snap.Bids),
		Asks:        depthLevelEnvelopes(snap.Asks),
		Spread:      snap.Spread,
		Mid:         snap.Mid,
		TimestampMs: snap.TimestampUs / 1000,
	}
}

// CandleEnvelope is a flat named-field JSON object (type "candle", symbol,
// interval, OHLCV, trade count, closed flag, sequence id), matching the
// shape this codebase's own market-data handlers emit. It does not use the
// Binance kline keys (e/E/s and a nested k object).
type CandleEnvelope struct {
	Type         string          `json:"type"`
	Symbol       string          `json:"symbol"`
	TimeframeTag string          `json:"interval"`
	OpenTimeUs   int64           `json:"open_time_us"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Volume       decimal.Decimal `json:"volume"`
	TradeCount   int64           `json:"trade_count"`
	IsClosed     bool            `json:"is_closed"`
	SequenceID   uint64          `json:"sequence_id"`
}

// NewCandleEnvelope adapts a candles.CandleData into its wire form.
func NewCandleEnvelope(symbol string, cd candles.CandleData) CandleEnvelope {
	return CandleEnvelope{
		Type:         "candle",
		Symbol:       symbol,
		TimeframeTag: cd.Timeframe,
		OpenTimeUs:   cd.Candle.TimestampUs,
		Open:         cd.Candle.Open,
		High:         cd.Candle.High,
		Low:          cd.Candle.Low,
		Close:        cd.Candle.Close,
		Volume:       cd.Candle.Volume,
		TradeCount:   cd.Candle.TradeCount,
		IsClosed:     cd.IsClosed,
		SequenceID:   cd.SequenceID,
	}
}

// AgentCommandEnvelope is the wire shape for an inbound control-surface
// command (add_agent/remove_agent/pause/resume/set_speed).
type AgentCommandEnvelope struct {
	Command string         `json:"command"`
	AgentID string         `json:"agent_id,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

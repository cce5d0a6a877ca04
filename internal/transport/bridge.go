package transport

import (
	"context"

	"github.com/ayoubachak/marksim/internal/orchestrator"
)

// Bridge drains the orchestrator's publication streams and republishes
// each item as a JSON envelope onto the bus, one goroutine per stream.
// Every goroutine exits when its source stream closes or ctx is
// cancelled, whichever comes first.
func Bridge(ctx context.Context, o *orchestrator.Orchestrator, bus *Bus, symbol string, candleTags []string) {
	go bridgeMarketData(ctx, o, bus, symbol)
	go bridgeTrades(ctx, o, bus)
	go bridgeDepth(ctx, o, bus, symbol)
	for _, tag := range candleTags {
		go bridgeCandles(ctx, o, bus, symbol, tag)
	}
}

func bridgeMarketData(ctx context.Context, o *orchestrator.Orchestrator, bus *Bus, symbol string) {
	sub := o.MarketDataUpdates()
	defer sub.Unsubscribe()
	for {
		select {
		case md, ok := <-sub.Items:
			if !ok {
				return
			}
			bus.Publish(TopicMarketData, NewMarketDataEnvelope(symbol, md))
		case <-ctx.Done():
			return
		}
	}
}

func bridgeTrades(ctx context.Context, o *orchestrator.Orchestrator, bus *Bus) {
	sub := o.Trades()
	defer sub.Unsubscribe()
	for {
		select {
		case trade, ok := <-sub.Items:
			if !ok {
				return
			}
			bus.Publish(TopicTrades, NewTradeEnvelope(trade))
		case <-ctx.Done():
			return
		}
	}
}

func bridgeDepth(ctx context.Context, o *orchestrator.Orchestrator, bus *Bus, symbol string) {
	sub := o.Depths()
	defer sub.Unsubscribe()
	for {
		select {
		case snap, ok := <-sub.Items:
			if !ok {
				return
			}
			bus.Publish(TopicDepth, NewOrderBookEnvelope(symbol, snap))
		case <-ctx.Done():
			return
		}
	}
}

func bridgeCandles(ctx context.Context, o *orchestrator.Orchestrator, bus *Bus, symbol, tag string) {
	sub := o.Candles(tag)
	if sub == nil {
		return
	}
	defer sub.Unsubscribe()
	for {
		select {
		case cd, ok := <-sub.Items:
			if !ok {
				return
			}
			bus.Publish(CandleTopic(tag), NewCandleEnvelope(symbol, cd))
		case <-ctx.Done():
			return
		}
	}
}

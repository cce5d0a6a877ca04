// Package candles implements per-timeframe OHLCV rollup over a trade feed,
// each timeframe publishing through its own streams.BoundedStream so a slow
// consumer of one timeframe never affects another. Grounded on the
// teacher's per-concern channel fan-out pattern in order_matching, adapted
// here from a single trade channel to one bounded stream per timeframe tag.
package candles

import (
	"sync"

	"github.com/ayoubachak/marksim/internal/simtypes"
	"github.com/ayoubachak/marksim/internal/streams"
)

// CandleData is one published rollup update: the candle as of this update,
// whether it just closed, which timeframe it belongs to, and a per-
// timeframe monotonic sequence number consumers use to deduplicate.
type CandleData struct {
	Candle     simtypes.Candle
	IsClosed   bool
	Timeframe  string
	SequenceID uint64
}

type timeframeState struct {
	tf             Timeframe
	stream         *streams.BoundedStream[CandleData]
	current        *simtypes.Candle
	currentStartUs int64
	sequence       uint64
	lastLiveUs     int64 // wall-clock-free: last trade ts a live update was published at
}

// Stream owns one BoundedStream[CandleData] per configured timeframe and
// rolls up incoming trades into OHLCV candles, boundary-aligned per
// timeframe and throttled on sub-minute timeframes.
type Stream struct {
	mu    sync.Mutex
	byTag map[string]*timeframeState
}

// NewStream builds a Stream with one timeframe-state per tag. Returns an
// error if any tag fails ParseTimeframe.
func NewStream(tags []string, maxSize int) (*Stream, error) {
	s := &Stream{byTag: make(map[string]*timeframeState)}
	for _, tag := range tags {
		tf, err := ParseTimeframe(tag)
		if err != nil {
			return nil, err
		}
		s.byTag[tag] = &timeframeState{
			tf:         tf,
			stream:     streams.New[CandleData](maxSize, streams.DefaultDropTimeout),
			lastLiveUs: -1,
		}
	}
	return s, nil
}

// Subscribe returns the candle subscription for one configured timeframe
// tag, or nil if the tag was not configured.
func (s *Stream) Subscribe(tag string) *streams.Subscription[CandleData] {
	s.mu.Lock()
	st, ok := s.byTag[tag]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return st.stream.Subscribe()
}

// Close shuts down every timeframe's stream.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.byTag {
		st.stream.Close()
	}
}

// UpdateFromTrade rolls trade into every configured timeframe, publishing
// a closing update for the prior candle (if the trade starts a new
// bucket) and a live or newly-opened update for the current one.
func (s *Stream) UpdateFromTrade(trade simtypes.Trade) {
	s.mu.Lock()
	states := make([]*timeframeState, 0, len(s.byTag))
	for _, st := range s.byTag {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		s.rollup(st, trade)
	}
}

func (s *Stream) rollup(st *timeframeState, trade simtypes.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := st.tf.Align(trade.TimestampUs)

	if st.current == nil || st.currentStartUs != start {
		if st.current != nil {
			st.sequence++
			st.stream.PublishNowait(CandleData{
				Candle:     *st.current,
				IsClosed:   true,
				Timeframe:  st.tf.Tag,
				SequenceID: st.sequence,
			})
		}
		st.current = &simtypes.Candle{
			TimestampUs:  start,
			Open:         trade.Price,
			High:         trade.Price,
			Low:          trade.Price,
			Close:        trade.Price,
			Volume:       trade.Size,
			TradeCount:   1,
			TimeframeTag: st.tf.Tag,
		}
		st.currentStartUs = start
		st.sequence++
		st.stream.PublishNowait(CandleData{
			Candle:     *st.current,
			IsClosed:   false,
			Timeframe:  st.tf.Tag,
			SequenceID: st.sequence,
		})
		st.lastLiveUs = trade.TimestampUs
		return
	}

	c := st.current
	if trade.Price.GreaterThan(c.High) {
		c.High = trade.Price
	}
	if trade.Price.LessThan(c.Low) {
		c.Low = trade.Price
	}
	c.Close = trade.Price
	c.Volume = c.Volume.Add(trade.Size)
	c.TradeCount++

	throttle := st.tf.ThrottleMicros()
	if throttle > 0 && st.lastLiveUs >= 0 && trade.TimestampUs-st.lastLiveUs < throttle {
		return
	}

	st.sequence++
	st.stream.PublishNowait(CandleData{
		Candle:     *c,
		IsClosed:   false,
		Timeframe:  st.tf.Tag,
		SequenceID: st.sequence,
	})
	st.lastLiveUs = trade.TimestampUs
}

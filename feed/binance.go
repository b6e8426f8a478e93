// Package feed keeps the price cache current. A feed owns exactly one
// writer goroutine; everything downstream reads the cache and never talks
// to the feed directly.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/market"
)

// Feed pushes prices into a store until ctx is cancelled.
type Feed interface {
	Run(ctx context.Context, store *market.PriceStore)
}

const defaultBinanceURL = "wss://stream.binance.com:9443/stream"

// Binance streams 24h ticker updates over the combined websocket stream.
// The connection is re-dialed with backoff on any error; a dropped feed
// degrades the engine to stale prices, it never stops it.
type Binance struct {
	URL         string
	Instruments []string
}

func NewBinance(url string, instruments []string) *Binance {
	if url == "" {
		url = defaultBinanceURL
	}
	return &Binance{URL: url, Instruments: instruments}
}

func (b *Binance) streamURL() string {
	streams := make([]string, 0, len(b.Instruments))
	for _, instr := range b.Instruments {
		streams = append(streams, strings.ToLower(instr)+"@ticker")
	}
	return fmt.Sprintf("%s?streams=%s", b.URL, strings.Join(streams, "/"))
}

// tickerEvent is the combined-stream envelope around one 24h ticker update.
type tickerEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol    string `json:"s"`
		LastPrice string `json:"c"`
		ChangePct string `json:"P"`
		EventTime int64  `json:"E"` // milliseconds
	} `json:"data"`
}

func (b *Binance) Run(ctx context.Context, store *market.PriceStore) {
	url := b.streamURL()
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.WithError(err).WithField("url", b.URL).Warn("feed dial failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		log.WithField("instruments", b.Instruments).Info("price feed connected")
		backoff = time.Second

		b.readLoop(ctx, conn, store)
		conn.Close()
	}
}

func (b *Binance) readLoop(ctx context.Context, conn *websocket.Conn, store *market.PriceStore) {
	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("price feed read error, reconnecting")
			}
			return
		}

		p, err := parseTicker(raw)
		if err != nil {
			log.WithError(err).Debug("skipping unparseable ticker")
			continue
		}
		store.Set(p)
	}
}

func parseTicker(raw []byte) (market.Price, error) {
	var ev tickerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return market.Price{}, err
	}
	if ev.Data.Symbol == "" {
		return market.Price{}, fmt.Errorf("ticker event without symbol")
	}

	last, err := strconv.ParseFloat(ev.Data.LastPrice, 64)
	if err != nil {
		return market.Price{}, fmt.Errorf("last price %q: %w", ev.Data.LastPrice, err)
	}
	if last <= 0 {
		return market.Price{}, fmt.Errorf("last price %q not positive", ev.Data.LastPrice)
	}

	change, _ := strconv.ParseFloat(ev.Data.ChangePct, 64)

	at := time.Now().UTC()
	if ev.Data.EventTime > 0 {
		at = time.UnixMilli(ev.Data.EventTime).UTC()
	}

	return market.Price{
		Instrument: ev.Data.Symbol,
		Last:       last,
		ChangePct:  change,
		Time:       at,
	}, nil
}

package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"trader/internal/market"
	"trader/pkg/exception"
)

const (
	DefaultWsUrl = "wss://stream.binance.com:9443/ws"

	_defaultFirstQuoteWait = 10 * time.Second
)

// Connector streams best bid/ask from the Binance 'Individual Symbol Book Ticker Stream'.
type Connector struct {
	url            string
	symbol         string
	clock          market.Clock
	firstQuoteWait time.Duration

	wss    *ws.WebSocket
	cancel context.CancelFunc
	nextID atomic.Int64

	mu         sync.Mutex
	quotes     map[string]market.Quote
	ready      map[string]chan struct{}
	subscribed map[string]bool
}

// New builds a connector that subscribes symbol on Init. Other symbols are
// subscribed lazily on first Quote.
func New(url, symbol string, clock market.Clock) *Connector {
	if url == "" {
		url = DefaultWsUrl
	}
	if clock == nil {
		clock = market.UTCClock{}
	}
	return &Connector{
		url:            url,
		symbol:         strings.ToUpper(symbol),
		clock:          clock,
		firstQuoteWait: _defaultFirstQuoteWait,
		quotes:         make(map[string]market.Quote),
		ready:          make(map[string]chan struct{}),
		subscribed:     make(map[string]bool),
	}
}

func (c *Connector) Name() string {
	return "binance"
}

// Init opens the websocket and subscribes the configured symbol.
func (c *Connector) Init(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.wss = ws.New(runCtx, c.url)
	if err := c.wss.Start(runCtx); err != nil {
		cancel()
		return errors.Wrap(err, "start wss").With("url", c.url)
	}

	c.observeBookTicker(runCtx)

	if c.symbol == "" {
		return nil
	}
	if err := c.subscribe(ctx, c.symbol); err != nil {
		return errors.Wrap(err, "subscribe book ticker").With("symbol", c.symbol)
	}
	return nil
}

// Quote returns the latest book ticker of symbol. The first call for a
// symbol waits for its first update.
func (c *Connector) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	if c.wss == nil {
		return market.Quote{}, exception.ErrConnectorNotInitialized
	}
	symbol = strings.ToUpper(symbol)

	c.mu.Lock()
	quote, ok := c.quotes[symbol]
	subscribed := c.subscribed[symbol]
	c.mu.Unlock()
	if ok {
		return quote, nil
	}

	if !subscribed {
		if err := c.subscribe(ctx, symbol); err != nil {
			return market.Quote{}, errors.Wrap(err, "subscribe book ticker").With("symbol", symbol)
		}
	}

	timer := time.NewTimer(c.firstQuoteWait)
	defer timer.Stop()
	select {
	case <-c.readyChan(symbol):
	case <-timer.C:
		return market.Quote{}, fmt.Errorf("%w: waited %s for %s", exception.ErrConnectorNoQuote, c.firstQuoteWait, symbol)
	case <-ctx.Done():
		return market.Quote{}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quotes[symbol], nil
}

func (c *Connector) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.wss != nil {
		c.wss.Close()
	}
	return nil
}

func (c *Connector) readyChan(symbol string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.ready[symbol]
	if !ok {
		ch = make(chan struct{})
		c.ready[symbol] = ch
	}
	return ch
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

func (c *Connector) subscribe(ctx context.Context, symbol string) error {
	id := c.nextID.Add(1)
	appendIntoRegister := true
	if err := c.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{streamName(symbol)},
				ID:     id,
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != id {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe and wait, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	c.mu.Lock()
	c.subscribed[symbol] = true
	c.mu.Unlock()
	logs.Infof("binance: subscribed %s", streamName(symbol))
	return nil
}

func streamName(symbol string) string {
	return strings.ToLower(symbol) + "@bookTicker"
}

type bookTicker struct {
	UpdateID int64           `json:"u"`
	Symbol   string          `json:"s"`
	Bid      decimal.Decimal `json:"b"`
	BidQty   decimal.Decimal `json:"B"`
	Ask      decimal.Decimal `json:"a"`
	AskQty   decimal.Decimal `json:"A"`
}

func (c *Connector) observeBookTicker(ctx context.Context) {
	ch, cancel := c.wss.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				ticker, ok := ws.ReadMessage[bookTicker](m)
				if !ok || ticker.Symbol == "" || ticker.UpdateID == 0 {
					continue
				}

				c.apply(ticker)
			}
		}
	}()
}

func (c *Connector) apply(ticker bookTicker) {
	symbol := strings.ToUpper(ticker.Symbol)
	quote := market.Quote{
		Symbol: symbol,
		Bid:    ticker.Bid,
		BidQty: ticker.BidQty,
		Ask:    ticker.Ask,
		AskQty: ticker.AskQty,
		Time:   c.clock.Now(),
	}
	if err := quote.Validate(); err != nil {
		logs.Errorf("binance: drop book ticker %d, err: %+v", ticker.UpdateID, err)
		return
	}

	c.mu.Lock()
	_, seen := c.quotes[symbol]
	c.quotes[symbol] = quote
	ch, ok := c.ready[symbol]
	if !ok {
		ch = make(chan struct{})
		c.ready[symbol] = ch
	}
	c.mu.Unlock()

	if !seen {
		close(ch)
	}
}

package replay

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"trader/internal/market"
	"trader/pkg/exception"
)

type tick struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	BidQty decimal.Decimal `json:"bidQty"`
	Ask    decimal.Decimal `json:"ask"`
	AskQty decimal.Decimal `json:"askQty"`
	Time   time.Time       `json:"time"`
}

// Connector replays quotes from a JSON-lines tick file. Each symbol cycles
// through its own ticks in file order.
type Connector struct {
	path  string
	clock market.Clock

	mu     sync.Mutex
	ticks  map[string][]market.Quote
	cursor map[string]int
}

func New(path string, clock market.Clock) *Connector {
	if clock == nil {
		clock = market.UTCClock{}
	}
	return &Connector{
		path:  path,
		clock: clock,
	}
}

func (c *Connector) Name() string {
	return "replay"
}

// Init reads the whole tick file.
func (c *Connector) Init(_ context.Context) error {
	f, err := os.Open(c.path)
	if err != nil {
		return errors.Wrap(err, "open tick file").With("path", c.path)
	}
	defer f.Close()

	ticks, err := decodeTicks(f)
	if err != nil {
		return errors.Wrap(err, "decode tick file").With("path", c.path)
	}
	if len(ticks) == 0 {
		return fmt.Errorf("%w: %s", exception.ErrConnectorEmptyFeed, c.path)
	}

	c.mu.Lock()
	c.ticks = ticks
	c.cursor = make(map[string]int, len(ticks))
	c.mu.Unlock()

	logs.Infof("replay: loaded %d symbols from %s", len(ticks), c.path)
	return nil
}

// maxTickLine bounds a single JSON line of the tick file.
const maxTickLine = 1 << 20

// decodeTicks reads one tick per line. Blank lines are skipped, any other
// line that does not decode into a valid tick fails the whole file.
func decodeTicks(r io.Reader) (map[string][]market.Quote, error) {
	out := make(map[string][]market.Quote)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTickLine)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var t tick
		if err := sonic.ConfigStd.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("tick %d: %w", line, err)
		}
		symbol := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("tick %d: %w: empty symbol", line, exception.ErrInvalidArgument)
		}
		quote := market.Quote{
			Symbol: symbol,
			Bid:    t.Bid,
			BidQty: t.BidQty,
			Ask:    t.Ask,
			AskQty: t.AskQty,
			Time:   t.Time,
		}
		if err := quote.Validate(); err != nil {
			return nil, fmt.Errorf("tick %d: %w", line, err)
		}
		out[symbol] = append(out[symbol], quote)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ticks: %w", err)
	}
	return out, nil
}

// Quote returns the next tick of symbol, wrapping around at the end.
func (c *Connector) Quote(_ context.Context, symbol string) (market.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ticks == nil {
		return market.Quote{}, exception.ErrConnectorNotInitialized
	}
	symbol = strings.ToUpper(symbol)
	quotes := c.ticks[symbol]
	if len(quotes) == 0 {
		return market.Quote{}, fmt.Errorf("%w: %s", exception.ErrConnectorUnknownSymbol, symbol)
	}

	idx := c.cursor[symbol]
	c.cursor[symbol] = (idx + 1) % len(quotes)

	quote := quotes[idx]
	if quote.Time.IsZero() {
		quote.Time = c.clock.Now()
	}
	return quote, nil
}

func (c *Connector) Close() error {
	return nil
}

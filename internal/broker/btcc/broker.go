package btcc

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"trader/internal/config"
	"trader/internal/market"
	"trader/pkg/exception"
)

const (
	BaseUrl    = "https://spotapi2.btcccdn.com/"
	BaseUrlDev = "https://spot.cryptouat.com:9910/"

	_pathPlaceLimitOrder = "btcc_api_trade/order/limit"
	_sourceTag           = "trader"
	_optionGTC           = "0"
)

// Broker places signed limit orders on the BTCC spot REST API.
type Broker struct {
	baseUrl     string
	credentials config.Credentials
	client      *http.Client
	clock       market.Clock
	timeout     time.Duration
}

func New(baseUrl string, credentials config.Credentials, client *http.Client, clock market.Clock, timeout time.Duration) *Broker {
	if baseUrl == "" {
		baseUrl = BaseUrl
	}
	if client == nil {
		client = http.DefaultClient
	}
	if clock == nil {
		clock = market.UTCClock{}
	}
	return &Broker{
		baseUrl:     strings.TrimRight(baseUrl, "/") + "/",
		credentials: credentials,
		client:      client,
		clock:       clock,
		timeout:     timeout,
	}
}

func (b *Broker) Name() string {
	return "btcc"
}

func (b *Broker) Init(_ context.Context) error {
	if b.credentials.Empty() {
		return exception.ErrBrokerMissingToken
	}
	logs.Infof("btcc: broker ready, endpoint %s", b.baseUrl)
	return nil
}

func btccSide(side market.Side) string {
	switch side {
	case market.SideSell:
		return "2"
	case market.SideBuy:
		return "1"
	default:
		return btccSide(market.SideBuy)
	}
}

// Place sends a GTC limit order.
func (b *Broker) Place(ctx context.Context, order market.Order) (market.Execution, error) {
	var execution market.Execution
	if order.Symbol == "" || !order.Side.IsAvailable() {
		return execution, exception.ErrBrokerInvalidOrder
	}

	body := map[string]string{
		"access_id": b.credentials.APIKey,
		"tm":        strconv.FormatInt(b.clock.Now().Unix(), 10),
		"market":    order.Symbol,
		"side":      btccSide(order.Side),
		"price":     order.Price.String(),
		"amount":    order.Qty.String(),
		"source":    _sourceTag,
		"option":    _optionGTC,
		"client_id": order.ClientOrderID,
	}

	payload, err := sonic.ConfigFastest.Marshal(body)
	if err != nil {
		return execution, errors.Wrap(err, "marshal order body")
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	r, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		b.baseUrl+_pathPlaceLimitOrder,
		bytes.NewReader(payload),
	)
	if err != nil {
		return execution, errors.Wrap(err, "new request")
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("authorization", sign(body, b.credentials.APISecret))

	resp, err := b.client.Do(r)
	if err != nil {
		return execution, errors.Wrap(err, "do request").With("client_id", order.ClientOrderID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return execution, errors.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var data Response[ResponsePlaceLimitOrder]
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&data); err != nil {
		return execution, errors.Wrap(err, "decode response")
	}

	if data.Error.Code != 0 {
		return execution, fmt.Errorf("%w: code %d, %s", exception.ErrOrderResponseBTCCCode, data.Error.Code, data.Error.Message)
	}
	if data.Data.ID == 0 {
		return execution, exception.ErrOrderEmptyResponseID
	}

	return toExecution(order, data.Data, b.clock.Now())
}

func toExecution(order market.Order, data ResponsePlaceLimitOrder, now time.Time) (market.Execution, error) {
	execution := market.Execution{
		ClientOrderID: order.ClientOrderID,
		VenueOrderID:  strconv.FormatInt(data.ID, 10),
		Status:        market.ExecutionAccepted,
		Time:          now,
	}
	if data.ClientID != "" {
		execution.ClientOrderID = data.ClientID
	}

	if data.DealStock != "" {
		filled, err := market.ParseDecimal(data.DealStock)
		if err != nil {
			return execution, errors.Wrap(err, "parse deal_stock").With("deal_stock", data.DealStock)
		}
		execution.FilledQty = filled
	}

	if left := strings.TrimSpace(data.Left); left != "" && isZero(left) && data.DealStock != "" && !isZero(data.DealStock) {
		execution.Status = market.ExecutionFilled
		execution.AvgPrice = order.Price
	}
	return execution, nil
}

func isZero(s string) bool {
	return strings.Trim(strings.TrimSpace(s), "0.") == ""
}

// sign builds the md5 signature over the sorted body pairs plus the secret.
func sign(body map[string]string, secret string) string {
	pairs := make([]string, 0, len(body)+1)
	for k, v := range body {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	pairs = append(pairs, fmt.Sprintf("secret_key=%s", secret))
	sort.Strings(pairs)
	paramStr := strings.Join(pairs, "&")
	hash := md5.Sum([]byte(paramStr))
	return hex.EncodeToString(hash[:])
}

func (b *Broker) Close() error {
	return nil
}

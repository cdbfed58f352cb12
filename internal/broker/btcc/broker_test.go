package btcc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trader/internal/config"
	"trader/internal/market"
	"trader/pkg/exception"
)

var testCredentials = config.Credentials{APIKey: "key", APISecret: "secret"}

func testOrder() market.Order {
	return market.Order{
		ClientOrderID: "trader-abc",
		Symbol:        "BTCUSDT",
		Side:          market.SideSell,
		Price:         market.MustDecimal("101.5"),
		Qty:           market.MustDecimal("0.25"),
	}
}

func newServer(t *testing.T, handler func(t *testing.T, body map[string]string, r *http.Request) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, sonic.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, handler(t, body, r))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlaceSignsAndParses(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	srv := newServer(t, func(t *testing.T, body map[string]string, r *http.Request) string {
		assert.Equal(t, "/"+_pathPlaceLimitOrder, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", body["access_id"])
		assert.Equal(t, "1700000000", body["tm"])
		assert.Equal(t, "BTCUSDT", body["market"])
		assert.Equal(t, "2", body["side"])
		assert.Equal(t, "101.5", body["price"])
		assert.Equal(t, "0.25", body["amount"])
		assert.Equal(t, "trader-abc", body["client_id"])
		assert.Equal(t, sign(body, "secret"), r.Header.Get("authorization"))
		return `{"id":1,"result":{"id":987,"client_id":"trader-abc","left":"0","deal_stock":"0.25"}}`
	})

	b := New(srv.URL+"/", testCredentials, srv.Client(), market.FixedClock(now), time.Second)
	require.NoError(t, b.Init(t.Context()))

	exec, err := b.Place(t.Context(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "987", exec.VenueOrderID)
	assert.Equal(t, "trader-abc", exec.ClientOrderID)
	assert.Equal(t, market.ExecutionFilled, exec.Status)
	assert.Equal(t, "0.25", exec.FilledQty.String())
	assert.Equal(t, "101.5", exec.AvgPrice.String())
	assert.Equal(t, now, exec.Time)
}

func TestPlaceAcceptedOnly(t *testing.T) {
	srv := newServer(t, func(*testing.T, map[string]string, *http.Request) string {
		return `{"id":1,"result":{"id":5,"left":"0.25","deal_stock":"0"}}`
	})
	b := New(srv.URL, testCredentials, srv.Client(), nil, 0)

	exec, err := b.Place(t.Context(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, market.ExecutionAccepted, exec.Status)
}

func TestPlaceErrors(t *testing.T) {
	testCases := []struct {
		desc     string
		response string
		is       error
	}{
		{"error code", `{"id":1,"error":{"code":10,"message":"balance not enough"}}`, exception.ErrOrderResponseBTCCCode},
		{"empty id", `{"id":1,"result":{}}`, exception.ErrOrderEmptyResponseID},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			srv := newServer(t, func(*testing.T, map[string]string, *http.Request) string {
				return tc.response
			})
			b := New(srv.URL, testCredentials, srv.Client(), nil, time.Second)
			_, err := b.Place(t.Context(), testOrder())
			assert.ErrorIs(t, err, tc.is)
		})
	}
}

func TestPlaceHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := New(srv.URL, testCredentials, srv.Client(), nil, time.Second)
	_, err := b.Place(t.Context(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestInitRequiresCredentials(t *testing.T) {
	b := New("", config.Credentials{}, nil, nil, 0)
	assert.Equal(t, BaseUrl, b.baseUrl)
	assert.ErrorIs(t, b.Init(t.Context()), exception.ErrBrokerMissingToken)

	_, err := b.Place(t.Context(), market.Order{})
	assert.ErrorIs(t, err, exception.ErrBrokerInvalidOrder)
}

func TestSignIsOrderIndependent(t *testing.T) {
	a := sign(map[string]string{"b": "2", "a": "1"}, "s")
	b := sign(map[string]string{"a": "1", "b": "2"}, "s")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

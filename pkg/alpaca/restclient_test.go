package alpaca

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dnaeon/go-vcr/cassette"
	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{KeyID: "key", SecretKey: "secret"}

func barsRequest() BarsRequest {
	return BarsRequest{
		Symbols:   []string{"AAPL", "MSFT"},
		Timeframe: Timeframe1Day,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}
}

// matchBarsPage matches on method, path, symbols and page token so header order or
// credentials never influence replay.
func matchBarsPage(r *http.Request, i cassette.Request) bool {
	if r.Method != i.Method {
		return false
	}
	req, err := http.NewRequest(i.Method, i.URL, nil)
	if err != nil {
		return false
	}
	got, want := r.URL.Query(), req.URL.Query()
	return r.URL.Path == req.URL.Path &&
		got.Get("symbols") == want.Get("symbols") &&
		got.Get("page_token") == want.Get("page_token")
}

// go test -v --run TestGetBarsFollowsPages
func TestGetBarsFollowsPages(t *testing.T) {
	rec, err := recorder.New("testdata/alpaca_bars")
	require.NoError(t, err)
	defer rec.Stop()
	rec.SetMatcher(matchBarsPage)

	client := NewRESTClient("https://data.alpaca.markets", 10*time.Second, testCreds, WithTransport(rec))

	bars, err := client.GetBars(context.Background(), barsRequest())
	require.NoError(t, err)

	require.Len(t, bars["AAPL"], 2)
	require.Len(t, bars["MSFT"], 2, "second page must be appended")
	assert.Equal(t, 185.64, bars["AAPL"][0].Close)
	assert.Equal(t, int64(1009074), bars["AAPL"][0].TradeCount)
	assert.Equal(t, time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC), bars["MSFT"][1].Timestamp.UTC())
}

// go test -v --run TestGetBarsSendsQueryAndHeaders
func TestGetBarsSendsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/bars", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		q := r.URL.Query()
		assert.Equal(t, "AAPL,MSFT", q.Get("symbols"))
		assert.Equal(t, "1Day", q.Get("timeframe"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("start"))
		assert.Equal(t, "sip", q.Get("feed"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bars":{},"next_page_token":null}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second, testCreds, WithFeed("sip"))
	bars, err := client.GetBars(context.Background(), barsRequest())
	require.NoError(t, err)
	assert.Empty(t, bars)
}

// go test -v --run TestGetBarsErrorMapping
func TestGetBarsErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ErrTransient},
		{"server error", http.StatusBadGateway, ErrTransient},
		{"bad request", http.StatusUnprocessableEntity, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"code":40010001,"message":"nope"}`))
			}))
			defer srv.Close()

			client := NewRESTClient(srv.URL, 5*time.Second, testCreds)
			_, err := client.GetBars(context.Background(), barsRequest())
			require.Error(t, err)
			if tc.want == nil {
				assert.False(t, errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTransient), "got %v", err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// go test -v --run TestGetBarsTransportFailure
func TestGetBarsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewRESTClient(url, time.Second, testCreds)
	_, err := client.GetBars(context.Background(), barsRequest())
	assert.ErrorIs(t, err, ErrTransient)
}

// go test -v --run TestGetBarsMissingCredentials
func TestGetBarsMissingCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, time.Second, Credentials{KeyID: "key"})
	_, err := client.GetBars(context.Background(), barsRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called, "no request may be sent without credentials")
}

// go test -v --run TestParseTimeframe
func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("1Hour")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, tf.Duration())

	_, err = ParseTimeframe("1Year")
	assert.Error(t, err)
}

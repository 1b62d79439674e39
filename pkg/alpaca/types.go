package alpaca

import "time"

// Bar is one historical bar as returned by /v2/stocks/bars.
type Bar struct {
	Timestamp  time.Time `json:"t"`
	Open       float64   `json:"o"`
	High       float64   `json:"h"`
	Low        float64   `json:"l"`
	Close      float64   `json:"c"`
	Volume     float64   `json:"v"`
	TradeCount int64     `json:"n"`
	VWAP       float64   `json:"vw"`
}

// BarsResponse is one page of the multi-symbol bars endpoint.
type BarsResponse struct {
	Bars          map[string][]Bar `json:"bars"`
	NextPageToken *string          `json:"next_page_token"`
}

// BarsRequest describes a historical bars query.
type BarsRequest struct {
	Symbols   []string
	Timeframe Timeframe
	Start     time.Time
	End       time.Time
}

// StreamMessage is one element of the JSON array frames sent by the market data stream.
// Control messages use T, Msg and Code; bar messages ("b") use the remaining fields.
type StreamMessage struct {
	Type       string    `json:"T"` // "success", "error", "subscription", "b"
	Msg        string    `json:"msg,omitempty"`
	Code       int       `json:"code,omitempty"`
	Symbol     string    `json:"S,omitempty"`
	Open       float64   `json:"o,omitempty"`
	High       float64   `json:"h,omitempty"`
	Low        float64   `json:"l,omitempty"`
	Close      float64   `json:"c,omitempty"`
	Volume     float64   `json:"v,omitempty"`
	Timestamp  time.Time `json:"t,omitempty"`
	TradeCount int64     `json:"n,omitempty"`
	VWAP       float64   `json:"vw,omitempty"`
	Bars       []string  `json:"bars,omitempty"`
}

// Stream message types.
const (
	MsgSuccess      = "success"
	MsgError        = "error"
	MsgSubscription = "subscription"
	MsgBar          = "b"
)

type authRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type subscribeRequest struct {
	Action string   `json:"action"`
	Bars   []string `json:"bars"`
}

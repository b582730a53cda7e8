package alpaca

// Wire types for the Alpaca Trading and Market Data APIs.
// Alpaca serializes most numeric fields as JSON strings.

type accountResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	Equity      string `json:"equity"`
	BuyingPower string `json:"buying_power"`
	Cash        string `json:"cash"`
}

type positionResponse struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	Side         string `json:"side"`
	MarketValue  string `json:"market_value"`
	CurrentPrice string `json:"current_price"`
}

type clockResponse struct {
	Timestamp string `json:"timestamp"`
	IsOpen    bool   `json:"is_open"`
	NextOpen  string `json:"next_open"`
	NextClose string `json:"next_close"`
}

type assetResponse struct {
	Symbol       string `json:"symbol"`
	Status       string `json:"status"`
	Tradable     bool   `json:"tradable"`
	Fractionable bool   `json:"fractionable"`
}

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

type orderResponse struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
	Symbol        string `json:"symbol"`
	FilledQty     string `json:"filled_qty"`
}

type latestTradeResponse struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price     float64 `json:"p"`
		Size      int64   `json:"s"`
		Timestamp string  `json:"t"`
	} `json:"trade"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

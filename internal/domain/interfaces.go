package domain

import "context"

// BrokerClient defines broker-agnostic account, market data and trading operations.
// The Alpaca client implements this; tests inject fakes so the planner and
// executor run without network access.
type BrokerClient interface {
	// Account operations
	GetAccount() (*AccountSnapshot, error)
	GetPositions() ([]Position, error)

	// Market data operations
	GetClock() (*MarketClock, error)
	GetLatestPrice(symbol string) (float64, error)
	GetAsset(symbol string) (*AssetInfo, error)

	// Trading operations
	SubmitOrder(req OrderRequest) (*OrderResult, error)
	GetOrderByClientOrderID(clientOrderID string) (*OrderStatus, error)

	// Credentials can be rotated without rebuilding the client
	SetCredentials(apiKey, apiSecret string)
}

// SignalSource fetches the raw signal file bytes from wherever the upstream
// provider publishes them (cloud storage in production, local files in tests).
type SignalSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

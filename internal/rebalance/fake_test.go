package rebalance

import (
	"fmt"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// fakeBroker is an in-memory domain.BrokerClient for executor and service tests
type fakeBroker struct {
	account   *domain.AccountSnapshot
	positions []domain.Position
	clock     *domain.MarketClock
	prices    map[string]float64
	assets    map[string]*domain.AssetInfo

	submitErr   map[string]error  // error returned when submitting this symbol
	orderStatus map[string]string // terminal status per symbol (default filled)

	submitted    []domain.OrderRequest
	accountCalls int
	bySymbol     map[string]string // maps client order IDs back to symbols
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		account:     &domain.AccountSnapshot{Equity: 10000, BuyingPower: 20000, Currency: "USD"},
		clock:       &domain.MarketClock{IsOpen: true},
		prices:      map[string]float64{},
		assets:      map[string]*domain.AssetInfo{},
		submitErr:   map[string]error{},
		orderStatus: map[string]string{},
		bySymbol:    map[string]string{},
	}
}

func (f *fakeBroker) GetAccount() (*domain.AccountSnapshot, error) {
	f.accountCalls++
	return f.account, nil
}

func (f *fakeBroker) GetPositions() ([]domain.Position, error) {
	f.accountCalls++
	return f.positions, nil
}

func (f *fakeBroker) GetClock() (*domain.MarketClock, error) {
	return f.clock, nil
}

func (f *fakeBroker) GetLatestPrice(symbol string) (float64, error) {
	price, ok := f.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, symbol)
	}
	return price, nil
}

func (f *fakeBroker) GetAsset(symbol string) (*domain.AssetInfo, error) {
	if asset, ok := f.assets[symbol]; ok {
		return asset, nil
	}
	return &domain.AssetInfo{Symbol: symbol, Tradable: true}, nil
}

func (f *fakeBroker) SubmitOrder(req domain.OrderRequest) (*domain.OrderResult, error) {
	if err, ok := f.submitErr[req.Symbol]; ok {
		return nil, err
	}
	f.submitted = append(f.submitted, req)
	f.bySymbol[req.ClientOrderID] = req.Symbol
	return &domain.OrderResult{
		OrderID:       fmt.Sprintf("order-%d", len(f.submitted)),
		ClientOrderID: req.ClientOrderID,
		Status:        "accepted",
	}, nil
}

func (f *fakeBroker) GetOrderByClientOrderID(clientOrderID string) (*domain.OrderStatus, error) {
	symbol, ok := f.bySymbol[clientOrderID]
	if !ok {
		return nil, fmt.Errorf("unknown order %s", clientOrderID)
	}
	status := domain.OrderStatusFilled
	if s, ok := f.orderStatus[symbol]; ok {
		status = s
	}
	return &domain.OrderStatus{ClientOrderID: clientOrderID, Status: status}, nil
}

func (f *fakeBroker) SetCredentials(apiKey, apiSecret string) {}

var _ domain.BrokerClient = (*fakeBroker)(nil)

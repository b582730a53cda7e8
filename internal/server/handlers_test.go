package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
	"github.com/joshwigginton/composer-signals-alpaca/internal/rebalance"
)

type stubSource struct {
	data []byte
	err  error
}

func (s *stubSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.data, s.err
}

type stubBroker struct {
	equity    float64
	positions []domain.Position
	prices    map[string]float64
	submitted []domain.OrderRequest
}

func (b *stubBroker) GetAccount() (*domain.AccountSnapshot, error) {
	return &domain.AccountSnapshot{Equity: b.equity, Cash: b.equity, Currency: "USD"}, nil
}

func (b *stubBroker) GetPositions() ([]domain.Position, error) {
	return b.positions, nil
}

func (b *stubBroker) GetClock() (*domain.MarketClock, error) {
	return &domain.MarketClock{IsOpen: true}, nil
}

func (b *stubBroker) GetLatestPrice(symbol string) (float64, error) {
	price, ok := b.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, symbol)
	}
	return price, nil
}

func (b *stubBroker) GetAsset(symbol string) (*domain.AssetInfo, error) {
	return &domain.AssetInfo{Symbol: symbol, Tradable: true}, nil
}

func (b *stubBroker) SubmitOrder(req domain.OrderRequest) (*domain.OrderResult, error) {
	b.submitted = append(b.submitted, req)
	return &domain.OrderResult{OrderID: fmt.Sprintf("ord-%d", len(b.submitted)), ClientOrderID: req.ClientOrderID}, nil
}

func (b *stubBroker) GetOrderByClientOrderID(clientOrderID string) (*domain.OrderStatus, error) {
	return &domain.OrderStatus{ClientOrderID: clientOrderID, Status: domain.OrderStatusFilled}, nil
}

func (b *stubBroker) SetCredentials(apiKey, apiSecret string) {}

func newTestServer(t *testing.T, source domain.SignalSource, broker domain.BrokerClient) *Server {
	t.Helper()
	service := rebalance.NewService(rebalance.ServiceConfig{
		Symphony:    "Growth",
		CashWeight:  1.0,
		MinOrderQty: 0.0001,
		FillTimeout: time.Second,
	}, source, broker, nil, zerolog.Nop())

	return New(Config{Port: 0, Service: service, Log: zerolog.Nop()})
}

const signalCSV = "Symphony,Ticker,Ticker Allocation Percent\nGrowth,AAPL,60\nGrowth,MSFT,40\n"

func TestHandleTrigger(t *testing.T) {
	broker := &stubBroker{
		equity: 10000,
		prices: map[string]float64{"AAPL": 100, "MSFT": 200},
	}
	srv := newTestServer(t, &stubSource{data: []byte(signalCSV)}, broker)

	envelope := map[string]interface{}{
		"message": map[string]string{
			"data":      base64.StdEncoding.EncodeToString([]byte("rebalance")),
			"messageId": "msg-1",
		},
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/rebalance/trigger", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.RunStatusCompleted, resp["status"])
	assert.Equal(t, "Growth", resp["symphony"])
	assert.Len(t, broker.submitted, 2)
}

func TestHandleTriggerBadEnvelope(t *testing.T) {
	srv := newTestServer(t, &stubSource{data: []byte(signalCSV)}, &stubBroker{})

	req := httptest.NewRequest(http.MethodPost, "/api/rebalance/trigger", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleManualRun(t *testing.T) {
	broker := &stubBroker{
		equity: 10000,
		prices: map[string]float64{"AAPL": 100, "MSFT": 200},
	}
	srv := newTestServer(t, &stubSource{data: []byte(signalCSV)}, broker)

	req := httptest.NewRequest(http.MethodPost, "/api/rebalance/run", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, broker.submitted, 2)
}

func TestHandleManualRunFatalError(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("%w: access denied", domain.ErrAuth)}
	srv := newTestServer(t, source, &stubBroker{})

	req := httptest.NewRequest(http.MethodPost, "/api/rebalance/run", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.RunStatusFailed, resp["status"])
	assert.Contains(t, resp["error"], "access denied")
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubSource{}, &stubBroker{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleLastRunWithoutJournal(t *testing.T) {
	srv := newTestServer(t, &stubSource{}, &stubBroker{})

	req := httptest.NewRequest(http.MethodGet, "/api/rebalance/last-run", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSystemStatus(t *testing.T) {
	srv := newTestServer(t, &stubSource{}, &stubBroker{})

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "cpu_percent")
	assert.Contains(t, resp, "mem_percent")
}

func TestSubmittedQuantities(t *testing.T) {
	broker := &stubBroker{
		equity: 10000,
		prices: map[string]float64{"AAPL": 100, "MSFT": 200},
	}
	srv := newTestServer(t, &stubSource{data: []byte(signalCSV)}, broker)

	req := httptest.NewRequest(http.MethodPost, "/api/rebalance/run", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	bysym := map[string]decimal.Decimal{}
	for _, o := range broker.submitted {
		bysym[o.Symbol] = o.Quantity
	}
	assert.True(t, bysym["AAPL"].Equal(decimal.NewFromInt(60)))
	assert.True(t, bysym["MSFT"].Equal(decimal.NewFromInt(20)))
}

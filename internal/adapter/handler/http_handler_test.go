package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/game-stock/internal/metrics"
)

type httpFixture struct {
	t      *testing.T
	store  *memStore
	server http.Handler
}

func newHTTPFixture(t *testing.T) *httpFixture {
	store := newMemStore()
	mux := http.NewServeMux()
	NewHTTPHandler(newTestServices(store), nil).Register(mux)
	return &httpFixture{t: t, store: store, server: LoggingMiddleware(nil, metrics.NewRecorder(), mux)}
}

func (f *httpFixture) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)
	return rr
}

func (f *httpFixture) open(privileged bool, headers ...string) string {
	f.t.Helper()

	rr := f.do(http.MethodPost, "/api/sessions", map[string]any{"user_id": 7, "privileged": privileged}, headers...)
	require.Equal(f.t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(f.t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionID
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	f := newHTTPFixture(t)

	rr := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestOpenSession_PrivilegedNeedsToken(t *testing.T) {
	f := newHTTPFixture(t)

	rr := f.do(http.MethodPost, "/api/sessions", map[string]any{"user_id": 7, "privileged": true})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(http.MethodPost, "/api/sessions", map[string]any{"user_id": 7, "privileged": true}, adminTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	f.open(true, adminTokenHeader, testAdminToken)

	rr = f.do(http.MethodPost, "/api/sessions", map[string]any{"user_id": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestShoppingFlow(t *testing.T) {
	f := newHTTPFixture(t)
	id := f.open(false)
	base := "/api/sessions/" + id

	rr := f.do(http.MethodGet, base+"/catalog", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	catalog := decodeBody[struct {
		Games []GameDTO `json:"games"`
	}](t, rr)
	require.Len(t, catalog.Games, 2)
	assert.Equal(t, "Doom", catalog.Games[0].Name)
	assert.Equal(t, "19.99", catalog.Games[1].Price)

	rr = f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 2, Quantity: 3})
	require.Equal(t, http.StatusOK, rr.Code)

	basket := decodeBody[BasketResponse](t, rr)
	assert.Equal(t, "56.48", basket.Total)
	assert.Equal(t, "45.18", basket.TotalBeforeVAT)

	rr = f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 2, Quantity: 1})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, decodeBody[ErrorHTTPResponse](t, rr).Error, "only 3 available")

	rr = f.do(http.MethodPost, base+"/purchases", nil, "X-Request-ID", "req-1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	receipt := decodeBody[ReceiptResponse](t, rr)
	assert.Equal(t, "56.48", receipt.Total)
	assert.Equal(t, 5, receipt.Copies)
	assert.Equal(t, 3, f.store.games[1].Copies)

	rr = f.do(http.MethodGet, base+"/basket", nil)
	assert.Empty(t, decodeBody[BasketResponse](t, rr).Lines)

	rr = f.do(http.MethodGet, base+"/purchases?items=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeBody[HistoryResponse](t, rr)
	require.Len(t, history.Purchases, 1)
	assert.Equal(t, "56.48", history.GrandTotal)
	assert.Equal(t, 5, history.TotalCopies)

	rr = f.do(http.MethodGet, base+"/purchases/"+jsonNumber(receipt.PurchaseID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[PurchaseDTO](t, rr).Items, 2)

	rr = f.do(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(http.MethodGet, base+"/basket", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCommitPurchase_EmptyBasketAndDuplicate(t *testing.T) {
	f := newHTTPFixture(t)
	base := "/api/sessions/" + f.open(false)

	rr := f.do(http.MethodPost, base+"/purchases", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0.00", decodeBody[ReceiptResponse](t, rr).Total)

	f.do(http.MethodGet, base+"/catalog", nil)
	f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 1, Quantity: 1})
	rr = f.do(http.MethodPost, base+"/purchases", nil, "X-Request-ID", "dup-1")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(http.MethodPost, base+"/purchases", nil, "X-Request-ID", "dup-1")
	assert.Equal(t, http.StatusConflict, rr.Code)

	f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 1, Quantity: 1})
	rr = f.do(http.MethodPost, base+"/purchases", nil, "X-Request-ID", "dup-1")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAddToBasket_HugeQuantityRejected(t *testing.T) {
	f := newHTTPFixture(t)
	base := "/api/sessions/" + f.open(false)
	f.do(http.MethodGet, base+"/catalog", nil)

	rr := f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 1, Quantity: 1})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodPost, base+"/basket", AddToBasketHTTPRequest{GameID: 1, Quantity: math.MaxInt})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(http.MethodGet, base+"/basket", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	basket := decodeBody[BasketResponse](t, rr)
	require.Len(t, basket.Lines, 1)
	assert.Equal(t, 1, basket.Lines[0].Quantity)
	assert.Equal(t, "19.99", basket.Total)
}

func TestCatalogGenreFilterAndRemove(t *testing.T) {
	f := newHTTPFixture(t)
	base := "/api/sessions/" + f.open(true, adminTokenHeader, testAdminToken)

	rr := f.do(http.MethodGet, base+"/catalog?genre_id=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	catalog := decodeBody[struct {
		GenreID int64     `json:"genre_id"`
		Games   []GameDTO `json:"games"`
	}](t, rr)
	assert.Equal(t, int64(2), catalog.GenreID)
	require.Len(t, catalog.Games, 1)
	assert.Equal(t, 0, catalog.Games[0].Copies)

	rr = f.do(http.MethodGet, base+"/catalog?genre_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodDelete, base+"/basket/3", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(http.MethodDelete, base+"/basket/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCatalogManagement(t *testing.T) {
	f := newHTTPFixture(t)
	customer := "/api/sessions/" + f.open(false)
	manager := "/api/sessions/" + f.open(true, adminTokenHeader, testAdminToken)

	rr := f.do(http.MethodPost, customer+"/games", map[string]any{"name": "Quake", "price": "4.99"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(http.MethodPost, manager+"/games", map[string]any{"name": "Quake", "price": "4.99", "copies": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decodeBody[map[string]int64](t, rr)["id"]
	assert.Equal(t, "Quake", f.store.games[id].Name)

	rr = f.do(http.MethodPatch, manager+"/games/"+jsonNumber(id), map[string]any{"copies": 9})
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 9, f.store.games[id].Copies)

	rr = f.do(http.MethodPatch, manager+"/games/"+jsonNumber(id), map[string]any{"copies": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPatch, manager+"/games/999", map[string]any{"copies": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(http.MethodDelete, manager+"/games/"+jsonNumber(id), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(http.MethodPost, manager+"/genres", GenreHTTPRequest{Label: "Racing"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(http.MethodGet, "/api/genres", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]LabelDTO](t, rr), 3)

	rr = f.do(http.MethodGet, "/api/ratings", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodPatch, manager+"/genres/1", GenreHTTPRequest{Label: "Shooter"})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(http.MethodDelete, customer+"/genres/1", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStoreUnavailableMapsTo503(t *testing.T) {
	f := newHTTPFixture(t)
	base := "/api/sessions/" + f.open(false)

	f.store.err = errors.New("dial tcp: connection refused")
	rr := f.do(http.MethodGet, base+"/catalog", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = f.do(http.MethodGet, "/api/genres", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", decodeBody[ErrorHTTPResponse](t, rr).Error)
}

func TestInvalidBody(t *testing.T) {
	f := newHTTPFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

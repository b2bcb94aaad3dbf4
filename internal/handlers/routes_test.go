package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/core/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/SscSPs/book_lending_app/internal/handlers"
	"github.com/SscSPs/book_lending_app/internal/middleware"
	"github.com/SscSPs/book_lending_app/internal/platform/config"
	"github.com/SscSPs/book_lending_app/internal/repositories/memory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lendingAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newLendingAPI(t *testing.T) *lendingAPI {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		StorageDriver:      config.StorageDriverMemory,
		JWTSecret:          "routes-test-secret",
		JWTExpiryDuration:  time.Hour,
		JWTIssuer:          "test",
		RateLimit:          "1000-M",
		FinePolicyDefaults: domain.DefaultFinePolicy(),
		TxRetryAttempts:    2,
	}
	store := memory.NewStore()
	memory.SeedFixture(store)
	container := services.NewServiceContainer(cfg, memory.NewRepositoryProvider(store))

	r := gin.New()
	require.NoError(t, handlers.RegisterRoutes(r, cfg, container, memory.NewIdempotencyStore(time.Hour)))
	return &lendingAPI{t: t, router: r}
}

func (a *lendingAPI) call(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *lendingAPI) login(borrowerID string) string {
	w := a.call(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"borrowerID": borrowerID})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.LoginResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decodeBorrowing(t *testing.T, w *httptest.ResponseRecorder) dto.BorrowingResponse {
	var resp dto.BorrowingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestRoutes_Health(t *testing.T) {
	api := newLendingAPI(t)
	w := api.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRoutes_UnknownBorrowerCannotLogIn(t *testing.T) {
	api := newLendingAPI(t)
	w := api.call(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"borrowerID": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_BorrowApprovePayLifecycle(t *testing.T) {
	api := newLendingAPI(t)
	member := api.login("member-1")
	other := api.login("member-2")
	staff := api.login("staff-1")

	w := api.call(http.MethodPost, "/api/v1/borrowings", member, map[string]any{"itemID": "item-ddia", "mode": "INDIVIDUAL"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBorrowing(t, w)
	assert.Equal(t, "ACTIVE", created.Status)
	assert.Equal(t, "member-1", created.BorrowerID)
	require.NotNil(t, created.Item)
	assert.Equal(t, 0, created.Item.AvailableCopies)

	w = api.call(http.MethodPost, "/api/v1/borrowings", member, map[string]any{"itemID": "item-ddia", "mode": "INDIVIDUAL"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already borrowed")

	w = api.call(http.MethodPost, "/api/v1/borrowings", other, map[string]any{"itemID": "item-ddia", "mode": "INDIVIDUAL"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "out of stock")

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/return-request", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/return-request", member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "RETURN_REQUESTED", decodeBorrowing(t, w).Status)

	w = api.call(http.MethodGet, "/api/v1/returns/pending", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []dto.BorrowingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.BorrowingID, pending[0].BorrowingID)

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/approve", staff, map[string]any{"damageClassification": "LARGE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decodeBorrowing(t, w)
	assert.Equal(t, "RETURN_APPROVED", approved.Status)
	assert.True(t, approved.Fine.Equal(decimal.NewFromInt(225)), approved.Fine.String())
	require.Len(t, approved.FineBreakdown, 1)
	assert.Equal(t, "Large damage (50%)", approved.FineBreakdown[0].Label)
	assert.Contains(t, w.Body.String(), `"amount":225`)

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/approve", staff, map[string]any{"damageClassification": "NONE"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/pay", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decodeBorrowing(t, w)
	assert.Equal(t, "RETURNED", paid.Status)
	assert.True(t, paid.Fine.IsZero())
	assert.True(t, paid.SettledFee.Equal(decimal.NewFromInt(225)))

	w = api.call(http.MethodPost, "/api/v1/borrowings", other, map[string]any{"itemID": "item-ddia", "mode": "INDIVIDUAL"})
	assert.Equal(t, http.StatusCreated, w.Code, "the returned copy can be borrowed again")

	w = api.call(http.MethodGet, "/api/v1/items/item-ddia/open-borrowings", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"itemID":"item-ddia","open":1}`, w.Body.String())
}

func TestRoutes_GroupBorrowingAndDirectReturn(t *testing.T) {
	api := newLendingAPI(t)
	member := api.login("member-2")
	staff := api.login("staff-1")

	w := api.call(http.MethodPost, "/api/v1/borrowings", member, map[string]any{"itemID": "item-sicp", "mode": "GROUP", "groupID": "group-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBorrowing(t, w)
	assert.True(t, created.BorrowedAt.AddDate(0, 6, 0).Equal(created.DueDate))
	require.NotNil(t, created.Group)
	assert.Equal(t, "Reading Circle", created.Group.Name)

	w = api.call(http.MethodPost, "/api/v1/borrowings", staff, map[string]any{"itemID": "item-sicp", "mode": "GROUP", "groupID": "group-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "staff-1 is not in the group")

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/return", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	returned := decodeBorrowing(t, w)
	assert.Equal(t, "RETURNED", returned.Status)
	assert.Empty(t, returned.FineBreakdown)

	w = api.call(http.MethodPost, "/api/v1/borrowings/"+created.BorrowingID+"/return", staff, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRoutes_IdempotencyKey(t *testing.T) {
	api := newLendingAPI(t)
	member := api.login("member-1")

	body := map[string]any{"itemID": "item-go", "mode": "INDIVIDUAL"}
	w := api.call(http.MethodPost, "/api/v1/borrowings", member, body, middleware.IdempotencyKeyHeader, "retry-1")
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.call(http.MethodPost, "/api/v1/borrowings", member, body, middleware.IdempotencyKeyHeader, "retry-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate request")
}

func TestRoutes_FinePolicy(t *testing.T) {
	api := newLendingAPI(t)
	member := api.login("member-1")
	staff := api.login("staff-1")

	w := api.call(http.MethodGet, "/api/v1/fine-policy", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var policy domain.FinePolicy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &policy))
	assert.True(t, policy.LateFeePerDay.Equal(decimal.NewFromInt(50)))

	update := map[string]any{
		"lateFeePerDay": "20", "missingOrLostMultiplier": "3",
		"smallDamageFraction": "0.25", "largeDamageFraction": "0.75",
	}
	w = api.call(http.MethodPut, "/api/v1/fine-policy", staff, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	update["largeDamageFraction"] = "-1"
	w = api.call(http.MethodPut, "/api/v1/fine-policy", staff, update)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.call(http.MethodGet, "/api/v1/fine-policy", member, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &policy))
	assert.True(t, policy.SmallDamageFraction.Equal(decimal.RequireFromString("0.25")))
}

func TestRoutes_RequireToken(t *testing.T) {
	api := newLendingAPI(t)
	w := api.call(http.MethodGet, "/api/v1/borrowings/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

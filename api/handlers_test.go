package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage/order-engine/api"
	"github.com/vantage/order-engine/finance/store"
	"github.com/vantage/order-engine/logger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	handler := api.NewHandler(api.Stores{
		Orders:    mem,
		Accounts:  mem,
		Records:   mem,
		Credits:   mem,
		Snapshots: mem,
	}, logger.Nop())

	srv := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp, decoded
}

func createAccount(t *testing.T, srv *httptest.Server, id, accType string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", map[string]any{
		"id": id, "name": "Account " + id, "type": accType,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func createOrder(t *testing.T, srv *httptest.Server, estimated string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"receipt": "R01042", "client_id": "cli-1", "estimated_total": estimated,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// =============================================================================
// ORDERS AND PAYMENTS OVER HTTP
// =============================================================================

func TestAPI_CreateAndGetOrder(t *testing.T) {
	srv := newTestServer(t)
	id := createOrder(t, srv, "150.00")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/orders/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "R01042", body["receipt"])
	assert.Equal(t, "150.00", body["estimated_total"])
	assert.Equal(t, "150.00", body["pending"])
	assert.Equal(t, "ordered", body["status"])
	assert.Equal(t, "owing", body["settlement"])
}

func TestAPI_RegisterPayment(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")
	id := createOrder(t, srv, "150.00")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "50", "method": "cash", "created_by": "ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "50.00", body["payment_portion"])
	assert.Equal(t, "0.00", body["credit_portion"])

	order := body["order"].(map[string]any)
	assert.Equal(t, "100.00", order["pending"])

	// The cash register reflects the payment.
	resp, acct := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/acc-cash", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50.00", acct["balance"])
}

func TestAPI_OverpaymentReturnsCredit(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")
	id := createOrder(t, srv, "150.00")

	doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "50", "method": "cash",
	})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "120", "method": "cash",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "100.00", body["payment_portion"])
	assert.Equal(t, "20.00", body["credit_portion"])
	require.NotNil(t, body["credit"])

	// The credit is visible under the client.
	resp, credits := doJSON(t, http.MethodGet, srv.URL+"/api/clients/cli-1/credits", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "20.00", credits["total"])

	// And the audit stays clean.
	resp, audit := doJSON(t, http.MethodGet, srv.URL+"/api/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, audit["clean"])
}

func TestAPI_ReceiveGeneratesCredit(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")
	id := createOrder(t, srv, "50.00")

	doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "40", "method": "cash",
	})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/receive", map[string]any{
		"real_invoice_total": "30", "invoice_number": "INV-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "CREDIT", body["adjustment_kind"])
	assert.Equal(t, "10.00", body["credit_generated"])

	order := body["order"].(map[string]any)
	assert.Equal(t, "received", order["status"])
	assert.Equal(t, "30.00", order["effective_total"])
}

func TestAPI_RevertPayment(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")
	id := createOrder(t, srv, "150.00")

	_, payment := doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "50", "method": "cash",
	})
	paymentID := payment["payment"].(map[string]any)["id"].(string)

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/orders/"+id+"/payments/"+paymentID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	order := body["order"].(map[string]any)
	assert.Equal(t, "150.00", order["pending"])

	resp, acct := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/acc-cash", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.00", acct["balance"])
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")
	id := createOrder(t, srv, "100.00")

	// Unknown order -> 404
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Payment beyond pending -> 404/400 split: unknown account first
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-404", "amount": "50", "method": "cash",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Missing reference on a transfer -> 400
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "50", "method": "transfer",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Validation failure (unknown method) -> 400
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "50", "method": "bitcoin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Deliver before receive -> 400
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/deliver", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// CLOSURES
// =============================================================================

func TestAPI_ClosureFlow(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")
	id := createOrder(t, srv, "150.00")

	doJSON(t, http.MethodPost, srv.URL+"/api/orders/"+id+"/payments", map[string]any{
		"account_id": "acc-cash", "amount": "50", "method": "cash", "created_by": "ana",
	})

	// Close over a wide range that certainly contains "now".
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/closures", map[string]any{
		"from": "2020-01-01", "to": "2099-12-31", "generated_by": "ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "50.00", body["total_income"])
	assert.Equal(t, "50.00", body["net"])
	closureID := body["id"].(string)

	resp, full := doJSON(t, http.MethodGet, srv.URL+"/api/closures/"+closureID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	source := full["income_by_source"].(map[string]any)
	assert.Equal(t, "50.00", source["initial_payments"])

	resp, list := doJSON(t, http.MethodGet, srv.URL+"/api/closures", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = list // listing decodes as an array; status is what matters here
}

// =============================================================================
// MANUAL RECORDS
// =============================================================================

func TestAPI_ManualExpense(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "acc-cash", "CASH")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/records", map[string]any{
		"direction": "EXPENSE", "amount": "35", "account_id": "acc-cash",
		"method": "cash", "notes": "courier", "created_by": "ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "EXPENSE", body["type"])

	resp, records := doJSON(t, http.MethodGet, srv.URL+"/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "35.00", records["total_expense"])

	// The expense drains the register, and the ledger agrees.
	resp, acct := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/acc-cash", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "-35.00", acct["balance"])

	resp, audit := doJSON(t, http.MethodGet, srv.URL+"/api/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, audit["clean"])
}

func TestAPI_ManualRecordUnknownAccount(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/records", map[string]any{
		"direction": "EXPENSE", "amount": "35", "account_id": "acc-404",
		"method": "cash", "created_by": "ana",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

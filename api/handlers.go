/*
handlers.go - HTTP API handlers for the order finance engine

PURPOSE:
  Exposes orders, payments, accounts, the financial ledger, cash closures
  and the balance audit via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Orders:
    GET    /api/orders                       List all orders
    POST   /api/orders                       Create order
    GET    /api/orders/{id}                  Get order with payments
    POST   /api/orders/{id}/payments         Register payment
    PUT    /api/orders/{id}/payments/{pid}   Edit payment amount
    DELETE /api/orders/{id}/payments/{pid}   Revert payment
    POST   /api/orders/{id}/receive          Mark received (real invoice)
    POST   /api/orders/{id}/deliver          Mark delivered
    POST   /api/orders/{id}/cancel           Cancel order

  Accounts:
    GET    /api/accounts                     List accounts
    POST   /api/accounts                     Create account
    GET    /api/accounts/{id}                Get account

  Ledger:
    GET    /api/records                      List records (filterable)
    POST   /api/records                      Create manual record
    GET    /api/clients/{id}/credits         List a client's credits

  Closures:
    GET    /api/closures                     List closure snapshots
    POST   /api/closures                     Generate a closure
    GET    /api/closures/{id}                Get full snapshot

  Audit:
    GET    /api/audit                        Run the balance audit

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, domain rule violations
  - 404: Resource not found
  - 409: Ledger inconsistency detected
  - 500: Internal errors
  The mapping goes through finance.IsClientError / IsNotFound /
  IsInconsistency, so handlers never inspect concrete error types.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - payments/service.go: Payment orchestration these handlers call
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
	"github.com/vantage/order-engine/payments"
)

const (
	timeFormat = time.RFC3339
	dateFormat = "2006-01-02"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Orders    orders.Repository
	Accounts  finance.AccountRepository
	Records   finance.RecordRepository
	Credits   finance.CreditRepository
	Snapshots finance.SnapshotRepository

	Payments *payments.Service
	Closure  *finance.ClosureService
	Auditor  *finance.Auditor

	validate *validator.Validate
	log      zerolog.Logger
}

// Stores bundles the repositories a Handler needs; a single *sqlite.Store
// (or the in-memory store) satisfies every field.
type Stores struct {
	Orders    orders.Repository
	Accounts  finance.AccountRepository
	Records   finance.RecordRepository
	Credits   finance.CreditRepository
	Snapshots finance.SnapshotRepository
}

// NewHandler wires the handler and its domain services.
func NewHandler(s Stores, log zerolog.Logger) *Handler {
	return &Handler{
		Orders:    s.Orders,
		Accounts:  s.Accounts,
		Records:   s.Records,
		Credits:   s.Credits,
		Snapshots: s.Snapshots,
		Payments:  payments.NewService(s.Orders, s.Accounts, s.Records, s.Credits, log),
		Closure:   finance.NewClosureService(s.Records, s.Accounts, s.Snapshots),
		Auditor:   finance.NewAuditor(s.Accounts, s.Records),
		validate:  validator.New(),
		log:       log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns all orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	all, err := h.Orders.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, len(all))
	for i, o := range all {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns a single order with its payments.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := finance.OrderID(chi.URLParam(r, "id"))

	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get order", err)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// CreateOrder registers a new order in status "ordered".
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	estimated, err := decimal.NewFromString(req.EstimatedTotal)
	if err != nil || !estimated.IsPositive() {
		writeError(w, http.StatusBadRequest, "estimated_total must be a positive decimal string", err)
		return
	}

	order := orders.Order{
		ID:             finance.OrderID(uuid.NewString()),
		Receipt:        req.Receipt,
		ClientID:       finance.ClientID(req.ClientID),
		Description:    req.Description,
		EstimatedTotal: estimated,
		Status:         orders.StatusOrdered,
		CreatedAt:      time.Now(),
	}

	if err := h.Orders.Save(r.Context(), order); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create order", err)
		return
	}

	h.log.Info().Str("order", string(order.ID)).Str("receipt", order.Receipt).Msg("order created")
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

// ReceiveOrder marks the order received and settles the real invoice total
// against what was paid so far.
func (h *Handler) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	id := finance.OrderID(chi.URLParam(r, "id"))

	var req ReceiveOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	realTotal, err := decimal.NewFromString(req.RealInvoiceTotal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "real_invoice_total must be a decimal string", err)
		return
	}

	result, err := h.Payments.ApplyReception(r.Context(), id, realTotal, req.InvoiceNumber, req.ReceivedBy)
	if err != nil {
		writeDomainError(w, "Failed to receive order", err)
		return
	}

	resp := ReceptionResponse{
		Order:          toOrderDTO(result.Order),
		AdjustmentKind: string(result.Adjustment.Kind),
		NewPending:     result.Adjustment.NewPending.StringFixed(2),
	}
	if result.Adjustment.Kind == orders.AdjustmentCredit {
		resp.CreditGenerated = result.Adjustment.CreditGenerated.StringFixed(2)
	}
	if result.Adjustment.Kind == orders.AdjustmentAdditionalPayment {
		resp.AdditionalPaymentNeeded = result.Adjustment.AdditionalPaymentNeeded.StringFixed(2)
	}
	if result.Credit != nil {
		dto := toCreditDTO(*result.Credit)
		resp.Credit = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeliverOrder marks a received order as delivered.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, func(ledger *orders.Ledger, o orders.Order) (orders.Order, error) {
		return ledger.DeliverOrder(o)
	})
}

// CancelOrder cancels an order that was never received.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, func(ledger *orders.Ledger, o orders.Order) (orders.Order, error) {
		return ledger.CancelOrder(o)
	})
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request, fn func(*orders.Ledger, orders.Order) (orders.Order, error)) {
	id := finance.OrderID(chi.URLParam(r, "id"))

	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get order", err)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}

	updated, err := fn(orders.NewLedger(), *order)
	if err != nil {
		writeDomainError(w, "Transition rejected", err)
		return
	}
	if err := h.Orders.Save(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(updated))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RegisterPayment adds a payment to an order. Any amount beyond the pending
// balance turns into a client credit rather than failing.
func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	orderID := finance.OrderID(chi.URLParam(r, "id"))

	var req RegisterPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
		return
	}

	result, err := h.Payments.RegisterPayment(r.Context(), payments.RegisterPaymentInput{
		OrderID:   orderID,
		AccountID: finance.AccountID(req.AccountID),
		Amount:    amount,
		Method:    finance.PaymentMethod(req.Method),
		Reference: req.Reference,
		Notes:     req.Notes,
		Actor:     req.CreatedBy,
	})
	if err != nil {
		writeDomainError(w, "Failed to register payment", err)
		return
	}

	resp := RegisterPaymentResponse{
		Order:          toOrderDTO(result.Order),
		PaymentPortion: result.PaymentPortion.StringFixed(2),
		CreditPortion:  result.CreditPortion.StringFixed(2),
	}
	if result.Payment != nil {
		dto := toPaymentDTO(*result.Payment)
		resp.Payment = &dto
	}
	if result.Credit != nil {
		dto := toCreditDTO(*result.Credit)
		resp.Credit = &dto
	}
	writeJSON(w, http.StatusCreated, resp)
}

// EditPayment changes the amount of an existing payment.
func (h *Handler) EditPayment(w http.ResponseWriter, r *http.Request) {
	orderID := finance.OrderID(chi.URLParam(r, "id"))
	paymentID := finance.PaymentID(chi.URLParam(r, "pid"))

	var req EditPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string", err)
		return
	}

	order, err := h.Payments.EditPayment(r.Context(), orderID, paymentID, amount)
	if err != nil {
		writeDomainError(w, "Failed to edit payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// RevertPayment removes a payment and reverses its ledger record.
func (h *Handler) RevertPayment(w http.ResponseWriter, r *http.Request) {
	orderID := finance.OrderID(chi.URLParam(r, "id"))
	paymentID := finance.PaymentID(chi.URLParam(r, "pid"))

	result, err := h.Payments.RevertPayment(r.Context(), orderID, paymentID)
	if err != nil {
		writeDomainError(w, "Failed to revert payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order":    toOrderDTO(result.Order),
		"reverted": toPaymentDTO(result.Reverted),
	})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all money accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := finance.AccountID(chi.URLParam(r, "id"))

	account, err := h.Accounts.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get account", err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// CreateAccount registers a cash register or bank account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		balance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "initial_balance must be a decimal string", err)
			return
		}
	}

	account := finance.Account{
		ID:        finance.AccountID(req.ID),
		Name:      req.Name,
		Type:      finance.AccountType(req.Type),
		Balance:   balance,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := h.Accounts.SaveAccount(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListRecords returns financial records, filterable via query params:
// account_id, client_id, order_id, from, to (YYYY-MM-DD), include_deleted.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := finance.RecordFilter{
		AccountID:      finance.AccountID(q.Get("account_id")),
		ClientID:       finance.ClientID(q.Get("client_id")),
		OrderID:        finance.OrderID(q.Get("order_id")),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
			return
		}
		// Make "to" inclusive of the whole day.
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}

	records, err := h.Records.ListRecords(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}

	summary := finance.SummarizeCashFlow(records)
	writeJSON(w, http.StatusOK, map[string]any{
		"records":       dtos,
		"total_income":  summary.TotalIncome.StringFixed(2),
		"total_expense": summary.TotalExpense.StringFixed(2),
		"net":           summary.Net.StringFixed(2),
	})
}

// CreateManualRecord creates an out-of-band ledger entry, typically an
// expense or a correction that has no order behind it.
func (h *Handler) CreateManualRecord(w http.ResponseWriter, r *http.Request) {
	var req ManualRecordRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal string", err)
		return
	}

	record, err := h.Payments.RecordManualMovement(r.Context(), finance.ManualRecordInput{
		Direction: finance.Direction(req.Direction),
		Amount:    amount,
		AccountID: finance.AccountID(req.AccountID),
		Method:    finance.PaymentMethod(req.Method),
		Notes:     req.Notes,
		Actor:     req.CreatedBy,
	})
	if err != nil {
		writeDomainError(w, "Failed to create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(record))
}

// ListClientCredits returns a client's credits.
func (h *Handler) ListClientCredits(w http.ResponseWriter, r *http.Request) {
	clientID := finance.ClientID(chi.URLParam(r, "id"))

	credits, err := h.Credits.GetByClient(r.Context(), clientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list credits", err)
		return
	}

	total := decimal.Zero
	dtos := make([]CreditDTO, len(credits))
	for i, c := range credits {
		dtos[i] = toCreditDTO(c)
		total = total.Add(c.Amount)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"credits": dtos,
		"total":   total.StringFixed(2),
	})
}

// =============================================================================
// CLOSURE HANDLERS
// =============================================================================

// ListClosures returns closure snapshot summaries, newest first.
func (h *Handler) ListClosures(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Snapshots.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list closures", err)
		return
	}

	dtos := make([]ClosureSummaryDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = toClosureSummaryDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClosure returns the full snapshot with breakdowns and movements.
func (h *Handler) GetClosure(w http.ResponseWriter, r *http.Request) {
	id := finance.SnapshotID(chi.URLParam(r, "id"))

	snap, err := h.Snapshots.GetSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get closure", err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "Closure not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toClosureDTO(*snap))
}

// CreateClosure generates and persists a closure snapshot for a date range.
func (h *Handler) CreateClosure(w http.ResponseWriter, r *http.Request) {
	var req CloseRequest
	if !h.decode(w, r, &req) {
		return
	}

	from, err := time.Parse(dateFormat, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
		return
	}
	to, err := time.Parse(dateFormat, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not precede from", nil)
		return
	}

	snap, err := h.Closure.Close(r.Context(), from, to, req.Notes, req.GeneratedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build closure", err)
		return
	}

	h.log.Info().Str("closure", string(snap.ID)).
		Str("from", req.From).Str("to", req.To).
		Str("net", snap.Net.StringFixed(2)).
		Msg("closure generated")
	writeJSON(w, http.StatusCreated, toClosureDTO(snap))
}

// =============================================================================
// AUDIT HANDLER
// =============================================================================

// RunAudit compares each account's stored balance with the balance the
// ledger implies and reports discrepancies.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.Auditor.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run audit", err)
		return
	}
	if report.HasDiscrepancies() {
		h.log.Warn().Int("discrepancies", report.Discrepancies).Msg("balance audit found drift")
	}
	writeJSON(w, http.StatusOK, toAuditReportDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. On failure it writes the
// error response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	case finance.IsInconsistency(err):
		writeError(w, http.StatusConflict, msg, err)
	case finance.IsClientError(err):
		writeError(w, http.StatusBadRequest, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := map[string]any{"error": message}
	if err != nil {
		resp["detail"] = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All money fields cross the wire as JSON strings ("150.00"), never floats.
  decimal.Decimal marshals to a string with its MarshalJSON; requests parse
  amounts with decimal.NewFromString in the handlers.

VALIDATION:
  Request types carry validator/v10 struct tags; handlers run them through
  a shared *validator.Validate before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - finance/types.go: Domain model these map from
*/
package api

import (
	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateOrderRequest is the request to register a new order.
type CreateOrderRequest struct {
	Receipt        string `json:"receipt" validate:"required"`
	ClientID       string `json:"client_id" validate:"required"`
	Description    string `json:"description"`
	EstimatedTotal string `json:"estimated_total" validate:"required"`
	CreatedBy      string `json:"created_by"`
}

// RegisterPaymentRequest is the request to add a payment to an order.
type RegisterPaymentRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Method    string `json:"method" validate:"required,oneof=cash card transfer check"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	CreatedBy string `json:"created_by"`
}

// EditPaymentRequest changes the amount of an existing payment.
type EditPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// ReceiveOrderRequest marks an order as received with its real invoice total.
type ReceiveOrderRequest struct {
	RealInvoiceTotal string `json:"real_invoice_total" validate:"required"`
	InvoiceNumber    string `json:"invoice_number"`
	ReceivedBy       string `json:"received_by"`
}

// CreateAccountRequest registers a cash register or bank account.
type CreateAccountRequest struct {
	ID             string `json:"id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=CASH BANK"`
	InitialBalance string `json:"initial_balance"`
}

// ManualRecordRequest creates an out-of-band ledger entry (e.g. an expense).
type ManualRecordRequest struct {
	Direction string `json:"direction" validate:"required,oneof=INCOME EXPENSE"`
	Amount    string `json:"amount" validate:"required"`
	AccountID string `json:"account_id"`
	Method    string `json:"method" validate:"omitempty,oneof=cash card transfer check"`
	Notes     string `json:"notes"`
	CreatedBy string `json:"created_by"`
}

// CloseRequest generates a cash closure snapshot over a date range.
type CloseRequest struct {
	From        string `json:"from" validate:"required"`
	To          string `json:"to" validate:"required"`
	Notes       string `json:"notes"`
	GeneratedBy string `json:"generated_by"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PaymentDTO represents one order payment in API responses.
type PaymentDTO struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	AccountID string `json:"account_id"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

// OrderDTO represents an order with its derived money figures.
type OrderDTO struct {
	ID               string       `json:"id"`
	Receipt          string       `json:"receipt"`
	ClientID         string       `json:"client_id"`
	Description      string       `json:"description,omitempty"`
	EstimatedTotal   string       `json:"estimated_total"`
	RealInvoiceTotal string       `json:"real_invoice_total,omitempty"`
	InvoiceNumber    string       `json:"invoice_number,omitempty"`
	EffectiveTotal   string       `json:"effective_total"`
	Paid             string       `json:"paid"`
	Pending          string       `json:"pending"`
	Settlement       string       `json:"settlement"`
	Status           string       `json:"status"`
	Payments         []PaymentDTO `json:"payments"`
	CreatedAt        string       `json:"created_at"`
	ReceivedAt       string       `json:"received_at,omitempty"`
	DeliveredAt      string       `json:"delivered_at,omitempty"`
	CancelledAt      string       `json:"cancelled_at,omitempty"`
}

// AccountDTO represents a money account.
type AccountDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
	Active  bool   `json:"active"`
}

// RecordDTO represents one financial record.
type RecordDTO struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Source         string `json:"source"`
	Direction      string `json:"direction"`
	Amount         string `json:"amount"`
	Reference      string `json:"reference"`
	Method         string `json:"method,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	PaymentID      string `json:"payment_id,omitempty"`
	AccountID      string `json:"account_id,omitempty"`
	InitialPayment bool   `json:"initial_payment"`
	Notes          string `json:"notes,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
	CreatedAt      string `json:"created_at"`
	Deleted        bool   `json:"deleted,omitempty"`
}

// CreditDTO represents a client credit.
type CreditDTO struct {
	ID             string `json:"id"`
	ClientID       string `json:"client_id"`
	Amount         string `json:"amount"`
	OriginRecordID string `json:"origin_record_id"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// RegisterPaymentResponse reports how a registered amount was split.
type RegisterPaymentResponse struct {
	Order          OrderDTO   `json:"order"`
	Payment        *PaymentDTO `json:"payment,omitempty"`
	PaymentPortion string     `json:"payment_portion"`
	CreditPortion  string     `json:"credit_portion"`
	Credit         *CreditDTO `json:"credit,omitempty"`
}

// ReceptionResponse reports the settlement computed at reception.
type ReceptionResponse struct {
	Order                   OrderDTO   `json:"order"`
	AdjustmentKind          string     `json:"adjustment_kind"`
	NewPending              string     `json:"new_pending"`
	CreditGenerated         string     `json:"credit_generated,omitempty"`
	AdditionalPaymentNeeded string     `json:"additional_payment_needed,omitempty"`
	Credit                  *CreditDTO `json:"credit,omitempty"`
}

// AuditRowDTO is one account's audit comparison.
type AuditRowDTO struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Type        string `json:"type"`
	Reported    string `json:"reported"`
	Calculated  string `json:"calculated"`
	Difference  string `json:"difference"`
	Discrepant  bool   `json:"discrepant"`
}

// AuditReportDTO is the full balance audit result.
type AuditReportDTO struct {
	Rows          []AuditRowDTO `json:"rows"`
	Discrepancies int           `json:"discrepancies"`
	Clean         bool          `json:"clean"`
	RanAt         string        `json:"ran_at"`
}

// ClosureSummaryDTO is the listing view of a closure snapshot (no detail).
type ClosureSummaryDTO struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	To           string `json:"to"`
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	Net          string `json:"net"`
	GeneratedBy  string `json:"generated_by,omitempty"`
	GeneratedAt  string `json:"generated_at"`
}

// ClosureDTO is the full snapshot with breakdowns.
type ClosureDTO struct {
	ClosureSummaryDTO

	Accounts []ClosureAccountDTO `json:"accounts"`
	IncomeBySource struct {
		InitialPayments string `json:"initial_payments"`
		LaterPayments   string `json:"later_payments"`
		Adjustments     string `json:"adjustments"`
		Manual          string `json:"manual"`
	} `json:"income_by_source"`
	IncomeByMethod map[string]string `json:"income_by_method"`
	ByUser         []UserActivityDTO `json:"by_user"`
	Movements      []RecordDTO       `json:"movements"`
	Notes          string            `json:"notes,omitempty"`
}

// ClosureAccountDTO is one account's movement inside a closure.
type ClosureAccountDTO struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Type        string `json:"type"`
	Movement    string `json:"movement"`
	Reported    string `json:"reported"`
}

// UserActivityDTO is one user's movement summary inside a closure.
type UserActivityDTO struct {
	User  string `json:"user"`
	Count int    `json:"count"`
	Total string `json:"total"`
}

// =============================================================================
// DOMAIN -> DTO CONVERSIONS
// =============================================================================

func toPaymentDTO(p orders.Payment) PaymentDTO {
	return PaymentDTO{
		ID:        string(p.ID),
		Amount:    p.Amount.StringFixed(2),
		AccountID: string(p.AccountID),
		Method:    string(p.Method),
		Reference: p.Reference,
		Notes:     p.Notes,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt.Format(timeFormat),
	}
}

func toOrderDTO(o orders.Order) OrderDTO {
	dto := OrderDTO{
		ID:             string(o.ID),
		Receipt:        o.Receipt,
		ClientID:       string(o.ClientID),
		Description:    o.Description,
		EstimatedTotal: o.EstimatedTotal.StringFixed(2),
		InvoiceNumber:  o.InvoiceNumber,
		EffectiveTotal: o.EffectiveTotal().StringFixed(2),
		Paid:           o.PaidAmount().StringFixed(2),
		Pending:        o.PendingAmount().StringFixed(2),
		Settlement:     string(o.Settlement().Kind),
		Status:         string(o.Status),
		Payments:       make([]PaymentDTO, 0, len(o.Payments)),
		CreatedAt:      o.CreatedAt.Format(timeFormat),
	}
	if o.RealInvoiceTotal != nil {
		dto.RealInvoiceTotal = o.RealInvoiceTotal.StringFixed(2)
	}
	if o.ReceivedAt != nil {
		dto.ReceivedAt = o.ReceivedAt.Format(timeFormat)
	}
	if o.DeliveredAt != nil {
		dto.DeliveredAt = o.DeliveredAt.Format(timeFormat)
	}
	if o.CancelledAt != nil {
		dto.CancelledAt = o.CancelledAt.Format(timeFormat)
	}
	for _, p := range o.Payments {
		dto.Payments = append(dto.Payments, toPaymentDTO(p))
	}
	return dto
}

func toAccountDTO(a finance.Account) AccountDTO {
	return AccountDTO{
		ID:      string(a.ID),
		Name:    a.Name,
		Type:    string(a.Type),
		Balance: a.Balance.StringFixed(2),
		Active:  a.Active,
	}
}

func toRecordDTO(r finance.FinancialRecord) RecordDTO {
	return RecordDTO{
		ID:             string(r.ID),
		Type:           string(r.Type),
		Source:         string(r.Source),
		Direction:      string(r.Direction),
		Amount:         r.Amount.StringFixed(2),
		Reference:      r.Reference,
		Method:         string(r.Method),
		ClientID:       string(r.ClientID),
		OrderID:        string(r.OrderID),
		PaymentID:      string(r.PaymentID),
		AccountID:      string(r.AccountID),
		InitialPayment: r.InitialPayment,
		Notes:          r.Notes,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt.Format(timeFormat),
		Deleted:        r.Deleted,
	}
}

func toCreditDTO(c finance.ClientCredit) CreditDTO {
	return CreditDTO{
		ID:             string(c.ID),
		ClientID:       string(c.ClientID),
		Amount:         c.Amount.StringFixed(2),
		OriginRecordID: string(c.OriginRecordID),
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt.Format(timeFormat),
	}
}

func toClosureSummaryDTO(s finance.ClosureSnapshot) ClosureSummaryDTO {
	return ClosureSummaryDTO{
		ID:           string(s.ID),
		From:         s.From.Format(dateFormat),
		To:           s.To.Format(dateFormat),
		TotalIncome:  s.TotalIncome.StringFixed(2),
		TotalExpense: s.TotalExpense.StringFixed(2),
		Net:          s.Net.StringFixed(2),
		GeneratedBy:  s.GeneratedBy,
		GeneratedAt:  s.GeneratedAt.Format(timeFormat),
	}
}

func toClosureDTO(s finance.ClosureSnapshot) ClosureDTO {
	dto := ClosureDTO{
		ClosureSummaryDTO: toClosureSummaryDTO(s),
		IncomeByMethod:    make(map[string]string, len(s.IncomeByMethod)),
		Notes:             s.Notes,
	}
	dto.IncomeBySource.InitialPayments = s.IncomeBySource.InitialPayments.StringFixed(2)
	dto.IncomeBySource.LaterPayments = s.IncomeBySource.LaterPayments.StringFixed(2)
	dto.IncomeBySource.Adjustments = s.IncomeBySource.Adjustments.StringFixed(2)
	dto.IncomeBySource.Manual = s.IncomeBySource.Manual.StringFixed(2)
	for _, a := range s.Accounts {
		dto.Accounts = append(dto.Accounts, ClosureAccountDTO{
			AccountID:   string(a.AccountID),
			AccountName: a.AccountName,
			Type:        string(a.Type),
			Movement:    a.Movement.StringFixed(2),
			Reported:    a.Reported.StringFixed(2),
		})
	}
	for method, amount := range s.IncomeByMethod {
		dto.IncomeByMethod[string(method)] = amount.StringFixed(2)
	}
	for _, u := range s.ByUser {
		dto.ByUser = append(dto.ByUser, UserActivityDTO{
			User:  u.User,
			Count: u.Count,
			Total: u.Total.StringFixed(2),
		})
	}
	for _, m := range s.Movements {
		dto.Movements = append(dto.Movements, toRecordDTO(m))
	}
	return dto
}

func toAuditReportDTO(report finance.AuditReport) AuditReportDTO {
	dto := AuditReportDTO{
		Rows:          make([]AuditRowDTO, 0, len(report.Rows)),
		Discrepancies: report.Discrepancies,
		Clean:         !report.HasDiscrepancies(),
		RanAt:         report.RanAt.Format(timeFormat),
	}
	for _, row := range report.Rows {
		dto.Rows = append(dto.Rows, AuditRowDTO{
			AccountID:   string(row.AccountID),
			AccountName: row.AccountName,
			Type:        string(row.Type),
			Reported:    row.Reported.StringFixed(2),
			Calculated:  row.Calculated.StringFixed(2),
			Difference:  row.Difference.StringFixed(2),
			Discrepant:  row.Discrepant,
		})
	}
	return dto
}

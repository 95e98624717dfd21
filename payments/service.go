/*
Package payments orchestrates a payment across order, ledger, account
balance, and client-credit creation.

PURPOSE:
  The only component that talks to multiple repositories inside one logical
  operation. There is no shared database transaction: the record, order,
  and account writes are three independent calls, sequenced here with
  compensating writes on failure.

FAILURE MODEL:
  - Validation errors reject before any write.
  - Structural errors (missing order/account/payment) abort with no writes.
  - Mid-sequence failures trigger best-effort compensation. If the
    compensation itself fails, the operation surfaces an InconsistencyError
    (wrapping ErrInconsistentLedger) instead of silently succeeding; the
    drift then shows up in the balance audit.

OVERPAYMENT POLICY:
  RegisterPayment accepts amounts beyond the order's pending balance and
  converts the excess into a client credit, keyed by the adjustment record
  it emits. Credit creation is idempotent on that origin record id.

SEE ALSO:
  - orders/ledger.go: the pure primitives this service sequences
  - finance/audit.go: how leftover drift becomes visible
*/
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vantage/order-engine/finance"
	"github.com/vantage/order-engine/orders"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Orders   orders.Repository
	Accounts finance.AccountRepository
	Records  finance.RecordRepository
	Credits  finance.CreditRepository

	factory *finance.RecordFactory
	ledger  *orders.Ledger
	log     zerolog.Logger
}

func NewService(orderRepo orders.Repository, accounts finance.AccountRepository, records finance.RecordRepository, credits finance.CreditRepository, log zerolog.Logger) *Service {
	return &Service{
		Orders:   orderRepo,
		Accounts: accounts,
		Records:  records,
		Credits:  credits,
		factory:  finance.NewRecordFactory(),
		ledger:   orders.NewLedger(),
		log:      log.With().Str("component", "payments").Logger(),
	}
}

// WithFactory swaps the record factory (deterministic tests).
func (s *Service) WithFactory(f *finance.RecordFactory) *Service { s.factory = f; return s }

// WithLedger swaps the order ledger (deterministic tests).
func (s *Service) WithLedger(l *orders.Ledger) *Service { s.ledger = l; return s }

// =============================================================================
// REGISTER PAYMENT
// =============================================================================

type RegisterPaymentInput struct {
	OrderID   finance.OrderID
	AccountID finance.AccountID
	Amount    decimal.Decimal
	Method    finance.PaymentMethod
	Reference string
	Notes     string
	Actor     string
}

type RegisterPaymentResult struct {
	Order orders.Order

	// Payment and PaymentRecord are nil when the whole amount became credit.
	Payment       *orders.Payment
	PaymentRecord *finance.FinancialRecord

	// CreditRecord and Credit are nil when nothing exceeded pending.
	CreditRecord *finance.FinancialRecord
	Credit       *finance.ClientCredit

	PaymentPortion decimal.Decimal
	CreditPortion  decimal.Decimal
}

// RegisterPayment validates, splits the amount into a payment portion and a
// credit portion, and sequences the writes.
//
// Write order for the payment portion: financial record, then order, then
// account balance. Each later failure compensates the earlier writes; a
// failed compensation surfaces InconsistencyError.
func (s *Service) RegisterPayment(ctx context.Context, in RegisterPaymentInput) (RegisterPaymentResult, error) {
	if !in.Amount.IsPositive() {
		return RegisterPaymentResult{}, finance.ErrInvalidAmount
	}
	if in.Method != finance.MethodCash && in.Reference == "" {
		return RegisterPaymentResult{}, finance.ErrMissingReference
	}

	order, err := s.Orders.Get(ctx, in.OrderID)
	if err != nil {
		return RegisterPaymentResult{}, err
	}
	if order == nil {
		return RegisterPaymentResult{}, finance.ErrOrderNotFound
	}
	account, err := s.Accounts.GetAccount(ctx, in.AccountID)
	if err != nil {
		return RegisterPaymentResult{}, err
	}
	if account == nil {
		return RegisterPaymentResult{}, finance.ErrAccountNotFound
	}

	pending := order.PendingAmount()
	available := decimal.Max(pending, decimal.Zero)
	paymentPortion := decimal.Min(in.Amount, available)
	creditPortion := in.Amount.Sub(paymentPortion)

	result := RegisterPaymentResult{
		Order:          *order,
		PaymentPortion: paymentPortion,
		CreditPortion:  creditPortion,
	}

	if paymentPortion.IsPositive() {
		updated, err := s.applyPaymentPortion(ctx, *order, *account, paymentPortion, in, &result)
		if err != nil {
			return RegisterPaymentResult{}, err
		}
		result.Order = updated
		order = &updated
	}

	if creditPortion.GreaterThan(finance.Epsilon) {
		if err := s.applyCreditPortion(ctx, *order, creditPortion, in.Actor, &result); err != nil {
			return RegisterPaymentResult{}, err
		}
	}

	s.log.Info().
		Str("order", string(in.OrderID)).
		Str("amount", in.Amount.StringFixed(2)).
		Str("payment_portion", paymentPortion.StringFixed(2)).
		Str("credit_portion", creditPortion.StringFixed(2)).
		Msg("payment registered")
	return result, nil
}

// applyPaymentPortion performs the record -> order -> account write chain.
func (s *Service) applyPaymentPortion(ctx context.Context, order orders.Order, account finance.Account, amount decimal.Decimal, in RegisterPaymentInput, result *RegisterPaymentResult) (orders.Order, error) {
	initial := len(order.Payments) == 0

	updatedOrder, updatedAccount, payment, err := s.ledger.AddPayment(order, account, amount, orders.AddPaymentInput{
		Method:    in.Method,
		Reference: in.Reference,
		Notes:     in.Notes,
		Actor:     in.Actor,
	})
	if err != nil {
		return order, err
	}

	record := s.factory.PaymentRecord(finance.PaymentRecordInput{
		OrderID:      order.ID,
		OrderReceipt: order.Receipt,
		ClientID:     order.ClientID,
		PaymentID:    payment.ID,
		AccountID:    account.ID,
		Method:       in.Method,
		Amount:       payment.Amount,
		Initial:      initial,
		Notes:        in.Notes,
		Actor:        in.Actor,
	})

	if err := s.Records.CreateRecord(ctx, record); err != nil {
		return order, fmt.Errorf("create payment record: %w", err)
	}

	if err := s.Orders.Save(ctx, updatedOrder); err != nil {
		// Compensate: the record exists but the order never changed.
		if derr := s.Records.DeleteRecord(ctx, record.ID); derr != nil {
			s.log.Error().Err(derr).Str("record", string(record.ID)).Msg("compensation failed, ledger inconsistent")
			return order, &finance.InconsistencyError{Op: "RegisterPayment", Step: "save order", OrderID: order.ID, Cause: err}
		}
		return order, fmt.Errorf("save order: %w", err)
	}

	// Every ledger record attached to an account moves that account's
	// stored balance, whatever the method; the audit folds them all back.
	if err := s.Accounts.UpdateBalance(ctx, account.ID, updatedAccount.Balance); err != nil {
		if cerr := s.compensatePayment(ctx, order, record.ID); cerr != nil {
			s.log.Error().Err(cerr).Str("order", string(order.ID)).Msg("compensation failed, ledger inconsistent")
			return order, &finance.InconsistencyError{Op: "RegisterPayment", Step: "update balance", OrderID: order.ID, Cause: err}
		}
		return order, fmt.Errorf("update account balance: %w", err)
	}

	result.Payment = &payment
	result.PaymentRecord = &record
	return updatedOrder, nil
}

// compensatePayment undoes the order save and the record create.
func (s *Service) compensatePayment(ctx context.Context, original orders.Order, recordID finance.RecordID) error {
	if err := s.Orders.Save(ctx, original); err != nil {
		return err
	}
	return s.Records.DeleteRecord(ctx, recordID)
}

// applyCreditPortion records the excess as an adjustment and creates the
// client credit keyed by that record.
func (s *Service) applyCreditPortion(ctx context.Context, order orders.Order, amount decimal.Decimal, actor string, result *RegisterPaymentResult) error {
	record := s.factory.AdjustmentRecord(finance.AdjustmentRecordInput{
		OrderID:      order.ID,
		OrderReceipt: order.Receipt,
		ClientID:     order.ClientID,
		Amount:       amount,
		Notes:        "overpayment converted to client credit",
		Actor:        actor,
	})
	if err := s.Records.CreateRecord(ctx, record); err != nil {
		return fmt.Errorf("create adjustment record: %w", err)
	}

	credit, err := s.Credits.CreateCredit(ctx, finance.ClientCredit{
		ID:             finance.CreditID(uuid.NewString()),
		ClientID:       order.ClientID,
		Amount:         amount,
		OriginRecordID: record.ID,
		Notes:          fmt.Sprintf("overpayment on order %s", order.Receipt),
		CreatedAt:      time.Now(),
	})
	if err != nil {
		if derr := s.Records.DeleteRecord(ctx, record.ID); derr != nil {
			s.log.Error().Err(derr).Str("record", string(record.ID)).Msg("compensation failed, ledger inconsistent")
			return &finance.InconsistencyError{Op: "RegisterPayment", Step: "create credit", OrderID: order.ID, Cause: err}
		}
		return fmt.Errorf("create client credit: %w", err)
	}

	result.CreditRecord = &record
	result.Credit = &credit
	return nil
}

// =============================================================================
// REVERT PAYMENT
// =============================================================================

type RevertPaymentResult struct {
	Order         orders.Order
	Reverted      orders.Payment
	DeletedRecord *finance.FinancialRecord
}

// RevertPayment removes a payment from the order, logically deletes its
// originating financial record, and decreases the account balance by the
// payment's amount.
//
// A payment with no matching ledger record is an inconsistency; the revert
// aborts with no writes so the drift stays visible to the auditor instead
// of compounding.
func (s *Service) RevertPayment(ctx context.Context, orderID finance.OrderID, paymentID finance.PaymentID) (RevertPaymentResult, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return RevertPaymentResult{}, err
	}
	if order == nil {
		return RevertPaymentResult{}, finance.ErrOrderNotFound
	}

	_, payment := order.FindPayment(paymentID)
	if payment == nil {
		return RevertPaymentResult{}, finance.ErrPaymentNotFound
	}

	account, err := s.Accounts.GetAccount(ctx, payment.AccountID)
	if err != nil {
		return RevertPaymentResult{}, err
	}
	if account == nil {
		return RevertPaymentResult{}, finance.ErrAccountNotFound
	}

	record, err := s.Records.FindByPayment(ctx, paymentID)
	if err != nil {
		return RevertPaymentResult{}, err
	}
	if record == nil {
		return RevertPaymentResult{}, &finance.InconsistencyError{
			Op:      "RevertPayment",
			Step:    "locate record",
			OrderID: orderID,
			Cause:   fmt.Errorf("payment %s has no ledger record", paymentID),
		}
	}

	updatedOrder, updatedAccount, err := s.ledger.RemovePayment(*order, *account, paymentID)
	if err != nil {
		return RevertPaymentResult{}, err
	}
	reverted := *payment

	if err := s.Orders.Save(ctx, updatedOrder); err != nil {
		return RevertPaymentResult{}, fmt.Errorf("save order: %w", err)
	}

	if err := s.Records.DeleteRecord(ctx, record.ID); err != nil {
		// Compensate: restore the original payment list.
		if cerr := s.Orders.Save(ctx, *order); cerr != nil {
			s.log.Error().Err(cerr).Str("order", string(orderID)).Msg("compensation failed, ledger inconsistent")
			return RevertPaymentResult{}, &finance.InconsistencyError{Op: "RevertPayment", Step: "delete record", OrderID: orderID, Cause: err}
		}
		return RevertPaymentResult{}, fmt.Errorf("delete record: %w", err)
	}

	if err := s.Accounts.UpdateBalance(ctx, account.ID, updatedAccount.Balance); err != nil {
		s.log.Error().Err(err).Str("order", string(orderID)).Msg("balance rollback not applied, ledger inconsistent")
		return RevertPaymentResult{}, &finance.InconsistencyError{Op: "RevertPayment", Step: "update balance", OrderID: orderID, Cause: err}
	}

	s.log.Info().
		Str("order", string(orderID)).
		Str("payment", string(paymentID)).
		Str("amount", reverted.Amount.StringFixed(2)).
		Msg("payment reverted")
	return RevertPaymentResult{Order: updatedOrder, Reverted: reverted, DeletedRecord: record}, nil
}

// =============================================================================
// RECEPTION
// =============================================================================

type ReceptionResult struct {
	Order      orders.Order
	Adjustment orders.ReceptionAdjustment

	// Record and Credit are set only for CREDIT settlements.
	Record *finance.FinancialRecord
	Credit *finance.ClientCredit
}

// ApplyReception receives an order with its real invoice total and settles
// the difference: an overpayment becomes a client credit, a shortfall stays
// as the order's new pending balance awaiting an additional payment.
func (s *Service) ApplyReception(ctx context.Context, orderID finance.OrderID, realInvoiceTotal decimal.Decimal, invoiceNumber, actor string) (ReceptionResult, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return ReceptionResult{}, err
	}
	if order == nil {
		return ReceptionResult{}, finance.ErrOrderNotFound
	}

	adjustment, err := orders.ComputeReceptionAdjustment(*order, realInvoiceTotal)
	if err != nil {
		return ReceptionResult{}, err
	}

	received, err := s.ledger.ReceiveOrder(*order, realInvoiceTotal, invoiceNumber)
	if err != nil {
		return ReceptionResult{}, err
	}

	if err := s.Orders.Save(ctx, received); err != nil {
		return ReceptionResult{}, fmt.Errorf("save order: %w", err)
	}

	result := ReceptionResult{Order: received, Adjustment: adjustment}

	if adjustment.Kind == orders.AdjustmentCredit {
		record := s.factory.AdjustmentRecord(finance.AdjustmentRecordInput{
			OrderID:      received.ID,
			OrderReceipt: received.Receipt,
			ClientID:     received.ClientID,
			Amount:       adjustment.CreditGenerated,
			Notes:        "reception settlement credit",
			Actor:        actor,
		})
		if err := s.Records.CreateRecord(ctx, record); err != nil {
			// Un-receive the order so the settlement can be retried.
			if cerr := s.Orders.Save(ctx, *order); cerr != nil {
				s.log.Error().Err(cerr).Str("order", string(orderID)).Msg("compensation failed, ledger inconsistent")
				return ReceptionResult{}, &finance.InconsistencyError{Op: "ApplyReception", Step: "create record", OrderID: orderID, Cause: err}
			}
			return ReceptionResult{}, fmt.Errorf("create adjustment record: %w", err)
		}

		credit, err := s.Credits.CreateCredit(ctx, finance.ClientCredit{
			ID:             finance.CreditID(uuid.NewString()),
			ClientID:       received.ClientID,
			Amount:         adjustment.CreditGenerated,
			OriginRecordID: record.ID,
			Notes:          fmt.Sprintf("reception settlement on order %s", received.Receipt),
			CreatedAt:      time.Now(),
		})
		if err != nil {
			// A received order with no credit is a settlement silently lost;
			// roll both writes back so a retry sees the pre-reception state.
			derr := s.Records.DeleteRecord(ctx, record.ID)
			serr := s.Orders.Save(ctx, *order)
			if derr != nil || serr != nil {
				s.log.Error().AnErr("delete_record", derr).AnErr("restore_order", serr).Str("record", string(record.ID)).Msg("compensation failed, ledger inconsistent")
				return ReceptionResult{}, &finance.InconsistencyError{Op: "ApplyReception", Step: "create credit", OrderID: orderID, Cause: err}
			}
			return ReceptionResult{}, fmt.Errorf("create client credit: %w", err)
		}
		result.Record = &record
		result.Credit = &credit
	}

	s.log.Info().
		Str("order", string(orderID)).
		Str("kind", string(adjustment.Kind)).
		Msg("order received")
	return result, nil
}

// =============================================================================
// OUT-OF-BAND PAYMENT EDITS
// =============================================================================

// EditPayment corrects a payment's amount, shifts the account balance by
// the delta, and amount-corrects the originating ledger record. No credit
// conversion: an edit beyond pending is rejected outright.
func (s *Service) EditPayment(ctx context.Context, orderID finance.OrderID, paymentID finance.PaymentID, newAmount decimal.Decimal) (orders.Order, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if order == nil {
		return orders.Order{}, finance.ErrOrderNotFound
	}

	_, payment := order.FindPayment(paymentID)
	if payment == nil {
		return orders.Order{}, finance.ErrPaymentNotFound
	}
	account, err := s.Accounts.GetAccount(ctx, payment.AccountID)
	if err != nil {
		return orders.Order{}, err
	}
	if account == nil {
		return orders.Order{}, finance.ErrAccountNotFound
	}

	record, err := s.Records.FindByPayment(ctx, paymentID)
	if err != nil {
		return orders.Order{}, err
	}
	if record == nil {
		return orders.Order{}, &finance.InconsistencyError{
			Op:      "EditPayment",
			Step:    "locate record",
			OrderID: orderID,
			Cause:   fmt.Errorf("payment %s has no ledger record", paymentID),
		}
	}

	updatedOrder, updatedAccount, err := s.ledger.EditPayment(*order, *account, paymentID, newAmount)
	if err != nil {
		return orders.Order{}, err
	}

	if err := s.Orders.Save(ctx, updatedOrder); err != nil {
		return orders.Order{}, fmt.Errorf("save order: %w", err)
	}
	if err := s.Records.UpdateAmount(ctx, record.ID, newAmount); err != nil {
		if cerr := s.Orders.Save(ctx, *order); cerr != nil {
			s.log.Error().Err(cerr).Str("order", string(orderID)).Msg("compensation failed, ledger inconsistent")
			return orders.Order{}, &finance.InconsistencyError{Op: "EditPayment", Step: "update record", OrderID: orderID, Cause: err}
		}
		return orders.Order{}, fmt.Errorf("update record amount: %w", err)
	}
	if err := s.Accounts.UpdateBalance(ctx, account.ID, updatedAccount.Balance); err != nil {
		s.log.Error().Err(err).Str("order", string(orderID)).Msg("balance update not applied, ledger inconsistent")
		return orders.Order{}, &finance.InconsistencyError{Op: "EditPayment", Step: "update balance", OrderID: orderID, Cause: err}
	}

	return updatedOrder, nil
}

// RecordManualMovement creates an out-of-band ledger entry (an expense or a
// correction with no order behind it). When the entry names an account, the
// account's stored balance shifts by the signed amount; an account-less
// entry only lands in the ledger.
func (s *Service) RecordManualMovement(ctx context.Context, in finance.ManualRecordInput) (finance.FinancialRecord, error) {
	if !in.Amount.IsPositive() {
		return finance.FinancialRecord{}, finance.ErrInvalidAmount
	}

	var account *finance.Account
	if in.AccountID != "" {
		var err error
		account, err = s.Accounts.GetAccount(ctx, in.AccountID)
		if err != nil {
			return finance.FinancialRecord{}, err
		}
		if account == nil {
			return finance.FinancialRecord{}, finance.ErrAccountNotFound
		}
	}

	record := s.factory.ManualRecord(in)
	if err := s.Records.CreateRecord(ctx, record); err != nil {
		return finance.FinancialRecord{}, fmt.Errorf("create manual record: %w", err)
	}

	if account != nil {
		newBalance := account.Balance.Add(record.Signed())
		if err := s.Accounts.UpdateBalance(ctx, account.ID, newBalance); err != nil {
			if derr := s.Records.DeleteRecord(ctx, record.ID); derr != nil {
				s.log.Error().Err(derr).Str("record", string(record.ID)).Msg("compensation failed, ledger inconsistent")
				return finance.FinancialRecord{}, &finance.InconsistencyError{Op: "RecordManualMovement", Step: "update balance", Cause: err}
			}
			return finance.FinancialRecord{}, fmt.Errorf("update account balance: %w", err)
		}
	}

	s.log.Info().
		Str("direction", string(in.Direction)).
		Str("amount", in.Amount.StringFixed(2)).
		Str("account", string(in.AccountID)).
		Msg("manual movement recorded")
	return record, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"
	"cashback-platform/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const paymentMethodQR = "QR"

// SettlementServiceImpl implements ports.SettlementService. The whole
// settlement runs as one database transaction: token lock, payer
// debit, merchant credit, cashback, referral bonus, recording, and the
// token's ACTIVE->USED transition commit together or not at all.
type SettlementServiceImpl struct {
	tokenRepo       ports.TokenRepository
	accountRepo     ports.AccountRepository
	txRepo          ports.TransactionRepository
	referralRepo    ports.ReferralRepository
	rateRepo        ports.RateRepository
	transactor      ports.DBTransactor
	notifier        ports.NotificationDispatcher
	platformAccount uuid.UUID
	log             zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	tokenRepo ports.TokenRepository,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	referralRepo ports.ReferralRepository,
	rateRepo ports.RateRepository,
	transactor ports.DBTransactor,
	notifier ports.NotificationDispatcher,
	platformAccount uuid.UUID,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		tokenRepo:       tokenRepo,
		accountRepo:     accountRepo,
		txRepo:          txRepo,
		referralRepo:    referralRepo,
		rateRepo:        rateRepo,
		transactor:      transactor,
		notifier:        notifier,
		platformAccount: platformAccount,
		log:             log,
	}
}

// SettlePayment converts an active payment token into a completed
// transaction with balance movements.
func (s *SettlementServiceImpl) SettlePayment(ctx context.Context, req ports.SettleRequest) (*ports.SettlementResult, error) {
	if req.Source != domain.SourceWallet && req.Source != domain.SourceBonus {
		return nil, apperror.Validation("source must be WALLET or BONUS")
	}

	// Rate snapshot is read once and held fixed for this settlement.
	rates, err := s.rateRepo.GetCurrent(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read rate snapshot: %w", err))
	}

	// Referral links are immutable once created, so the lookup can
	// precede the transaction without a locking hazard.
	referral, err := s.referralRepo.GetByReferred(ctx, req.ConsumerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup referrer: %w", err))
	}

	// Begin the atomic unit.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock the token row.
	token, err := s.tokenRepo.GetByCodeForUpdate(ctx, dbTx, req.Code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock token: %w", err))
	}
	if token == nil {
		return nil, apperror.ErrTokenNotFound()
	}

	now := time.Now().UTC()
	if token.IsExpired(now) {
		// Expiry is lazy: roll back, then record the terminal state
		// best-effort outside the aborted unit.
		_ = dbTx.Rollback(ctx)
		if _, mErr := s.tokenRepo.MarkExpired(ctx, req.Code); mErr != nil {
			s.log.Warn().Err(mErr).Str("code", req.Code).Msg("failed to mark token expired")
		}
		s.publishFailed(ctx, token, req, "token expired")
		return nil, apperror.ErrTokenExpired()
	}

	switch token.Status {
	case domain.TokenStatusActive:
	case domain.TokenStatusCancelled:
		return nil, apperror.ErrTokenCancelled()
	default:
		return nil, apperror.ErrTokenAlreadyUsed()
	}

	if token.IssuerID == req.ConsumerID {
		return nil, apperror.ErrSelfPayment()
	}

	fees := ComputeFees(token.Amount, *rates)

	// Lock and debit the payer from exactly the selected source.
	payer, err := s.accountRepo.GetBalanceForUpdate(ctx, dbTx, req.ConsumerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payer balance: %w", err))
	}
	if payer == nil {
		return nil, apperror.ErrNotFound("payer account")
	}
	if payer.Available(req.Source) < token.Amount {
		s.publishFailed(ctx, token, req, "insufficient funds")
		return nil, apperror.ErrInsufficientFunds()
	}

	ok, err := s.accountRepo.Debit(ctx, dbTx, req.ConsumerID, req.Source, token.Amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit payer: %w", err))
	}
	if !ok {
		// The conditional update's guard rejected the row even though
		// the locked read looked sufficient; treat as the business
		// error, never as a partial state.
		s.publishFailed(ctx, token, req, "insufficient funds")
		return nil, apperror.ErrInsufficientFunds()
	}

	// Credit the merchant's wallet with the net amount.
	if err := s.accountRepo.Credit(ctx, dbTx, token.IssuerID, domain.SourceWallet, fees.MerchantNet, true); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit merchant: %w", err))
	}

	// Credit the payer's cashback to the bonus balance.
	if fees.ClientCashback > 0 {
		if err := s.accountRepo.Credit(ctx, dbTx, req.ConsumerID, domain.SourceBonus, fees.ClientCashback, true); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit cashback: %w", err))
		}
	}

	// Referral bonus: single level, materialized only when the payer
	// has a recorded referrer. Without one the platform keeps it.
	platformLine := fees.PlatformNet
	var referrerID *uuid.UUID
	if referral != nil && fees.ReferralBonus > 0 {
		if err := s.accountRepo.Credit(ctx, dbTx, referral.ReferrerID, domain.SourceBonus, fees.ReferralBonus, true); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit referrer: %w", err))
		}
		id := referral.ReferrerID
		referrerID = &id
	} else {
		platformLine += fees.ReferralBonus
	}

	if platformLine != 0 {
		if err := s.accountRepo.Credit(ctx, dbTx, s.platformAccount, domain.SourceWallet, platformLine, platformLine > 0); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit platform: %w", err))
		}
	}

	txn := &domain.Transaction{
		ID:             uuid.New(),
		PayerID:        req.ConsumerID,
		MerchantID:     token.IssuerID,
		Amount:         token.Amount,
		CashbackAmount: fees.ClientCashback,
		Status:         domain.TransactionStatusCompleted,
		PaymentMethod:  paymentMethodQR,
		SourceToken:    &token.Code,
		CreatedAt:      now,
	}
	items := buildItems(txn, fees, platformLine, s.platformAccount, referrerID)

	if domain.ItemsBalance(items) != 0 {
		return nil, apperror.ErrUnbalancedItems()
	}

	if err := s.txRepo.Create(ctx, dbTx, txn, items); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record transaction: %w", err))
	}

	// Linearization point: conditional ACTIVE->USED transition. Under
	// concurrent consumes only one caller gets a matched row here.
	used, err := s.tokenRepo.MarkUsed(ctx, dbTx, token.Code, req.ConsumerID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("consume token: %w", err))
	}
	if !used {
		return nil, apperror.ErrTokenAlreadyUsed()
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit settlement: %w", err))
	}

	s.publishCompleted(ctx, txn)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("token", token.Code).
		Str("payer_id", req.ConsumerID.String()).
		Str("merchant_id", token.IssuerID.String()).
		Str("amount", money.Format(token.Amount)).
		Str("cashback", money.Format(fees.ClientCashback)).
		Bool("referral_bonus", referrerID != nil).
		Msg("payment settled")

	return &ports.SettlementResult{Transaction: txn, Items: items, Fees: fees}, nil
}

// buildItems assembles the double-entry line items. Debits negative,
// credits positive; the platform line is the residual.
func buildItems(txn *domain.Transaction, fees domain.FeeBreakdown, platformLine int64, platformAccount uuid.UUID, referrerID *uuid.UUID) []domain.TransactionItem {
	items := []domain.TransactionItem{
		{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			Kind:          domain.ItemPayerDebit,
			AccountID:     txn.PayerID,
			Amount:        -txn.Amount,
			Description:   "payment debit",
		},
		{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			Kind:          domain.ItemMerchantCredit,
			AccountID:     txn.MerchantID,
			Amount:        fees.MerchantNet,
			Description:   "merchant settlement",
		},
	}

	if fees.ClientCashback > 0 {
		items = append(items, domain.TransactionItem{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			Kind:          domain.ItemPayerCashback,
			AccountID:     txn.PayerID,
			Amount:        fees.ClientCashback,
			Description:   "client cashback",
		})
	}

	if referrerID != nil {
		items = append(items, domain.TransactionItem{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			Kind:          domain.ItemReferralBonus,
			AccountID:     *referrerID,
			Amount:        fees.ReferralBonus,
			Description:   "referral bonus",
		})
	}

	if platformLine != 0 {
		items = append(items, domain.TransactionItem{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			Kind:          domain.ItemPlatformFee,
			AccountID:     platformAccount,
			Amount:        platformLine,
			Description:   "platform fee",
		})
	}

	return items
}

func (s *SettlementServiceImpl) publishCompleted(ctx context.Context, txn *domain.Transaction) {
	code := ""
	if txn.SourceToken != nil {
		code = *txn.SourceToken
	}
	event := domain.SettlementEvent{
		Type:          domain.EventSettlementCompleted,
		TransactionID: &txn.ID,
		TokenCode:     code,
		PayerID:       txn.PayerID,
		MerchantID:    txn.MerchantID,
		Amount:        txn.Amount,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish settlement event")
	}
}

func (s *SettlementServiceImpl) publishFailed(ctx context.Context, token *domain.PaymentToken, req ports.SettleRequest, reason string) {
	event := domain.SettlementEvent{
		Type:       domain.EventSettlementFailed,
		TokenCode:  token.Code,
		PayerID:    req.ConsumerID,
		MerchantID: token.IssuerID,
		Amount:     token.Amount,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("code", token.Code).Msg("failed to publish settlement event")
	}
}

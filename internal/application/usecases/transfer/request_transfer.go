// Package transfer implements the wallet transaction engine: the four
// money-movement operations (Send, Withdraw, Deposit, Claim), each
// gated by OTP confirmation, limit reservation and account invariants.
package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/application/usecases/limits"
	"github.com/finboard/walletcore/internal/application/usecases/otp"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/events"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
	"github.com/finboard/walletcore/internal/exchange"
)

// CeilingProvider returns the transfer ceilings in the given currency.
// Ceilings are configured in USD and converted per account.
type CeilingProvider func(currency valueobjects.Currency) (limits.Ceilings, error)

// RequestTransferUseCase runs the request half of the engine's state
// machine: validate, convert, reserve, issue OTP. Any failure leaves no
// residual state; the transaction, the freeze and the challenge are
// created in one atomic unit or not at all.
type RequestTransferUseCase struct {
	accounts  ports.AccountRepository
	transfers ports.WalletTransactionRepository
	gate      *otp.Gate
	limiter   *limits.Manager
	converter *exchange.Converter
	ceilings  CeilingProvider
	publisher ports.EventPublisher
	uow       ports.UnitOfWork
	logger    *slog.Logger
}

// NewRequestTransferUseCase wires the request use case.
func NewRequestTransferUseCase(
	accounts ports.AccountRepository,
	transfers ports.WalletTransactionRepository,
	gate *otp.Gate,
	limiter *limits.Manager,
	converter *exchange.Converter,
	ceilings CeilingProvider,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
	logger *slog.Logger,
) *RequestTransferUseCase {
	return &RequestTransferUseCase{
		accounts:  accounts,
		transfers: transfers,
		gate:      gate,
		limiter:   limiter,
		converter: converter,
		ceilings:  ceilings,
		publisher: publisher,
		uow:       uow,
		logger:    logger,
	}
}

// RequestSend starts a transfer from one account to another.
func (uc *RequestTransferUseCase) RequestSend(ctx context.Context, cmd dtos.SendCommand) (*dtos.TransferRequestedDTO, error) {
	return uc.request(ctx, requestParams{
		kind:        entities.TransferKindSend,
		userID:      cmd.UserID,
		fromID:      cmd.FromAccountID,
		toID:        cmd.ToAccountID,
		amount:      cmd.Amount,
		currency:    cmd.Currency,
		description: cmd.Description,
	})
}

// RequestWithdraw starts a withdrawal out of an account.
func (uc *RequestTransferUseCase) RequestWithdraw(ctx context.Context, cmd dtos.WithdrawCommand) (*dtos.TransferRequestedDTO, error) {
	return uc.request(ctx, requestParams{
		kind:        entities.TransferKindWithdraw,
		userID:      cmd.UserID,
		fromID:      cmd.FromAccountID,
		amount:      cmd.Amount,
		currency:    cmd.Currency,
		description: cmd.Description,
	})
}

// RequestDeposit starts a deposit into an account.
func (uc *RequestTransferUseCase) RequestDeposit(ctx context.Context, cmd dtos.DepositCommand) (*dtos.TransferRequestedDTO, error) {
	return uc.request(ctx, requestParams{
		kind:        entities.TransferKindDeposit,
		userID:      cmd.UserID,
		fromID:      cmd.FromAccountID,
		amount:      cmd.Amount,
		currency:    cmd.Currency,
		description: cmd.Description,
	})
}

// RequestClaim starts a claim of a package or voucher into an account.
// Claim shares the Deposit pipeline; the voucher reference replaces the
// peer account.
func (uc *RequestTransferUseCase) RequestClaim(ctx context.Context, cmd dtos.ClaimCommand) (*dtos.TransferRequestedDTO, error) {
	if strings.TrimSpace(cmd.VoucherRef) == "" {
		return nil, domainerrors.ValidationError{Field: "voucher_ref", Message: "voucher reference is required"}
	}
	description := cmd.Description
	if description == "" {
		description = fmt.Sprintf("claim %s", cmd.VoucherRef)
	}
	return uc.request(ctx, requestParams{
		kind:        entities.TransferKindClaim,
		userID:      cmd.UserID,
		fromID:      cmd.FromAccountID,
		amount:      cmd.Amount,
		currency:    cmd.Currency,
		description: description,
	})
}

// requestParams is the normalized input shared by the four kinds.
type requestParams struct {
	kind        entities.TransferKind
	userID      string
	fromID      string
	toID        string
	amount      string
	currency    string
	description string
}

func (uc *RequestTransferUseCase) request(ctx context.Context, p requestParams) (*dtos.TransferRequestedDTO, error) {
	userID, err := uuid.Parse(p.userID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "user_id", Message: "invalid user ID format"}
	}
	fromID, err := uuid.Parse(p.fromID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "from_account_id", Message: "invalid account ID format"}
	}

	var toID *uuid.UUID
	if p.kind == entities.TransferKindSend {
		parsed, err := uuid.Parse(p.toID)
		if err != nil {
			return nil, domainerrors.ValidationError{Field: "to_account_id", Message: "invalid account ID format"}
		}
		if parsed == fromID {
			return nil, domainerrors.NewBusinessRuleViolation(
				"SelfTransfer", "cannot send to the same account", nil)
		}
		toID = &parsed
	}

	currency, err := valueobjects.NewCurrency(p.currency)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "currency", Message: "unsupported currency"}
	}
	requested, err := valueobjects.NewMoney(p.amount, currency)
	if err != nil || !requested.IsPositive() {
		return nil, domainerrors.ValidationError{Field: "amount", Message: "amount must be a positive decimal"}
	}
	if len(p.description) > dtos.MaxDescriptionLength {
		return nil, domainerrors.ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description longer than %d characters", dtos.MaxDescriptionLength),
		}
	}

	var (
		result  *dtos.TransferRequestedDTO
		pending []events.DomainEvent
	)

	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		from, err := uc.accounts.FindByIDForUpdate(txCtx, fromID)
		if err != nil {
			if domainerrors.IsNotFound(err) {
				return fmt.Errorf("%w: account %s", domainerrors.ErrEntityNotFound, fromID)
			}
			return fmt.Errorf("failed to load source account: %w", err)
		}
		if from.OwnerID() != userID {
			// Do not leak whether the account exists for another owner.
			return fmt.Errorf("%w: account %s", domainerrors.ErrEntityNotFound, fromID)
		}

		if toID != nil {
			if _, err := uc.accounts.FindByID(txCtx, *toID); err != nil {
				if domainerrors.IsNotFound(err) {
					return fmt.Errorf("%w: account %s", domainerrors.ErrEntityNotFound, *toID)
				}
				return fmt.Errorf("failed to load destination account: %w", err)
			}
		}

		settled, err := uc.converter.Convert(requested, from.Currency())
		if err != nil {
			return err
		}
		if !settled.IsPositive() {
			return domainerrors.ValidationError{
				Field:   "amount",
				Message: "amount rounds to zero in the account currency",
			}
		}
		rate, err := uc.converter.CrossRate(currency, from.Currency())
		if err != nil {
			return err
		}

		// Credit kinds can violate the invariant too (over-paying a
		// credit card); reject before creating any state.
		if !p.kind.MovesFundsOut() {
			proposed, err := from.ProposedBalanceAfterCredit(settled)
			if err != nil {
				return err
			}
			if err := entities.ValidateBalance(from.Type(), proposed, from.CreditLimit()); err != nil {
				return err
			}
		}

		opType := operationType(p.kind)
		challenge, err := uc.gate.Issue(txCtx, userID, opType, payloadHash(p.kind, fromID, toID, settled))
		if err != nil {
			return err
		}

		tx, err := entities.NewWalletTransaction(fromID, toID, p.kind, requested, settled, rate, p.description, challenge.ID())
		if err != nil {
			return err
		}

		ceilings, err := uc.ceilings(from.Currency())
		if err != nil {
			return err
		}
		if _, err := uc.limiter.Reserve(
			txCtx, from, tx.ID(), settled, ceilings, p.kind.MovesFundsOut(), challenge.ExpiresAt(),
		); err != nil {
			return err
		}

		if err := uc.transfers.Save(txCtx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}

		result = &dtos.TransferRequestedDTO{
			TransactionID: tx.ID().String(),
			Status:        string(tx.Status()),
			SettledAmount: settled.Decimal().StringFixed(2),
			Currency:      settled.Currency().Code(),
			OtpExpiresAt:  challenge.ExpiresAt(),
		}

		// Stashed here, published only after the commit below; an OTP
		// for a rolled-back transaction must never leave the core.
		pending = []events.DomainEvent{
			events.NewOtpIssued(challenge.ID(), userID, tx.ID(), opType, challenge.Code(), challenge.ExpiresAt()),
			events.NewTransferRequested(tx.ID(), fromID, string(p.kind), settled),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Delivery failure is logged, never surfaced: the OTP simply does
	// not arrive and the transaction expires through reconciliation.
	if err := uc.publisher.PublishBatch(ctx, pending); err != nil {
		uc.logger.Warn("failed to publish transfer events", slog.String("error", err.Error()))
	}

	return result, nil
}

// operationType names the OTP binding for a transfer kind.
func operationType(kind entities.TransferKind) string {
	return "wallet." + strings.ToLower(string(kind))
}

// payloadHash binds the OTP challenge to the operation payload so a
// code issued for one transfer cannot confirm a different one.
func payloadHash(kind entities.TransferKind, fromID uuid.UUID, toID *uuid.UUID, settled valueobjects.Money) string {
	to := ""
	if toID != nil {
		to = toID.String()
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		string(kind), fromID.String(), to, settled.String(),
	}, "|")))
	return hex.EncodeToString(sum[:])
}

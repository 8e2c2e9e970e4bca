package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/dtos"
	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/application/usecases/limits"
	"github.com/finboard/walletcore/internal/application/usecases/otp"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
	"github.com/finboard/walletcore/internal/domain/events"
	"github.com/finboard/walletcore/internal/exchange"
)

// confirmMaxRetries bounds the transparent retry of the confirm
// mutation on storage-level serialization conflicts.
const confirmMaxRetries = 3

// ConfirmTransferUseCase runs the confirm half of the state machine:
// verify the OTP once, then apply the balance mutation, the counter
// increment, the freeze release and the status flip as one atomic unit.
type ConfirmTransferUseCase struct {
	accounts  ports.AccountRepository
	transfers ports.WalletTransactionRepository
	gate      *otp.Gate
	limiter   *limits.Manager
	converter *exchange.Converter
	publisher ports.EventPublisher
	uow       ports.UnitOfWork
	logger    *slog.Logger
	now       func() time.Time
}

// NewConfirmTransferUseCase wires the confirm use case.
func NewConfirmTransferUseCase(
	accounts ports.AccountRepository,
	transfers ports.WalletTransactionRepository,
	gate *otp.Gate,
	limiter *limits.Manager,
	converter *exchange.Converter,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
	logger *slog.Logger,
) *ConfirmTransferUseCase {
	return &ConfirmTransferUseCase{
		accounts:  accounts,
		transfers: transfers,
		gate:      gate,
		limiter:   limiter,
		converter: converter,
		publisher: publisher,
		uow:       uow,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute confirms a pending transaction with an OTP code.
//
// Outcomes:
//   - nil error with a CONFIRMED or FAILED DTO: the atomic unit
//     committed and the DTO carries the terminal result. FAILED means
//     the defensive invariant re-check rejected the mutation; the
//     balance is unchanged and the freeze released.
//   - ErrOtpInvalid / ErrOtpAlreadyUsed: nothing changed, the
//     transaction stays PENDING_OTP and the caller may retry until
//     expiry.
//   - ErrOtpExpired: the transaction was marked EXPIRED and its funds
//     released.
func (uc *ConfirmTransferUseCase) Execute(ctx context.Context, cmd dtos.ConfirmTransferCommand) (*dtos.TransferDTO, error) {
	transactionID, err := uuid.Parse(cmd.TransactionID)
	if err != nil {
		return nil, domainerrors.ValidationError{Field: "transaction_id", Message: "invalid transaction ID format"}
	}
	if len(cmd.Code) != entities.OtpCodeLength {
		return nil, domainerrors.ValidationError{Field: "code", Message: "code must be 6 digits"}
	}

	// Cheap pre-check before opening a transaction. The locked reload
	// below repeats it authoritatively.
	tx, err := uc.transfers.FindByID(ctx, transactionID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: transaction %s", domainerrors.ErrEntityNotFound, cmd.TransactionID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if !tx.IsPending() {
		return nil, domainerrors.ErrTransactionNotPending
	}

	var (
		result  *dtos.TransferDTO
		outcome []events.DomainEvent
		otpErr  error
	)

	err = uc.uow.ExecuteWithRetry(ctx, confirmMaxRetries, func(txCtx context.Context) error {
		result, outcome, otpErr = nil, nil, nil

		// The row lock serializes this confirm against the expiry sweep
		// and against a duplicate confirm of the same transaction.
		tx, err := uc.transfers.FindByIDForUpdate(txCtx, transactionID)
		if err != nil {
			return fmt.Errorf("failed to reload transaction: %w", err)
		}
		if !tx.IsPending() {
			return domainerrors.ErrTransactionNotPending
		}

		// Consuming the code inside the unit means a failed commit
		// rolls the consumption back too, preserving the caller's
		// retry window.
		if err := uc.gate.Verify(txCtx, tx.OtpID(), cmd.Code); err != nil {
			if errors.Is(err, domainerrors.ErrOtpExpired) {
				evs, expireErr := uc.expire(txCtx, tx)
				if expireErr != nil {
					return expireErr
				}
				// The EXPIRED flip must commit; the OTP failure is
				// surfaced after the unit completes.
				outcome = evs
				otpErr = err
				return nil
			}
			// Wrong code or replay: the transaction stays pending, the
			// caller may resubmit until the window closes.
			return err
		}

		evs, err := uc.settle(txCtx, tx)
		if err != nil {
			return err
		}

		result = dtos.MapTransferToDTO(tx)
		outcome = evs
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.publisher.PublishBatch(ctx, outcome); err != nil {
		uc.logger.Warn("failed to publish transfer events", slog.String("error", err.Error()))
	}
	if otpErr != nil {
		return nil, otpErr
	}

	return result, nil
}

// settle applies the mutation for a verified transaction inside the
// caller's unit of work. Invariant rejection marks the transaction
// FAILED and releases the freeze; it is not an error of the atomic unit
// itself, so the terminal state still commits.
func (uc *ConfirmTransferUseCase) settle(ctx context.Context, tx *entities.WalletTransaction) ([]events.DomainEvent, error) {
	from, dest, err := uc.lockAccounts(ctx, tx)
	if err != nil {
		return nil, err
	}

	settled := tx.SettledAmount()

	var mutationErr error
	switch tx.Kind() {
	case entities.TransferKindSend:
		mutationErr = from.Debit(settled)
		if mutationErr == nil {
			credit, convErr := uc.converter.Convert(settled, dest.Currency())
			if convErr != nil {
				mutationErr = convErr
			} else {
				mutationErr = dest.Credit(credit)
			}
		}
	case entities.TransferKindWithdraw:
		mutationErr = from.Debit(settled)
	case entities.TransferKindDeposit, entities.TransferKindClaim:
		// Claim credits from a voucher; there is no source debit.
		mutationErr = from.Credit(settled)
	default:
		mutationErr = domainerrors.NewDomainError("INVALID_TRANSFER_KIND", "unknown transfer kind", nil)
	}

	if mutationErr != nil {
		// Defect class: the request step validated this mutation, so a
		// rejection here means concurrent state change or a bug.
		uc.logger.Error("invariant re-check rejected confirmed mutation",
			slog.String("transaction_id", tx.ID().String()),
			slog.String("kind", string(tx.Kind())),
			slog.String("error", mutationErr.Error()))

		if err := tx.MarkFailed(mutationErr.Error()); err != nil {
			return nil, err
		}
		if err := uc.limiter.Release(ctx, tx.ID()); err != nil {
			return nil, err
		}
		if err := uc.transfers.Save(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to save failed transaction: %w", err)
		}
		return []events.DomainEvent{
			events.NewTransferFailed(tx.ID(), tx.FromAccountID(), string(tx.Kind()), tx.FailureReason()),
		}, nil
	}

	if err := uc.accounts.Save(ctx, from); err != nil {
		return nil, fmt.Errorf("failed to save source account: %w", err)
	}
	if dest != nil {
		if err := uc.accounts.Save(ctx, dest); err != nil {
			return nil, fmt.Errorf("failed to save destination account: %w", err)
		}
	}
	if err := uc.limiter.RecordMoved(ctx, from.ID(), settled); err != nil {
		return nil, err
	}
	if err := uc.limiter.Release(ctx, tx.ID()); err != nil {
		return nil, err
	}
	if err := tx.MarkConfirmed(uc.now()); err != nil {
		return nil, err
	}
	if err := uc.transfers.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save confirmed transaction: %w", err)
	}

	return []events.DomainEvent{
		events.NewTransferConfirmed(tx.ID(), from.ID(), string(tx.Kind()), settled, from.Balance()),
	}, nil
}

// lockAccounts loads the accounts touched by the transaction under row
// locks, in ascending ID order so two opposing transfers cannot
// deadlock.
func (uc *ConfirmTransferUseCase) lockAccounts(ctx context.Context, tx *entities.WalletTransaction) (from, dest *entities.Account, err error) {
	fromID := tx.FromAccountID()
	toID := tx.ToAccountID()

	if toID == nil {
		from, err = uc.accounts.FindByIDForUpdate(ctx, fromID)
		return from, nil, err
	}

	first, second := fromID, *toID
	if second.String() < first.String() {
		first, second = second, first
	}
	a, err := uc.accounts.FindByIDForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := uc.accounts.FindByIDForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID() == fromID {
		return a, b, nil
	}
	return b, a, nil
}

// expire marks a transaction whose OTP window lapsed as EXPIRED and
// releases its funds. Runs inside the caller's unit of work, on a
// transaction already locked by FindByIDForUpdate.
func (uc *ConfirmTransferUseCase) expire(txCtx context.Context, tx *entities.WalletTransaction) ([]events.DomainEvent, error) {
	if err := tx.MarkExpired(); err != nil {
		return nil, err
	}
	if err := uc.limiter.Release(txCtx, tx.ID()); err != nil {
		return nil, err
	}
	if err := uc.transfers.Save(txCtx, tx); err != nil {
		return nil, fmt.Errorf("failed to save expired transaction: %w", err)
	}

	return []events.DomainEvent{
		events.NewTransferExpired(tx.ID(), tx.FromAccountID(), string(tx.Kind())),
	}, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

var _ ports.OtpChallengeRepository = (*OtpChallengeRepository)(nil)

// OtpChallengeRepository implements ports.OtpChallengeRepository.
// Single-use consumption is a conditional UPDATE so two concurrent
// verifications of the same code can never both succeed.
type OtpChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewOtpChallengeRepository(pool *pgxpool.Pool) *OtpChallengeRepository {
	return &OtpChallengeRepository{pool: pool}
}

func (r *OtpChallengeRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Save persists a freshly issued challenge.
func (r *OtpChallengeRepository) Save(ctx context.Context, challenge *entities.OtpChallenge) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO otp_challenges (id, user_id, operation_type, payload_hash, code, created_at, expires_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		challenge.ID(),
		challenge.UserID(),
		challenge.OperationType(),
		challenge.PayloadHash(),
		challenge.Code(),
		challenge.CreatedAt(),
		challenge.ExpiresAt(),
		challenge.UsedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save otp challenge: %w", err)
	}

	return nil
}

// FindByID loads a challenge.
func (r *OtpChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.OtpChallenge, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, user_id, operation_type, payload_hash, code, created_at, expires_at, used_at
		FROM otp_challenges
		WHERE id = $1
	`

	var (
		challengeID, userID        uuid.UUID
		operationType, payloadHash string
		code                       string
		createdAt, expiresAt       time.Time
		usedAt                     *time.Time
	)

	err := q.QueryRow(ctx, query, id).Scan(
		&challengeID, &userID, &operationType, &payloadHash, &code, &createdAt, &expiresAt, &usedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to scan otp challenge: %w", err)
	}

	return entities.ReconstructOtpChallenge(
		challengeID, userID, operationType, payloadHash, code, createdAt, expiresAt, usedAt,
	), nil
}

// ConsumeIfValid marks the challenge used if and only if the code
// matches, it has not been used and it has not expired. One statement,
// one winner.
func (r *OtpChallengeRepository) ConsumeIfValid(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	q := r.getQuerier(ctx)

	query := `
		UPDATE otp_challenges
		SET used_at = now()
		WHERE id = $1
		  AND code = $2
		  AND used_at IS NULL
		  AND expires_at > now()
	`

	result, err := q.Exec(ctx, query, id, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp challenge: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

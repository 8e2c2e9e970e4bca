// Package otp implements the one-time-passcode gate guarding every
// money-movement operation.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/application/ports"
	"github.com/finboard/walletcore/internal/domain/entities"
	domainerrors "github.com/finboard/walletcore/internal/domain/errors"
)

// Gate issues and verifies single-use passcodes. Verification is one
// atomic conditional update at the storage layer; the gate never
// verifies the same challenge twice.
type Gate struct {
	challenges ports.OtpChallengeRepository
	now        func() time.Time
}

// NewGate creates a gate over the given challenge store.
func NewGate(challenges ports.OtpChallengeRepository) *Gate {
	return &Gate{
		challenges: challenges,
		now:        time.Now,
	}
}

// NewGateWithClock creates a gate with an injected clock for tests.
func NewGateWithClock(challenges ports.OtpChallengeRepository, now func() time.Time) *Gate {
	return &Gate{challenges: challenges, now: now}
}

// Issue generates a uniformly random 6-digit code bound to the user,
// the operation type and a hash of the operation payload, and persists
// the challenge. The code is delivered out of band by the notification
// collaborator; it is not returned on the confirmation channel.
func (g *Gate) Issue(ctx context.Context, userID uuid.UUID, operationType, payloadHash string) (*entities.OtpChallenge, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	challenge := entities.NewOtpChallenge(userID, operationType, payloadHash, code, g.now())
	if err := g.challenges.Save(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist otp challenge: %w", err)
	}

	return challenge, nil
}

// Verify consumes the challenge if the submitted code matches and the
// challenge is unused and unexpired. The consumption is a single
// conditional update; when zero rows are affected the state is re-read
// to report the precise reason:
//
//	nil                 - consumed by this call
//	ErrOtpAlreadyUsed   - a previous Verify succeeded
//	ErrOtpExpired       - the validity window passed
//	ErrOtpInvalid       - unknown challenge or wrong code
func (g *Gate) Verify(ctx context.Context, challengeID uuid.UUID, submittedCode string) error {
	consumed, err := g.challenges.ConsumeIfValid(ctx, challengeID, submittedCode)
	if err != nil {
		return fmt.Errorf("failed to verify otp challenge: %w", err)
	}
	if consumed {
		return nil
	}

	challenge, err := g.challenges.FindByID(ctx, challengeID)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return domainerrors.ErrOtpInvalid
		}
		return fmt.Errorf("failed to load otp challenge: %w", err)
	}

	switch {
	case challenge.IsUsed():
		return domainerrors.ErrOtpAlreadyUsed
	case challenge.IsExpired(g.now()):
		return domainerrors.ErrOtpExpired
	default:
		return domainerrors.ErrOtpInvalid
	}
}

// generateCode draws a uniformly random 6-digit numeric code from
// crypto/rand.
func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < entities.OtpCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", entities.OtpCodeLength, n), nil
}

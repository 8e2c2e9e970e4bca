package entities

import (
	"time"

	"github.com/google/uuid"
)

// OtpTTL is the validity window of a challenge. It is also the
// cancellation boundary of the pending transaction the challenge guards.
const OtpTTL = 300 * time.Second

// OtpCodeLength is the number of digits in a generated code.
const OtpCodeLength = 6

// OtpChallenge is a short-lived, single-use passcode bound to a user,
// an operation type and a hash of the operation payload. UsedAt is set
// exactly once, atomically with verification.
type OtpChallenge struct {
	id            uuid.UUID
	userID        uuid.UUID
	operationType string
	payloadHash   string
	code          string
	createdAt     time.Time
	expiresAt     time.Time
	usedAt        *time.Time
}

// NewOtpChallenge creates a challenge expiring OtpTTL from now.
func NewOtpChallenge(userID uuid.UUID, operationType, payloadHash, code string, now time.Time) *OtpChallenge {
	now = now.UTC()
	return &OtpChallenge{
		id:            uuid.New(),
		userID:        userID,
		operationType: operationType,
		payloadHash:   payloadHash,
		code:          code,
		createdAt:     now,
		expiresAt:     now.Add(OtpTTL),
	}
}

// ReconstructOtpChallenge hydrates a challenge from stored data.
func ReconstructOtpChallenge(
	id, userID uuid.UUID,
	operationType, payloadHash, code string,
	createdAt, expiresAt time.Time,
	usedAt *time.Time,
) *OtpChallenge {
	return &OtpChallenge{
		id:            id,
		userID:        userID,
		operationType: operationType,
		payloadHash:   payloadHash,
		code:          code,
		createdAt:     createdAt,
		expiresAt:     expiresAt,
		usedAt:        usedAt,
	}
}

func (o *OtpChallenge) ID() uuid.UUID         { return o.id }
func (o *OtpChallenge) UserID() uuid.UUID     { return o.userID }
func (o *OtpChallenge) OperationType() string { return o.operationType }
func (o *OtpChallenge) PayloadHash() string   { return o.payloadHash }
func (o *OtpChallenge) CreatedAt() time.Time  { return o.createdAt }
func (o *OtpChallenge) ExpiresAt() time.Time  { return o.expiresAt }
func (o *OtpChallenge) UsedAt() *time.Time    { return o.usedAt }

// Code returns the plaintext passcode. Only the issue path may deliver
// it; it is never logged after issuance.
func (o *OtpChallenge) Code() string { return o.code }

// IsExpired reports whether the validity window has passed.
func (o *OtpChallenge) IsExpired(now time.Time) bool {
	return !now.Before(o.expiresAt)
}

// IsUsed reports whether the challenge was already consumed.
func (o *OtpChallenge) IsUsed() bool {
	return o.usedAt != nil
}

package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "frozen_amounts_pkey"}

	if !isUniqueViolation(dup, "") {
		t.Error("unnarrowed match rejected a unique violation")
	}
	if !isUniqueViolation(dup, "frozen_amounts_pkey") {
		t.Error("named constraint did not match")
	}
	if isUniqueViolation(dup, "accounts_pkey") {
		t.Error("matched the wrong constraint")
	}
	if isUniqueViolation(&pgconn.PgError{Code: pgSerializationFailure}, "") {
		t.Error("matched a non-unique error code")
	}
	if isUniqueViolation(errors.New("boom"), "") {
		t.Error("matched a plain error")
	}
	if isUniqueViolation(nil, "") {
		t.Error("matched nil")
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pgconn.PgError{Code: pgSerializationFailure}, true},
		{"deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableError(tc.err); got != tc.want {
				t.Errorf("isRetryableError = %v, want %v", got, tc.want)
			}
		})
	}
}

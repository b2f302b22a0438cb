package dbstate

import (
	"errors"
	"fmt"
	"os"
)

const (
	// ConfirmationEnvVar is the environment variable that must hold ConfirmationPhrase before any reset.
	ConfirmationEnvVar = "YES_PLEASE_DELETE_ALL_MY_DATA_VERY_OFTEN"

	// ConfirmationPhrase is the exact value ConfirmationEnvVar must have.
	ConfirmationPhrase = "Pretty please, with sugar on top."
)

// EnvLookup has the signature of os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// ResetGuard refuses destructive resets unless the confirmation token is present.
type ResetGuard struct {
	lookup EnvLookup
}

// NewResetGuard creates a ResetGuard reading the token through lookup; nil means os.LookupEnv.
func NewResetGuard(lookup EnvLookup) ResetGuard {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	return ResetGuard{lookup: lookup}
}

// Check returns ErrSafetyViolation unless the token is set to exactly ConfirmationPhrase.
func (g ResetGuard) Check() error {
	lookup := g.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	value, ok := lookup(ConfirmationEnvVar)
	if !ok {
		return errors.Join(ErrSafetyViolation, fmt.Errorf("%s is not set", ConfirmationEnvVar))
	}

	if value != ConfirmationPhrase {
		return errors.Join(ErrSafetyViolation, fmt.Errorf("%s has the wrong value", ConfirmationEnvVar))
	}

	return nil
}

package domain

import "errors"

// Workflow error taxonomy. Handlers map these to HTTP statuses with
// errors.Is; everything raised inside a transaction triggers a full
// rollback before surfacing.
var (
	// ErrNotFound signals a missing request, organization, or HR manager.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState signals a decision on a request that is no longer
	// pending. Approved and rejected are terminal.
	ErrInvalidState = errors.New("request is not pending")

	// ErrForbidden signals an authorization failure: the acting user may
	// not decide this request.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals a uniqueness violation on a generated identifier
	// after retries. The whole approve call is safe to resubmit because the
	// transaction re-reads pending status first.
	ErrConflict = errors.New("identifier conflict")

	// ErrExhaustedCapacity signals that the employee ID space for the
	// current year is used up.
	ErrExhaustedCapacity = errors.New("employee id capacity exhausted")

	// ErrValidation signals malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrAccountLocked signals a login attempt against a locked account.
	ErrAccountLocked = errors.New("account locked")

	// ErrInvalidCredentials signals an authentication failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

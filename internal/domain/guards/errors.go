package guards

import "errors"

var (
	ErrGuardNotFound = errors.New("guard not found")
	ErrNotPending    = errors.New("guard is not awaiting approval")
	ErrNotActive     = errors.New("guard is not active")
	ErrBadInviteCode = errors.New("invalid organization code")
	ErrEmptyTemplate     = errors.New("face template is empty")
	ErrPhoneTaken        = errors.New("phone number already enrolled")
	ErrEmailTaken        = errors.New("email already enrolled")
	ErrMissingAssignment = errors.New("site, shift, and daily rate are required")
)

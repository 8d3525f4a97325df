package escrow

import "errors"

// Validation failures: reported to the caller, no mutation occurs, no retry.
var (
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrInvalidParty       = errors.New("invalid party")
	ErrInvalidSpec        = errors.New("invalid milestone spec")
	ErrAlreadyFunded      = errors.New("job already funded")
	ErrFeeTooHigh         = errors.New("fee exceeds maximum basis points")
	ErrDisputeAlreadyOpen = errors.New("dispute already open for milestone")
	ErrAlreadyResolved    = errors.New("dispute already resolved")

	ErrJobNotFound       = errors.New("job not found")
	ErrJobExists         = errors.New("job already exists")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrDisputeNotFound   = errors.New("dispute not found")

	ErrUnknownVerifier    = errors.New("verifier not registered")
	ErrVerifierInactive   = errors.New("verifier deactivated")
	ErrVerificationMethod = errors.New("verification method does not permit this approval path")
	ErrNotEligible        = errors.New("milestone not eligible for auto-approval")
)

var validationErrors = []error{
	ErrIllegalTransition,
	ErrInvalidParty,
	ErrInvalidSpec,
	ErrAlreadyFunded,
	ErrFeeTooHigh,
	ErrDisputeAlreadyOpen,
	ErrAlreadyResolved,
	ErrJobNotFound,
	ErrJobExists,
	ErrMilestoneNotFound,
	ErrDisputeNotFound,
	ErrUnknownVerifier,
	ErrVerifierInactive,
	ErrVerificationMethod,
	ErrNotEligible,
}

// IsValidationError distinguishes local rule violations from transient
// failures. The sync engine skips events that fail validation instead of
// retrying the batch.
func IsValidationError(err error) bool {
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// ReasonCode returns the structured reason reported on the operator API
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrIllegalTransition):
		return "IllegalTransition"
	case errors.Is(err, ErrInvalidParty):
		return "InvalidParty"
	case errors.Is(err, ErrInvalidSpec):
		return "InvalidSpec"
	case errors.Is(err, ErrAlreadyFunded):
		return "AlreadyFunded"
	case errors.Is(err, ErrFeeTooHigh):
		return "FeeTooHigh"
	case errors.Is(err, ErrDisputeAlreadyOpen):
		return "DisputeAlreadyOpen"
	case errors.Is(err, ErrAlreadyResolved):
		return "AlreadyResolved"
	case errors.Is(err, ErrJobNotFound):
		return "JobNotFound"
	case errors.Is(err, ErrJobExists):
		return "JobExists"
	case errors.Is(err, ErrMilestoneNotFound):
		return "MilestoneNotFound"
	case errors.Is(err, ErrDisputeNotFound):
		return "DisputeNotFound"
	case errors.Is(err, ErrUnknownVerifier):
		return "UnknownVerifier"
	case errors.Is(err, ErrVerifierInactive):
		return "VerifierInactive"
	case errors.Is(err, ErrVerificationMethod):
		return "VerificationMethod"
	case errors.Is(err, ErrNotEligible):
		return "NotEligible"
	default:
		return "Internal"
	}
}

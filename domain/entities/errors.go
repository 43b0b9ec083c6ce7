package entities

import "errors"

// ErrorKind classifies domain errors so callers can map them to responses
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindStateConflict ErrorKind = "state_conflict"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

// DomainError is a sentinel error carrying a kind and a stable code
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

var (
	ErrBetNotFound               = newDomainError(KindNotFound, "bet_not_found", "bet not found")
	ErrNotAuthorizedToResolve    = newDomainError(KindAuthorization, "not_authorized_to_resolve", "user is not an eligible resolver for this bet")
	ErrNotBetCreator             = newDomainError(KindAuthorization, "not_bet_creator", "only the bet creator can do this")
	ErrBetNotOpen                = newDomainError(KindStateConflict, "bet_not_open", "bet is not open")
	ErrBetNotInResolvablePhase   = newDomainError(KindStateConflict, "bet_not_in_resolvable_phase", "bet is not awaiting resolution")
	ErrBetNotCancellable         = newDomainError(KindStateConflict, "bet_not_cancellable", "only open or closed bets can be cancelled")
	ErrResolveDeadlineNotReached = newDomainError(KindStateConflict, "resolve_deadline_not_reached", "resolve date has not passed yet")
	ErrFulfillmentNotApplicable  = newDomainError(KindStateConflict, "fulfillment_not_applicable", "fulfillment tracking only applies to resolved social bets")
	ErrAlreadyClaimed            = newDomainError(KindStateConflict, "already_claimed", "fulfillment already claimed for this bet")
	ErrInvalidVotePayload        = newDomainError(KindValidation, "invalid_vote_payload", "vote does not match the bet type")
	ErrInvalidOutcome            = newDomainError(KindValidation, "invalid_outcome", "outcome is not valid for this transition")
	ErrInvalidClaim              = newDomainError(KindValidation, "invalid_claim", "fulfillment claim is not valid")
	ErrNotALoser                 = newDomainError(KindAuthorization, "not_a_loser", "user did not lose this bet")
)

// KindOf returns the kind of the first domain error in the chain, or KindInternal
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of the first domain error in the chain
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "internal_error"
}

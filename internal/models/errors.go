package models

import "errors"

// Settlement errors are a closed set. Every failed precondition surfaces as
// one of these sentinels so API clients can distinguish "already done" from
// "not allowed yet". All of them are terminal for the request.
var (
	ErrPlatformPaused               = errors.New("platform is currently paused")
	ErrUnauthorized                 = errors.New("unauthorized access")
	ErrInvalidEventStatus           = errors.New("invalid event status")
	ErrEventNotActive               = errors.New("event is not active")
	ErrSalesNotStarted              = errors.New("ticket sales not started yet")
	ErrSalesEnded                   = errors.New("ticket sales has ended")
	ErrInvalidSignature             = errors.New("invalid signature")
	ErrAuthorizationExpired         = errors.New("authorization expired")
	ErrNonceAlreadyUsed             = errors.New("nonce already used")
	ErrPriceMismatch                = errors.New("price mismatch")
	ErrAlreadyCheckedIn             = errors.New("ticket already checked in")
	ErrNotTicketOwner               = errors.New("not ticket owner")
	ErrResaleLimitReached           = errors.New("resale limit reached")
	ErrCannotResellTicket           = errors.New("ticket cannot be resold")
	ErrListingNotActive             = errors.New("listing not active")
	ErrInvalidCheckInTime           = errors.New("invalid check-in time")
	ErrCheckInOperatorNotAuthorized = errors.New("check-in operator not authorized")
	ErrArithmeticOverflow           = errors.New("arithmetic overflow")
	ErrInvalidTicketReference       = errors.New("authorization does not reference this ticket")
	ErrInsufficientSupply           = errors.New("insufficient ticket supply")
	ErrInsufficientFunds            = errors.New("insufficient funds")
)

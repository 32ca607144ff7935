package models

import "errors"

// Domain errors shared across services and handlers. Handlers map these to
// HTTP status codes; repositories translate store-level failures into them.
var (
	// ErrInvalidRange indicates a malformed or inverted date range, or an
	// otherwise invalid request payload.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates the vehicle is already booked for an
	// overlapping date range.
	ErrConflict = errors.New("booking dates conflict with an existing booking")

	// ErrDuplicateSession indicates a booking already exists for the
	// Stripe checkout session, i.e. a redelivered webhook event.
	ErrDuplicateSession = errors.New("booking already exists for this checkout session")

	// ErrUnauthorized indicates a failed authentication or ownership
	// check, including webhook signature verification failures.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstream indicates a failure calling an external provider.
	ErrUpstream = errors.New("upstream provider request failed")
)

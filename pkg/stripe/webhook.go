package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventTypeCheckoutCompleted is the only event type this service acts on
const EventTypeCheckoutCompleted = "checkout.session.completed"

// DefaultTolerance bounds how old a webhook timestamp may be
const DefaultTolerance = 5 * time.Minute

// ErrInvalidSignature is returned when a webhook payload fails
// verification. Callers must fail closed and change no state.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// Event is a payment notification decoded at the boundary. Only the fields
// this service reads are modeled; unknown event types carry an empty
// session.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData wraps the event payload object
type EventData struct {
	Object EventSession `json:"object"`
}

// EventSession is the checkout session embedded in a completed event.
// Metadata is the correlation payload handed to Stripe at checkout time and
// must be treated as untrusted input on the way back in.
type EventSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// ConstructEvent verifies the signature header against the raw body and
// decodes the event. The raw body must be passed exactly as received.
func ConstructEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	return ConstructEventWithTolerance(payload, sigHeader, secret, DefaultTolerance, time.Now())
}

// ConstructEventWithTolerance is ConstructEvent with an explicit timestamp
// tolerance and clock
func ConstructEventWithTolerance(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	if err := verifySignature(payload, sigHeader, secret, tolerance, now); err != nil {
		return nil, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}

	return &event, nil
}

// verifySignature checks a Stripe-Signature header of the form
// "t=<unix>,v1=<hex hmac>[,v1=...]" where the hmac is SHA-256 over
// "<t>.<payload>" keyed with the endpoint secret.
func verifySignature(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) error {
	if sigHeader == "" || secret == "" {
		return ErrInvalidSignature
	}

	var timestamp int64 = -1
	var signatures [][]byte

	for _, part := range strings.Split(sigHeader, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			parsed, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = parsed
		case "v1":
			sig, err := hex.DecodeString(pair[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}

	return ErrInvalidSignature
}

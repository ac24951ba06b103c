package webhook

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

// SignatureVerifier checks a raw webhook payload against its signature
// header and returns the decoded event.
type SignatureVerifier interface {
	Verify(payload []byte, sigHeader, secret string) (stripe.Event, error)
}

// ProviderVerifier verifies with the provider SDK's constant-time signature
// check over the raw body.
type ProviderVerifier struct{}

func (ProviderVerifier) Verify(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, secret)
}

// parseUnverified decodes the payload without signature verification. Only
// two callers: extracting the tenant hint before the secret is known, and
// the explicitly-flagged insecure development mode.
func parseUnverified(payload []byte) (stripe.Event, error) {
	var event stripe.Event
	err := json.Unmarshal(payload, &event)
	return event, err
}

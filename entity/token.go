package entity

import (
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

// NewSecureToken returns a globally-unique opaque identifier for one
// admission unit. The token is embedded in the ticket's QR code and used
// as the registry key, so it must be URL-safe and unguessable.
func NewSecureToken() string {
	return shortuuid.DefaultEncoder.Encode(uuid.New()) + shortuuid.New()
}

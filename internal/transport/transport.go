package transport

import (
	"context"
	"errors"
	"fmt"
)

// Channel identifies a destination the gateway can deliver messages to.
type Channel struct {
	ID string `json:"channel_id"`
}

// Transport is the outbound message collaborator. Implementations translate
// provider failures into classified DeliveryErrors; callers depend only on
// the classification.
type Transport interface {
	// CreateDirectChannel opens (or returns) a private channel to the user.
	CreateDirectChannel(ctx context.Context, userID string) (Channel, error)
	// Send delivers one message to a channel.
	Send(ctx context.Context, ch Channel, content string) error
}

// Kind classifies a delivery failure for retry decisions.
type Kind int

const (
	// KindTransient failures may succeed on retry.
	KindTransient Kind = iota
	// KindPermission failures cannot succeed on retry (recipient unreachable,
	// delivery forbidden).
	KindPermission
	// KindRateLimited failures indicate the provider is throttling the whole
	// process and must trip the global cooldown.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "transient"
	}
}

// DeliveryError is a classified transport failure.
type DeliveryError struct {
	Kind       Kind
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s, status %d)", e.Kind, e.StatusCode)
}

// KindOf extracts the classification from an error. Unclassified errors
// (network failures, timeouts) count as transient.
func KindOf(err error) Kind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransient
}

package middleware

import (
	"context"
	"crypto/subtle"

	"google.golang.org/grpc/metadata"

	"github.com/dtroode/authsession/internal/logger"
)

// UpstreamSecretHeader carries the secret shared with the services that check user
// credentials before asking for a login.
const UpstreamSecretHeader = "x-upstream-secret"

// Upstream admits calls from trusted upstream services only. With an empty secret
// every call is rejected.
type Upstream struct {
	secret []byte
	logger *logger.Logger
}

// NewUpstream creates an Upstream middleware for the shared secret.
func NewUpstream(secret string, logger *logger.Logger) *Upstream {
	return &Upstream{secret: []byte(secret), logger: logger}
}

// AuthFunc compares the upstream secret header with the configured secret.
func (m *Upstream) AuthFunc(ctx context.Context) (context.Context, error) {
	if len(m.secret) == 0 {
		m.logger.Warn("Upstream middleware: call rejected, no upstream secret configured")
		return nil, errUnauthenticated
	}

	values := metadata.ValueFromIncomingContext(ctx, UpstreamSecretHeader)
	if len(values) != 1 || subtle.ConstantTimeCompare([]byte(values[0]), m.secret) != 1 {
		m.logger.Info("Upstream middleware: call rejected, bad upstream secret")
		return nil, errUnauthenticated
	}

	return ctx, nil
}

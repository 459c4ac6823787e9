package logutil

import (
	"context"

	"go.uber.org/zap"
)

// UseCaseLogger returns a logger scoped to a domain/operation pair, named
// "<domain>_usecase" so log lines from the session/wallet/ticket engines are
// easy to filter without threading a struct field through every call site.
func UseCaseLogger(ctx context.Context, domain, operation string) *zap.Logger {
	return FromContext(ctx).Named(domain + "_usecase").With(
		zap.String("domain", domain),
		zap.String("operation", operation),
	)
}

// HandlerLogger returns a logger scoped to an HTTP Control Plane handler.
func HandlerLogger(ctx context.Context, handlerName, operation string) *zap.Logger {
	return FromContext(ctx).Named(handlerName).With(
		zap.String("handler", handlerName),
		zap.String("operation", operation),
	)
}

// RepositoryLogger returns a logger scoped to a Store method.
func RepositoryLogger(ctx context.Context, repositoryName, operation string) *zap.Logger {
	return FromContext(ctx).Named(repositoryName + "_repository").With(
		zap.String("operation", operation),
	)
}

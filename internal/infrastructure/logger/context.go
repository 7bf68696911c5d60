package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SiteCodeKey is the context key for the site a request operates on
	SiteCodeKey contextKey = "site_code"
	// OperatorKey is the context key for the acting user
	OperatorKey contextKey = "operator"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithSiteCode adds the site code to context and returns enriched logger
func WithSiteCode(ctx context.Context, logger *zap.Logger, siteCode string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, SiteCodeKey, siteCode)
	enriched := logger.With(zap.String("site_code", siteCode))
	return WithContext(ctx, enriched), enriched
}

// WithOperator adds the acting user to context and returns enriched logger
func WithOperator(ctx context.Context, logger *zap.Logger, operator string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, OperatorKey, operator)
	enriched := logger.With(zap.String("operator", operator))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSiteCode retrieves the site code from context
func GetSiteCode(ctx context.Context) string {
	if siteCode, ok := ctx.Value(SiteCodeKey).(string); ok {
		return siteCode
	}
	return ""
}

// GetOperator retrieves the acting user from context
func GetOperator(ctx context.Context) string {
	if operator, ok := ctx.Value(OperatorKey).(string); ok {
		return operator
	}
	return ""
}

// L returns a logger from the context enriched with request_id, site_code and
// operator when present.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if requestID := GetRequestID(ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	if siteCode := GetSiteCode(ctx); siteCode != "" {
		l = l.With(zap.String("site_code", siteCode))
	}
	if operator := GetOperator(ctx); operator != "" {
		l = l.With(zap.String("operator", operator))
	}
	return l
}

// Package middleware provides HTTP middleware for the matcheval server.
//
// Available middleware:
//   - RequestID: assigns every request an ID and stores it in the context
//   - Logging: logs method, path, status and latency per request
//   - RateLimiter: per-client token bucket limiting
//   - Recovery: converts handler panics into 500 responses
//
// Usage:
//
//	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
//	defer rl.Stop()
//	handler = middleware.RequestID(middleware.Logging(log)(rl.Middleware(mux)))
package middleware

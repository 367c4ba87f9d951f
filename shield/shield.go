// Package shield provides the HTTP hardening middleware of the live-edit API:
// security headers, request body limits, HEAD handling and per-client rate
// limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.HeadToGet)
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(4 << 20))
//	r.Use(shield.NewRateLimiter(120, time.Minute).Middleware)
package shield

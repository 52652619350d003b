// Package auth authenticates staff accounts for the admin API.
//
// Clients log in with email and password and receive a short-lived access
// token (JWT, HS256) in the response body and a long-lived refresh token in
// an HttpOnly cookie scoped to the refresh endpoint. Protected routes expect
// the access token as "Authorization: Bearer <token>".
//
// # Configuration
//
//	AUTH_ACCESS_TOKEN_SECRET=<at least 32 bytes>   # required
//	AUTH_REFRESH_TOKEN_SECRET=<at least 32 bytes>  # required, distinct
//	AUTH_ACCESS_TOKEN_TTL=15m
//	AUTH_REFRESH_TOKEN_TTL=168h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_RATE_LIMIT_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	tokens := auth.NewTokenIssuer(cfg.Auth)
//	service := auth.NewService(usersRepo, tokens, cfg.Auth, auditService)
//	mw := auth.NewMiddleware(tokens)
//	auth.NewAuthController(service, cfg.Auth).RegisterRoutes(api, mw)
//	api.Use(mw.Handler())
//
// Logging out bumps the account's token version, which invalidates every
// refresh token issued before.
package auth

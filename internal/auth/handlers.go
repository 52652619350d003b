package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/api/auth/refresh-token"
)

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    uint              `json:"_id"`
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Role  entities.UserRole `json:"role"`
}

func NewUserResponse(u *entities.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	signupRequest
	Role entities.UserRole `json:"role"`
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service       *Service
	throttle      *LoginThrottle
	secureCookies bool

	// setupMutex serializes signup requests so two callers cannot both
	// become the first administrator.
	setupMutex sync.Mutex
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, cfg config.Auth) *AuthController {
	return &AuthController{
		service: service,
		throttle: NewLoginThrottle(ThrottleConfig{
			MaxFailures: cfg.MaxLoginAttempts,
			Window:      cfg.RateLimitWindow,
			Lockout:     cfg.LockoutDuration,
		}),
		secureCookies: cfg.SecureCookies,
	}
}

// RegisterRoutes registers authentication routes under the given group.
func (ac *AuthController) RegisterRoutes(api *gin.RouterGroup, mw *Middleware) {
	group := api.Group("/auth")
	group.POST("/login", ac.Login)
	group.POST("/refresh-token", ac.RefreshToken)
	group.POST("/logout", ac.Logout)
	group.POST("/signup", ac.Signup)

	group.POST("/register", mw.Handler(), mw.RequireRole(entities.UserRoleAdmin), ac.Register)
	group.GET("/users", mw.Handler(), ac.Users)
	group.GET("/me", mw.Handler(), ac.Me)
}

// Stop ends the login throttle's sweep goroutine.
func (ac *AuthController) Stop() {
	if ac.throttle != nil {
		ac.throttle.Stop()
	}
}

// Login checks credentials and returns an access token plus a refresh cookie.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	clientIP := c.ClientIP()
	ctx := audit.WithActor(c.Request.Context(), audit.Actor{IPAddress: clientIP, UserAgent: c.Request.UserAgent()})

	if err := ac.throttle.Check(clientIP, req.Email); err != nil {
		respondError(c, err)
		return
	}

	session, err := ac.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidPassword) {
			if lockout := ac.throttle.Fail(clientIP, req.Email); lockout != nil {
				err = lockout
			}
		}
		respondError(c, err)
		return
	}

	ac.throttle.Reset(clientIP, req.Email)
	ac.setRefreshCookie(c, session.RefreshToken, ac.service.Tokens().RefreshTTL())

	c.JSON(http.StatusOK, gin.H{
		"user":        NewUserResponse(session.User),
		"accessToken": session.AccessToken,
	})
}

// RefreshToken issues a new access token from the refresh cookie.
func (ac *AuthController) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(RefreshCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token missing"})
		return
	}

	access, err := ac.service.Refresh(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token expired"})
		case errors.Is(err, ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		default:
			log.Printf("Token refresh failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}

// Logout clears the refresh cookie and revokes outstanding refresh tokens.
// The refresh cookie is scoped to the refresh path, so the bearer token is
// used to identify the user when the cookie is absent.
func (ac *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	if token, err := c.Cookie(RefreshCookieName); err == nil && token != "" {
		if err := ac.service.Logout(ctx, token); err != nil && !isTokenError(err) {
			log.Printf("Logout failed: %v", err)
		}
	} else if claims, err := ac.service.Tokens().ParseAccess(bearerToken(c.GetHeader("Authorization"))); err == nil {
		if userID, err := claims.UserID(); err == nil {
			if err := ac.service.RevokeAll(ctx, userID); err != nil && !errors.Is(err, ErrUserNotFound) {
				log.Printf("Logout failed: %v", err)
			}
		}
	}

	ac.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Signup creates the first administrator. It is closed once any account exists.
func (ac *AuthController) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name, email and password are required"})
		return
	}

	ac.setupMutex.Lock()
	defer ac.setupMutex.Unlock()

	ctx := audit.WithActor(c.Request.Context(), audit.Actor{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	user, err := ac.service.Bootstrap(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	ac.service.logAudit(ctx, user.ID, "signup", true)
	c.JSON(http.StatusCreated, NewUserResponse(user))
}

// Register creates another account. Admin only.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name, email and password are required"})
		return
	}

	role := req.Role
	if role == "" {
		role = entities.UserRoleLibrarian
	}

	ctx := c.Request.Context()
	user, err := ac.service.CreateUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		respondError(c, err)
		return
	}

	ac.service.logAudit(ctx, user.ID, "register", true)
	c.JSON(http.StatusCreated, NewUserResponse(user))
}

// Users lists all accounts.
func (ac *AuthController) Users(c *gin.Context) {
	users, err := ac.service.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Me returns the authenticated account.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (ac *AuthController) setRefreshCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl.Seconds())
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, value, maxAge, RefreshCookiePath, "", ac.secureCookies, true)
}

func respondError(c *gin.Context, err error) {
	var lockout *LockoutError
	if errors.As(err, &lockout) {
		c.Header("Retry-After", strconv.Itoa(int(lockout.RetryAfter.Seconds())))
	}

	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Auth request failed: %v", err)
		c.JSON(status, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"message": apperr.Message(err, http.StatusText(status))})
}

func isTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired)
}

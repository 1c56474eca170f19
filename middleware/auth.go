package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/gin-gonic/gin"
)

// Gin context keys set by Authenticate
const (
	ContextUser            = "user"
	ContextUserID          = "user_id"
	ContextSessionID       = "session_id"
	ContextValidatedClaims = "validated_claims"
)

// CustomClaims contains the application claims carried by an access token.
type CustomClaims struct {
	Role models.Role `json:"role"`
}

// Validate rejects tokens minted for a role the portal does not know.
func (c CustomClaims) Validate(ctx context.Context) error {
	if !c.Role.Valid() {
		return errors.New("token carries an unknown role")
	}
	return nil
}

// Authenticate validates the bearer token, then requires a live server-side
// session for its jti and an active account for its subject.
func Authenticate(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		panic("failed to set up the jwt validator: " + err.Error())
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Debug("rejected access token", "path", r.URL.Path, "error", err)

		message := "Invalid token."
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			message = "Access denied. No token provided."
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write(errorBody("INVALID_TOKEN", message)); writeErr != nil {
			slog.Warn("failed to write error response", "error", writeErr)
		}
	}

	checker := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r

			claims := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			user, sessionID, ok := resolveSession(c, claims)
			if !ok {
				return
			}

			c.Set(ContextUser, user)
			c.Set(ContextUserID, user.ID)
			c.Set(ContextSessionID, sessionID)
			c.Set(ContextValidatedClaims, claims)
			c.Next()
		}

		checker.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// resolveSession maps validated claims onto a live session and an active
// user, aborting the request when either is missing
func resolveSession(c *gin.Context, claims *validator.ValidatedClaims) (*models.User, string, bool) {
	sessionID := claims.RegisteredClaims.ID
	userID, err := strconv.ParseUint(claims.RegisteredClaims.Subject, 10, 64)
	if err != nil || sessionID == "" {
		abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token.")
		return nil, "", false
	}

	store := services.GetSessionStore()
	if store == nil {
		abortWithError(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired. Please log in again.")
		return nil, "", false
	}
	session, err := store.Get(c.Request.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, services.ErrSessionNotFound) {
			slog.Error("session lookup failed", "error", err)
		}
		abortWithError(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired. Please log in again.")
		return nil, "", false
	}
	if uint64(session.UserID) != userID {
		abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token.")
		return nil, "", false
	}

	var user models.User
	if err := config.GetDB().First(&user, userID).Error; err != nil || !user.IsActive() {
		abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token or user inactive.")
		return nil, "", false
	}
	return &user, sessionID, true
}

// CurrentUser returns the authenticated account from the Gin context
func CurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User in context has an unexpected type"}
	}
	return user, nil
}

// GetSessionID returns the session id of the current token
func GetSessionID(c *gin.Context) (string, error) {
	value, exists := c.Get(ContextSessionID)
	if !exists {
		return "", &AuthError{Code: "MISSING_SESSION", Message: "Session not found in context"}
	}

	sessionID, ok := value.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_SESSION", Message: "Session id is not a string"}
	}
	return sessionID, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ContextValidatedClaims)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

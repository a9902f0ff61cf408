package middleware

import (
	"net/http"
	"slices"
	"strings"

	"laundry/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireRole.
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
	CtxBranchID = "branchID"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Auth validates access tokens signed with the configured secret.
type Auth struct {
	secret       []byte
	secureCookie bool
}

func NewAuth(secret []byte, secureCookie bool) *Auth {
	return &Auth{secret: secret, secureCookie: secureCookie}
}

func (a *Auth) Secret() []byte {
	return a.secret
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string, accessMaxAge, refreshMaxAge int) {
	a.setSameSite(c)
	c.SetCookie(accessCookie, accessToken, accessMaxAge, "/", "", a.secureCookie, true)
	c.SetCookie(refreshCookie, refreshToken, refreshMaxAge, "/", "", a.secureCookie, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	a.setSameSite(c)
	c.SetCookie(accessCookie, "", -1, "/", "", a.secureCookie, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", a.secureCookie, true)
}

// Cross-origin deployments need SameSite=None, which browsers only accept with Secure.
func (a *Auth) setSameSite(c *gin.Context) {
	if a.secureCookie {
		c.SetSameSite(http.SameSiteNoneMode)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
}

// RefreshTokenFrom reads the refresh token from its cookie.
func RefreshTokenFrom(c *gin.Context) string {
	token, _ := c.Cookie(refreshCookie)
	return token
}

// RequireRole Middleware validates the JWT token and checks if the user's role exists in the allowedRoles list
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		if len(allowedRoles) > 0 && !slices.Contains(allowedRoles, userRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		userID, _ := claims["sub"].(string)
		c.Set(CtxUserID, userID)
		c.Set(CtxUserRole, userRole)
		if branchID, ok := claims["branch_id"].(string); ok {
			c.Set(CtxBranchID, branchID)
		}

		c.Next()
	}
}

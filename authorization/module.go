package authorization

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	identityKey    = "username"
	defaultTimeout = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("authorization: invalid username or password")
)

// localAccount is the single account a self-hosted install authenticates.
// Credentials come from the environment; there is no registration flow.
type localAccount struct {
	Username     string
	PasswordHash []byte
}

// LoginRequest is the JSON body accepted by /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Module wires the JWT middleware around the local account. When no account
// is configured the module runs in open mode and the guard waves every
// request through, matching unauthenticated desktop use.
type Module struct {
	account       *localAccount
	jwtMiddleware *jwt.GinJWTMiddleware
}

// RegisterRoutes bootstraps the authentication endpoints under /auth.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	account, err := loadAccountFromEnv()
	if err != nil {
		return nil, err
	}

	if account == nil {
		log.Printf("authorization: no KEEPER_USERNAME configured, running in open mode")
		return &Module{}, nil
	}

	middleware, err := buildJWTMiddleware(account)
	if err != nil {
		return nil, fmt.Errorf("authorization: init jwt middleware: %w", err)
	}
	if err := middleware.MiddlewareInit(); err != nil {
		return nil, fmt.Errorf("authorization: init jwt middleware: %w", err)
	}

	module := &Module{account: account, jwtMiddleware: middleware}

	authGroup := router.Group("/auth")
	authGroup.POST("/login", middleware.LoginHandler)
	authGroup.POST("/refresh", middleware.RefreshHandler)

	protected := authGroup.Group("")
	protected.Use(middleware.MiddlewareFunc())
	protected.GET("/me", module.handleMe)

	return module, nil
}

func loadAccountFromEnv() (*localAccount, error) {
	username := strings.TrimSpace(os.Getenv("KEEPER_USERNAME"))
	if username == "" {
		return nil, nil
	}

	if hash := strings.TrimSpace(os.Getenv("KEEPER_PASSWORD_HASH")); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("authorization: KEEPER_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
		return &localAccount{Username: username, PasswordHash: []byte(hash)}, nil
	}

	// Plaintext fallback for first runs; hashed at startup so the comparison
	// path is the same either way.
	if password := os.Getenv("KEEPER_PASSWORD"); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("authorization: hash KEEPER_PASSWORD: %w", err)
		}
		return &localAccount{Username: username, PasswordHash: hash}, nil
	}

	return nil, errors.New("authorization: KEEPER_USERNAME is set but neither KEEPER_PASSWORD_HASH nor KEEPER_PASSWORD is")
}

func (a *localAccount) authenticate(username, password string) error {
	if a == nil {
		return ErrInvalidCredentials
	}
	if username != a.Username {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func buildJWTMiddleware(account *localAccount) (*jwt.GinJWTMiddleware, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, errors.New("authorization: JWT_SECRET environment variable is required")
	}

	return jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "keeper",
		Key:         []byte(secret),
		Timeout:     defaultTimeout,
		MaxRefresh:  24 * time.Hour,
		IdentityKey: identityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if username, ok := data.(string); ok {
				return jwt.MapClaims{identityKey: username}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			claims := jwt.ExtractClaims(c)
			username, _ := claims[identityKey].(string)
			return username
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var req LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}
			if err := account.authenticate(req.Username, req.Password); err != nil {
				return nil, jwt.ErrFailedAuthentication
			}
			return req.Username, nil
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			username, ok := data.(string)
			return ok && username == account.Username
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, gin.H{"error": message})
		},
		TokenLookup:   "header: Authorization, cookie: jwt, cookie: token",
		TokenHeadName: "Bearer",
	})
}

func (m *Module) handleMe(c *gin.Context) {
	claims := jwt.ExtractClaims(c)
	username, _ := claims[identityKey].(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

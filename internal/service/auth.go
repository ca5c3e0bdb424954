package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aidar/challenge-portal/internal/domain"
)

const unknownUserName = "Unknown User"

// identityEmailClaims are checked in order for the user's e-mail
var identityEmailClaims = []string{"preferred_username", "email", "upn", "unique_name"}

// Claims represents JWT claims of the portal session token
type Claims struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// LoginResult is returned after a successful login
type LoginResult struct {
	Token    string      `json:"token"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	IsAdmin  bool        `json:"is_admin"`
	NextStep domain.Step `json:"next_step"`
}

// AuthService handles authentication and JWT operations
type AuthService struct {
	sessions  *SessionService
	access    *AccessPolicy
	resolver  *StepResolver
	logger    *slog.Logger
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(
	sessions *SessionService,
	access *AccessPolicy,
	resolver *StepResolver,
	logger *slog.Logger,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		sessions:  sessions,
		access:    access,
		resolver:  resolver,
		logger:    logger,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// ParseIdentity extracts the identity from an identity provider ID token.
// The signature is verified upstream by the provider integration, so the
// claims are read without verification.
func ParseIdentity(idToken string) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	var email string
	for _, key := range identityEmailClaims {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			email = strings.ToLower(strings.TrimSpace(v))
			break
		}
	}
	if email == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	name := unknownUserName
	if v, ok := claims["name"].(string); ok {
		name = NormalizeDisplayName(v)
	}

	return domain.Identity{Email: email, Name: name}, nil
}

// Login checks access for the identity in the ID token, starts a session and
// issues a portal token for it
func (s *AuthService) Login(ctx context.Context, idToken string) (*LoginResult, error) {
	identity, err := ParseIdentity(idToken)
	if err != nil {
		return nil, err
	}

	decision, err := s.access.Decide(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if !decision.Allow {
		s.logger.Info("Login denied by access policy")
		return nil, domain.ErrForbidden
	}

	session, err := s.sessions.Start(ctx, identity, decision.Admin)
	if err != nil {
		return nil, err
	}

	// Create claims
	claims := &Claims{
		SessionID: session.ID,
		Email:     session.Email,
		IsAdmin:   session.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	// Create token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Sign token
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResult{
		Token:    tokenString,
		Name:     session.Name,
		Email:    session.Email,
		IsAdmin:  session.IsAdmin,
		NextStep: s.resolver.Resume(ctx, session),
	}, nil
}

// Logout ends the session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.End(ctx, sessionID)
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// Authenticate validates the token and loads its session
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Load(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

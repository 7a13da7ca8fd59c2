package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultTokenTTL is the lifetime of issued tokens
	DefaultTokenTTL = 7 * 24 * time.Hour
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 6
	// MaxPasswordLength is the longest password in bytes bcrypt can hash
	MaxPasswordLength = 72

	bcryptCost = 10
)

func invalidCredentials() error {
	return goerr.Wrap(model.ErrUnauthorized, "invalid email or password")
}

// UseCase registers users and issues bearer tokens
type UseCase struct {
	repo     repository.Repository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTokenTTL sets the lifetime of issued tokens
func WithTokenTTL(ttl time.Duration) Option {
	return func(uc *UseCase) {
		uc.tokenTTL = ttl
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new auth UseCase instance. secret signs the HS256 tokens.
func New(repo repository.Repository, secret string, opts ...Option) (*UseCase, error) {
	if secret == "" {
		return nil, goerr.New("JWT secret is required")
	}

	uc := &UseCase{
		repo:     repo,
		secret:   []byte(secret),
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc, nil
}

// Session is an authenticated user with a bearer token
type Session struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Register creates a new user and signs them in
func (u *UseCase) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "name is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, goerr.Wrap(model.ErrInvalidInput, "valid email is required", goerr.V("email", email))
	}
	if len(password) < MinPasswordLength {
		return nil, goerr.Wrap(model.ErrInvalidInput, "password must be at least 6 characters")
	}
	if len(password) > MaxPasswordLength {
		return nil, goerr.Wrap(model.ErrInvalidInput, "password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hash password")
	}

	user := &model.User{
		ID:           model.NewUserID(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		CreatedAt:    u.now(),
	}
	if err := u.repo.PutUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, goerr.Wrap(model.ErrConflict, "user already exists", goerr.V("email", email))
		}
		return nil, goerr.Wrap(err, "failed to save user")
	}

	return u.session(user)
}

// Login verifies the credentials and signs the user in
func (u *UseCase) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := u.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, goerr.Wrap(err, "failed to get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}

	return u.session(user)
}

// Me returns the user identified by a verified token
func (u *UseCase) Me(ctx context.Context, userID model.UserID) (*model.User, error) {
	user, err := u.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (u *UseCase) session(user *model.User) (*Session, error) {
	token, err := u.IssueToken(user)
	if err != nil {
		return nil, err
	}

	public := *user
	public.PasswordHash = ""
	return &Session{User: &public, Token: token}, nil
}

// IssueToken signs a token for the user
func (u *UseCase) IssueToken(user *model.User) (string, error) {
	now := u.now()
	c := claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(u.secret)
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token", goerr.V("user_id", user.ID))
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of a token and returns its user
func (u *UseCase) VerifyToken(token string) (model.UserID, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return u.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(u.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", goerr.Wrap(model.ErrUnauthorized, "invalid token", goerr.V("reason", err))
	}
	if c.Subject == "" {
		return "", goerr.Wrap(model.ErrUnauthorized, "token has no subject")
	}

	return model.UserID(c.Subject), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tenge/internal/core"
	"tenge/internal/storage"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+$`)

// UserService handles registration, login and profile changes. Tokens
// are HS256 JWTs carrying the user id the rest of the system trusts.
type UserService struct {
	store     storage.Store
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewUserService(store storage.Store, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

type UserView struct {
	Email             string `json:"email"`
	PreferredCurrency string `json:"preferred_currency"`
}

type SessionView struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

func (s *UserService) Register(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" || len(password) < minPasswordLength || !emailPattern.MatchString(email) {
		return nil, core.InvalidInput("Invalid email or password provided")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, core.InvalidInput("Provided email already exists in the system")
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.store.CreateUser(ctx, email, string(hash), core.CanonicalCurrency); err != nil {
		return nil, err
	}

	return &Result{
		Status:  http.StatusOK,
		Message: "A user was successfully registered",
	}, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, core.InvalidInput("Email and password fields should not be empty")
	}
	if !emailPattern.MatchString(email) {
		return nil, core.InvalidInput("Invalid email format")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.InvalidInput("User with provided email does not exist in the system")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, core.InvalidInput("Incorrect password provided")
	}

	return s.session(user, "A user was successfully logged in")
}

func (s *UserService) ChangeEmail(ctx context.Context, userID int64, newEmail string) (*Result, error) {
	if !emailPattern.MatchString(newEmail) {
		return nil, core.InvalidInput("Invalid email format")
	}

	if _, err := s.store.GetUserByEmail(ctx, newEmail); err == nil {
		return nil, core.InvalidInput("Provided email already exists in the system")
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	user, err := s.store.UpdateUser(ctx, userID, storage.UserPatch{Email: &newEmail})
	if err != nil {
		return nil, userErr(err)
	}

	return s.session(user, "Email successfully updated")
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) (*Result, error) {
	if len(newPassword) < minPasswordLength {
		return nil, core.InvalidInput("Password must be at least %d characters long", minPasswordLength)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return nil, core.InvalidInput("Incorrect old password provided")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user, err = s.store.UpdateUser(ctx, userID, storage.UserPatch{PasswordHash: &hashStr})
	if err != nil {
		return nil, userErr(err)
	}

	return s.session(user, "Password successfully updated")
}

func (s *UserService) ChangeCurrency(ctx context.Context, userID int64, newCurrency string) (*Result, error) {
	cur := core.Currency(newCurrency)
	if !cur.Valid() {
		return nil, core.InvalidInput("Invalid currency provided")
	}

	user, err := s.store.UpdateUser(ctx, userID, storage.UserPatch{PreferredCurrency: &cur})
	if err != nil {
		return nil, userErr(err)
	}

	return &Result{
		Status:  http.StatusOK,
		Message: "Preferred currency successfully updated",
		Data: UserView{
			Email:             user.Email,
			PreferredCurrency: string(user.PreferredCurrency),
		},
	}, nil
}

// VerifyToken parses and validates a bearer token and returns the user
// id it carries. Used by the HTTP auth middleware.
func (s *UserService) VerifyToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, core.InvalidInput("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, core.InvalidInput("Invalid token claims")
	}
	rawID, ok := claims["id"].(float64)
	if !ok {
		return 0, core.InvalidInput("Invalid token claims")
	}
	return int64(rawID), nil
}

func (s *UserService) session(user core.User, message string) (*Result, error) {
	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:  http.StatusOK,
		Message: message,
		Data: SessionView{
			Token: token,
			User: UserView{
				Email:             user.Email,
				PreferredCurrency: string(user.PreferredCurrency),
			},
		},
	}, nil
}

func (s *UserService) issueToken(user core.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

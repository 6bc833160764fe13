// Package auth issues and checks operator credentials and participant
// identity tokens. The core components never see tokens, only the
// already-validated identity this package resolves.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/piotrgredowski/memes-ranker/internal/model"
	"github.com/piotrgredowski/memes-ranker/internal/repo"
)

const operatorTokenTTL = 12 * time.Hour

var ErrBadCredentials = errors.New("bad credentials")
var ErrBadToken = errors.New("invalid or expired token")

// Operator authenticates the single operator role. The configured password
// is hashed once at startup; logins compare against the hash.
type Operator struct {
	secret []byte
	hash   []byte
}

func NewOperator(password, secret string) (*Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash operator password: %w", err)
	}
	return &Operator{secret: []byte(secret), hash: hash}, nil
}

// Login verifies the password and issues a signed operator token.
func (o *Operator) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(o.hash, []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  "operator",
		"role": "operator",
		"iat":  now.Unix(),
		"exp":  now.Add(operatorTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(o.secret)
	if err != nil {
		return "", fmt.Errorf("sign operator token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature, expiry and role claim.
func (o *Operator) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return o.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrBadToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != "operator" {
		return ErrBadToken
	}
	return nil
}

// Identity resolves participant tokens to participants, creating a fresh
// identity (generated display name + random token) on first visit.
type Identity struct {
	store repo.Store
}

func NewIdentity(store repo.Store) *Identity {
	return &Identity{store: store}
}

// Resolve returns the participant for the token, or nil when the token is
// empty or unknown.
func (i *Identity) Resolve(ctx context.Context, token string) (*model.Participant, error) {
	if token == "" {
		return nil, nil
	}
	return i.store.ParticipantByToken(ctx, token)
}

// Ensure returns the participant for the token, creating a new one when the
// token is empty or unknown. The returned participant carries its token.
func (i *Identity) Ensure(ctx context.Context, token string) (*model.Participant, error) {
	existing, err := i.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Token = token
		return existing, nil
	}

	name := GenerateName()
	newToken := uuid.NewString()
	id, err := i.store.CreateParticipant(ctx, name, newToken)
	if err != nil {
		return nil, err
	}
	return &model.Participant{ID: id, Name: name, Token: newToken}, nil
}

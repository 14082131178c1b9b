package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/kazz187/taskboard/pkg/cerr"
)

// ErrNoCredential is returned when no provider can supply a token.
var ErrNoCredential = errors.New("no access token available")

// StaticProvider returns a token taken from configuration.
type StaticProvider struct {
	Token string
}

func (p StaticProvider) AccessToken(context.Context) (string, error) {
	if p.Token == "" {
		return "", ErrNoCredential
	}
	return checkToken(p.Token, time.Now())
}

// FileProvider reads a token written by the external auth provider.
type FileProvider struct {
	Path string
}

func (p FileProvider) AccessToken(context.Context) (string, error) {
	if p.Path == "" {
		return "", ErrNoCredential
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("failed to read token file %s: %w", p.Path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoCredential
	}
	return checkToken(token, time.Now())
}

// Provider matches api.TokenProvider.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Chain tries providers in order and returns the first token found.
type Chain []Provider

func NewChain(providers ...Provider) Chain {
	return Chain(providers)
}

func (c Chain) AccessToken(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		token, err := p.AccessToken(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrNoCredential) {
			errs = append(errs, err)
		}
	}
	return "", cerr.NewError(cerr.Unauthenticated, "no credential available from configuration or auth provider",
		errors.Join(append([]error{ErrNoCredential}, errs...)...))
}

// Identity is the subset of token claims the client cares about.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// Inspect reads claims from a JWT without verifying its signature; the
// backend verifies. ok is false for opaque tokens.
func Inspect(token string) (Identity, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, false
	}
	id := Identity{}
	id.Subject, _ = claims["sub"].(string)
	id.Email, _ = claims["email"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		id.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return id, true
}

func checkToken(token string, now time.Time) (string, error) {
	id, ok := Inspect(token)
	if ok && !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt) {
		return "", fmt.Errorf("access token expired at %s: %w", id.ExpiresAt.Format(time.RFC3339), ErrNoCredential)
	}
	return token, nil
}

// Package jwtsecurity authenticates requests carrying a bearer JSON Web
// Token signed with a shared secret.
package jwtsecurity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/controller"
	"github.com/danpasecinic/trellis/adapters/security"
)

const (
	DefaultName          = "jwt"
	DefaultTokenDuration = 1500 * time.Second
	DefaultAlgorithm     = "HS256"

	bearerPrefix = "Bearer "
)

var errNoToken = errors.New("no bearer token in the Authorization header")

var algorithms = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

type Options struct {
	security.Options

	// Name is the security adapter name, DefaultName when empty.
	Name          string
	Secret        string
	TokenDuration time.Duration
	// Algorithm is one of HS256, HS384 and HS512.
	Algorithm string
}

type Adapter struct {
	*security.Adapter

	secret   []byte
	method   jwt.SigningMethod
	duration time.Duration
}

func New(opts Options) (*Adapter, error) {
	if opts.Secret == "" {
		return nil, trellis.NewError(trellis.ErrCodeBadInput, "jwt security needs a secret", nil)
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.TokenDuration == 0 {
		opts.TokenDuration = DefaultTokenDuration
	}
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	method, ok := algorithms[opts.Algorithm]
	if !ok {
		return nil, trellis.NewError(
			trellis.ErrCodeBadInput,
			fmt.Sprintf("unsupported jwt algorithm %q", opts.Algorithm),
			nil,
		)
	}

	a := &Adapter{
		secret:   []byte(opts.Secret),
		method:   method,
		duration: opts.TokenDuration,
	}
	a.Adapter = security.New(opts.Name, a, opts.Options)
	return a, nil
}

// CreateToken signs claims. "iat" and "exp" are set unless claims
// already holds them.
func (a *Adapter) CreateToken(claims jwt.MapClaims) (string, error) {
	body := make(jwt.MapClaims, len(claims)+2)
	maps.Copy(body, claims)

	now := time.Now()
	if _, ok := body["iat"]; !ok {
		body["iat"] = now.Unix()
	}
	if _, ok := body["exp"]; !ok {
		body["exp"] = now.Add(a.duration).Unix()
	}

	signed, err := jwt.NewWithClaims(a.method, body).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of token.
func (a *Adapter) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{a.method.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (a *Adapter) Supports(rc *controller.RequestContext) bool {
	return strings.Contains(rc.Request.Header("Authorization"), bearerPrefix)
}

// CreateRequestSecurityObject returns the verified claims, or nil when
// the token does not verify.
func (a *Adapter) CreateRequestSecurityObject(_ context.Context, rc *controller.RequestContext) (any, error) {
	claims, err := a.verifyRequest(rc.Request)
	if err != nil {
		a.Logger().Warn("could not get a valid token", "path", rc.Request.Path(), "error", err)
		return nil, nil
	}
	return claims, nil
}

func (a *Adapter) IsAuthenticated(_ context.Context, rc *controller.RequestContext) bool {
	_, err := a.verifyRequest(rc.Request)
	return err == nil
}

func (a *Adapter) verifyRequest(req *controller.Request) (jwt.MapClaims, error) {
	_, token, found := strings.Cut(req.Header("Authorization"), bearerPrefix)
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return nil, errNoToken
	}
	return a.Verify(token)
}

// Claims returns the claims stored on an authenticated request.
func Claims(req *controller.Request) (jwt.MapClaims, bool) {
	claims, ok := req.AuthMetadata().(jwt.MapClaims)
	return claims, ok
}

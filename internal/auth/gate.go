package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"weatherfav/internal/domain"
	"weatherfav/internal/repository"
)

// Method names the strategy that resolved a principal.
type Method string

const (
	MethodBearer  Method = "bearer"
	MethodSession Method = "session"
)

var (
	ErrMissingCredentials = errors.New("no credentials presented")
	ErrUnknownPrincipal   = errors.New("principal no longer exists")
	ErrNoSession          = errors.New("session not found")
)

// Principal is the identity attached to an authenticated request.
type Principal struct {
	User       domain.User
	Method     Method
	SessionKey string
}

// Outcome is the three-way result of an authentication attempt.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeResolved
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeFailed:
		return "failed"
	default:
		return "rejected"
	}
}

// Result carries a Principal when resolved, the rejection reason when
// rejected, or the store error when failed.
type Result struct {
	Outcome   Outcome
	Principal *Principal
	Err       error
}

func Resolved(p *Principal) Result { return Result{Outcome: OutcomeResolved, Principal: p} }
func Rejected(reason error) Result { return Result{Outcome: OutcomeRejected, Err: reason} }
func Failed(err error) Result { return Result{Outcome: OutcomeFailed, Err: err} }

// UserLoader loads the live user record behind a resolved identity.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Strategy authenticates a request with one kind of credential.
type Strategy interface {
	Method() Method
	Authenticate(r *http.Request) Result
}

// BearerStrategy accepts "Authorization: Bearer <token>".
type BearerStrategy struct {
	tokens *TokenManager
	users  UserLoader
}

func NewBearerStrategy(tokens *TokenManager, users UserLoader) *BearerStrategy {
	return &BearerStrategy{tokens: tokens, users: users}
}

func (s *BearerStrategy) Method() Method { return MethodBearer }

func (s *BearerStrategy) Authenticate(r *http.Request) Result {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Rejected(ErrMissingCredentials)
	}

	userID, err := s.tokens.Validate(token)
	if err != nil {
		return Rejected(err)
	}

	return loadPrincipal(r.Context(), s.users, userID, MethodBearer, "")
}

// SessionStrategy accepts the signed session cookie.
type SessionStrategy struct {
	sessions *SessionStore
	cookies  *CookieCodec
	users    UserLoader
}

func NewSessionStrategy(sessions *SessionStore, cookies *CookieCodec, users UserLoader) *SessionStrategy {
	return &SessionStrategy{sessions: sessions, cookies: cookies, users: users}
}

func (s *SessionStrategy) Method() Method { return MethodSession }

func (s *SessionStrategy) Authenticate(r *http.Request) Result {
	key, ok := s.cookies.Read(r)
	if !ok {
		return Rejected(ErrMissingCredentials)
	}

	userID, found, err := s.sessions.Resolve(r.Context(), key)
	if err != nil {
		return Failed(err)
	}
	if !found {
		return Rejected(ErrNoSession)
	}

	return loadPrincipal(r.Context(), s.users, userID, MethodSession, key)
}

// Gate runs its strategies in order. The first resolved principal wins, a
// store failure stops the chain, and anything else is a rejection.
type Gate struct {
	strategies []Strategy
}

func NewGate(strategies ...Strategy) *Gate {
	return &Gate{strategies: strategies}
}

func (g *Gate) Authenticate(r *http.Request) Result {
	rejected := Rejected(ErrMissingCredentials)
	for _, s := range g.strategies {
		res := s.Authenticate(r)
		switch res.Outcome {
		case OutcomeResolved:
			if res.Principal == nil {
				return Failed(errors.New("strategy resolved without a principal"))
			}
			return res
		case OutcomeFailed:
			return res
		default:
			// keep the most specific reason for logging
			if errors.Is(rejected.Err, ErrMissingCredentials) && res.Err != nil {
				rejected = res
			}
		}
	}
	return rejected
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func loadPrincipal(ctx context.Context, users UserLoader, userID int64, method Method, sessionKey string) Result {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Rejected(ErrUnknownPrincipal)
		}
		return Failed(err)
	}
	if user == nil {
		return Rejected(ErrUnknownPrincipal)
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return Resolved(&Principal{
		User:       sanitized,
		Method:     method,
		SessionKey: sessionKey,
	})
}

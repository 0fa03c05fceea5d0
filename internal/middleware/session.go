package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/common"
	commonHttp "github.com/Alturino/storefront/internal/common/http"
	"github.com/Alturino/storefront/internal/common/response"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/upstream"
)

// Session identifies the shopper a request belongs to. Exactly one of
// AuthToken and GuestSessionID is set. UserID is set only for verified tokens.
type Session struct {
	Key            string
	UserID         string
	AuthToken      string
	GuestSessionID string
}

type sessionKey struct{}

func SessionFromContext(c context.Context) (Session, bool) {
	s, ok := c.Value(sessionKey{}).(Session)
	return s, ok
}

func AttachSessionToContext(c context.Context, s Session) context.Context {
	return context.WithValue(c, sessionKey{}, s)
}

// Sessions resolves the shopper from a bearer auth token or the guest
// session header, minting a new guest session when neither is present.
// Tokens are verified against secretKey when it is not empty.
// Backend calls made with the request context carry the same credentials.
func Sessions(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return sessions(next, secretKey)
	}
}

func sessions(next http.Handler, secretKey []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		logger := zerolog.Ctx(c).With().Str(log.KeyTag, "middleware Sessions").Logger()

		session := Session{}
		authorization := strings.TrimSpace(r.Header.Get(commonHttp.HeaderAuthorization))
		switch {
		case len(authorization) > len("bearer ") && strings.EqualFold(authorization[:len("bearer ")], "bearer "):
			token := strings.TrimSpace(authorization[len("bearer "):])
			identity, err := common.IdentifyToken(c, token, secretKey)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				response.WriteFailed(c, w, http.StatusUnauthorized, err)
				return
			}
			session = Session{Key: identity.StoreKey, UserID: identity.Subject, AuthToken: token}
		case strings.TrimSpace(r.Header.Get(commonHttp.HeaderGuestSessionID)) != "":
			guestID := strings.TrimSpace(r.Header.Get(commonHttp.HeaderGuestSessionID))
			session = Session{Key: "guest:" + guestID, GuestSessionID: guestID}
		default:
			guestID := uuid.NewString()
			session = Session{Key: "guest:" + guestID, GuestSessionID: guestID}
			logger.Info().Str(log.KeySessionKey, session.Key).Msg("minted guest session")
		}
		if session.GuestSessionID != "" {
			w.Header().Set(commonHttp.HeaderGuestSessionID, session.GuestSessionID)
		}

		logger = logger.With().Str(log.KeySessionKey, session.Key).Logger()
		c = AttachSessionToContext(logger.WithContext(c), session)
		c = upstream.AttachCredentialsToContext(c, upstream.Credentials{
			AuthToken:      session.AuthToken,
			GuestSessionID: session.GuestSessionID,
		})
		next.ServeHTTP(w, r.WithContext(c))
	})
}

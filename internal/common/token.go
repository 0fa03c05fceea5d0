package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/log"
)

// TokenIdentity is what the gateway trusts about an auth token. Subject is set
// only when the signature was verified.
type TokenIdentity struct {
	Subject  string
	StoreKey string
}

// IdentifyToken resolves the cart store key of an auth token. With a secret
// key the token must carry a valid HMAC signature and the store is keyed by its
// subject. Without one the claims are only checked for shape and the store is
// keyed by a digest of the whole token, so a claimed subject never selects
// another shopper's state.
func IdentifyToken(c context.Context, token string, secretKey []byte) (TokenIdentity, error) {
	c, span := otel.Tracer.Start(c, "IdentifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "IdentifyToken").
		Bool("verified", len(secretKey) > 0).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing claims").Logger()
	logger.Trace().Msg("parsing claims")
	claims := jwt.RegisteredClaims{}
	var err error
	if len(secretKey) > 0 {
		_, err = jwt.ParseWithClaims(
			token,
			&claims,
			func(t *jwt.Token) (interface{}, error) {
				return secretKey, nil
			},
			jwt.WithValidMethods([]string{
				jwt.SigningMethodHS256.Name,
				jwt.SigningMethodHS384.Name,
				jwt.SigningMethodHS512.Name,
			}),
		)
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	}
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w", errors.Join(inErrors.ErrTokenInvalid, err))
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return TokenIdentity{}, err
	}
	logger.Trace().Msg("parsed claims")

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		err = fmt.Errorf("failed getting subject with error=%w", inErrors.ErrEmptySubject)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return TokenIdentity{}, err
	}

	if len(secretKey) == 0 {
		digest := sha256.Sum256([]byte(token))
		return TokenIdentity{StoreKey: "token:" + hex.EncodeToString(digest[:])}, nil
	}
	logger.Trace().Str(log.KeyUserID, subject).Msg("verified token")
	return TokenIdentity{Subject: subject, StoreKey: "user:" + subject}, nil
}

package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// ticketClaims binds a player to their seat in one session. Tickets are
// reconnect credentials, not account identity.
type ticketClaims struct {
	PlayerId  string `json:"playerId"`
	SessionId string `json:"sessionId"`
	jwt.RegisteredClaims
}

type TicketManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewTicketManager(secretKey []byte, maxAge time.Duration) *TicketManager {
	return &TicketManager{secretKey: secretKey, maxAge: maxAge}
}

func (m *TicketManager) Generate(playerId, sessionId string, now time.Time) (string, error) {
	claims := ticketClaims{
		PlayerId:  playerId,
		SessionId: sessionId,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.TokenError, err)
	}
	return signedToken, nil
}

// Verify returns the (playerId, sessionId) pair a ticket was issued for.
func (m *TicketManager) Verify(tokenString string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ticketClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSigningAlg
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSigningAlg):
			return "", "", err
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", "", domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return "", "", domain.ErrInvalidTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", "", domain.ErrCorruptedToken
		default:
			return "", "", fmt.Errorf("%w: %w", domain.TokenError, err)
		}
	}

	if claims, ok := token.Claims.(*ticketClaims); ok && token.Valid {
		return claims.PlayerId, claims.SessionId, nil
	}
	return "", "", domain.ErrCorruptedToken
}

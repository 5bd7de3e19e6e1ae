package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Claims holds the JWT payload of a seat token: the bearer plays Tribe in GameID.
type Claims struct {
	GameID string `json:"game_id"`
	Tribe  string `json:"tribe"`
	jwt.RegisteredClaims
}

// JWTManager handles seat token creation and validation.
type JWTManager struct {
	secret     []byte
	seatExpiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		seatExpiry: 30 * 24 * time.Hour,
	}
}

// IssueSeatToken creates a token granting control of tribe in gameID.
func (m *JWTManager) IssueSeatToken(gameID, tribe string) (string, error) {
	now := time.Now()
	claims := &Claims{
		GameID: gameID,
		Tribe:  tribe,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.seatExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   gameID + "/" + tribe,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.GameID == "" || claims.Tribe == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

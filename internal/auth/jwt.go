package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Leganyst/counselling-platform/internal/calendar"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims — полезная нагрузка токена, выданного сервисом аутентификации.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier проверяет HS256-токены общим секретом.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) ParseValidate(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Actor проверяет токен и превращает claims в актора.
func (v *Verifier) Actor(tokenStr string) (calendar.Actor, error) {
	c, err := v.ParseValidate(tokenStr)
	if err != nil {
		return calendar.Actor{}, err
	}
	actor, err := calendar.ValidateActor(c.Sub, c.Role)
	if err != nil {
		return calendar.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return actor, nil
}

// CreateAccessToken выпускает токен для актора. Ядро токены не раздаёт;
// функция нужна тестам и локальной отладке.
func CreateAccessToken(secret string, actor calendar.Actor, ttl time.Duration) (string, error) {
	claims := Claims{
		Sub:  actor.ID.String(),
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

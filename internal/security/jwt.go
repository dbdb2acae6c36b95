package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cwrk-planet/presence-service/internal/errs"

	"github.com/golang-jwt/jwt"
)

// TokenVerifier проверяет токены, выпущенные HTTP-сервисом аккаунтов (HS256, общий секрет).
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// AccessClaims: userId кладёт HTTP-сервис при signin; sub поддерживаем как запасной вариант.
type AccessClaims struct {
	UserID string `json:"userId,omitempty"`
	jwt.StandardClaims
}

// Sign выпускает токен с userId=accountID; ttl=0: без exp.
func (v *TokenVerifier) Sign(accountID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := AccessClaims{
		UserID: accountID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: now.Unix(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(v.secret)
}

func (v *TokenVerifier) ParseAndValidate(tokenStr string) (*AccessClaims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, errs.ErrInvalidToken
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return nil, errs.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, errs.ErrInvalidToken
	}

	return claims, nil
}

// Authenticate возвращает accountID из токена.
func (v *TokenVerifier) Authenticate(tokenStr string) (string, error) {
	claims, err := v.ParseAndValidate(tokenStr)
	if err != nil {
		return "", err
	}
	return SubjectAsAccountID(claims)
}

func SubjectAsAccountID(claims *AccessClaims) (string, error) {
	if claims == nil {
		return "", errs.ErrInvalidSubject
	}
	if id := strings.TrimSpace(claims.UserID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(claims.Subject); id != "" {
		return id, nil
	}

	return "", errs.ErrInvalidSubject
}

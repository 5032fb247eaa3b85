package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret = "test-jwt-secret-0123456789"
	JWTIssuer = "petadopt"
)

// SignToken 模拟身份服务签发访问令牌
func SignToken(t *testing.T, userID int64, ttl time.Duration) string {
	t.Helper()
	return SignTokenWith(t, JWTSecret, JWTIssuer, userID, ttl)
}

func SignTokenWith(t *testing.T, secret, issuer string, userID int64, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iss":     issuer,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

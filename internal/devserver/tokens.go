package devserver

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sipwell/sipwell-client/internal/models"
)

var errTokenExpired = errors.New("token is expired")

func (s *Server) issueAccessToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// verifyAccessToken checks the signature with the library and the expiry
// against the server clock, it returns the token subject.
func (s *Server) verifyAccessToken(token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return "", errTokenExpired
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("the token has no subject")
	}
	return claims.Subject, nil
}

// issueTokens creates a new session for the user.
func (s *Server) issueTokens(userID string) (models.TokenSet, error) {
	accessToken, err := s.issueAccessToken(userID)
	if err != nil {
		return models.TokenSet{}, err
	}
	refreshToken := uuid.NewString()
	s.data.saveRefreshToken(refreshToken, userID)
	return models.TokenSet{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

package devserver

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sipwell/sipwell-client/internal/payloads"
	"golang.org/x/crypto/bcrypt"
)

// profileFields are the user attributes that can be read and changed through the profile routes.
var profileFields = []string{
	"name",
	"age",
	"gender",
	"weight",
	"height",
	"activity",
	"climate",
	"pregnancy",
	"unit",
}

var refreshTokenPaths = payloads.ParsePaths("refresh_token", "refreshToken", "token")

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         map[string]any `json:"user"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) PostRegister(c echo.Context) error {
	body := map[string]any{}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, message("Invalid request body"))
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	if strings.TrimSpace(email) == "" || password == "" {
		return c.JSON(http.StatusBadRequest, message("Email and password are required"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	profile := map[string]any{}
	for _, field := range profileFields {
		if value, found := body[field]; found {
			profile[field] = value
		}
	}
	u := user{ID: uuid.NewString(), Email: email, PasswordHash: hash, Profile: profile}
	if !s.data.addUser(u) {
		return c.JSON(http.StatusConflict, message("User already exists"))
	}
	slog.Info("DEVSERVER", "message", "registered user", "userID", u.ID, "requestID", requestID(c))
	return c.JSON(http.StatusCreated, message("User registered successfully"))
}

func (s *Server) PostLogin(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return c.JSON(http.StatusBadRequest, message("Invalid request body"))
	}
	u, found := s.data.userByEmail(creds.Email)
	if !found || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(creds.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, message("Invalid email or password"))
	}
	tokens, err := s.issueTokens(u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         s.data.profile(u.ID),
	})
}

// PostRefresh exchanges a refresh token for a new access token. The token is read
// from any of the field names clients use. With rotation enabled the old refresh
// token stops working.
func (s *Server) PostRefresh(c echo.Context) error {
	refreshToken, err := readRefreshToken(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, message("Invalid request body"))
	}
	if refreshToken == "" {
		return c.JSON(http.StatusBadRequest, message("refresh token is required"))
	}
	userID, found := s.data.refreshTokenOwner(refreshToken)
	if !found || !s.data.userExists(userID) {
		slog.Info("DEVSERVER", "message", "refresh with an unknown token", "requestID", requestID(c))
		return c.JSON(http.StatusForbidden, message("refresh token invalid"))
	}
	accessToken, err := s.issueAccessToken(userID)
	if err != nil {
		return err
	}
	response := refreshResponse{AccessToken: accessToken, RefreshToken: refreshToken}
	if s.config.RotateRefreshTokens {
		s.data.revokeRefreshToken(refreshToken)
		response.RefreshToken = uuid.NewString()
		s.data.saveRefreshToken(response.RefreshToken, userID)
	}
	return c.JSON(http.StatusOK, response)
}

// PostLogout revokes the refresh token in the body, unknown tokens are ignored.
func (s *Server) PostLogout(c echo.Context) error {
	refreshToken, err := readRefreshToken(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, message("Invalid request body"))
	}
	if refreshToken != "" {
		s.data.revokeRefreshToken(refreshToken)
	}
	return c.JSON(http.StatusOK, message("Logged out"))
}

func readRefreshToken(c echo.Context) (string, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", err
	}
	token, _ := payloads.FirstString(body, refreshTokenPaths...)
	return strings.TrimSpace(token), nil
}

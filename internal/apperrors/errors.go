// Package apperrors contains all common errors used by the sipwell client.
package apperrors

import "fmt"

var ErrInvalidCredentials = fmt.Errorf("the credentials were rejected by the backend")
var ErrMalformedResponse = fmt.Errorf("the backend response does not contain a usable access token")
var ErrNoRefreshToken = fmt.Errorf("there is no refresh token in the token store")
var ErrRefreshRejected = fmt.Errorf("the refresh token was rejected by the backend")
var ErrRefreshUnavailable = fmt.Errorf("the token refresh could not be completed")
var ErrTokenNotFound = fmt.Errorf("the token cannot be found")
var ErrEmptyAccessToken = fmt.Errorf("an access token cannot be empty")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")

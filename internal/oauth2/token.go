package oauth2

import (
	"strings"
	"time"
)

// NeverExpires is the missing-expiry policy under which a token granted
// without expires_in is treated as valid until the server rejects it.
const NeverExpires time.Duration = -1

// tokenResponse is the JSON body returned by the NIC.RU token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    *int64 `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// errorResponse is the JSON body of a rejected token request.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Token is a granted OAuth2 credential. IssuedAt is recorded locally when the
// grant response is received, so expiry never depends on the server clock.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	// NoExpiry is set when the server omitted expires_in and the manager
	// treats such tokens as never expiring.
	NoExpiry bool `json:"no_expiry,omitempty"`
}

// ExpiresAt returns IssuedAt + ExpiresIn, or the zero time for a
// never-expiring token.
func (t Token) ExpiresAt() time.Time {
	if t.NoExpiry {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// ExpiredAt reports whether the token is expired at now, treating it as
// expired skew early. An expires_in of 0 is expired from the moment it is
// issued.
func (t Token) ExpiredAt(now time.Time, skew time.Duration) bool {
	if t.NoExpiry {
		return false
	}
	return !now.Add(skew).Before(t.ExpiresAt())
}

// HasRefreshToken reports whether the token can be renewed with the refresh grant
func (t Token) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// AuthorizationHeader returns the value for the Authorization header
func (t Token) AuthorizationHeader() string {
	return "Bearer " + t.AccessToken
}

func isBearer(tokenType string) bool {
	return tokenType == "" || strings.EqualFold(tokenType, "bearer")
}

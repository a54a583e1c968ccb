package model

import "golang.org/x/oauth2"

// TokenPair is the short-lived access token and the refresh token used to
// mint new access tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether either half of the pair is missing.
func (p TokenPair) Empty() bool {
	return p.Access == "" || p.Refresh == ""
}

// Clone returns a pointer copy of p, or nil when p is empty.
func (p *TokenPair) Clone() *TokenPair {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// OAuth2Token exposes the pair as a bearer oauth2.Token so it can be used
// with oauth2-aware HTTP clients.
func (p TokenPair) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.Access,
		TokenType:    "Bearer",
		RefreshToken: p.Refresh,
	}
}

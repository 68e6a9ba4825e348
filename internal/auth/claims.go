package auth

import "time"

// Claims are the decrypted contents of a Shelfwise token. Access and refresh
// tokens carry the same claims and differ only in audience and lifetime.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Identity returns the principal the claims describe.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// TokenPair is what login and refresh hand back to a client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int       `json:"expires_in"` // access token lifetime in seconds
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

package models

import (
	"context"
	"time"
)

// ShopCredential is the stored access credential for one shop domain,
// written by the app installation flow and read by the resolver. The
// pipeline borrows the token for the duration of one request only.
type ShopCredential struct {
	Domain      string    `json:"domain" db:"domain"`
	AccessToken string    `json:"accessToken" db:"access_token"`
	Scope       string    `json:"scope,omitempty" db:"scope"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty" db:"expires_at"`
}

// IsExpired checks whether the credential has an expiry and it has passed.
func (c *ShopCredential) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// CredentialStore defines credential data access. FindByDomain returns
// (nil, nil) when no credential is stored for the domain; absence is an
// expected outcome, not an error.
type CredentialStore interface {
	FindByDomain(ctx context.Context, domain string) (*ShopCredential, error)
}

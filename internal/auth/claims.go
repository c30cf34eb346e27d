// Package auth validates and mints the HS256 bearer tokens that gate crawling.
package auth

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
)

// PermissionCrawl is the scope required to call the crawl endpoint.
const PermissionCrawl = "crawl"

// Permissions is the decoded permission set. Tokens may carry either a JSON
// array of strings or a single string.
type Permissions []string

// UnmarshalJSON accepts `["crawl","other"]` as well as `"crawl"`.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*p = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("permissions must be a string or list of strings: %w", err)
	}
	*p = Permissions{one}
	return nil
}

// Has reports whether perm is in the set.
func (p Permissions) Has(perm string) bool {
	return lo.Contains(p, perm)
}

// Claims is the token payload: identity plus permission scope.
type Claims struct {
	ClientID    string      `json:"client_id"`
	Permissions Permissions `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// CanCrawl reports whether the claims authorize crawling.
func (c Claims) CanCrawl() bool {
	return c.Permissions.Has(PermissionCrawl)
}

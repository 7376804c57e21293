package admin

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrUnauthorized is returned for callers that are neither a listed admin nor
// hold the admin token.
var ErrUnauthorized = errors.New("admin access required")

// Auth decides who may use admin operations. Caller ids are trusted as
// delivered by the fronting gateway.
type Auth struct {
	ids   map[string]struct{}
	token string
}

func NewAuth(ids []string, token string) *Auth {
	a := &Auth{ids: make(map[string]struct{}, len(ids)), token: strings.TrimSpace(token)}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			a.ids[id] = struct{}{}
		}
	}
	return a
}

// IsAdmin reports whether id is a configured admin.
func (a *Auth) IsAdmin(id string) bool {
	_, ok := a.ids[strings.TrimSpace(id)]
	return ok
}

// Check passes when callerID is a configured admin or token matches the
// configured admin token.
func (a *Auth) Check(callerID, token string) error {
	if a.IsAdmin(callerID) {
		return nil
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(a.token), []byte(strings.TrimSpace(token))) == 1 {
		return nil
	}
	return ErrUnauthorized
}

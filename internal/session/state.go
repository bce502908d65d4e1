package session

import (
	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
)

// State is a point-in-time copy of a controller's session state.
// IsAuthenticated is true exactly when User is non-nil.
type State struct {
	User            *domainauth.User      `json:"user"`
	Profile         *domainauth.Profile   `json:"profile"`
	IsLoading       bool                  `json:"isLoading"`
	IsInitializing  bool                  `json:"isInitializing"`
	IsAuthenticated bool                  `json:"isAuthenticated"`
	Error           *domainauth.AuthError `json:"error"`
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.Error = s.Error.Clone()
	return out
}

// Package session exposes the current-user accessor the sync layer depends
// on. Authentication itself happens elsewhere; this package only answers
// "who is entering data right now".
package session

// User is the identity attached to measurement rows. NumStart is the start
// of the user's configured numbering range, used for provisional numéros
// while offline.
type User struct {
	ID        string
	FirstName string
	LastName  string
	NumStart  int
}

// Session yields the current user, if any.
type Session interface {
	CurrentUser() (*User, bool)
}

// Static is a fixed-user session, used by the CLI and in tests.
type Static struct {
	User *User
}

func (s *Static) CurrentUser() (*User, bool) {
	if s == nil || s.User == nil {
		return nil, false
	}
	return s.User, true
}

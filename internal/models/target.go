package models

import "errors"

// SuperUser is the account that never needs privilege escalation.
const SuperUser = "root"

// ErrCancelled is returned when the operator declines to continue.
// It marks a deliberate stop, not a failure.
var ErrCancelled = errors.New("remote server install cancelled")

// ServerTarget is the remote host once its address has been confirmed.
type ServerTarget struct {
	Hostname   string
	ResolvedIP string // empty unless DNS resolution succeeded
}

// AdminIdentity is the remote account used to provision the host.
type AdminIdentity struct {
	Username string
	ClientIP string // our address as seen by the remote host, empty until access is granted
}

// IsSuperUser reports whether the identity is the superuser account.
func (a AdminIdentity) IsSuperUser() bool {
	return a.Username == SuperUser
}

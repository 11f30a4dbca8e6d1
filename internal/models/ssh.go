package models

// PublicKey is the operator's local SSH public key.
type PublicKey struct {
	Path        string
	Authorized  string // authorized_keys line as read from disk
	Type        string
	Fingerprint string
	Comment     string
}

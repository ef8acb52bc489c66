package domain

// User is the single admin credential record. PasswordHash is a bcrypt hash
// for records written by this service; legacy deployments may still hold the
// old reversible base64 encoding, which pkg/crypto can verify.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

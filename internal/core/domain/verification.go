package domain

import "time"

// CodePurpose scopes a verification code to the action it confirms.
type CodePurpose string

const (
	PurposeRegister       CodePurpose = "register"
	PurposeUpdatePassword CodePurpose = "update_password"
	PurposeUpdateUser     CodePurpose = "update_user"
)

type purposeSpec struct {
	keyPrefix string
	ttl       time.Duration
	subject   string
	label     string
}

var purposes = map[CodePurpose]purposeSpec{
	PurposeRegister:       {keyPrefix: "captcha", ttl: 5 * time.Minute, subject: "Registration verification code", label: "registration"},
	PurposeUpdatePassword: {keyPrefix: "update_password_captcha", ttl: 10 * time.Minute, subject: "Password change verification code", label: "password change"},
	PurposeUpdateUser:     {keyPrefix: "update_user_captcha", ttl: 10 * time.Minute, subject: "Profile update verification code", label: "profile update"},
}

// Valid reports whether p is a known purpose.
func (p CodePurpose) Valid() bool {
	_, ok := purposes[p]
	return ok
}

// TTL is how long a code issued for p stays redeemable.
func (p CodePurpose) TTL() time.Duration {
	return purposes[p].ttl
}

// Key returns the cache key for a code sent to address: {prefix}_{address}.
func (p CodePurpose) Key(address string) string {
	return purposes[p].keyPrefix + "_" + address
}

// Subject is the mail subject used when delivering a code for p.
func (p CodePurpose) Subject() string {
	return purposes[p].subject
}

// Label is a human-readable name for p.
func (p CodePurpose) Label() string {
	return purposes[p].label
}

package auth

import "time"

// DefaultPasswordChangeSkew backdates the recorded change so a token minted
// in the same request is not rejected by ChangedPasswordAfter.
const DefaultPasswordChangeSkew = time.Second

// RecordPasswordChange stamps user with now minus skew.
func RecordPasswordChange(user *User, now time.Time, skew time.Duration) {
	changed := now.Add(-skew).UTC()
	user.PasswordChangedAt = &changed
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt. The token iat claim only carries whole seconds,
// so the change time is rounded up to the next second before comparing.
// Users that never changed their password always report false.
func ChangedPasswordAfter(user *User, issuedAt time.Time) bool {
	if user == nil || user.PasswordChangedAt == nil {
		return false
	}
	changed := user.PasswordChangedAt.Unix()
	if user.PasswordChangedAt.Nanosecond() > 0 {
		changed++
	}
	return issuedAt.Unix() < changed
}

package session

import "time"

// Session is the token pair of an authenticated user together with the
// profile returned by the remote API. The zero value means "no session".
type Session struct {
	AccessToken        string    // Bearer credential for protected API calls
	RefreshToken       string    // Credential used solely to obtain a new access token
	AccessTokenExpiry  time.Time // Zero when the remote API did not tell
	RefreshTokenExpiry time.Time // Zero when the remote API did not tell
	SubjectID          string    // User ID in the remote API
	DisplayName        string
	Email              string
}

func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// ExpiresWithin reports whether the access token expires in less than d.
// Sessions without a known expiry never do.
func (s Session) ExpiresWithin(d time.Duration) bool {
	if s.AccessTokenExpiry.IsZero() {
		return false
	}

	return time.Until(s.AccessTokenExpiry) < d
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleTourGuide Role = "tourGuide"
)

// Registration is the profile submitted when creating a user or tour guide account.
type Registration struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	Country         string `json:"country,omitempty"`
	Role            Role   `json:"role,omitempty"`
}

package models

const (
	RoleGuest  = 0
	RoleCommon = 1
	RoleAdmin  = 10
	RoleRoot   = 100
)

type User struct {
	ID          int    `json:"id" yaml:"id"`
	Username    string `json:"username" yaml:"username"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Role        int    `json:"role" yaml:"role"`
	Status      int    `json:"status,omitempty" yaml:"status,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role >= RoleAdmin
}

// Name prefers the display name.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

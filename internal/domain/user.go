package domain

import "time"

type User struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Surname          string     `json:"surname"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	IsAdmin          bool       `json:"is_admin"`
	ResetCode        string     `json:"-"`
	ResetCodeExpires *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

// HasActiveResetCode indica si el usuario tiene un codigo de reset vigente.
// Un codigo sin expiracion valida se trata como ausente.
func (u User) HasActiveResetCode(now time.Time) bool {
	if u.ResetCode == "" || u.ResetCodeExpires == nil {
		return false
	}
	return now.Before(*u.ResetCodeExpires)
}

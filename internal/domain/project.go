package domain

import "time"

type Project struct {
	ID          int64     `json:"id"`
	AdminID     int64     `json:"admin_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	UserID      int64     `json:"user_id"`
}

// ProjectSummary es la vista reducida usada en el perfil de usuario.
type ProjectSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

package domain

import "time"

type Task struct {
	ID          int64     `json:"id"`
	AdminID     int64     `json:"admin_id"`
	ProjectID   int64     `json:"project_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	IsCompleted bool      `json:"is_completed"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	UserID      int64     `json:"user_id"`
}

// TaskSummary es la vista reducida usada en el perfil de usuario.
type TaskSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	IsCompleted bool   `json:"is_completed"`
}

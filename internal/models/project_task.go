package models

import "time"

// Task status values.
const (
	TaskNotStarted = "Not Started"
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
)

// ProjectTask is a unit of work tracked on a project board.
type ProjectTask struct {
	BaseModel

	ProjectID   string     `gorm:"type:varchar(36);index;not null" json:"project_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	AssignedTo  *string    `gorm:"type:varchar(64);index" json:"assigned_to,omitempty"`
	CreatedBy   string     `gorm:"type:varchar(64);not null" json:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `gorm:"type:varchar(32);not null;default:'Not Started'" json:"status"`
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

package models

// ProjectMessage is a chat message posted to a project's team channel.
type ProjectMessage struct {
	BaseModel

	ProjectID string `gorm:"type:varchar(36);index;not null" json:"project_id"`
	SenderID  string `gorm:"type:varchar(64);not null" json:"sender_id"`
	Body      string `gorm:"type:text;not null" json:"body"`
}

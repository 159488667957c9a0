package notification

import "time"

const (
	KindNewTask    = "new_task"
	KindNewMessage = "new_message"
)

type Notification struct {
	ID         string    `gorm:"primaryKey;column:id"`
	IdentityID string    `gorm:"column:identity_id;not null;index"`
	Kind       string    `gorm:"column:kind;not null"`
	Title      string    `gorm:"column:title;not null"`
	Body       string    `gorm:"column:body"`
	EntityID   string    `gorm:"column:entity_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

package models

// User represents an account that owns tasks and notifications. Registration,
// credentials and sessions are managed by the auth service; this table only
// anchors ownership foreign keys.
type User struct {
	BaseModel

	Username string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`

	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`
	Tasks         []Task         `gorm:"foreignKey:UserID" json:"-"`
}

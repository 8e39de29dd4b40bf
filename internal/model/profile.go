package model

// Profile a provider-facing identity owned by a user. Managed elsewhere; read-only here.
type Profile struct {
	ID          string `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      string `gorm:"type:varchar(64);not null;index" json:"user_id"`
	DisplayName string `gorm:"type:varchar(100);not null" json:"display_name"`
}

// TableName set name
func (Profile) TableName() string {
	return "profiles"
}

// Service a catalog entry offered by a profile. Read-only here.
type Service struct {
	ID        string `gorm:"type:char(36);primaryKey" json:"id"`
	ProfileID string `gorm:"type:char(36);not null;index" json:"profile_id"`
	Title     string `gorm:"type:varchar(200);not null" json:"title"`
	Price     int64  `gorm:"type:bigint;not null;comment:price (cents)" json:"price"`
}

// TableName set name
func (Service) TableName() string {
	return "services"
}

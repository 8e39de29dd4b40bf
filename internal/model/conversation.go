package model

import (
	"time"
)

// Conversation one messaging channel per unordered pair of users.
// Participant1ID is always the lexicographically smaller ID.
type Conversation struct {
	ID             string    `gorm:"type:char(36);primaryKey;comment:conversation ID" json:"id"`
	Participant1ID string    `gorm:"column:participant_1_id;type:varchar(64);not null;uniqueIndex:idx_conversation_pair,priority:1;comment:smaller participant ID" json:"participant_1_id"`
	Participant2ID string    `gorm:"column:participant_2_id;type:varchar(64);not null;uniqueIndex:idx_conversation_pair,priority:2;index;comment:larger participant ID" json:"participant_2_id"`
	LastMessageAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:last activity" json:"last_message_at"`
	CreatedAt      time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:created at" json:"created_at"`
}

// TableName set name
func (Conversation) TableName() string {
	return "conversations"
}

// CanonicalPair orders two user IDs so a pair has exactly one stored form
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant check userID is one of the two participants
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

package model

import (
	"time"
)

// ResponseStatus bid status
type ResponseStatus string

// Response status const
const (
	ResponseStatusPending  ResponseStatus = "pending"
	ResponseStatusViewed   ResponseStatus = "viewed"
	ResponseStatusAccepted ResponseStatus = "accepted"
	ResponseStatusRejected ResponseStatus = "rejected"
)

var responseTransitions = map[ResponseStatus][]ResponseStatus{
	ResponseStatusPending: {ResponseStatusViewed, ResponseStatusAccepted, ResponseStatusRejected},
	ResponseStatusViewed:  {ResponseStatusViewed, ResponseStatusAccepted, ResponseStatusRejected},
}

// ParseResponseStatus converts user input to a status
func ParseResponseStatus(s string) (ResponseStatus, bool) {
	status := ResponseStatus(s)
	switch status {
	case ResponseStatusPending, ResponseStatusViewed, ResponseStatusAccepted, ResponseStatusRejected:
		return status, true
	}
	return "", false
}

// IsTerminal accepted and rejected bids never change again
func (s ResponseStatus) IsTerminal() bool {
	return s == ResponseStatusAccepted || s == ResponseStatusRejected
}

// CanTransitionTo check next is reachable from s
func (s ResponseStatus) CanTransitionTo(next ResponseStatus) bool {
	for _, allowed := range responseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ResponseSourcesFor lists statuses that may move to target
func ResponseSourcesFor(target ResponseStatus) []ResponseStatus {
	var sources []ResponseStatus
	for _, from := range []ResponseStatus{ResponseStatusPending, ResponseStatusViewed} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// Response a provider's bid on a request
type Response struct {
	ID              string         `gorm:"type:char(36);primaryKey;comment:response ID" json:"id"`
	RequestID       string         `gorm:"type:char(36);not null;uniqueIndex:uk_response_request_profile,priority:1;comment:request ID" json:"request_id"`
	ProfileID       string         `gorm:"type:char(36);not null;uniqueIndex:uk_response_request_profile,priority:2;comment:bidding profile ID" json:"profile_id"`
	PerformerUserID string         `gorm:"type:varchar(64);not null;index;comment:user owning the bidding profile" json:"performer_user_id"`
	Price           int64          `gorm:"type:bigint;not null;comment:offered price (cents)" json:"price"`
	Message         *string        `gorm:"type:varchar(2000);comment:cover message" json:"message,omitempty"`
	Status          ResponseStatus `gorm:"type:varchar(20);not null;default:pending;comment:pending, viewed, accepted, rejected" json:"status"`
	CreatedAt       time.Time      `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:created at" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated at" json:"updated_at"`
}

// TableName set name
func (Response) TableName() string {
	return "responses"
}

// BidKey identifies the (request, profile) pair a bid occupies
func BidKey(requestID, profileID string) string {
	return requestID + ":" + profileID
}

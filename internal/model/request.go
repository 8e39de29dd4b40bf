package model

import (
	"time"
)

// RequestStatus request lifecycle status
type RequestStatus string

// Request status const
const (
	RequestStatusActive     RequestStatus = "active"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusClosed     RequestStatus = "closed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusActive:     {RequestStatusInProgress, RequestStatusClosed, RequestStatusCancelled},
	RequestStatusInProgress: {RequestStatusClosed},
}

// Valid check status is a known value
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusActive, RequestStatusInProgress, RequestStatusClosed, RequestStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo check next is reachable from s
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequestSourcesFor lists statuses that may move to target
func RequestSourcesFor(target RequestStatus) []RequestStatus {
	var sources []RequestStatus
	for _, from := range []RequestStatus{RequestStatusActive, RequestStatusInProgress, RequestStatusClosed, RequestStatusCancelled} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// Request a client-published open request providers can bid on
type Request struct {
	ID             string        `gorm:"type:char(36);primaryKey;comment:request ID" json:"id"`
	RequestNo      string        `gorm:"type:varchar(32);uniqueIndex;not null;comment:human-facing request number" json:"request_no"`
	ClientID       string        `gorm:"type:varchar(64);not null;index:idx_requests_client_created,priority:1;comment:owning client user ID" json:"client_id"`
	Title          string        `gorm:"type:varchar(200);not null;comment:title" json:"title"`
	Description    string        `gorm:"type:text;comment:description" json:"description,omitempty"`
	Budget         int64         `gorm:"type:bigint;not null;default:0;comment:budget (cents)" json:"budget"`
	Status         RequestStatus `gorm:"type:varchar(20);not null;default:active;index;comment:active, in_progress, closed, cancelled" json:"status"`
	ResponsesCount int           `gorm:"type:int;not null;default:0;comment:number of submitted responses" json:"responses_count"`
	CreatedAt      time.Time     `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index:idx_requests_client_created,priority:2;comment:created at" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated at" json:"updated_at"`
}

// TableName set name
func (Request) TableName() string {
	return "requests"
}

// IsOpen check request accepts new responses
func (r *Request) IsOpen() bool {
	return r.Status == RequestStatusActive
}

// IsOwnedBy check userID published the request
func (r *Request) IsOwnedBy(userID string) bool {
	return r.ClientID == userID
}

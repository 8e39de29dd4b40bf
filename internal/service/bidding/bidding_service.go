package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/repository"
	"marketplace/internal/service/conversation"
	"marketplace/internal/service/notify"
	"marketplace/internal/service/profile"
	"marketplace/pkg/bloom"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// SubmitInput a bid on a request
type SubmitInput struct {
	RequestID       string  `json:"-"`
	ProfileID       string  `json:"profile_id" binding:"required"`
	PerformerUserID string  `json:"-"`
	Price           int64   `json:"price"`
	Message         *string `json:"message" binding:"omitempty,max=2000"`
}

// AcceptResult outcome of a committed acceptance
type AcceptResult struct {
	Response     *model.Response     `json:"response"`
	Conversation *model.Conversation `json:"conversation"`
}

// BiddingService response ledger and matching orchestrator
type BiddingService interface {
	// Submit places a pending bid and bumps the request's responses_count
	Submit(ctx context.Context, in SubmitInput) (*model.Response, error)

	// SetStatus moves a bid to viewed, accepted or rejected on behalf of the request owner
	SetStatus(ctx context.Context, responseID string, status model.ResponseStatus, actingUserID string) (*model.Response, error)

	// MarkViewed records that the request owner has seen the bid
	MarkViewed(ctx context.Context, responseID, clientID string) (*model.Response, error)

	// Accept accepts the bid, moves the request to in_progress and opens
	// the client/performer conversation in one unit
	Accept(ctx context.Context, responseID, clientID string) (*AcceptResult, error)

	// Reject rejects the bid
	Reject(ctx context.Context, responseID, clientID string) (*model.Response, error)

	// ListForRequest lists bids on a request, owner only
	ListForRequest(ctx context.Context, requestID, clientID string) ([]*model.Response, error)

	// ListMine lists the user's own bids
	ListMine(ctx context.Context, performerUserID string, page, pageSize int) ([]*model.Response, int64, error)
}

// biddingService bidding service implementation
type biddingService struct {
	responses  repository.ResponseRepository
	requests   repository.RequestRepository
	profiles   profile.ProfileService
	dispatcher notify.Dispatcher
	bidFilter  *bloom.Filter
	metrics    *monitor.MetricsCollector
	now        func() time.Time
}

// NewBiddingService creates a bidding service. bidFilter may be nil, in
// which case every submission reads for an existing bid first.
func NewBiddingService(
	responses repository.ResponseRepository,
	requests repository.RequestRepository,
	profiles profile.ProfileService,
	dispatcher notify.Dispatcher,
	bidFilter *bloom.Filter,
	metrics *monitor.MetricsCollector,
) BiddingService {
	return &biddingService{
		responses:  responses,
		requests:   requests,
		profiles:   profiles,
		dispatcher: dispatcher,
		bidFilter:  bidFilter,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Submit submits a bid
func (s *biddingService) Submit(ctx context.Context, in SubmitInput) (resp *model.Response, err error) {
	ctx, span := monitor.StartSpan(ctx, "bidding.Submit",
		attribute.String("request.id", in.RequestID),
		attribute.String("profile.id", in.ProfileID),
	)
	defer func() {
		s.metrics.RecordBidSubmission(errorLabel(err))
		monitor.EndSpan(span, err)
	}()

	if in.Price <= 0 {
		return nil, utils.ErrInvalidParam.WithMessage("price must be positive")
	}

	req, err := s.loadRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsOpen() {
		return nil, utils.ErrRequestClosed
	}

	prof, err := s.profiles.GetProfile(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}
	if prof.UserID != in.PerformerUserID {
		return nil, utils.ErrForbidden.WithMessage("profile does not belong to you")
	}
	if req.IsOwnedBy(in.PerformerUserID) {
		return nil, utils.ErrSelfBidForbidden
	}

	key := model.BidKey(in.RequestID, in.ProfileID)
	if err := s.checkDuplicate(ctx, key, in.RequestID, in.ProfileID); err != nil {
		return nil, err
	}

	resp = &model.Response{
		ID:              uuid.NewString(),
		RequestID:       in.RequestID,
		ProfileID:       in.ProfileID,
		PerformerUserID: in.PerformerUserID,
		Price:           in.Price,
		Message:         in.Message,
		Status:          model.ResponseStatusPending,
	}

	if err := s.responses.Submit(ctx, resp); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			s.remember(key)
			return nil, utils.ErrDuplicateBid
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, utils.ErrRequestClosed
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, utils.ErrRequestNotFound
		}
		return nil, utils.StorageError(err)
	}
	s.remember(key)

	log.FromContext(ctx).WithFields(map[string]interface{}{
		"response_id": resp.ID,
		"request_id":  resp.RequestID,
		"profile_id":  resp.ProfileID,
		"price":       resp.Price,
	}).Info("Response submitted")

	s.dispatcher.Notify(ctx, &model.NotificationMessage{
		UserID:    req.ClientID,
		Type:      model.NotificationResponseNew,
		Title:     "New response to your request",
		Body:      fmt.Sprintf("%s responded to %q", prof.DisplayName, req.Title),
		ActionURL: "/requests/" + req.ID,
		Data: model.JSONMap{
			"request_id":  req.ID,
			"response_id": resp.ID,
			"price":       resp.Price,
		},
	})
	return resp, nil
}

// checkDuplicate reads for an existing bid only when the filter has seen the key
func (s *biddingService) checkDuplicate(ctx context.Context, key, requestID, profileID string) error {
	if s.bidFilter != nil && !s.bidFilter.Test(key) {
		s.metrics.RecordBidFilterLookup("miss")
		return nil
	}

	exists, err := s.responses.Exists(ctx, requestID, profileID)
	if err != nil {
		return utils.StorageError(err)
	}
	if exists {
		s.metrics.RecordBidFilterLookup("hit")
		return utils.ErrDuplicateBid
	}
	s.metrics.RecordBidFilterLookup("false_positive")
	return nil
}

func (s *biddingService) remember(key string) {
	if s.bidFilter != nil {
		s.bidFilter.Add(key)
	}
}

// SetStatus changes a bid status
func (s *biddingService) SetStatus(ctx context.Context, responseID string, status model.ResponseStatus, actingUserID string) (*model.Response, error) {
	switch status {
	case model.ResponseStatusViewed:
		return s.MarkViewed(ctx, responseID, actingUserID)
	case model.ResponseStatusAccepted:
		result, err := s.Accept(ctx, responseID, actingUserID)
		if err != nil {
			return nil, err
		}
		return result.Response, nil
	case model.ResponseStatusRejected:
		return s.Reject(ctx, responseID, actingUserID)
	}
	if _, _, err := s.loadOwned(ctx, responseID, actingUserID); err != nil {
		return nil, err
	}
	return nil, utils.ErrInvalidTransition.WithMessage(fmt.Sprintf("cannot move a response to %q", status))
}

// MarkViewed marks a bid viewed
func (s *biddingService) MarkViewed(ctx context.Context, responseID, clientID string) (resp *model.Response, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordBidDecision(string(model.ResponseStatusViewed), errorLabel(err), time.Since(start))
	}()

	resp, _, err = s.loadForDecision(ctx, responseID, clientID, model.ResponseStatusViewed)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, resp, model.ResponseStatusViewed); err != nil {
		return nil, err
	}
	return resp, nil
}

// Accept accepts a bid
func (s *biddingService) Accept(ctx context.Context, responseID, clientID string) (result *AcceptResult, err error) {
	start := time.Now()
	ctx, span := monitor.StartSpan(ctx, "bidding.Accept",
		attribute.String("response.id", responseID),
	)
	defer func() {
		s.metrics.RecordBidDecision(string(model.ResponseStatusAccepted), errorLabel(err), time.Since(start))
		monitor.EndSpan(span, err)
	}()

	resp, req, err := s.loadForDecision(ctx, responseID, clientID, model.ResponseStatusAccepted)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conv, err := conversation.New(clientID, resp.PerformerUserID, now)
	if err != nil {
		return nil, err
	}

	stored, err := s.responses.Accept(ctx, resp.ID, req.ID, conv)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, utils.ErrInvalidTransition.WithMessage("response or request is no longer open")
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, utils.ErrNotFound.WithMessage("response or request no longer exists")
		}
		return nil, utils.StorageError(err)
	}

	if stored.ID == conv.ID {
		s.metrics.RecordConversation("created")
	} else {
		s.metrics.RecordConversation("existing")
	}

	resp.Status = model.ResponseStatusAccepted
	resp.UpdatedAt = now
	span.SetAttributes(attribute.String("conversation.id", stored.ID))

	log.FromContext(ctx).WithFields(map[string]interface{}{
		"response_id":     resp.ID,
		"request_id":      req.ID,
		"conversation_id": stored.ID,
		"performer_id":    resp.PerformerUserID,
	}).Info("Response accepted")

	s.dispatcher.Notify(ctx, &model.NotificationMessage{
		UserID:    resp.PerformerUserID,
		Type:      model.NotificationResponseAccepted,
		Title:     "Your response was accepted",
		Body:      fmt.Sprintf("Your offer on %q was accepted", req.Title),
		ActionURL: "/conversations/" + stored.ID,
		Data: model.JSONMap{
			"request_id":      req.ID,
			"response_id":     resp.ID,
			"conversation_id": stored.ID,
		},
	})

	return &AcceptResult{Response: resp, Conversation: stored}, nil
}

// Reject rejects a bid
func (s *biddingService) Reject(ctx context.Context, responseID, clientID string) (resp *model.Response, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordBidDecision(string(model.ResponseStatusRejected), errorLabel(err), time.Since(start))
	}()

	resp, req, err := s.loadForDecision(ctx, responseID, clientID, model.ResponseStatusRejected)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, resp, model.ResponseStatusRejected); err != nil {
		return nil, err
	}

	log.FromContext(ctx).WithFields(map[string]interface{}{
		"response_id": resp.ID,
		"request_id":  req.ID,
	}).Info("Response rejected")

	s.dispatcher.Notify(ctx, &model.NotificationMessage{
		UserID:    resp.PerformerUserID,
		Type:      model.NotificationResponseRejected,
		Title:     "Your response was declined",
		Body:      fmt.Sprintf("Your offer on %q was declined", req.Title),
		ActionURL: "/requests/" + req.ID,
		Data: model.JSONMap{
			"request_id":  req.ID,
			"response_id": resp.ID,
		},
	})
	return resp, nil
}

// ListForRequest lists bids on a request
func (s *biddingService) ListForRequest(ctx context.Context, requestID, clientID string) ([]*model.Response, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsOwnedBy(clientID) {
		return nil, utils.ErrForbidden
	}

	list, err := s.responses.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, utils.StorageError(err)
	}
	return list, nil
}

// ListMine lists a performer's bids
func (s *biddingService) ListMine(ctx context.Context, performerUserID string, page, pageSize int) ([]*model.Response, int64, error) {
	list, total, err := s.responses.ListByPerformer(ctx, performerUserID, page, pageSize)
	if err != nil {
		return nil, 0, utils.StorageError(err)
	}
	return list, total, nil
}

func (s *biddingService) loadRequest(ctx context.Context, id string) (*model.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, utils.ErrRequestNotFound
		}
		return nil, utils.StorageError(err)
	}
	return req, nil
}

// loadForDecision loads a bid and its request, checking the caller owns the
// request and that the bid can still move to target
func (s *biddingService) loadForDecision(ctx context.Context, responseID, clientID string, target model.ResponseStatus) (*model.Response, *model.Request, error) {
	resp, req, err := s.loadOwned(ctx, responseID, clientID)
	if err != nil {
		return nil, nil, err
	}
	if !resp.Status.CanTransitionTo(target) {
		return nil, nil, utils.ErrInvalidTransition.WithMessage(fmt.Sprintf("response is %s", resp.Status))
	}
	return resp, req, nil
}

// loadOwned loads a response with its request, which clientID must own
func (s *biddingService) loadOwned(ctx context.Context, responseID, clientID string) (*model.Response, *model.Request, error) {
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, nil, utils.ErrNotFound.WithMessage("response not found")
		}
		return nil, nil, utils.StorageError(err)
	}

	req, err := s.loadRequest(ctx, resp.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if !req.IsOwnedBy(clientID) {
		return nil, nil, utils.ErrForbidden
	}
	return resp, req, nil
}

func (s *biddingService) transition(ctx context.Context, resp *model.Response, to model.ResponseStatus) error {
	if err := s.responses.TransitionStatus(ctx, resp.ID, model.ResponseSourcesFor(to), to); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return utils.ErrInvalidTransition.WithMessage("response is no longer open")
		case errors.Is(err, repository.ErrRecordNotFound):
			return utils.ErrNotFound.WithMessage("response not found")
		}
		return utils.StorageError(err)
	}
	resp.Status = to
	resp.UpdatedAt = s.now()
	return nil
}

// errorLabel labels an outcome for metrics
func errorLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, utils.ErrDuplicateBid):
		return "duplicate"
	case errors.Is(err, utils.ErrRequestClosed):
		return "request_closed"
	case errors.Is(err, utils.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, utils.ErrForbidden), errors.Is(err, utils.ErrSelfBidForbidden):
		return "forbidden"
	case errors.Is(err, utils.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}

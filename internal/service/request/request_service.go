package request

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/repository"
	"marketplace/internal/service/cart"
	"marketplace/internal/service/profile"
	"marketplace/pkg/log"
	"marketplace/pkg/snowflake"
	"marketplace/pkg/utils"
)

// PublishInput fields a client supplies when publishing a request
type PublishInput struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
	Budget      int64  `json:"budget" binding:"gte=0"`
}

// RequestService request ledger interface
type RequestService interface {
	// Publish creates an active request with no responses
	Publish(ctx context.Context, clientID string, in PublishInput) (*model.Request, error)

	// PublishFromCart publishes a request describing the cart, then clears it
	PublishFromCart(ctx context.Context, clientID, title string) (*model.Request, error)

	// Get returns the stored request, responses_count included as persisted
	Get(ctx context.Context, id string) (*model.Request, error)

	// ListMine lists the client's requests, newest first
	ListMine(ctx context.Context, clientID string, page, pageSize int) ([]*model.Request, int64, error)

	// ListOpen lists requests accepting responses
	ListOpen(ctx context.Context, page, pageSize int) ([]*model.Request, int64, error)

	// Cancel withdraws an active request
	Cancel(ctx context.Context, id, clientID string) (*model.Request, error)

	// Close ends an active or in-progress request
	Close(ctx context.Context, id, clientID string) (*model.Request, error)
}

// requestService request service implementation
type requestService struct {
	repo        repository.RequestRepository
	carts       cart.CartService
	profiles    profile.ProfileService
	idGenerator *snowflake.IDGenerator
	metrics     *monitor.MetricsCollector
}

// NewRequestService creates a request service
func NewRequestService(
	repo repository.RequestRepository,
	carts cart.CartService,
	profiles profile.ProfileService,
	idGenerator *snowflake.IDGenerator,
	metrics *monitor.MetricsCollector,
) RequestService {
	return &requestService{
		repo:        repo,
		carts:       carts,
		profiles:    profiles,
		idGenerator: idGenerator,
		metrics:     metrics,
	}
}

// Publish publishes a request
func (s *requestService) Publish(ctx context.Context, clientID string, in PublishInput) (*model.Request, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, utils.ErrInvalidParam.WithMessage("title is required")
	}
	if in.Budget < 0 {
		return nil, utils.ErrInvalidParam.WithMessage("budget must not be negative")
	}

	req := &model.Request{
		ID:          uuid.NewString(),
		RequestNo:   s.idGenerator.NextRequestNo(),
		ClientID:    clientID,
		Title:       title,
		Description: in.Description,
		Budget:      in.Budget,
		Status:      model.RequestStatusActive,
	}

	err := s.repo.Create(ctx, req)
	s.metrics.RecordRequestOperation("publish", monitor.Result(err))
	if err != nil {
		return nil, utils.StorageError(err)
	}

	log.FromContext(ctx).WithFields(map[string]interface{}{
		"request_id": req.ID,
		"request_no": req.RequestNo,
		"client_id":  clientID,
	}).Info("Request published")
	return req, nil
}

// PublishFromCart publishes a request built from the cart
func (s *requestService) PublishFromCart(ctx context.Context, clientID, title string) (*model.Request, error) {
	c, err := s.carts.GetCart(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, utils.ErrInvalidParam.WithMessage("cart is empty")
	}

	lines := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		name := item.ServiceID
		if svc, err := s.profiles.GetService(ctx, item.ServiceID); err == nil {
			name = svc.Title
		}
		lines = append(lines, fmt.Sprintf("%d x %s", item.Quantity, name))
	}

	req, err := s.Publish(ctx, clientID, PublishInput{
		Title:       title,
		Description: strings.Join(lines, "\n"),
		Budget:      c.Total(),
	})
	if err != nil {
		return nil, err
	}

	// the request stands even if the cart survives
	if err := s.carts.ClearCart(ctx, clientID); err != nil {
		log.FromContext(ctx).WithFields(map[string]interface{}{
			"client_id":  clientID,
			"request_id": req.ID,
			"error":      err.Error(),
		}).Warn("Failed to clear cart after publishing")
	}
	return req, nil
}

// Get gets a request
func (s *requestService) Get(ctx context.Context, id string) (*model.Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, utils.ErrRequestNotFound
		}
		return nil, utils.StorageError(err)
	}
	return req, nil
}

// ListMine lists a client's requests
func (s *requestService) ListMine(ctx context.Context, clientID string, page, pageSize int) ([]*model.Request, int64, error) {
	list, total, err := s.repo.ListByClient(ctx, clientID, page, pageSize)
	if err != nil {
		return nil, 0, utils.StorageError(err)
	}
	return list, total, nil
}

// ListOpen lists active requests
func (s *requestService) ListOpen(ctx context.Context, page, pageSize int) ([]*model.Request, int64, error) {
	list, total, err := s.repo.ListByStatus(ctx, model.RequestStatusActive, page, pageSize)
	if err != nil {
		return nil, 0, utils.StorageError(err)
	}
	return list, total, nil
}

// Cancel cancels a request
func (s *requestService) Cancel(ctx context.Context, id, clientID string) (*model.Request, error) {
	return s.transition(ctx, id, clientID, model.RequestStatusCancelled)
}

// Close closes a request
func (s *requestService) Close(ctx context.Context, id, clientID string) (*model.Request, error) {
	return s.transition(ctx, id, clientID, model.RequestStatusClosed)
}

func (s *requestService) transition(ctx context.Context, id, clientID string, to model.RequestStatus) (*model.Request, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsOwnedBy(clientID) {
		return nil, utils.ErrForbidden
	}
	if !req.Status.CanTransitionTo(to) {
		return nil, utils.ErrInvalidTransition.WithMessage(fmt.Sprintf("request is %s", req.Status))
	}

	err = s.repo.TransitionStatus(ctx, id, model.RequestSourcesFor(to), to)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStatusConflict):
		return nil, utils.ErrInvalidTransition
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, utils.ErrRequestNotFound
	default:
		return nil, utils.StorageError(err)
	}

	s.metrics.RecordRequestOperation(string(to), "ok")
	log.FromContext(ctx).WithFields(map[string]interface{}{
		"request_id": id,
		"from":       req.Status,
		"to":         to,
	}).Info("Request status changed")

	req.Status = to
	return req, nil
}

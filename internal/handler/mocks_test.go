package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"marketplace/internal/model"
	"marketplace/internal/service/bidding"
	"marketplace/internal/service/cart"
	"marketplace/internal/service/request"
)

// MockCartService is a mock implementation of cart.CartService
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, clientID string, in cart.AddItemInput) (*model.CartItem, error) {
	args := m.Called(ctx, clientID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, clientID, itemID string, quantity int) (*model.CartItem, error) {
	args := m.Called(ctx, clientID, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, clientID, itemID string) error {
	return m.Called(ctx, clientID, itemID).Error(0)
}

func (m *MockCartService) ClearCart(ctx context.Context, clientID string) error {
	return m.Called(ctx, clientID).Error(0)
}

func (m *MockCartService) GetCart(ctx context.Context, clientID string) (*model.Cart, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

// MockRequestService is a mock implementation of request.RequestService
type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) request(args mock.Arguments) (*model.Request, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestService) list(args mock.Arguments) ([]*model.Request, int64, error) {
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Request), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestService) Publish(ctx context.Context, clientID string, in request.PublishInput) (*model.Request, error) {
	return m.request(m.Called(ctx, clientID, in))
}

func (m *MockRequestService) PublishFromCart(ctx context.Context, clientID, title string) (*model.Request, error) {
	return m.request(m.Called(ctx, clientID, title))
}

func (m *MockRequestService) Get(ctx context.Context, id string) (*model.Request, error) {
	return m.request(m.Called(ctx, id))
}

func (m *MockRequestService) ListMine(ctx context.Context, clientID string, page, pageSize int) ([]*model.Request, int64, error) {
	return m.list(m.Called(ctx, clientID, page, pageSize))
}

func (m *MockRequestService) ListOpen(ctx context.Context, page, pageSize int) ([]*model.Request, int64, error) {
	return m.list(m.Called(ctx, page, pageSize))
}

func (m *MockRequestService) Cancel(ctx context.Context, id, clientID string) (*model.Request, error) {
	return m.request(m.Called(ctx, id, clientID))
}

func (m *MockRequestService) Close(ctx context.Context, id, clientID string) (*model.Request, error) {
	return m.request(m.Called(ctx, id, clientID))
}

// MockBiddingService is a mock implementation of bidding.BiddingService
type MockBiddingService struct {
	mock.Mock
}

func (m *MockBiddingService) response(args mock.Arguments) (*model.Response, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Response), args.Error(1)
}

func (m *MockBiddingService) Submit(ctx context.Context, in bidding.SubmitInput) (*model.Response, error) {
	return m.response(m.Called(ctx, in))
}

func (m *MockBiddingService) SetStatus(ctx context.Context, responseID string, status model.ResponseStatus, actingUserID string) (*model.Response, error) {
	return m.response(m.Called(ctx, responseID, status, actingUserID))
}

func (m *MockBiddingService) MarkViewed(ctx context.Context, responseID, clientID string) (*model.Response, error) {
	return m.response(m.Called(ctx, responseID, clientID))
}

func (m *MockBiddingService) Accept(ctx context.Context, responseID, clientID string) (*bidding.AcceptResult, error) {
	args := m.Called(ctx, responseID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bidding.AcceptResult), args.Error(1)
}

func (m *MockBiddingService) Reject(ctx context.Context, responseID, clientID string) (*model.Response, error) {
	return m.response(m.Called(ctx, responseID, clientID))
}

func (m *MockBiddingService) ListForRequest(ctx context.Context, requestID, clientID string) ([]*model.Response, error) {
	args := m.Called(ctx, requestID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Response), args.Error(1)
}

func (m *MockBiddingService) ListMine(ctx context.Context, performerUserID string, page, pageSize int) ([]*model.Response, int64, error) {
	args := m.Called(ctx, performerUserID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Response), args.Get(1).(int64), args.Error(2)
}

// MockConversationService is a mock implementation of conversation.ConversationService
type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) GetOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationService) Get(ctx context.Context, id, userID string) (*model.Conversation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationService) ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Conversation, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationService) Touch(ctx context.Context, id, userID string, at time.Time) error {
	return m.Called(ctx, id, userID, at).Error(0)
}

// MockNotificationService is a mock implementation of notify.NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Persist(ctx context.Context, msg *model.NotificationMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockNotificationService) ListMine(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error) {
	args := m.Called(ctx, userID, unreadOnly, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/config"
	"marketplace/internal/consumer"
	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/repository/memory"
	"marketplace/internal/service/bidding"
	"marketplace/internal/service/cart"
	"marketplace/internal/service/conversation"
	"marketplace/internal/service/notify"
	"marketplace/internal/service/profile"
	"marketplace/internal/service/request"
	authutils "marketplace/internal/utils"
	"marketplace/pkg/bloom"
	"marketplace/pkg/queue"
	"marketplace/pkg/snowflake"
	"marketplace/pkg/utils"
)

const flowTopic = "test.notifications"

// newFlowHarness wires the real services over the memory store and queue
func newFlowHarness(t *testing.T) (*harness, *authutils.JWTManager) {
	t.Helper()

	store := memory.NewStore()
	store.SeedProfile(model.Profile{ID: providerID, UserID: performerID, DisplayName: "Studio"})
	store.SeedService(model.Service{ID: serviceID, ProfileID: providerID, Title: "Logo design", Price: 1500})

	mq := queue.NewMemoryQueue(&queue.MemoryQueueConfig{BufferSize: 100, Timeout: time.Second})
	idGenerator, err := snowflake.NewIDGenerator(1)
	require.NoError(t, err)

	profiles := profile.NewProfileService(memory.NewProfileRepository(store), memory.NewServiceRepository(store), nil, nil)
	carts := cart.NewCartService(memory.NewCartRepository(store), profiles, nil, nil)
	requestRepo := memory.NewRequestRepository(store)
	requests := request.NewRequestService(requestRepo, carts, profiles, idGenerator, nil)
	bids := bidding.NewBiddingService(memory.NewResponseRepository(store), requestRepo, profiles,
		notify.NewQueueDispatcher(mq, flowTopic, nil), bloom.New(1000, 0.01), nil)
	notifications := notify.NewNotificationService(memory.NewNotificationRepository(store))

	ctx, cancel := context.WithCancel(context.Background())
	c := consumer.NewNotificationConsumer(notifications, mq, flowTopic, nil, nil)
	c.Start(ctx)
	t.Cleanup(func() {
		cancel()
		c.Stop()
		_ = mq.Close()
	})

	jwtManager := authutils.NewJWTManager("flow-secret", "marketplace", time.Hour)
	router := NewRouter(Services{
		Cart:         carts,
		Request:      requests,
		Bidding:      bids,
		Conversation: conversation.NewConversationService(memory.NewConversationRepository(store), nil),
		Notification: notifications,
	}, RouterOptions{
		Config:         &config.Config{},
		TokenValidator: middleware.JWTValidator(jwtManager),
	})
	return &harness{router: router}, jwtManager
}

func token(t *testing.T, m *authutils.JWTManager, userID string) string {
	t.Helper()
	tok, err := m.GenerateToken(userID, "user")
	require.NoError(t, err)
	return tok
}

// notificationTypes runs inside Eventually, so it reports failures as nil
func notificationTypes(h *harness, tok string) []model.NotificationType {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		return nil
	}

	var env struct {
		Data struct {
			List []model.Notification `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		return nil
	}
	types := make([]model.NotificationType, 0, len(env.Data.List))
	for _, n := range env.Data.List {
		types = append(types, n.Type)
	}
	return types
}

func TestMarketplaceFlow(t *testing.T) {
	h, jwtManager := newFlowHarness(t)
	clientTok := token(t, jwtManager, clientID)
	performerTok := token(t, jwtManager, performerID)

	// cart to request
	w := h.do(t, http.MethodPost, "/api/v1/cart/items", clientTok, map[string]interface{}{
		"service_id":  serviceID,
		"provider_id": providerID,
		"quantity":    2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/v1/requests/from-cart", clientTok, map[string]string{"title": "Brand refresh"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var req model.Request
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &req))
	assert.Equal(t, model.RequestStatusActive, req.Status)
	assert.Equal(t, int64(3000), req.Budget)

	w = h.do(t, http.MethodGet, "/api/v1/cart", clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cv struct {
		ItemsCount int `json:"items_count"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &cv))
	assert.Zero(t, cv.ItemsCount)

	// bid
	bidPath := "/api/v1/requests/" + req.ID + "/responses"
	w = h.do(t, http.MethodPost, bidPath, performerTok, map[string]interface{}{
		"profile_id": providerID,
		"price":      2500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp model.Response
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, model.ResponseStatusPending, resp.Status)

	w = h.do(t, http.MethodPost, bidPath, performerTok, map[string]interface{}{
		"profile_id": providerID,
		"price":      2400,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int(utils.CodeDuplicateBid), decode(t, w).Code)

	w = h.do(t, http.MethodPost, bidPath, clientTok, map[string]interface{}{
		"profile_id": providerID,
		"price":      100,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Eventually(t, func() bool {
		types := notificationTypes(h, clientTok)
		return len(types) == 1 && types[0] == model.NotificationResponseNew
	}, 2*time.Second, 20*time.Millisecond)

	// accept
	w = h.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/accept", performerTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/api/v1/responses/"+resp.ID+"/accept", clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var accepted bidding.AcceptResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &accepted))
	assert.Equal(t, model.ResponseStatusAccepted, accepted.Response.Status)
	require.NotNil(t, accepted.Conversation)

	w = h.do(t, http.MethodGet, "/api/v1/requests/"+req.ID, clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var after model.Request
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &after))
	assert.Equal(t, model.RequestStatusInProgress, after.Status)
	assert.Equal(t, 1, after.ResponsesCount)

	w = h.do(t, http.MethodGet, "/api/v1/conversations/"+accepted.Conversation.ID, performerTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		types := notificationTypes(h, performerTok)
		return len(types) == 1 && types[0] == model.NotificationResponseAccepted
	}, 2*time.Second, 20*time.Millisecond)
}

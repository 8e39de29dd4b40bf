package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

func newActiveRequest(t *testing.T, s *Store, clientID string) *model.Request {
	t.Helper()
	req := &model.Request{
		ID:        uuid.NewString(),
		RequestNo: "RQ" + uuid.NewString()[:8],
		ClientID:  clientID,
		Title:     "Logo design",
		Status:    model.RequestStatusActive,
	}
	require.NoError(t, NewRequestRepository(s).Create(context.Background(), req))
	return req
}

func newResponse(requestID, profileID, performer string) *model.Response {
	return &model.Response{
		ID:              uuid.NewString(),
		RequestID:       requestID,
		ProfileID:       profileID,
		PerformerUserID: performer,
		Price:           4500,
		Status:          model.ResponseStatusPending,
	}
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewCartRepository(s)

	first, err := repo.AddOrIncrement(ctx, &model.CartItem{ID: "i-1", ClientID: "c-1", ServiceID: "s-1", ProviderID: "p-1", Quantity: 1, UnitPrice: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quantity)

	merged, err := repo.AddOrIncrement(ctx, &model.CartItem{ID: "i-2", ClientID: "c-1", ServiceID: "s-1", ProviderID: "p-1", Quantity: 2, UnitPrice: 100})
	require.NoError(t, err)
	assert.Equal(t, "i-1", merged.ID)
	assert.Equal(t, 3, merged.Quantity)

	_, err = repo.AddOrIncrement(ctx, &model.CartItem{ID: "i-3", ClientID: "c-1", ServiceID: "s-2", ProviderID: "p-1", Quantity: 1, UnitPrice: 200})
	require.NoError(t, err)

	items, err := repo.ListByClient(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "s-1", items[0].ServiceID)

	// another client's id is ignored
	require.NoError(t, repo.UpdateQuantity(ctx, "i-1", "c-2", 9))
	item, err := repo.GetByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	require.NoError(t, repo.Delete(ctx, "i-1", "c-1"))
	_, err = repo.GetByID(ctx, "i-1")
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)

	// the freed (client, service) slot can be reused
	_, err = repo.AddOrIncrement(ctx, &model.CartItem{ID: "i-4", ClientID: "c-1", ServiceID: "s-1", ProviderID: "p-1", Quantity: 1, UnitPrice: 100})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByClient(ctx, "c-1"))
	items, err = repo.ListByClient(ctx, "c-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRequestRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewRequestRepository(s)

	older := newActiveRequest(t, s, "c-1")
	newer := newActiveRequest(t, s, "c-1")
	newActiveRequest(t, s, "c-2")

	t.Run("DuplicateRequestNo", func(t *testing.T) {
		err := repo.Create(ctx, &model.Request{ID: uuid.NewString(), RequestNo: older.RequestNo, ClientID: "c-3"})
		assert.ErrorIs(t, err, repository.ErrDuplicateKey)
	})

	t.Run("ListByClientNewestFirst", func(t *testing.T) {
		list, total, err := repo.ListByClient(ctx, "c-1", 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)

		list, total, err = repo.ListByClient(ctx, "c-1", 2, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 1)
		assert.Equal(t, older.ID, list[0].ID)
	})

	t.Run("TransitionStatus", func(t *testing.T) {
		err := repo.TransitionStatus(ctx, older.ID, []model.RequestStatus{model.RequestStatusActive}, model.RequestStatusCancelled)
		require.NoError(t, err)

		err = repo.TransitionStatus(ctx, older.ID, []model.RequestStatus{model.RequestStatusActive}, model.RequestStatusClosed)
		assert.ErrorIs(t, err, repository.ErrStatusConflict)

		err = repo.TransitionStatus(ctx, "missing", []model.RequestStatus{model.RequestStatusActive}, model.RequestStatusClosed)
		assert.ErrorIs(t, err, repository.ErrRecordNotFound)

		active, total, err := repo.ListByStatus(ctx, model.RequestStatusActive, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, r := range active {
			assert.NotEqual(t, older.ID, r.ID)
		}
	})
}

func TestResponseRepositorySubmit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewResponseRepository(s)
	req := newActiveRequest(t, s, "client")

	require.NoError(t, repo.Submit(ctx, newResponse(req.ID, "p-1", "u-1")))
	assert.ErrorIs(t, repo.Submit(ctx, newResponse(req.ID, "p-1", "u-1")), repository.ErrDuplicateKey)
	assert.ErrorIs(t, repo.Submit(ctx, newResponse("missing", "p-1", "u-1")), repository.ErrRecordNotFound)

	stored, err := NewRequestRepository(s).GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ResponsesCount)

	exists, err := repo.Exists(ctx, req.ID, "p-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, NewRequestRepository(s).TransitionStatus(ctx, req.ID,
		[]model.RequestStatus{model.RequestStatusActive}, model.RequestStatusClosed))
	assert.ErrorIs(t, repo.Submit(ctx, newResponse(req.ID, "p-2", "u-2")), repository.ErrStatusConflict)
}

func TestResponseRepositoryConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewResponseRepository(s)
	req := newActiveRequest(t, s, "client")

	const workers = 32
	var wg sync.WaitGroup
	var ok, dup int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Submit(ctx, newResponse(req.ID, "p-1", "u-1"))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, repository.ErrDuplicateKey):
				atomic.AddInt32(&dup, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(workers-1), dup)
	assert.Equal(t, 1, s.ResponseCount(req.ID))

	stored, err := NewRequestRepository(s).GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ResponsesCount)
}

func TestResponseRepositoryAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("AcceptsAndOpensConversation", func(t *testing.T) {
		s := NewStore()
		repo := NewResponseRepository(s)
		req := newActiveRequest(t, s, "client")
		resp := newResponse(req.ID, "p-1", "performer")
		require.NoError(t, repo.Submit(ctx, resp))

		conv, err := repo.Accept(ctx, resp.ID, req.ID, &model.Conversation{ID: "conv-1", Participant1ID: "performer", Participant2ID: "client"})
		require.NoError(t, err)
		assert.Equal(t, "client", conv.Participant1ID)
		assert.Equal(t, "performer", conv.Participant2ID)

		stored, err := repo.GetByID(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ResponseStatusAccepted, stored.Status)

		storedReq, err := NewRequestRepository(s).GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusInProgress, storedReq.Status)
	})

	t.Run("ReusesExistingConversation", func(t *testing.T) {
		s := NewStore()
		repo := NewResponseRepository(s)
		existing, err := NewConversationRepository(s).GetOrCreate(ctx, &model.Conversation{ID: "old", Participant1ID: "client", Participant2ID: "performer"})
		require.NoError(t, err)

		req := newActiveRequest(t, s, "client")
		resp := newResponse(req.ID, "p-1", "performer")
		require.NoError(t, repo.Submit(ctx, resp))

		conv, err := repo.Accept(ctx, resp.ID, req.ID, &model.Conversation{ID: "new", Participant1ID: "client", Participant2ID: "performer"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, conv.ID)
		assert.Equal(t, 1, s.ConversationCount())
	})

	t.Run("ClosedRequestLeavesNothingBehind", func(t *testing.T) {
		s := NewStore()
		repo := NewResponseRepository(s)
		req := newActiveRequest(t, s, "client")
		resp := newResponse(req.ID, "p-1", "performer")
		require.NoError(t, repo.Submit(ctx, resp))
		require.NoError(t, NewRequestRepository(s).TransitionStatus(ctx, req.ID,
			[]model.RequestStatus{model.RequestStatusActive}, model.RequestStatusClosed))

		_, err := repo.Accept(ctx, resp.ID, req.ID, &model.Conversation{ID: "c", Participant1ID: "client", Participant2ID: "performer"})
		assert.ErrorIs(t, err, repository.ErrStatusConflict)

		stored, err := repo.GetByID(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ResponseStatusPending, stored.Status)
		assert.Equal(t, 0, s.ConversationCount())
	})

	t.Run("ConcurrentSiblingsOneWinner", func(t *testing.T) {
		s := NewStore()
		repo := NewResponseRepository(s)
		req := newActiveRequest(t, s, "client")

		var ids []string
		for i := 0; i < 8; i++ {
			resp := newResponse(req.ID, fmt.Sprintf("p-%d", i), fmt.Sprintf("u-%d", i))
			require.NoError(t, repo.Submit(ctx, resp))
			ids = append(ids, resp.ID)
		}

		var wg sync.WaitGroup
		var winners int32
		for i, id := range ids {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				_, err := repo.Accept(ctx, id, req.ID, &model.Conversation{
					ID: uuid.NewString(), Participant1ID: "client", Participant2ID: fmt.Sprintf("u-%d", i),
				})
				if err == nil {
					atomic.AddInt32(&winners, 1)
				}
			}(i, id)
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners)
		assert.Equal(t, 1, s.ConversationCount())

		list, err := repo.ListByRequest(ctx, req.ID)
		require.NoError(t, err)
		accepted := 0
		for _, r := range list {
			if r.Status == model.ResponseStatusAccepted {
				accepted++
			}
		}
		assert.Equal(t, 1, accepted)
	})
}

func TestConversationRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewConversationRepository(s)

	t.Run("ConcurrentGetOrCreateConverges", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make([]string, 16)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, b := "alice", "bob"
				if i%2 == 1 {
					a, b = b, a
				}
				conv, err := repo.GetOrCreate(ctx, &model.Conversation{ID: uuid.NewString(), Participant1ID: a, Participant2ID: b})
				if assert.NoError(t, err) {
					ids[i] = conv.ID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		assert.Equal(t, 1, s.ConversationCount())

		byPair, err := repo.GetByPair(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, ids[0], byPair.ID)
	})

	t.Run("ListOrdersByActivity", func(t *testing.T) {
		second, err := repo.GetOrCreate(ctx, &model.Conversation{ID: "c-2", Participant1ID: "alice", Participant2ID: "carol"})
		require.NoError(t, err)

		first, err := repo.GetByPair(ctx, "alice", "bob")
		require.NoError(t, err)
		require.NoError(t, repo.Touch(ctx, first.ID, time.Now().Add(time.Hour)))

		list, total, err := repo.ListByParticipant(ctx, "alice", 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)

		assert.ErrorIs(t, repo.Touch(ctx, "missing", time.Now()), repository.ErrRecordNotFound)
	})
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewNotificationRepository(s)

	require.NoError(t, repo.Create(ctx, &model.Notification{ID: "n-1", UserID: "u-1", Type: model.NotificationResponseNew, Title: "a"}))
	require.NoError(t, repo.Create(ctx, &model.Notification{ID: "n-2", UserID: "u-1", Type: model.NotificationResponseAccepted, Title: "b"}))
	assert.ErrorIs(t, repo.Create(ctx, &model.Notification{ID: "n-1", UserID: "u-1"}), repository.ErrDuplicateKey)

	require.NoError(t, repo.MarkRead(ctx, "n-1", "u-1"))
	require.NoError(t, repo.MarkRead(ctx, "n-1", "u-1"))
	assert.ErrorIs(t, repo.MarkRead(ctx, "n-1", "u-2"), repository.ErrRecordNotFound)

	all, total, err := repo.ListByUser(ctx, "u-1", false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "n-2", all[0].ID)

	unread, total, err := repo.ListByUser(ctx, "u-1", true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "n-2", unread[0].ID)
}

func TestProfileRepositories(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.SeedProfile(model.Profile{ID: "p-1", UserID: "u-1", DisplayName: "Studio"})
	s.SeedService(model.Service{ID: "s-1", ProfileID: "p-1", Title: "Logo", Price: 5000})

	p, err := NewProfileRepository(s).GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Studio", p.DisplayName)

	svc, err := NewServiceRepository(s).GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), svc.Price)

	_, err = NewProfileRepository(s).GetByID(ctx, "p-2")
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

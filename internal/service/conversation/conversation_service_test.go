package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

func TestNew(t *testing.T) {
	now := time.Now()

	conv, err := New("zed", "amy", now)
	require.NoError(t, err)
	assert.Equal(t, "amy", conv.Participant1ID)
	assert.Equal(t, "zed", conv.Participant2ID)
	assert.Equal(t, now, conv.LastMessageAt)
	assert.NotEmpty(t, conv.ID)

	_, err = New("amy", "amy", now)
	assert.ErrorIs(t, err, utils.ErrSelfConversation)
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewConversationService(memory.NewConversationRepository(store), nil)

	const k = 25
	ids := make([]string, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "client", "performer"
			if i%2 == 0 {
				a, b = b, a
			}
			conv, err := svc.GetOrCreate(ctx, a, b)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, store.ConversationCount())

	_, err := svc.GetOrCreate(ctx, "client", "client")
	assert.ErrorIs(t, err, utils.ErrSelfConversation)
}

func TestGetOrCreate_LogsWithRequestContext(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	ctx := log.NewContext(context.Background(), logger.WithField("user_id", "client"))
	svc := NewConversationService(memory.NewConversationRepository(memory.NewStore()), nil)

	conv, err := svc.GetOrCreate(ctx, "client", "performer")
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Conversation created", entry.Message)
	assert.Equal(t, "client", entry.Data["user_id"])
	assert.Equal(t, conv.ID, entry.Data["conversation_id"])

	_, err = svc.GetOrCreate(ctx, "performer", "client")
	require.NoError(t, err)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestGetAndTouch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewConversationService(memory.NewConversationRepository(store), nil)

	first, err := svc.GetOrCreate(ctx, "amy", "bob")
	require.NoError(t, err)
	second, err := svc.GetOrCreate(ctx, "amy", "cat")
	require.NoError(t, err)

	_, err = svc.Get(ctx, first.ID, "cat")
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = svc.Get(ctx, "missing", "amy")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	got, err := svc.Get(ctx, first.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	assert.ErrorIs(t, svc.Touch(ctx, first.ID, "cat", time.Now()), utils.ErrForbidden)
	require.NoError(t, svc.Touch(ctx, first.ID, "amy", time.Now().Add(time.Minute)))

	list, total, err := svc.ListMine(ctx, "amy", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

type mockConversationRepo struct {
	mock.Mock
	repository.ConversationRepository
}

func (m *mockConversationRepo) GetOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	args := m.Called(ctx, conv)
	if c, ok := args.Get(0).(*model.Conversation); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestGetOrCreate_StorageError(t *testing.T) {
	repo := new(mockConversationRepo)
	repo.On("GetOrCreate", mock.Anything, mock.Anything).Return(nil, errors.New("deadlock found"))

	svc := NewConversationService(repo, nil)
	_, err := svc.GetOrCreate(context.Background(), "amy", "bob")
	assert.ErrorIs(t, err, utils.ErrStorageUnavailable)
}

package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	args := m.Called(ctx, id)
	rm, _ := args.Get(0).(*Room)
	return rm, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	args := m.Called(ctx, filter)
	rooms, _ := args.Get(0).([]*Room)
	return rooms, args.Int(1), args.Error(2)
}

func (m *mockRepository) FindEligible(ctx context.Context, minCapacity int) ([]*Room, error) {
	args := m.Called(ctx, minCapacity)
	rooms, _ := args.Get(0).([]*Room)
	return rooms, args.Error(1)
}

func TestService_FindEligible(t *testing.T) {
	ctx := context.Background()

	t.Run("Delegates To Repository", func(t *testing.T) {
		repo := &mockRepository{}
		want := []*Room{{ID: "a", Capacity: 4}, {ID: "b", Capacity: 8}}
		repo.On("FindEligible", ctx, 3).Return(want, nil).Once()

		got, err := NewService(repo).FindEligible(ctx, 3)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		repo.AssertExpectations(t)
	})

	t.Run("Rejects Non Positive Capacity", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		for _, n := range []int{0, -1} {
			_, err := svc.FindEligible(ctx, n)
			assert.ErrorIs(t, err, ErrInvalidCapacity)
		}
		repo.AssertNotCalled(t, "FindEligible", mock.Anything, mock.Anything)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("Passes Filter Through", func(t *testing.T) {
		repo := &mockRepository{}
		filter := Filter{MinCapacity: 6, Page: 1, PageSize: 20}
		repo.On("List", ctx, filter).Return([]*Room{{ID: "b"}}, 1, nil).Once()

		rooms, total, err := NewService(repo).List(ctx, filter)

		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, rooms, 1)
		repo.AssertExpectations(t)
	})

	t.Run("Rejects Negative Capacity", func(t *testing.T) {
		_, _, err := NewService(&mockRepository{}).List(ctx, Filter{MinCapacity: -2})
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("Get Not Found", func(t *testing.T) {
		repo := &mockRepository{}
		repo.On("GetByID", ctx, "missing").Return(nil, ErrNotFound).Once()

		_, err := NewService(repo).GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

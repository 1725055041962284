package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tripora/booking/internal/domain"
)

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) GetRoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoomType), args.Error(1)
}

func (m *MockInventoryRepository) StayAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error) {
	args := m.Called(ctx, roomTypeID, checkIn, checkOut)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RoomAvailability), args.Error(1)
}

func (m *MockInventoryRepository) GetCancellationPolicy(ctx context.Context, roomTypeID uuid.UUID) (*domain.RoomPolicy, error) {
	args := m.Called(ctx, roomTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoomPolicy), args.Error(1)
}

func (m *MockInventoryRepository) Reserve(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error {
	args := m.Called(ctx, roomTypeID, checkIn, checkOut, numRooms)
	return args.Error(0)
}

func (m *MockInventoryRepository) Restore(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error {
	args := m.Called(ctx, roomTypeID, checkIn, checkOut, numRooms)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error) {
	args := m.Called(ctx, roomTypeID, checkIn, checkOut)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RoomAvailability), args.Error(1)
}

func (m *MockCache) SetAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, avail []domain.RoomAvailability) error {
	args := m.Called(ctx, roomTypeID, checkIn, checkOut, avail)
	return args.Error(0)
}

var (
	checkIn  = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	checkOut = time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
)

func stayRows(roomTypeID uuid.UUID) []domain.RoomAvailability {
	return []domain.RoomAvailability{
		{RoomTypeID: roomTypeID, Date: checkIn, AvailableRooms: 3, PricePaise: 250000},
		{RoomTypeID: roomTypeID, Date: checkIn.AddDate(0, 0, 1), AvailableRooms: 2, PricePaise: 275000},
	}
}

func TestAvailabilityService_Stay_CacheMiss(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	mockCache := &MockCache{}
	service := NewAvailabilityService(mockRepo, mockCache)
	ctx := context.Background()

	roomTypeID := uuid.New()
	rows := stayRows(roomTypeID)

	mockCache.On("GetAvailability", ctx, roomTypeID, checkIn, checkOut).Return(nil, nil).Once()
	mockRepo.On("StayAvailability", ctx, roomTypeID, checkIn, checkOut).Return(rows, nil).Once()
	mockCache.On("SetAvailability", ctx, roomTypeID, checkIn, checkOut, rows).Return(nil).Once()

	got, err := service.Stay(ctx, roomTypeID, checkIn, checkOut)

	assert.NoError(t, err)
	assert.Equal(t, rows, got)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestAvailabilityService_Stay_CacheHit(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	mockCache := &MockCache{}
	service := NewAvailabilityService(mockRepo, mockCache)
	ctx := context.Background()

	roomTypeID := uuid.New()
	rows := stayRows(roomTypeID)

	mockCache.On("GetAvailability", ctx, roomTypeID, checkIn, checkOut).Return(rows, nil).Once()

	got, err := service.Stay(ctx, roomTypeID, checkIn, checkOut)

	assert.NoError(t, err)
	assert.Equal(t, rows, got)

	mockRepo.AssertNotCalled(t, "StayAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestAvailabilityService_Stay_CacheErrorFallsThrough(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	mockCache := &MockCache{}
	service := NewAvailabilityService(mockRepo, mockCache)
	ctx := context.Background()

	roomTypeID := uuid.New()
	rows := stayRows(roomTypeID)

	mockCache.On("GetAvailability", ctx, roomTypeID, checkIn, checkOut).Return(nil, errors.New("redis down")).Once()
	mockRepo.On("StayAvailability", ctx, roomTypeID, checkIn, checkOut).Return(rows, nil).Once()
	mockCache.On("SetAvailability", ctx, roomTypeID, checkIn, checkOut, rows).Return(nil).Once()

	got, err := service.Stay(ctx, roomTypeID, checkIn, checkOut)

	assert.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestAvailabilityService_Stay_NoCache(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	service := NewAvailabilityService(mockRepo, nil)
	ctx := context.Background()

	roomTypeID := uuid.New()
	rows := stayRows(roomTypeID)

	mockRepo.On("StayAvailability", ctx, roomTypeID, checkIn, checkOut).Return(rows, nil).Once()

	got, err := service.Stay(ctx, roomTypeID, checkIn, checkOut)

	assert.NoError(t, err)
	assert.Equal(t, rows, got)
	mockRepo.AssertExpectations(t)
}

func TestAvailabilityService_Stay_RepoError(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	service := NewAvailabilityService(mockRepo, nil)
	ctx := context.Background()

	roomTypeID := uuid.New()
	mockRepo.On("StayAvailability", ctx, roomTypeID, checkIn, checkOut).Return(nil, errors.New("db down")).Once()

	got, err := service.Stay(ctx, roomTypeID, checkIn, checkOut)

	assert.Nil(t, got)
	assert.ErrorContains(t, err, "db down")
}

func TestAvailabilityService_RoomType(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	service := NewAvailabilityService(mockRepo, nil)
	ctx := context.Background()

	roomTypeID := uuid.New()
	roomType := &domain.RoomType{ID: roomTypeID, Name: "Deluxe King", TotalRooms: 5, BasePricePaise: 300000}

	mockRepo.On("GetRoomType", ctx, roomTypeID).Return(roomType, nil).Once()

	got, err := service.RoomType(ctx, roomTypeID)

	assert.NoError(t, err)
	assert.Equal(t, roomType, got)
}

func TestAvailabilityService_RoomType_NotFound(t *testing.T) {
	mockRepo := &MockInventoryRepository{}
	service := NewAvailabilityService(mockRepo, nil)
	ctx := context.Background()

	roomTypeID := uuid.New()
	mockRepo.On("GetRoomType", ctx, roomTypeID).Return(nil, domain.ErrRoomTypeNotFound).Once()

	got, err := service.RoomType(ctx, roomTypeID)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrRoomTypeNotFound)
}

package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tripora/booking/internal/domain"
	"github.com/tripora/booking/internal/repository"
)

type AvailabilityUseCase interface {
	Stay(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error)
	RoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error)
}

type Cache interface {
	GetAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error)
	SetAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, avail []domain.RoomAvailability) error
}

type AvailabilityService struct {
	repo  repository.InventoryRepository
	cache Cache
}

func NewAvailabilityService(repo repository.InventoryRepository, cache Cache) *AvailabilityService {
	return &AvailabilityService{repo: repo, cache: cache}
}

// Stay returns per-night availability and price for a date range, served
// from cache when a fresh snapshot exists. Cached counts are advisory; the
// reservation path always re-checks under a row lock.
func (s *AvailabilityService) Stay(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAvailability(ctx, roomTypeID, checkIn, checkOut); err == nil && cached != nil {
			return cached, nil
		}
	}

	avail, err := s.repo.StayAvailability(ctx, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetAvailability(ctx, roomTypeID, checkIn, checkOut, avail)
	}
	return avail, nil
}

func (s *AvailabilityService) RoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error) {
	return s.repo.GetRoomType(ctx, id)
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)

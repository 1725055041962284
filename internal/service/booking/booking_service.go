package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tripora/booking/internal/channel"
	"github.com/tripora/booking/internal/domain"
	"github.com/tripora/booking/internal/kafka"
	"github.com/tripora/booking/internal/pricing"
	"github.com/tripora/booking/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetTimer(ctx context.Context, id uuid.UUID) (*Timer, error)
	CompletePayment(ctx context.Context, input PaymentInput) (*domain.Booking, error)
	RefundPreview(ctx context.Context, id uuid.UUID) (*RefundPreview, error)
	CancelBooking(ctx context.Context, id uuid.UUID, actor string) (*CancelResult, error)
	ExpireOverdueBookings(ctx context.Context, dryRun bool) ([]domain.Booking, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, []domain.WalletTransaction, error)
}

type Cache interface {
	AcquireHoldGuard(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, ttl time.Duration) (bool, error)
	ReleaseHoldGuard(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	inventory          repository.InventoryRepository
	promos             repository.PromoRepository
	wallets            repository.WalletRepository
	locker             channel.Locker
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
	guardTTL           time.Duration
	pricingCfg         pricing.Config
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithHoldGuardTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if ttl > 0 {
			s.guardTTL = ttl
		}
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	inventory repository.InventoryRepository,
	promos repository.PromoRepository,
	wallets repository.WalletRepository,
	locker channel.Locker,
	cache Cache,
	producer Producer,
	bookingTopic string,
	holdTTL time.Duration,
	pricingCfg pricing.Config,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		inventory:    inventory,
		promos:       promos,
		wallets:      wallets,
		locker:       locker,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		holdTTL:      holdTTL,
		guardTTL:     30 * time.Second,
		pricingCfg:   pricingCfg,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type CreateBookingInput struct {
	UserID    uuid.UUID          `json:"user_id"`
	Type      domain.BookingType `json:"booking_type"`
	Email     string             `json:"email"`
	PromoCode string             `json:"promo_code"`

	// hotel
	RoomTypeID uuid.UUID `json:"room_type_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	NumRooms   int       `json:"num_rooms"`
	NumGuests  int       `json:"num_guests"`

	// bus
	RouteID     uuid.UUID `json:"route_id"`
	TravelDate  time.Time `json:"travel_date"`
	SeatNumbers []string  `json:"seat_numbers"`

	// package
	PackageID uuid.UUID `json:"package_id"`
	StartDate time.Time `json:"start_date"`

	Travelers []domain.Traveler `json:"travelers"`

	// fare for bus and package bookings, priced upstream by the operator
	BasePaise int64 `json:"base_paise"`
}

type CreateBookingResult struct {
	Booking *domain.Booking `json:"booking"`
	Quote   pricing.Quote   `json:"quote"`
}

type Timer struct {
	BookingID        uuid.UUID            `json:"booking_id"`
	Status           domain.BookingStatus `json:"status"`
	SecondsRemaining int64                `json:"seconds_remaining"`
	ExpiresAt        *time.Time           `json:"expires_at,omitempty"`
}

type PaymentInput struct {
	BookingID    uuid.UUID `json:"booking_id"`
	WalletPaise  int64     `json:"wallet_paise"`
	GatewayPaise int64     `json:"gateway_paise"`
	GatewayRef   string    `json:"gateway_ref"`
	Succeeded    bool      `json:"succeeded"`
}

type RefundPreview struct {
	BookingID     uuid.UUID         `json:"booking_id"`
	PaidPaise     int64             `json:"paid_paise"`
	RefundPaise   int64             `json:"refund_paise"`
	PolicyType    domain.PolicyType `json:"policy_type,omitempty"`
	RefundPercent int               `json:"refund_percent,omitempty"`
	Cancellable   bool              `json:"cancellable"`
}

type CancelResult struct {
	Booking          *domain.Booking `json:"booking"`
	RefundPaise      int64           `json:"refund_paise"`
	WalletCredited   bool            `json:"wallet_credited"`
	AlreadyCancelled bool            `json:"already_cancelled"`
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if input.Email == "" {
		return nil, errors.New("email is required")
	}
	if input.UserID == uuid.Nil {
		return nil, errors.New("user id is required")
	}

	now := time.Now()

	switch input.Type {
	case domain.BookingTypeHotel:
		return s.createHotelBooking(ctx, input, now)
	case domain.BookingTypeBus:
		if len(input.SeatNumbers) == 0 {
			return nil, errors.New("at least one seat is required")
		}
		if input.BasePaise <= 0 {
			return nil, errors.New("fare must be positive")
		}
		detail := &domain.BusDetail{RouteID: input.RouteID, TravelDate: input.TravelDate, SeatNumbers: input.SeatNumbers, Travelers: input.Travelers}
		return s.createSimpleBooking(ctx, input, detail, now)
	case domain.BookingTypePackage:
		if input.BasePaise <= 0 {
			return nil, errors.New("fare must be positive")
		}
		detail := &domain.PackageDetail{PackageID: input.PackageID, StartDate: input.StartDate, Travelers: input.Travelers}
		return s.createSimpleBooking(ctx, input, detail, now)
	default:
		return nil, fmt.Errorf("unknown booking type %q", input.Type)
	}
}

func (s *BookingService) createHotelBooking(ctx context.Context, input CreateBookingInput, now time.Time) (*CreateBookingResult, error) {
	if input.NumRooms <= 0 {
		return nil, errors.New("number of rooms must be positive")
	}
	if !input.CheckOut.After(input.CheckIn) {
		return nil, errors.New("check-out must be after check-in")
	}

	roomType, err := s.inventory.GetRoomType(ctx, input.RoomTypeID)
	if err != nil {
		return nil, err
	}

	basePaise, err := s.stayBasePaise(ctx, roomType, input)
	if err != nil {
		return nil, err
	}

	promo := s.lookupPromo(ctx, input.PromoCode)
	quote := pricing.Calculate(s.pricingCfg, basePaise, promo, 0, now)

	guarded := false
	if s.cache != nil {
		ok, err := s.cache.AcquireHoldGuard(ctx, input.RoomTypeID, input.CheckIn, input.CheckOut, s.guardTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrRoomHeld
		}
		guarded = true
	}
	releaseGuard := func() {
		if guarded {
			_ = s.cache.ReleaseHoldGuard(ctx, input.RoomTypeID, input.CheckIn, input.CheckOut)
		}
	}

	lock, err := s.locker.LockInventory(ctx, channel.LockRequest{
		RoomTypeID: input.RoomTypeID,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		NumRooms:   input.NumRooms,
		Source:     roomType.Source,
	})
	if err != nil {
		releaseGuard()
		return nil, err
	}

	booking := domain.NewReserved(input.UserID, domain.BookingTypeHotel, quote.TotalPayablePaise, input.Email, now, s.holdTTL)
	booking.PromoCode = quote.PromoCode
	booking.ChannelRef = lock.ExternalRef

	policy := s.roomPolicySnapshot(ctx, input.RoomTypeID, input.CheckIn, now)
	detail := &domain.HotelDetail{
		BookingID:  booking.ID,
		RoomTypeID: input.RoomTypeID,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		NumRooms:   input.NumRooms,
		NumGuests:  input.NumGuests,
		Policy:     policy,
	}

	if err := s.bookings.CreateReserved(ctx, booking, detail, lock); err != nil {
		releaseGuard()
		if relErr := s.locker.ReleaseLock(ctx, lock); relErr != nil {
			log.Printf("release lock after failed create for booking %s: %v", booking.ID, relErr)
		}
		return nil, err
	}

	s.afterReserve(ctx, booking, quote)
	return &CreateBookingResult{Booking: booking, Quote: quote}, nil
}

func (s *BookingService) createSimpleBooking(ctx context.Context, input CreateBookingInput, detail domain.BookingDetail, now time.Time) (*CreateBookingResult, error) {
	promo := s.lookupPromo(ctx, input.PromoCode)
	quote := pricing.Calculate(s.pricingCfg, input.BasePaise, promo, 0, now)

	booking := domain.NewReserved(input.UserID, input.Type, quote.TotalPayablePaise, input.Email, now, s.holdTTL)
	booking.PromoCode = quote.PromoCode

	if err := s.bookings.CreateReserved(ctx, booking, detail, nil); err != nil {
		return nil, err
	}

	s.afterReserve(ctx, booking, quote)
	return &CreateBookingResult{Booking: booking, Quote: quote}, nil
}

// stayBasePaise prices the stay. Internally managed rooms price off the
// per-date availability rows, which also gives an early availability check;
// externally managed rooms use the room's base rate since the channel
// manager owns the calendar.
func (s *BookingService) stayBasePaise(ctx context.Context, roomType *domain.RoomType, input CreateBookingInput) (int64, error) {
	nights := int(input.CheckOut.Sub(input.CheckIn) / (24 * time.Hour))
	if roomType.Source == domain.LockSourceExternal {
		return roomType.BasePricePaise * int64(nights) * int64(input.NumRooms), nil
	}

	avail, err := s.inventory.StayAvailability(ctx, roomType.ID, input.CheckIn, input.CheckOut)
	if err != nil {
		return 0, err
	}

	byDate := make(map[string]domain.RoomAvailability, len(avail))
	for _, a := range avail {
		byDate[a.Date.Format("2006-01-02")] = a
	}

	var base int64
	for date := input.CheckIn; date.Before(input.CheckOut); date = date.AddDate(0, 0, 1) {
		a, ok := byDate[date.Format("2006-01-02")]
		if !ok {
			return 0, &domain.AvailabilityError{RoomTypeID: roomType.ID, Date: date, Requested: input.NumRooms, Available: 0}
		}
		if a.AvailableRooms < input.NumRooms {
			return 0, &domain.AvailabilityError{RoomTypeID: roomType.ID, Date: date, Requested: input.NumRooms, Available: a.AvailableRooms}
		}
		base += a.PricePaise * int64(input.NumRooms)
	}
	return base, nil
}

// lookupPromo degrades to no promo on any failure; pricing must never abort
// a checkout because a promo would not load.
func (s *BookingService) lookupPromo(ctx context.Context, code string) *domain.PromoCode {
	if code == "" {
		return nil
	}
	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		log.Printf("promo %q lookup failed, pricing without discount: %v", code, err)
		return nil
	}
	return promo
}

// roomPolicySnapshot locks the room's active cancellation policy onto the
// booking. A room without a policy snapshots as free cancellation; rooms
// must carry an explicit NON_REFUNDABLE policy to withhold refunds.
func (s *BookingService) roomPolicySnapshot(ctx context.Context, roomTypeID uuid.UUID, checkIn, now time.Time) domain.PolicySnapshot {
	policy, err := s.inventory.GetCancellationPolicy(ctx, roomTypeID)
	if err != nil {
		if !errors.Is(err, domain.ErrPolicyNotFound) {
			log.Printf("policy lookup for room %s failed, defaulting to free cancellation: %v", roomTypeID, err)
		}
		return domain.PolicySnapshot{Type: domain.PolicyFree, RefundPercent: 100, Text: "Free cancellation", LockedAt: &now}
	}
	return policy.Snapshot(checkIn, now)
}

func (s *BookingService) afterReserve(ctx context.Context, booking *domain.Booking, quote pricing.Quote) {
	if quote.PromoCode != "" {
		if err := s.promos.IncrementUsage(ctx, quote.PromoCode); err != nil {
			log.Printf("increment usage for promo %q: %v", quote.PromoCode, err)
		}
	}
	s.publish(ctx, "booking_reserved", booking)
}

func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) GetTimer(ctx context.Context, id uuid.UUID) (*Timer, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Timer{
		BookingID:        b.ID,
		Status:           b.Status,
		SecondsRemaining: b.HoldRemaining(time.Now()),
		ExpiresAt:        b.ExpiresAt,
	}, nil
}

func (s *BookingService) CompletePayment(ctx context.Context, input PaymentInput) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	if !input.Succeeded {
		if b.Status == domain.BookingStatusPaymentFailed {
			return b, nil
		}
		lock := s.lockBeforeSettle(ctx, b.ID)
		updated, err := s.bookings.MarkPaymentFailed(ctx, b.ID, time.Now())
		if err != nil {
			return nil, err
		}
		s.releaseLock(ctx, lock)
		s.publish(ctx, "payment_failed", updated)
		return updated, nil
	}

	now := time.Now()
	if !b.HoldActive(now) {
		return nil, domain.ErrHoldExpired
	}

	walletApplied := input.WalletPaise
	if walletApplied > b.TotalPaise {
		walletApplied = b.TotalPaise
	}
	if walletApplied < 0 {
		walletApplied = 0
	}
	if gatewayNeeded := b.TotalPaise - walletApplied; input.GatewayPaise != gatewayNeeded {
		return nil, fmt.Errorf("gateway amount mismatch: expected %d, got %d", gatewayNeeded, input.GatewayPaise)
	}

	updated, err := s.bookings.ConfirmPayment(ctx, b.ID, walletApplied, now)
	if err != nil {
		return nil, err
	}

	if lock, lockErr := s.bookings.GetLock(ctx, updated.ID); lockErr == nil && lock != nil {
		if err := s.locker.ConfirmLock(ctx, lock); err != nil {
			log.Printf("confirm channel lock for booking %s: %v", updated.ID, err)
		}
	}
	s.releaseHoldGuardFor(ctx, updated)
	s.publish(ctx, "booking_confirmed", updated)
	return updated, nil
}

func (s *BookingService) RefundPreview(ctx context.Context, id uuid.UUID) (*RefundPreview, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	preview := &RefundPreview{BookingID: b.ID, PaidPaise: b.PaidPaise, Cancellable: b.Cancellable()}
	if !b.Cancellable() {
		return preview, nil
	}

	detail, err := s.bookings.GetDetail(ctx, b.ID, b.Type)
	if err != nil {
		return nil, err
	}
	preview.RefundPaise = refundAmount(b, detail, time.Now())
	if hotel, ok := detail.(*domain.HotelDetail); ok {
		preview.PolicyType = hotel.Policy.Type
		preview.RefundPercent = hotel.Policy.RefundPercent
	}
	return preview, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID, actor string) (*CancelResult, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch b.Status {
	case domain.BookingStatusCancelled, domain.BookingStatusRefunded, domain.BookingStatusExpired:
		return &CancelResult{Booking: b, AlreadyCancelled: true}, nil
	}
	if !b.Cancellable() {
		return nil, &domain.TransitionError{From: b.Status, To: domain.BookingStatusCancelled}
	}

	detail, err := s.bookings.GetDetail(ctx, b.ID, b.Type)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	refund := refundAmount(b, detail, now)

	lock := s.lockBeforeSettle(ctx, b.ID)
	updated, applied, err := s.bookings.CancelWithRefund(ctx, b.ID, refund, actor, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return &CancelResult{Booking: updated, AlreadyCancelled: true}, nil
	}

	s.releaseLock(ctx, lock)
	s.releaseHoldGuardFor(ctx, updated)
	s.publish(ctx, "booking_cancelled", updated)
	return &CancelResult{Booking: updated, RefundPaise: refund, WalletCredited: refund > 0}, nil
}

// ExpireOverdueBookings is the sweep entry point. It is safe to run
// concurrently with itself and with user-driven cancellation or payment:
// the per-row compare-and-set in the repository decides every race.
func (s *BookingService) ExpireOverdueBookings(ctx context.Context, dryRun bool) ([]domain.Booking, error) {
	now := time.Now()
	candidates, err := s.bookings.ListExpirable(ctx, now, 100)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return candidates, nil
	}

	var expired []domain.Booking
	for _, c := range candidates {
		lock := s.lockBeforeSettle(ctx, c.ID)
		updated, applied, err := s.bookings.Expire(ctx, c.ID, now)
		if err != nil {
			log.Printf("expire booking %s: %v", c.ID, err)
			continue
		}
		if !applied {
			continue
		}
		s.releaseLock(ctx, lock)
		s.releaseHoldGuardFor(ctx, updated)
		s.publish(ctx, "booking_expired", updated)
		expired = append(expired, *updated)
	}
	return expired, nil
}

func (s *BookingService) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, []domain.WalletTransaction, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	txns, err := s.wallets.Transactions(ctx, wallet.ID, 50)
	if err != nil {
		return nil, nil, err
	}
	return wallet, txns, nil
}

// refundAmount uses only the policy snapshot locked onto the hotel detail.
// Bus and package bookings refund in full before departure and nothing once
// the travel date has passed.
func refundAmount(b *domain.Booking, detail domain.BookingDetail, now time.Time) int64 {
	switch d := detail.(type) {
	case *domain.HotelDetail:
		return d.Policy.RefundFor(b.PaidPaise)
	case *domain.BusDetail:
		if !now.Before(d.TravelDate) {
			return 0
		}
		return b.PaidPaise
	case *domain.PackageDetail:
		if !now.Before(d.StartDate) {
			return 0
		}
		return b.PaidPaise
	default:
		return b.PaidPaise
	}
}

// lockBeforeSettle loads the inventory lock ahead of the repository
// transaction that settles it. A settled row short-circuits the remote
// release, so the pre-settlement snapshot is what must go to the channel
// manager.
func (s *BookingService) lockBeforeSettle(ctx context.Context, bookingID uuid.UUID) *domain.InventoryLock {
	lock, err := s.bookings.GetLock(ctx, bookingID)
	if err != nil {
		log.Printf("load lock for booking %s: %v", bookingID, err)
		return nil
	}
	return lock
}

// releaseLock is best-effort: a failed channel-manager release must never
// block the booking's own status change.
func (s *BookingService) releaseLock(ctx context.Context, lock *domain.InventoryLock) {
	if lock == nil {
		return
	}
	if err := s.locker.ReleaseLock(ctx, lock); err != nil {
		log.Printf("release channel lock %s: %v", lock.ID, err)
	}
}

func (s *BookingService) releaseHoldGuardFor(ctx context.Context, b *domain.Booking) {
	if s.cache == nil || b.Type != domain.BookingTypeHotel {
		return
	}
	detail, err := s.bookings.GetDetail(ctx, b.ID, b.Type)
	if err != nil {
		return
	}
	if hotel, ok := detail.(*domain.HotelDetail); ok {
		_ = s.cache.ReleaseHoldGuard(ctx, hotel.RoomTypeID, hotel.CheckIn, hotel.CheckOut)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID.String(),
		BookingType: string(booking.Type),
		Status:      string(booking.Status),
		TotalPaise:  booking.TotalPaise,
		RefundPaise: booking.RefundPaise,
		Email:       booking.Email,
		ExpiresAt:   booking.ExpiresAt,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, event.BookingID, event); err != nil {
		log.Printf("publish %s event for booking %s: %v", eventType, booking.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, event.BookingID, event); err != nil {
			log.Printf("publish %s notification for booking %s: %v", eventType, booking.ID, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)

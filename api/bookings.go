package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tripora/booking/internal/domain"
	"github.com/tripora/booking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.GET("/:id/timer", h.timer)
	router.POST("/:id/payment", h.payment)
	router.GET("/:id/refund-preview", h.refundPreview)
	router.POST("/:id/cancel", h.cancel)
}

type createBookingRequest struct {
	UserID    string `json:"user_id"`
	Type      string `json:"booking_type"`
	Email     string `json:"email"`
	PromoCode string `json:"promo_code"`

	RoomTypeID string `json:"room_type_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	NumRooms   int    `json:"num_rooms"`
	NumGuests  int    `json:"num_guests"`

	RouteID     string   `json:"route_id"`
	TravelDate  string   `json:"travel_date"`
	SeatNumbers []string `json:"seat_numbers"`

	PackageID string `json:"package_id"`
	StartDate string `json:"start_date"`

	Travelers []domain.Traveler `json:"travelers"`
	BasePaise int64             `json:"base_paise"`
}

type bookingResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BookingType string `json:"booking_type"`
	TotalPaise  int64  `json:"total_paise"`
	PaidPaise   int64  `json:"paid_paise"`
	RefundPaise int64  `json:"refund_paise"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	Email       string `json:"email"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:          b.ID.String(),
		Status:      string(b.Status),
		BookingType: string(b.Type),
		TotalPaise:  b.TotalPaise,
		PaidPaise:   b.PaidPaise,
		RefundPaise: b.RefundPaise,
		Email:       b.Email,
	}
	if b.ExpiresAt != nil {
		resp.ExpiresAt = b.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		status := http.StatusBadRequest
		var availErr *domain.AvailabilityError
		if errors.As(err, &availErr) || errors.Is(err, domain.ErrRoomHeld) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking": toBookingResponse(result.Booking),
		"quote":   result.Quote,
	})
}

func (req createBookingRequest) toInput() (booking.CreateBookingInput, error) {
	input := booking.CreateBookingInput{
		Type:        domain.BookingType(req.Type),
		Email:       req.Email,
		PromoCode:   req.PromoCode,
		NumRooms:    req.NumRooms,
		NumGuests:   req.NumGuests,
		SeatNumbers: req.SeatNumbers,
		Travelers:   req.Travelers,
		BasePaise:   req.BasePaise,
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return input, errors.New("invalid user_id")
	}
	input.UserID = userID

	parseDate := func(value string) (time.Time, error) {
		return time.Parse("2006-01-02", value)
	}

	switch input.Type {
	case domain.BookingTypeHotel:
		if input.RoomTypeID, err = uuid.Parse(req.RoomTypeID); err != nil {
			return input, errors.New("invalid room_type_id")
		}
		if input.CheckIn, err = parseDate(req.CheckIn); err != nil {
			return input, errors.New("invalid check_in date")
		}
		if input.CheckOut, err = parseDate(req.CheckOut); err != nil {
			return input, errors.New("invalid check_out date")
		}
	case domain.BookingTypeBus:
		if input.RouteID, err = uuid.Parse(req.RouteID); err != nil {
			return input, errors.New("invalid route_id")
		}
		if input.TravelDate, err = parseDate(req.TravelDate); err != nil {
			return input, errors.New("invalid travel_date")
		}
	case domain.BookingTypePackage:
		if input.PackageID, err = uuid.Parse(req.PackageID); err != nil {
			return input, errors.New("invalid package_id")
		}
		if input.StartDate, err = parseDate(req.StartDate); err != nil {
			return input, errors.New("invalid start_date")
		}
	}
	return input, nil
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBookingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) timer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	timer, err := h.service.GetTimer(c.Request.Context(), id)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBookingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, timer)
}

type paymentRequest struct {
	WalletPaise  int64  `json:"wallet_paise"`
	GatewayPaise int64  `json:"gateway_paise"`
	GatewayRef   string `json:"gateway_ref"`
	Succeeded    bool   `json:"succeeded"`
}

func (h *BookingHandler) payment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.CompletePayment(c.Request.Context(), booking.PaymentInput{
		BookingID:    id,
		WalletPaise:  req.WalletPaise,
		GatewayPaise: req.GatewayPaise,
		GatewayRef:   req.GatewayRef,
		Succeeded:    req.Succeeded,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBookingNotFound) {
			status = http.StatusNotFound
		}
		if errors.Is(err, domain.ErrHoldExpired) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) refundPreview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	preview, err := h.service.RefundPreview(c.Request.Context(), id)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBookingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), id, "user")
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBookingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking":           toBookingResponse(result.Booking),
		"refund_paise":      result.RefundPaise,
		"wallet_credited":   result.WalletCredited,
		"already_cancelled": result.AlreadyCancelled,
	})
}

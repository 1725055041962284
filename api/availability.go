package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tripora/booking/internal/domain"
	"github.com/tripora/booking/internal/service/availability"
	"github.com/tripora/booking/internal/service/booking"
)

type AvailabilityHandler struct {
	service availability.AvailabilityUseCase
}

func NewAvailabilityHandler(service availability.AvailabilityUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.roomType)
	router.GET("/:id/availability", h.stay)
}

func (h *AvailabilityHandler) roomType(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room type id"})
		return
	}

	rt, err := h.service.RoomType(c.Request.Context(), id)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrRoomTypeNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rt)
}

func (h *AvailabilityHandler) stay(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room type id"})
		return
	}

	checkIn, err := time.Parse("2006-01-02", c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_in date"})
		return
	}
	checkOut, err := time.Parse("2006-01-02", c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_out date"})
		return
	}
	if !checkOut.After(checkIn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be after check_in"})
		return
	}

	avail, err := h.service.Stay(c.Request.Context(), id, checkIn, checkOut)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, avail)
}

// WalletHandler exposes the read-only wallet view backed by the booking
// service.
type WalletHandler struct {
	service booking.BookingUseCase
}

func NewWalletHandler(service booking.BookingUseCase) *WalletHandler {
	return &WalletHandler{service: service}
}

func (h *WalletHandler) Register(router *gin.RouterGroup) {
	router.GET("/:user_id", h.get)
}

func (h *WalletHandler) get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	wallet, txns, err := h.service.GetWallet(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrWalletNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance_paise": wallet.BalancePaise,
		"transactions":  txns,
	})
}

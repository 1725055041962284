package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tripora/booking/api"
	"github.com/tripora/booking/config"
	"github.com/tripora/booking/internal/service/availability"
	"github.com/tripora/booking/internal/service/booking"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, bookingSvc booking.BookingUseCase, availSvc availability.AvailabilityUseCase) error {
	router := gin.Default()

	api.NewBookingHandler(bookingSvc).Register(router.Group("/bookings"))
	api.NewAvailabilityHandler(availSvc).Register(router.Group("/rooms"))
	api.NewWalletHandler(bookingSvc).Register(router.Group("/wallets"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

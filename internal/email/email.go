package email

import (
	"context"
	"fmt"

	"github.com/tripora/booking/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email to %s about %s for %s booking %s\n", event.Email, event.Type, event.BookingType, event.BookingID)
	return nil
}

package delivery

import (
	"context"
	"fmt"

	"goodfit/internal/events"
	"goodfit/internal/model"
)

// SMSSender hands codes to the SMS gateway worker over the event bus.
type SMSSender struct {
	publisher events.Publisher
}

func NewSMSSender(p events.Publisher) *SMSSender {
	return &SMSSender{publisher: p}
}

func (s *SMSSender) SendCode(ctx context.Context, to model.Contact, code string) error {
	msg := events.SMSMessage{
		Phone: to.Phone,
		Text:  fmt.Sprintf("GoodFit: ваш код %s", code),
	}
	if err := s.publisher.Publish(ctx, events.SubjectSMSOTP, msg); err != nil {
		return fmt.Errorf("sms dispatch failed: %w", err)
	}
	return nil
}

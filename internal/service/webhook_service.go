package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

var (
	ErrWebhookUnauthorized = errors.New("invalid webhook secret")
	ErrInvalidWebhook      = errors.New("invalid webhook payload")
)

const (
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
)

type WebhookEvent struct {
	EventType     string         `json:"eventType"`
	Base          any            `json:"base,omitempty"`
	Table         any            `json:"table,omitempty"`
	Record        *WebhookRecord `json:"record"`
	WebhookSecret string         `json:"webhookSecret,omitempty"`
}

type WebhookRecord struct {
	ID string `json:"id"`
}

type WebhookService struct {
	responses     ResponseStore
	secret        string
	requireSecret bool
}

func NewWebhookService(responses ResponseStore, secret string, requireSecret bool) *WebhookService {
	return &WebhookService{responses: responses, secret: secret, requireSecret: requireSecret}
}

// Authorize checks a provided secret. With no secret configured every call
// passes; a missing secret is refused only when one is required.
func (s *WebhookService) Authorize(provided string) error {
	if s.secret == "" {
		return nil
	}
	if provided == "" {
		if s.requireSecret {
			return ErrWebhookUnauthorized
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) != 1 {
		return ErrWebhookUnauthorized
	}
	return nil
}

// Handle applies an Airtable record event to the stored response. It
// reports false when no response mirrors the record.
func (s *WebhookService) Handle(ctx context.Context, ev WebhookEvent) (bool, error) {
	if ev.EventType == "" || ev.Record == nil {
		return false, ErrInvalidWebhook
	}
	if ev.Record.ID == "" {
		return false, nil
	}
	resp, err := s.responses.FindByRecordID(ctx, ev.Record.ID)
	if err != nil {
		return false, err
	}
	if resp == nil {
		return false, nil
	}

	switch ev.EventType {
	case EventRecordUpdated:
		resp.Status = models.StatusActive
		resp.UpdatedAt = timestamp()
	case EventRecordDeleted:
		resp.Status = models.StatusDeletedInAirtable
		resp.UpdatedAt = timestamp()
	default:
		slog.Info("unhandled webhook event", slog.String("eventType", ev.EventType), slog.String("recordId", ev.Record.ID))
		return true, nil
	}
	if err := s.responses.Update(ctx, resp.ID, resp); err != nil {
		return true, err
	}
	slog.Info("webhook applied", slog.String("eventType", ev.EventType), slog.String("responseId", resp.ID))
	return true, nil
}

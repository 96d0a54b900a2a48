package api

import (
	"context"
	"fmt"
	"net/http"

	"bus-ticket/internal/auth"
	"bus-ticket/models"
)

// HelpService drives the in-app support chat. A user has at most one open
// help thread; messages hang off the thread.
type HelpService struct {
	gw *auth.Gateway
}

func NewHelpService(gw *auth.Gateway) *HelpService {
	return &HelpService{gw: gw}
}

// Thread returns the user's help thread, or nil when none exists yet.
func (s *HelpService) Thread(ctx context.Context, userID string) (*models.HelpThread, error) {
	resp, err := s.gw.Do(ctx, http.MethodGet, "/help/"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("help thread: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			Help *models.HelpThread `json:"help"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("help thread: %w", err)
	}
	return reply.Data.Help, nil
}

// Create opens a new help thread with an initial message.
func (s *HelpService) Create(ctx context.Context, content string) (*models.HelpThread, error) {
	body, err := marshalBody(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("create help thread: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPost, "/help/create", body, nil)
	if err != nil {
		return nil, fmt.Errorf("create help thread: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			Help models.HelpThread `json:"help"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("create help thread: %w", err)
	}
	return &reply.Data.Help, nil
}

func (s *HelpService) Messages(ctx context.Context, helpID string) ([]models.HelpMessage, error) {
	resp, err := s.gw.Do(ctx, http.MethodGet, "/help/messages/"+helpID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("help messages: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			Messages []models.HelpMessage `json:"messages"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("help messages: %w", err)
	}
	return reply.Data.Messages, nil
}

func (s *HelpService) Send(ctx context.Context, helpID, content string) error {
	body, err := marshalBody(map[string]string{
		"helpId":  helpID,
		"content": content,
	})
	if err != nil {
		return fmt.Errorf("send help message: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPost, "/help/send-message", body, nil)
	if err != nil {
		return fmt.Errorf("send help message: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("send help message: %w", err)
	}
	return nil
}

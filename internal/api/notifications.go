package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"bus-ticket/internal/auth"
	"bus-ticket/models"
)

type NotificationService struct {
	gw *auth.Gateway
}

func NewNotificationService(gw *auth.Gateway) *NotificationService {
	return &NotificationService{gw: gw}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	resp, err := s.gw.Do(ctx, http.MethodGet, "/notifications/user/"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			Notifications []models.Notification `json:"notifications"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}

	notifications := reply.Data.Notifications
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkRead flags a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	resp, err := s.gw.Do(ctx, http.MethodPut, "/notifications/"+notificationID+"/read", nil, nil)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"bus-ticket/internal/auth"
	"bus-ticket/internal/status"
	"bus-ticket/models"
)

// UserService covers account management. Registration and the forgot-password
// flow are public; profile and password changes ride the gateway.
type UserService struct {
	c  *Client
	gw *auth.Gateway
}

func NewUserService(c *Client, gw *auth.Gateway) *UserService {
	return &UserService{c: c, gw: gw}
}

func (s *UserService) Register(ctx context.Context, name, phone, password string) error {
	resp, err := s.c.post(ctx, "/users/register", map[string]string{
		"name":     name,
		"password": password,
		"phone":    phone,
		"role":     "user",
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("register: backend rejected registration: %s", reply.Message)
	}
	return nil
}

func (s *UserService) Profile(ctx context.Context) (*models.User, error) {
	resp, err := s.gw.Do(ctx, http.MethodGet, "/users/profile", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			User models.User `json:"user"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &reply.Data.User, nil
}

// UpdateProfile pushes the editable profile fields. Empty fields are sent
// as-is; the backend treats them as "clear".
func (s *UserService) UpdateProfile(ctx context.Context, name, email, address string) (*models.User, error) {
	body, err := marshalBody(map[string]string{
		"name":    name,
		"email":   email,
		"address": address,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPut, "/users/profile", body, nil)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			User models.User `json:"user"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &reply.Data.User, nil
}

func (s *UserService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body, err := marshalBody(map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	})
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPut, "/users/change-password", body, nil)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// UploadAvatar replaces the profile picture. The endpoint takes multipart
// form data, which the gateway's forced JSON content type cannot carry, so
// the request is built here with the current token and no refresh-and-replay:
// an expired token surfaces as the response status.
func (s *UserService) UploadAvatar(ctx context.Context, filename string, data io.Reader) error {
	token := s.gw.AccessToken()
	if token == "" {
		return status.ErrNoAccessToken
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("upload avatar: multipart.CreateFormFile: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return fmt.Errorf("upload avatar: io.Copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("upload avatar: multipart.Close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.baseURL+"/users/avatar", &buf)
	if err != nil {
		return fmt.Errorf("upload avatar: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("upload avatar: http.Do: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload avatar: backend refused: %s", reply.Message)
	}
	return nil
}

// RequestPasswordReset asks for an OTP to be sent to the phone.
func (s *UserService) RequestPasswordReset(ctx context.Context, phone string) error {
	resp, err := s.c.post(ctx, "/users/forgot-password/request", map[string]string{
		"phone": phone,
	})
	if err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request password reset: backend refused: %s", reply.Message)
	}
	return nil
}

// ResetPassword exchanges the OTP for a new password.
func (s *UserService) ResetPassword(ctx context.Context, phone, otp, newPassword string) error {
	resp, err := s.c.post(ctx, "/users/forgot-password/reset", map[string]string{
		"phone":       phone,
		"otp":         otp,
		"newPassword": newPassword,
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reset password: backend refused: %s", reply.Message)
	}
	return nil
}

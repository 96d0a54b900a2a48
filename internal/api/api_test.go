package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-ticket/internal/auth"
	"bus-ticket/internal/store"
	"bus-ticket/models"
)

func newAuthedGateway(t *testing.T, baseURL string) *auth.Gateway {
	t.Helper()

	st := store.NewMemStore()
	blob, err := json.Marshal(models.StoredUser{
		UserInfo:    models.User{ID: "u1", Name: "Anousone", Phone: "2055512345"},
		AccessToken: "T1",
	})
	require.NoError(t, err)
	require.NoError(t, st.Set(store.KeyUser, string(blob)))
	require.NoError(t, st.Set(store.KeyRefreshToken, "R1"))

	gw := auth.New(&auth.Config{BaseURL: baseURL}, st)
	require.NoError(t, gw.Load(context.Background()))
	return gw
}

func TestStationService_List(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "get stations successfully",
			"data": []models.Station{
				{ID: "st1", Name: "Central"},
				{ID: "st2", Name: "Southern"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewStationService(NewClient(srv.URL, 0), nil)
	stations, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "st1", stations[0].ID)
	assert.Equal(t, "Southern", stations[1].Name)
}

func TestTripService_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /trips", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "st1", r.URL.Query().Get("startLocation"))
		assert.Equal(t, "st2", r.URL.Query().Get("endLocation"))
		assert.Equal(t, "2026-09-01", r.URL.Query().Get("time"))

		json.NewEncoder(w).Encode(map[string]any{
			"message": "get trips successfully",
			"data": map[string]any{
				"trips": []models.Trip{
					{ID: "trip1", Price: decimal.NewFromInt(150000)},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewTripService(NewClient(srv.URL, 0), nil)
	trips, err := svc.Search(context.Background(), "st1", "st2", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "trip1", trips[0].ID)
	assert.True(t, trips[0].Price.Equal(decimal.NewFromInt(150000)))
}

func TestTripService_Detail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /trips/trip1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "get trip successfully",
			"data": models.Trip{
				ID:                 "trip1",
				Bus:                models.Bus{ID: "bus1", SeatCapacity: 36},
				BookedPhoneNumbers: make([]string, 36),
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewTripService(NewClient(srv.URL, 0), nil)
	trip, err := svc.Detail(context.Background(), "trip1")
	require.NoError(t, err)
	assert.Equal(t, 36, trip.Bus.SeatCapacity)
	assert.Len(t, trip.BookedPhoneNumbers, 36)
}

func TestTicketService_Book_PartialSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tickets", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))

		var req struct {
			TripID      string `json:"tripId"`
			SeatNumbers []int  `json:"seatNumbers"`
			Phone       string `json:"phone"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "trip1", req.TripID)
		assert.Equal(t, []int{3, 4}, req.SeatNumbers)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": models.BookingResult{
				BookedSeats:    []models.BookedSeat{{TicketID: "tk1", SeatNumber: 3}},
				FailedSeats:    []int{4},
				TotalRequested: 2,
				TotalBooked:    1,
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewTicketService(newAuthedGateway(t, srv.URL))
	result, err := svc.Book(context.Background(), "trip1", []int{3, 4}, "2055512345")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalBooked)
	assert.Equal(t, []int{4}, result.FailedSeats)
	assert.Equal(t, "tk1", result.BookedSeats[0].TicketID)
}

func TestTicketService_MarkPaid(t *testing.T) {
	var gotMethod, gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /tickets/update/tk1", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "paid", req["paymentStatus"])
		assert.Equal(t, "MOMO", req["paymentMethod"])

		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewTicketService(newAuthedGateway(t, srv.URL))
	require.NoError(t, svc.MarkPaid(context.Background(), "tk1", "MOMO"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/tickets/update/tk1", gotPath)
}

func TestTicketService_Cancel(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /tickets/tk1", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewTicketService(newAuthedGateway(t, srv.URL))
	require.NoError(t, svc.Cancel(context.Background(), "tk1"))
	assert.Equal(t, "/tickets/tk1", gotPath)
}

func TestTicketService_Cancel_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /tickets/tk9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "ticket already departed",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewTicketService(newAuthedGateway(t, srv.URL))
	err := svc.Cancel(context.Background(), "tk9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticket already departed")
}

func TestPaymentService_Create(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payment/create", func(w http.ResponseWriter, r *http.Request) {
		var req models.PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tk1-tk2", req.OrderID)
		assert.Equal(t, "MOMO", req.Provider)
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(300000)))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    models.PaymentSession{PaymentURL: "https://pay.example.com/s/abc"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewPaymentService(newAuthedGateway(t, srv.URL))
	session, err := svc.Create(context.Background(), models.PaymentRequest{
		Amount:    decimal.NewFromInt(300000),
		OrderID:   OrderID([]string{"tk1", "tk2"}),
		OrderInfo: "bus tickets",
		Provider:  "MOMO",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/s/abc", session.PaymentURL)
}

func TestOrderID_RoundTrip(t *testing.T) {
	assert.Equal(t, "tk1-tk2-tk3", OrderID([]string{"tk1", "tk2", "tk3"}))
	assert.Equal(t, []string{"tk1", "tk2", "tk3"}, SplitOrderID("tk1-tk2-tk3"))
	assert.Nil(t, SplitOrderID(""))
}

func TestNotificationService_List_SortsNewestFirst(t *testing.T) {
	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications/user/u1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "get notifications successfully",
			"data": map[string]any{
				"notifications": []models.Notification{
					{ID: "n1", CreatedAt: older},
					{ID: "n2", CreatedAt: newer},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewNotificationService(newAuthedGateway(t, srv.URL))
	notifications, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Equal(t, "n2", notifications[0].ID)
	assert.Equal(t, "n1", notifications[1].ID)
}

func TestUserService_Register_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "phone already registered"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(NewClient(srv.URL, 0), nil)
	err := svc.Register(context.Background(), "Anousone", "2055512345", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone already registered")
}

func TestUserService_Profile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/profile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "get profile successfully",
			"data": map[string]any{
				"user": models.User{ID: "u1", Name: "Anousone", Phone: "2055512345"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(nil, newAuthedGateway(t, srv.URL))
	user, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Anousone", user.Name)
}

func TestUserService_UpdateProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /users/profile", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Anousone P.", req["name"])
		assert.Equal(t, "anousone@example.com", req["email"])
		assert.Equal(t, "Vientiane", req["address"])

		json.NewEncoder(w).Encode(map[string]any{
			"message": "profile updated",
			"data": map[string]any{
				"user": models.User{
					ID:      "u1",
					Name:    "Anousone P.",
					Email:   "anousone@example.com",
					Address: "Vientiane",
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(nil, newAuthedGateway(t, srv.URL))
	user, err := svc.UpdateProfile(context.Background(), "Anousone P.", "anousone@example.com", "Vientiane")
	require.NoError(t, err)
	assert.Equal(t, "Anousone P.", user.Name)
	assert.Equal(t, "Vientiane", user.Address)
}

func TestUserService_ChangePassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /users/change-password", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hunter2", req["oldPassword"])
		assert.Equal(t, "hunter3", req["newPassword"])

		json.NewEncoder(w).Encode(map[string]string{"message": "password changed"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(nil, newAuthedGateway(t, srv.URL))
	require.NoError(t, svc.ChangePassword(context.Background(), "hunter2", "hunter3"))
}

func TestUserService_RequestPasswordReset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/forgot-password/request", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2055512345", req["phone"])

		json.NewEncoder(w).Encode(map[string]string{"message": "otp sent"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(NewClient(srv.URL, 0), nil)
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "2055512345"))
}

func TestUserService_ResetPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/forgot-password/reset", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2055512345", req["phone"])
		assert.Equal(t, "482913", req["otp"])
		assert.Equal(t, "hunter3", req["newPassword"])

		json.NewEncoder(w).Encode(map[string]string{"message": "password reset"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(NewClient(srv.URL, 0), nil)
	require.NoError(t, svc.ResetPassword(context.Background(), "2055512345", "482913", "hunter3"))
}

func TestUserService_ResetPassword_BadOTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/forgot-password/reset", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired OTP"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(NewClient(srv.URL, 0), nil)
	err := svc.ResetPassword(context.Background(), "2055512345", "000000", "hunter3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or expired OTP")
}

func TestUserService_UploadAvatar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/avatar", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "me.png", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake-png-bytes"), content)

		json.NewEncoder(w).Encode(map[string]string{"message": "avatar updated"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewUserService(NewClient(srv.URL, 0), newAuthedGateway(t, srv.URL))
	err := svc.UploadAvatar(context.Background(), "/tmp/me.png", strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)
}

func TestHelpService_ThreadAndMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /help/u1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "get help successfully",
			"data": map[string]any{
				"help": models.HelpThread{ID: "h1", UserID: "u1", Status: "open"},
			},
		})
	})
	mux.HandleFunc("GET /help/messages/h1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "get messages successfully",
			"data": map[string]any{
				"messages": []models.HelpMessage{
					{SenderID: "u1", Content: "my ticket is missing"},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewHelpService(newAuthedGateway(t, srv.URL))

	thread, err := svc.Thread(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.Equal(t, "h1", thread.ID)

	messages, err := svc.Messages(context.Background(), thread.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "my ticket is missing", messages[0].Content)
}

func TestHelpService_Thread_NoneYet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /help/u1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "no help found",
			"data":    map[string]any{"help": nil},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewHelpService(newAuthedGateway(t, srv.URL))
	thread, err := svc.Thread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, thread)
}

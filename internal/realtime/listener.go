// Package realtime subscribes to the backend's push channels. The server
// publishes booking and support events over PubNub; this listener turns them
// into typed callbacks for the app.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// Event is a single push message off a subscribed channel.
type Event struct {
	// Type discriminates the payload: "new_notification", "help_message",
	// "seat_update", "payment_success".
	Type    string
	Channel string
	Payload map[string]any
}

// Handler receives every decoded event. Called from the listener goroutine;
// long work should be handed off.
type Handler func(Event)

type Listener struct {
	pn      *pubnub.PubNub
	handler Handler
}

func New(publishKey, subscribeKey string, handler Handler) *Listener {
	cfg := pubnub.NewConfig()
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey

	return &Listener{
		pn:      pubnub.NewPubNub(cfg),
		handler: handler,
	}
}

// UserChannel carries notifications and payment outcomes for one user.
func UserChannel(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// HelpChannel carries support chat messages for one help thread.
func HelpChannel(helpID string) string {
	return fmt.Sprintf("help-%s", helpID)
}

// TripChannel carries live seat updates for one trip.
func TripChannel(tripID string) string {
	return fmt.Sprintf("trip-%s", tripID)
}

// Listen subscribes to the channels and dispatches events until ctx is done.
func (l *Listener) Listen(ctx context.Context, channels ...string) {
	listener := pubnub.NewListener()

	l.pn.AddListener(listener)
	l.pn.Subscribe().
		Channels(channels).
		Execute()

	slog.Info("realtime listener started", "channels", channels)

	for {
		select {
		case message := <-listener.Message:
			l.dispatch(message)
		case status := <-listener.Status:
			slog.Debug("realtime status", "category", status.Category)
		case <-listener.Presence:
			// presence events are not used
		case <-ctx.Done():
			l.pn.Unsubscribe().
				Channels(channels).
				Execute()
			slog.Info("realtime listener stopped")
			return
		}
	}
}

func (l *Listener) dispatch(message *pubnub.PNMessage) {
	payload, ok := message.Message.(map[string]any)
	if !ok {
		// some publishers send JSON strings instead of objects
		raw, isString := message.Message.(string)
		if !isString {
			slog.Warn("realtime message has unexpected shape", "channel", message.Channel)
			return
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			slog.Warn("realtime message is not JSON", "channel", message.Channel, "error", err)
			return
		}
	}

	eventType, _ := payload["type"].(string)
	l.handler(Event{
		Type:    eventType,
		Channel: message.Channel,
		Payload: payload,
	})
}

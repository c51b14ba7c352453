// Package notify delivers push notifications to device registration tokens.
//
// Dispatcher is the seam: FCM talks to Firebase Cloud Messaging, LogDispatcher
// only logs (development and the memory backend), and tests supply fakes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// Channel names the delivery channel recorded on journal events.
const Channel = "FCM"

var (
	// ErrUnregistered means the token is no longer valid and should be cleared.
	ErrUnregistered = errors.New("registration token is not registered")
	// ErrNoToken is returned for messages without a token.
	ErrNoToken = errors.New("message has no token")
)

// Message is one push notification to one device.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Dispatcher sends a single message and returns the provider's message id.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Result is the outcome for one message of a SendEach call.
type Result struct {
	Index int
	Token string
	ID    string
	Err   error
}

// SendEach sends msgs with at most limit in flight. A failure never stops
// the remaining sends; every message gets a Result in input order.
func SendEach(ctx context.Context, d Dispatcher, msgs []Message, limit int) []Result {
	results := make([]Result, len(msgs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, m := range msgs {
		g.Go(func() error {
			id, err := d.Send(ctx, m)
			results[i] = Result{Index: i, Token: m.Token, ID: id, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FCM sends through Firebase Cloud Messaging.
type FCM struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewFCM initializes a Firebase app from a service-account credentials file.
// An empty projectID lets the SDK take it from the credentials.
func NewFCM(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*FCM, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCM{client: client, log: logger}, nil
}

func (f *FCM) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrNoToken
	}
	id, err := f.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("%w: %v", ErrUnregistered, err)
		}
		f.log.Warn("fcm send failed", zap.Error(err))
		return "", err
	}
	return id, nil
}

// LogDispatcher logs messages instead of sending them. It records what it
// has sent so development setups can inspect it.
type LogDispatcher struct {
	log  *zap.Logger
	mu   sync.Mutex
	sent []Message
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{log: logger}
}

func (l *LogDispatcher) Send(_ context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrNoToken
	}
	id := uuid.NewString()
	l.log.Info("notification (log only)",
		zap.String("id", id),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()
	return id, nil
}

// Sent returns a copy of every message sent so far.
func (l *LogDispatcher) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

// Package journal records a group's shared food timeline and sends
// fridge reminders between members.
//
// Every operation takes the caller's session snapshot and refuses anything
// short of Authenticated with a group that still exists.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/notify"
	"github.com/dalemusser/foodjournal/internal/app/system/ratelimit"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

var (
	ErrNotSignedIn    = errors.New("sign in to use the journal")
	ErrNoGroup        = errors.New("create or join a group first")
	ErrStaleGroup     = errors.New("your group no longer exists")
	ErrNotInGroup     = errors.New("user is not in your group")
	ErrSelfReminder   = errors.New("cannot send a reminder to yourself")
	ErrNoToken        = errors.New("user has not enabled notifications")
	ErrEventType      = errors.New("event type cannot be logged directly")
	ErrRateLimited    = errors.New("too many reminders, try again later")
	ErrDispatchFailed = errors.New("notification could not be delivered")
)

// RateLimitedError carries how long the caller should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s (retry in %s)", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

type ProfileReader interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
}

type GroupReader interface {
	Get(ctx context.Context, id string) (models.Group, error)
}

// MemberLister resolves a group's member ids to profiles (groupmembers.Service).
type MemberLister interface {
	MembersOf(ctx context.Context, g models.Group) ([]models.Profile, error)
}

// EventLog is the events collection.
type EventLog interface {
	Log(ctx context.Context, e models.Event) (models.Event, error)
	ListRecent(ctx context.Context, groupID string, limit int) ([]models.Event, error)
}

// TokenClearer drops a device token the provider reported as unregistered.
type TokenClearer interface {
	UpdateSelf(ctx context.Context, uid string, upd profilestore.SelfUpdate) error
}

// Limiter throttles reminders per (sender, target) pair. Remaining is
// checked before a send; Allow records the hit once the send succeeded.
type Limiter interface {
	Remaining(key string) int
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

type Service struct {
	profiles ProfileReader
	groups   GroupReader
	members  MemberLister
	events   EventLog
	notifier notify.Dispatcher
	limiter  Limiter
	tokens   TokenClearer
	fanout   int
	log      *zap.Logger
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Profiles ProfileReader
	Groups   GroupReader
	Members  MemberLister
	Events   EventLog
	Notifier notify.Dispatcher
	Limiter  Limiter      // nil disables throttling
	Tokens   TokenClearer // nil keeps stale tokens
	Fanout   int          // concurrent sends for RemindGroup; default 8
}

func New(d Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.Fanout <= 0 {
		d.Fanout = 8
	}
	return &Service{
		profiles: d.Profiles,
		groups:   d.Groups,
		members:  d.Members,
		events:   d.Events,
		notifier: d.Notifier,
		limiter:  d.Limiter,
		tokens:   d.Tokens,
		fanout:   d.Fanout,
		log:      logger,
	}
}

// caller returns the signed-in profile and its live group.
func (s *Service) caller(ctx context.Context, snap session.Snapshot) (models.Profile, models.Group, error) {
	if snap.State != session.Authenticated || snap.Profile == nil {
		return models.Profile{}, models.Group{}, ErrNotSignedIn
	}
	me := *snap.Profile
	gid := snap.GroupID()
	if gid == "" {
		return models.Profile{}, models.Group{}, ErrNoGroup
	}
	g, err := s.groups.Get(ctx, gid)
	switch {
	case errors.Is(err, groupstore.ErrNotFound):
		return models.Profile{}, models.Group{}, ErrStaleGroup
	case err != nil:
		return models.Profile{}, models.Group{}, fmt.Errorf("load group %s: %w", gid, err)
	}
	if !g.HasMember(me.UID) {
		return models.Profile{}, models.Group{}, ErrStaleGroup
	}
	return me, g, nil
}

// LogEvent appends a member-logged event to the caller's group timeline.
func (s *Service) LogEvent(ctx context.Context, snap session.Snapshot, t models.EventType) (models.Event, error) {
	if !t.Loggable() {
		return models.Event{}, ErrEventType
	}
	me, g, err := s.caller(ctx, snap)
	if err != nil {
		return models.Event{}, err
	}
	return s.events.Log(ctx, models.Event{
		GroupID:  g.ID,
		Type:     t,
		UserID:   me.UID,
		UserName: me.DisplayName,
	})
}

// RecentEvents returns the caller's group timeline, newest first.
func (s *Service) RecentEvents(ctx context.Context, snap session.Snapshot, limit int) ([]models.Event, error) {
	_, g, err := s.caller(ctx, snap)
	if err != nil {
		return nil, err
	}
	return s.events.ListRecent(ctx, g.ID, limit)
}

// Delivery describes one reminder that reached the provider.
type Delivery struct {
	UID       string        `json:"uid"`
	Name      string        `json:"name"`
	MessageID string        `json:"message_id"`
	Event     *models.Event `json:"event,omitempty"`
	LogErr    error         `json:"-"`
}

// Failure describes one reminder that did not go out.
type Failure struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// SendReminder notifies one member of the caller's group. When the message
// goes out but the timeline write fails, the send still counts as a success
// and Delivery.LogErr carries the write error.
func (s *Service) SendReminder(ctx context.Context, snap session.Snapshot, targetUID string) (Delivery, error) {
	me, g, err := s.caller(ctx, snap)
	if err != nil {
		return Delivery{}, err
	}
	if targetUID == me.UID {
		return Delivery{}, ErrSelfReminder
	}
	target, err := s.profiles.Get(ctx, targetUID)
	switch {
	case errors.Is(err, profilestore.ErrNotFound):
		return Delivery{}, ErrNotInGroup
	case err != nil:
		return Delivery{}, fmt.Errorf("load profile %s: %w", targetUID, err)
	}
	if !target.InGroup(g.ID) || !g.HasMember(target.UID) {
		return Delivery{}, ErrNotInGroup
	}
	if !target.HasToken() {
		return Delivery{}, ErrNoToken
	}
	if err := s.checkLimit(me.UID, target.UID); err != nil {
		return Delivery{}, err
	}

	id, err := s.notifier.Send(ctx, reminderFor(me, target, g.ID))
	if err != nil {
		s.dropToken(ctx, target.UID, err)
		return Delivery{}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	s.consume(me.UID, target.UID)
	return s.record(ctx, me, target, g.ID, id), nil
}

// GroupReminders is the outcome of RemindGroup.
type GroupReminders struct {
	Delivered []Delivery `json:"delivered"`
	Failed    []Failure  `json:"failed"`
	NoToken   []string   `json:"no_token"`
}

// RemindGroup notifies every other member that has a token. Per-member
// failures are collected and never stop the rest.
func (s *Service) RemindGroup(ctx context.Context, snap session.Snapshot) (GroupReminders, error) {
	me, g, err := s.caller(ctx, snap)
	if err != nil {
		return GroupReminders{}, err
	}
	profiles, err := s.members.MembersOf(ctx, g)
	if err != nil {
		return GroupReminders{}, fmt.Errorf("load members: %w", err)
	}

	out := GroupReminders{Delivered: []Delivery{}, Failed: []Failure{}, NoToken: []string{}}
	var targets []models.Profile
	var msgs []notify.Message
	for _, p := range profiles {
		switch {
		case p.UID == me.UID || !p.InGroup(g.ID):
			continue
		case !p.HasToken():
			out.NoToken = append(out.NoToken, p.UID)
		default:
			if err := s.checkLimit(me.UID, p.UID); err != nil {
				out.Failed = append(out.Failed, Failure{UID: p.UID, Name: p.DisplayName, Err: err})
				continue
			}
			targets = append(targets, p)
			msgs = append(msgs, reminderFor(me, p, g.ID))
		}
	}

	for _, res := range notify.SendEach(ctx, s.notifier, msgs, s.fanout) {
		target := targets[res.Index]
		if res.Err != nil {
			s.dropToken(ctx, target.UID, res.Err)
			out.Failed = append(out.Failed, Failure{UID: target.UID, Name: target.DisplayName, Err: res.Err})
			continue
		}
		s.consume(me.UID, target.UID)
		out.Delivered = append(out.Delivered, s.record(ctx, me, target, g.ID, res.ID))
	}

	s.log.Info("group reminder sent",
		zap.String("group_id", g.ID),
		zap.String("actor", me.UID),
		zap.Int("delivered", len(out.Delivered)),
		zap.Int("failed", len(out.Failed)),
		zap.Int("no_token", len(out.NoToken)),
	)
	return out, nil
}

// checkLimit reports whether a reminder from -> to may go out now. It
// records nothing; failed sends never count against the pair.
func (s *Service) checkLimit(from, to string) error {
	if s.limiter == nil {
		return nil
	}
	key := ratelimit.PairKey(from, to)
	if s.limiter.Remaining(key) > 0 {
		return nil
	}
	return &RateLimitedError{RetryAfter: s.limiter.RetryAfter(key)}
}

func (s *Service) consume(from, to string) {
	if s.limiter == nil {
		return
	}
	s.limiter.Allow(ratelimit.PairKey(from, to))
}

func (s *Service) record(ctx context.Context, me, target models.Profile, groupID, messageID string) Delivery {
	d := Delivery{UID: target.UID, Name: target.DisplayName, MessageID: messageID}
	ev, err := s.events.Log(ctx, models.Event{
		GroupID:          groupID,
		Type:             models.EventNotificationSent,
		UserID:           me.UID,
		UserName:         me.DisplayName,
		TargetUserID:     target.UID,
		TargetUserName:   target.DisplayName,
		NotificationType: notify.Channel,
	})
	if err != nil {
		s.log.Warn("reminder sent but event not logged",
			zap.String("group_id", groupID),
			zap.String("target", target.UID),
			zap.Error(err),
		)
		d.LogErr = err
		return d
	}
	d.Event = &ev
	return d
}

func (s *Service) dropToken(ctx context.Context, uid string, sendErr error) {
	if s.tokens == nil || !errors.Is(sendErr, notify.ErrUnregistered) {
		return
	}
	empty := ""
	if err := s.tokens.UpdateSelf(ctx, uid, profilestore.SelfUpdate{NotificationToken: &empty}); err != nil {
		s.log.Warn("failed to clear unregistered token", zap.String("uid", uid), zap.Error(err))
	}
}

func reminderFor(from, to models.Profile, groupID string) notify.Message {
	return notify.BuildReminder(notify.ReminderData{
		Token:      *to.NotificationToken,
		TargetName: to.DisplayName,
		SenderName: from.DisplayName,
		GroupID:    groupID,
	})
}

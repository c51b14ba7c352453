// Package memstore is an in-process backend for every store the app uses.
// It backs the "memory" store_backend for local development and gives
// tests failure injection and query counting without a database.
//
// Batches are applied to a cloned copy of the state which replaces the
// live state only when every op succeeds, so a failed commit leaves no
// trace.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	credentialstore "github.com/dalemusser/foodjournal/internal/app/store/credentials"
	eventstore "github.com/dalemusser/foodjournal/internal/app/store/events"
	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/normalize"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Point names an operation that can be made to fail once.
type Point string

const (
	PointCommit         Point = "commit"
	PointGetProfile     Point = "get_profile"
	PointGetGroup       Point = "get_group"
	PointPutProfile     Point = "put_profile"
	PointListUnassigned Point = "list_unassigned"
	PointListByUIDs     Point = "list_by_uids"
	PointLogEvent       Point = "log_event"
)

type state struct {
	profiles map[string]models.Profile
	groups   map[string]models.Group
}

func (s state) clone() state {
	out := state{
		profiles: make(map[string]models.Profile, len(s.profiles)),
		groups:   make(map[string]models.Group, len(s.groups)),
	}
	for k, v := range s.profiles {
		out.profiles[k] = cloneProfile(v)
	}
	for k, v := range s.groups {
		out.groups[k] = cloneGroup(v)
	}
	return out
}

func cloneProfile(p models.Profile) models.Profile {
	if p.GroupID != nil {
		gid := *p.GroupID
		p.GroupID = &gid
	}
	if p.NotificationToken != nil {
		tok := *p.NotificationToken
		p.NotificationToken = &tok
	}
	return p
}

func cloneGroup(g models.Group) models.Group {
	g.AdminIDs = slices.Clone(g.AdminIDs)
	g.MemberIDs = slices.Clone(g.MemberIDs)
	if g.AdminIDs == nil {
		g.AdminIDs = []string{}
	}
	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}
	return g
}

// Store holds all collections in memory. The zero value is not usable;
// call New.
type Store struct {
	mu     sync.RWMutex
	st     state
	events []models.Event
	creds  map[string]models.Credential
	logins []models.LoginRecord
	audits []audit.Event

	failures map[Point][]error
	calls    map[Point]int
	onCommit func(*batch.Batch)
	nowFn    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		st:       state{profiles: map[string]models.Profile{}, groups: map[string]models.Group{}},
		creds:    map[string]models.Credential{},
		failures: map[Point][]error{},
		calls:    map[Point]int{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock used for timestamps.
func (s *Store) SetNow(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// FailNext makes the next call at p return err. Calls queue up.
func (s *Store) FailNext(p Point, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[p] = append(s.failures[p], err)
}

// Calls returns how many times p was invoked, including failed calls.
func (s *Store) Calls(p Point) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[p]
}

// OnCommit registers fn to run at the start of every Commit, before the
// store lock is taken. Tests use it to line up concurrent commits.
func (s *Store) OnCommit(fn func(*batch.Batch)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = fn
}

// Snapshot is a copy of the profile and group collections.
type Snapshot struct {
	Profiles map[string]models.Profile
	Groups   map[string]models.Group
}

// Snapshot returns a deep copy of the current profiles and groups.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.st.clone()
	return Snapshot{Profiles: c.profiles, Groups: c.groups}
}

// hit records a call at p and pops a queued failure. Caller holds s.mu.
func (s *Store) hit(p Point) error {
	s.calls[p]++
	q := s.failures[p]
	if len(q) == 0 {
		return nil
	}
	s.failures[p] = q[1:]
	return q[0]
}

// Commit applies b atomically. It implements batch.Committer.
func (s *Store) Commit(ctx context.Context, b *batch.Batch) error {
	s.mu.RLock()
	hook := s.onCommit
	s.mu.RUnlock()
	if hook != nil {
		hook(b)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hit(PointCommit); err != nil {
		return err
	}
	if b == nil || b.Len() == 0 {
		return nil
	}

	work := s.st.clone()
	now := s.nowFn()
	for i, op := range b.Ops() {
		if err := apply(&work, op, now); err != nil {
			return fmt.Errorf("op %d (%T): %w", i, op, err)
		}
	}
	s.st = work
	return nil
}

func apply(st *state, op batch.Op, now time.Time) error {
	switch o := op.(type) {
	case batch.CreateGroup:
		if _, ok := st.groups[o.Group.ID]; ok {
			return groupstore.ErrDuplicateID
		}
		st.groups[o.Group.ID] = cloneGroup(o.Group)
		return nil

	case batch.PatchMembership:
		p, ok := st.profiles[o.UID]
		if !ok || (o.Guard != nil && !sameGroup(p.GroupID, o.Guard.GroupID)) {
			return fmt.Errorf("profile %s: %w", o.UID, batch.ErrConflict)
		}
		p.GroupID = nil
		if o.GroupID != nil {
			gid := *o.GroupID
			p.GroupID = &gid
		}
		p.Role = o.Role
		p.UpdatedAt = now
		st.profiles[o.UID] = p
		return nil

	case batch.UpdateGroupSets:
		if (len(o.AddMembers) > 0 && len(o.RemoveMembers) > 0) ||
			(len(o.AddAdmins) > 0 && len(o.RemoveAdmins) > 0) {
			return errors.New("cannot add to and remove from the same set in one update")
		}
		g, ok := st.groups[o.GroupID]
		if !ok || !guardHolds(g, o.Guard) {
			return fmt.Errorf("group %s: %w", o.GroupID, batch.ErrConflict)
		}
		g.MemberIDs = removeAll(addToSet(g.MemberIDs, o.AddMembers), o.RemoveMembers)
		g.AdminIDs = removeAll(addToSet(g.AdminIDs, o.AddAdmins), o.RemoveAdmins)
		g.UpdatedAt = now
		st.groups[o.GroupID] = g
		return nil
	}
	return fmt.Errorf("unknown batch op %T", op)
}

func sameGroup(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func guardHolds(g models.Group, guard *batch.GroupGuard) bool {
	if guard == nil {
		return true
	}
	if guard.RequireMember != "" && !g.HasMember(guard.RequireMember) {
		return false
	}
	if guard.KeepAdminBesides != "" {
		return slices.ContainsFunc(g.AdminIDs, func(id string) bool { return id != guard.KeepAdminBesides })
	}
	return true
}

func addToSet(set, add []string) []string {
	for _, id := range add {
		if !slices.Contains(set, id) {
			set = append(set, id)
		}
	}
	return set
}

func removeAll(set, remove []string) []string {
	if len(remove) == 0 {
		return set
	}
	return slices.DeleteFunc(set, func(id string) bool { return slices.Contains(remove, id) })
}

// --- Profiles ---

// Profiles exposes the profile collection with the same contract as
// profilestore.Store.
type Profiles struct{ s *Store }

func (s *Store) Profiles() *Profiles { return &Profiles{s} }

func (v *Profiles) Get(_ context.Context, uid string) (models.Profile, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(PointGetProfile); err != nil {
		return models.Profile{}, err
	}
	p, ok := s.st.profiles[uid]
	if !ok {
		return models.Profile{}, profilestore.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (v *Profiles) Put(_ context.Context, p models.Profile) (models.Profile, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(PointPutProfile); err != nil {
		return models.Profile{}, err
	}
	p, err := profilestore.Prepare(p, s.nowFn())
	if err != nil {
		return models.Profile{}, err
	}
	s.st.profiles[p.UID] = cloneProfile(p)
	return p, nil
}

func (v *Profiles) UpdateSelf(_ context.Context, uid string, upd profilestore.SelfUpdate) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.profiles[uid]
	if !ok {
		return profilestore.ErrNotFound
	}
	if upd.DisplayName != nil {
		name, err := profilestore.CleanDisplayName(*upd.DisplayName)
		if err != nil {
			return err
		}
		p.DisplayName = name
		p.DisplayNameCI = text.Fold(name)
	}
	if upd.NotificationToken != nil {
		if *upd.NotificationToken == "" {
			p.NotificationToken = nil
		} else {
			tok := *upd.NotificationToken
			p.NotificationToken = &tok
		}
	}
	p.UpdatedAt = s.nowFn()
	s.st.profiles[uid] = p
	return nil
}

func (v *Profiles) ListUnassigned(_ context.Context) ([]models.Profile, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(PointListUnassigned); err != nil {
		return nil, err
	}
	out := []models.Profile{}
	for _, p := range s.st.profiles {
		if p.GroupID == nil {
			out = append(out, cloneProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayNameCI != out[j].DisplayNameCI {
			return out[i].DisplayNameCI < out[j].DisplayNameCI
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func (v *Profiles) ListByUIDs(_ context.Context, uids []string) ([]models.Profile, error) {
	if len(uids) == 0 {
		return []models.Profile{}, nil
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(PointListByUIDs); err != nil {
		return nil, err
	}
	if len(uids) > profilestore.MaxInQuery {
		return nil, profilestore.ErrTooManyIDs
	}
	out := []models.Profile{}
	for _, uid := range uids {
		if p, ok := s.st.profiles[uid]; ok {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

// --- Groups ---

// Groups exposes the group collection.
type Groups struct{ s *Store }

func (s *Store) Groups() *Groups { return &Groups{s} }

func (v *Groups) Get(_ context.Context, id string) (models.Group, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(PointGetGroup); err != nil {
		return models.Group{}, err
	}
	g, ok := s.st.groups[id]
	if !ok {
		return models.Group{}, groupstore.ErrNotFound
	}
	return cloneGroup(g), nil
}

// Put writes a group directly, bypassing the membership protocol. Tests
// use it to seed inconsistent data.
func (v *Groups) Put(g models.Group) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.groups[g.ID] = cloneGroup(g)
}

// Delete removes a group document without touching any profile, leaving
// members with a stale group_id.
func (v *Groups) Delete(id string) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.groups, id)
}

// Count returns the number of stored groups.
func (v *Groups) Count() int {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.groups)
}

// --- Events ---

type Events struct{ s *Store }

func (s *Store) Events() *Events { return &Events{s} }

func (v *Events) Log(_ context.Context, e models.Event) (models.Event, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(PointLogEvent); err != nil {
		return models.Event{}, err
	}
	e, err := eventstore.Prepare(e, s.nowFn())
	if err != nil {
		return models.Event{}, err
	}
	s.events = append(s.events, e)
	return e, nil
}

func (v *Events) ListRecent(_ context.Context, groupID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = eventstore.DefaultLimit
	}
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Event{}
	for _, e := range s.events {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Credentials ---

type Credentials struct{ s *Store }

func (s *Store) Credentials() *Credentials { return &Credentials{s} }

func (v *Credentials) Create(_ context.Context, cred models.Credential) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cred.Email = normalize.Email(cred.Email)
	if _, ok := s.creds[cred.Email]; ok {
		return credentialstore.ErrEmailTaken
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = s.nowFn()
	}
	s.creds[cred.Email] = cred
	return nil
}

func (v *Credentials) GetByEmail(_ context.Context, email string) (models.Credential, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[normalize.Email(email)]
	if !ok {
		return models.Credential{}, credentialstore.ErrNotFound
	}
	return cred, nil
}

// --- Logins ---

type Logins struct{ s *Store }

func (s *Store) Logins() *Logins { return &Logins{s} }

func (v *Logins) Create(_ context.Context, rec models.LoginRecord) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.nowFn()
	}
	s.logins = append(s.logins, rec)
	return nil
}

func (v *Logins) ListByUser(_ context.Context, uid string, limit int64) ([]models.LoginRecord, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.LoginRecord{}
	for i := len(s.logins) - 1; i >= 0; i-- {
		if s.logins[i].UID == uid {
			out = append(out, s.logins[i])
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// --- Audit ---

type Audit struct{ s *Store }

func (s *Store) Audit() *Audit { return &Audit{s} }

func (v *Audit) Log(_ context.Context, e audit.Event) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.nowFn()
	}
	s.audits = append(s.audits, e)
	return nil
}

func (v *Audit) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	out := []audit.Event{}
	skipped := int64(0)
	for i := len(s.audits) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if !f.Matches(s.audits[i]) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, s.audits[i])
	}
	return out, nil
}

package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"
	"medical-office-api/internal/infrastructure/cache"
	"medical-office-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeTransactor runs fn without a database; repositories below ignore the handle
type fakeTransactor struct {
	commits   int
	rollbacks int
}

func (f *fakeTransactor) Conn(ctx context.Context) *gorm.DB {
	return nil
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := fn(nil); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// fakeAppointmentRepo keeps appointments in memory and enforces the active-slot
// unique index the way PostgreSQL does.
type fakeAppointmentRepo struct {
	mu            sync.Mutex
	items         map[uuid.UUID]*entity.Appointment
	patients      map[uuid.UUID]entity.PatientProfile
	practitioners map[uuid.UUID]entity.PractitionerProfile

	// blindSlotChecks makes FindActiveBySlot miss this many times, as if a
	// concurrent insert had not committed yet when the pre-check ran.
	blindSlotChecks int
	// beforeWrite runs once against the stored row before the next compare-and-set.
	beforeWrite func(stored *entity.Appointment)
	// createErr is returned once by the next Create
	createErr error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{
		items:         make(map[uuid.UUID]*entity.Appointment),
		patients:      make(map[uuid.UUID]entity.PatientProfile),
		practitioners: make(map[uuid.UUID]entity.PractitionerProfile),
	}
}

func (r *fakeAppointmentRepo) withParticipants(a *entity.Appointment) *entity.Appointment {
	c := *a
	c.Patient = r.patients[a.PatientID]
	c.Practitioner = r.practitioners[a.PractitionerID]
	return &c
}

func (r *fakeAppointmentRepo) slotHolder(a *entity.Appointment) *entity.Appointment {
	for _, other := range r.items {
		if other.ID != a.ID && other.IsActive() && other.SameSlot(a.Date, a.Time, a.PractitionerID) {
			return other
		}
	}
	return nil
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.createErr; err != nil {
		r.createErr = nil
		return err
	}
	if appointment.IsActive() && r.slotHolder(appointment) != nil {
		return repository.ErrActiveSlotTaken
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt, appointment.UpdatedAt = now, now

	stored := *appointment
	stored.Patient, stored.Practitioner = entity.PatientProfile{}, entity.PractitionerProfile{}
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeAppointmentRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return r.withParticipants(a), nil
}

func (r *fakeAppointmentRepo) FindActiveBySlot(ctx context.Context, db *gorm.DB, date time.Time, clock string, practitionerID uuid.UUID, excludeID *uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blindSlotChecks > 0 {
		r.blindSlotChecks--
		return nil, nil
	}
	for _, a := range r.items {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.IsActive() && a.SameSlot(date, clock, practitionerID) {
			return r.withParticipants(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []entity.Appointment
	for _, a := range r.items {
		if filter.PractitionerID != nil && a.PractitionerID != *filter.PractitionerID {
			continue
		}
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && a.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && a.Date.After(*filter.DateTo) {
			continue
		}
		matched = append(matched, *r.withParticipants(a))
	}
	sortBySlot(matched)

	total := int64(len(matched))
	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeAppointmentRepo) FindByStatusOnDate(ctx context.Context, db *gorm.DB, date time.Time, status entity.AppointmentStatus) ([]entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []entity.Appointment
	for _, a := range r.items {
		if a.Status == status && a.Date.Equal(date) {
			matched = append(matched, *r.withParticipants(a))
		}
	}
	sortBySlot(matched)
	return matched, nil
}

func (r *fakeAppointmentRepo) interfere(id uuid.UUID) {
	if r.beforeWrite == nil {
		return
	}
	if stored, ok := r.items[id]; ok {
		r.beforeWrite(stored)
	}
	r.beforeWrite = nil
}

func (r *fakeAppointmentRepo) UpdateIfStatus(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, expected entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interfere(appointment.ID)
	stored, ok := r.items[appointment.ID]
	if !ok || stored.Status != expected {
		return 0, nil
	}
	if appointment.IsActive() && r.slotHolder(appointment) != nil {
		return 0, repository.ErrActiveSlotTaken
	}

	stored.Date = appointment.Date
	stored.Time = appointment.Time
	stored.Status = appointment.Status
	stored.CancellationReason = appointment.CancellationReason
	stored.UpdatedAt = time.Now()
	return 1, nil
}

func (r *fakeAppointmentRepo) DeleteIfStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, expected entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interfere(id)
	stored, ok := r.items[id]
	if !ok || stored.Status != expected {
		return 0, nil
	}
	delete(r.items, id)
	return 1, nil
}

// activeHolders counts non-cancelled appointments per slot
func (r *fakeAppointmentRepo) activeHolders() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range r.items {
		if a.IsActive() {
			counts[cache.SlotLockKey(a.PractitionerID, a.Date, a.Time)]++
		}
	}
	return counts
}

func sortBySlot(items []entity.Appointment) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].Time < items[j].Time
	})
}

type fakePatientRepo struct {
	repo *fakeAppointmentRepo
}

func (r *fakePatientRepo) Create(ctx context.Context, db *gorm.DB, profile *entity.PatientProfile) error {
	r.repo.patients[profile.UserID] = *profile
	return nil
}

func (r *fakePatientRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.PatientProfile, error) {
	p, ok := r.repo.patients[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakePatientRepo) CountAll(ctx context.Context, db *gorm.DB) (int64, error) {
	return int64(len(r.repo.patients)), nil
}

type fakePractitionerRepo struct {
	repo *fakeAppointmentRepo
}

func (r *fakePractitionerRepo) Create(ctx context.Context, db *gorm.DB, profile *entity.PractitionerProfile) error {
	r.repo.practitioners[profile.UserID] = *profile
	return nil
}

func (r *fakePractitionerRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.PractitionerProfile, error) {
	p, ok := r.repo.practitioners[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []entity.AuditLog
	fail error
}

func (r *fakeAuditRepo) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}
	log.ID = int64(len(r.logs) + 1)
	log.CreatedAt = time.Now()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeAuditRepo) FindByEntity(ctx context.Context, db *gorm.DB, entityName, entityID string) ([]entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.AuditLog
	for _, l := range r.logs {
		if l.Metadata["entity"] == entityName && l.Metadata["entity_id"] == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.logs {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.logs))
	for i, l := range r.logs {
		out[i] = l.Action
	}
	return out
}

type fakeLocker struct {
	mu   sync.Mutex
	busy bool
	// unavailable is returned before fn runs, like a Redis connection failure
	unavailable error
	keys        []string
}

func (l *fakeLocker) WithSlotLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, clock string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.keys = append(l.keys, cache.SlotLockKey(practitionerID, date, clock))
	busy, unavailable := l.busy, l.unavailable
	l.mu.Unlock()

	if unavailable != nil {
		return unavailable
	}
	if busy {
		return cache.ErrLockNotAcquired
	}
	return fn(ctx)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []service.Notification
	full bool
}

func (d *recordingDispatcher) Enqueue(n service.Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.full {
		return false
	}
	d.sent = append(d.sent, n)
	return true
}

func (d *recordingDispatcher) kinds() []service.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]service.NotificationKind, len(d.sent))
	for i, n := range d.sent {
		out[i] = n.Kind
	}
	return out
}

type fakeReminderMarker struct {
	sent     map[uuid.UUID]bool
	unmarked []uuid.UUID
	fail     error
}

func newFakeReminderMarker() *fakeReminderMarker {
	return &fakeReminderMarker{sent: make(map[uuid.UUID]bool)}
}

func (m *fakeReminderMarker) MarkSent(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	if m.fail != nil {
		return false, m.fail
	}
	if m.sent[appointmentID] {
		return false, nil
	}
	m.sent[appointmentID] = true
	return true, nil
}

func (m *fakeReminderMarker) Unmark(ctx context.Context, appointmentID uuid.UUID) error {
	delete(m.sent, appointmentID)
	m.unmarked = append(m.unmarked, appointmentID)
	return nil
}

type fakeUserRepo struct {
	byID map[uuid.UUID]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{byID: make(map[uuid.UUID]*entity.User)}
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, db *gorm.DB, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byID[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	return r.byID[id], nil
}

type tokenEntry struct {
	kind    cache.TokenKind
	userID  uuid.UUID
	tokenID string
}

type fakeTokenStore struct {
	tokens map[tokenEntry]time.Duration
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[tokenEntry]time.Duration)}
}

func (s *fakeTokenStore) Store(ctx context.Context, kind cache.TokenKind, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	s.tokens[tokenEntry{kind, userID, tokenID}] = ttl
	return nil
}

func (s *fakeTokenStore) Exists(ctx context.Context, kind cache.TokenKind, userID uuid.UUID, tokenID string) (bool, error) {
	_, ok := s.tokens[tokenEntry{kind, userID, tokenID}]
	return ok, nil
}

func (s *fakeTokenStore) Revoke(ctx context.Context, kind cache.TokenKind, userID uuid.UUID, tokenID string) error {
	delete(s.tokens, tokenEntry{kind, userID, tokenID})
	return nil
}

func (s *fakeTokenStore) count(kind cache.TokenKind) int {
	n := 0
	for k := range s.tokens {
		if k.kind == kind {
			n++
		}
	}
	return n
}

var errStorageDown = errors.New("storage unavailable")

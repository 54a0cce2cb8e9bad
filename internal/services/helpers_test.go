package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	"github.com/sentinela-app/sentinela/internal/utils"
)

// In-memory doubles for the repositories and collaborators. They mirror the
// conditional-update semantics of the real Postgres layer so the lifecycle
// tests exercise the same guarantees.

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.MonitoringSession
	segments map[string]*models.Segment

	failListSegments  bool
	failCompleteMerge bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: map[string]*models.MonitoringSession{},
		segments: map[string]*models.Segment{},
	}
}

func (r *fakeSessionRepo) addSession(s models.MonitoringSession) *models.MonitoringSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := s
	r.sessions[cp.ID] = &cp
	return &cp
}

func (r *fakeSessionRepo) addSegment(s models.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := s
	r.segments[cp.ID] = &cp
}

func (r *fakeSessionRepo) segmentCountLocked(sessionID string) int {
	n := 0
	for _, seg := range r.segments {
		if seg.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.MonitoringSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[cp.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*models.MonitoringSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindOrphans(ctx context.Context, createdBefore time.Time) ([]models.MonitoringSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MonitoringSession
	for _, s := range r.sessions {
		if s.Status == models.SessionStatusActive &&
			s.CreatedAt.Before(createdBefore) &&
			r.segmentCountLocked(s.ID) == 0 {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) FindWindowExpired(ctx context.Context, now time.Time) ([]models.MonitoringSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MonitoringSession
	for _, s := range r.sessions {
		if s.Status == models.SessionStatusActive &&
			s.WindowEndAt != nil && s.WindowEndAt.Before(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) FindFinalizable(ctx context.Context, sealedBefore time.Time) ([]models.MonitoringSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MonitoringSession
	for _, s := range r.sessions {
		if s.Status != models.SessionStatusAwaiting {
			continue
		}
		sealedAt := s.ClosedAt
		if sealedAt == nil {
			sealedAt = s.FinalizedAt
		}
		if sealedAt != nil && sealedAt.Before(sealedBefore) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Seal(ctx context.Context, id, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != models.SessionStatusActive {
		return utils.ErrNotFound
	}
	s.Status = models.SessionStatusAwaiting
	closed := at.UTC()
	s.ClosedAt = &closed
	s.SealedReason = reason
	return nil
}

func (r *fakeSessionRepo) Claim(ctx context.Context, id string, now time.Time, staleAfter time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != models.SessionStatusAwaiting {
		return false, nil
	}
	if s.ClaimedAt != nil && !s.ClaimedAt.Before(now.Add(-staleAfter)) {
		return false, nil
	}
	claimed := now.UTC()
	s.ClaimedAt = &claimed
	return true, nil
}

func (r *fakeSessionRepo) ReleaseClaim(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.Status == models.SessionStatusAwaiting {
		s.ClaimedAt = nil
	}
	return nil
}

func (r *fakeSessionRepo) CompleteMerge(ctx context.Context, id, recordingID string, segmentCount int, totalDuration float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCompleteMerge {
		return errors.New("forced complete-merge failure")
	}
	s, ok := r.sessions[id]
	if !ok || s.Status != models.SessionStatusAwaiting {
		return utils.ErrNotFound
	}
	s.Status = models.SessionStatusMerged
	finalized := at.UTC()
	s.FinalizedAt = &finalized
	s.FinalRecordingID = &recordingID
	s.TotalSegments = segmentCount
	s.TotalDurationSeconds = totalDuration
	return nil
}

func (r *fakeSessionRepo) Discard(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.segmentCountLocked(id) > 0 {
		return nil
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) ListSegmentsOrdered(ctx context.Context, sessionID string) ([]models.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failListSegments {
		return nil, errors.New("forced list failure")
	}
	var out []models.Segment
	for _, seg := range r.segments {
		if seg.SessionID == sessionID {
			out = append(out, *seg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SegmentIndex < out[j].SegmentIndex })
	return out, nil
}

func (r *fakeSessionRepo) DeleteSegment(ctx context.Context, segmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.segments, segmentID)
	return nil
}

type fakeRecordingRepo struct {
	mu          sync.Mutex
	rows        map[string]*models.Recording
	failInserts int
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{rows: map[string]*models.Recording{}}
}

func (r *fakeRecordingRepo) Insert(ctx context.Context, rec *models.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInserts > 0 {
		r.failInserts--
		return errors.New("forced insert failure")
	}
	cp := *rec
	r.rows[cp.ID] = &cp
	return nil
}

func (r *fakeRecordingRepo) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRecordingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	failGets     map[string]bool
	failPuts     int
	hideUploaded bool // Head lies after a (supposedly successful) Put
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:  map[string][]byte{},
		failGets: map[string]bool{},
	}
}

func (o *fakeObjectStore) put(key string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = data
}

func (o *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failGets[key] {
		return nil, errors.New("forced download failure")
	}
	data, ok := o.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (o *fakeObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failPuts > 0 {
		o.failPuts--
		return errors.New("forced upload failure")
	}
	if o.hideUploaded {
		return nil // pretend success, persist nothing
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	o.objects[key] = cp
	return nil
}

func (o *fakeObjectStore) Head(ctx context.Context, key string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok, nil
}

func (o *fakeObjectStore) Delete(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *fakeObjectStore) get(key string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[key]
	return data, ok
}

type auditEntry struct {
	UserID  string
	Action  string
	Success bool
	Details map[string]any
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *fakeAudit) Record(ctx context.Context, userID, actionType string, success bool, details map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{UserID: userID, Action: actionType, Success: success, Details: details})
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

func (a *fakeAudit) find(action string) (auditEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.Action == action {
			return e, true
		}
	}
	return auditEntry{}, false
}

type fakeDeviceStatus struct {
	mu     sync.Mutex
	marked []string
	resets []string
}

func (d *fakeDeviceStatus) MarkMonitoring(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marked = append(d.marked, userID)
	return nil
}

func (d *fakeDeviceStatus) ResetFlags(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets = append(d.resets, userID)
	return nil
}

func (d *fakeDeviceStatus) resetCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resets)
}

type fakePipeline struct {
	triggered chan string
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{triggered: make(chan string, 16)}
}

func (p *fakePipeline) Trigger(recordingID string) {
	p.triggered <- recordingID
}

// testEnv wires the lifecycle services over the fakes with a controllable
// clock.
type testEnv struct {
	sessions   *fakeSessionRepo
	recordings *fakeRecordingRepo
	store      *fakeObjectStore
	audit      *fakeAudit
	device     *fakeDeviceStatus
	pipeline   *fakePipeline

	now time.Time

	merge       MergeService
	maintenance MaintenanceService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		sessions:   newFakeSessionRepo(),
		recordings: newFakeRecordingRepo(),
		store:      newFakeObjectStore(),
		audit:      &fakeAudit{},
		device:     &fakeDeviceStatus{},
		pipeline:   newFakePipeline(),
		now:        time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	env.merge = NewMergeService(env.sessions, env.recordings, env.store, env.audit, env.pipeline, nil)
	env.maintenance = NewMaintenanceService(env.sessions, env.merge, env.device, env.audit, nil, MaintenanceConfig{
		Now: func() time.Time { return env.now },
	})
	return env
}

// awaitingSession seeds a sealed session whose tolerance window has already
// elapsed at env.now.
func (env *testEnv) awaitingSession(id, userID string) *models.MonitoringSession {
	closed := env.now.Add(-time.Minute)
	return env.sessions.addSession(models.MonitoringSession{
		ID:        id,
		UserID:    userID,
		DeviceID:  "dev-1",
		Status:    models.SessionStatusAwaiting,
		CreatedAt: env.now.Add(-time.Hour),
		ClosedAt:  &closed,
	})
}

func (env *testEnv) segment(sessionID, id, key string, index int, duration *float64, data []byte) {
	env.sessions.addSegment(models.Segment{
		ID:              id,
		SessionID:       sessionID,
		StoragePath:     key,
		SegmentIndex:    index,
		DurationSeconds: duration,
	})
	env.store.put(key, data)
}

func f64(v float64) *float64 { return &v }

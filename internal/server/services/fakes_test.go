package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/emaillogs"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/enrollments"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/programs"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/stats"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/users"
)

// memData is everything the fake database holds.
type memData struct {
	users        map[string]models.User
	tokens       map[string]models.RefreshToken
	programs     map[string]models.Program
	reviews      map[string][]models.Review
	enrollments  []models.Enrollment
	programStats map[string]models.ProgramStats
	summary      *models.Summary
	emailLogs    []models.EmailLog
	seq          int
}

func (d *memData) clone() memData {
	c := memData{
		users:        make(map[string]models.User, len(d.users)),
		tokens:       make(map[string]models.RefreshToken, len(d.tokens)),
		programs:     make(map[string]models.Program, len(d.programs)),
		reviews:      make(map[string][]models.Review, len(d.reviews)),
		enrollments:  slices.Clone(d.enrollments),
		programStats: make(map[string]models.ProgramStats, len(d.programStats)),
		emailLogs:    slices.Clone(d.emailLogs),
		seq:          d.seq,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	for k, v := range d.programs {
		v.Tags = slices.Clone(v.Tags)
		c.programs[k] = v
	}
	for k, v := range d.reviews {
		c.reviews[k] = slices.Clone(v)
	}
	for k, v := range d.programStats {
		v.ParticipantEmails = slices.Clone(v.ParticipantEmails)
		c.programStats[k] = v
	}
	if d.summary != nil {
		s := *d.summary
		s.ParticipantEmails = slices.Clone(s.ParticipantEmails)
		c.summary = &s
	}
	return c
}

// memStore is an in-memory RepositoryManager. Transactions are not
// serialized: each one collects undo steps for its own writes and a failed
// transaction replays them, so concurrent read-modify-write cycles really
// interleave and a stale save fails the version check.
type memStore struct {
	mu   sync.Mutex
	data memData

	// failures injects an error for "Repo.Method".
	failures map[string]error
	// conflicts injects that many version conflicts for "program:<id>" or
	// "summary" saves.
	conflicts map[string]int
	// rollbacks counts transactions that failed.
	rollbacks int
	// afterRead, when set, runs after every stats read with "program:<id>"
	// or "summary", outside the store lock.
	afterRead func(key string)
}

// memTx is the handle a fake transaction passes to the repositories.
type memTx struct {
	dbx.DBTX
	undo []func()
}

// onRollback registers f to run if the transaction fails. Callers hold
// the store lock. Writes outside a transaction are final.
func (t *memTx) onRollback(f func()) {
	if t != nil {
		t.undo = append(t.undo, f)
	}
}

func txOf(db dbx.DBTX) *memTx {
	t, _ := db.(*memTx)
	return t
}

func newMemStore() *memStore {
	return &memStore{
		data: memData{
			users:        map[string]models.User{},
			tokens:       map[string]models.RefreshToken{},
			programs:     map[string]models.Program{},
			reviews:      map[string][]models.Review{},
			programStats: map[string]models.ProgramStats{},
		},
		failures:  map[string]error{},
		conflicts: map[string]int{},
	}
}

func (s *memStore) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	tx := &memTx{}
	err := fn(ctx, tx)
	if err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.rollbacks++
		s.mu.Unlock()
	}
	return err
}

func (s *memStore) fail(name string) error {
	return s.failures[name]
}

func (s *memStore) nextID(prefix string) string {
	s.data.seq++
	return fmt.Sprintf("%s-%d", prefix, s.data.seq)
}

func (s *memStore) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (s *memStore) Users(db dbx.DBTX) users.Repository { return memUsers{s, txOf(db)} }
func (s *memStore) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return memTokens{s, txOf(db)}
}
func (s *memStore) Programs(db dbx.DBTX) programs.Repository { return memPrograms{s, txOf(db)} }
func (s *memStore) Enrollments(db dbx.DBTX) enrollments.Repository {
	return memEnrollments{s, txOf(db)}
}
func (s *memStore) Stats(db dbx.DBTX) stats.Repository         { return memStats{s, txOf(db)} }
func (s *memStore) EmailLogs(db dbx.DBTX) emaillogs.Repository { return memEmailLogs{s, txOf(db)} }

// restore returns an undo step that puts m[k] back to its current state.
func restore[K comparable, V any](m map[K]V, k K) func() {
	prev, ok := m[k]
	return func() {
		if ok {
			m[k] = prev
		} else {
			delete(m, k)
		}
	}
}

// --- users ---

type memUsers struct {
	s  *memStore
	tx *memTx
}

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.s.data.users {
		if existing.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	c := *u
	c.ID = r.s.nextID("u")
	c.CreatedAt = time.Now()
	r.tx.onRollback(restore(r.s.data.users, c.ID))
	r.s.data.users[c.ID] = c
	return &c, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r memUsers) UpdateRole(_ context.Context, id string, role models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Users.UpdateRole"); err != nil {
		return err
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.tx.onRollback(restore(r.s.data.users, id))
	u.Role = role
	r.s.data.users[id] = u
	return nil
}

// --- refresh tokens ---

type memTokens struct {
	s  *memStore
	tx *memTx
}

func (r memTokens) Create(_ context.Context, userID, token string, expires time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("RefreshTokens.Create"); err != nil {
		return err
	}
	r.tx.onRollback(restore(r.s.data.tokens, token))
	r.s.data.tokens[token] = models.RefreshToken{UserID: userID, Token: token, Expires: expires}
	return nil
}

func (r memTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("RefreshTokens.Consume"); err != nil {
		return nil, err
	}
	t, ok := r.s.data.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	r.tx.onRollback(restore(r.s.data.tokens, token))
	delete(r.s.data.tokens, token)
	return &t, nil
}

func (r memTokens) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("RefreshTokens.Delete"); err != nil {
		return err
	}
	r.tx.onRollback(restore(r.s.data.tokens, token))
	delete(r.s.data.tokens, token)
	return nil
}

func (r memTokens) DeleteExpired(_ context.Context, userID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.data.tokens {
		if t.UserID == userID && t.Expires.Before(now) {
			r.tx.onRollback(restore(r.s.data.tokens, k))
			delete(r.s.data.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- programs ---

type memPrograms struct {
	s  *memStore
	tx *memTx
}

func (r memPrograms) Upsert(_ context.Context, p *models.Program) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Programs.Upsert"); err != nil {
		return err
	}
	c := *p
	c.Reviews = nil
	if existing, ok := r.s.data.programs[p.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	r.tx.onRollback(restore(r.s.data.programs, p.ID))
	r.s.data.programs[p.ID] = c
	return nil
}

func (r memPrograms) UpsertReview(_ context.Context, rv *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.tx.onRollback(r.keepReviews(rv.ProgramID))
	list := r.s.data.reviews[rv.ProgramID]
	for i := range list {
		if list[i].ID == rv.ID {
			created := list[i].CreatedAt
			list[i] = *rv
			list[i].CreatedAt = created
			return nil
		}
	}
	c := *rv
	c.CreatedAt = time.Now()
	r.s.data.reviews[rv.ProgramID] = append(list, c)
	return nil
}

func (r memPrograms) CreateReview(_ context.Context, rv *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv.CreatedAt = time.Now()
	r.tx.onRollback(r.keepReviews(rv.ProgramID))
	r.s.data.reviews[rv.ProgramID] = append(r.s.data.reviews[rv.ProgramID], *rv)
	return nil
}

func (r memPrograms) keepReviews(programID string) func() {
	prev, ok := r.s.data.reviews[programID]
	prev = slices.Clone(prev)
	return func() {
		if ok {
			r.s.data.reviews[programID] = prev
		} else {
			delete(r.s.data.reviews, programID)
		}
	}
}

func (r memPrograms) withAggregates(p models.Program) *models.Program {
	reviews := r.s.data.reviews[p.ID]
	p.ReviewCount = len(reviews)
	if len(reviews) > 0 {
		sum := 0
		for _, rv := range reviews {
			sum += rv.Rating
		}
		p.AverageRating = float64(sum) / float64(len(reviews))
	}
	return &p
}

func (r memPrograms) List(context.Context) ([]*models.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Program, 0, len(r.s.data.programs))
	for _, p := range r.s.data.programs {
		out = append(out, r.withAggregates(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memPrograms) Get(_ context.Context, id string) (*models.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.programs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.withAggregates(p), nil
}

func (r memPrograms) ListReviews(_ context.Context, programID string) ([]models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.data.reviews[programID])
	if out == nil {
		out = []models.Review{}
	}
	return out, nil
}

// --- enrollments ---

type memEnrollments struct {
	s  *memStore
	tx *memTx
}

func (r memEnrollments) Create(_ context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Enrollments.Create"); err != nil {
		return nil, err
	}
	c := *e
	c.ID = r.s.nextID("e")
	c.CreatedAt = time.Now()
	r.tx.onRollback(func() {
		r.s.data.enrollments = slices.DeleteFunc(r.s.data.enrollments, func(e models.Enrollment) bool { return e.ID == c.ID })
	})
	r.s.data.enrollments = append(r.s.data.enrollments, c)
	return &c, nil
}

func (r memEnrollments) Get(_ context.Context, id string) (*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.enrollments {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memEnrollments) filter(keep func(models.Enrollment) bool) []*models.Enrollment {
	var out []*models.Enrollment
	for _, e := range r.s.data.enrollments {
		if keep(e) {
			c := e
			out = append(out, &c)
		}
	}
	return out
}

func (r memEnrollments) ListByProgram(_ context.Context, programID string) ([]*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Enrollments.ListByProgram"); err != nil {
		return nil, err
	}
	return r.filter(func(e models.Enrollment) bool { return e.ProgramID == programID }), nil
}

func (r memEnrollments) ListByUser(_ context.Context, userID string) ([]*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(e models.Enrollment) bool { return e.UserID != nil && *e.UserID == userID }), nil
}

func (r memEnrollments) ListUncounted(_ context.Context, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, e := range r.s.data.enrollments {
		if !e.ProgramCounted || !e.SummaryCounted {
			ids = append(ids, e.ID)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (r memEnrollments) MarkCounted(_ context.Context, id string, c enrollments.Counter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.enrollments {
		e := &r.s.data.enrollments[i]
		if e.ID != id {
			continue
		}
		flag := &e.ProgramCounted
		if c == enrollments.SummaryCounter {
			flag = &e.SummaryCounted
		}
		if *flag {
			return common.ErrAlreadyCounted
		}
		*flag = true
		r.tx.onRollback(func() { r.s.unmark(id, c) })
		return nil
	}
	return common.ErrAlreadyCounted
}

func (s *memStore) unmark(id string, c enrollments.Counter) {
	for i := range s.data.enrollments {
		if e := &s.data.enrollments[i]; e.ID == id {
			if c == enrollments.SummaryCounter {
				e.SummaryCounted = false
			} else {
				e.ProgramCounted = false
			}
		}
	}
}

// --- stats ---

type memStats struct {
	s  *memStore
	tx *memTx
}

func (r memStats) conflict(key string) bool {
	if r.s.conflicts[key] > 0 {
		r.s.conflicts[key]--
		return true
	}
	return false
}

func (r memStats) read(key string) {
	if r.s.afterRead != nil {
		r.s.afterRead(key)
	}
}

func (r memStats) GetProgram(_ context.Context, programID string) (*models.ProgramStats, error) {
	defer r.read("program:" + programID)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ps, ok := r.s.data.programStats[programID]
	if !ok {
		return &models.ProgramStats{ProgramID: programID, Stats: models.Stats{ParticipantEmails: []string{}}}, nil
	}
	ps.ParticipantEmails = slices.Clone(ps.ParticipantEmails)
	return &ps, nil
}

func (r memStats) SaveProgram(_ context.Context, ps *models.ProgramStats) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Stats.SaveProgram"); err != nil {
		return err
	}
	current := r.s.data.programStats[ps.ProgramID]
	if r.conflict("program:"+ps.ProgramID) || current.Version != ps.Version {
		return common.ErrVersionConflict
	}
	ps.Version++
	c := *ps
	c.ParticipantEmails = slices.Clone(ps.ParticipantEmails)
	r.tx.onRollback(restore(r.s.data.programStats, ps.ProgramID))
	r.s.data.programStats[ps.ProgramID] = c
	return nil
}

func (r memStats) GetSummary(context.Context) (*models.Summary, error) {
	defer r.read("summary")
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.data.summary == nil {
		return &models.Summary{Stats: models.Stats{ParticipantEmails: []string{}}}, nil
	}
	s := *r.s.data.summary
	s.ParticipantEmails = slices.Clone(s.ParticipantEmails)
	return &s, nil
}

func (r memStats) SaveSummary(_ context.Context, sum *models.Summary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Stats.SaveSummary"); err != nil {
		return err
	}
	var version int64
	if r.s.data.summary != nil {
		version = r.s.data.summary.Version
	}
	if r.conflict("summary") || version != sum.Version {
		return common.ErrVersionConflict
	}
	sum.Version++
	c := *sum
	c.ParticipantEmails = slices.Clone(sum.ParticipantEmails)
	prev := r.s.data.summary
	r.tx.onRollback(func() { r.s.data.summary = prev })
	r.s.data.summary = &c
	return nil
}

// --- email logs ---

type memEmailLogs struct {
	s  *memStore
	tx *memTx
}

func (r memEmailLogs) Create(_ context.Context, l *models.EmailLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("EmailLogs.Create"); err != nil {
		return err
	}
	l.ID = r.s.nextID("log")
	l.SentAt = time.Now()
	id := l.ID
	r.tx.onRollback(func() {
		r.s.data.emailLogs = slices.DeleteFunc(r.s.data.emailLogs, func(x models.EmailLog) bool { return x.ID == id })
	})
	r.s.data.emailLogs = append(r.s.data.emailLogs, *l)
	return nil
}

func (r memEmailLogs) ListByProgram(_ context.Context, programID string) ([]*models.EmailLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.EmailLog
	for _, l := range r.s.data.emailLogs {
		if l.ProgramID == programID {
			c := l
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- seeding helpers ---

func (s *memStore) addProgram(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.programs[id] = models.Program{ID: id, Name: name, CreatedAt: time.Now()}
}

func (s *memStore) addEnrollment(programID, email string) models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := models.Enrollment{ID: s.nextID("e"), ProgramID: programID, ProgramName: "Program " + programID, Email: email, CreatedAt: time.Now()}
	s.data.enrollments = append(s.data.enrollments, e)
	return e
}

func (s *memStore) snapshot() memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

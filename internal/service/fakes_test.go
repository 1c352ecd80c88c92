package service

import (
	"context"
	"sync"
	"time"

	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ─── Question bank ─────────────────────────────────────────────────────

// bank returns a small question bank:
// department 1 holds questions 1 (MC), 2 (TF) and 3 (fill blank);
// department 2 holds question 4 (MC). The first answer of each is correct.
func bank() []model.Question {
	q := func(id, dept int64, t model.QuestionType) model.Question {
		return model.Question{
			ID:           id,
			DepartmentID: dept,
			QuestionType: t,
			Content:      "question",
			Answers: []model.Answer{
				{ID: id*10 + 1, QuestionID: id, Text: "right", IsCorrect: true},
				{ID: id*10 + 2, QuestionID: id, Text: "wrong"},
			},
		}
	}
	return []model.Question{
		q(1, 1, model.QuestionTypeMultipleChoice),
		q(2, 1, model.QuestionTypeTrueFalse),
		q(3, 1, model.QuestionTypeFillBlank),
		q(4, 2, model.QuestionTypeMultipleChoice),
	}
}

type fakeQuestions struct {
	questions []model.Question
}

func (f *fakeQuestions) ListByDepartment(_ context.Context, departmentID int64) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.DepartmentID == departmentID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestions) GetByIDs(_ context.Context, ids []int64) ([]model.Question, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, q := range f.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestions) ListIDsByType(_ context.Context, t model.QuestionType) ([]int64, error) {
	var out []int64
	for _, q := range f.questions {
		if q.QuestionType == t {
			out = append(out, q.ID)
		}
	}
	return out, nil
}

func (f *fakeQuestions) typeOf(id int64) model.QuestionType {
	for _, q := range f.questions {
		if q.ID == id {
			return q.QuestionType
		}
	}
	return 0
}

type fakeDepartments map[int64]*model.Department

func (f fakeDepartments) GetByID(_ context.Context, id int64) (*model.Department, error) {
	d, ok := f[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

type fakePaperCache struct {
	papers map[int64][]model.QuestionForCandidate
	hits   int
}

func newFakePaperCache() *fakePaperCache {
	return &fakePaperCache{papers: make(map[int64][]model.QuestionForCandidate)}
}

func (f *fakePaperCache) Get(_ context.Context, departmentID int64) ([]model.QuestionForCandidate, error) {
	p, ok := f.papers[departmentID]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	f.hits++
	return p, nil
}

func (f *fakePaperCache) Set(_ context.Context, departmentID int64, paper []model.QuestionForCandidate) error {
	f.papers[departmentID] = paper
	return nil
}

func (f *fakePaperCache) Invalidate(_ context.Context, departmentIDs ...int64) error {
	for _, id := range departmentIDs {
		delete(f.papers, id)
	}
	return nil
}

// ─── Exams ─────────────────────────────────────────────────────────────

type fakeExamStore struct {
	mu        sync.Mutex
	exams     map[uuid.UUID]*model.Exam
	answers   map[uuid.UUID][]model.ExamAnswer
	questions *fakeQuestions
}

func newFakeExamStore(questions *fakeQuestions) *fakeExamStore {
	return &fakeExamStore{
		exams:     make(map[uuid.UUID]*model.Exam),
		answers:   make(map[uuid.UUID][]model.ExamAnswer),
		questions: questions,
	}
}

func (f *fakeExamStore) HasActive(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.exams {
		if e.UserID == userID && e.Status == model.ExamStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeExamStore) Create(_ context.Context, e *model.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.exams[e.ID] = &cp
	return nil
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExamStore) ListPaginated(_ context.Context, filter model.ExamFilter, limit, offset int) ([]model.Exam, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Exam
	for _, e := range f.exams {
		if filter.UserID != 0 && e.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		all = append(all, *e)
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeExamStore) Complete(_ context.Context, examID uuid.UUID, answers []model.ExamAnswer, score float64, endTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[examID]
	if !ok {
		return pgx.ErrNoRows
	}
	if e.Status != model.ExamStatusActive {
		return repository.ErrStateConflict
	}
	e.Status = model.ExamStatusCompleted
	e.EndTime = &endTime
	e.Score = &score
	f.answers[examID] = answers
	return nil
}

func (f *fakeExamStore) ListAnswers(_ context.Context, examID uuid.UUID) ([]model.ExamAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[examID], nil
}

func (f *fakeExamStore) AnswerTypeRows(_ context.Context, examID uuid.UUID) ([]model.TypeAnswerRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []model.TypeAnswerRow
	for _, a := range f.answers[examID] {
		r := model.TypeAnswerRow{Type: f.questions.typeOf(a.QuestionID), Total: 1}
		if a.IsCorrect {
			r.Correct = 1
		}
		rows = append(rows, r)
	}
	return rows, nil
}

type fakeEvents struct {
	events []model.ExamEvent
}

func (f *fakeEvents) PublishExamEvent(_ context.Context, ev model.ExamEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// ─── Queues ────────────────────────────────────────────────────────────

type fakeQueue struct {
	audits        []model.IPLog
	notifications []model.Notification
	notifyErr     error
}

func (f *fakeQueue) EnqueueAudit(_ context.Context, entry model.IPLog) error {
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeQueue) EnqueueNotification(_ context.Context, n model.Notification) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifications = append(f.notifications, n)
	return nil
}

// ─── Guests ────────────────────────────────────────────────────────────

type fakeGuestStore struct {
	nextID   int64
	guests   map[int64]*model.GuestProfile
	sessions map[uuid.UUID]*model.DemoSession
	answers  map[uuid.UUID][]model.DemoAnswer
}

func newFakeGuestStore() *fakeGuestStore {
	return &fakeGuestStore{
		guests:   make(map[int64]*model.GuestProfile),
		sessions: make(map[uuid.UUID]*model.DemoSession),
		answers:  make(map[uuid.UUID][]model.DemoAnswer),
	}
}

func (f *fakeGuestStore) Create(_ context.Context, g *model.GuestProfile) error {
	for _, existing := range f.guests {
		if existing.Email == g.Email {
			return &repository.DuplicateError{Constraint: "guest_profiles_email_key"}
		}
	}
	f.nextID++
	g.ID = f.nextID
	cp := *g
	f.guests[g.ID] = &cp
	return nil
}

func (f *fakeGuestStore) GetByEmail(_ context.Context, email string) (*model.GuestProfile, error) {
	for _, g := range f.guests {
		if g.Email == email {
			cp := *g
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeGuestStore) ListPaginated(_ context.Context, _ string, _, _ int) ([]model.GuestProfile, int, error) {
	out := make([]model.GuestProfile, 0, len(f.guests))
	for _, g := range f.guests {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (f *fakeGuestStore) VerifyAndOpenSession(_ context.Context, guestID int64, s *model.DemoSession) error {
	g := f.guests[guestID]
	if g.IsVerified {
		return repository.ErrStateConflict
	}
	g.IsVerified = true
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeGuestStore) GetSession(_ context.Context, id uuid.UUID) (*model.DemoSession, *model.GuestProfile, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	sc, gc := *s, *f.guests[s.GuestID]
	return &sc, &gc, nil
}

func (f *fakeGuestStore) CompleteSession(_ context.Context, sessionID uuid.UUID, guestID int64, answers []model.DemoAnswer, endTime time.Time) error {
	g := f.guests[guestID]
	if g.DemoUsed {
		return repository.ErrStateConflict
	}
	g.DemoUsed = true
	g.DemoQuestionsAttempted = len(answers)
	s := f.sessions[sessionID]
	s.IsCompleted = true
	s.EndTime = &endTime
	f.answers[sessionID] = answers
	return nil
}

func (f *fakeGuestStore) ResetDemo(_ context.Context, guestID int64) error {
	g, ok := f.guests[guestID]
	if !ok {
		return pgx.ErrNoRows
	}
	g.DemoUsed = false
	g.DemoQuestionsAttempted = 0
	for id, s := range f.sessions {
		if s.GuestID == guestID {
			s.IsCompleted = false
			s.EndTime = nil
			delete(f.answers, id)
		}
	}
	return nil
}

// ─── Users and devices ─────────────────────────────────────────────────

type fakeUserStore struct {
	nextID   int64
	users    map[int64]*model.User
	profiles map[int64]*model.UserProfile
	locks    []model.DeviceLock
	// bindRace makes the next BindFingerprint lose to a concurrent login
	// that bound this fingerprint.
	bindRace string
	// lookupErr and bindErr simulate an unreachable database.
	lookupErr error
	bindErr   error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[int64]*model.User),
		profiles: make(map[int64]*model.UserProfile),
	}
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return &repository.DuplicateError{Constraint: "users_email_key"}
		}
		if existing.Username == u.Username {
			return &repository.DuplicateError{Constraint: "users_username_key"}
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.users[u.ID] = &cp
	f.profiles[u.ID] = &model.UserProfile{UserID: u.ID}
	return nil
}

func (f *fakeUserStore) GetByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if u.Email == identifier || u.Username == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetProfile(_ context.Context, userID int64) (*model.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeUserStore) BindFingerprint(_ context.Context, userID int64, fingerprint string) (bool, error) {
	p, ok := f.profiles[userID]
	if !ok {
		p = &model.UserProfile{UserID: userID}
		f.profiles[userID] = p
	}
	if f.bindErr != nil {
		return false, f.bindErr
	}
	if f.bindRace != "" {
		p.DeviceFingerprint = f.bindRace
		f.bindRace = ""
		return false, nil
	}
	if p.DeviceFingerprint != "" {
		return false, nil
	}
	p.DeviceFingerprint = fingerprint
	return true, nil
}

func (f *fakeUserStore) LockDevice(_ context.Context, userID int64, fingerprint, reason string) (*model.DeviceLock, error) {
	for i := range f.locks {
		if f.locks[i].UserID == userID && f.locks[i].DeviceFingerprint == fingerprint {
			f.locks[i].IsLocked = true
			f.locks[i].LockedReason = reason
			return &f.locks[i], nil
		}
	}
	f.locks = append(f.locks, model.DeviceLock{
		ID:                int64(len(f.locks) + 1),
		UserID:            userID,
		DeviceFingerprint: fingerprint,
		IsLocked:          true,
		LockedReason:      reason,
	})
	return &f.locks[len(f.locks)-1], nil
}

type fakeTokenStore struct {
	access  map[int64]string
	refresh map[int64]string
	saveErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{access: make(map[int64]string), refresh: make(map[int64]string)}
}

func (f *fakeTokenStore) Save(_ context.Context, userID int64, accessJTI string, _ time.Duration, refreshJTI string, _ time.Duration) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.access[userID] = accessJTI
	f.refresh[userID] = refreshJTI
	return nil
}

func (f *fakeTokenStore) AccessJTI(_ context.Context, userID int64) (string, error) {
	jti, ok := f.access[userID]
	if !ok {
		return "", repository.ErrCacheMiss
	}
	return jti, nil
}

func (f *fakeTokenStore) RefreshJTI(_ context.Context, userID int64) (string, error) {
	jti, ok := f.refresh[userID]
	if !ok {
		return "", repository.ErrCacheMiss
	}
	return jti, nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, userID int64) error {
	delete(f.access, userID)
	delete(f.refresh, userID)
	return nil
}

// ─── OTP ───────────────────────────────────────────────────────────────

type fakeOTPStore struct {
	codes    map[string]model.OTP
	verified map[string]bool
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]model.OTP), verified: make(map[string]bool)}
}

func otpKey(t model.OTPType, identifier string) string {
	return string(t) + ":" + identifier
}

func (f *fakeOTPStore) Get(_ context.Context, t model.OTPType, identifier string) (*model.OTP, error) {
	o, ok := f.codes[otpKey(t, identifier)]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return &o, nil
}

func (f *fakeOTPStore) Save(_ context.Context, o *model.OTP) error {
	f.codes[otpKey(o.Type, o.Identifier)] = *o
	return nil
}

func (f *fakeOTPStore) Delete(_ context.Context, t model.OTPType, identifier string) error {
	delete(f.codes, otpKey(t, identifier))
	return nil
}

func (f *fakeOTPStore) MarkVerified(_ context.Context, t model.OTPType, identifier string, _ time.Duration) error {
	f.verified[otpKey(t, identifier)] = true
	return nil
}

func (f *fakeOTPStore) IsVerified(_ context.Context, t model.OTPType, identifier string) (bool, error) {
	return f.verified[otpKey(t, identifier)], nil
}

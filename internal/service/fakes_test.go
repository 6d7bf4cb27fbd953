package service

import (
	"context"
	"time"

	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/generator"
	"alcyxob/run-coach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the repository and generator interfaces.

type fakeUserRepo struct {
	users   map[primitive.ObjectID]*domain.User
	runners []domain.User
	listErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
		if u.Role == domain.RoleRunner {
			r.runners = append(r.runners, *u)
		}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	user.ID = id
	stored := *user
	r.users[id] = &stored
	return id, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) ListRunners(_ context.Context) ([]domain.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.runners, nil
}

type dateRange struct {
	from, to time.Time
}

type fakeSessionRepo struct {
	sessions map[string]*domain.TrainingSession

	deleteCalls []dateRange
	inserted    [][]domain.TrainingSession
	updated     []string

	fetchErr  error
	deleteErr error
	insertErr error
	updateErr error
}

func newFakeSessionRepo(sessions ...domain.TrainingSession) *fakeSessionRepo {
	r := &fakeSessionRepo{sessions: make(map[string]*domain.TrainingSession)}
	for i := range sessions {
		s := sessions[i]
		r.sessions[s.ID] = &s
	}
	return r
}

func (r *fakeSessionRepo) FetchRange(_ context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.TrainingSession, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	fromStr := from.Format(domain.DateLayout)
	toStr := to.Format(domain.DateLayout)
	var out []domain.TrainingSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.Date >= fromStr && s.Date <= toStr {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) FetchByWeek(_ context.Context, userID primitive.ObjectID, weekNumber int) ([]domain.TrainingSession, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	var out []domain.TrainingSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.WeekNumber == weekNumber {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) DeleteRange(_ context.Context, userID primitive.ObjectID, from, to time.Time) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleteCalls = append(r.deleteCalls, dateRange{from: from, to: to})
	fromStr := from.Format(domain.DateLayout)
	toStr := to.Format(domain.DateLayout)
	for id, s := range r.sessions {
		if s.UserID == userID && s.Date >= fromStr && s.Date <= toStr {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) InsertMany(_ context.Context, _ primitive.ObjectID, sessions []domain.TrainingSession) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, sessions)
	for i := range sessions {
		s := sessions[i]
		r.sessions[s.ID] = &s
	}
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *domain.TrainingSession) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, session.ID)
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, userID primitive.ObjectID, id string) (*domain.TrainingSession, error) {
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

type fakeFeedbackRepo struct {
	byWeek map[string]*domain.TrainingFeedback
	latest *domain.TrainingFeedback
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{byWeek: make(map[string]*domain.TrainingFeedback)}
}

func (r *fakeFeedbackRepo) GetByWeek(_ context.Context, _ primitive.ObjectID, weekStartDate string) (*domain.TrainingFeedback, error) {
	f, ok := r.byWeek[weekStartDate]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (r *fakeFeedbackRepo) GetLatest(_ context.Context, _ primitive.ObjectID) (*domain.TrainingFeedback, error) {
	if r.latest == nil {
		return nil, repository.ErrNotFound
	}
	return r.latest, nil
}

func (r *fakeFeedbackRepo) Upsert(_ context.Context, feedback *domain.TrainingFeedback) error {
	r.byWeek[feedback.WeekStartDate] = feedback
	r.latest = feedback
	return nil
}

type fakeConvRepo struct {
	pending    *domain.PendingAdjustment
	setCalls   int
	clearCalls int
}

func (r *fakeConvRepo) Get(_ context.Context, userID primitive.ObjectID) (*domain.Conversation, error) {
	return &domain.Conversation{UserID: userID, PendingAdjustment: r.pending}, nil
}

func (r *fakeConvRepo) SetPending(_ context.Context, _ primitive.ObjectID, pending *domain.PendingAdjustment) error {
	r.setCalls++
	r.pending = pending
	return nil
}

func (r *fakeConvRepo) ClearPending(_ context.Context, _ primitive.ObjectID) error {
	r.clearCalls++
	r.pending = nil
	return nil
}

type fakeFileStorage struct {
	objects map[string][]byte
	putErr  error
	signErr error
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{objects: make(map[string][]byte)}
}

func (s *fakeFileStorage) PutObject(_ context.Context, objectKey string, _ string, body []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[objectKey] = body
	return nil
}

func (s *fakeFileStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "https://storage.test/" + objectKey, nil
}

func (s *fakeFileStorage) DeleteObject(_ context.Context, objectKey string) error {
	delete(s.objects, objectKey)
	return nil
}

type fakeGenerator struct {
	weekProposals []generator.SessionProposal
	weekErr       error
	weekCalls     int

	adjustment *domain.PendingAdjustment
	adjustErr  error

	feedback    *generator.FeedbackResult
	feedbackErr error
}

func (g *fakeGenerator) ProposeWeek(_ context.Context, _ generator.WeekContext) ([]generator.SessionProposal, error) {
	g.weekCalls++
	if g.weekErr != nil {
		return nil, g.weekErr
	}
	return g.weekProposals, nil
}

func (g *fakeGenerator) ProposeAdjustment(_ context.Context, _ generator.AdjustmentContext) (*domain.PendingAdjustment, error) {
	if g.adjustErr != nil {
		return nil, g.adjustErr
	}
	return g.adjustment, nil
}

func (g *fakeGenerator) ExtractFeedback(_ context.Context, _ generator.FeedbackInput) (*generator.FeedbackResult, error) {
	if g.feedbackErr != nil {
		return nil, g.feedbackErr
	}
	return g.feedback, nil
}

package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

// passthroughTx runs the function without a real transaction. Unit tests use
// it in place of database.WithTx.
func passthroughTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// claimsContext builds a context carrying claims for the given user and roles.
func claimsContext(userID uuid.UUID, roles ...string) context.Context {
	return claimsContextWithSubject(userID.String(), roles...)
}

func claimsContextWithSubject(sub string, roles ...string) context.Context {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Roles:            roles,
	}
	return context.WithValue(context.Background(), auth.ClaimsKey, claims)
}

type mockScientistRepository struct {
	byID   map[uuid.UUID]*models.Scientist
	byUser map[uuid.UUID]*models.Scientist
}

func newMockScientistRepository() *mockScientistRepository {
	return &mockScientistRepository{
		byID:   make(map[uuid.UUID]*models.Scientist),
		byUser: make(map[uuid.UUID]*models.Scientist),
	}
}

func (m *mockScientistRepository) add(userID uuid.UUID) *models.Scientist {
	s := &models.Scientist{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
	m.byID[s.ID] = s
	m.byUser[userID] = s
	return s
}

func (m *mockScientistRepository) Get(_ context.Context, id uuid.UUID) (*models.Scientist, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockScientistRepository) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Scientist, error) {
	if s, ok := m.byUser[userID]; ok {
		return s, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockScientistRepository) Create(_ context.Context, s *models.Scientist) error {
	m.byID[s.ID] = s
	m.byUser[s.UserID] = s
	return nil
}

type mockLabelerRepository struct {
	byID   map[uuid.UUID]*models.Labeler
	byUser map[uuid.UUID]*models.Labeler
}

func newMockLabelerRepository() *mockLabelerRepository {
	return &mockLabelerRepository{
		byID:   make(map[uuid.UUID]*models.Labeler),
		byUser: make(map[uuid.UUID]*models.Labeler),
	}
}

func (m *mockLabelerRepository) add(userID uuid.UUID) *models.Labeler {
	l := &models.Labeler{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
	m.byID[l.ID] = l
	m.byUser[userID] = l
	return l
}

func (m *mockLabelerRepository) Get(_ context.Context, id uuid.UUID) (*models.Labeler, error) {
	if l, ok := m.byID[id]; ok {
		return l, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockLabelerRepository) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Labeler, error) {
	if l, ok := m.byUser[userID]; ok {
		return l, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockLabelerRepository) Create(_ context.Context, l *models.Labeler) error {
	m.byID[l.ID] = l
	m.byUser[l.UserID] = l
	return nil
}

type mockProjectRepository struct {
	projects map[uuid.UUID]*models.Project
	roster   map[uuid.UUID][]uuid.UUID
}

func newMockProjectRepository() *mockProjectRepository {
	return &mockProjectRepository{
		projects: make(map[uuid.UUID]*models.Project),
		roster:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockProjectRepository) add(createdBy uuid.UUID) *models.Project {
	p := &models.Project{ID: uuid.New(), Name: "test project", CreatedBy: createdBy, CreatedAt: time.Now()}
	m.projects[p.ID] = p
	return p
}

func (m *mockProjectRepository) Create(_ context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectRepository) Get(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockProjectRepository) Update(_ context.Context, p *models.Project) error {
	if _, ok := m.projects[p.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (m *mockProjectRepository) AddLabeler(_ context.Context, projectID, labelerID uuid.UUID) (bool, error) {
	for _, id := range m.roster[projectID] {
		if id == labelerID {
			return false, nil
		}
	}
	m.roster[projectID] = append(m.roster[projectID], labelerID)
	return true, nil
}

func (m *mockProjectRepository) HasLabeler(_ context.Context, projectID, labelerID uuid.UUID) (bool, error) {
	for _, id := range m.roster[projectID] {
		if id == labelerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProjectRepository) RosterLabelerIDs(_ context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), m.roster[projectID]...), nil
}

type mockSubjectRepository struct {
	subjects map[uuid.UUID]*models.Subject
}

func newMockSubjectRepository() *mockSubjectRepository {
	return &mockSubjectRepository{subjects: make(map[uuid.UUID]*models.Subject)}
}

func (m *mockSubjectRepository) add(projectID uuid.UUID) *models.Subject {
	s := &models.Subject{ID: uuid.New(), ProjectID: projectID, Name: "subject"}
	m.subjects[s.ID] = s
	return s
}

func (m *mockSubjectRepository) Get(_ context.Context, id uuid.UUID) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrNotFound
}

type mockVideoGroupRepository struct {
	groups map[uuid.UUID]*models.VideoGroup
}

func newMockVideoGroupRepository() *mockVideoGroupRepository {
	return &mockVideoGroupRepository{groups: make(map[uuid.UUID]*models.VideoGroup)}
}

func (m *mockVideoGroupRepository) add(projectID uuid.UUID) *models.VideoGroup {
	g := &models.VideoGroup{ID: uuid.New(), ProjectID: projectID, Name: "group"}
	m.groups[g.ID] = g
	return g
}

func (m *mockVideoGroupRepository) Get(_ context.Context, id uuid.UUID) (*models.VideoGroup, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, apperrors.ErrNotFound
}

type mockVideoRepository struct {
	videos map[uuid.UUID]*models.Video
}

func newMockVideoRepository() *mockVideoRepository {
	return &mockVideoRepository{videos: make(map[uuid.UUID]*models.Video)}
}

func (m *mockVideoRepository) add(videoGroupID uuid.UUID) *models.Video {
	v := &models.Video{ID: uuid.New(), VideoGroupID: videoGroupID, Title: "clip"}
	m.videos[v.ID] = v
	return v
}

func (m *mockVideoRepository) Get(_ context.Context, id uuid.UUID) (*models.Video, error) {
	if v, ok := m.videos[id]; ok {
		return v, nil
	}
	return nil, apperrors.ErrNotFound
}

type mockLabelRepository struct {
	labels map[uuid.UUID]*models.Label
}

func newMockLabelRepository() *mockLabelRepository {
	return &mockLabelRepository{labels: make(map[uuid.UUID]*models.Label)}
}

func (m *mockLabelRepository) add(subjectID uuid.UUID) *models.Label {
	l := &models.Label{ID: uuid.New(), SubjectID: subjectID, Name: "label"}
	m.labels[l.ID] = l
	return l
}

func (m *mockLabelRepository) Get(_ context.Context, id uuid.UUID) (*models.Label, error) {
	if l, ok := m.labels[id]; ok {
		return l, nil
	}
	return nil, apperrors.ErrNotFound
}

type mockAssignedLabelRepository struct {
	labels map[uuid.UUID]*models.AssignedLabel
}

func newMockAssignedLabelRepository() *mockAssignedLabelRepository {
	return &mockAssignedLabelRepository{labels: make(map[uuid.UUID]*models.AssignedLabel)}
}

func (m *mockAssignedLabelRepository) add(labelerID uuid.UUID) *models.AssignedLabel {
	al := &models.AssignedLabel{ID: uuid.New(), LabelerID: labelerID}
	m.labels[al.ID] = al
	return al
}

func (m *mockAssignedLabelRepository) Get(_ context.Context, id uuid.UUID) (*models.AssignedLabel, error) {
	if al, ok := m.labels[id]; ok {
		return al, nil
	}
	return nil, apperrors.ErrNotFound
}

type mockAssignmentRepository struct {
	assignments map[uuid.UUID]*models.Assignment
	projectOf   map[uuid.UUID]uuid.UUID
	order       []uuid.UUID
}

func newMockAssignmentRepository() *mockAssignmentRepository {
	return &mockAssignmentRepository{
		assignments: make(map[uuid.UUID]*models.Assignment),
		projectOf:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockAssignmentRepository) add(projectID, subjectID, videoGroupID uuid.UUID) *models.Assignment {
	a := &models.Assignment{ID: uuid.New(), SubjectID: subjectID, VideoGroupID: videoGroupID}
	m.assignments[a.ID] = a
	m.projectOf[a.ID] = projectID
	m.order = append(m.order, a.ID)
	return a
}

func (m *mockAssignmentRepository) Get(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAssignmentRepository) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, id := range m.order {
		if a := m.assignments[id]; a.SubjectID == subjectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepository) ListByVideoGroup(_ context.Context, videoGroupID uuid.UUID) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, id := range m.order {
		if a := m.assignments[id]; a.VideoGroupID == videoGroupID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListByProject returns assignments in creation order, matching the
// repository's ORDER BY.
func (m *mockAssignmentRepository) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, id := range m.order {
		if m.projectOf[id] == projectID {
			out = append(out, m.assignments[id])
		}
	}
	return out, nil
}

func (m *mockAssignmentRepository) AddLabeler(_ context.Context, assignmentID, labelerID uuid.UUID) (bool, error) {
	a, ok := m.assignments[assignmentID]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if a.HasLabeler(labelerID) {
		return false, nil
	}
	a.LabelerIDs = append(a.LabelerIDs, labelerID)
	return true, nil
}

func (m *mockAssignmentRepository) RemoveLabeler(_ context.Context, assignmentID, labelerID uuid.UUID) (bool, error) {
	a, ok := m.assignments[assignmentID]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	for i, id := range a.LabelerIDs {
		if id == labelerID {
			a.LabelerIDs = append(a.LabelerIDs[:i], a.LabelerIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepository) RemoveAllByProject(_ context.Context, projectID uuid.UUID) (int64, error) {
	var removed int64
	for id, a := range m.assignments {
		if m.projectOf[id] == projectID {
			removed += int64(len(a.LabelerIDs))
			a.LabelerIDs = nil
		}
	}
	return removed, nil
}

type mockAccessCodeRepository struct {
	byID      map[uuid.UUID]*models.AccessCode
	lockCalls int
}

func newMockAccessCodeRepository() *mockAccessCodeRepository {
	return &mockAccessCodeRepository{byID: make(map[uuid.UUID]*models.AccessCode)}
}

func (m *mockAccessCodeRepository) Create(_ context.Context, c *models.AccessCode) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	m.byID[c.ID] = c
	return nil
}

func (m *mockAccessCodeRepository) GetByCode(_ context.Context, code string) (*models.AccessCode, error) {
	for _, c := range m.byID {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAccessCodeRepository) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.AccessCode, error) {
	var out []*models.AccessCode
	for _, c := range m.byID {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockAccessCodeRepository) GetLiveByProjectForUpdate(_ context.Context, projectID uuid.UUID, now time.Time) (*models.AccessCode, error) {
	for _, c := range m.byID {
		if c.ProjectID == projectID && c.LiveAt(now) {
			return c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAccessCodeRepository) SetExpiration(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	c, ok := m.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	t := expiresAt
	c.ExpiresAt = &t
	return nil
}

func (m *mockAccessCodeRepository) AcquireProjectLock(_ context.Context, _ uuid.UUID) error {
	m.lockCalls++
	return nil
}

type mockUserRepository struct {
	users map[uuid.UUID]*models.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserRepository) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) Create(_ context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) SetRoles(_ context.Context, id uuid.UUID, roles []string) error {
	for _, role := range roles {
		if !models.IsValidRole(role) {
			return apperrors.ErrConflict
		}
	}
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Roles = roles
	return nil
}

type mockEventRepository struct {
	events []*models.DomainEvent
}

func newMockEventRepository() *mockEventRepository {
	return &mockEventRepository{}
}

func (m *mockEventRepository) Create(_ context.Context, e *models.DomainEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *mockEventRepository) ListPending(_ context.Context, limit int) ([]*models.DomainEvent, error) {
	var out []*models.DomainEvent
	for _, e := range m.events {
		if e.DeliveredAt == nil {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockEventRepository) MarkDelivered(_ context.Context, ids []uuid.UUID) error {
	now := time.Now()
	for _, e := range m.events {
		for _, id := range ids {
			if e.ID == id && e.DeliveredAt == nil {
				t := now
				e.DeliveredAt = &t
			}
		}
	}
	return nil
}

func (m *mockEventRepository) ListByEntity(_ context.Context, kind models.EntityKind, entityID uuid.UUID) ([]*models.DomainEvent, error) {
	var out []*models.DomainEvent
	for _, e := range m.events {
		if e.EntityKind == kind && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// kinds returns the event kinds recorded for one entity, in append order.
func (m *mockEventRepository) kinds(entityID uuid.UUID) []string {
	var out []string
	for _, e := range m.events {
		if e.EntityID == entityID {
			out = append(out, e.Kind)
		}
	}
	return out
}

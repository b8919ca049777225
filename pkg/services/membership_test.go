package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

type membershipFixture struct {
	svc         *membershipService
	scientists  *mockScientistRepository
	labelers    *mockLabelerRepository
	projects    *mockProjectRepository
	subjects    *mockSubjectRepository
	videoGroups *mockVideoGroupRepository
	assignments *mockAssignmentRepository
	codes       *mockAccessCodeRepository
	eventRepo   *mockEventRepository
	clock       time.Time
}

func setupMembershipTest() *membershipFixture {
	f := &membershipFixture{
		scientists:  newMockScientistRepository(),
		labelers:    newMockLabelerRepository(),
		projects:    newMockProjectRepository(),
		subjects:    newMockSubjectRepository(),
		videoGroups: newMockVideoGroupRepository(),
		assignments: newMockAssignmentRepository(),
		codes:       newMockAccessCodeRepository(),
		eventRepo:   newMockEventRepository(),
		clock:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	access := NewAccessContextService(f.scientists, f.labelers, zap.NewNop())
	labelerAccess := NewLabelerAccessService(access, f.assignments, newMockVideoRepository(),
		newMockAssignedLabelRepository(), zap.NewNop())
	ownership := NewOwnershipService(access, f.projects, f.subjects, f.videoGroups,
		newMockVideoRepository(), newMockLabelRepository(), f.assignments, zap.NewNop())
	events := NewDomainEventService(f.eventRepo, zap.NewNop())

	svc := NewMembershipService(labelerAccess, ownership, f.projects, f.subjects,
		f.assignments, f.codes, events, zap.NewNop()).(*membershipService)
	svc.inTx = passthroughTx
	svc.now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

// ownedProject creates a scientist-owned project and returns the owner's
// claims context alongside it.
func (f *membershipFixture) ownedProject() (context.Context, *models.Project) {
	userID := uuid.New()
	scientist := f.scientists.add(userID)
	project := f.projects.add(scientist.ID)
	return claimsContext(userID, models.RoleScientist), project
}

func (f *membershipFixture) labelerCtx() (context.Context, *models.Labeler) {
	userID := uuid.New()
	labeler := f.labelers.add(userID)
	return claimsContext(userID, models.RoleLabeler), labeler
}

func (f *membershipFixture) liveCode(projectID uuid.UUID) *models.AccessCode {
	code := &models.AccessCode{ProjectID: projectID, Code: "joincode12345678", CreatedBy: uuid.New()}
	_ = f.codes.Create(context.Background(), code)
	return code
}

func TestJoinProject(t *testing.T) {
	f := setupMembershipTest()
	_, project := f.ownedProject()
	code := f.liveCode(project.ID)
	ctx, labeler := f.labelerCtx()

	joined, err := f.svc.JoinProject(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, project.ID, joined.ID)

	member, err := f.projects.HasLabeler(ctx, project.ID, labeler.ID)
	require.NoError(t, err)
	assert.True(t, member)

	assert.Equal(t, []string{models.EventLabelerJoined}, f.eventRepo.kinds(project.ID))
}

func TestJoinProject_Idempotent(t *testing.T) {
	f := setupMembershipTest()
	_, project := f.ownedProject()
	code := f.liveCode(project.ID)
	ctx, _ := f.labelerCtx()

	_, err := f.svc.JoinProject(ctx, code.Code)
	require.NoError(t, err)

	// Joining again succeeds without a second membership event.
	_, err = f.svc.JoinProject(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{models.EventLabelerJoined}, f.eventRepo.kinds(project.ID))
}

func TestJoinProject_UnknownCode(t *testing.T) {
	f := setupMembershipTest()
	ctx, _ := f.labelerCtx()

	_, err := f.svc.JoinProject(ctx, "nosuchcode123456")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestJoinProject_ExpiredCode(t *testing.T) {
	f := setupMembershipTest()
	_, project := f.ownedProject()
	code := f.liveCode(project.ID)
	expired := f.clock.Add(-time.Hour)
	code.ExpiresAt = &expired
	ctx, _ := f.labelerCtx()

	// An expired code reads the same as one that never existed.
	_, err := f.svc.JoinProject(ctx, code.Code)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrForbidden)
}

func TestJoinProject_RequiresLabeler(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	code := f.liveCode(project.ID)

	_, err := f.svc.JoinProject(ctx, code.Code)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAssignLabeler(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	subject := f.subjects.add(project.ID)
	assignment := f.assignments.add(project.ID, subject.ID, uuid.New())

	_, labeler := f.labelerCtx()
	_, err := f.projects.AddLabeler(ctx, project.ID, labeler.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignLabeler(ctx, assignment.ID, labeler.ID, uuid.New()))
	assert.True(t, assignment.HasLabeler(labeler.ID))
	assert.Equal(t, []string{models.EventLabelerAssigned}, f.eventRepo.kinds(assignment.ID))

	// Assigning again is a no-op with no extra event.
	require.NoError(t, f.svc.AssignLabeler(ctx, assignment.ID, labeler.ID, uuid.New()))
	assert.Equal(t, []string{models.EventLabelerAssigned}, f.eventRepo.kinds(assignment.ID))
}

func TestAssignLabeler_NotOnProjectRoster(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	subject := f.subjects.add(project.ID)
	assignment := f.assignments.add(project.ID, subject.ID, uuid.New())

	_, labeler := f.labelerCtx()

	err := f.svc.AssignLabeler(ctx, assignment.ID, labeler.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.False(t, assignment.HasLabeler(labeler.ID))
}

func TestAssignLabeler_NotOwner(t *testing.T) {
	f := setupMembershipTest()
	_, project := f.ownedProject()
	subject := f.subjects.add(project.ID)
	assignment := f.assignments.add(project.ID, subject.ID, uuid.New())

	otherCtx, _ := f.ownedProject()
	err := f.svc.AssignLabeler(otherCtx, assignment.ID, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUnassignLabeler(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	subject := f.subjects.add(project.ID)
	assignment := f.assignments.add(project.ID, subject.ID, uuid.New())

	labelerID := uuid.New()
	assignment.LabelerIDs = append(assignment.LabelerIDs, labelerID)

	require.NoError(t, f.svc.UnassignLabeler(ctx, assignment.ID, labelerID, uuid.New()))
	assert.False(t, assignment.HasLabeler(labelerID))
	assert.Equal(t, []string{models.EventLabelerUnassigned}, f.eventRepo.kinds(assignment.ID))

	// Removing an absent labeler records nothing further.
	require.NoError(t, f.svc.UnassignLabeler(ctx, assignment.ID, labelerID, uuid.New()))
	assert.Equal(t, []string{models.EventLabelerUnassigned}, f.eventRepo.kinds(assignment.ID))
}

func TestUnassignAllLabelers(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	subject := f.subjects.add(project.ID)

	a1 := f.assignments.add(project.ID, subject.ID, uuid.New())
	a2 := f.assignments.add(project.ID, subject.ID, uuid.New())
	a1.LabelerIDs = []uuid.UUID{uuid.New(), uuid.New()}
	a2.LabelerIDs = []uuid.UUID{uuid.New()}

	require.NoError(t, f.svc.UnassignAllLabelers(ctx, project.ID, uuid.New()))
	assert.Empty(t, a1.LabelerIDs)
	assert.Empty(t, a2.LabelerIDs)
	assert.Equal(t, []string{models.EventLabelersCleared}, f.eventRepo.kinds(project.ID))
}

func TestUnassignAllLabelers_EmptyProject(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()

	require.NoError(t, f.svc.UnassignAllLabelers(ctx, project.ID, uuid.New()))
	assert.Empty(t, f.eventRepo.kinds(project.ID))
}

func TestDistributeLabelersEqually(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	subject := f.subjects.add(project.ID)

	assignments := []*models.Assignment{
		f.assignments.add(project.ID, subject.ID, uuid.New()),
		f.assignments.add(project.ID, subject.ID, uuid.New()),
		f.assignments.add(project.ID, subject.ID, uuid.New()),
	}

	for i := 0; i < 7; i++ {
		_, err := f.projects.AddLabeler(ctx, project.ID, uuid.New())
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.DistributeLabelersEqually(ctx, project.ID, uuid.New()))

	// 7 labelers over 3 assignments: roster sizes differ by at most one.
	var total, minSize, maxSize int
	minSize = len(assignments[0].LabelerIDs)
	for _, a := range assignments {
		n := len(a.LabelerIDs)
		total += n
		if n < minSize {
			minSize = n
		}
		if n > maxSize {
			maxSize = n
		}
	}
	assert.Equal(t, 7, total)
	assert.LessOrEqual(t, maxSize-minSize, 1)
}

func TestDistributeLabelersEqually_Idempotent(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()
	subject := f.subjects.add(project.ID)

	a1 := f.assignments.add(project.ID, subject.ID, uuid.New())
	a2 := f.assignments.add(project.ID, subject.ID, uuid.New())

	for i := 0; i < 4; i++ {
		_, err := f.projects.AddLabeler(ctx, project.ID, uuid.New())
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.DistributeLabelersEqually(ctx, project.ID, uuid.New()))
	require.NoError(t, f.svc.DistributeLabelersEqually(ctx, project.ID, uuid.New()))

	assert.Equal(t, 4, len(a1.LabelerIDs)+len(a2.LabelerIDs))
}

func TestDistributeLabelersEqually_NoAssignments(t *testing.T) {
	f := setupMembershipTest()
	ctx, project := f.ownedProject()

	_, err := f.projects.AddLabeler(ctx, project.ID, uuid.New())
	require.NoError(t, err)

	require.NoError(t, f.svc.DistributeLabelersEqually(ctx, project.ID, uuid.New()))
}

package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
)

type labelerAccessFixture struct {
	svc            LabelerAccessService
	scientists     *mockScientistRepository
	labelers       *mockLabelerRepository
	assignments    *mockAssignmentRepository
	videos         *mockVideoRepository
	assignedLabels *mockAssignedLabelRepository
}

func setupLabelerAccessTest() *labelerAccessFixture {
	f := &labelerAccessFixture{
		scientists:     newMockScientistRepository(),
		labelers:       newMockLabelerRepository(),
		assignments:    newMockAssignmentRepository(),
		videos:         newMockVideoRepository(),
		assignedLabels: newMockAssignedLabelRepository(),
	}
	access := NewAccessContextService(f.scientists, f.labelers, zap.NewNop())
	f.svc = NewLabelerAccessService(access, f.assignments, f.videos, f.assignedLabels, zap.NewNop())
	return f
}

func TestResolveLabeler_RoleAbsent(t *testing.T) {
	f := setupLabelerAccessTest()
	userID := uuid.New()
	f.scientists.add(userID)

	_, err := f.svc.ResolveLabeler(claimsContext(userID, models.RoleScientist))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestResolveLabeler_RecordMissing(t *testing.T) {
	f := setupLabelerAccessTest()

	// Role claimed, no record: reads as not found rather than forbidden.
	_, err := f.svc.ResolveLabeler(claimsContext(uuid.New(), models.RoleLabeler))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrForbidden)
}

func TestResolveLabeler_Success(t *testing.T) {
	f := setupLabelerAccessTest()
	userID := uuid.New()
	labeler := f.labelers.add(userID)

	resolved, err := f.svc.ResolveLabeler(claimsContext(userID, models.RoleLabeler))
	require.NoError(t, err)
	assert.Equal(t, labeler.ID, resolved.ID)
}

func TestCanAccessAssignment(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)
	labelerID := uuid.New()
	assignment := f.assignments.add(uuid.New(), uuid.New(), uuid.New())

	ok, err := f.svc.CanAccessAssignment(ctx, labelerID, assignment.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assignment.LabelerIDs = append(assignment.LabelerIDs, labelerID)
	ok, err = f.svc.CanAccessAssignment(ctx, labelerID, assignment.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccessAssignment_MissingReadsFalse(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)

	ok, err := f.svc.CanAccessAssignment(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessVideoGroup_AnyCoveringAssignment(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)
	labelerID := uuid.New()
	groupID := uuid.New()

	// Three assignments cover the group; membership in any one grants
	// access.
	f.assignments.add(uuid.New(), uuid.New(), groupID)
	member := f.assignments.add(uuid.New(), uuid.New(), groupID)
	f.assignments.add(uuid.New(), uuid.New(), groupID)
	member.LabelerIDs = append(member.LabelerIDs, labelerID)

	ok, err := f.svc.CanAccessVideoGroup(ctx, labelerID, groupID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccessVideoGroup_NoAssignments(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)

	ok, err := f.svc.CanAccessVideoGroup(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessSubject(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)
	labelerID := uuid.New()
	subjectID := uuid.New()

	a := f.assignments.add(uuid.New(), subjectID, uuid.New())
	a.LabelerIDs = append(a.LabelerIDs, labelerID)

	ok, err := f.svc.CanAccessSubject(ctx, labelerID, subjectID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.CanAccessSubject(ctx, uuid.New(), subjectID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessVideo_DelegatesToGroup(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)
	labelerID := uuid.New()
	groupID := uuid.New()
	video := f.videos.add(groupID)

	a := f.assignments.add(uuid.New(), uuid.New(), groupID)
	a.LabelerIDs = append(a.LabelerIDs, labelerID)

	ok, err := f.svc.CanAccessVideo(ctx, labelerID, video.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccessVideo_MissingVideoReadsFalse(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)

	ok, err := f.svc.CanAccessVideo(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureOwnsAssignedLabel(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)
	labelerID := uuid.New()
	assignedLabel := f.assignedLabels.add(labelerID)

	assert.NoError(t, f.svc.EnsureOwnsAssignedLabel(ctx, labelerID, assignedLabel.ID))

	err := f.svc.EnsureOwnsAssignedLabel(ctx, uuid.New(), assignedLabel.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestEnsureOwnsAssignedLabel_Missing(t *testing.T) {
	f := setupLabelerAccessTest()
	ctx := claimsContext(uuid.New(), models.RoleAdmin)

	err := f.svc.EnsureOwnsAssignedLabel(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEnsureLabelerCanAccess_FrontDoor(t *testing.T) {
	f := setupLabelerAccessTest()
	userID := uuid.New()
	labeler := f.labelers.add(userID)
	ctx := claimsContext(userID, models.RoleLabeler)

	assignment := f.assignments.add(uuid.New(), uuid.New(), uuid.New())

	err := f.svc.EnsureLabelerCanAccess(ctx, models.KindAssignment, assignment.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assignment.LabelerIDs = append(assignment.LabelerIDs, labeler.ID)
	assert.NoError(t, f.svc.EnsureLabelerCanAccess(ctx, models.KindAssignment, assignment.ID))
}

func TestEnsureLabelerCanAccess_OwnAnnotation(t *testing.T) {
	f := setupLabelerAccessTest()
	userID := uuid.New()
	labeler := f.labelers.add(userID)
	ctx := claimsContext(userID, models.RoleLabeler)

	own := f.assignedLabels.add(labeler.ID)
	other := f.assignedLabels.add(uuid.New())

	assert.NoError(t, f.svc.EnsureLabelerCanAccess(ctx, models.KindAssignedLabel, own.ID))
	assert.ErrorIs(t, f.svc.EnsureLabelerCanAccess(ctx, models.KindAssignedLabel, other.ID),
		apperrors.ErrForbidden)
}

func TestEnsureLabelerCanAccess_UnsupportedKind(t *testing.T) {
	f := setupLabelerAccessTest()
	userID := uuid.New()
	f.labelers.add(userID)
	ctx := claimsContext(userID, models.RoleLabeler)

	err := f.svc.EnsureLabelerCanAccess(ctx, models.KindProject, uuid.New())
	assert.Error(t, err)
}

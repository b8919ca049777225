package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/metrics"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 16
)

// txFunc runs fn inside a transaction bound to the request scope. Production
// code uses database.WithTx; tests substitute a passthrough.
type txFunc func(ctx context.Context, fn func(context.Context) error) error

// AccessCodeService manages the project join-code lifecycle: issue, rotate,
// validate, retire. At most one code per project is live at any instant;
// IssueOrRotate preserves that invariant under concurrent calls by
// serializing rotations per project.
type AccessCodeService interface {
	// IssueOrRotate returns a fresh live code for the project. If a live
	// code already exists it is retired in the same transaction; on any
	// failure the whole rotation rolls back with no partial state.
	IssueOrRotate(ctx context.Context, projectID, actorID uuid.UUID,
		policy models.AccessCodeExpiration, customDays int) (*models.AccessCode, error)

	// Validate reports whether the code exists and is live. It returns a
	// plain boolean so callers cannot distinguish a retired code from one
	// that never existed.
	Validate(ctx context.Context, code string) (bool, error)

	// Retire expires the code at the current instant and records a retired
	// event. The caller must own the code's project (or be an admin).
	// Retirement is one-way; retiring an already retired code leaves
	// its expiration untouched but still records the event.
	Retire(ctx context.Context, code string, actorID uuid.UUID) error

	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.AccessCode, error)
}

type accessCodeService struct {
	projects  repositories.ProjectRepository
	codes     repositories.AccessCodeRepository
	events    DomainEventService
	ownership OwnershipService
	logger    *zap.Logger
	inTx      txFunc
	now       func() time.Time
}

// NewAccessCodeService creates a new access code service.
func NewAccessCodeService(
	projects repositories.ProjectRepository,
	codes repositories.AccessCodeRepository,
	events DomainEventService,
	ownership OwnershipService,
	logger *zap.Logger,
) AccessCodeService {
	return &accessCodeService{
		projects:  projects,
		codes:     codes,
		events:    events,
		ownership: ownership,
		logger:    logger,
		inTx:      database.WithTx,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *accessCodeService) IssueOrRotate(ctx context.Context, projectID, actorID uuid.UUID,
	policy models.AccessCodeExpiration, customDays int) (*models.AccessCode, error) {

	now := s.now()

	expiresAt, err := resolveExpiration(policy, customDays, now)
	if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access code: %w", err)
	}

	issued := &models.AccessCode{
		ProjectID: projectID,
		Code:      code,
		CreatedBy: actorID,
		ExpiresAt: expiresAt,
	}
	rotated := false

	err = s.inTx(ctx, func(ctx context.Context) error {
		// Concurrent rotations for the same project queue behind this
		// lock, so both cannot observe "no live code" and each insert one.
		if err := s.codes.AcquireProjectLock(ctx, projectID); err != nil {
			return err
		}

		if _, err := s.projects.Get(ctx, projectID); err != nil {
			return err
		}

		live, err := s.codes.GetLiveByProjectForUpdate(ctx, projectID, now)
		switch {
		case err == nil:
			if err := s.retireInTx(ctx, live, actorID, now, true); err != nil {
				return err
			}
			rotated = true
		case errors.Is(err, apperrors.ErrNotFound):
			// First code for this project.
		default:
			return err
		}

		if err := s.codes.Create(ctx, issued); err != nil {
			return err
		}

		return s.events.Append(ctx, models.KindAccessCode, issued.ID,
			models.EventAccessCodeIssued, actorID, map[string]any{
				"project_id": projectID.String(),
				"rotated":    rotated,
			})
	})
	if err != nil {
		return nil, err
	}

	metrics.AccessCodesIssued.WithLabelValues(strconv.FormatBool(rotated)).Inc()
	s.logger.Info("access code issued",
		zap.String("project_id", projectID.String()),
		zap.String("code_id", issued.ID.String()),
		zap.Bool("rotated", rotated))

	return issued, nil
}

func (s *accessCodeService) Validate(ctx context.Context, code string) (bool, error) {
	found, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.AccessCodeValidations.WithLabelValues("false").Inc()
			return false, nil
		}
		return false, err
	}

	live := found.LiveAt(s.now())
	metrics.AccessCodeValidations.WithLabelValues(strconv.FormatBool(live)).Inc()
	return live, nil
}

func (s *accessCodeService) Retire(ctx context.Context, code string, actorID uuid.UUID) error {
	found, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	// Knowing a code string is not authority over it. Only the project's
	// owner (or an admin) may retire a code.
	if err := s.ownership.EnsureScientistOwns(ctx, models.KindProject, found.ProjectID); err != nil {
		return err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.retireInTx(ctx, found, actorID, s.now(), false)
	})
	if err != nil {
		return err
	}

	metrics.AccessCodesRetired.Inc()
	return nil
}

// retireInTx expires a code and records the retired event. The caller owns
// the surrounding transaction. An already retired code keeps its original
// expiration so retirement stays monotonic, but the event is still recorded.
func (s *accessCodeService) retireInTx(ctx context.Context, code *models.AccessCode,
	actorID uuid.UUID, now time.Time, rotation bool) error {

	if code.LiveAt(now) {
		if err := s.codes.SetExpiration(ctx, code.ID, now); err != nil {
			return err
		}
		code.ExpiresAt = &now
	}

	return s.events.Append(ctx, models.KindAccessCode, code.ID,
		models.EventAccessCodeRetired, actorID, map[string]any{
			"project_id": code.ProjectID.String(),
			"rotation":   rotation,
		})
}

func (s *accessCodeService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.AccessCode, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.codes.ListByProject(ctx, projectID)
}

// resolveExpiration maps an expiration policy to a concrete timestamp.
// The policy set is closed; anything else is an invalid argument.
func resolveExpiration(policy models.AccessCodeExpiration, customDays int, now time.Time) (*time.Time, error) {
	switch policy {
	case models.ExpirationIn14Days:
		t := now.AddDate(0, 0, 14)
		return &t, nil
	case models.ExpirationIn30Days:
		t := now.AddDate(0, 0, 30)
		return &t, nil
	case models.ExpirationNever:
		return nil, nil
	case models.ExpirationCustom:
		if customDays <= 0 {
			return nil, fmt.Errorf("custom expiration requires a positive day count: %w",
				apperrors.ErrInvalidExpiration)
		}
		t := now.AddDate(0, 0, customDays)
		return &t, nil
	default:
		return nil, fmt.Errorf("unknown expiration policy %q: %w", policy, apperrors.ErrInvalidExpiration)
	}
}

// generateCode draws 16 characters uniformly from a 62-symbol alphabet using
// crypto/rand. Bytes outside the largest multiple of 62 are rejected to keep
// the distribution unbiased.
func generateCode() (string, error) {
	const maxUsable = 248 // 62 * 4

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= maxUsable {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}

	return string(out), nil
}

// Ensure accessCodeService implements AccessCodeService at compile time.
var _ AccessCodeService = (*accessCodeService)(nil)

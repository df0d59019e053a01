package training

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
)

var errInconsistentBand = errors.NewSentinel("inconsistent prescription band")

// validate checks that every populated range of the band has min <= max.
func (b PrescriptionBand) validate() error {
	switch {
	case b.Sets.Min <= 0 || !b.Sets.Valid():
		return fmt.Errorf("%w: sets %d-%d", errInconsistentBand, b.Sets.Min, b.Sets.Max)
	case b.Reps != nil && (b.Reps.Min <= 0 || !b.Reps.Valid()):
		return fmt.Errorf("%w: reps %d-%d", errInconsistentBand, b.Reps.Min, b.Reps.Max)
	case b.DurationSec != nil && (b.DurationSec.Min <= 0 || !b.DurationSec.Valid()):
		return fmt.Errorf("%w: duration %d-%d", errInconsistentBand, b.DurationSec.Min, b.DurationSec.Max)
	default:
		return nil
	}
}

// GetBand returns the curated band for the key. ErrNotFound is returned when no band is curated; defaults are
// never synthesised.
func (s *Service) GetBand(
	ctx context.Context,
	exerciseID string,
	tier ExperienceTier,
	mode Mode,
) (PrescriptionBand, error) {
	bands, err := s.GetBands(ctx, []string{exerciseID}, tier, mode)
	if err != nil {
		return PrescriptionBand{}, err
	}
	band, ok := bands[exerciseID]
	if !ok {
		return PrescriptionBand{}, fmt.Errorf("band for %s/%s/%s: %w", exerciseID, tier, mode, ErrNotFound)
	}
	return band, nil
}

// GetBands returns the curated bands of exerciseIDs keyed by id. Ids without a band are omitted.
func (s *Service) GetBands(
	ctx context.Context,
	exerciseIDs []string,
	tier ExperienceTier,
	mode Mode,
) (map[string]PrescriptionBand, error) {
	if _, err := ParseExperienceTier(string(tier)); err != nil {
		return nil, err
	}
	if mode != ModeReps && mode != ModeTimed {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, mode)
	}
	ctx = logging.WithAttrs(ctx, slog.String("tier", string(tier)), slog.String("mode", string(mode)))
	bands, err := s.repo.prescriptions.listBands(ctx, dedupe(exerciseIDs), tier, mode)
	if err != nil {
		return nil, errors.Wrap(err, "get prescription bands", slog.Int("requested", len(exerciseIDs)))
	}
	return bands, nil
}

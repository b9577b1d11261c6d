package workflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// ReadQuorumThreshold returns the stored threshold, or fallback if none was set.
// A stored value outside the accepted range is a configuration error.
func ReadQuorumThreshold(ctx context.Context, settings port.SettingsRepository, fallback int) (int, error) {
	cfg, ok, err := settings.Get(ctx, entity.ConfigKeyQuorumThreshold)
	if err != nil {
		return 0, fmt.Errorf("failed to read quorum threshold: %w", err)
	}
	if !ok {
		return fallback, nil
	}

	n, err := strconv.Atoi(cfg.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: stored quorum threshold %q is not a number", domainwf.ErrConfiguration, cfg.Value)
	}
	if err := domainwf.ValidateQuorumThreshold(n); err != nil {
		return 0, err
	}
	return n, nil
}

package docauth

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"proofing/internal/analytics"
	"proofing/internal/platform/metrics"
	"proofing/pkg/domainerrors"
)

// RouterConfig controls vendor selection.
type RouterConfig struct {
	Primary   Vendor
	Alternate Vendor
	// Randomize splits traffic between Primary and Alternate; when false the
	// primary always wins and Percent is ignored.
	Randomize bool
	// Percent of traffic routed to Alternate, in [0,100).
	Percent int
	// SelfieRequired forces LexisNexis, the only vendor with selfie support,
	// unless the selected vendor is the mock.
	SelfieRequired bool
}

// Router deterministically picks a vendor per discriminator. The same
// discriminator always yields the same vendor under a fixed config, so every
// retry within a session lands on the vendor that saw the first attempt.
type Router struct {
	cfg     RouterConfig
	clients map[Vendor]Client
	tracker analytics.Tracker
	metrics *metrics.Metrics
}

func NewRouter(cfg RouterConfig, clients []Client, tracker analytics.Tracker, m *metrics.Metrics) (*Router, error) {
	byVendor := make(map[Vendor]Client, len(clients))
	for _, c := range clients {
		byVendor[c.Vendor()] = c
	}
	if _, ok := byVendor[cfg.Primary]; !ok {
		return nil, domainerrors.Newf(domainerrors.CodeConfiguration, "no client for primary vendor %q", cfg.Primary)
	}
	if cfg.Randomize {
		if _, ok := byVendor[cfg.Alternate]; !ok {
			return nil, domainerrors.Newf(domainerrors.CodeConfiguration, "no client for alternate vendor %q", cfg.Alternate)
		}
		if cfg.Percent < 0 || cfg.Percent >= 100 {
			return nil, domainerrors.Newf(domainerrors.CodeConfiguration, "alternate percent %d outside [0,100)", cfg.Percent)
		}
	}
	return &Router{cfg: cfg, clients: byVendor, tracker: tracker, metrics: m}, nil
}

// Pick resolves the vendor for one discriminator.
func (r *Router) Pick(ctx context.Context, discriminator string) Vendor {
	v := r.cfg.Primary
	switch {
	case !r.cfg.Randomize:
	case discriminator == "":
		// No stable value to hash; fall back to the primary and record it so
		// an upstream bug dropping the discriminator is visible.
		r.tracker.Track(ctx, analytics.EventRandomizerDefaulted, map[string]any{
			"vendor": string(v),
		})
	case bucket(discriminator) < r.cfg.Percent:
		v = r.cfg.Alternate
	}

	// The mock is only ever configured deliberately; honor it unchanged.
	if r.cfg.SelfieRequired && v != VendorMock {
		v = VendorLexisNexis
	}
	return v
}

// Client resolves the vendor client for one discriminator.
func (r *Router) Client(ctx context.Context, discriminator string) (Client, error) {
	v := r.Pick(ctx, discriminator)
	c, ok := r.clients[v]
	if !ok {
		return nil, domainerrors.Newf(domainerrors.CodeConfiguration, "no client for vendor %q", v)
	}
	r.metrics.VendorSelected.WithLabelValues(string(v)).Inc()
	r.tracker.Track(ctx, analytics.EventVendorSelected, map[string]any{
		"vendor": string(v),
	})
	return c, nil
}

// bucket hashes the discriminator into a stable 0-99 slot.
func bucket(discriminator string) int {
	sum := sha256.Sum256([]byte(discriminator))
	return int(binary.BigEndian.Uint64(sum[:8]) % 100)
}

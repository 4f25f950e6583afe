package docauth

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"proofing/internal/analytics"
	"proofing/internal/platform/metrics"
)

func newTestRouter(t *testing.T, cfg RouterConfig) (*Router, *analytics.Fake) {
	t.Helper()
	fake := analytics.NewFake()
	r, err := NewRouter(cfg, []Client{
		NewAcuantClient("http://acuant.test", 0),
		NewLexisNexisClient("http://lexisnexis.test", 0),
		NewMockClient(),
	}, fake, metrics.NewWith(prometheus.NewRegistry()))
	require.NoError(t, err)
	return r, fake
}

func TestPickIsDeterministicPerDiscriminator(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{
		Primary:   VendorAcuant,
		Alternate: VendorLexisNexis,
		Randomize: true,
		Percent:   50,
	})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		d := fmt.Sprintf("session-%d", i)
		first := r.Pick(ctx, d)
		for j := 0; j < 10; j++ {
			require.Equal(t, first, r.Pick(ctx, d), "vendor changed across retries for %s", d)
		}
	}
}

func TestPickSplitsTrafficNearConfiguredPercent(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{
		Primary:   VendorAcuant,
		Alternate: VendorLexisNexis,
		Randomize: true,
		Percent:   30,
	})

	ctx := context.Background()
	alternate := 0
	const n = 1000
	for i := 0; i < n; i++ {
		if r.Pick(ctx, fmt.Sprintf("discriminator-%d", i)) == VendorLexisNexis {
			alternate++
		}
	}

	share := float64(alternate) / n * 100
	require.InDelta(t, 30, share, 5, "alternate share drifted from configured percent")
}

func TestPickWithoutRandomizationAlwaysPrimary(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{
		Primary:   VendorLexisNexis,
		Alternate: VendorAcuant,
		Randomize: false,
		Percent:   100,
	})

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		require.Equal(t, VendorLexisNexis, r.Pick(ctx, fmt.Sprintf("d-%d", i)))
	}
}

func TestPickEmptyDiscriminatorDefaultsToPrimary(t *testing.T) {
	r, fake := newTestRouter(t, RouterConfig{
		Primary:   VendorAcuant,
		Alternate: VendorLexisNexis,
		Randomize: true,
		Percent:   99,
	})

	require.Equal(t, VendorAcuant, r.Pick(context.Background(), ""))
	require.True(t, fake.Tracked(analytics.EventRandomizerDefaulted))
}

func TestPickSelfieForcesLexisNexis(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{
		Primary:        VendorAcuant,
		Alternate:      VendorAcuant,
		Randomize:      false,
		SelfieRequired: true,
	})

	require.Equal(t, VendorLexisNexis, r.Pick(context.Background(), "any"))
}

func TestPickSelfieNeverOverridesMock(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{
		Primary:        VendorMock,
		Randomize:      false,
		SelfieRequired: true,
	})

	require.Equal(t, VendorMock, r.Pick(context.Background(), "any"))
}

func TestClientTracksSelection(t *testing.T) {
	r, fake := newTestRouter(t, RouterConfig{
		Primary:   VendorAcuant,
		Randomize: false,
	})

	c, err := r.Client(context.Background(), "session-1")
	require.NoError(t, err)
	require.Equal(t, VendorAcuant, c.Vendor())
	require.True(t, fake.Tracked(analytics.EventVendorSelected))
}

func TestNewRouterRejectsBadConfig(t *testing.T) {
	fake := analytics.NewFake()
	m := metrics.NewWith(prometheus.NewRegistry())
	clients := []Client{NewMockClient()}

	_, err := NewRouter(RouterConfig{Primary: VendorAcuant}, clients, fake, m)
	require.Error(t, err)

	_, err = NewRouter(RouterConfig{
		Primary:   VendorMock,
		Alternate: VendorAcuant,
		Randomize: true,
		Percent:   10,
	}, clients, fake, m)
	require.Error(t, err)

	_, err = NewRouter(RouterConfig{
		Primary:   VendorMock,
		Alternate: VendorMock,
		Randomize: true,
		Percent:   100,
	}, clients, fake, m)
	require.Error(t, err, "the bucket space is [0,100); 100 never routes to the primary")

	_, err = NewRouter(RouterConfig{
		Primary:   VendorMock,
		Alternate: VendorMock,
		Randomize: true,
		Percent:   -1,
	}, clients, fake, m)
	require.Error(t, err)
}

func TestParseVendor(t *testing.T) {
	v, err := ParseVendor("lexisnexis")
	require.NoError(t, err)
	require.Equal(t, VendorLexisNexis, v)

	_, err = ParseVendor("unknown_vendor")
	require.Error(t, err)
}

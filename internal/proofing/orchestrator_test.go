package proofing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"proofing/internal/analytics"
	"proofing/internal/docauth"
	"proofing/internal/docauth/mocks"
	"proofing/internal/platform/metrics"
	"proofing/pkg/domainerrors"
	"proofing/pkg/requestcontext"
)

type orchestratorEnv struct {
	orchestrator *Orchestrator
	client       *mocks.MockClient
	store        *InMemoryStore
	fake         *analytics.Fake
}

func newOrchestratorEnv(t *testing.T) *orchestratorEnv {
	t.Helper()
	return newOrchestratorEnvWithTTL(t, time.Minute, time.Second)
}

func newOrchestratorEnvWithTTL(t *testing.T, jobTTL, vendorTimeout time.Duration) *orchestratorEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Vendor().Return(docauth.VendorMock).AnyTimes()

	fake := analytics.NewFake()
	m := metrics.NewWith(prometheus.NewRegistry())
	router, err := docauth.NewRouter(docauth.RouterConfig{Primary: docauth.VendorMock}, []docauth.Client{client}, fake, m)
	require.NoError(t, err)

	store := NewInMemoryStore()
	return &orchestratorEnv{
		orchestrator: NewOrchestrator(router, store, fake, m, jobTTL, vendorTimeout),
		client:       client,
		store:        store,
		fake:         fake,
	}
}

func TestDispatchCompletesJobWithVendorResult(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.client.EXPECT().
		ProofResolution(gomock.Any(), gomock.Any()).
		Return(docauth.Response{Success: true}, nil)

	ctx := context.Background()
	id, err := env.orchestrator.Dispatch(ctx, docauth.ResolutionRequest{
		Discriminator: "session-1",
		UserID:        "user-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		job, err := env.orchestrator.Poll(ctx, id)
		return err == nil && job.Status == StatusDone
	}, time.Second, 5*time.Millisecond)

	job, err := env.orchestrator.Poll(ctx, id)
	require.NoError(t, err)
	require.True(t, job.Result.Success)
}

func TestDispatchNormalizesVendorFailures(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.client.EXPECT().
		ProofResolution(gomock.Any(), gomock.Any()).
		Return(docauth.Response{}, errors.New("dial tcp: i/o timeout"))

	ctx := context.Background()
	id, err := env.orchestrator.Dispatch(ctx, docauth.ResolutionRequest{Discriminator: "session-1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := env.orchestrator.Poll(ctx, id)
		return err == nil && job.Status == StatusDone
	}, time.Second, 5*time.Millisecond)

	job, err := env.orchestrator.Poll(ctx, id)
	require.NoError(t, err)
	require.False(t, job.Result.Success)
	require.Equal(t, []string{docauth.MsgNetworkError}, job.Result.FieldErrors[docauth.FieldGeneral])
}

func TestDispatchWarnsOnUnknownVendorCodes(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.client.EXPECT().
		ProofResolution(gomock.Any(), gomock.Any()).
		Return(docauth.Response{
			Errors: map[docauth.Field][]string{
				docauth.FieldGeneral: {"some_future_code"},
			},
		}, nil)

	ctx := context.Background()
	id, err := env.orchestrator.Dispatch(ctx, docauth.ResolutionRequest{Discriminator: "session-1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := env.orchestrator.Poll(ctx, id)
		return err == nil && job.Settled()
	}, time.Second, 5*time.Millisecond)

	require.True(t, env.fake.Tracked(analytics.EventUnknownVendorCode))
}

func TestPollPendingJob(t *testing.T) {
	env := newOrchestratorEnv(t)
	started := make(chan struct{})
	release := make(chan struct{})
	env.client.EXPECT().
		ProofResolution(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, docauth.ResolutionRequest) (docauth.Response, error) {
			close(started)
			<-release
			return docauth.Response{Success: true}, nil
		})

	ctx := context.Background()
	id, err := env.orchestrator.Dispatch(ctx, docauth.ResolutionRequest{Discriminator: "session-1"})
	require.NoError(t, err)
	<-started

	job, err := env.orchestrator.Poll(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	require.Nil(t, job.Result)

	close(release)
	require.Eventually(t, func() bool {
		job, err := env.orchestrator.Poll(ctx, id)
		return err == nil && job.Status == StatusDone
	}, time.Second, 5*time.Millisecond)
}

func TestSlowVendorResultPastDeadlineSettlesExpired(t *testing.T) {
	env := newOrchestratorEnvWithTTL(t, 30*time.Millisecond, time.Second)
	env.client.EXPECT().
		ProofResolution(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, docauth.ResolutionRequest) (docauth.Response, error) {
			time.Sleep(100 * time.Millisecond)
			return docauth.Response{Success: true}, nil
		})

	// Middleware pins the request time; the completion write must not keep
	// reading the dispatch instant once the vendor finally answers.
	ctx := requestcontext.WithTime(context.Background(), time.Now())
	id, err := env.orchestrator.Dispatch(ctx, docauth.ResolutionRequest{Discriminator: "session-1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := env.store.Find(context.Background(), id)
		return err == nil && job.Settled()
	}, time.Second, 5*time.Millisecond)

	job, err := env.store.Find(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, job.Status)
	require.Nil(t, job.Result, "a result past the deadline is discarded")

	job, err = env.orchestrator.Poll(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, job.Status)
}

func TestPollSettlesOverdueJobAsExpired(t *testing.T) {
	env := newOrchestratorEnv(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.Create(
		requestcontext.WithTime(context.Background(), created),
		pendingJob("overdue", created, time.Minute),
	))

	late := requestcontext.WithTime(context.Background(), created.Add(5*time.Minute))
	job, err := env.orchestrator.Poll(late, "overdue")
	require.NoError(t, err)
	require.Equal(t, StatusExpired, job.Status)
	require.True(t, env.fake.Tracked(analytics.EventResolutionResultMissing))

	// Expiry is persisted: the vendor result arriving afterwards is refused
	// and every later poll agrees.
	err = env.store.Complete(late, "overdue", docauth.Result{Success: true})
	require.True(t, domainerrors.Is(err, domainerrors.CodeAsyncExpired))

	job, err = env.orchestrator.Poll(late, "overdue")
	require.NoError(t, err)
	require.Equal(t, StatusExpired, job.Status)
	require.Nil(t, job.Result)
}

func TestPollUnknownCorrelationID(t *testing.T) {
	env := newOrchestratorEnv(t)
	_, err := env.orchestrator.Poll(context.Background(), "never-dispatched")
	require.True(t, domainerrors.Is(err, domainerrors.CodeNotFound))
}

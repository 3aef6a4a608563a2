package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/data"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
	"github.com/sokosumi/aikido-reviewer/internal/mocks"
)

const waitTimeout = 2 * time.Second

const testFindingsReport = `{
	"schema_version": "aikido.findings.v1",
	"project": "vesting",
	"findings": [
		{
			"detector": "unchecked-datum",
			"severity": "high",
			"confidence": "likely",
			"title": "Unchecked datum field",
			"description": "Datum field used without validation",
			"module": "validators/vesting"
		}
	],
	"total": 1
}`

func manualRequest() *model.ReviewRequest {
	return &model.ReviewRequest{
		ScanMode:     model.ScanModeManual,
		AikidoReport: testFindingsReport,
		SourceFiles: map[string]string{
			"validators/vesting.ak": "validator vesting { }",
		},
	}
}

func testPaymentRequest() *model.PaymentRequest {
	return &model.PaymentRequest{
		PaymentID:               "pay-1",
		IdentifierFromPurchaser: "abcdef0123456789abcdef01",
		AgentIdentifier:         "agent-1",
		SellerVKey:              "vkey-1",
		Network:                 "Preprod",
		PaymentType:             "Web3CardanoV1",
		InputHash:               "deadbeef",
	}
}

type managerFixture struct {
	ctrl     *gomock.Controller
	store    *data.MemoryJobStore
	gateway  *mocks.MockPaymentGateway
	analyzer *mocks.MockAnalyzer
	manager  *JobManager
}

func newManagerFixture(t *testing.T, mutate func(opts *JobManagerOptions)) *managerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := data.NewMemoryJobStore()
	gateway := mocks.NewMockPaymentGateway(ctrl)
	analyzer := mocks.NewMockAnalyzer(ctrl)

	opts := JobManagerOptions{
		Store:    store,
		Gateway:  gateway,
		Router:   MustNewExecutionRouter(ExecutionRouterOptions{Config: RouterConfig{}}),
		Analyzer: analyzer,
		NewID:    func() string { return "job-1" },
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &managerFixture{
		ctrl:     ctrl,
		store:    store,
		gateway:  gateway,
		analyzer: analyzer,
		manager:  MustNewJobManager(opts),
	}
}

func (f *managerFixture) expectSubmit() {
	f.gateway.EXPECT().
		CreatePaymentRequest(gomock.Any(), gomock.Any()).
		Return(testPaymentRequest(), nil)
	f.gateway.EXPECT().
		WatchConfirmation(gomock.Any(), "pay-1", gomock.Any())
}

func TestNewJobManager_RequiredDependencies(t *testing.T) {
	assert.Panics(t, func() {
		MustNewJobManager(JobManagerOptions{})
	})
}

func TestJobManager_Submit(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.expectSubmit()

	resp, err := f.manager.Submit(context.Background(), manualRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "job-1", resp.JobID)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "pay-1", resp.Payment.PaymentID)

	job, err := f.store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateAwaitingPayment, job.State)
	assert.Equal(t, model.PaymentStatusPending, job.PaymentStatus)
	assert.Equal(t, model.BackendDefault, job.Backend)
}

func TestJobManager_Submit_ValidationFailureCreatesNoJob(t *testing.T) {
	f := newManagerFixture(t, nil)

	_, err := f.manager.Submit(context.Background(), &model.ReviewRequest{}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, f.store.Len())
}

func TestJobManager_Submit_NilRequest(t *testing.T) {
	f := newManagerFixture(t, nil)

	_, err := f.manager.Submit(context.Background(), nil, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobManager_Submit_GatewayFailureCreatesNoJob(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.gateway.EXPECT().
		CreatePaymentRequest(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Payment("payment service unavailable"))

	_, err := f.manager.Submit(context.Background(), manualRequest(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsPayment(err))
	assert.Equal(t, 0, f.store.Len())
}

func TestJobManager_Submit_DisallowedRepoHost(t *testing.T) {
	scanner := mocks.NewMockScanner(gomock.NewController(t))
	f := newManagerFixture(t, func(opts *JobManagerOptions) {
		opts.Scanner = scanner
		opts.AllowedRepoHosts = []string{"github.com"}
	})

	_, err := f.manager.Submit(context.Background(), &model.ReviewRequest{
		ScanMode: model.ScanModeAuto,
		RepoURL:  "https://forge.internal.example/org/repo",
	}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, f.store.Len())
}

func TestJobManager_Submit_PurchaserIdentifier(t *testing.T) {
	f := newManagerFixture(t, nil)

	var captured core.CreatePaymentParams
	f.gateway.EXPECT().
		CreatePaymentRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.CreatePaymentParams) (*model.PaymentRequest, error) {
			captured = params
			return testPaymentRequest(), nil
		})
	f.gateway.EXPECT().WatchConfirmation(gomock.Any(), "pay-1", gomock.Any())

	_, err := f.manager.Submit(context.Background(), manualRequest(), "")
	require.NoError(t, err)
	assert.Len(t, captured.IdentifierFromPurchaser, 24)
	require.NotNil(t, captured.InputData)
}

func TestJobManager_PaymentConfirmationExecutesJob(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.expectSubmit()

	report := testReport()
	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(report, nil)

	done := make(chan struct{})
	f.gateway.EXPECT().
		CompletePayment(gomock.Any(), "pay-1", report).
		DoAndReturn(func(context.Context, string, *model.ReviewReport) error {
			close(done)
			return nil
		})

	ctx := context.Background()
	_, err := f.manager.Submit(ctx, manualRequest(), "")
	require.NoError(t, err)

	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("job did not complete in time")
	}

	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateCompleted, job.State)
	assert.Equal(t, model.PaymentStatusCompleted, job.PaymentStatus)
	require.NotNil(t, job.Result)
	assert.Nil(t, job.Error)
	require.NotNil(t, job.ExecutionMeta)
	assert.False(t, job.ExecutionMeta.FallbackUsed)
}

func TestJobManager_DuplicateConfirmationsExecuteOnce(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.expectSubmit()

	done := make(chan struct{})
	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(testReport(), nil).
		Times(1)
	f.gateway.EXPECT().
		CompletePayment(gomock.Any(), "pay-1", gomock.Any()).
		DoAndReturn(func(context.Context, string, *model.ReviewReport) error {
			close(done)
			return nil
		})

	ctx := context.Background()
	_, err := f.manager.Submit(ctx, manualRequest(), "")
	require.NoError(t, err)

	// Confirmation delivery is at-least-once; duplicates must be no-ops.
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("job did not complete in time")
	}

	// A confirmation arriving after the terminal state is also a no-op.
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))
}

func TestJobManager_AnalyzerFailureFailsJob(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.expectSubmit()

	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Analyzer("scanner produced no findings report"))

	ctx := context.Background()
	_, err := f.manager.Submit(ctx, manualRequest(), "")
	require.NoError(t, err)
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	require.Eventually(t, func() bool {
		job, err := f.store.Get(ctx, "job-1")
		return err == nil && job.State == model.JobStateFailed
	}, waitTimeout, 10*time.Millisecond)

	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.Error)
	assert.Equal(t, "analyzer", job.Error.Kind)
	assert.Nil(t, job.Result)
}

func TestJobManager_ExecutionDeadlineFailsJob(t *testing.T) {
	f := newManagerFixture(t, func(opts *JobManagerOptions) {
		opts.ExecutionDeadline = 50 * time.Millisecond
	})
	f.expectSubmit()

	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ core.AnalyzeParams) (*model.ReviewReport, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	ctx := context.Background()
	_, err := f.manager.Submit(ctx, manualRequest(), "")
	require.NoError(t, err)
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	require.Eventually(t, func() bool {
		job, err := f.store.Get(ctx, "job-1")
		return err == nil && job.State == model.JobStateFailed
	}, waitTimeout, 10*time.Millisecond)

	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.Error)
	assert.Equal(t, "timeout", job.Error.Kind)
	assert.Nil(t, job.Result)
}

// stubConfirmations scripts the cross-process confirmation dedup guard.
type stubConfirmations struct {
	mu    sync.Mutex
	ttls  []time.Duration
	first bool
	err   error
}

func (s *stubConfirmations) MarkPaymentConfirmed(_ context.Context, _ string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls = append(s.ttls, ttl)
	return s.first, s.err
}

func TestJobManager_ConfirmationDedup(t *testing.T) {
	t.Run("first mark dispatches with configured ttl", func(t *testing.T) {
		marks := &stubConfirmations{first: true}
		f := newManagerFixture(t, func(opts *JobManagerOptions) {
			opts.Confirmations = marks
			opts.ConfirmationTTL = time.Hour
		})
		f.expectSubmit()

		f.analyzer.EXPECT().
			Analyze(gomock.Any(), gomock.Any()).
			Return(testReport(), nil)

		done := make(chan struct{})
		f.gateway.EXPECT().
			CompletePayment(gomock.Any(), "pay-1", gomock.Any()).
			DoAndReturn(func(context.Context, string, *model.ReviewReport) error {
				close(done)
				return nil
			})

		ctx := context.Background()
		_, err := f.manager.Submit(ctx, manualRequest(), "")
		require.NoError(t, err)
		require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("job did not complete in time")
		}

		require.Len(t, marks.ttls, 1)
		assert.Equal(t, time.Hour, marks.ttls[0])
	})

	t.Run("duplicate mark skips dispatch", func(t *testing.T) {
		marks := &stubConfirmations{first: false}
		f := newManagerFixture(t, func(opts *JobManagerOptions) {
			opts.Confirmations = marks
		})
		f.expectSubmit()

		ctx := context.Background()
		_, err := f.manager.Submit(ctx, manualRequest(), "")
		require.NoError(t, err)
		require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

		// Another instance already consumed the confirmation; this one
		// must not execute the job.
		job, err := f.store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, model.JobStateAwaitingPayment, job.State)
	})

	t.Run("dedup outage does not block a paid job", func(t *testing.T) {
		marks := &stubConfirmations{err: apperrors.Internal("redis down")}
		f := newManagerFixture(t, func(opts *JobManagerOptions) {
			opts.Confirmations = marks
		})
		f.expectSubmit()

		f.analyzer.EXPECT().
			Analyze(gomock.Any(), gomock.Any()).
			Return(testReport(), nil)

		done := make(chan struct{})
		f.gateway.EXPECT().
			CompletePayment(gomock.Any(), "pay-1", gomock.Any()).
			DoAndReturn(func(context.Context, string, *model.ReviewReport) error {
				close(done)
				return nil
			})

		ctx := context.Background()
		_, err := f.manager.Submit(ctx, manualRequest(), "")
		require.NoError(t, err)
		require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("job did not complete in time")
		}
	})
}

func TestJobManager_OnPaymentConfirmed_UnknownJob(t *testing.T) {
	f := newManagerFixture(t, nil)

	err := f.manager.OnPaymentConfirmed(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobManager_Status(t *testing.T) {
	t.Run("refreshes payment status while awaiting", func(t *testing.T) {
		f := newManagerFixture(t, nil)
		f.expectSubmit()

		ctx := context.Background()
		_, err := f.manager.Submit(ctx, manualRequest(), "")
		require.NoError(t, err)

		f.gateway.EXPECT().CheckStatus(gomock.Any(), "pay-1").Return("pending", nil)

		view, err := f.manager.Status(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, model.JobStateAwaitingPayment, view.State)
		assert.Equal(t, "pending", view.PaymentStatus)
	})

	t.Run("gateway failure leaves stored status", func(t *testing.T) {
		f := newManagerFixture(t, nil)
		f.expectSubmit()

		ctx := context.Background()
		_, err := f.manager.Submit(ctx, manualRequest(), "")
		require.NoError(t, err)

		f.gateway.EXPECT().
			CheckStatus(gomock.Any(), "pay-1").
			Return("", apperrors.Payment("gateway down"))

		view, err := f.manager.Status(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, view.PaymentStatus)
	})

	t.Run("unknown job", func(t *testing.T) {
		f := newManagerFixture(t, nil)
		_, err := f.manager.Status(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobManager_AutoScanRecordsSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	scanner := mocks.NewMockScanner(ctrl)

	f := newManagerFixture(t, func(opts *JobManagerOptions) {
		opts.Scanner = scanner
	})
	f.expectSubmit()

	parsed, err := model.ParseAikidoReport([]byte(testFindingsReport))
	require.NoError(t, err)

	scanner.EXPECT().
		ScanRepo(gomock.Any(), "https://github.com/org/contracts", "main", "").
		Return(&core.ScanResult{
			Report:      parsed,
			SourceFiles: map[string]string{"validators/vesting.ak": "validator vesting { }"},
		}, nil)
	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(testReport(), nil)

	done := make(chan struct{})
	f.gateway.EXPECT().
		CompletePayment(gomock.Any(), "pay-1", gomock.Any()).
		DoAndReturn(func(context.Context, string, *model.ReviewReport) error {
			close(done)
			return nil
		})

	ctx := context.Background()
	_, err = f.manager.Submit(ctx, &model.ReviewRequest{
		ScanMode: model.ScanModeAuto,
		RepoURL:  "https://github.com/org/contracts",
		RepoRef:  "main",
	}, "")
	require.NoError(t, err)
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("job did not complete in time")
	}

	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.ScanSummary)
	assert.Equal(t, "repo", job.ScanSummary.ScanMode)
	assert.Equal(t, 1, job.ScanSummary.TotalFindings)
}

func TestJobManager_ReportCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)

	f := newManagerFixture(t, func(opts *JobManagerOptions) {
		opts.Cache = cache
	})
	f.expectSubmit()

	cacheKey := data.ReportCacheKey("deadbeef")
	cache.EXPECT().Get(gomock.Any(), cacheKey).Return(nil, apperrors.NotFound("cache miss"))
	cache.EXPECT().Set(gomock.Any(), cacheKey, gomock.Any(), gomock.Any()).Return(nil)

	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(testReport(), nil)

	done := make(chan struct{})
	f.gateway.EXPECT().
		CompletePayment(gomock.Any(), "pay-1", gomock.Any()).
		DoAndReturn(func(context.Context, string, *model.ReviewReport) error {
			close(done)
			return nil
		})

	ctx := context.Background()
	_, err := f.manager.Submit(ctx, manualRequest(), "")
	require.NoError(t, err)
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("job did not complete in time")
	}
}

func TestJobManager_ArchivesTerminalJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mocks.NewMockJobArchive(ctrl)

	f := newManagerFixture(t, func(opts *JobManagerOptions) {
		opts.Archive = archive
	})
	f.expectSubmit()

	f.analyzer.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(testReport(), nil)
	f.gateway.EXPECT().
		CompletePayment(gomock.Any(), "pay-1", gomock.Any()).
		Return(nil)

	done := make(chan struct{})
	archive.EXPECT().
		ArchiveJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *model.Job) error {
			assert.Equal(t, model.JobStateCompleted, job.State)
			close(done)
			return nil
		})

	ctx := context.Background()
	_, err := f.manager.Submit(ctx, manualRequest(), "")
	require.NoError(t, err)
	require.NoError(t, f.manager.OnPaymentConfirmed(ctx, "job-1"))

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("job was not archived in time")
	}
}

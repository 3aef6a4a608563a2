// Package mocks provides mock implementations for testing the reviewer job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core ports. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockGateway := mocks.NewMockPaymentGateway(ctrl)
//	mockGateway.EXPECT().CheckStatus(gomock.Any(), gomock.Any()).Return("pending", nil)
package mocks

// Generate mock for PaymentGateway interface from internal/core package.
// This creates MockPaymentGateway with methods for all PaymentGateway interface methods:
// CreatePaymentRequest, CheckStatus, CompletePayment, WatchConfirmation
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=payment_gateway_mock.go github.com/sokosumi/aikido-reviewer/internal/core PaymentGateway

// Generate mock for Analyzer interface from internal/core package.
// This creates MockAnalyzer with methods for all Analyzer interface methods:
// Analyze
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=analyzer_mock.go github.com/sokosumi/aikido-reviewer/internal/core Analyzer

// Generate mock for Scanner interface from internal/core package.
// This creates MockScanner with methods for all Scanner interface methods:
// ScanSourceFiles, ScanRepo
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=scanner_mock.go github.com/sokosumi/aikido-reviewer/internal/core Scanner

// Generate mock for WorkerInvoker interface from internal/core package.
// This creates MockWorkerInvoker with methods for all WorkerInvoker interface methods:
// Invoke
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=worker_invoker_mock.go github.com/sokosumi/aikido-reviewer/internal/core WorkerInvoker

// Generate mock for LLMClient interface from internal/core package.
// This creates MockLLMClient with methods for all LLMClient interface methods:
// Complete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=llm_client_mock.go github.com/sokosumi/aikido-reviewer/internal/core LLMClient

// Generate mock for JobArchive interface from internal/core package.
// This creates MockJobArchive with methods for all JobArchive interface methods:
// ArchiveJob, GetArchivedJob
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_archive_mock.go github.com/sokosumi/aikido-reviewer/internal/core JobArchive

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/sokosumi/aikido-reviewer/internal/core CacheRepository

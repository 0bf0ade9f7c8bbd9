// Package mocks provides mock implementations for testing the videobot job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Create, GetByID, MarkSubmitted, MarkGenerating, Complete, Fail, Cancel,
// ListByUser, ActiveForUser, ListResumable, Stats
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/openclip/videobot/internal/core JobRepository

// Generate mock for ReaperRepository interface from internal/core package.
// This creates MockReaperRepository with methods for all ReaperRepository interface methods:
// FailTimedOutJobs, DeleteOldJobs
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/openclip/videobot/internal/core ReaperRepository

// Generate mock for SessionStore interface from internal/core package.
// This creates MockSessionStore with methods for all SessionStore interface methods:
// Get, Save, Delete, Update
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=session_store_mock.go github.com/openclip/videobot/internal/core SessionStore

// Generate mock for DeliveryNotifier interface from internal/core package.
// This creates MockDeliveryNotifier with methods for all DeliveryNotifier interface methods:
// NotifyCompleted, NotifyFailed, NotifyCancelled
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=delivery_notifier_mock.go github.com/openclip/videobot/internal/core DeliveryNotifier

// Generate mock for ProviderGateway interface from internal/core package.
// This creates MockProviderGateway with methods for all ProviderGateway interface methods:
// Submit, Poll
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=provider_gateway_mock.go github.com/openclip/videobot/internal/core ProviderGateway

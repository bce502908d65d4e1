// Package mocks provides mock implementations of the repository and port interfaces.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks.
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockJobPostingRepository(ctrl)
//	jobs.EXPECT().GetByID(gomock.Any(), "job-1").Return(job, nil)
package mocks

// Create, GetByID, List, Stats, SetMatchCount
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_posting_repository_mock.go github.com/reelapps/reelhunter/internal/core JobPostingRepository

// Set, Get, Delete, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/reelapps/reelhunter/internal/core CacheRepository

// Invoke
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=function_invoker_mock.go github.com/reelapps/reelhunter/internal/ports FunctionInvoker

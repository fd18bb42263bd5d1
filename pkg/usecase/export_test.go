package usecase

import "github.com/secmon-lab/grcore/pkg/domain/interfaces"

// RepositoryOf exposes the repository for test assertions
func RepositoryOf(uc *UseCases) interfaces.Repository {
	return uc.repo
}

var RetryOnConflict = retryOnConflict

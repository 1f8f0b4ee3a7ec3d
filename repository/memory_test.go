package repository

import "testing"

func TestMemoryProductRepository(t *testing.T) {
	runProductRepositorySuite(t, func(*testing.T) ProductRepository { return NewMemoryProductRepository() })
}

func TestMemoryCategoryRepository(t *testing.T) {
	runCategoryRepositorySuite(t, NewMemoryCategoryRepository())
}

func TestMemoryMovementRepository(t *testing.T) {
	runMovementRepositorySuite(t, NewMemoryMovementRepository())
}

func TestMemoryUserRepository(t *testing.T) {
	runUserRepositorySuite(t, NewMemoryUserRepository())
}

package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances
type Repositories struct {
	User   UserRepository
	Report ReportRepository
	Carbon CarbonRepository
}

// NewRepositories creates all repositories on one database handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Report: NewReportRepository(db),
		Carbon: NewCarbonRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetReportRepository returns the report repository instance
func (f *Factory) GetReportRepository() ReportRepository {
	return f.GetRepositories().Report
}

// GetCarbonRepository returns the carbon emission repository instance
func (f *Factory) GetCarbonRepository() CarbonRepository {
	return f.GetRepositories().Carbon
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// SetGlobalRepositoriesForTesting swaps the repository set behind the global
// factory. Tests inject in-memory doubles through this hook.
func SetGlobalRepositoriesForTesting(repos *Repositories) {
	globalFactory = &Factory{repos: repos}
	globalFactory.once.Do(func() {})
}

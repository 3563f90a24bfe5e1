package repositories

import (
	"github.com/blogem/contact-guard/config"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	EventLog EventLogRepository
}

// NewRepositories creates and initializes all repositories
func NewRepositories(cfg config.EventLogConfig) *Repositories {
	return &Repositories{
		EventLog: NewEventLogRepository(cfg.Path, cfg.MaxSize, cfg.KeepLines),
	}
}

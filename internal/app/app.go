// Package app wires the domain services over one storage backend.
package app

import (
	"context"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/analytics"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/assessment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/backup"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/settings"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

// Backend is everything the services need from storage. Both the Postgres
// store and the in-memory store satisfy it.
type Backend interface {
	users.Store
	catalog.Store
	content.Store
	enrollment.Store
	payment.Store
	assessment.Store
	analytics.Store
	audit.Store
	settings.Store
	backup.Dumper
	Ping(ctx context.Context) error
}

// Services is the assembled application.
type Services struct {
	Backend     Backend
	Tokens      *auth.TokenService
	Audit       *audit.Trail
	Users       *users.Service
	Catalog     *catalog.Service
	Content     *content.Service
	Enrollments *enrollment.Service
	Payments    *payment.Service
	Assessments *assessment.Service
	Analytics   *analytics.Service
	Settings    *settings.Service
	Backups     *backup.Service
}

// New builds every service over backend. backupDir holds backup archives.
func New(backend Backend, tokens *auth.TokenService, backupDir string) *Services {
	trail := audit.NewTrail(backend)
	return &Services{
		Backend:     backend,
		Tokens:      tokens,
		Audit:       trail,
		Users:       users.NewService(backend, tokens, trail),
		Catalog:     catalog.NewService(backend, backend, trail),
		Content:     content.NewService(backend, backend, backend, trail),
		Enrollments: enrollment.NewService(backend, backend, backend, trail),
		Payments:    payment.NewService(backend, backend, trail),
		Assessments: assessment.NewService(backend, backend, backend, backend, trail),
		Analytics:   analytics.NewService(backend),
		Settings:    settings.NewService(backend, trail),
		Backups:     backup.NewService(backupDir, backend, trail),
	}
}

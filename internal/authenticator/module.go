package authenticator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/engine"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/inbound"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/outbound/mq"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/outbound/vault"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/registry"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/usecase"
	"github.com/shandysiswandi/otpkeep/internal/pkg/blob"
	"github.com/shandysiswandi/otpkeep/internal/pkg/clock"
	"github.com/shandysiswandi/otpkeep/internal/pkg/config"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/messaging"
	"github.com/shandysiswandi/otpkeep/internal/pkg/mfa"
	"github.com/shandysiswandi/otpkeep/internal/pkg/router"
	"github.com/shandysiswandi/otpkeep/internal/pkg/uid"
	"github.com/shandysiswandi/otpkeep/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context
	Blob       blob.Blob                  `validate:"required"`
	Encryptor  mfa.Encryptor              `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// Module owns the long-lived parts of the authenticator.
type Module struct {
	registry *registry.Registry
	engine   *engine.Engine
}

// New validates dep, loads the account registry and registers the HTTP routes.
func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	ctx := dep.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	store := vault.New(dep.Blob, dep.Encryptor, dep.Instrument)

	reg := registry.New(store, dep.Validator, dep.Clock, registry.Config{
		MaxAttempts: dep.Config.GetInt("registry.max_attempts"),
		RetryDelay:  dep.Config.GetMillisecond("registry.retry_delay_ms"),
	})
	if err := reg.Load(ctx); err != nil {
		if errors.Is(err, registry.ErrManifestCorrupt) {
			slog.ErrorContext(ctx, "account manifest is corrupt, starting with no accounts", "error", err)
		} else {
			slog.ErrorContext(ctx, "failed to read account manifest, starting with no accounts", "error", err)
		}
	}

	eng := engine.New(reg, store, dep.Clock, dep.Goroutine, dep.Instrument, engine.Config{
		Quantum: dep.Config.GetMillisecond("engine.quantum_ms"),
	})
	reg.OnChange(eng.Nudge)

	uc := usecase.New(usecase.Dependency{
		Secrets:    store,
		Accounts:   reg,
		Messaging:  mq.NewMessaging(dep.Messaging, dep.Instrument),
		Engine:     eng,
		Validator:  dep.Validator,
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return &Module{registry: reg, engine: eng}, nil
}

// Run drives the code engine until ctx is done.
func (m *Module) Run(ctx context.Context) error {
	return m.engine.Run(ctx)
}

// Recovered reports whether the registry started from an empty list after
// the stored manifest could not be read.
func (m *Module) Recovered() bool {
	return m.registry.Recovered()
}

// Flush writes the registry one last time. It is skipped after a recovered
// load so the unreadable manifest is only replaced by an explicit mutation.
func (m *Module) Flush(ctx context.Context) error {
	if m.registry.Recovered() {
		slog.WarnContext(ctx, "skipping account manifest flush after recovered load")
		return nil
	}

	return m.registry.Save(ctx)
}

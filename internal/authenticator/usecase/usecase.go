package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/engine"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/pkg/clock"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/uid"
	"github.com/shandysiswandi/otpkeep/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoSecret interface {
	Put(ctx context.Context, ref string, secret []byte) error
	Delete(ctx context.Context, ref string) error
}

type repoAccount interface {
	Accounts() []entity.Account
	Selected() (entity.Account, int, bool)
	Append(ctx context.Context, acc entity.Account) (int, error)
	Remove(ctx context.Context, index int) (entity.Account, error)
	Select(ctx context.Context, index int) (int, error)
}

type repoMessaging interface {
	PublishAccountEnrolled(ctx context.Context, msg AccountEvent) error
	PublishAccountRemoved(ctx context.Context, msg AccountEvent) error
	PublishSelectionChanged(ctx context.Context, msg SelectionEvent) error
}

// AccountEvent describes an enrolled or removed account. It never carries
// secret material.
type AccountEvent struct {
	Index   int
	Account entity.Account
	At      time.Time
}

type SelectionEvent struct {
	Selected int
	At       time.Time
}

type codeEngine interface {
	State() engine.State
	Subscribe(ctx context.Context) <-chan engine.State
}

// Usecase implements the account and code workflows behind the HTTP API.
type Usecase struct {
	secrets   repoSecret
	accounts  repoAccount
	events    repoMessaging
	engine    codeEngine
	validator validator.Validator
	uuid      uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

type Dependency struct {
	Secrets    repoSecret
	Accounts   repoAccount
	Messaging  repoMessaging
	Engine     codeEngine
	Validator  validator.Validator
	UUID       uid.StringID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

// New wires a Usecase from its dependencies.
func New(dep Dependency) *Usecase {
	return &Usecase{
		secrets:   dep.Secrets,
		accounts:  dep.Accounts,
		events:    dep.Messaging,
		engine:    dep.Engine,
		validator: dep.Validator,
		uuid:      dep.UUID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("authenticator.usecase").Start(ctx, name)
}

package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpkeep/internal/authenticator"
)

func (a *App) initModules() {
	mod, err := authenticator.New(authenticator.Dependency{
		Ctx:        a.ctx,
		Blob:       a.blob,
		Encryptor:  a.encryptor,
		Messaging:  a.messaging,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Config:     a.config,
		Instrument: a.ins,
		UUID:       a.uuid,
		Clock:      a.clock,
		Validator:  a.validator,
	})
	if err != nil {
		slog.Error("failed to init module authenticator", "error", err)
		os.Exit(1)
	}

	a.authenticator = mod
}

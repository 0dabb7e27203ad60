package app

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/otpkeep/internal/authenticator"
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

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID

	// resources
	blob      blob.Blob
	keys      mfa.KeyProvider
	encryptor mfa.Encryptor
	messaging messaging.Publisher

	// modules
	authenticator *authenticator.Module

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initKeys()
	app.initBlob()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}

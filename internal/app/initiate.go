package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/rs/cors"
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
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	keySourceStatic     = "static"
	keySourceFile       = "file"
	keySourcePassphrase = "passphrase"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator
}

func (a *App) initKeys() {
	source := strings.ToLower(strings.TrimSpace(a.config.GetString("vault.key.source")))

	switch source {
	case keySourceStatic:
		rawKey := a.config.GetBinary("vault.key.static")
		if len(rawKey) < 32 {
			slog.Error("failed to init vault key, static key must decode to at least 32 bytes")
			os.Exit(1)
		}
		a.keys = mfa.StaticKeyProvider{KeyBytes: rawKey}
	case "", keySourceFile:
		a.keys = mfa.NewFileKeyProvider(a.config.GetString("vault.key.file"))
	case keySourcePassphrase:
		passphrase := a.config.GetString("vault.key.passphrase")
		if passphrase == "" {
			slog.Error("failed to init vault key, passphrase is empty")
			os.Exit(1)
		}
		a.keys = mfa.NewPassphraseKeyProvider(passphrase, a.config.GetString("vault.key.salt_file"))
	default:
		slog.Error("failed to init vault key, unknown source", "source", source)
		os.Exit(1)
	}

	enc, err := mfa.NewEncryptor(a.config.GetString("vault.cipher"), a.keys)
	if err != nil {
		slog.Error("failed to init vault encryptor", "error", err)
		os.Exit(1)
	}
	a.encryptor = enc
}

func (a *App) initBlob() {
	driver := strings.ToLower(strings.TrimSpace(a.config.GetString("vault.driver")))

	opts, err := a.blobOptions(driver)
	if err == nil {
		a.blob, err = blob.NewFromDriver(a.ctx, driver, opts)
	}
	if err != nil {
		slog.Error("failed to init vault storage", "driver", driver, "error", err)
		os.Exit(1)
	}
}

func (a *App) blobOptions(driver string) (blob.FactoryOptions, error) {
	str := func(key string) string { return strings.TrimSpace(a.config.GetString(key)) }

	opts := blob.FactoryOptions{
		Prefix: str("vault.prefix"),
		Bucket: str("vault.bucket"),
		File:   blob.FileOptions{Dir: a.config.GetString("vault.file.dir")},
		Redis:  blob.RedisOptions{URL: str("vault.redis.url")},
		S3: blob.S3Options{
			Region:       str("vault.s3.region"),
			Endpoint:     str("vault.s3.endpoint"),
			AccessKey:    str("vault.s3.access_key"),
			SecretKey:    str("vault.s3.secret_key"),
			SessionToken: str("vault.s3.session_token"),
			UsePathStyle: a.config.GetBool("vault.s3.use_path_style"),
		},
		MinIO: blob.MinIOOptions{
			Region:       str("vault.minio.region"),
			Endpoint:     str("vault.minio.endpoint"),
			AccessKey:    str("vault.minio.access_key"),
			SecretKey:    str("vault.minio.secret_key"),
			SessionToken: str("vault.minio.session_token"),
			UseSSL:       a.config.GetBool("vault.minio.use_ssl"),
		},
	}

	if driver == blob.DriverGCS {
		client, err := a.gcsClient(str("vault.gcs.credentials_file"), str("vault.gcs.endpoint"))
		if err != nil {
			return opts, err
		}
		opts.GCS = blob.GCSOptions{Client: client}
	}

	return opts, nil
}

// gcsClient returns nil when no option is set so the blob factory falls back
// to application default credentials.
func (a *App) gcsClient(credentialsFile, endpoint string) (*gcs.Client, error) {
	var copts []option.ClientOption
	if a.config.GetBool("vault.gcs.without_auth") {
		copts = append(copts, option.WithoutAuthentication())
	}
	if credentialsFile != "" {
		// #nosec G304 -- path is from trusted config file.
		raw, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, raw, gcs.ScopeReadWrite)
		if err != nil {
			return nil, fmt.Errorf("parse gcs credentials: %w", err)
		}
		copts = append(copts, option.WithCredentials(creds))
	}
	if endpoint != "" {
		copts = append(copts, option.WithEndpoint(endpoint))
	}
	if len(copts) == 0 {
		return nil, nil
	}

	return gcs.NewClient(a.ctx, copts...)
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	nsqCfg := nsq.NewConfig()
	nsqCfg.DialTimeout = a.config.GetSecond("messaging.nsq.dial_timeout_seconds")
	nsqCfg.WriteTimeout = a.config.GetSecond("messaging.nsq.write_timeout_seconds")

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:   a.config.GetString("messaging.nsq.producer_addr"),
			ProducerConfig: nsqCfg,
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers:                a.config.GetArray("messaging.kafka.brokers"),
			BatchTimeout:           a.config.GetMillisecond("messaging.kafka.batch_timeout_ms"),
			AllowAutoTopicCreation: a.config.GetBool("messaging.kafka.allow_auto_topic_creation"),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID: a.config.GetString("messaging.pubsub.project_id"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "driver", driver, "error", err)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
		Token:      a.config.GetString("app.server.http.token"),
	})
	a.router.HandleRaw(http.MethodGet, "/health", http.HandlerFunc(a.health))

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	recovered := a.authenticator != nil && a.authenticator.Recovered()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":             "ok",
		"manifest_recovered": recovered,
	}); err != nil {
		slog.ErrorContext(r.Context(), "failed to write health response", "error", err)
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Registry",
			fn: func(ctx context.Context) error {
				return a.authenticator.Flush(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Blob",
			fn: func(context.Context) error {
				return a.blob.Close()
			},
		},
		{
			name: "KeyProvider",
			fn: func(context.Context) error {
				if c, ok := a.keys.(io.Closer); ok {
					return c.Close()
				}

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
	}
}

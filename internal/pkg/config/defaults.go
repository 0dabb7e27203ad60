package config

// Defaults holds the value of every key the application reads. A config file
// or an environment variable overrides them one key at a time.
var Defaults = map[string]any{
	"app.name": "otpkeep",
	"app.tz":   "UTC",

	"app.server.http.address":                     "127.0.0.1:8765",
	"app.server.http.read_timeout_seconds":        10,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       0,
	"app.server.http.idle_timeout_seconds":        60,
	"app.server.http.token":                       "",
	"app.server.cors":                             "http://localhost,http://127.0.0.1",
	"app.server.max_goroutine":                    16,
	"app.server.http.allowed_networks":            "127.0.0.0/8,::1/128",
	"app.server.http.trust_forwarded":             false,
	"app.server.read_only":                        false,

	"instrument.enabled":                 false,
	"instrument.service_name":            "otpkeep",
	"instrument.service_version":         "dev",
	"instrument.env":                     "local",
	"instrument.otlp_endpoint":           "localhost:4317",
	"instrument.otlp_secure":             false,
	"instrument.trace_sample_ratio":      1.0,
	"instrument.metric_interval_seconds": 15,
	"instrument.log_level":               "info",
	"instrument.log_mask_fields":         "secret,uri,code,token,access_token,passphrase,authorization",

	"vault.driver":         "file",
	"vault.cipher":         "xchacha20-poly1305",
	"vault.prefix":         "otpkeep",
	"vault.bucket":         "",
	"vault.file.dir":       "./data",
	"vault.redis.url":      "redis://localhost:6379/0",
	"vault.key.source":     "file",
	"vault.key.static":     "",
	"vault.key.file":       "./data/device.key",
	"vault.key.passphrase": "",
	"vault.key.salt_file":  "./data/device.salt",

	"vault.s3.region":         "",
	"vault.s3.endpoint":       "",
	"vault.s3.access_key":     "",
	"vault.s3.secret_key":     "",
	"vault.s3.session_token":  "",
	"vault.s3.use_path_style": false,

	"vault.minio.endpoint":      "localhost:9000",
	"vault.minio.region":        "",
	"vault.minio.access_key":    "",
	"vault.minio.secret_key":    "",
	"vault.minio.session_token": "",
	"vault.minio.use_ssl":       false,

	"vault.gcs.credentials_file": "",
	"vault.gcs.endpoint":         "",
	"vault.gcs.without_auth":     false,

	"messaging.driver":                          "",
	"messaging.nsq.producer_addr":               "127.0.0.1:4150",
	"messaging.nsq.dial_timeout_seconds":        1,
	"messaging.nsq.write_timeout_seconds":       1,
	"messaging.nats.url":                        "nats://127.0.0.1:4222",
	"messaging.nats.name":                       "otpkeep",
	"messaging.nats.max_reconnects":             60,
	"messaging.nats.timeout_seconds":            2,
	"messaging.nats.reconnect_wait_seconds":     2,
	"messaging.nats.retry_on_failed_connect":    true,
	"messaging.kafka.brokers":                   "127.0.0.1:9092",
	"messaging.kafka.batch_timeout_ms":          10,
	"messaging.kafka.allow_auto_topic_creation": false,
	"messaging.pubsub.project_id":               "",

	"engine.quantum_ms": 250,

	"registry.max_attempts":   8,
	"registry.retry_delay_ms": 50,
}

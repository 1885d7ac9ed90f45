// Package config defines the job configuration model for the song-play ETL
// and the loaders that populate it.
//
// A job is read from a YAML, JSON or TOML file with viper. Every key has a
// default and can be overridden from the environment using the ETL_ prefix
// and underscores for nesting, e.g.:
//
//	ETL_OUTPUT=s3a://my-bucket/lake/
//	ETL_STORAGE_KIND=sqlite
//	ETL_RUNTIME_READER_WORKERS=16
//
// Example (trimmed):
//
//	job: sparkify
//	input: s3a://udacity-dend/
//	output: s3a://my-bucket/lake/
//	write_data: true
//	storage:
//	  kind: parquet
//
// Storage credentials are not part of the job file. They live in a separate
// INI file (see LoadCredentials) and are handed to the storage clients
// explicitly.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Job is the top-level configuration for one ETL run.
type Job struct {
	// Job names the run for metrics and logs.
	Job string `mapstructure:"job"`

	// Input is the root URL holding song_data/ and log_data/.
	Input string `mapstructure:"input"`

	// Output is the root URL under which the table directories are written
	// (and from which songs_table is read back).
	Output string `mapstructure:"output"`

	// WriteData disables persistence when false; derived tables are then only
	// shown.
	WriteData bool `mapstructure:"write_data"`

	// Show is the number of rows printed per derived table. Zero disables the
	// preview unless WriteData is false, where DefaultShowRows is used.
	Show int `mapstructure:"show"`

	// Timezone is the IANA zone used for the calendar fields of the time and
	// songplays tables.
	Timezone string `mapstructure:"timezone"`

	// Credentials is the path of the INI credential file.
	Credentials string `mapstructure:"credentials"`

	Storage     Storage     `mapstructure:"storage"`
	ObjectStore ObjectStore `mapstructure:"object_store"`
	Runtime     Runtime     `mapstructure:"runtime"`
	Metrics     Metrics     `mapstructure:"metrics"`
	Log         Log         `mapstructure:"log"`

	// Trace enables the stdout span exporter.
	Trace bool `mapstructure:"trace"`
}

// Storage selects where tables are written.
type Storage struct {
	// Kind is one of "parquet", "postgres", "sqlite", "mssql".
	Kind string `mapstructure:"kind"`

	// DSN is the connection string for SQL kinds.
	DSN string `mapstructure:"dsn"`

	// Schema optionally qualifies SQL table names, e.g. "lake".
	Schema string `mapstructure:"schema"`
}

// ObjectStore carries client options shared by the remote object stores.
type ObjectStore struct {
	Region string `mapstructure:"region"`

	// Endpoint overrides the service endpoint (S3-compatible gateways, MinIO).
	Endpoint  string `mapstructure:"endpoint"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PathStyle bool   `mapstructure:"path_style"`

	// GCSCredentialsFile is a service-account JSON key for gs:// URLs. Empty
	// means application default credentials.
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
}

// Runtime controls internal parallelism.
type Runtime struct {
	ReaderWorkers int `mapstructure:"reader_workers"`
	WriterWorkers int `mapstructure:"writer_workers"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of "none", "pushgateway", "datadog".
	Backend        string `mapstructure:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultShowRows is the preview size used in inspect-only runs.
const DefaultShowRows = 20

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ETL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("job", "sparkify")
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("write_data", true)
	v.SetDefault("show", 0)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("credentials", "dl.cfg")

	v.SetDefault("storage.kind", "parquet")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.schema", "")

	v.SetDefault("object_store.region", "us-west-2")
	v.SetDefault("object_store.endpoint", "")
	v.SetDefault("object_store.use_ssl", true)
	v.SetDefault("object_store.path_style", false)
	v.SetDefault("object_store.gcs_credentials_file", "")

	v.SetDefault("runtime.reader_workers", 8)
	v.SetDefault("runtime.writer_workers", 4)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("trace", false)
}

// Load reads the job file at path (optional: an empty path uses defaults and
// the environment only) and returns the resulting Job.
func Load(path string) (Job, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Job{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var j Job
	if err := v.Unmarshal(&j); err != nil {
		return Job{}, fmt.Errorf("config: decode: %w", err)
	}
	j.Input = ensureTrailingSlash(j.Input)
	j.Output = ensureTrailingSlash(j.Output)
	return j, nil
}

// ShowRows returns the effective preview size.
func (j Job) ShowRows() int {
	if j.Show > 0 {
		return j.Show
	}
	if !j.WriteData {
		return DefaultShowRows
	}
	return 0
}

func ensureTrailingSlash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrBackendUnsupported is returned for a target datastore, or a source
// dialect, that has no implementation. There is never a fallback.
var ErrBackendUnsupported = errors.New("backend unsupported")

const (
	// TargetFile answers queries from flat files under URL/Name
	TargetFile = "file"

	// TargetPostgres renders Postgres SQL, connecting to the database is the
	// caller's job
	TargetPostgres = "postgres"

	// TargetOracle is recognized, but not implemented
	TargetOracle = "oracle"
)

const (
	DialectANSI   = "ansi"
	DialectOracle = "oracle"
)

const (
	OutputTable = "table"
	OutputCSV   = "csv"
)

// Config is built once and handed to the entry point, nothing is persisted
// between two runs
type Config struct {
	InputSQLType        string `yaml:"input_sql_type"`
	TargetDatastoreType string `yaml:"target_datastore_type"`
	TargetDatastoreURL  string `yaml:"target_datastore_url"`
	TargetDatastoreName string `yaml:"target_datastore_name"`
	LogLevel            string `yaml:"log_level"`
	Output              string `yaml:"output"`
}

func Default() *Config {
	return &Config{
		InputSQLType:        DialectANSI,
		TargetDatastoreType: TargetFile,
		TargetDatastoreURL:  ".",
		TargetDatastoreName: "",
		LogLevel:            "warn",
		Output:              OutputTable,
	}
}

// Load reads a YAML document, keys that are absent keep their default
func Load(path string) (*Config, error) {
	data, e := os.ReadFile(path)
	if e != nil {
		return nil, fmt.Errorf("config(%s): %w", path, e)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	if e := yaml.Unmarshal(data, c); e != nil {
		return nil, fmt.Errorf("config: %w", e)
	}
	c.normalize()
	if e := c.Validate(); e != nil {
		return nil, e
	}
	return c, nil
}

func (self *Config) normalize() {
	self.InputSQLType = strings.ToLower(strings.TrimSpace(self.InputSQLType))
	self.TargetDatastoreType = strings.ToLower(strings.TrimSpace(self.TargetDatastoreType))
	self.Output = strings.ToLower(strings.TrimSpace(self.Output))
}

func (self *Config) Validate() error {
	self.normalize()

	switch self.TargetDatastoreType {
	case TargetFile, TargetPostgres:
	default:
		return fmt.Errorf("config: %w: target datastore %q", ErrBackendUnsupported, self.TargetDatastoreType)
	}

	switch self.InputSQLType {
	case DialectANSI, DialectOracle:
	default:
		return fmt.Errorf("config: %w: input sql type %q", ErrBackendUnsupported, self.InputSQLType)
	}

	switch self.Output {
	case OutputTable, OutputCSV:
	default:
		return fmt.Errorf("config: unknown output %q", self.Output)
	}

	if _, e := logrus.ParseLevel(self.LogLevel); e != nil {
		return fmt.Errorf("config: %w", e)
	}
	return nil
}

// Level is the log level, warn when it can not be parsed
func (self *Config) Level() logrus.Level {
	l, e := logrus.ParseLevel(self.LogLevel)
	if e != nil {
		return logrus.WarnLevel
	}
	return l
}

// Root is the directory flat file tables are fetched from
func (self *Config) Root() string {
	url := self.TargetDatastoreURL
	if url == "" {
		url = "."
	}
	if self.TargetDatastoreName == "" {
		return url
	}
	return filepath.Join(url, self.TargetDatastoreName)
}

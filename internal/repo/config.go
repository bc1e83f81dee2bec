package repo

import (
	"time"
)

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendMongo  Backend = "mongo"
	BackendSQL    Backend = "sql"
)

type Config struct {
	Backend Backend `yaml:"backend" validate:"omitempty,oneof=memory mongo sql"`

	Memory MemoryConfig `yaml:"memory"`
	Mongo  MongoConfig  `yaml:"mongo"`
	SQL    SQLConfig    `yaml:"sql"`
}

type MemoryConfig struct {
	// Dir holds one <source>.json per repository; empty keeps data in memory only.
	Dir          string        `yaml:"dir"`
	SaveInterval time.Duration `yaml:"saveInterval"`
}

type MongoConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	Database string `yaml:"database"`

	Auth struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`

	Pool struct {
		MinSize uint64 `yaml:"minSize"`
		MaxSize uint64 `yaml:"maxSize"`
	} `yaml:"pool"`
}

type SQLConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	KeyColumn    string `yaml:"keyColumn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

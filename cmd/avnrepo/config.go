package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/carlfranklin/avnrepo/internal/api"
	"github.com/carlfranklin/avnrepo/internal/repo"
	"github.com/carlfranklin/avnrepo/pkg/environment"
	"github.com/carlfranklin/avnrepo/pkg/errors"
)

const envVariable = "AVNREPO_ENV"

type Config struct {
	Environment environment.Env `yaml:"environment"`
	API         api.Config      `yaml:"api"`
	Repo        repo.Config     `yaml:"repo"`
}

type flags struct {
	config string
	env    string
}

func parseFlags(args []string) (flags, error) {
	var f flags

	fs := flag.NewFlagSet("avnrepo", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "config.yaml", "path to config file")
	fs.StringVar(&f.env, "env", "", "environment (dev, prod)")

	err := fs.Parse(args)
	return f, err
}

// loadConfig reads the yaml config, expanding ${VARS} from the process
// environment and an optional .env file. The environment is taken from the
// -env flag, then AVNREPO_ENV, then the file.
func loadConfig(f flags) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.WrapFail(err, "load .env")
	}

	path, err := filepath.Abs(f.config)
	if err != nil {
		return nil, errors.WrapFail(err, "build path to config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFailf(err, "read %q", f.config)
	}

	var cfg Config
	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg)
	if err != nil {
		return nil, errors.WrapFail(err, "parse yaml")
	}

	if raw, ok := os.LookupEnv(envVariable); ok {
		cfg.Environment = environment.FromString(raw)
	}
	if f.env != "" {
		cfg.Environment = environment.FromString(f.env)
	}

	err = validator.New().Struct(cfg)
	if err != nil {
		return nil, errors.WrapFail(err, "validate config")
	}

	return &cfg, nil
}

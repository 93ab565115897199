package poolcfg

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	jsonpkg "encoding/json"
)

// LoadFile reads and parses a config file, dispatching on its extension.
// Grounded on original_source/src/config/loader.rs's load_config.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("poolcfg: read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".json"):
		err = jsonpkg.Unmarshal(contents, &cfg)
	case strings.HasSuffix(path, ".toml"):
		err = toml.Unmarshal(contents, &cfg)
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		err = yaml.Unmarshal(contents, &cfg)
	default:
		return Config{}, fmt.Errorf("poolcfg: config file must be JSON, YAML, or TOML format")
	}
	if err != nil {
		return Config{}, fmt.Errorf("poolcfg: parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnvironmentOverrides overlays RUSTPOOL_-prefixed environment
// variables on top of cfg, field by field, leaving a field untouched when
// its environment variable is unset or fails to parse for that field's
// type. There is no generic struct/env-override library in the example
// pack, so this walks the struct with reflection directly (DESIGN.md
// justifies the stdlib-only choice here).
//
// Grounded on original_source/src/config/loader.rs's
// load_environment_overrides, which performs the same per-field overlay
// by hand against the `config` crate's Environment source.
func ApplyEnvironmentOverrides(cfg Config) Config {
	v := reflect.ValueOf(&cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envName := envPrefix + strings.ToUpper(field.Tag.Get("json"))
		raw, ok := os.LookupEnv(envName)
		if !ok || raw == "" {
			continue
		}
		fv := v.Field(i)
		applyEnvValue(fv, field.Type, raw)
	}
	return cfg
}

func applyEnvValue(fv reflect.Value, ft reflect.Type, raw string) {
	switch ft.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		if parsed, err := strconv.ParseBool(raw); err == nil {
			fv.SetBool(parsed)
		}
	case reflect.Int, reflect.Int64:
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			fv.SetInt(parsed)
		}
	case reflect.Uint16, reflect.Uint64, reflect.Uint:
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			fv.SetUint(parsed)
		}
	case reflect.Float64:
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			fv.SetFloat(parsed)
		}
	}
}

// ApplyRuntimeOverrides fills in fields original_source computes rather
// than reads (load_config_overrides): Threads <= 0 becomes
// runtime.NumCPU().
func ApplyRuntimeOverrides(cfg Config) Config {
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	return cfg
}

// isProduction mirrors original_source/src/util/mod.rs's is_production:
// production is the default, and only setting RUSTPOOL_DEV to a non-empty
// value opts a process out of it.
func isProduction() bool {
	return os.Getenv("RUSTPOOL_DEV") == ""
}

// Validate panics on an invalid configuration, matching
// original_source/src/config/loader.rs's assert_valid: a pool with a
// broken config should never finish starting up.
func Validate(cfg Config) {
	if cfg.AllowSelfSelect && isProduction() {
		panic("poolcfg: template self-select is not enabled for production use yet")
	}
	if cfg.Threads <= 0 {
		panic(fmt.Sprintf("poolcfg: number of threads is invalid: %d", cfg.Threads))
	}
	if len(cfg.PoolListenHost) > hostMaxSize {
		panic(fmt.Sprintf("poolcfg: pool host is too long: %s", cfg.PoolListenHost))
	}
	if len(cfg.DatabaseHost) > hostMaxSize {
		panic(fmt.Sprintf("poolcfg: database host is too long: %s", cfg.DatabaseHost))
	}
	if len(cfg.Wallet) > walletMaxSize {
		panic(fmt.Sprintf("poolcfg: wallet address is too long: %s", cfg.Wallet))
	}
	if len(cfg.FeeWallet) > walletMaxSize {
		panic(fmt.Sprintf("poolcfg: fee wallet address is too long: %s", cfg.FeeWallet))
	}
	if cfg.PoolFee < 0.0 {
		panic(fmt.Sprintf("poolcfg: pool fee is negative: %v", cfg.PoolFee))
	}
	if cfg.PoolFee > 1.0 {
		panic(fmt.Sprintf("poolcfg: pool fee is greater than 1: %v", cfg.PoolFee))
	}
	if cfg.MaxErrorJobsToBlock < 1 {
		panic(fmt.Sprintf("poolcfg: max error jobs to block must be positive: %d", cfg.MaxErrorJobsToBlock))
	}
	if cfg.MaxOpenJobsToBlock < 1 {
		panic(fmt.Sprintf("poolcfg: max open jobs to block must be positive: %d", cfg.MaxOpenJobsToBlock))
	}
	if cfg.PoolMinDifficulty < 1 {
		panic("poolcfg: pool minimum difficulty must be positive")
	}
	if cfg.DatabaseType != "POSTGRES" {
		panic(fmt.Sprintf("poolcfg: database type not supported: %s", cfg.DatabaseType))
	}
	switch cfg.NodeRole {
	case NodeRoleBackend, NodeRoleWorker, NodeRoleCombined:
	default:
		panic(fmt.Sprintf("poolcfg: node role not supported: %s", cfg.NodeRole))
	}
}

// Init runs the full load sequence original_source's init_config performs:
// file load, environment overlay, runtime overrides, then validation.
func Init(configFilePath string) (Config, error) {
	cfg, err := LoadFile(configFilePath)
	if err != nil {
		return Config{}, err
	}
	cfg = ApplyEnvironmentOverrides(cfg)
	cfg = ApplyRuntimeOverrides(cfg)
	Validate(cfg)
	return cfg, nil
}

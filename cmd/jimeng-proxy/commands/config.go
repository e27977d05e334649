package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/jimengproxy/jimeng-proxy/internal/app"
)

// envPrefix marks configuration variables. Nested keys use "__",
// e.g. JIMENG_GENERATION__MAX_RETRIES.
const envPrefix = "JIMENG_"

// flagKeys maps CLI flags to config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
}

// loadConfig layers defaults, the TOML file at path, the environment and
// explicitly set flags, in increasing precedence, and validates the result.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (*app.Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	dotenv, err := readDotenv(cmd.String("env-file"))
	if err != nil {
		return nil, err
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
		EnvironFunc: func() []string { return append(dotenv, environ()...) },
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	overrides := map[string]any{}
	for flag, key := range flagKeys {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	cfg := app.DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readDotenv returns the variables of a dotenv file as KEY=value pairs.
// A missing file yields nothing.
func readDotenv(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	vars, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	pairs := make([]string, 0, len(vars))
	for k, v := range vars {
		pairs = append(pairs, k+"="+v)
	}
	return pairs, nil
}

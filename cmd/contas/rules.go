package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"

	"contas/internal/statement"
)

// loadRules reads replaceWords and ignoreWords from a yaml, json or toml
// file. A missing file yields empty rules unless required is set.
func loadRules(path string, required bool) (statement.Rules, error) {
	var rules statement.Rules
	if path == "" {
		return rules, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !required {
		return rules, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return rules, fmt.Errorf("failed to read rules %s: %w", path, err)
	}
	if err := v.Unmarshal(&rules); err != nil {
		return rules, fmt.Errorf("failed to decode rules %s: %w", path, err)
	}
	return rules, nil
}

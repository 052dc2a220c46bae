package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a sample configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a sample configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use -force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

type configSection struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg section by section, each preceded by
// an explanatory comment block.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []configSection{
		{
			key: "logging",
			comment: `Logging
  level:  DEBUG, INFO, WARN or ERROR
  format: text or json
  output: stdout, stderr or a file path`,
			value: cfg.Logging,
		},
		{
			key: "server",
			comment: `Process-wide settings
  shutdown_timeout: how long to wait for adapters to stop
  metrics: Prometheus endpoint on its own port`,
			value: cfg.Server,
		},
		{
			key: "store",
			comment: `Where files are served from
  type: filesystem or s3
  filesystem.root: directory whose contents are served
  s3: bucket, region and optional key_prefix, endpoint and static credentials`,
			value: cfg.Store,
		},
		{
			key: "adapters",
			comment: `Protocol adapters
  http.workers: fixed worker pool size; accepts block while all are busy
  http.read_timeout / write_timeout: 0 disables socket deadlines
  http.rate_limit.requests_per_second: 0 disables accept throttling`,
			value: cfg.Adapters,
		},
	}

	var out strings.Builder
	out.WriteString("# file-shover Configuration File\n")
	out.WriteString("#\n")
	out.WriteString("# Environment variables override values here, e.g.\n")
	out.WriteString("# FILESHOVER_ADAPTERS_HTTP_PORT=8080\n")

	for _, section := range sections {
		out.WriteString("\n")
		for _, line := range strings.Split(section.comment, "\n") {
			out.WriteString("# ")
			out.WriteString(line)
			out.WriteString("\n")
		}

		rendered, err := marshalSection(section.key, section.value)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", section.key, err)
		}
		out.WriteString(rendered)
	}

	return out.String(), nil
}

func marshalSection(key string, value any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{key: value}); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

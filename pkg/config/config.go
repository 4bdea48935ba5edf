package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

const (
	DefaultConfigPath = "/etc/membersync"
	ConfigFileName    = "membersync.yml"
)

// Config holds all membersync settings. It is loaded once and passed to
// the components that need it.
type Config struct {
	// SyncMethod selects whether rules grant roles or capabilities
	SyncMethod rule.Method `yaml:"sync_method" json:"sync_method"`

	// BatchSize is the number of memberships fetched per batch step
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// CreateUsers creates accounts for contacts with no linked user
	CreateUsers bool `yaml:"create_users" json:"create_users"`

	// DryRun makes batch runs simulate instead of writing
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	// CapabilityPrefix is prepended to membership type IDs to name capabilities
	CapabilityPrefix string `yaml:"capability_prefix" json:"capability_prefix"`

	// ContentRestrictionEnabled mirrors capability grants onto ContentRestrictionCapability
	ContentRestrictionEnabled bool `yaml:"content_restriction_enabled" json:"content_restriction_enabled"`

	// ContentRestrictionCapability is the marker capability of the content restriction plugin
	ContentRestrictionCapability string `yaml:"content_restriction_capability" json:"content_restriction_capability"`

	// SnapshotTTL is how long, in seconds, a pre-update snapshot is kept
	SnapshotTTL int `yaml:"snapshot_ttl" json:"snapshot_ttl"`

	// CursorKey is the key the batch cursor is stored under
	CursorKey string `yaml:"cursor_key" json:"cursor_key"`

	// AuditEnabled turns audit logging on or off
	AuditEnabled bool `yaml:"audit_enabled" json:"audit_enabled"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// fileConfig is the on-disk form. Pointers distinguish an explicit false
// or zero from an absent key.
type fileConfig struct {
	SyncMethod                   *rule.Method `yaml:"sync_method"`
	BatchSize                    *int         `yaml:"batch_size"`
	CreateUsers                  *bool        `yaml:"create_users"`
	DryRun                       *bool        `yaml:"dry_run"`
	CapabilityPrefix             *string      `yaml:"capability_prefix"`
	ContentRestrictionEnabled    *bool        `yaml:"content_restriction_enabled"`
	ContentRestrictionCapability *string      `yaml:"content_restriction_capability"`
	SnapshotTTL                  *int         `yaml:"snapshot_ttl"`
	CursorKey                    *string      `yaml:"cursor_key"`
	AuditEnabled                 *bool        `yaml:"audit_enabled"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Default returns a config with default values
func Default() *Config {
	c := &Config{
		SyncMethod:                   rule.MethodRole,
		BatchSize:                    batch.DefaultBatchSize,
		CreateUsers:                  true,
		DryRun:                       false,
		CapabilityPrefix:             rule.DefaultCapabilityPrefix,
		ContentRestrictionEnabled:    false,
		ContentRestrictionCapability: "restrict_content",
		SnapshotTTL:                  300,
		CursorKey:                    batch.DefaultCursorKey,
		AuditEnabled:                 true,
		sources:                      make(map[string]string),
	}
	for _, name := range attributeNames() {
		c.sources[name] = "default"
	}
	return c
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*Config, error) {
	config := Default()

	// Determine config file path
	configPath := os.Getenv("MEMBERSYNC_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	// Try to load from config file
	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&file)
	}

	// Override with environment variables
	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"sync_method", "batch_size", "create_users", "dry_run",
		"capability_prefix", "content_restriction_enabled",
		"content_restriction_capability", "snapshot_ttl", "cursor_key",
		"audit_enabled",
	}
}

func (c *Config) applyFileConfig(file *fileConfig) {
	if file.SyncMethod != nil {
		c.SyncMethod = *file.SyncMethod
		c.sources["sync_method"] = "file"
	}
	if file.BatchSize != nil {
		c.BatchSize = *file.BatchSize
		c.sources["batch_size"] = "file"
	}
	if file.CreateUsers != nil {
		c.CreateUsers = *file.CreateUsers
		c.sources["create_users"] = "file"
	}
	if file.DryRun != nil {
		c.DryRun = *file.DryRun
		c.sources["dry_run"] = "file"
	}
	if file.CapabilityPrefix != nil {
		c.CapabilityPrefix = *file.CapabilityPrefix
		c.sources["capability_prefix"] = "file"
	}
	if file.ContentRestrictionEnabled != nil {
		c.ContentRestrictionEnabled = *file.ContentRestrictionEnabled
		c.sources["content_restriction_enabled"] = "file"
	}
	if file.ContentRestrictionCapability != nil {
		c.ContentRestrictionCapability = *file.ContentRestrictionCapability
		c.sources["content_restriction_capability"] = "file"
	}
	if file.SnapshotTTL != nil {
		c.SnapshotTTL = *file.SnapshotTTL
		c.sources["snapshot_ttl"] = "file"
	}
	if file.CursorKey != nil {
		c.CursorKey = *file.CursorKey
		c.sources["cursor_key"] = "file"
	}
	if file.AuditEnabled != nil {
		c.AuditEnabled = *file.AuditEnabled
		c.sources["audit_enabled"] = "file"
	}
}

func (c *Config) applyEnvConfig() error {
	if val := os.Getenv("MEMBERSYNC_SYNC_METHOD"); val != "" {
		m, err := rule.MethodString(val)
		if err != nil {
			return fmt.Errorf("invalid MEMBERSYNC_SYNC_METHOD: %w", err)
		}
		c.SyncMethod = m
		c.sources["sync_method"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.BatchSize = i
			c.sources["batch_size"] = "environment"
		}
	}
	if val := os.Getenv("MEMBERSYNC_CREATE_USERS"); val != "" {
		c.CreateUsers = parseBool(val)
		c.sources["create_users"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_DRY_RUN"); val != "" {
		c.DryRun = parseBool(val)
		c.sources["dry_run"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_CAPABILITY_PREFIX"); val != "" {
		c.CapabilityPrefix = val
		c.sources["capability_prefix"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_CONTENT_RESTRICTION_ENABLED"); val != "" {
		c.ContentRestrictionEnabled = parseBool(val)
		c.sources["content_restriction_enabled"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_CONTENT_RESTRICTION_CAPABILITY"); val != "" {
		c.ContentRestrictionCapability = val
		c.sources["content_restriction_capability"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_SNAPSHOT_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SnapshotTTL = i
			c.sources["snapshot_ttl"] = "environment"
		}
	}
	if val := os.Getenv("MEMBERSYNC_CURSOR_KEY"); val != "" {
		c.CursorKey = val
		c.sources["cursor_key"] = "environment"
	}
	if val := os.Getenv("MEMBERSYNC_AUDIT_ENABLED"); val != "" {
		c.AuditEnabled = val != "false" && val != "0" && val != "no"
		c.sources["audit_enabled"] = "environment"
	}
	return nil
}

func parseBool(val string) bool {
	return val == "true" || val == "1"
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// SnapshotDuration returns the snapshot TTL as a duration
func (c *Config) SnapshotDuration() time.Duration {
	return time.Duration(c.SnapshotTTL) * time.Second
}

// EffectOptions returns the effect applier options
func (c *Config) EffectOptions() effect.Options {
	return effect.Options{
		CapabilityPrefix:             c.CapabilityPrefix,
		ContentRestriction:           c.ContentRestrictionEnabled,
		ContentRestrictionCapability: c.ContentRestrictionCapability,
	}
}

// BatchParams returns batch parameters for a run over [from, to)
func (c *Config) BatchParams(from, to int) batch.Params {
	return batch.Params{
		From:        from,
		To:          to,
		BatchSize:   c.BatchSize,
		CreateUsers: c.CreateUsers,
		DryRun:      c.DryRun,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.SyncMethod.IsAMethod() {
		return fmt.Errorf("invalid sync_method: %d", c.SyncMethod)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid batch_size: %d", c.BatchSize)
	}
	if strings.TrimSpace(c.CapabilityPrefix) == "" {
		return fmt.Errorf("capability_prefix must not be empty")
	}
	if c.ContentRestrictionEnabled && strings.TrimSpace(c.ContentRestrictionCapability) == "" {
		return fmt.Errorf("content_restriction_capability must be set when content restriction is enabled")
	}
	if c.SnapshotTTL <= 0 {
		return fmt.Errorf("invalid snapshot_ttl: %d", c.SnapshotTTL)
	}
	if strings.TrimSpace(c.CursorKey) == "" {
		return fmt.Errorf("cursor_key must not be empty")
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "sync_method", Value: c.SyncMethod.String(), Source: c.Source("sync_method")},
		{Name: "batch_size", Value: strconv.Itoa(c.BatchSize), Source: c.Source("batch_size")},
		{Name: "create_users", Value: strconv.FormatBool(c.CreateUsers), Source: c.Source("create_users")},
		{Name: "dry_run", Value: strconv.FormatBool(c.DryRun), Source: c.Source("dry_run")},
		{Name: "capability_prefix", Value: c.CapabilityPrefix, Source: c.Source("capability_prefix")},
		{Name: "content_restriction_enabled", Value: strconv.FormatBool(c.ContentRestrictionEnabled), Source: c.Source("content_restriction_enabled")},
		{Name: "content_restriction_capability", Value: c.ContentRestrictionCapability, Source: c.Source("content_restriction_capability")},
		{Name: "snapshot_ttl", Value: strconv.Itoa(c.SnapshotTTL), Source: c.Source("snapshot_ttl")},
		{Name: "cursor_key", Value: c.CursorKey, Source: c.Source("cursor_key")},
		{Name: "audit_enabled", Value: strconv.FormatBool(c.AuditEnabled), Source: c.Source("audit_enabled")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-34s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-34s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-34s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

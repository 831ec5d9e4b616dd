package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hdrconv/internal/config"
	"hdrconv/internal/logging"
)

// skipConfigAnnotation marks commands that must run without a valid config.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext lazily loads config and the logger shared by subcommands.
// Flags are held by pointer because cobra fills them after construction.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	loadConfig func() (*config.Config, error)
	loadLogger func() (*slog.Logger, error)
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	c := &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
	c.loadConfig = sync.OnceValues(c.readConfig)
	c.loadLogger = sync.OnceValues(func() (*slog.Logger, error) {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		return logging.NewFromConfig(cfg)
	})
	return c
}

func (c *commandContext) ensureConfig() (*config.Config, error) { return c.loadConfig() }

func (c *commandContext) ensureLogger() (*slog.Logger, error) { return c.loadLogger() }

func (c *commandContext) configPath() string {
	return flagValue(c.configFlag)
}

func (c *commandContext) readConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(c.configPath())
	if err != nil {
		return nil, err
	}
	if level := flagValue(c.logLevelFlag); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

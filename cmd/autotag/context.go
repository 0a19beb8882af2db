package main

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadOptional(path)
	})
	return c.config, c.configErr
}

// logger writes human-readable output to a terminal and JSON otherwise
func (c *commandContext) logger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if c.logLevelFlag != nil && *c.logLevelFlag != "" {
		logCfg.Level = *c.logLevelFlag
	}
	if logCfg.Output == "" || logCfg.Output == "stderr" {
		if stderrIsTerminal() {
			logCfg.Format = "console"
		}
	}
	return logging.NewLogger(logCfg)
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

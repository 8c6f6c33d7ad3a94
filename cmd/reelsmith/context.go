package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	logger    *slog.Logger
	logCloser io.Closer
	store     *store.Store
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
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath = resolved
		c.configExists = exists
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor returns the process logger, writing console output to the
// command's stderr.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	c.logger = logger
	c.logCloser = closer
	return logger, nil
}

func (c *commandContext) openStore() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Paths.StateDB)
	if err != nil {
		return nil, err
	}
	c.store = st
	return st, nil
}

func (c *commandContext) completer() (llm.Completer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	resolved := cfg.GetLLM()
	return llm.New(resolved.Provider, llm.Config{
		APIKey:         resolved.APIKey,
		BaseURL:        resolved.BaseURL,
		Model:          resolved.Model,
		Referer:        resolved.Referer,
		Title:          resolved.Title,
		TimeoutSeconds: int(resolved.Timeout.Seconds()),
	}), nil
}

// requestContext tags the command's context with a fresh request id and
// returns a logger carrying it.
func (c *commandContext) requestContext(cmd *cobra.Command) (context.Context, *slog.Logger, error) {
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRequestID(ctx, uuid.NewString())
	return ctx, logging.WithContext(ctx, logger), nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	if c.logCloser != nil {
		errs = append(errs, logging.CloseQuietly(c.logCloser))
		c.logCloser = nil
	}
	c.logger = nil
	return errors.Join(errs...)
}

// notify publishes event, logging rather than returning delivery failures.
func (c *commandContext) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return
	}
	if err := notifications.NewService(cfg).Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)), logging.Error(err))
	}
}

// notifyFailure reports a failed stage run and returns err unchanged.
func (c *commandContext) notifyFailure(ctx context.Context, logger *slog.Logger, stage string, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		c.notify(ctx, logger, notifications.EventError, notifications.Payload{"context": stage, "error": err.Error()})
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}


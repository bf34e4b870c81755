package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/daemonctl"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/review"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// daemonRunning reports whether a daemon process appears alive based on the
// pid file. The API may still take a moment to accept connections after
// launch; callers that need the API should use WaitForAPI.
func (c *commandContext) daemonRunning() bool {
	cfg := c.configValue()
	if cfg == nil {
		return false
	}
	pid, err := daemonctl.ReadPID(cfg)
	if err != nil || pid <= 0 {
		return false
	}
	return daemonctl.ProcessRunning(pid)
}

func (c *commandContext) dialClient() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := daemonctl.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// withQueue hands the callback either a daemon API client (daemon running) or
// a direct queue store handle (daemon stopped). Exactly one of the two
// arguments is non-nil.
func (c *commandContext) withQueue(fn func(client *daemonctl.Client, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if c.daemonRunning() {
		client, err := c.dialClient()
		if err != nil {
			return err
		}
		return wrapAPIError(fn(client, nil))
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(nil, store)
}

// withReview mirrors withQueue for review gate actions. The direct path wraps
// the store in a review service so approvals behave identically either way,
// except that publishing waits for the next daemon start.
func (c *commandContext) withReview(fn func(client *daemonctl.Client, svc *review.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if c.daemonRunning() {
		client, err := c.dialClient()
		if err != nil {
			return err
		}
		return wrapAPIError(fn(client, nil))
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(nil, review.NewService(store, logging.NewNop()))
}

func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: connection refused; start the daemon with `clipforge daemon start`")
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

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

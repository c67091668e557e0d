package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bsie/internal/config"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
	"bsie/internal/storage"
)

// commandContext lazily opens shared dependencies for CLI commands. The CLI
// talks to the statement store directly; daemon and CLI coordinate through
// the database's own locking.
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

// withStore opens the statement store for the duration of one command.
func (c *commandContext) withStore(fn func(*config.Config, *statement.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := statement.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withController is withStore plus a state controller.
func (c *commandContext) withController(fn func(*config.Config, *statement.Store, *statecontrol.Controller) error) error {
	return c.withStore(func(cfg *config.Config, store *statement.Store) error {
		return fn(cfg, store, statecontrol.New(store, nil, nil))
	})
}

// storagePaths returns the document store layout for the loaded config.
func (c *commandContext) storagePaths() (*storage.Paths, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	paths := storage.NewPaths(cfg)
	if err := paths.Ensure(); err != nil {
		return nil, err
	}
	return paths, nil
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

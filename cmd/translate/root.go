package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/timmy/doctranslate/internal/config"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/repository"
	"github.com/timmy/doctranslate/internal/translator"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "translate",
		Short:         "Submit documents to the translation pipeline and follow their progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.SetDefaultLogger(logger.New(&logger.Config{
				Level:       level,
				Format:      "text",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "translate",
			}))
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newPromptsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}

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
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*translator.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Translator.BaseURL == "" {
		return nil, errors.New("translator.base_url is not configured; set it in the config file or TRANSLATOR_BASE_URL")
	}
	return translator.NewClient(translator.Config{
		BaseURL: cfg.Translator.BaseURL,
		APIKey:  cfg.Translator.APIKey,
		Timeout: cfg.Translator.Timeout,
	}), nil
}

func (c *commandContext) openJournal() (*repository.SubmissionRepository, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repository.NewSubmissionRepository(db), closeFn, nil
}

func (c *commandContext) withJournal(fn func(*repository.SubmissionRepository) error) error {
	repo, closeFn, err := c.openJournal()
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(repo)
}

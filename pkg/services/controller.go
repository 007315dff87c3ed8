package services

import (
	"fmt"

	"github.com/kerbaras/mdhold/pkg/auth"
	"github.com/kerbaras/mdhold/pkg/config"
	"github.com/kerbaras/mdhold/pkg/data"
	"github.com/kerbaras/mdhold/pkg/logger"
	"github.com/kerbaras/mdhold/pkg/mangadex"
	"github.com/kerbaras/mdhold/pkg/ratelimit"
	"github.com/kerbaras/mdhold/pkg/utils"
)

// Controller wires the rate limiter, API client, session manager and
// journal together from one configuration.
type Controller struct {
	Config *config.Config
	Auth   *auth.Manager
	Client *mangadex.Client

	journal *data.Repository
}

func NewController(cfg *config.Config, prompter auth.Prompter) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(cfg.RateStrategy, cfg.RateCalls, cfg.RatePeriod)
	if err != nil {
		return nil, err
	}
	api := utils.NewAPI(cfg.BaseURL,
		utils.WithLimiter(limiter),
		utils.WithUserAgent(cfg.UserAgent),
	)

	base := mangadex.NewClient(api)
	manager := auth.FromConfig(cfg, base, prompter)

	return &Controller{
		Config: cfg,
		Auth:   manager,
		Client: base.WithTokenSource(manager),
	}, nil
}

// Journal opens the run journal on first use. It returns nil when the
// journal is turned off.
func (c *Controller) Journal() (*data.Repository, error) {
	if c.journal != nil || !c.Config.JournalEnabled() {
		return c.journal, nil
	}
	repo, err := data.OpenRepository(c.Config.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	c.journal = repo
	return repo, nil
}

// NewUpdater builds an Updater over the authenticated client, journalling
// when the journal is enabled. A journal that cannot be opened is logged and
// the run goes ahead without it.
func (c *Controller) NewUpdater() *Updater {
	repo, err := c.Journal()
	if err != nil {
		logger.Log.Warnw("running without journal", "path", c.Config.JournalPath, "error", err)
	}
	if repo == nil {
		return NewUpdater(c.Client, nil)
	}
	return NewUpdater(c.Client, repo)
}

func (c *Controller) Close() error {
	if c.journal == nil {
		return nil
	}
	err := c.journal.Close()
	c.journal = nil
	return err
}

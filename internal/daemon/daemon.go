package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/clubrodada/rodada/internal/api"
	"github.com/clubrodada/rodada/internal/app/achievements"
	"github.com/clubrodada/rodada/internal/app/leaderboard"
	"github.com/clubrodada/rodada/internal/app/ledger"
	"github.com/clubrodada/rodada/internal/app/redemption"
	"github.com/clubrodada/rodada/internal/app/streak"
	"github.com/clubrodada/rodada/internal/domain"
	"github.com/clubrodada/rodada/internal/infra/sqlite"
)

// Daemon owns the assembled engine.
type Daemon struct {
	config    Config
	db        *sqlite.DB
	server    *http.Server
	refresher *leaderboard.Refresher

	Leaderboards *leaderboard.Service
	Ledger       *ledger.Service
}

// New opens storage and wires every service.
func New(cfg Config) (*Daemon, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	db, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	tiers := domain.DefaultTierTable()
	loc := cfg.Location()

	ledgerSvc := ledger.New(db)
	redemptions := redemption.New(db, db, tiers, redemption.Config{
		MaxAttempts: cfg.Redemption.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff(),
	})
	leaderboards := leaderboard.New(db, loc)
	streaks := streak.New(db, loc)
	achievementsEng := achievements.New(db, db, db)

	srv := api.NewServer(ledgerSvc, redemptions, leaderboards, streaks, achievementsEng, tiers)
	if cfg.API.MetricsEnabled {
		srv.EnableMetrics()
	}

	return &Daemon{
		config: cfg,
		db:     db,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		refresher:    leaderboard.NewRefresher(leaderboards, cfg.RefreshInterval()),
		Leaderboards: leaderboards,
		Ledger:       ledgerSvc,
	}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	d.refresher.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s", d.config.Addr())
		if err := d.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		d.refresher.Stop()
		d.db.Close()
		return err
	case <-ctx.Done():
	}

	log.Printf("[daemon] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := d.server.Shutdown(shutdownCtx)

	d.refresher.Stop()
	if closeErr := d.db.Close(); err == nil {
		err = closeErr
	}
	return err
}

// DB exposes storage for the seed and admin commands.
func (d *Daemon) DB() *sqlite.DB { return d.db }

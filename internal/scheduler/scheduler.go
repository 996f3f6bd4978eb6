// Package scheduler runs the background goroutines around the market engine:
//  1. summaryBroadcastLoop – pushes live prices + supplies to WS clients on a
//     fixed period.
//  2. persistLoop – re-saves the read model of every live market once a
//     minute so the journal database converges even if an async save was
//     dropped.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/evrimtas/outcomemarket/internal/config"
	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces — minimally required from the hub and the journal
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operation the Scheduler needs from the
// WebSocket hub.  Declared here so the scheduler package does not import the
// ws implementation and cause a circular dependency.
type WsHub interface {
	BroadcastSummaries(summaries []domain.MarketSummary)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the periodic loops.  Call Start(ctx) once from main();
// cancel the context to shut it down gracefully.
type Scheduler struct {
	marketSvc *service.MarketService
	recorder  service.Recorder // may be nil when running without Postgres
	hub       WsHub
	cfg       *config.Config
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	marketSvc *service.MarketService,
	recorder service.Recorder,
	hub WsHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		marketSvc: marketSvc,
		recorder:  recorder,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the background goroutines.  It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.summaryBroadcastLoop(ctx)
	if s.recorder != nil {
		go s.persistLoop(ctx)
	}
	s.logger.Info("scheduler started", "summary_interval", s.cfg.Engine.SummaryInterval)
}

// ──────────────────────────────────────────────────────────────────────────────
// summaryBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

// summaryBroadcastLoop pushes a full market summary to all connected WS
// clients every SummaryInterval.  Event messages carry deltas the moment
// they happen; this loop is the periodic keyframe late joiners rely on.
func (s *Scheduler) summaryBroadcastLoop(ctx context.Context) {
	defer s.recoverAndLog("summaryBroadcastLoop")

	ticker := time.NewTicker(s.cfg.Engine.SummaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("summaryBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			if s.hub == nil {
				continue
			}
			summaries := s.marketSvc.ListMarkets()
			if len(summaries) == 0 {
				continue
			}
			s.hub.BroadcastSummaries(summaries)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// persistLoop
// ──────────────────────────────────────────────────────────────────────────────

// persistLoop re-saves every live market's read model once a minute.  The
// per-operation async saves are fire-and-forget; this sweep repairs any that
// were lost to transient database failures.
func (s *Scheduler) persistLoop(ctx context.Context) {
	defer s.recoverAndLog("persistLoop")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("persistLoop: shutting down")
			return
		case <-ticker.C:
			s.persistAll(ctx)
		}
	}
}

// persistAll is the inner body of persistLoop, extracted so the defer in the
// loop catches panics correctly.
func (s *Scheduler) persistAll(ctx context.Context) {
	for _, summary := range s.marketSvc.ListMarkets() {
		market, err := s.marketSvc.GetMarket(summary.ID)
		if err != nil {
			continue // closed between listing and fetch
		}
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.recorder.SaveMarket(saveCtx, market); err != nil {
			s.logger.Warn("persistLoop: save failed", "market", market.ID, "err", err)
		}
		cancel()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}

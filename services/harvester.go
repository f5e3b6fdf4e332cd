package services

import (
	"context"
	"fmt"

	"cricauction-scraper/models"
	"cricauction-scraper/storage"
	"cricauction-scraper/utils"
)

// RecordSource streams freshly scraped records to emit.
type RecordSource interface {
	Walk(ctx context.Context, emit func(models.Record)) (models.WalkStats, error)
}

// RunResult summarizes one harvest.
type RunResult struct {
	Walk        models.WalkStats
	Scraped     int
	Added       []models.Record
	Uploaded    int
	SyncSkipped string
	SyncErr     error
}

// Harvester runs scrape, local append and remote sync in that order.
type Harvester struct {
	source RecordSource
	store  storage.RowStore
	sync   *Reconciler
	logger *utils.Logger
}

// NewHarvester wires a harvest. sync may be nil, in which case every run is
// local-only.
func NewHarvester(source RecordSource, store storage.RowStore, sync *Reconciler, logger *utils.Logger) *Harvester {
	return &Harvester{source: source, store: store, sync: sync, logger: logger}
}

// Run performs one harvest. The returned error is set only when the local
// store could not be read or written or the listing never loaded; remote
// failures land in RunResult.SyncErr.
func (h *Harvester) Run(ctx context.Context) (RunResult, error) {
	var res RunResult

	rows, err := h.store.ReadAll()
	if err != nil {
		return res, fmt.Errorf("harvest: read local store: %w", err)
	}
	index := LoadKeyIndex(rows)
	h.logger.Info("[harvest] Loaded %d known listings from local store", index.Len())

	res.Walk, err = h.source.Walk(ctx, func(rec models.Record) {
		res.Scraped++
		if !index.Admit(rec) {
			h.logger.Debug("[harvest] Already stored: %s | %s | %s", rec.Title, rec.Location, rec.AuctionDate)
			return
		}
		res.Added = append(res.Added, rec)
		h.logger.Info("[harvest] New: %s | %s | %s players | %s", rec.Title, rec.Location, rec.PlayerCount, rec.AuctionDate)
	})
	if err != nil {
		return res, fmt.Errorf("harvest: %w", err)
	}
	h.logger.Info("[harvest] Walk finished (%s): %d pages, %d scraped, %d new",
		res.Walk.Reason, res.Walk.Pages, res.Scraped, len(res.Added))

	if len(res.Added) == 0 {
		res.SyncSkipped = "no new listings"
		h.logger.Info("[harvest] No new listings, local store unchanged")
		return res, nil
	}

	if err := h.store.Append(models.Rows(res.Added)); err != nil {
		return res, fmt.Errorf("harvest: append local store: %w", err)
	}
	h.logger.Info("[harvest] Appended %d rows to local store", len(res.Added))

	h.upload(ctx, res.Added, &res)
	return res, nil
}

// Backfill pushes every locally stored listing through the reconciler.
func (h *Harvester) Backfill(ctx context.Context) (RunResult, error) {
	var res RunResult

	rows, err := h.store.ReadAll()
	if err != nil {
		return res, fmt.Errorf("backfill: read local store: %w", err)
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		res.Added = append(res.Added, models.RecordFromRow(row))
	}
	res.Scraped = len(res.Added)
	if len(res.Added) == 0 {
		res.SyncSkipped = "local store is empty"
		h.logger.Warn("[backfill] Local store is empty, nothing to sync")
		return res, nil
	}

	h.upload(ctx, res.Added, &res)
	return res, nil
}

func (h *Harvester) upload(ctx context.Context, batch []models.Record, res *RunResult) {
	if h.sync == nil {
		res.SyncSkipped = "no remote credentials"
		h.logger.Warn("[sync] Skipped: no remote credentials configured")
		return
	}

	out, err := h.sync.Sync(ctx, batch)
	if err != nil {
		res.SyncErr = err
		h.logger.Error("[sync] %v", err)
		return
	}
	res.Uploaded = out.Uploaded
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"cricauction-scraper/models"
	"cricauction-scraper/utils"
)

// RemoteSheet is the remote worksheet the reconciler appends to.
type RemoteSheet interface {
	EnsureWorksheet(ctx context.Context) error
	UsedValues(ctx context.Context) ([][]any, error)
	WriteRange(ctx context.Context, address string, rows [][]string) error
}

// SyncResult describes one reconciliation pass.
type SyncResult struct {
	Existing int
	Uploaded int
	Address  string
}

// Reconciler uploads records the remote sheet does not hold yet.
type Reconciler struct {
	sheet  RemoteSheet
	logger *utils.Logger
}

// NewReconciler creates a Reconciler over sheet.
func NewReconciler(sheet RemoteSheet, logger *utils.Logger) *Reconciler {
	return &Reconciler{sheet: sheet, logger: logger}
}

// Sync reconciles batch against the sheet's current contents and appends the
// missing records in a single write. Errors are returned untouched so the
// caller can report them; nothing here affects the local store.
func (r *Reconciler) Sync(ctx context.Context, batch []models.Record) (SyncResult, error) {
	var res SyncResult

	if err := r.sheet.EnsureWorksheet(ctx); err != nil {
		return res, fmt.Errorf("sync: ensure worksheet: %w", err)
	}
	grid, err := r.sheet.UsedValues(ctx)
	if err != nil {
		return res, fmt.Errorf("sync: read remote rows: %w", err)
	}

	keys := RemoteKeys(grid)
	res.Existing = keys.Size()

	missing := Missing(batch, keys)
	if len(missing) == 0 {
		r.logger.Info("[sync] Remote sheet already holds all %d rows, nothing uploaded", len(batch))
		return res, nil
	}

	// Re-read right before writing so the start row reflects any external edit.
	grid, err = r.sheet.UsedValues(ctx)
	if err != nil {
		return res, fmt.Errorf("sync: re-read remote rows: %w", err)
	}

	address, err := RangeAddress(NextRow(grid), len(missing))
	if err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}
	if err := r.sheet.WriteRange(ctx, address, models.Rows(missing)); err != nil {
		return res, fmt.Errorf("sync: write %s: %w", address, err)
	}

	res.Uploaded = len(missing)
	res.Address = address
	r.logger.Info("[sync] Uploaded %d rows to %s", res.Uploaded, address)
	return res, nil
}

// StripHeader drops the first row when its first cell mentions "Tournament".
func StripHeader(grid [][]any) [][]any {
	if len(grid) > 0 && len(grid[0]) > 0 && strings.Contains(fmt.Sprint(grid[0][0]), "Tournament") {
		return grid[1:]
	}
	return grid
}

// RemoteKeys builds a fresh identity key set from a remote value grid.
func RemoteKeys(grid [][]any) *utils.KeySet[models.IdentityKey] {
	keys := utils.NewKeySet[models.IdentityKey]()
	for _, row := range StripHeader(grid) {
		keys.Add(RowKey(row))
	}
	return keys
}

// Missing returns the records of batch whose keys are absent from keys, in
// batch order.
func Missing(batch []models.Record, keys *utils.KeySet[models.IdentityKey]) []models.Record {
	var out []models.Record
	for _, rec := range batch {
		if !keys.Contains(BuildIdentityKey(rec)) {
			out = append(out, rec)
		}
	}
	return out
}

// NextRow returns the 1-based row after the used range, or 2 on an empty
// sheet so row 1 stays reserved for headers.
func NextRow(grid [][]any) int {
	if len(grid) == 0 {
		return 2
	}
	return len(grid) + 1
}

// RangeAddress returns the A{start}:E{end} address covering n rows.
func RangeAddress(start, n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("range address: need at least one row, got %d", n)
	}
	from, err := excelize.CoordinatesToCellName(1, start)
	if err != nil {
		return "", fmt.Errorf("range address: %w", err)
	}
	to, err := excelize.CoordinatesToCellName(len(models.CSVHeaders), start+n-1)
	if err != nil {
		return "", fmt.Errorf("range address: %w", err)
	}
	return from + ":" + to, nil
}

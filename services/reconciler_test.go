package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"cricauction-scraper/models"
	"cricauction-scraper/utils"
)

type fakeSheet struct {
	grid      [][]any
	ensureErr error
	readErr   error
	writeErr  error

	reads   int
	writes  int
	address string
	written [][]string
}

func (f *fakeSheet) EnsureWorksheet(context.Context) error { return f.ensureErr }

func (f *fakeSheet) UsedValues(context.Context) ([][]any, error) {
	f.reads++
	return f.grid, f.readErr
}

func (f *fakeSheet) WriteRange(_ context.Context, address string, rows [][]string) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.address = address
	f.written = rows
	return nil
}

func headerGrid(rows ...[]any) [][]any {
	grid := [][]any{{"Tournament Name", "Location", "Total players", "Auction Date", "Date Added"}}
	return append(grid, rows...)
}

func TestStripHeader(t *testing.T) {
	grid := headerGrid([]any{"Cup", "Pune", "8", "2025-01-01", "2024-12-01"})
	require.Len(t, StripHeader(grid), 1)

	noHeader := [][]any{{"Cup", "Pune", "8", "2025-01-01", "2024-12-01"}}
	require.Len(t, StripHeader(noHeader), 1)

	require.Empty(t, StripHeader(nil))
	require.Len(t, StripHeader([][]any{{}}), 1)
}

func TestRemoteKeysSkipsHeader(t *testing.T) {
	keys := RemoteKeys(headerGrid())
	require.Equal(t, 0, keys.Size())
	require.False(t, keys.Contains(models.IdentityKey{Title: "Tournament Name", Location: "Location", AuctionDate: "Auction Date"}))
}

func TestMissingIsOrderedSetDifference(t *testing.T) {
	batch := []models.Record{
		{Title: "C", Location: "L", AuctionDate: "2025-01-03"},
		{Title: "A", Location: "L", AuctionDate: "2025-01-01"},
		{Title: "D", Location: "L", AuctionDate: "2025-01-04"},
		{Title: "B", Location: "L", AuctionDate: "2025-01-02"},
	}
	keys := RemoteKeys(headerGrid(
		[]any{"A", "L", "", 45658.0, ""},
		[]any{"D", "L", "", "04-01-2025", ""},
	))

	got := Missing(batch, keys)
	want := []models.Record{batch[0], batch[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
}

func TestNextRowAndRangeAddress(t *testing.T) {
	require.Equal(t, 2, NextRow(nil))
	require.Equal(t, 2, NextRow([][]any{{""}}))
	require.Equal(t, 4, NextRow(headerGrid([]any{"a"}, []any{"b"})))

	addr, err := RangeAddress(2, 1)
	require.NoError(t, err)
	require.Equal(t, "A2:E2", addr)

	addr, err = RangeAddress(10, 3)
	require.NoError(t, err)
	require.Equal(t, "A10:E12", addr)

	_, err = RangeAddress(2, 0)
	require.Error(t, err)
}

func TestReconcilerUploadsOnlyMissing(t *testing.T) {
	sheet := &fakeSheet{grid: headerGrid(
		[]any{"Summer Cup", "Pune", "16", 45748.0, "2025-03-01"},
	)}
	r := NewReconciler(sheet, utils.NewDiscardLogger())

	batch := []models.Record{
		{Title: "Summer Cup", Location: "Pune", PlayerCount: "18", AuctionDate: "2025-04-01", DateAdded: "2025-04-02"},
		{Title: "Winter Bash", Location: "Delhi", PlayerCount: "24", AuctionDate: "2025-05-10", DateAdded: "2025-04-02"},
	}

	res, err := r.Sync(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 1, res.Uploaded)
	require.Equal(t, 1, res.Existing)
	require.Equal(t, "A3:E3", sheet.address)
	require.Equal(t, 2, sheet.reads)

	want := [][]string{{"Winter Bash", "Delhi", "24", "2025-05-10", "2025-04-02"}}
	if diff := cmp.Diff(want, sheet.written); diff != "" {
		t.Errorf("written rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcilerEmptySheetStartsAtRowTwo(t *testing.T) {
	sheet := &fakeSheet{}
	r := NewReconciler(sheet, utils.NewDiscardLogger())

	res, err := r.Sync(context.Background(), []models.Record{
		{Title: "A", Location: "L", AuctionDate: "2025-01-01"},
		{Title: "B", Location: "L", AuctionDate: "2025-01-02"},
	})
	require.NoError(t, err)
	require.Equal(t, "A2:E3", res.Address)
	require.Len(t, sheet.written, 2)
}

func TestReconcilerNothingToUpload(t *testing.T) {
	sheet := &fakeSheet{grid: headerGrid([]any{"A", "L", "", "2025-01-01", ""})}
	r := NewReconciler(sheet, utils.NewDiscardLogger())

	res, err := r.Sync(context.Background(), []models.Record{{Title: "A", Location: "L", AuctionDate: "01/01/2025"}})
	require.NoError(t, err)
	require.Equal(t, 0, res.Uploaded)
	require.Equal(t, 0, sheet.writes)
	require.Equal(t, 1, sheet.reads)
}

func TestReconcilerPropagatesRemoteErrors(t *testing.T) {
	denied := errors.New("403 forbidden")
	batch := []models.Record{{Title: "A", Location: "L", AuctionDate: "2025-01-01"}}

	_, err := NewReconciler(&fakeSheet{ensureErr: denied}, utils.NewDiscardLogger()).Sync(context.Background(), batch)
	require.ErrorIs(t, err, denied)

	_, err = NewReconciler(&fakeSheet{readErr: denied}, utils.NewDiscardLogger()).Sync(context.Background(), batch)
	require.ErrorIs(t, err, denied)

	sheet := &fakeSheet{writeErr: denied}
	_, err = NewReconciler(sheet, utils.NewDiscardLogger()).Sync(context.Background(), batch)
	require.ErrorIs(t, err, denied)
	require.Equal(t, 1, sheet.writes)
}

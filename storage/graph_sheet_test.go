package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cricauction-scraper/utils"
)

const testShareLink = "https://example.sharepoint.com/:x:/s/Site/abc?e=xyz"

// fakeGraph emulates the token endpoint and the workbook endpoints.
type fakeGraph struct {
	mu sync.Mutex

	tokenCalls   int
	tokenStatus  int
	shareStatus  int
	usedFailures int
	sheets       []string
	used         [][]any

	addedSheet  string
	patchPath   string
	patchValues [][]string
	authHeaders []string
}

func (f *fakeGraph) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.tokenCalls++
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, graphScope, r.PostForm.Get("scope"))
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		writeJSON(w, map[string]any{"access_token": "tok-123", "token_type": "Bearer", "expires_in": 3599})
	})

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		path := r.URL.Path

		switch {
		case path == "/api/shares/"+ShareID(testShareLink)+"/driveItem":
			if f.shareStatus != 0 {
				w.WriteHeader(f.shareStatus)
				return
			}
			writeJSON(w, map[string]any{"id": "item-1", "parentReference": map[string]any{"driveId": "drive-1"}})

		case path == "/api/drives/drive-1/items/item-1/workbook/worksheets" && r.Method == http.MethodGet:
			var value []map[string]string
			for _, name := range f.sheets {
				value = append(value, map[string]string{"id": name, "name": name})
			}
			writeJSON(w, map[string]any{"value": value})

		case path == "/api/drives/drive-1/items/item-1/workbook/worksheets/add":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.addedSheet = body["name"]
			f.sheets = append(f.sheets, body["name"])
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, map[string]string{"name": body["name"]})

		case strings.HasSuffix(path, "/usedRange(valuesOnly=true)"):
			if f.usedFailures > 0 {
				f.usedFailures--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, map[string]any{"values": f.used})

		case strings.Contains(path, "/range(address=") && r.Method == http.MethodPatch:
			var body struct {
				Values [][]string `json:"values"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.patchPath = path
			f.patchValues = body.Values
			writeJSON(w, map[string]any{"address": "ok"})

		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestSheet(t *testing.T, f *fakeGraph) *GraphSheet {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	return NewGraphSheet(GraphOptions{
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "secret",
		ShareLink:    testShareLink,
		Worksheet:    "CricAuction Auction",
		MaxAttempts:  3,
		RetryWait:    time.Millisecond,
		LoginURL:     srv.URL + "/login",
		GraphURL:     srv.URL + "/api",
	}, utils.NewDiscardLogger())
}

func TestShareIDIsUnpaddedBase64URL(t *testing.T) {
	id := ShareID("https://x/?a")
	require.True(t, strings.HasPrefix(id, "u!"))
	require.NotContains(t, id, "=")
	require.NotContains(t, id, "+")
	require.NotContains(t, id, "/")
}

func TestGraphSheetEnsureCreatesMissingWorksheet(t *testing.T) {
	f := &fakeGraph{sheets: []string{"Sheet1"}}
	sheet := newTestSheet(t, f)

	require.NoError(t, sheet.EnsureWorksheet(context.Background()))
	require.Equal(t, "CricAuction Auction", f.addedSheet)

	f.addedSheet = ""
	require.NoError(t, sheet.EnsureWorksheet(context.Background()))
	require.Empty(t, f.addedSheet, "existing worksheet must not be re-added")

	require.Equal(t, 1, f.tokenCalls, "token should be cached across calls")
	for _, h := range f.authHeaders {
		require.Equal(t, "Bearer tok-123", h)
	}
}

func TestGraphSheetUsedValuesRetriesServerErrors(t *testing.T) {
	f := &fakeGraph{
		usedFailures: 2,
		used: [][]any{
			{"Tournament Name", "Location", "Total players", "Auction Date", "Date Added"},
			{"Summer Cup", "Pune", 16.0, 45748.0, "2025-03-01"},
		},
	}
	sheet := newTestSheet(t, f)

	values, err := sheet.UsedValues(context.Background())
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, 45748.0, values[1][3])
}

func TestGraphSheetUsedValuesGivesUpAfterMaxAttempts(t *testing.T) {
	f := &fakeGraph{usedFailures: 10}
	sheet := newTestSheet(t, f)

	_, err := sheet.UsedValues(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Equal(t, 7, f.usedFailures)
}

func TestGraphSheetWriteRange(t *testing.T) {
	f := &fakeGraph{}
	sheet := newTestSheet(t, f)

	rows := [][]string{{"Winter Bash", "Delhi", "24", "2025-05-10", "2025-04-02"}}
	require.NoError(t, sheet.WriteRange(context.Background(), "A3:E3", rows))
	require.Equal(t, "/api/drives/drive-1/items/item-1/workbook/worksheets('CricAuction Auction')/range(address='A3:E3')", f.patchPath)
	require.Equal(t, rows, f.patchValues)
}

func TestGraphSheetAuthFailure(t *testing.T) {
	f := &fakeGraph{tokenStatus: http.StatusUnauthorized}
	sheet := newTestSheet(t, f)

	_, err := sheet.UsedValues(context.Background())
	require.ErrorIs(t, err, ErrAuth)
}

func TestGraphSheetForbiddenShare(t *testing.T) {
	f := &fakeGraph{shareStatus: http.StatusForbidden}
	sheet := newTestSheet(t, f)

	err := sheet.EnsureWorksheet(context.Background())
	require.ErrorIs(t, err, ErrForbidden)
}

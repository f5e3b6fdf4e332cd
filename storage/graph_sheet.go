package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"cricauction-scraper/utils"
)

const (
	defaultLoginURL = "https://login.microsoftonline.com"
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	graphScope      = "https://graph.microsoft.com/.default"
)

var (
	// ErrAuth is returned when the token endpoint rejects the credentials.
	ErrAuth = errors.New("graph: token request rejected")
	// ErrForbidden is returned when the document is not reachable with app-only access.
	ErrForbidden = errors.New("graph: access forbidden")
)

// GraphOptions configures a GraphSheet.
type GraphOptions struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	ShareLink string
	Worksheet string

	// MaxAttempts is the total number of tries per call, counting the first.
	MaxAttempts int
	RetryWait   time.Duration

	// LoginURL and GraphURL default to the public cloud endpoints.
	LoginURL string
	GraphURL string
}

// GraphSheet is a worksheet inside a workbook reached through a sharing link.
type GraphSheet struct {
	opts   GraphOptions
	http   *resty.Client
	logger *utils.Logger

	token   string
	driveID string
	itemID  string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type driveItem struct {
	ID              string `json:"id"`
	ParentReference struct {
		DriveID string `json:"driveId"`
	} `json:"parentReference"`
}

type worksheetList struct {
	Value []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"value"`
}

type rangeValues struct {
	Values [][]any `json:"values"`
}

// NewGraphSheet builds the HTTP session. Nothing is contacted until the
// first call.
func NewGraphSheet(opts GraphOptions, logger *utils.Logger) *GraphSheet {
	if opts.LoginURL == "" {
		opts.LoginURL = defaultLoginURL
	}
	if opts.GraphURL == "" {
		opts.GraphURL = defaultGraphURL
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 400 * time.Millisecond
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(opts.MaxAttempts - 1)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryWait * 16)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		if r == nil {
			return false
		}
		code := r.StatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	})
	client.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		logger.Debug("[graph] %s %s -> %d", r.Request.Method, r.Request.URL, r.StatusCode())
		return nil
	})

	return &GraphSheet{opts: opts, http: client, logger: logger}
}

func (g *GraphSheet) accessToken(ctx context.Context) (string, error) {
	if g.token != "" {
		return g.token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var tok tokenResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("tenant", g.opts.TenantID).
		SetFormData(map[string]string{
			"client_id":     g.opts.ClientID,
			"client_secret": g.opts.ClientSecret,
			"grant_type":    "client_credentials",
			"scope":         graphScope,
		}).
		SetResult(&tok).
		Post(g.opts.LoginURL + "/{tenant}/oauth2/v2.0/token")
	if err != nil {
		return "", fmt.Errorf("graph: token request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w [%d]: %s", ErrAuth, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: response carried no access_token", ErrAuth)
	}

	g.token = tok.AccessToken
	return g.token, nil
}

// request returns an authorized request bound to ctx.
func (g *GraphSheet) request(ctx context.Context) (*resty.Request, error) {
	tok, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return g.http.R().SetContext(ctx).SetAuthToken(tok), nil
}

// ShareID encodes a sharing link the way the /shares endpoint expects.
func ShareID(link string) string {
	return "u!" + base64.RawURLEncoding.EncodeToString([]byte(link))
}

func (g *GraphSheet) ensureItem(ctx context.Context) error {
	if g.driveID != "" && g.itemID != "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	req, err := g.request(ctx)
	if err != nil {
		return err
	}

	var item driveItem
	resp, err := req.
		SetRawPathParam("share", ShareID(g.opts.ShareLink)).
		SetResult(&item).
		Get(g.opts.GraphURL + "/shares/{share}/driveItem")
	if err != nil {
		return fmt.Errorf("graph: resolve share link: %w", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return fmt.Errorf("%w: 403 from /shares, app-only access is blocked for this site; "+
			"grant the app write access to the site or switch to delegated auth", ErrForbidden)
	}
	if resp.IsError() {
		return fmt.Errorf("graph: resolve share link [%d]: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if item.ID == "" || item.ParentReference.DriveID == "" {
		return fmt.Errorf("graph: resolve share link: drive item is missing ids")
	}

	g.driveID = item.ParentReference.DriveID
	g.itemID = item.ID
	g.logger.Debug("[graph] Resolved workbook drive=%s item=%s", g.driveID, g.itemID)
	return nil
}

func (g *GraphSheet) workbookURL() string {
	return g.opts.GraphURL + "/drives/" + g.driveID + "/items/" + g.itemID + "/workbook"
}

// quotedWorksheet returns the OData-quoted worksheet name; resty path-escapes it.
func (g *GraphSheet) quotedWorksheet() string {
	return strings.ReplaceAll(g.opts.Worksheet, "'", "''")
}

// EnsureWorksheet creates the worksheet when the workbook lacks it.
func (g *GraphSheet) EnsureWorksheet(ctx context.Context) error {
	if err := g.ensureItem(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	req, err := g.request(ctx)
	if err != nil {
		return err
	}
	var list worksheetList
	resp, err := req.SetResult(&list).Get(g.workbookURL() + "/worksheets")
	if err != nil {
		return fmt.Errorf("graph: list worksheets: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("graph: list worksheets [%d]: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	for _, ws := range list.Value {
		if ws.Name == g.opts.Worksheet {
			return nil
		}
	}

	req, err = g.request(ctx)
	if err != nil {
		return err
	}
	resp, err = req.
		SetBody(map[string]string{"name": g.opts.Worksheet}).
		Post(g.workbookURL() + "/worksheets/add")
	if err != nil {
		return fmt.Errorf("graph: add worksheet: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		g.logger.Info("[graph] Worksheet %q ready", g.opts.Worksheet)
		return nil
	}
	return fmt.Errorf("graph: add worksheet [%d]: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
}

// UsedValues reads the worksheet's used range, values only.
func (g *GraphSheet) UsedValues(ctx context.Context) ([][]any, error) {
	if err := g.ensureItem(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := g.request(ctx)
	if err != nil {
		return nil, err
	}
	var out rangeValues
	resp, err := req.
		SetPathParam("ws", g.quotedWorksheet()).
		SetResult(&out).
		Get(g.workbookURL() + "/worksheets('{ws}')/usedRange(valuesOnly=true)")
	if err != nil {
		return nil, fmt.Errorf("graph: used range: %w", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return nil, fmt.Errorf("%w: used range", ErrForbidden)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("graph: used range [%d]: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return out.Values, nil
}

// WriteRange writes rows into the explicit address, e.g. "A2:E4".
func (g *GraphSheet) WriteRange(ctx context.Context, address string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := g.ensureItem(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := g.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("ws", g.quotedWorksheet()).
		SetPathParam("address", address).
		SetBody(map[string]any{"values": rows}).
		Patch(g.workbookURL() + "/worksheets('{ws}')/range(address='{address}')")
	if err != nil {
		return fmt.Errorf("graph: write range: %w", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return fmt.Errorf("%w: write range %s", ErrForbidden, address)
	}
	if resp.IsError() {
		return fmt.Errorf("graph: write range %s [%d]: %s", address, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	ports "adstats/internal/adsense"
	"adstats/internal/core"
	applog "adstats/internal/log"

	"golang.org/x/oauth2"
	gadsense "google.golang.org/api/adsense/v2"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
)

// Scope is the OAuth scope the token provider must request.
const Scope = gadsense.AdsenseReadonlyScope

const accountsPageSize = 50

type Client struct {
	endpoint  string
	transport http.RoundTripper
	timeout   time.Duration
	logger    *applog.Logger
}

// Ensure interface conformance
var _ ports.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API base URL, e.g. for a local fake server.
// The value must end with a slash.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		c.endpoint = endpoint
	}
}

// WithTransport sets the round tripper that carries authenticated requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout bounds every single API request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(applog.ComponentAdSense) }
}

// New creates an AdSense Management API client. Credentials are not bound
// to the client; each call authenticates with the credential it is given.
func New(opts ...Option) *Client {
	c := &Client{
		transport: newPooledTransport(),
		timeout:   30 * time.Second,
		logger:    applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newPooledTransport creates a transport tuned for the AdSense API with
// connection pooling, proper timeouts and keep-alive settings. It is shared
// by every per-credential service so connections survive across runs.
func newPooledTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		// A run issues at most nine concurrent report requests.
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}
}

// bearerTransport authenticates every request with cred. The request seen
// by the caller is left untouched.
func bearerTransport(cred core.Credential, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(cred), TokenType: "Bearer"}),
		Base:   base,
	}
}

// service builds an API service whose requests carry cred as a bearer token.
func (c *Client) service(ctx context.Context, cred core.Credential) (*gadsense.Service, error) {
	if strings.TrimSpace(string(cred)) == "" {
		return nil, &core.AuthError{Err: errors.New("empty access token")}
	}

	httpClient := &http.Client{
		Transport: bearerTransport(cred, c.transport),
		Timeout:   c.timeout,
	}
	opts := []goption.ClientOption{goption.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, goption.WithEndpoint(c.endpoint))
	}

	svc, err := gadsense.NewService(ctx, opts...)
	if err != nil {
		return nil, &core.UnexpectedError{Err: fmt.Errorf("create adsense service: %w", err)}
	}
	return svc, nil
}

// ListAccounts returns every account visible to the credential, following
// pagination, in API order.
func (c *Client) ListAccounts(ctx context.Context, cred core.Credential) ([]core.Account, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var accounts []core.Account
	err = svc.Accounts.List().PageSize(accountsPageSize).Pages(ctx, func(resp *gadsense.ListAccountsResponse) error {
		for _, a := range resp.Accounts {
			if a == nil {
				continue
			}
			accounts = append(accounts, core.Account{Name: a.Name, DisplayName: a.DisplayName})
		}
		return nil
	})
	if err != nil {
		return nil, toAPIError(err)
	}

	c.logger.DebugContext(ctx, "Listed accounts",
		applog.FieldOperation, applog.OpListAccounts,
		"count", len(accounts),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return accounts, nil
}

// GenerateReport requests the estimated earnings of accountID over w.
func (c *Client) GenerateReport(ctx context.Context, cred core.Credential, accountID string, w core.DateWindow) (core.ReportTable, error) {
	if strings.TrimSpace(accountID) == "" {
		return core.ReportTable{}, &core.UnexpectedError{Err: core.ErrEmptyAccountID}
	}
	svc, err := c.service(ctx, cred)
	if err != nil {
		return core.ReportTable{}, err
	}

	start := time.Now()
	res, err := svc.Accounts.Reports.Generate(accountID).
		Metrics(core.MetricEstimatedEarnings).
		StartDateYear(int64(w.Start.Year())).
		StartDateMonth(int64(w.Start.Month())).
		StartDateDay(int64(w.Start.Day())).
		EndDateYear(int64(w.End.Year())).
		EndDateMonth(int64(w.End.Month())).
		EndDateDay(int64(w.End.Day())).
		Context(ctx).
		Do()
	if err != nil {
		return core.ReportTable{}, toAPIError(err)
	}

	c.logger.DebugContext(ctx, "Generated report",
		applog.NewFields().
			WithOperation(applog.OpFetchEarnings).
			WithReport(accountID, w.String(), time.Since(start).Milliseconds()).
			ToSlice()...)
	return toReportTable(res), nil
}

// toReportTable flattens the API result into the transport-neutral shape.
func toReportTable(res *gadsense.ReportResult) core.ReportTable {
	if res == nil {
		return core.ReportTable{}
	}
	table := core.ReportTable{
		Headers: make([]core.ReportHeader, 0, len(res.Headers)),
		Rows:    make([][]string, 0, len(res.Rows)),
	}
	for _, h := range res.Headers {
		if h == nil {
			table.Headers = append(table.Headers, core.ReportHeader{})
			continue
		}
		table.Headers = append(table.Headers, core.ReportHeader{Name: h.Name, CurrencyCode: h.CurrencyCode})
	}
	for _, r := range res.Rows {
		if r == nil {
			continue
		}
		cells := make([]string, len(r.Cells))
		for i, cell := range r.Cells {
			if cell != nil {
				cells[i] = cell.Value
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// toAPIError maps SDK and transport failures onto core.APIError. Errors that
// are already classified pass through.
func toAPIError(err error) error {
	var (
		gerr    *googleapi.Error
		authErr *core.AuthError
	)
	switch {
	case errors.As(err, &authErr):
		return err
	case errors.As(err, &gerr):
		return &core.APIError{
			Status:  gerr.Code,
			Body:    gerr.Body,
			Message: gerr.Message,
			Err:     err,
		}
	default:
		return &core.APIError{Err: err}
	}
}

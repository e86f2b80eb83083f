package sentinel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/forest-guardian/sentinel-scl/internal/properties"
	"golang.org/x/oauth2"
)

var (
	// ErrSession is returned when the catalog session cannot be established.
	ErrSession = errors.New("catalog session failed")
	// ErrQuery is returned when the catalog rejects or fails a product query.
	ErrQuery = errors.New("catalog query failed")
)

const defaultPageSize = 100

// Entry is one candidate product returned by the catalog.
type Entry struct {
	ID            string
	Name          string
	Title         string
	IngestionDate time.Time
	CloudCover    float64
	ContentLength int64
	Online        bool
	// Checksums maps a lowercase algorithm name (md5, blake3) to its hex value.
	Checksums map[string]string
}

// MD5 returns the catalog MD5 checksum, or "" when none was published.
func (e Entry) MD5() string {
	return e.Checksums["md5"]
}

// Catalog is the remote product archive the acquire stage talks to.
type Catalog interface {
	Open(ctx context.Context) error
	Query(ctx context.Context, criteria Criteria) ([]Entry, error)
	Download(ctx context.Context, entry Entry, destDir string, verify bool) (DownloadInfo, error)
}

// Client talks to the Copernicus Data Space OData catalogue and zipper services.
type Client struct {
	username    string
	password    string
	catalogURL  string
	downloadURL string
	oauth       *oauth2.Config
	httpClient  *http.Client
	session     *http.Client
	pageSize    int
	progress    bool
}

type Option func(*Client)

func WithCatalogURL(u string) Option {
	return func(c *Client) {
		c.catalogURL = strings.TrimRight(u, "/")
	}
}

func WithDownloadURL(u string) Option {
	return func(c *Client) {
		c.downloadURL = strings.TrimRight(u, "/")
	}
}

func WithTokenURL(u string) Option {
	return func(c *Client) {
		c.oauth.Endpoint.TokenURL = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithProgress toggles the download progress bar.
func WithProgress(enabled bool) Option {
	return func(c *Client) {
		c.progress = enabled
	}
}

// NewClient builds a client using the endpoints from properties unless
// overridden by options.
func NewClient(username, password string, opts ...Option) *Client {
	c := &Client{
		username:    username,
		password:    password,
		catalogURL:  properties.CatalogURL(),
		downloadURL: properties.DownloadURL(),
		oauth: &oauth2.Config{
			ClientID: properties.ClientID(),
			Endpoint: oauth2.Endpoint{
				TokenURL:  properties.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: http.DefaultClient,
		pageSize:   defaultPageSize,
		progress:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open exchanges the operator credentials for a token. The resulting session
// refreshes the token on its own.
func (c *Client) Open(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.PasswordCredentialsToken(ctx, c.username, c.password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSession, err)
	}
	c.session = c.oauth.Client(ctx, token)
	slog.Debug("catalog session opened", "token_url", c.oauth.Endpoint.TokenURL, "expiry", token.Expiry)
	return nil
}

type odataChecksum struct {
	Value     string `json:"Value"`
	Algorithm string `json:"Algorithm"`
}

type odataAttribute struct {
	Name      string          `json:"Name"`
	Value     json.RawMessage `json:"Value"`
	ValueType string          `json:"ValueType"`
}

type odataProduct struct {
	ID              string           `json:"Id"`
	Name            string           `json:"Name"`
	ContentLength   int64            `json:"ContentLength"`
	PublicationDate string           `json:"PublicationDate"`
	Online          bool             `json:"Online"`
	Checksum        []odataChecksum  `json:"Checksum"`
	Attributes      []odataAttribute `json:"Attributes"`
}

type odataResponse struct {
	Value    []odataProduct `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// Query returns every Level-2A entry matching criteria, following
// @odata.nextLink until the result set is exhausted.
func (c *Client) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	if c.session == nil {
		return nil, fmt.Errorf("%w: session not opened", ErrSession)
	}

	values := url.Values{}
	values.Set("$filter", BuildFilter(criteria))
	values.Set("$expand", "Attributes")
	values.Set("$top", fmt.Sprintf("%d", c.pageSize))
	next := c.catalogURL + "/Products?" + values.Encode()

	var entries []Entry
	for page := 1; next != ""; page++ {
		resp, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, p := range resp.Value {
			entry, err := p.toEntry()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrQuery, err)
			}
			entries = append(entries, entry)
		}
		slog.Debug("catalog page fetched", "page", page, "entries", len(resp.Value))
		next = resp.NextLink
	}
	return entries, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*odataResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: status %d: %s", ErrQuery, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out odataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQuery, err)
	}
	return &out, nil
}

// BuildFilter renders the OData $filter for a Level-2A search.
func BuildFilter(criteria Criteria) string {
	clauses := []string{
		fmt.Sprintf("Collection/Name eq '%s'", PlatformName),
		fmt.Sprintf("Attributes/OData.CSC.StringAttribute/any(att:att/Name eq 'productType' and att/OData.CSC.StringAttribute/Value eq '%s')", ProductTypeL2A),
		fmt.Sprintf("OData.CSC.Intersects(area=geography'SRID=4326;%s')", criteria.Footprint),
		fmt.Sprintf("PublicationDate ge %s", formatODataTime(criteria.Start)),
		fmt.Sprintf("PublicationDate le %s", formatODataTime(criteria.End)),
		fmt.Sprintf("Attributes/OData.CSC.DoubleAttribute/any(att:att/Name eq 'cloudCover' and att/OData.CSC.DoubleAttribute/Value ge 0.00 and att/OData.CSC.DoubleAttribute/Value le %d.00)", criteria.MaxCloudCover),
	}
	return strings.Join(clauses, " and ")
}

func formatODataTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (p odataProduct) toEntry() (Entry, error) {
	ingested, err := time.Parse(time.RFC3339Nano, p.PublicationDate)
	if err != nil {
		return Entry{}, fmt.Errorf("product %s: invalid PublicationDate %q: %w", p.ID, p.PublicationDate, err)
	}

	entry := Entry{
		ID:            p.ID,
		Name:          p.Name,
		Title:         strings.TrimSuffix(p.Name, ".SAFE"),
		IngestionDate: ingested,
		ContentLength: p.ContentLength,
		Online:        p.Online,
		Checksums:     make(map[string]string, len(p.Checksum)),
	}
	for _, sum := range p.Checksum {
		if sum.Value != "" {
			entry.Checksums[strings.ToLower(sum.Algorithm)] = strings.ToLower(sum.Value)
		}
	}
	for _, attr := range p.Attributes {
		if attr.Name != "cloudCover" {
			continue
		}
		if err := json.Unmarshal(attr.Value, &entry.CloudCover); err != nil {
			return Entry{}, fmt.Errorf("product %s: invalid cloudCover: %w", p.ID, err)
		}
	}
	return entry, nil
}

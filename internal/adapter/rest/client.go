package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/Angellovem/biocredits-calc/internal/observability"
)

const pageLimit = 200

// Client talks to the registry's REST API. It serves as land source,
// observation source, result sink, and audit log for deployments without
// direct database access.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	records    *lruCache
}

// NewClient creates a registry API client. Linked-record lookups are cached
// with an LRU of cacheSize entries.
func NewClient(baseURL, apiKey string, timeout time.Duration, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
		records:    newLRUCache(cacheSize),
	}
}

// API payload types.

type plotDTO struct {
	PlotID          string            `json:"plot_id"`
	CRS             string            `json:"crs"`
	POD             string            `json:"pod"`
	ProjectID       string            `json:"project_id"`
	CertifierRecord string            `json:"certifier_record"`
	CertifierID     string            `json:"certifier_id"`
	CertifiedAreaHa float64           `json:"certified_area_ha"`
	Boundary        *geojson.Geometry `json:"boundary"`
}

type observationDTO struct {
	EcoID       string    `json:"eco_id"`
	Lat         float64   `json:"lat"`
	Long        float64   `json:"long"`
	EcoDate     time.Time `json:"eco_date"`
	Radius      float64   `json:"radius"`
	Score       float64   `json:"score"`
	NameCommon  string    `json:"name_common"`
	NameLatin   string    `json:"name_latin"`
	CertifierID string    `json:"certifier_id"`
	INaturalist string    `json:"inaturalist"`
}

type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type recordDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FetchPlots pages through /land-plots. Certifier links are resolved to
// names through the record cache.
func (c *Client) FetchPlots(ctx context.Context) ([]domain.RawPlot, error) {
	var raws []domain.RawPlot
	for offset := 0; ; offset += pageLimit {
		var p page[plotDTO]
		if err := c.getJSON(ctx, "plots", c.pageURL("/land-plots", offset, nil), &p); err != nil {
			return nil, fmt.Errorf("fetch plots: %w", err)
		}
		for _, dto := range p.Items {
			raws = append(raws, c.toRawPlot(ctx, dto))
		}
		if len(p.Items) < pageLimit {
			return raws, nil
		}
	}
}

// FetchObservations pages through /observations. The backend applies the
// radius and score filters; the window bound travels as a query parameter.
func (c *Client) FetchObservations(ctx context.Context, since time.Time) ([]domain.RawObservation, error) {
	params := url.Values{"since": {since.UTC().Format(time.RFC3339)}}

	var raws []domain.RawObservation
	for offset := 0; ; offset += pageLimit {
		var p page[observationDTO]
		if err := c.getJSON(ctx, "observations", c.pageURL("/observations", offset, params), &p); err != nil {
			return nil, fmt.Errorf("fetch observations: %w", err)
		}
		for _, dto := range p.Items {
			raws = append(raws, domain.RawObservation{
				ID:          dto.EcoID,
				Point:       orb.Point{dto.Long, dto.Lat},
				SourceRef:   domain.RefWGS84,
				Date:        dto.EcoDate,
				Radius:      dto.Radius,
				Score:       dto.Score,
				CommonName:  dto.NameCommon,
				LatinName:   dto.NameLatin,
				CertifierID: dto.CertifierID,
				ExternalRef: dto.INaturalist,
			})
		}
		if len(p.Items) < pageLimit {
			return raws, nil
		}
	}
}

// StoreDailyUnions posts coverage records to /results/daily-unions.
func (c *Client) StoreDailyUnions(ctx context.Context, unions []domain.DailyUnion) error {
	if len(unions) == 0 {
		return nil
	}

	type unionDTO struct {
		PlotID       string            `json:"plot_id"`
		Day          string            `json:"day"`
		AreaM2       float64           `json:"area_m2"`
		Observations int               `json:"observations"`
		Covered      *geojson.Geometry `json:"covered"`
	}

	payload := make([]unionDTO, 0, len(unions))
	for _, du := range unions {
		payload = append(payload, unionDTO{
			PlotID:       du.PlotID,
			Day:          du.Day.String(),
			AreaM2:       du.Area,
			Observations: du.Observations,
			Covered:      geojson.NewGeometry(du.Covered),
		})
	}
	return c.postJSON(ctx, "/results/daily-unions", payload)
}

// StoreScores posts credit scores to /results/credit-scores.
func (c *Client) StoreScores(ctx context.Context, scores []domain.CreditScore) error {
	if len(scores) == 0 {
		return nil
	}

	type scoreDTO struct {
		PlotID         string    `json:"plot_id"`
		ProjectID      string    `json:"project_id"`
		CertifierID    string    `json:"certifier_id"`
		CreditedAreaM2 float64   `json:"credited_area_m2"`
		WeightedCredit float64   `json:"weighted_credit"`
		Days           int       `json:"days"`
		FromDay        string    `json:"from_day"`
		ToDay          string    `json:"to_day"`
		RunID          string    `json:"run_id"`
		ComputedAt     time.Time `json:"computed_at"`
	}

	payload := make([]scoreDTO, 0, len(scores))
	for _, s := range scores {
		payload = append(payload, scoreDTO{
			PlotID:         s.PlotID,
			ProjectID:      s.ProjectID,
			CertifierID:    s.CertifierID,
			CreditedAreaM2: s.CreditedArea,
			WeightedCredit: s.WeightedCredit,
			Days:           s.Days,
			FromDay:        s.From.String(),
			ToDay:          s.To.String(),
			RunID:          s.RunID,
			ComputedAt:     s.ComputedAt,
		})
	}
	return c.postJSON(ctx, "/results/credit-scores", payload)
}

// ClearResults deletes both result collections.
func (c *Client) ClearResults(ctx context.Context) error {
	for _, table := range []string{"daily-unions", "credit-scores"} {
		if err := c.doJSON(ctx, http.MethodDelete, "/results/"+table, nil, nil); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// LogEntry posts one audit log line.
func (c *Client) LogEntry(ctx context.Context, event, info string) error {
	payload := map[string]string{"event": event, "info": info}
	return c.postJSON(ctx, "/logs", payload)
}

// LinkedRecordName resolves a linked record id to its display name, served
// from the LRU cache when possible.
func (c *Client) LinkedRecordName(ctx context.Context, id string) (string, error) {
	if name, ok := c.records.get(id); ok {
		c.metrics.RecordCache.WithLabelValues("hit").Inc()
		return name, nil
	}
	c.metrics.RecordCache.WithLabelValues("miss").Inc()

	var rec recordDTO
	if err := c.getJSON(ctx, "records", c.baseURL+"/records/"+url.PathEscape(id), &rec); err != nil {
		return "", fmt.Errorf("fetch record %s: %w", id, err)
	}
	if rec.Name != "" {
		if c.records.put(id, rec.Name) {
			c.metrics.RecordCache.WithLabelValues("evict").Inc()
		}
	}
	return rec.Name, nil
}

func (c *Client) toRawPlot(ctx context.Context, dto plotDTO) domain.RawPlot {
	raw := domain.RawPlot{
		ID:            dto.PlotID,
		SourceRef:     dto.CRS,
		POD:           dto.POD,
		ProjectID:     dto.ProjectID,
		CertifierID:   dto.CertifierID,
		CertifiedArea: dto.CertifiedAreaHa,
	}
	if raw.SourceRef == "" {
		raw.SourceRef = domain.RefWGS84
	}
	if dto.Boundary != nil {
		raw.Boundary = dto.Boundary.Geometry()
	}
	if dto.CertifierRecord != "" {
		name, err := c.LinkedRecordName(ctx, dto.CertifierRecord)
		if err != nil {
			c.logger.Warn("certifier record lookup failed", "plot_id", dto.PlotID, "record", dto.CertifierRecord, "error", err)
		} else if name != "" {
			raw.CertifierID = name
		}
	}
	return raw
}

func (c *Client) pageURL(path string, offset int, params url.Values) string {
	v := url.Values{}
	for key, vals := range params {
		v[key] = vals
	}
	v.Set("limit", strconv.Itoa(pageLimit))
	v.Set("offset", strconv.Itoa(offset))
	return c.baseURL + path + "?" + v.Encode()
}

func (c *Client) getJSON(ctx context.Context, resource, fullURL string, out any) error {
	start := time.Now()
	err := c.doJSON(ctx, http.MethodGet, fullURL, nil, out)
	c.metrics.SourceAPIDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.SourceRequests.WithLabelValues(resource, "error").Inc()
		return err
	}
	c.metrics.SourceRequests.WithLabelValues(resource, "success").Inc()
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	return c.doJSON(ctx, http.MethodPost, path, payload, nil)
}

// doJSON issues one request. Relative paths are resolved against baseURL;
// fully qualified URLs pass through untouched.
func (c *Client) doJSON(ctx context.Context, method, pathOrURL string, payload, out any) error {
	fullURL := pathOrURL
	if len(fullURL) == 0 || fullURL[0] == '/' {
		fullURL = c.baseURL + pathOrURL
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, pathOrURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("registry API error: status %d: %s", resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package nhtsa decodes VINs with the NHTSA vPIC API.
package nhtsa

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

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/observability"
)

// DefaultBaseURL is the public vPIC endpoint.
const DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

// Client implements domain.Decoder using the vPIC DecodeVinValues endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a vPIC client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Decode fetches vehicle details for a normalized VIN. A response without a
// make or model is reported as domain.ErrVINNotFound.
func (c *Client) Decode(ctx context.Context, vin string) (domain.Vehicle, error) {
	u := fmt.Sprintf("%s/DecodeVinValues/%s?%s", c.baseURL, url.PathEscape(vin), url.Values{"format": {"json"}}.Encode())

	start := time.Now()
	v, err := c.doRequest(ctx, u)
	c.metrics.DecodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.DecodeRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrVINNotFound):
		c.metrics.DecodeRequests.WithLabelValues("not_found").Inc()
	default:
		c.metrics.DecodeRequests.WithLabelValues("error").Inc()
		c.logger.Warn("vpic request failed", "vin", vin, "error", err)
	}
	if err != nil {
		return domain.Vehicle{}, err
	}

	v.VIN = vin
	return v, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("vpic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Vehicle{}, fmt.Errorf("vpic API error: status %d: %s", resp.StatusCode, body)
	}

	var vpicResp response
	if err := json.NewDecoder(resp.Body).Decode(&vpicResp); err != nil {
		return domain.Vehicle{}, fmt.Errorf("decode response: %w", err)
	}

	if len(vpicResp.Results) == 0 {
		return domain.Vehicle{}, fmt.Errorf("%w: empty result set", domain.ErrVINNotFound)
	}

	r := vpicResp.Results[0]
	if r.Make == "" && r.Model == "" {
		return domain.Vehicle{}, fmt.Errorf("%w: %s", domain.ErrVINNotFound, firstLine(r.ErrorText))
	}
	return r.vehicle(), nil
}

// firstLine trims vPIC's multi-sentence error text to its leading code and message.
func firstLine(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// vPIC API response types.

type response struct {
	Count          int      `json:"Count"`
	Message        string   `json:"Message"`
	SearchCriteria string   `json:"SearchCriteria"`
	Results        []result `json:"Results"`
}

type result struct {
	Make              string `json:"Make"`
	Model             string `json:"Model"`
	ModelYear         string `json:"ModelYear"`
	Trim              string `json:"Trim"`
	Series            string `json:"Series"`
	Manufacturer      string `json:"Manufacturer"`
	VehicleType       string `json:"VehicleType"`
	BodyClass         string `json:"BodyClass"`
	DriveType         string `json:"DriveType"`
	FuelTypePrimary   string `json:"FuelTypePrimary"`
	EngineCylinders   string `json:"EngineCylinders"`
	DisplacementL     string `json:"DisplacementL"`
	TransmissionStyle string `json:"TransmissionStyle"`
	Doors             string `json:"Doors"`
	PlantCity         string `json:"PlantCity"`
	PlantCountry      string `json:"PlantCountry"`
	ErrorCode         string `json:"ErrorCode"`
	ErrorText         string `json:"ErrorText"`
}

func (r result) vehicle() domain.Vehicle {
	return domain.Vehicle{
		Make:            r.Make,
		Model:           r.Model,
		Year:            r.ModelYear,
		Trim:            r.Trim,
		Series:          r.Series,
		Manufacturer:    r.Manufacturer,
		VehicleType:     r.VehicleType,
		BodyClass:       r.BodyClass,
		DriveType:       r.DriveType,
		FuelType:        r.FuelTypePrimary,
		EngineCylinders: r.EngineCylinders,
		DisplacementL:   r.DisplacementL,
		Transmission:    r.TransmissionStyle,
		Doors:           r.Doors,
		PlantCity:       r.PlantCity,
		PlantCountry:    r.PlantCountry,
		ErrorCode:       r.ErrorCode,
		ErrorText:       r.ErrorText,
	}
}

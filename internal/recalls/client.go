package recalls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
)

const (
	// DefaultBaseURL is the recalls.sa public search page.
	DefaultBaseURL = "https://recalls.sa/Recall/Search"
	// DefaultTimeout bounds every lookup.
	DefaultTimeout = 15 * time.Second
	// Source is recorded on every recall this client returns.
	Source = "recalls.sa"

	maxBodyBytes = 4 << 20
)

var ErrMissingMake = errors.New("make is required for recall lookup")

// Client fetches recall campaigns for a vehicle.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Search returns recalls matching make, and model and year when given.
func (c *Client) Search(ctx context.Context, vehicleMake, vehicleModel string, year int) ([]models.Recall, error) {
	vehicleMake = strings.TrimSpace(vehicleMake)
	if vehicleMake == "" {
		return nil, ErrMissingMake
	}

	q := url.Values{}
	q.Set("Make", vehicleMake)
	if vehicleModel != "" {
		q.Set("Model", strings.TrimSpace(vehicleModel))
	}
	if year > 0 {
		q.Set("Year", strconv.Itoa(year))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "carmemo/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recall search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recall search: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	all, err := ParseTable(string(body))
	if err != nil {
		return nil, err
	}
	matched := Filter(all, vehicleMake, vehicleModel, year)

	log.WithFields(log.Fields{
		"make":    vehicleMake,
		"model":   vehicleModel,
		"year":    year,
		"rows":    len(all),
		"matched": len(matched),
	}).Debug("Recall search complete")
	return matched, nil
}

// ForVehicle looks recalls up for a vehicle. Lookup failures are logged and
// yield no recalls so vehicle writes are never blocked by the recall source.
func (c *Client) ForVehicle(ctx context.Context, v models.Vehicle) []models.Recall {
	found, err := c.Search(ctx, v.Make, v.Model, v.Year)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"make":  v.Make,
			"model": v.Model,
			"year":  v.Year,
		}).Warn("Recall lookup failed")
		return nil
	}
	return found
}

// Filter keeps recalls whose make matches, whose model contains the given
// model, and whose year range covers year. Empty columns never exclude a row.
func Filter(all []models.Recall, vehicleMake, vehicleModel string, year int) []models.Recall {
	var out []models.Recall
	for _, r := range all {
		if r.Make != "" && !strings.EqualFold(r.Make, vehicleMake) {
			continue
		}
		if vehicleModel != "" && r.Model != "" &&
			!strings.Contains(strings.ToLower(r.Model), strings.ToLower(vehicleModel)) {
			continue
		}
		if year > 0 && r.Years != "" && !yearsCover(r.Years, year) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// yearsCover understands "2019", "2018-2021" and comma separated lists.
func yearsCover(years string, year int) bool {
	for _, part := range strings.Split(years, ",") {
		part = strings.TrimSpace(part)
		if from, to, ok := strings.Cut(part, "-"); ok {
			lo, err1 := strconv.Atoi(strings.TrimSpace(from))
			hi, err2 := strconv.Atoi(strings.TrimSpace(to))
			if err1 == nil && err2 == nil && year >= lo && year <= hi {
				return true
			}
			continue
		}
		if y, err := strconv.Atoi(part); err == nil && y == year {
			return true
		}
	}
	return false
}

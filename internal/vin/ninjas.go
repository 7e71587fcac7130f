package vin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ukydev/carmemo/internal/models"
)

// DefaultNinjasURL is the API Ninjas VIN lookup endpoint.
const DefaultNinjasURL = "https://api.api-ninjas.com/v1/vinlookup"

// NinjasDecoder looks VINs up through API Ninjas. The service reports the
// manufacturer and candidate model years but not the model.
type NinjasDecoder struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewNinjasDecoder(apiKey string) *NinjasDecoder {
	return &NinjasDecoder{
		BaseURL: DefaultNinjasURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type ninjasResponse struct {
	VIN          string `json:"vin"`
	Country      string `json:"country"`
	Manufacturer string `json:"manufacturer"`
	Region       string `json:"region"`
	Years        []int  `json:"years"`
}

func (d *NinjasDecoder) DecodeVIN(ctx context.Context, vin string) (*models.VINDetails, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"?vin="+url.QueryEscape(vin), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", d.APIKey)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vin lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vin lookup: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r ninjasResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("vin lookup: decode: %w", err)
	}
	if r.Manufacturer == "" {
		return nil, ErrNotDecoded
	}

	details := &models.VINDetails{
		VIN:          vin,
		Make:         makeFromManufacturer(r.Manufacturer),
		Manufacturer: r.Manufacturer,
		Country:      r.Country,
		Source:       "api-ninjas",
	}
	details.Year = likelyYear(r.Years, time.Now().Year())
	return details, nil
}

// makeFromManufacturer strips corporate suffixes, "Honda Motor Co., Ltd." -> "Honda".
func makeFromManufacturer(m string) string {
	fields := strings.Fields(m)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ",.")
}

// likelyYear picks the most recent candidate year that is not in the future.
// The model-year digit repeats every 30 years, so the service returns several.
func likelyYear(years []int, current int) int {
	sorted := append([]int(nil), years...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, y := range sorted {
		if y <= current+1 {
			return y
		}
	}
	return 0
}

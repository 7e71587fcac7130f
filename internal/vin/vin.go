package vin

import (
	"context"
	"errors"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
)

var (
	ErrInvalidVIN = errors.New("VIN must be 17 characters without I, O or Q")
	ErrNotDecoded = errors.New("VIN could not be decoded")
)

var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// Normalize uppercases and trims a VIN.
func Normalize(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// Valid reports whether vin has the ISO 3779 shape.
func Valid(vin string) bool {
	return vinPattern.MatchString(vin)
}

// Decoder resolves a VIN to vehicle details.
type Decoder interface {
	DecodeVIN(ctx context.Context, vin string) (*models.VINDetails, error)
}

// Chain tries each decoder in order. Fields left empty by an earlier decoder
// are filled from later ones; decoding stops once make, model and year are known.
type Chain struct {
	decoders []Decoder
}

func NewChain(decoders ...Decoder) *Chain {
	var ds []Decoder
	for _, d := range decoders {
		if d != nil {
			ds = append(ds, d)
		}
	}
	return &Chain{decoders: ds}
}

func (c *Chain) DecodeVIN(ctx context.Context, vin string) (*models.VINDetails, error) {
	vin = Normalize(vin)
	if !Valid(vin) {
		return nil, ErrInvalidVIN
	}

	var result *models.VINDetails
	for _, d := range c.decoders {
		details, err := d.DecodeVIN(ctx, vin)
		if err != nil {
			log.WithError(err).WithField("vin", vin).Warn("VIN decoder failed")
			continue
		}
		if details == nil {
			continue
		}
		if result == nil {
			copied := *details
			result = &copied
		} else {
			merge(result, details)
		}
		if result.Complete() {
			break
		}
	}

	if result == nil || (result.Make == "" && result.Model == "") {
		return nil, ErrNotDecoded
	}
	result.VIN = vin
	return result, nil
}

func merge(dst, src *models.VINDetails) {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.Make, src.Make)
	fill(&dst.Model, src.Model)
	fill(&dst.Trim, src.Trim)
	fill(&dst.BodyStyle, src.BodyStyle)
	fill(&dst.Engine, src.Engine)
	fill(&dst.Country, src.Country)
	fill(&dst.Manufacturer, src.Manufacturer)
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		if dst.Source == "" {
			dst.Source = src.Source
		} else {
			dst.Source += "+" + src.Source
		}
	}
}

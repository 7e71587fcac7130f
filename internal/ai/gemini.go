package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

var (
	ErrMissingAPIKey = errors.New("gemini API key is required")
	ErrEmptyImage    = errors.New("receipt image is empty")
)

// generateFunc sends the parts as a single user turn and returns the text of
// the reply.
type generateFunc func(ctx context.Context, parts []*genai.Part) (string, error)

// Gemini wraps the Gemini API for schedule generation, VIN decoding and
// receipt extraction. All replies are requested as JSON.
type Gemini struct {
	model    string
	generate generateFunc
}

// NewGemini creates a Gemini client for the given model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	g := &Gemini{model: model}
	g.generate = func(ctx context.Context, parts []*genai.Part) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model,
			[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

func newGeminiWith(model string, generate generateFunc) *Gemini {
	return &Gemini{model: model, generate: generate}
}

func (g *Gemini) Model() string { return g.model }

type scheduleReply struct {
	Schedule []struct {
		Item             string  `json:"item"`
		IntervalDistance float64 `json:"interval_distance"`
		IntervalMonths   int     `json:"interval_months"`
		Category         string  `json:"category"`
		Urgency          string  `json:"urgency"`
	} `json:"schedule"`
}

const schedulePrompt = `You are an automotive service advisor.
Produce the manufacturer recommended maintenance schedule for a %d %s %s.
Distances are in kilometers. Reply with JSON only, shaped as:
{"schedule":[{"item":"Engine Oil & Filter","interval_distance":10000,"interval_months":6,"category":"%s","urgency":"High|Medium|Low"}]}
Use one of these categories: %s.
Cover every recurring service up to at least 200000 km.`

// GenerateBaselineSchedule asks the model for a make/model/year schedule.
func (g *Gemini) GenerateBaselineSchedule(ctx context.Context, vehicleMake, vehicleModel string, year int) ([]models.BaselineScheduleItem, error) {
	prompt := fmt.Sprintf(schedulePrompt, year, vehicleMake, vehicleModel, models.CategoryOilChange, categoryList())

	text, err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)})
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}

	reply, err := decodeJSON[scheduleReply](text)
	if err != nil {
		return nil, err
	}

	items := make([]models.BaselineScheduleItem, 0, len(reply.Schedule))
	for _, s := range reply.Schedule {
		if strings.TrimSpace(s.Item) == "" || s.IntervalDistance <= 0 {
			continue
		}
		items = append(items, models.BaselineScheduleItem{
			ID:               uuid.New().String(),
			Item:             strings.TrimSpace(s.Item),
			IntervalDistance: s.IntervalDistance,
			IntervalMonths:   s.IntervalMonths,
			Category:         s.Category,
			Urgency:          parseUrgency(s.Urgency),
		})
	}

	log.WithFields(log.Fields{
		"make":  vehicleMake,
		"model": vehicleModel,
		"year":  year,
		"items": len(items),
	}).Debug("Gemini returned baseline schedule")
	return items, nil
}

func categoryList() string {
	names := make([]string, len(models.CanonicalCategories))
	for i, c := range models.CanonicalCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func parseUrgency(s string) models.Urgency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return models.UrgencyHigh
	case "low":
		return models.UrgencyLow
	default:
		return models.UrgencyMedium
	}
}

const vinPrompt = `Decode the vehicle identification number %s.
Reply with JSON only: {"make":"","model":"","year":0,"trim":"","body_style":"","engine":"","country":""}.
Leave a field empty when it cannot be determined from the VIN.`

type vinReply struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	Trim      string `json:"trim"`
	BodyStyle string `json:"body_style"`
	Engine    string `json:"engine"`
	Country   string `json:"country"`
}

// DecodeVIN asks the model to decode a VIN.
func (g *Gemini) DecodeVIN(ctx context.Context, vin string) (*models.VINDetails, error) {
	text, err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(fmt.Sprintf(vinPrompt, vin))})
	if err != nil {
		return nil, fmt.Errorf("decode vin: %w", err)
	}
	reply, err := decodeJSON[vinReply](text)
	if err != nil {
		return nil, err
	}
	return &models.VINDetails{
		VIN:       vin,
		Make:      reply.Make,
		Model:     reply.Model,
		Year:      reply.Year,
		Trim:      reply.Trim,
		BodyStyle: reply.BodyStyle,
		Engine:    reply.Engine,
		Country:   reply.Country,
		Source:    "gemini",
	}, nil
}

const receiptPrompt = `Read this vehicle service receipt.
Reply with JSON only:
{"vendor":"","date":"YYYY-MM-DD","total":0,"currency":"","invoice_number":"","odometer":0,"line_items":[{"description":"","amount":0}]}
Use 0 for odometer when it is not printed.`

type receiptReply struct {
	Vendor        string  `json:"vendor"`
	Date          string  `json:"date"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
	InvoiceNumber string  `json:"invoice_number"`
	Odometer      float64 `json:"odometer"`
	LineItems     []struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	} `json:"line_items"`
}

// ExtractReceipt reads vendor, totals and line items off a receipt image.
func (g *Gemini) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*models.ReceiptExtraction, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	text, err := g.generate(ctx, []*genai.Part{
		genai.NewPartFromText(receiptPrompt),
		genai.NewPartFromBytes(image, mimeType),
	})
	if err != nil {
		return nil, fmt.Errorf("extract receipt: %w", err)
	}

	reply, err := decodeJSON[receiptReply](text)
	if err != nil {
		return nil, err
	}

	out := &models.ReceiptExtraction{
		Vendor:        reply.Vendor,
		Total:         reply.Total,
		Currency:      reply.Currency,
		InvoiceNumber: reply.InvoiceNumber,
	}
	if d, err := time.Parse("2006-01-02", reply.Date); err == nil {
		out.Date = &d
	}
	if reply.Odometer > 0 {
		odo := reply.Odometer
		out.Odometer = &odo
	}
	for _, li := range reply.LineItems {
		out.LineItems = append(out.LineItems, models.ReceiptLineItem{Description: li.Description, Amount: li.Amount})
	}
	return out, nil
}

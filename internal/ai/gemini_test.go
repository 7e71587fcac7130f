package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/models"
	"google.golang.org/genai"
)

// cannedReply returns a generateFunc that records the parts it saw.
func cannedReply(text string, err error, seen *[]*genai.Part) generateFunc {
	return func(_ context.Context, parts []*genai.Part) (string, error) {
		if seen != nil {
			*seen = parts
		}
		return text, err
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateBaselineSchedule(t *testing.T) {
	reply := "```json\n" + `{"schedule":[
		{"item":"Engine Oil & Filter","interval_distance":10000,"interval_months":6,"category":"Oil Change","urgency":"high"},
		{"item":"  ","interval_distance":5000,"interval_months":3,"category":"Other","urgency":"Low"},
		{"item":"Spark Plugs","interval_distance":0,"interval_months":0,"category":"Engine","urgency":"Medium"},
		{"item":"Brake Fluid","interval_distance":40000,"interval_months":24,"category":"Brake Service","urgency":"urgent"}
	]}` + "\n```"
	var seen []*genai.Part
	g := newGeminiWith(DefaultModel, cannedReply(reply, nil, &seen))

	items, err := g.GenerateBaselineSchedule(context.Background(), "Toyota", "Camry", 2020)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Engine Oil & Filter", items[0].Item)
	assert.Equal(t, float64(10000), items[0].IntervalDistance)
	assert.Equal(t, models.UrgencyHigh, items[0].Urgency)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, "Brake Fluid", items[1].Item)
	assert.Equal(t, models.UrgencyMedium, items[1].Urgency)

	require.Len(t, seen, 1)
	assert.Contains(t, seen[0].Text, "2020 Toyota Camry")
}

func TestGenerateBaselineSchedule_Errors(t *testing.T) {
	g := newGeminiWith(DefaultModel, cannedReply("", errors.New("quota exceeded"), nil))
	_, err := g.GenerateBaselineSchedule(context.Background(), "Toyota", "Camry", 2020)
	assert.ErrorContains(t, err, "quota exceeded")

	g = newGeminiWith(DefaultModel, cannedReply("no idea", nil, nil))
	_, err = g.GenerateBaselineSchedule(context.Background(), "Toyota", "Camry", 2020)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestDecodeVIN(t *testing.T) {
	g := newGeminiWith(DefaultModel, cannedReply(`{"make":"Honda","model":"Accord","year":2003,"trim":"EX","body_style":"Sedan"}`, nil, nil))

	details, err := g.DecodeVIN(context.Background(), "1HGCM82633A004352")
	require.NoError(t, err)
	assert.Equal(t, "Honda", details.Make)
	assert.Equal(t, 2003, details.Year)
	assert.Equal(t, "Sedan", details.BodyStyle)
	assert.Equal(t, "gemini", details.Source)
	assert.True(t, details.Complete())
}

func TestExtractReceipt(t *testing.T) {
	reply := `{"vendor":"Quick Lube","date":"2025-03-14","total":89.5,"currency":"SAR","invoice_number":"INV-7",
		"odometer":52340,"line_items":[{"description":"Synthetic oil","amount":60},{"description":"Oil filter","amount":29.5}]}`
	var seen []*genai.Part
	g := newGeminiWith(DefaultModel, cannedReply(reply, nil, &seen))

	receipt, err := g.ExtractReceipt(context.Background(), []byte{0xff, 0xd8}, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "Quick Lube", receipt.Vendor)
	assert.Equal(t, 89.5, receipt.Total)
	require.NotNil(t, receipt.Date)
	assert.Equal(t, "2025-03-14", receipt.Date.Format("2006-01-02"))
	require.NotNil(t, receipt.Odometer)
	assert.Equal(t, float64(52340), *receipt.Odometer)
	assert.Len(t, receipt.LineItems, 2)

	require.Len(t, seen, 2)
	require.NotNil(t, seen[1].InlineData)
	assert.Equal(t, "image/png", seen[1].InlineData.MIMEType)
}

func TestExtractReceipt_MissingFields(t *testing.T) {
	g := newGeminiWith(DefaultModel, cannedReply(`{"vendor":"Garage","date":"last tuesday","total":10,"odometer":0}`, nil, nil))

	receipt, err := g.ExtractReceipt(context.Background(), []byte{1}, "")
	require.NoError(t, err)
	assert.Nil(t, receipt.Date)
	assert.Nil(t, receipt.Odometer)
}

func TestExtractReceipt_EmptyImage(t *testing.T) {
	g := newGeminiWith(DefaultModel, cannedReply("{}", nil, nil))
	_, err := g.ExtractReceipt(context.Background(), nil, "image/jpeg")
	assert.ErrorIs(t, err, ErrEmptyImage)
}

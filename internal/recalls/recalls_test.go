package recalls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/models"
)

const resultsPage = `<!doctype html>
<html><body>
<table class="layout"><tr><td>Navigation</td></tr></table>
<table class="results">
  <thead><tr><th>Recall No.</th><th>Date</th><th>Manufacturer</th><th>Model</th><th>Model Year</th><th>Defect Description</th></tr></thead>
  <tbody>
    <tr><td>R-2024-101</td><td>2024-03-05</td><td>Toyota</td><td>Camry</td><td>2018-2021</td><td>Fuel pump  may <b>fail</b></td></tr>
    <tr><td>R-2024-102</td><td>05/04/2024</td><td>Toyota</td><td>Camry Hybrid</td><td>2022</td><td>Airbag sensor</td></tr>
    <tr><td>R-2023-077</td><td>unknown</td><td>Toyota</td><td>Corolla</td><td>2020</td><td>Brake hose</td></tr>
    <tr><td></td><td></td><td></td><td></td><td></td><td></td></tr>
  </tbody>
</table>
</body></html>`

func TestParseTable(t *testing.T) {
	got, err := ParseTable(resultsPage)
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "R-2024-101", first.Number)
	assert.Equal(t, "Toyota", first.Make)
	assert.Equal(t, "Camry", first.Model)
	assert.Equal(t, "2018-2021", first.Years)
	assert.Equal(t, "Fuel pump may fail", first.Description)
	assert.Equal(t, Source, first.Source)
	require.NotNil(t, first.Date)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *first.Date)

	require.NotNil(t, got[1].Date)
	assert.Equal(t, time.April, got[1].Date.Month())
	assert.Nil(t, got[2].Date)
}

func TestParseTable_NoResults(t *testing.T) {
	got, err := ParseTable(`<html><body><p>No recalls found</p></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilter(t *testing.T) {
	all, err := ParseTable(resultsPage)
	require.NoError(t, err)

	tests := []struct {
		name    string
		model   string
		year    int
		numbers []string
	}{
		{"model and year", "Camry", 2020, []string{"R-2024-101"}},
		{"hybrid year", "camry", 2022, []string{"R-2024-102"}},
		{"make only", "", 0, []string{"R-2024-101", "R-2024-102", "R-2023-077"}},
		{"no match", "Supra", 2020, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var numbers []string
			for _, r := range Filter(all, "TOYOTA", tt.model, tt.year) {
				numbers = append(numbers, r.Number)
			}
			assert.Equal(t, tt.numbers, numbers)
		})
	}
}

func TestYearsCover(t *testing.T) {
	assert.True(t, yearsCover("2018-2021", 2018))
	assert.True(t, yearsCover("2018 - 2021", 2021))
	assert.True(t, yearsCover("2015, 2017", 2017))
	assert.False(t, yearsCover("2018-2021", 2022))
	assert.False(t, yearsCover("n/a", 2020))
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Toyota", r.URL.Query().Get("Make"))
		assert.Equal(t, "Camry", r.URL.Query().Get("Model"))
		assert.Equal(t, "2020", r.URL.Query().Get("Year"))
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).Search(context.Background(), "Toyota", "Camry", 2020)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R-2024-101", got[0].Number)
}

func TestClient_ForVehicleSwallowsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Search(context.Background(), "Toyota", "Camry", 2020)
	assert.ErrorContains(t, err, "status 502")

	assert.Nil(t, c.ForVehicle(context.Background(), models.Vehicle{Make: "Toyota", Model: "Camry", Year: 2020}))
}

func TestClient_Timeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewClient("").HTTP.Timeout)
	assert.Equal(t, DefaultBaseURL, NewClient("").BaseURL)

	_, err := NewClient("").Search(context.Background(), " ", "", 0)
	assert.ErrorIs(t, err, ErrMissingMake)
}

package web

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPage(t *testing.T) {
	preview := domain.NewDataset([]string{"_id", "amount"}, []domain.Row{{"_id": "o1", "amount": int64(10)}})
	derived := domain.NewDataset([]string{"item"}, []domain.Row{{"item": "<pen>"}})

	data := PageData{
		Databases:   []string{"crm", "shop"},
		Collections: []string{"orders"},
		Selection:   domain.Selection{Database: "shop", Collection: "orders"},
		Preview:     preview,
		Entries: []domain.ConversationEntry{
			{Response: domain.TextResponse("Hello!"), Synthetic: true},
			{UserMessage: "top items", Response: domain.TableResponse(derived)},
			{UserMessage: "plot", Response: domain.ImageResponse("/tmp/charts/chart-1.png")},
			{UserMessage: "total", Response: domain.FailedResponse(errors.New("timed out"))},
		},
		Notice: "collection vanished",
	}

	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, data))
	html := buf.String()

	assert.Contains(t, html, `<option value="shop" selected>shop</option>`)
	assert.Contains(t, html, `<option value="orders" selected>orders</option>`)
	assert.Contains(t, html, "<th>amount</th>")
	assert.Contains(t, html, "<td>10</td>")
	assert.Contains(t, html, "&lt;pen&gt;")
	assert.Contains(t, html, `src="/charts/chart-1.png"`)
	assert.Contains(t, html, "bubble assistant failed")
	assert.Contains(t, html, "collection vanished")
	assert.Contains(t, html, `action="/ask"`)
}

func TestRenderPageWithoutSelection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, PageData{Databases: []string{"shop"}}))

	html := buf.String()
	assert.NotContains(t, html, `action="/select/collection"`)
	assert.NotContains(t, html, `action="/ask"`)
}

func TestCell(t *testing.T) {
	assert.Equal(t, "", Cell(nil))
	assert.Equal(t, "12.5", Cell(12.5))
	assert.Equal(t, "7", Cell(int64(7)))
	assert.Equal(t, "true", Cell(true))
	assert.Equal(t, "2024-05-01T00:00:00Z", Cell(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestStaticHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".sidebar")
}

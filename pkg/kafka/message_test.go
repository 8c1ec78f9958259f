package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScrapeMessage(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"tenant_id": "tenant-a",
			"run_id": "run-42",
			"scraped_at": "2025-03-01T06:00:00Z",
			"offices": [
				{"unique_id": "o1", "tenant_id": "tenant-a", "name": "Nordic Architects", "address": "Brivibas iela 1, Riga"}
			],
			"analyses": {
				"o1": {"projects": [{"name": "Riverside Tower", "status": "in-progress"}]}
			}
		}`)}

		err := msg.ParseScrapeMessage()
		require.NoError(t, err)
		require.NotNil(t, msg.Scrape)

		assert.Equal(t, "tenant-a", msg.Scrape.TenantID)
		assert.Equal(t, "run-42", msg.Scrape.RunID)
		require.Len(t, msg.Scrape.Offices, 1)
		assert.Equal(t, "Nordic Architects", msg.Scrape.Offices[0].Name)

		input, ok := msg.Scrape.Analyses["o1"]
		require.True(t, ok)
		require.Len(t, input.Projects, 1)
		assert.Equal(t, "Riverside Tower", input.Projects[0].Name)
	})

	t.Run("missing tenant_id", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"run_id": "run-42", "offices": []}`)}
		err := msg.ParseScrapeMessage()
		assert.Error(t, err)
		assert.Nil(t, msg.Scrape)
	})

	t.Run("malformed json", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"tenant_id": `)}
		err := msg.ParseScrapeMessage()
		assert.Error(t, err)
		assert.Nil(t, msg.Scrape)
	})

	t.Run("empty analyses is allowed", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"tenant_id": "tenant-a", "offices": []}`)}
		err := msg.ParseScrapeMessage()
		require.NoError(t, err)
		assert.Empty(t, msg.Scrape.Analyses)
	})
}

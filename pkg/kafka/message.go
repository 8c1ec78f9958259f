package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkalnins/bryony/pkg/models"
)

// ScrapeMessage is one scrape run's payload for a single tenant: the office
// batch the scraper observed and, optionally, per-office analysis input.
type ScrapeMessage struct {
	TenantID  string          `json:"tenant_id"`
	RunID     string          `json:"run_id"`
	ScrapedAt time.Time       `json:"scraped_at"`
	Offices   []models.Office `json:"offices"`

	// Analyses maps office unique_id to that office's analysis input.
	Analyses map[string]models.AnalysisInput `json:"analyses,omitempty"`
}

// IncomingMessage wraps a raw Kafka message with its parsed payload.
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Scrape *ScrapeMessage
}

// ParseScrapeMessage decodes the message value as a scrape run payload.
func (m *IncomingMessage) ParseScrapeMessage() error {
	var scrape ScrapeMessage
	if err := json.Unmarshal(m.Value, &scrape); err != nil {
		return fmt.Errorf("invalid scrape message: %w", err)
	}
	if scrape.TenantID == "" {
		return fmt.Errorf("scrape message is missing tenant_id")
	}
	m.Scrape = &scrape
	return nil
}

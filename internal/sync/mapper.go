package sync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/client/jobber"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
)

// Mapping from raw GraphQL nodes to rows. The raw payload is stored verbatim
// next to the normalized columns so new columns can be backfilled later
// without re-fetching from the API.

func mapServiceRequests(raws []json.RawMessage, now time.Time) ([]models.ServiceRequest, error) {
	out := make([]models.ServiceRequest, 0, len(raws))
	for _, raw := range raws {
		var node jobber.RequestNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("decode request node: %w", err)
		}
		if node.ID == "" {
			continue
		}
		out = append(out, models.ServiceRequest{
			ID:              node.ID,
			ClientName:      strings.TrimSpace(node.Client.Name),
			PropertyAddress: joinAddress(node.Property.Address),
			Title:           strings.TrimSpace(node.Title),
			Status:          strings.ToLower(strings.TrimSpace(node.Status)),
			RequestedAt:     utcPtr(node.RequestedAt),
			CompletedAt:     utcPtr(node.CompletedAt),
			LastSyncedAt:    now,
			RawJSON:         datatypes.JSON(raw),
		})
	}
	return out, nil
}

func mapQuotes(raws []json.RawMessage, now time.Time) ([]models.Quote, error) {
	out := make([]models.Quote, 0, len(raws))
	for _, raw := range raws {
		var node jobber.QuoteNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("decode quote node: %w", err)
		}
		if node.ID == "" {
			continue
		}
		out = append(out, models.Quote{
			ID:              node.ID,
			QuoteNumber:     node.QuoteNumber,
			ClientName:      strings.TrimSpace(node.Client.Name),
			PropertyAddress: joinAddress(node.Property.Address),
			Title:           strings.TrimSpace(node.Title),
			Status:          strings.ToLower(strings.TrimSpace(node.Status)),
			Total:           node.Amounts.Total,
			DraftedAt:       utcPtr(node.CreatedAt),
			SentAt:          utcPtr(node.SentAt),
			ApprovedAt:      utcPtr(node.ApprovedAt),
			ConvertedAt:     utcPtr(node.ConvertedAt),
			LastSyncedAt:    now,
			RawJSON:         datatypes.JSON(raw),
		})
	}
	return out, nil
}

func mapJobs(raws []json.RawMessage, now time.Time) ([]models.Job, error) {
	out := make([]models.Job, 0, len(raws))
	for _, raw := range raws {
		var node jobber.JobNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("decode job node: %w", err)
		}
		if node.ID == "" {
			continue
		}
		out = append(out, models.Job{
			ID:              node.ID,
			JobNumber:       node.JobNumber,
			ClientName:      strings.TrimSpace(node.Client.Name),
			PropertyAddress: joinAddress(node.Property.Address),
			Title:           strings.TrimSpace(node.Title),
			Status:          strings.ToLower(strings.TrimSpace(node.Status)),
			Total:           node.Total,
			StartAt:         utcPtr(node.StartAt),
			EndAt:           utcPtr(node.EndAt),
			ClosedAt:        utcPtr(node.CompletedAt),
			LastSyncedAt:    now,
			RawJSON:         datatypes.JSON(raw),
		})
	}
	return out, nil
}

func joinAddress(addr jobber.AddressRef) string {
	street := strings.TrimSpace(addr.Street)
	city := strings.TrimSpace(addr.City)
	switch {
	case street != "" && city != "":
		return street + ", " + city
	case street != "":
		return street
	default:
		return city
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

package sync

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
)

// Quote and job statuses that mark a pursuit as explicitly lost. A closed job
// always wins over a lost marker, since work that got done and closed out is
// the stronger signal.
var (
	lostQuoteStatuses = map[string]struct{}{
		"rejected": {},
		"lost":     {},
	}
	lostJobStatuses = map[string]struct{}{
		"lost":      {},
		"cancelled": {},
		"canceled":  {},
	}
	wonJobStatuses = map[string]struct{}{
		"complete":  {},
		"completed": {},
		"closed":    {},
		"won":       {},
	}
)

// BuildOpportunities derives one opportunity per client+property identity from
// the synced tables. It is a pure function of its inputs: identical inputs
// always produce identical outputs, so rebuilding arbitrarily often cannot
// accumulate drift.
//
// Cycle metrics stay nil when an input date is missing. Defaulting them to
// zero would make "never quoted" indistinguishable from "quoted same day" in
// downstream statistics.
func BuildOpportunities(requests []models.ServiceRequest, quotes []models.Quote, jobs []models.Job, now time.Time) []models.Opportunity {
	requests = sortRequests(requests)
	quotes = sortQuotes(quotes)
	jobs = sortJobs(jobs)

	groups := map[string]*models.Opportunity{}

	group := func(client, property string) *models.Opportunity {
		key := identityKey(client, property)
		if key == "" {
			return nil
		}
		opp, ok := groups[key]
		if !ok {
			opp = &models.Opportunity{
				IdentityKey: key,
				Outcome:     models.OutcomePending,
				ComputedAt:  now,
			}
			groups[key] = opp
		}
		if opp.ClientName == "" {
			opp.ClientName = strings.TrimSpace(client)
		}
		if opp.PropertyAddress == "" {
			opp.PropertyAddress = strings.TrimSpace(property)
		}
		return opp
	}

	won := map[string]bool{}
	lost := map[string]bool{}

	for _, req := range requests {
		opp := group(req.ClientName, req.PropertyAddress)
		if opp == nil {
			continue
		}
		opp.RequestCount++
		opp.RequestedAt = earliest(opp.RequestedAt, req.RequestedAt)
	}

	for _, quote := range quotes {
		opp := group(quote.ClientName, quote.PropertyAddress)
		if opp == nil {
			continue
		}
		opp.QuoteCount++
		// Multiple quotes per pursuit: the earliest sent date is the one that
		// measures responsiveness, not whichever row happened to come last.
		opp.QuoteSentAt = earliest(opp.QuoteSentAt, quote.SentAt)
		opp.QuoteTotal = addMoney(opp.QuoteTotal, quote.Total)
		if _, ok := lostQuoteStatuses[quote.Status]; ok {
			lost[opp.IdentityKey] = true
		}
	}

	for _, job := range jobs {
		opp := group(job.ClientName, job.PropertyAddress)
		if opp == nil {
			continue
		}
		opp.JobCount++
		opp.JobClosedAt = earliest(opp.JobClosedAt, job.ClosedAt)
		opp.JobTotal = addMoney(opp.JobTotal, job.Total)
		if _, ok := lostJobStatuses[job.Status]; ok {
			lost[opp.IdentityKey] = true
		}
		if job.ClosedAt != nil {
			won[opp.IdentityKey] = true
		} else if _, ok := wonJobStatuses[job.Status]; ok {
			won[opp.IdentityKey] = true
		}
	}

	out := make([]models.Opportunity, 0, len(groups))
	for key, opp := range groups {
		switch {
		case won[key]:
			opp.Outcome = models.OutcomeWon
		case lost[key]:
			opp.Outcome = models.OutcomeLost
		}
		opp.DaysToQuote = daysBetween(opp.RequestedAt, opp.QuoteSentAt)
		opp.DaysToClose = daysBetween(opp.QuoteSentAt, opp.JobClosedAt)
		opp.DaysRequestToClose = daysBetween(opp.RequestedAt, opp.JobClosedAt)
		out = append(out, *opp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityKey < out[j].IdentityKey })
	return out
}

func identityKey(client, property string) string {
	c := strings.ToLower(strings.TrimSpace(client))
	p := strings.ToLower(strings.TrimSpace(property))
	if c == "" && p == "" {
		return ""
	}
	return c + "|" + p
}

// daysBetween returns the whole-day difference, nil when either endpoint is
// missing, clamped at zero for out-of-order data.
func daysBetween(from, to *time.Time) *int {
	if from == nil || to == nil {
		return nil
	}
	days := int(to.Sub(*from).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

func earliest(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.Before(*current) {
		return candidate
	}
	return current
}

func addMoney(current, amount *decimal.Decimal) *decimal.Decimal {
	if amount == nil {
		return current
	}
	if current == nil {
		v := *amount
		return &v
	}
	sum := current.Add(*amount)
	return &sum
}

// Deterministic input ordering keeps tie-breaks (display name, address casing)
// stable regardless of how the store returned the rows.

func sortRequests(items []models.ServiceRequest) []models.ServiceRequest {
	out := make([]models.ServiceRequest, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortQuotes(items []models.Quote) []models.Quote {
	out := make([]models.Quote, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortJobs(items []models.Job) []models.Job {
	out := make([]models.Job, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

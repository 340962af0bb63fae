package jobber

import (
	"time"

	"github.com/shopspring/decimal"
)

// Connection field names for FetchConnectionPage.
const (
	RequestsField = "requests"
	QuotesField   = "quotes"
	JobsField     = "jobs"
)

const RequestsQuery = `query SyncRequests($first: Int!, $after: String) {
  requests(first: $first, after: $after) {
    nodes {
      id
      title
      requestStatus
      requestedAt
      completedAt
      client { name }
      property { address { street city } }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const QuotesQuery = `query SyncQuotes($first: Int!, $after: String) {
  quotes(first: $first, after: $after) {
    nodes {
      id
      quoteNumber
      title
      quoteStatus
      amounts { total }
      createdAt
      sentAt
      approvedAt
      convertedAt
      client { name }
      property { address { street city } }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const JobsQuery = `query SyncJobs($first: Int!, $after: String) {
  jobs(first: $first, after: $after) {
    nodes {
      id
      jobNumber
      title
      jobStatus
      total
      startAt
      endAt
      completedAt
      client { name }
      property { address { street city } }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

type ClientRef struct {
	Name string `json:"name"`
}

type PropertyRef struct {
	Address AddressRef `json:"address"`
}

type AddressRef struct {
	Street string `json:"street"`
	City   string `json:"city"`
}

type RequestNode struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Status      string      `json:"requestStatus"`
	RequestedAt *time.Time  `json:"requestedAt"`
	CompletedAt *time.Time  `json:"completedAt"`
	Client      ClientRef   `json:"client"`
	Property    PropertyRef `json:"property"`
}

type QuoteNode struct {
	ID          string       `json:"id"`
	QuoteNumber *string      `json:"quoteNumber"`
	Title       string       `json:"title"`
	Status      string       `json:"quoteStatus"`
	Amounts     QuoteAmounts `json:"amounts"`
	CreatedAt   *time.Time   `json:"createdAt"`
	SentAt      *time.Time   `json:"sentAt"`
	ApprovedAt  *time.Time   `json:"approvedAt"`
	ConvertedAt *time.Time   `json:"convertedAt"`
	Client      ClientRef    `json:"client"`
	Property    PropertyRef  `json:"property"`
}

type QuoteAmounts struct {
	Total *decimal.Decimal `json:"total"`
}

type JobNode struct {
	ID          string           `json:"id"`
	JobNumber   *string          `json:"jobNumber"`
	Title       string           `json:"title"`
	Status      string           `json:"jobStatus"`
	Total       *decimal.Decimal `json:"total"`
	StartAt     *time.Time       `json:"startAt"`
	EndAt       *time.Time       `json:"endAt"`
	CompletedAt *time.Time       `json:"completedAt"`
	Client      ClientRef        `json:"client"`
	Property    PropertyRef      `json:"property"`
}

package jobber

import "encoding/json"

// Response is the GraphQL envelope returned by the API.
type Response struct {
	Data       json.RawMessage `json:"data"`
	Errors     []GraphQLError  `json:"errors"`
	Extensions *Extensions     `json:"extensions"`
}

type GraphQLError struct {
	Message    string          `json:"message"`
	Extensions ErrorExtensions `json:"extensions"`
}

type ErrorExtensions struct {
	Code string `json:"code"`
}

type Extensions struct {
	Cost *Cost `json:"cost"`
}

type Cost struct {
	RequestedQueryCost float64         `json:"requestedQueryCost"`
	ActualQueryCost    float64         `json:"actualQueryCost"`
	ThrottleStatus     *ThrottleStatus `json:"throttleStatus"`
}

// ThrottleStatus is the server-reported rate-limit telemetry carried on every
// response. RestoreRate is points regenerated per second.
type ThrottleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable"`
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
}

type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type connection struct {
	Nodes    []json.RawMessage `json:"nodes"`
	PageInfo PageInfo          `json:"pageInfo"`
}

// Page is one fetched page of a cursor connection. Nodes stay raw so callers
// can both decode the normalized fields and persist the payload verbatim.
type Page struct {
	Nodes         []json.RawMessage
	HasNextPage   bool
	EndCursor     *string
	Throttle      *ThrottleStatus
	RequestedCost float64
}

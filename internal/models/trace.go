// Package models defines the shared data types for trace records, usage
// summaries and time windows.
package models

import (
	"strings"
	"time"
)

// TraceRecord is one observed interaction attributed to the monitored agent,
// as returned by the tracing service. Records are read-only: they are sourced
// externally per query and never mutated.
type TraceRecord struct {
	TraceID     string
	CustomerKey string
	Timestamp   time.Time
	AgentName   string
}

// HasCustomer reports whether the record carries a usable customer identity.
func (r TraceRecord) HasCustomer() bool {
	return strings.TrimSpace(r.CustomerKey) != ""
}

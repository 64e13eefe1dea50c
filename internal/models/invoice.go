package models

import (
	"fmt"
	"time"
)

// InvoiceStatus represents the processing lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending    InvoiceStatus = "Pending"
	InvoiceStatusProcessing InvoiceStatus = "Processing"
	InvoiceStatusProcessed  InvoiceStatus = "Processed"
	InvoiceStatusFailed     InvoiceStatus = "Failed"
)

// InvoiceStatuses lists every known status in lifecycle order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusProcessing,
	InvoiceStatusProcessed,
	InvoiceStatusFailed,
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:    {InvoiceStatusProcessing},
	InvoiceStatusProcessing: {InvoiceStatusProcessed, InvoiceStatusFailed},
}

// ParseInvoiceStatus matches s exactly (case-sensitive) against the known statuses.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	for _, st := range InvoiceStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown invoice status %q", s)
}

// IsTerminal reports whether no further transitions can happen.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusProcessed || s == InvoiceStatusFailed
}

// CanTransitionTo reports whether next is a legal forward step from s.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Invoice is one tracked invoice upload and its metadata.
type Invoice struct {
	ID                  string        `json:"id"`
	FileName            string        `json:"fileName"`
	FileSize            int64         `json:"fileSize"`
	ClientName          string        `json:"clientName"`
	Amount              float64       `json:"amount"`
	UploadDate          time.Time     `json:"uploadDate"`
	Status              InvoiceStatus `json:"status"`
	FilePath            string        `json:"filePath"` // storage name inside the upload dir
	ProcessingStartTime *time.Time    `json:"processingStartTime,omitempty"`
	ProcessingEndTime   *time.Time    `json:"processingEndTime,omitempty"`
}

// Clone returns a copy that shares no pointers with inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.ProcessingStartTime = cloneTime(inv.ProcessingStartTime)
	out.ProcessingEndTime = cloneTime(inv.ProcessingEndTime)
	return out
}

// NewInvoice holds every field of an Invoice except the identifier.
type NewInvoice struct {
	FileName   string
	FileSize   int64
	ClientName string
	Amount     float64
	UploadDate time.Time
	Status     InvoiceStatus
	FilePath   string
}

// Build assigns id and returns the resulting Invoice.
func (n NewInvoice) Build(id string) Invoice {
	return Invoice{
		ID:         id,
		FileName:   n.FileName,
		FileSize:   n.FileSize,
		ClientName: n.ClientName,
		Amount:     n.Amount,
		UploadDate: n.UploadDate,
		Status:     n.Status,
		FilePath:   n.FilePath,
	}
}

// InvoiceUpdate is a partial update. Nil fields are left untouched.
type InvoiceUpdate struct {
	Status              *InvoiceStatus
	ClientName          *string
	Amount              *float64
	ProcessingStartTime *time.Time
	ProcessingEndTime   *time.Time
}

// Apply merges u into inv (shallow overwrite) and returns the result.
// It does not check that the status change is a legal transition.
func (u InvoiceUpdate) Apply(inv Invoice) Invoice {
	out := inv.Clone()
	if u.Status != nil {
		out.Status = *u.Status
	}
	if u.ClientName != nil {
		out.ClientName = *u.ClientName
	}
	if u.Amount != nil {
		out.Amount = *u.Amount
	}
	if u.ProcessingStartTime != nil {
		out.ProcessingStartTime = cloneTime(u.ProcessingStartTime)
	}
	if u.ProcessingEndTime != nil {
		out.ProcessingEndTime = cloneTime(u.ProcessingEndTime)
	}
	return out
}

// PaginatedInvoices is one page of a list query.
type PaginatedInvoices struct {
	Data  []Invoice `json:"data"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

package query

import (
	"cmp"
	"strings"
	"time"

	"github.com/invoice-intake/backend/internal/models"
)

// SortField names a sortable invoice attribute.
type SortField string

const (
	SortByUploadDate          SortField = "uploadDate"
	SortByProcessingStartTime SortField = "processingStartTime"
	SortByProcessingEndTime   SortField = "processingEndTime"
	SortByFileName            SortField = "fileName"
	SortByClientName          SortField = "clientName"
	SortByStatus              SortField = "status"
	SortByFileSize            SortField = "fileSize"
	SortByAmount              SortField = "amount"
)

type sortSpec struct {
	column  string
	compare func(a, b *models.Invoice) int
}

var sortFields = map[SortField]sortSpec{
	SortByUploadDate: {"upload_date", func(a, b *models.Invoice) int {
		return a.UploadDate.Compare(b.UploadDate)
	}},
	SortByProcessingStartTime: {"processing_start_time", func(a, b *models.Invoice) int {
		return compareOptionalTime(a.ProcessingStartTime, b.ProcessingStartTime)
	}},
	SortByProcessingEndTime: {"processing_end_time", func(a, b *models.Invoice) int {
		return compareOptionalTime(a.ProcessingEndTime, b.ProcessingEndTime)
	}},
	SortByFileName: {"file_name", func(a, b *models.Invoice) int {
		return strings.Compare(a.FileName, b.FileName)
	}},
	SortByClientName: {"client_name", func(a, b *models.Invoice) int {
		return strings.Compare(a.ClientName, b.ClientName)
	}},
	SortByStatus: {"status", func(a, b *models.Invoice) int {
		return strings.Compare(string(a.Status), string(b.Status))
	}},
	SortByFileSize: {"file_size", func(a, b *models.Invoice) int {
		return cmp.Compare(a.FileSize, b.FileSize)
	}},
	SortByAmount: {"amount", func(a, b *models.Invoice) int {
		return cmp.Compare(a.Amount, b.Amount)
	}},
}

// ParseSortField resolves the query-string name of a sort key.
func ParseSortField(s string) (SortField, bool) {
	f := SortField(s)
	_, ok := sortFields[f]
	return f, ok
}

// Column is the storage column backing f, for stores that sort in SQL.
// Unknown fields map to the upload date column.
func (f SortField) Column() string {
	if def, ok := sortFields[f]; ok {
		return def.column
	}
	return sortFields[SortByUploadDate].column
}

// Compare orders a and b by f in direction o, breaking ties by ID ascending
// so that pagination is deterministic.
func Compare(f SortField, o SortOrder, a, b *models.Invoice) int {
	def, ok := sortFields[f]
	if !ok {
		def = sortFields[SortByUploadDate]
	}
	c := def.compare(a, b)
	if o == Descending {
		c = -c
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// compareOptionalTime treats a missing timestamp as earlier than any present one.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

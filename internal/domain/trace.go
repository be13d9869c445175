package domain

import "time"

// TraceData is a locally retained trace tuple for one check-in session.
// TraceID never leaves the device.
type TraceData struct {
	TraceID              string     `json:"tracingId"`
	HashedTraceID        string     `json:"hashedTracingId"`
	LocationName         string     `json:"locationName"`
	CheckInTimestamp     time.Time  `json:"checkInTimestamp"`
	CheckOutTimestamp    *time.Time `json:"checkOutTimestamp,omitempty"`
	HealthDepartmentID   string     `json:"healthDepartmentId,omitempty"`
	HealthDepartmentName string     `json:"healthDepartmentName,omitempty"`
	AccessTimestamp      *time.Time `json:"accessTimestamp,omitempty"`
}

// AccessNotice is one server-published entry of the accessed-hash set.
type AccessNotice struct {
	HashedTraceID        string
	HealthDepartmentID   string
	HealthDepartmentName string
	AccessTimestamp      time.Time
}

// AccessedTraceData is produced when a local trace matches a published access.
type AccessedTraceData struct {
	HashedTraceID        string     `json:"hashedTracingId"`
	TraceID              string     `json:"tracingId"`
	LocationName         string     `json:"locationName"`
	HealthDepartmentID   string     `json:"healthDepartmentId"`
	HealthDepartmentName string     `json:"healthDepartmentName"`
	AccessTimestamp      time.Time  `json:"accessTimestamp"`
	CheckInTimestamp     time.Time  `json:"checkInTimestamp"`
	CheckOutTimestamp    *time.Time `json:"checkOutTimestamp,omitempty"`
}

// AccessKey identifies an access for deduplication.
type AccessKey struct {
	HashedTraceID      string
	HealthDepartmentID string
	AccessTimestamp    int64
}

// Key returns the deduplication key of the record.
func (a AccessedTraceData) Key() AccessKey {
	return AccessKey{
		HashedTraceID:      a.HashedTraceID,
		HealthDepartmentID: a.HealthDepartmentID,
		AccessTimestamp:    a.AccessTimestamp.UnixMilli(),
	}
}

package service

import (
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// Match pairs local trace tuples with the server-published accesses.
// Output follows local order, then server order per hash, and carries each
// AccessKey at most once. It has no side effects.
func Match(local []domain.TraceData, server []domain.AccessNotice) []domain.AccessedTraceData {
	if len(local) == 0 || len(server) == 0 {
		return []domain.AccessedTraceData{}
	}

	byHash := make(map[string][]domain.AccessNotice, len(server))
	for _, n := range server {
		byHash[n.HashedTraceID] = append(byHash[n.HashedTraceID], n)
	}

	out := []domain.AccessedTraceData{}
	seen := make(map[domain.AccessKey]struct{})
	for _, t := range local {
		for _, n := range byHash[t.HashedTraceID] {
			record := domain.AccessedTraceData{
				HashedTraceID:        t.HashedTraceID,
				TraceID:              t.TraceID,
				LocationName:         t.LocationName,
				HealthDepartmentID:   n.HealthDepartmentID,
				HealthDepartmentName: n.HealthDepartmentName,
				AccessTimestamp:      n.AccessTimestamp,
				CheckInTimestamp:     t.CheckInTimestamp,
				CheckOutTimestamp:    copyTime(t.CheckOutTimestamp),
			}
			key := record.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, record)
		}
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

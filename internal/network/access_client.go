// Package network talks to the read-only data-access endpoint.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/trace"
)

const maxPayloadBytes = 10 << 20

// AccessClient fetches the hashed trace ids accessed by health departments.
type AccessClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewAccessClient creates a client for baseURL.
func NewAccessClient(baseURL, version string, httpClient *http.Client) *AccessClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &AccessClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		userAgent:  "checkin-agent/" + version,
	}
}

type accessNoticeDTO struct {
	HashedTraceID        string `json:"hashedTracingId"`
	HealthDepartmentID   string `json:"healthDepartmentId"`
	HealthDepartmentName string `json:"healthDepartmentName"`
	AccessTimestamp      int64  `json:"accessTimestamp"`
}

// FetchAccessNotices returns the accesses published for [from, to]. Only the
// time window is sent; local trace ids never leave the device.
func (c *AccessClient) FetchAccessNotices(ctx context.Context, from, to time.Time) ([]domain.AccessNotice, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))
	endpoint := c.baseURL + "/notifications/traces?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NetworkError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.NetworkError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, domain.NetworkError(err)
	}
	return ParseAccessNotices(body)
}

// ParseAccessNotices validates and converts the endpoint payload.
func ParseAccessNotices(body []byte) ([]domain.AccessNotice, error) {
	var dtos []accessNoticeDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, domain.MatchingError(err.Error())
	}

	notices := make([]domain.AccessNotice, 0, len(dtos))
	for i, d := range dtos {
		if d.HashedTraceID == "" || d.HealthDepartmentID == "" {
			return nil, domain.MatchingError(fmt.Sprintf("entry %d: missing hash or department", i))
		}
		if _, err := trace.DecodeHash(d.HashedTraceID); err != nil {
			return nil, domain.MatchingError(fmt.Sprintf("entry %d: %v", i, err))
		}
		notices = append(notices, domain.AccessNotice{
			HashedTraceID:        d.HashedTraceID,
			HealthDepartmentID:   d.HealthDepartmentID,
			HealthDepartmentName: d.HealthDepartmentName,
			AccessTimestamp:      time.UnixMilli(d.AccessTimestamp).UTC(),
		})
	}
	return notices, nil
}

package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{`"2024-01-01T00:00:00"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{`"2024-01-01T08:30"`, time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)},
		{`"2024-01-01T00:00:00.250"`, time.Date(2024, 1, 1, 0, 0, 0, 250000000, time.UTC)},
		{`"2024-01-02T09:00:00+09:00"`, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{`"2024-01-01 12:00:00"`, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{`null`, time.Time{}},
		{`""`, time.Time{}},
	}
	for _, tc := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tc.in), &ts); err != nil {
			t.Errorf("%s: %v", tc.in, err)
			continue
		}
		if !ts.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.in, ts.Time, tc.want)
		}
	}
}

func TestTimestamp_Rejects(t *testing.T) {
	for _, in := range []string{`"01/01/2024"`, `"2024-13-01T00:00:00"`, `12345`} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(in), &ts); err == nil {
			t.Errorf("%s accepted as %v", in, ts.Time)
		}
	}
}

func TestNoticeRequest_Meta(t *testing.T) {
	var req NoticeRequest
	body := `{"title":"Outage window","content":"Scheduled maintenance","startDate":"2024-01-01T00:00:00","endDate":"2024-01-02T00:00:00","deleteFileIds":[3,3,7]}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta := req.Meta()
	if meta.Title != "Outage window" || meta.Content != "Scheduled maintenance" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.EndDate.Sub(meta.StartDate) != 24*time.Hour {
		t.Errorf("window = %v..%v", meta.StartDate, meta.EndDate)
	}
	if len(req.DeleteFileIDs) != 3 {
		t.Errorf("deleteFileIds = %v", req.DeleteFileIDs)
	}
}

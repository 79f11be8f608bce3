package main

import (
	"bytes"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseChanges(t *testing.T) {
	tests := []struct {
		name     string
		pairs    []string
		expected domain.Fields
		wantErr  bool
	}{
		{name: "Typed values", pairs: []string{"title=Roadmap", "count=3", "draft=true"},
			expected: domain.Fields{"title": "Roadmap", "count": float64(3), "draft": true}},
		{name: "Value containing equals", pairs: []string{"expr=a=b"}, expected: domain.Fields{"expr": "a=b"}},
		{name: "Empty value", pairs: []string{"title="}, expected: domain.Fields{"title": ""}},
		{name: "Missing separator", pairs: []string{"title"}, wantErr: true},
		{name: "Missing key", pairs: []string{"=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			changes, err := parseChanges(tt.pairs)

			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, changes)
		})
	}
}

func TestPrinter_EditResultWithConflicts(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	p := printer{out: &out}

	p.editResult(domain.EditResult{
		Content:   domain.Fields{"title": "a | CONFLICT | b"},
		Conflicts: []domain.ConflictRecord{{Field: "title", BaseValue: "o", UserValue: "a", CollaboratorValue: "b"}},
	})

	req.Contains(out.String(), "1 conflict(s)")
	req.Contains(out.String(), "a | CONFLICT | b")
	req.NotContains(out.String(), "\x1b[")
}

func TestPrinter_Events(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	p := printer{out: &out}

	p.events([]event.Event{{
		Seq:       7,
		Type:      event.LockAcquiredType,
		UserID:    "u1",
		Timestamp: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Payload:   event.LockAcquired("doc-1", "u1"),
	}})

	req.Contains(out.String(), "lock-acquired")
	req.Contains(out.String(), "fileId=doc-1 userId=u1")
}

func TestPrinter_Metrics(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	p := printer{out: &out}

	p.metrics(domain.Metrics{
		TotalSessions:    2,
		DroppedEvents:    3,
		PeakActiveUsers:  4,
		ActiveUsers:      []string{"u1", "u2"},
		SessionDurations: map[string]time.Duration{"s1": time.Minute},
	})

	req.Contains(out.String(), "peak active users")
	req.Contains(out.String(), "dropped events")
	req.Contains(out.String(), "u1,u2")
}

func TestIntArg(t *testing.T) {
	req := require.New(t)

	req.Equal(3, intArg([]string{"3"}, 0, 1))
	req.Equal(1, intArg([]string{"x"}, 0, 1))
	req.Equal(20, intArg(nil, 1, 20))
}

// Package codec converts domain values to and from the generic document
// shape shared by the badger records and the gRPC messages.
package codec

import (
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Documents travel as protobuf Structs. Timestamps are RFC3339Nano strings
// and numbers come back as float64, like any JSON document.

// NewStruct builds a Struct from any document, normalizing nested values.
func NewStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(Plain(fields).(map[string]any))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return s, nil
}

func Marshal(fields map[string]any) ([]byte, error) {
	s, err := NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func Unmarshal(data []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return s.AsMap(), nil
}

// plain turns arbitrary values into the shapes structpb accepts.
// Values structpb rejects ([]string, structs, ...) go through JSON.
func Plain(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64, float32, int, int32, int64, uint, uint32, uint64:
		return t
	case domain.Fields:
		return Plain(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Plain(val)
		}
		return out
	case []any:
		return lo.Map(t, func(item any, _ int) any { return Plain(item) })
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Sprint(v)
	}
	return decoded
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTime(v any) time.Time {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// String returns v when it is a string, "" otherwise.
func String(v any) string {
	s, _ := v.(string)
	return s
}

func FromSession(s domain.Session) map[string]any {
	rec := map[string]any{
		"id":           s.ID,
		"fileId":       s.FileID,
		"participants": Strings(s.Participants),
		"content":      map[string]any(s.Content),
		"state":        string(s.State),
		"createdAt":    FormatTime(s.CreatedAt),
		"updates": lo.Map(s.UpdateLog, func(u domain.Update, _ int) any {
			return map[string]any{
				"userId":    u.UserID,
				"fields":    map[string]any(u.Fields),
				"conflicts": FromConflicts(u.Conflicts),
				"at":        FormatTime(u.At),
			}
		}),
	}
	if s.Content == nil {
		rec["content"] = map[string]any{}
	}
	if s.EndedAt != nil {
		rec["endedAt"] = FormatTime(*s.EndedAt)
	}
	return rec
}

func ToSession(rec map[string]any) domain.Session {
	s := domain.Session{
		ID:           String(rec["id"]),
		FileID:       String(rec["fileId"]),
		Participants: []string{},
		Content:      domain.Fields{},
		State:        domain.SessionState(String(rec["state"])),
		CreatedAt:    ParseTime(rec["createdAt"]),
	}
	if ids, ok := rec["participants"].([]any); ok {
		s.Participants = ToStrings(ids)
	}
	if content, ok := rec["content"].(map[string]any); ok {
		s.Content = content
	}
	if updates, ok := rec["updates"].([]any); ok {
		for _, raw := range updates {
			u, _ := raw.(map[string]any)
			fields, _ := u["fields"].(map[string]any)
			update := domain.Update{UserID: String(u["userId"]), Fields: fields, At: ParseTime(u["at"])}
			if conflicts, ok := u["conflicts"].([]any); ok {
				update.Conflicts = ToConflicts(conflicts)
			}
			s.UpdateLog = append(s.UpdateLog, update)
		}
	}
	if endedAt, ok := rec["endedAt"]; ok {
		at := ParseTime(endedAt)
		s.EndedAt = &at
	}
	return s
}

func FromParticipant(p domain.Participant) map[string]any {
	return map[string]any{
		"sessionId": p.SessionID,
		"userId":    p.UserID,
		"role":      string(p.Role),
		"joinedAt":  FormatTime(p.JoinedAt),
	}
}

func ToParticipant(rec map[string]any) domain.Participant {
	return domain.Participant{
		SessionID: String(rec["sessionId"]),
		UserID:    String(rec["userId"]),
		Role:      domain.Role(String(rec["role"])),
		JoinedAt:  ParseTime(rec["joinedAt"]),
	}
}

func FromEvent(e event.Event) map[string]any {
	return map[string]any{
		"id":        e.ID.String(),
		"sessionId": e.SessionID,
		"type":      string(e.Type),
		"userId":    e.UserID,
		"timestamp": FormatTime(e.Timestamp),
		"seq":       float64(e.Seq),
		"payload":   e.Payload,
	}
}

func ToEvent(rec map[string]any) (event.Event, error) {
	id, err := uuid.Parse(String(rec["id"]))
	if err != nil {
		return event.Event{}, fmt.Errorf("decode event id: %w", err)
	}
	seq, _ := rec["seq"].(float64)
	payload, _ := rec["payload"].(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	return event.Event{
		ID:        id,
		SessionID: String(rec["sessionId"]),
		Type:      event.Type(String(rec["type"])),
		UserID:    String(rec["userId"]),
		Timestamp: ParseTime(rec["timestamp"]),
		Seq:       uint64(seq),
		Payload:   payload,
	}, nil
}

func FromConflicts(conflicts []domain.ConflictRecord) []any {
	return lo.Map(conflicts, func(c domain.ConflictRecord, _ int) any { return event.ConflictPayload(c) })
}

func ToConflicts(raw []any) []domain.ConflictRecord {
	return lo.Map(raw, func(c any, _ int) domain.ConflictRecord {
		m, _ := c.(map[string]any)
		return domain.ConflictRecord{
			Field:             String(m["field"]),
			BaseValue:         m["baseValue"],
			UserValue:         m["userValue"],
			CollaboratorValue: m["collaboratorValue"],
		}
	})
}

func FromLock(l domain.FileLock) map[string]any {
	rec := map[string]any{
		"fileId":    l.FileID,
		"lockedBy":  l.LockedBy,
		"sessionId": l.SessionID,
		"lockedAt":  FormatTime(l.LockedAt),
	}
	if l.ExpiresAt != nil {
		rec["expiresAt"] = FormatTime(*l.ExpiresAt)
	}
	return rec
}

func ToLock(rec map[string]any) domain.FileLock {
	l := domain.FileLock{
		FileID:    String(rec["fileId"]),
		LockedBy:  String(rec["lockedBy"]),
		SessionID: String(rec["sessionId"]),
		LockedAt:  ParseTime(rec["lockedAt"]),
	}
	if expiresAt, ok := rec["expiresAt"]; ok {
		at := ParseTime(expiresAt)
		l.ExpiresAt = &at
	}
	return l
}

func FromLockPage(p domain.LockPage) map[string]any {
	return map[string]any{
		"locks":      lo.Map(p.Locks, func(l domain.FileLock, _ int) any { return FromLock(l) }),
		"total":      float64(p.Total),
		"page":       float64(p.Page),
		"totalPages": float64(p.TotalPages),
	}
}

func ToLockPage(rec map[string]any) domain.LockPage {
	p := domain.LockPage{
		Locks:      []domain.FileLock{},
		Total:      Int(rec["total"]),
		Page:       Int(rec["page"]),
		TotalPages: Int(rec["totalPages"]),
	}
	if locks, ok := rec["locks"].([]any); ok {
		p.Locks = lo.Map(locks, func(l any, _ int) domain.FileLock {
			m, _ := l.(map[string]any)
			return ToLock(m)
		})
	}
	return p
}

func FromEditResult(r domain.EditResult) map[string]any {
	return map[string]any{
		"resolved":  map[string]any(r.Resolved),
		"conflicts": FromConflicts(r.Conflicts),
		"content":   map[string]any(r.Content),
	}
}

func ToEditResult(rec map[string]any) domain.EditResult {
	r := domain.EditResult{Resolved: Fields(rec["resolved"]), Content: Fields(rec["content"]), Conflicts: []domain.ConflictRecord{}}
	if conflicts, ok := rec["conflicts"].([]any); ok {
		r.Conflicts = ToConflicts(conflicts)
	}
	return r
}

// FromMetrics writes session durations as milliseconds.
func FromMetrics(m domain.Metrics) map[string]any {
	return map[string]any{
		"totalSessions":   float64(m.TotalSessions),
		"totalEdits":      float64(m.TotalEdits),
		"totalConflicts":  float64(m.TotalConflicts),
		"auditFailures":   float64(m.AuditFailures),
		"droppedEvents":   float64(m.DroppedEvents),
		"droppedJobs":     float64(m.DroppedJobs),
		"peakActiveUsers": float64(m.PeakActiveUsers),
		"activeUsers":     Strings(m.ActiveUsers),
		"sessionDurations": lo.MapValues(m.SessionDurations, func(d time.Duration, _ string) any {
			return float64(d.Milliseconds())
		}),
	}
}

func ToMetrics(rec map[string]any) domain.Metrics {
	durations := map[string]time.Duration{}
	if raw, ok := rec["sessionDurations"].(map[string]any); ok {
		for id, ms := range raw {
			durations[id] = time.Duration(Int(ms)) * time.Millisecond
		}
	}
	return domain.Metrics{
		TotalSessions:    uint64(Int(rec["totalSessions"])),
		TotalEdits:       uint64(Int(rec["totalEdits"])),
		TotalConflicts:   uint64(Int(rec["totalConflicts"])),
		AuditFailures:    uint64(Int(rec["auditFailures"])),
		DroppedEvents:    uint64(Int(rec["droppedEvents"])),
		DroppedJobs:      uint64(Int(rec["droppedJobs"])),
		PeakActiveUsers:  Int(rec["peakActiveUsers"]),
		ActiveUsers:      ToStrings(rec["activeUsers"]),
		SessionDurations: durations,
	}
}

func FromSearchHit(h contract.SearchHit) map[string]any {
	return map[string]any{
		"eventId":   h.EventID,
		"sessionId": h.SessionID,
		"type":      h.Type,
		"userId":    h.UserID,
		"score":     h.Score,
	}
}

func ToSearchHit(rec map[string]any) contract.SearchHit {
	score, _ := rec["score"].(float64)
	return contract.SearchHit{
		EventID:   String(rec["eventId"]),
		SessionID: String(rec["sessionId"]),
		Type:      String(rec["type"]),
		UserID:    String(rec["userId"]),
		Score:     score,
	}
}

// Int reads a JSON number, truncating it.
func Int(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// Fields returns v as a document, or an empty one.
func Fields(v any) domain.Fields {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return domain.Fields{}
	}
	return m
}

func Strings(values []string) []any {
	return lo.Map(values, func(v string, _ int) any { return v })
}

func ToStrings(v any) []string {
	raw, _ := v.([]any)
	return lo.Map(raw, func(item any, _ int) string { return String(item) })
}

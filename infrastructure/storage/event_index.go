package storage

import (
	"collab-engine/contract"
	"collab-engine/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/blugelabs/bluge"
)

const (
	fieldSessionID = "sessionId"
	fieldType      = "type"
	fieldUserID    = "userId"
	fieldText      = "text"
)

// EventIndex is an event sink feeding a bluge full-text index.
// The searchable text is the flattened payload plus the event type.
type EventIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewEventIndex(writer *bluge.Writer, log *slog.Logger) *EventIndex {
	return &EventIndex{writer: writer, log: log}
}

func (x *EventIndex) Consume(ctx context.Context, e event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := bluge.NewDocument(e.ID.String()).
		AddField(bluge.NewKeywordField(fieldSessionID, e.SessionID).StoreValue()).
		AddField(bluge.NewKeywordField(fieldType, string(e.Type)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldUserID, e.UserID).StoreValue()).
		AddField(bluge.NewTextField(fieldText, indexText(e)))
	if err := x.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index event %s: %w", e.ID, err)
	}
	return nil
}

// Search matches query against every indexed event.
func (x *EventIndex) Search(ctx context.Context, query string, limit int) ([]contract.SearchHit, error) {
	return x.search(ctx, bluge.NewMatchQuery(query).SetField(fieldText), limit)
}

// SearchSession restricts Search to one session.
func (x *EventIndex) SearchSession(ctx context.Context, sessionID, query string, limit int) ([]contract.SearchHit, error) {
	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField(fieldText)).
		AddMust(bluge.NewTermQuery(sessionID).SetField(fieldSessionID))
	return x.search(ctx, q, limit)
}

func (x *EventIndex) search(ctx context.Context, q bluge.Query, limit int) ([]contract.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			x.log.Debug("Error while closing index reader", "error", err)
		}
	}()

	dmi, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	hits := []contract.SearchHit{}
	match, err := dmi.Next()
	for err == nil && match != nil {
		hit := contract.SearchHit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.EventID = string(value)
			case fieldSessionID:
				hit.SessionID = string(value)
			case fieldType:
				hit.Type = string(value)
			case fieldUserID:
				hit.UserID = string(value)
			}
			return true
		})
		if err != nil {
			break
		}
		hits = append(hits, hit)
		match, err = dmi.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("read search hits: %w", err)
	}
	return hits, nil
}

func indexText(e event.Event) string {
	words := []string{string(e.Type)}
	words = flatten(e.Payload, words)
	return strings.Join(words, " ")
}

func flatten(v any, words []string) []string {
	switch t := v.(type) {
	case nil:
		return words
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			words = flatten(t[k], append(words, k))
		}
		return words
	case []any:
		for _, item := range t {
			words = flatten(item, words)
		}
		return words
	default:
		return append(words, fmt.Sprint(t))
	}
}

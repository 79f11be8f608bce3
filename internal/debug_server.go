package internal

import (
	"collab-engine/infrastructure/codec"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultPrefix = "session:"

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Namespace string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// NewDebugHandler renders the badger keys under ?prefix= as an HTML table.
func NewDebugHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	if mapper == nil {
		mapper = DefaultMapper
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				if err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// StartDebugServer serves the inspector on port until the returned server
// is shut down.
func StartDebugServer(log *slog.Logger, db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(endpoint, NewDebugHandler(db, mapper, statsProvider))

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Debug server stopped", "error", err)
		}
	}()
	return server
}

// DefaultMapper understands the key layouts of the session, participant,
// event and audit records.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Namespace: "-",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	switch parts[0] {
	case "session":
		row.Type = "SESSION"
		row.EntityID = part(parts, 1)
		if rec, err := codec.Unmarshal(val); err == nil {
			row.Namespace = codec.String(rec["fileId"])
			row.Timestamp = clock(codec.ParseTime(rec["createdAt"]))
			row.Detail = fmt.Sprintf("state=%s participants=%d", codec.String(rec["state"]), len(codec.ToStrings(rec["participants"])))
		}
	case "participant":
		row.Type = "PARTICIPANT"
		row.Namespace = part(parts, 1)
		row.EntityID = part(parts, 2)
		if rec, err := codec.Unmarshal(val); err == nil {
			row.Timestamp = clock(codec.ParseTime(rec["joinedAt"]))
			row.Detail = "role=" + codec.String(rec["role"])
		}
	case "event":
		row.Type = "EVENT"
		row.Namespace = part(parts, 1)
		row.EntityID = part(parts, 3)
		if rec, err := codec.Unmarshal(val); err == nil {
			row.Timestamp = clock(codec.ParseTime(rec["timestamp"]))
			row.Detail = fmt.Sprintf("seq=%d type=%s user=%s", codec.Int(rec["seq"]), codec.String(rec["type"]), codec.String(rec["userId"]))
		}
	case "audit":
		row.Type = "AUDIT"
		if nanos, err := strconv.ParseInt(part(parts, 1), 10, 64); err == nil {
			row.Timestamp = clock(time.Unix(0, nanos))
		}
		row.Detail = string(val)
	}

	if len(row.EntityID) > 8 {
		row.EntityID = row.EntityID[:8]
	}
	return row
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

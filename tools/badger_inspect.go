// Command badger_inspect dumps the engine's badger store as a table.
//
//	go run ./tools -db /tmp/badger -prefix event: -session 3f2a -limit 50
//	go run ./tools -db /tmp/badger -summary
package main

import (
	"collab-engine/internal"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

var namespaces = []string{"session:", "participant:", "event:", "audit:"}

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "session:", "One of "+strings.Join(namespaces, ", "))
	sessionID := flag.String("session", "", "Only keys of this session (participant: and event: prefixes)")
	limit := flag.Int("limit", 0, "Maximum number of rows, 0 for all")
	summary := flag.Bool("summary", false, "Count keys per namespace instead of listing them")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *summary {
		err = printSummary(db)
	} else {
		err = printRows(db, scanPrefix(*prefix, *sessionID), *limit)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// scanPrefix narrows participant and event scans to one session, their keys
// being "participant:{session}:{user}" and "event:{session}:{seq}:{id}".
func scanPrefix(prefix, sessionID string) string {
	if sessionID == "" {
		return prefix
	}
	switch prefix {
	case "participant:", "event:":
		return prefix + sessionID + ":"
	case "session:":
		return prefix + sessionID
	}
	return prefix
}

func printRows(db *badger.DB, prefix string, limit int) error {
	table := newTable([]string{"Key", "Type", "Timestamp", "Entity ID", "Session", "Detail"})
	rows := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && rows >= limit {
				return nil
			}
			item := it.Item()
			err := item.Value(func(v []byte) error {
				row := internal.DefaultMapper(string(item.Key()), v)
				table.Append([]string{row.Key, row.Type, row.Timestamp, row.EntityID, row.Namespace, row.Detail})
				return nil
			})
			if err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	fmt.Printf("%d rows under %q\n", rows, prefix)
	return nil
}

func printSummary(db *badger.DB) error {
	table := newTable([]string{"Namespace", "Keys", "Bytes"})
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		for _, ns := range namespaces {
			it := txn.NewIterator(opts)
			var keys, size int64
			p := []byte(ns)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				keys++
				size += it.Item().EstimatedSize()
			}
			it.Close()
			table.Append([]string{ns, strconv.FormatInt(keys, 10), strconv.FormatInt(size, 10)})
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	return table
}

// openDB opens read-only. A crashed writer leaves the value log needing a
// truncate, which only a read-write open performs.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err == nil || !strings.Contains(err.Error(), "Log truncate required") {
		return db, err
	}
	fmt.Println("Value log needs a truncate, repairing before the read-only open")
	repaired, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
	if err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}
	if err := repaired.Close(); err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}
	return badger.Open(opts)
}

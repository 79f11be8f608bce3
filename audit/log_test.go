package audit

import (
	"collab-engine/errors"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Append(string) error { return stderrors.New("disk full") }
func (failingSink) Tail(int) ([]string, error) { return nil, nil }
func (failingSink) Clear() error { return stderrors.New("read-only") }

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC)
}

func newFileLog(t *testing.T) (*Log, *FileSink) {
	sink, err := NewFileSink(filepath.Join(t.TempDir(), "audit.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return NewLog(sink, fixedClock), sink
}

func TestLog_AppendFormatsLine(t *testing.T) {
	req := require.New(t)
	log, _ := newFileLog(t)

	req.NoError(log.Append("s1", "u1", "join", "role=editor"))

	lines, err := log.Tail(10)
	req.NoError(err)
	req.Equal([]string{
		"2026-03-04T10:20:30Z | Session: s1 | User: u1 | Action: join | Details: role=editor",
	}, lines)
}

func TestLog_TailReturnsMostRecent(t *testing.T) {
	req := require.New(t)
	log, _ := newFileLog(t)

	for _, action := range []string{"a", "b", "c", "d"} {
		req.NoError(log.Append("s1", "u1", action, ""))
	}

	lines, err := log.Tail(2)
	req.NoError(err)
	req.Len(lines, 2)
	req.Contains(lines[0], "Action: c")
	req.Contains(lines[1], "Action: d")

	empty, err := log.Tail(0)
	req.NoError(err)
	req.Empty(empty)
}

func TestLog_Clear(t *testing.T) {
	req := require.New(t)
	log, _ := newFileLog(t)
	req.NoError(log.Append("s1", "u1", "join", ""))

	req.NoError(log.Clear())

	lines, err := log.Tail(5)
	req.NoError(err)
	req.Empty(lines)

	// And appends keep working after truncation
	req.NoError(log.Append("s1", "u2", "join", ""))
	lines, err = log.Tail(5)
	req.NoError(err)
	req.Len(lines, 1)
}

func TestLog_SinkFailureIsAuditWriteError(t *testing.T) {
	req := require.New(t)
	log := NewLog(failingSink{}, fixedClock)

	err := log.Append("s1", "u1", "join", "")

	req.ErrorIs(err, errors.ErrAuditWrite)
	var auditErr *errors.AuditWriteError
	req.ErrorAs(err, &auditErr)
	req.EqualError(auditErr.Cause, "disk full")
	req.ErrorIs(log.Clear(), errors.ErrAuditWrite)
}

func TestFileSink_ClosedSinkFails(t *testing.T) {
	req := require.New(t)
	log, sink := newFileLog(t)
	req.NoError(sink.Close())

	req.ErrorIs(log.Append("s1", "u1", "join", ""), errors.ErrAuditWrite)
}

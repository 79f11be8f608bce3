package main

import (
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// printer renders results as aligned tables, optionally colorized.
type printer struct {
	out     io.Writer
	colours bool
}

func (p printer) table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.AppendBulk(rows)
	table.Render()
}

func (p printer) paint(c color.Color, s string) string {
	if !p.colours {
		return s
	}
	return c.Render(s)
}

func (p printer) success(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint(color.FgGreen, fmt.Sprintf(format, args...)))
}

func (p printer) failure(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint(color.FgRed, fmt.Sprintf(format, args...)))
}

func (p printer) sessions(sessions []domain.Session) {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{s.ID, s.FileID, string(s.State), strings.Join(s.Participants, ","),
			strconv.Itoa(len(s.UpdateLog)), clock(s.CreatedAt)})
	}
	p.table([]string{"Session", "File", "State", "Participants", "Updates", "Created"}, rows)
}

func (p printer) session(s domain.Session) {
	p.sessions([]domain.Session{s})
	if len(s.Content) > 0 {
		p.fields(s.Content)
	}
}

func (p printer) fields(f domain.Fields) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprint(f[k])})
	}
	p.table([]string{"Field", "Value"}, rows)
}

func (p printer) editResult(r domain.EditResult) {
	p.fields(r.Content)
	if len(r.Conflicts) == 0 {
		p.success("merged without conflicts")
		return
	}
	rows := make([][]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		rows = append(rows, []string{c.Field, fmt.Sprint(c.BaseValue), fmt.Sprint(c.UserValue), fmt.Sprint(c.CollaboratorValue)})
	}
	p.failure("%d conflict(s)", len(r.Conflicts))
	p.table([]string{"Field", "Base", "Yours", "Theirs"}, rows)
}

func (p printer) participants(participants []domain.Participant) {
	rows := make([][]string, 0, len(participants))
	for _, pt := range participants {
		rows = append(rows, []string{pt.UserID, string(pt.Role), clock(pt.JoinedAt)})
	}
	p.table([]string{"User", "Role", "Joined"}, rows)
}

func (p printer) locks(page domain.LockPage) {
	rows := make([][]string, 0, len(page.Locks))
	for _, l := range page.Locks {
		expires := "-"
		if l.ExpiresAt != nil {
			expires = clock(*l.ExpiresAt)
		}
		rows = append(rows, []string{l.FileID, l.LockedBy, l.SessionID, clock(l.LockedAt), expires})
	}
	p.table([]string{"File", "Locked by", "Session", "Since", "Expires"}, rows)
	fmt.Fprintf(p.out, "page %d/%d (%d locks)\n", page.Page, page.TotalPages, page.Total)
}

func (p printer) events(events []event.Event) {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{strconv.FormatUint(e.Seq, 10), clock(e.Timestamp), p.eventType(e.Type), e.UserID, payload(e.Payload)})
	}
	p.table([]string{"Seq", "Time", "Type", "User", "Payload"}, rows)
}

func (p printer) event(e event.Event) {
	fmt.Fprintf(p.out, "%s %-14s %s %s\n", clock(e.Timestamp), p.eventType(e.Type), e.UserID, payload(e.Payload))
}

func (p printer) eventType(t event.Type) string {
	switch t {
	case event.EditType:
		return p.paint(color.FgCyan, string(t))
	case event.LockAcquiredType, event.LockReleasedType:
		return p.paint(color.FgYellow, string(t))
	case event.RoleChangedType:
		return p.paint(color.FgMagenta, string(t))
	case event.SessionEndedType:
		return p.paint(color.FgRed, string(t))
	default:
		return p.paint(color.FgGreen, string(t))
	}
}

func (p printer) hits(hits []contract.SearchHit) {
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{h.SessionID, h.EventID, h.Type, h.UserID, fmt.Sprintf("%.3f", h.Score)})
	}
	p.table([]string{"Session", "Event", "Type", "User", "Score"}, rows)
}

func (p printer) metrics(m domain.Metrics) {
	p.table([]string{"Metric", "Value"}, [][]string{
		{"total sessions", fmt.Sprint(m.TotalSessions)},
		{"total edits", fmt.Sprint(m.TotalEdits)},
		{"total conflicts", fmt.Sprint(m.TotalConflicts)},
		{"audit failures", fmt.Sprint(m.AuditFailures)},
		{"dropped events", fmt.Sprint(m.DroppedEvents)},
		{"dropped jobs", fmt.Sprint(m.DroppedJobs)},
		{"peak active users", fmt.Sprint(m.PeakActiveUsers)},
		{"active users", strings.Join(m.ActiveUsers, ",")},
		{"ended sessions", fmt.Sprint(len(m.SessionDurations))},
	})
}

func payload(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04:05")
}

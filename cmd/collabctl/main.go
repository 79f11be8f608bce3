// Command collabctl drives a collaboration server from the terminal.
package main

import (
	"collab-engine/auth"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/infrastructure/grpc/client"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const usage = `usage: collabctl <command> [args]

  token <user> [role]               sign a token with AUTH_SECRET / AUTH_SALT
  sessions                          list sessions
  create <file>                     create a session
  join <file> [role]                join or open the session of a file
  show <session>                    show a session and its content
  end <session>                     end a session
  participants <session>            list participants
  add <session> <user> [role]       add a participant
  remove <session> <user>           remove a participant
  role <session> <user> <role>      change a participant role
  lock <session>                    acquire the session file lock
  unlock <session>                  release it
  locks [page] [limit]              list held locks
  edit <session> k=v [k=v...]       edit fields on top of the current content
  events <session>                  list the session history
  watch <session>                   stream session events
  search <query> [limit]            search indexed events
  metrics                           show usage counters
  reset-metrics                     zero the usage counters
  duration <session>                how long an ended session stayed open
  audit [limit]                     tail the audit trail`

const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	p := printer{out: os.Stdout, colours: cfg.Colours}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return exitUsage
	}

	if args[0] == "token" {
		if err := issueToken(cfg, p, args[1:]); err != nil {
			p.failure("%v", err)
			return exitUsage
		}
		return exitOK
	}

	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		p.failure("cannot connect to %s: %v", cfg.Addr, err)
		return exitRuntime
	}
	defer conn.Close()
	c := client.NewCollabClient(conn, cfg.Token)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if args[0] != "watch" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := dispatch(ctx, c, p, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			return exitUsage
		}
		if st, ok := status.FromError(err); ok {
			p.failure("%s: %s", st.Code(), st.Message())
		} else {
			p.failure("%v", err)
		}
		return exitRuntime
	}
	return exitOK
}

var errUsage = errors.New("usage")

func dispatch(ctx context.Context, c *client.CollabClient, p printer, command string, args []string) error {
	need := func(n int) error {
		if len(args) < n {
			return errUsage
		}
		return nil
	}

	switch command {
	case "sessions":
		sessions, err := c.ListSessions(ctx)
		if err != nil {
			return err
		}
		p.sessions(sessions)
	case "create":
		if err := need(1); err != nil {
			return err
		}
		s, err := c.CreateSession(ctx, args[0])
		if err != nil {
			return err
		}
		p.session(s)
	case "join":
		if err := need(1); err != nil {
			return err
		}
		s, err := c.Join(ctx, args[0], "", domain.Role(arg(args, 1)))
		if err != nil {
			return err
		}
		p.session(s)
	case "show":
		if err := need(1); err != nil {
			return err
		}
		s, err := c.GetSession(ctx, args[0])
		if err != nil {
			return err
		}
		p.session(s)
	case "end":
		if err := need(1); err != nil {
			return err
		}
		if err := c.EndSession(ctx, args[0]); err != nil {
			return err
		}
		p.success("session %s ended", args[0])
	case "participants":
		if err := need(1); err != nil {
			return err
		}
		participants, err := c.ListParticipants(ctx, args[0])
		if err != nil {
			return err
		}
		p.participants(participants)
	case "add":
		if err := need(2); err != nil {
			return err
		}
		if err := c.AddParticipant(ctx, args[0], args[1], domain.Role(arg(args, 2))); err != nil {
			return err
		}
		p.success("%s added to %s", args[1], args[0])
	case "remove":
		if err := need(2); err != nil {
			return err
		}
		if err := c.RemoveParticipant(ctx, args[0], args[1]); err != nil {
			return err
		}
		p.success("%s removed from %s", args[1], args[0])
	case "role":
		if err := need(3); err != nil {
			return err
		}
		if err := c.AssignRole(ctx, args[0], args[1], domain.Role(args[2])); err != nil {
			return err
		}
		p.success("%s is now %s in %s", args[1], args[2], args[0])
	case "lock":
		if err := need(1); err != nil {
			return err
		}
		lock, err := c.AcquireLock(ctx, args[0], "")
		if err != nil {
			return err
		}
		p.locks(domain.LockPage{Locks: []domain.FileLock{lock}, Total: 1, Page: 1, TotalPages: 1})
	case "unlock":
		if err := need(1); err != nil {
			return err
		}
		if err := c.ReleaseLock(ctx, args[0], ""); err != nil {
			return err
		}
		p.success("lock released")
	case "locks":
		page, limit := intArg(args, 0, 1), intArg(args, 1, 20)
		locks, err := c.ListLocks(ctx, page, limit)
		if err != nil {
			return err
		}
		p.locks(locks)
	case "edit":
		if err := need(2); err != nil {
			return err
		}
		changes, err := parseChanges(args[1:])
		if err != nil {
			return err
		}
		s, err := c.GetSession(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := c.Edit(ctx, domain.EditCommand{SessionID: args[0], Base: s.Content, Changes: changes})
		if err != nil {
			return err
		}
		p.editResult(result)
	case "events":
		if err := need(1); err != nil {
			return err
		}
		events, err := c.ListEvents(ctx, args[0])
		if err != nil {
			return err
		}
		p.events(events)
	case "watch":
		if err := need(1); err != nil {
			return err
		}
		return c.Subscribe(ctx, args[0], func(e event.Event) error {
			p.event(e)
			return nil
		})
	case "search":
		if err := need(1); err != nil {
			return err
		}
		hits, err := c.SearchEvents(ctx, args[0], intArg(args, 1, 20))
		if err != nil {
			return err
		}
		p.hits(hits)
	case "metrics":
		m, err := c.Metrics(ctx)
		if err != nil {
			return err
		}
		p.metrics(m)
	case "reset-metrics":
		if err := c.ResetMetrics(ctx); err != nil {
			return err
		}
		p.success("metrics reset")
	case "duration":
		if err := need(1); err != nil {
			return err
		}
		d, err := c.SessionDuration(ctx, args[0])
		if err != nil {
			return err
		}
		p.success("session %s lasted %s", args[0], d)
	case "audit":
		lines, err := c.AuditTail(ctx, intArg(args, 0, 50))
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(p.out, line)
		}
	default:
		return errUsage
	}
	return nil
}

func issueToken(cfg Config, p printer, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	if cfg.AuthSecret == "" || cfg.AuthSalt == "" {
		return fmt.Errorf("AUTH_SECRET and AUTH_SALT are required to sign tokens")
	}
	role, err := domain.ParseRole(arg(args, 1))
	if err != nil {
		return err
	}
	verifier := auth.NewJWTVerifier(auth.DeriveSigningKey(cfg.AuthSecret, cfg.AuthSalt), cfg.AuthIssuer)
	token, err := verifier.GenerateToken(args[0], role, cfg.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, token)
	return nil
}

// parseChanges reads key=value pairs. Values that parse as numbers or
// booleans keep that type, everything else is a string.
func parseChanges(pairs []string) (domain.Fields, error) {
	changes := domain.Fields{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid change %q, expected key=value", pair)
		}
		changes[key] = typed(value)
	}
	return changes, nil
}

func typed(value string) any {
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func intArg(args []string, i, fallback int) int {
	n, err := strconv.Atoi(arg(args, i))
	if err != nil {
		return fallback
	}
	return n
}

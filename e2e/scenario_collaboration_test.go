package e2e

import (
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/infrastructure/grpc/client"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type CollaborationSuite struct {
	BaseGrpcSuite
}

func TestCollaborationSuite(t *testing.T) {
	suite.Run(t, new(CollaborationSuite))
}

// Test_TwoEditors runs against a live server: an admin and an editor share
// a file, the admin holds the lock, the editor is turned away, then the
// admin ends the session.
func (s *CollaborationSuite) Test_TwoEditors() {
	fileID := "e2e-" + uuid.NewString()
	var sessionID string

	s.WithCollab("Alice joins and locks", "alice", domain.RoleAdmin, func(ctx context.Context, c *client.CollabClient) {
		session, err := c.Join(ctx, fileID, "alice", domain.RoleAdmin)
		s.Require().NoError(err)
		sessionID = session.ID

		lock, err := c.AcquireLock(ctx, sessionID, "alice")
		s.Require().NoError(err)
		s.Equal(fileID, lock.FileID)
	})

	s.WithCollab("Bob is turned away", "bob", domain.RoleEditor, func(ctx context.Context, c *client.CollabClient) {
		_, err := c.Join(ctx, fileID, "bob", domain.RoleEditor)
		s.Require().NoError(err)

		_, err = c.AcquireLock(ctx, sessionID, "bob")
		s.Require().Error(err)
		s.Equal("FILE_LOCKED", reason(err))

		_, err = c.Edit(ctx, domain.EditCommand{
			SessionID: sessionID, UserID: "bob",
			Base: domain.Fields{}, Changes: domain.Fields{"title": "bob's"},
		})
		s.Equal(codes.FailedPrecondition, status.Code(err))

		s.Equal(codes.PermissionDenied, status.Code(c.EndSession(ctx, sessionID)))
	})

	s.WithCollab("Alice edits then ends", "alice", domain.RoleAdmin, func(ctx context.Context, c *client.CollabClient) {
		res, err := c.Edit(ctx, domain.EditCommand{
			SessionID: sessionID, UserID: "alice",
			Base: domain.Fields{}, Changes: domain.Fields{"title": "Plan"},
		})
		s.Require().NoError(err)
		s.Equal("Plan", res.Content["title"])

		events, err := c.ListEvents(ctx, sessionID)
		s.Require().NoError(err)
		s.Equal(event.EditType, events[len(events)-1].Type)

		s.Require().NoError(c.EndSession(ctx, sessionID))
		_, err = c.AcquireLock(ctx, sessionID, "alice")
		s.Equal("SESSION_ENDED", reason(err))

		err = c.EndSession(ctx, sessionID)
		s.Equal(codes.NotFound, status.Code(err))
		s.Equal("SESSION_ENDED", reason(err))
	})
}

func (s *CollaborationSuite) Test_Subscribe() {
	fileID := "e2e-" + uuid.NewString()

	s.WithCollab("Carol watches her session", "carol", domain.RoleEditor, func(ctx context.Context, c *client.CollabClient) {
		session, err := c.Join(ctx, fileID, "carol", domain.RoleEditor)
		s.Require().NoError(err)

		watchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		received := make(chan event.Event, 8)
		go func() {
			_ = c.Subscribe(watchCtx, session.ID, func(e event.Event) error {
				received <- e
				return nil
			})
		}()

		// The subscription is registered asynchronously, so edit until one arrives
		s.Eventually(func() bool {
			_, err := c.Edit(ctx, domain.EditCommand{
				SessionID: session.ID, UserID: "carol",
				Base: domain.Fields{}, Changes: domain.Fields{"tick": time.Now().UnixNano()},
			})
			if err != nil {
				return false
			}
			select {
			case e := <-received:
				return e.Type == event.EditType
			case <-time.After(200 * time.Millisecond):
				return false
			}
		}, 8*time.Second, 10*time.Millisecond, fmt.Sprintf("no edit streamed for %s", session.ID))
	})
}

func reason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}

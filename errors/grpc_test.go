package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapToGRPCError_FileLockedCarriesOwner(t *testing.T) {
	req := require.New(t)

	err := MapToGRPCError(fmt.Errorf("acquire: %w", &FileLockedError{FileID: "doc-1", Owner: "u1"}))

	st, ok := status.FromError(err)
	req.True(ok)
	req.Equal(codes.FailedPrecondition, st.Code())
	req.Contains(st.Message(), "locked by u1")
	req.Len(st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	req.True(ok)
	req.Equal("FILE_LOCKED", info.Reason)
	req.Equal("u1", info.Metadata["owner"])
}

func TestMapToGRPCError_Codes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", &SessionNotFoundError{SessionID: "s1"}, codes.NotFound},
		{"duplicate", &DuplicateSessionError{FileID: "f", SessionID: "s"}, codes.AlreadyExists},
		{"ended", &SessionEndedError{SessionID: "s", EndedAt: time.Now()}, codes.FailedPrecondition},
		{"merge input", &InvalidMergeInputError{Argument: "base"}, codes.InvalidArgument},
		{"command", fmt.Errorf("%w: bad", ErrInvalidCommand), codes.InvalidArgument},
		{"viewer", ErrReadOnlyParticipant, codes.PermissionDenied},
		{"not admin", fmt.Errorf("%w: u2 on s1", ErrForbidden), codes.PermissionDenied},
		{"still open", fmt.Errorf("%w: s1", ErrSessionActive), codes.FailedPrecondition},
		{"unknown", stderrors.New("boom"), codes.Internal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st, ok := status.FromError(MapToGRPCError(c.err))
			require.True(t, ok)
			require.Equal(t, c.code, st.Code())
		})
	}
	require.NoError(t, MapToGRPCError(nil))
}

func TestMapToGRPCError_EndedTwiceIsNotFoundWithEndTime(t *testing.T) {
	req := require.New(t)
	endedAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	err := MapToGRPCError(&SessionNotFoundError{SessionID: "s1", EndedAt: &endedAt})

	st, ok := status.FromError(err)
	req.True(ok)
	req.Equal(codes.NotFound, st.Code())
	req.Len(st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	req.True(ok)
	req.Equal("SESSION_ENDED", info.Reason)
	req.Equal("s1", info.Metadata["sessionId"])
	req.Equal(endedAt.Format(time.RFC3339Nano), info.Metadata["endedAt"])
}

func TestTypedErrors_MatchSentinels(t *testing.T) {
	req := require.New(t)
	cause := stderrors.New("disk full")
	auditErr := &AuditWriteError{Cause: cause}

	req.ErrorIs(auditErr, ErrAuditWrite)
	req.ErrorIs(auditErr, cause)
	req.ErrorIs(&FileLockedError{}, ErrFileLocked)
	req.ErrorIs(&SessionEndedError{}, ErrSessionEnded)
	req.ErrorIs(&InvalidEventError{Field: "userId"}, ErrInvalidEvent)

	endedAt := time.Now()
	req.ErrorIs(&SessionNotFoundError{SessionID: "s1"}, ErrSessionNotFound)
	req.NotErrorIs(&SessionNotFoundError{SessionID: "s1"}, ErrSessionEnded)
	req.ErrorIs(&SessionNotFoundError{SessionID: "s1", EndedAt: &endedAt}, ErrSessionNotFound)
	req.ErrorIs(&SessionNotFoundError{SessionID: "s1", EndedAt: &endedAt}, ErrSessionEnded)
}

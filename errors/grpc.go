package errors

import (
	stderrors "errors"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "collab-engine"

// MapToGRPCError converts engine errors into gRPC statuses.
// Lock contention and ended sessions carry an ErrorInfo so clients can
// render the owner or the end time without parsing the message.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var locked *FileLockedError
	if stderrors.As(err, &locked) {
		return withInfo(codes.FailedPrecondition, err, "FILE_LOCKED", map[string]string{
			"fileId": locked.FileID,
			"owner":  locked.Owner,
		})
	}
	var gone *SessionNotFoundError
	if stderrors.As(err, &gone) && gone.EndedAt != nil {
		return withInfo(codes.NotFound, err, "SESSION_ENDED", map[string]string{
			"sessionId": gone.SessionID,
			"endedAt":   gone.EndedAt.Format(time.RFC3339Nano),
		})
	}
	var ended *SessionEndedError
	if stderrors.As(err, &ended) {
		return withInfo(codes.FailedPrecondition, err, "SESSION_ENDED", map[string]string{
			"sessionId": ended.SessionID,
			"endedAt":   ended.EndedAt.Format(time.RFC3339Nano),
		})
	}

	switch {
	case stderrors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case stderrors.Is(err, ErrDuplicateSession):
		return status.Error(codes.AlreadyExists, err.Error())
	case stderrors.Is(err, ErrSessionActive):
		return status.Error(codes.FailedPrecondition, err.Error())
	case stderrors.Is(err, ErrInvalidMergeInput),
		stderrors.Is(err, ErrInvalidEvent),
		stderrors.Is(err, ErrInvalidCommand):
		return status.Error(codes.InvalidArgument, err.Error())
	case stderrors.Is(err, ErrNotParticipant),
		stderrors.Is(err, ErrReadOnlyParticipant),
		stderrors.Is(err, ErrLockNotHeld),
		stderrors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case stderrors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func withInfo(code codes.Code, err error, reason string, metadata map[string]string) error {
	st := status.New(code, err.Error())
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: metadata,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

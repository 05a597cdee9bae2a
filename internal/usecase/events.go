package usecase

import "context"

// EventLog records user-visible events; implementations never fail.
type EventLog interface {
	Info(ctx context.Context, userID, logContext, message string)
	Warn(ctx context.Context, userID, logContext, message string)
	Error(ctx context.Context, userID, logContext string, err error)
}

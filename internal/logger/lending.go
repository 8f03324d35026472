package logger

import "go.uber.org/zap"

type Action = string

const (
	IssueBook        Action = "IssueBook"
	ReturnBook       Action = "ReturnBook"
	ListActiveIssues Action = "ListActiveIssues"
	AdjustStock      Action = "AdjustStock"
	OverdueSweep     Action = "OverdueSweep"
)

func InfoIssueBook(l *zap.Logger, msg string, callerID, userID, bookID uint64, issueID ...uint64) {
	fields := []zap.Field{
		zap.Uint64("caller_id", callerID),
		zap.Uint64("user_id", userID),
		zap.Uint64("book_id", bookID),
		zap.String("action", IssueBook),
	}
	if len(issueID) > 0 {
		fields = append(fields, zap.Uint64("issue_id", issueID[0]))
	}
	MakeInfo(l, msg, fields...)
}

func ErrorIssueBook(l *zap.Logger, err error, msg string, callerID, userID, bookID uint64) bool {
	return CheckError(err, l, msg,
		zap.Uint64("caller_id", callerID),
		zap.Uint64("user_id", userID),
		zap.Uint64("book_id", bookID),
		zap.Error(err),
		zap.String("action", IssueBook))
}

func InfoReturnBook(l *zap.Logger, msg string, callerID, issueID uint64, bookID ...uint64) {
	fields := []zap.Field{
		zap.Uint64("caller_id", callerID),
		zap.Uint64("issue_id", issueID),
		zap.String("action", ReturnBook),
	}
	if len(bookID) > 0 {
		fields = append(fields, zap.Uint64("book_id", bookID[0]))
	}
	MakeInfo(l, msg, fields...)
}

func ErrorReturnBook(l *zap.Logger, err error, msg string, callerID, issueID uint64) bool {
	return CheckError(err, l, msg,
		zap.Uint64("caller_id", callerID),
		zap.Uint64("issue_id", issueID),
		zap.Error(err),
		zap.String("action", ReturnBook))
}

func WarnDenied(l *zap.Logger, action Action, reason string, fields ...zap.Field) {
	MakeWarn(l, "lending request denied",
		append(fields, zap.String("reason", reason), zap.String("action", action))...)
}

func WarnLockRetry(l *zap.Logger, action Action, err error) {
	MakeWarn(l, "lock wait timeout, retrying once",
		zap.Error(err), zap.String("action", action))
}

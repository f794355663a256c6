package errors

import "fmt"

var (
	ErrDuplicateName   = fmt.Errorf("display name already taken")
	ErrDuplicateOrigin = fmt.Errorf("origin already connected")
	ErrInvalidName     = fmt.Errorf("invalid display name")
	ErrUnknownSession  = fmt.Errorf("unknown or expired session")
	ErrUnknownSender   = fmt.Errorf("unknown sender")
	ErrMessageTooLong  = fmt.Errorf("message exceeds maximum length")
	ErrSendBufferFull  = fmt.Errorf("send buffer full")
	ErrSinkClosed      = fmt.Errorf("connection closed")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
)

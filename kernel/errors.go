package kernel

import "errors"

var (
	ErrNoFreeSlot = errors.New("kernel: no free process slot")
	ErrNoStack    = errors.New("kernel: no free stack")
	ErrNoFreeSem  = errors.New("kernel: no free semaphore")
	ErrInvalidPID = errors.New("kernel: invalid pid")
	ErrInvalidSem = errors.New("kernel: invalid semaphore")
	ErrProtected  = errors.New("kernel: process is protected")
	ErrSemDeleted = errors.New("kernel: semaphore deleted while waiting")
	ErrSemCorrupt = errors.New("kernel: semaphore count and wait list disagree")
	ErrNoCurrent  = errors.New("kernel: no current process")
	ErrNilEntry   = errors.New("kernel: nil entry")
	ErrBooted     = errors.New("kernel: already booted")
	ErrRunning    = errors.New("kernel: process is running")
)

// Code maps an error returned by the kernel to its numeric status: 0 for
// success, -1 for every failure.
func Code(err error) int {
	if err == nil {
		return 0
	}
	return -1
}

// SendResult describes the outcome of a send attempt.
type SendResult uint8

const (
	SendOK SendResult = iota
	SendErrInvalidPID
	SendErrMailboxFull
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendErrInvalidPID:
		return "invalid pid"
	case SendErrMailboxFull:
		return "mailbox full"
	default:
		return "unknown"
	}
}

// Code returns the numeric status of r: 0, -1 (invalid pid) or -2 (mailbox full).
func (r SendResult) Code() int {
	switch r {
	case SendOK:
		return 0
	case SendErrMailboxFull:
		return -2
	default:
		return -1
	}
}

package jdb

import "errors"

var (
	// ErrExited is returned by futures that were still open when the session ended.
	ErrExited = errors.New("jdb: session exited")
	// ErrStreamClosed rejects startup when jdb's output closes before the session is ready.
	ErrStreamClosed = errors.New("jdb: output stream closed before ready")
	// ErrListenerTimeout is returned when the target's debug listener never opened.
	ErrListenerTimeout = errors.New("jdb: timed out waiting for debug listener")
	// ErrStartupFailed wraps every cause that aborted session startup.
	ErrStartupFailed = errors.New("jdb: startup failed")
	// ErrUnknownCategory is returned by ParseCategory.
	ErrUnknownCategory = errors.New("jdb: unknown command category")
)

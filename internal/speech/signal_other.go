//go:build !unix

package speech

import "os"

const canSuspend = false

func suspend(*os.Process) error { return ErrPauseUnsupported }

func resume(*os.Process) error { return ErrPauseUnsupported }

package cli

import (
	"github.com/furiosa-ai/furiosa-client/errs"
)

// Exit codes returned by the furiosa command.
const (
	ExitOK                = 0
	ExitError             = 1
	ExitCompilationFailed = 2
	ExitNoCredentials     = 3
	ExitCancelled         = 130
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch errs.KindOf(err) {
	case 0:
		if err == nil {
			return ExitOK
		}
		return ExitError
	case errs.KindCompilationFailed:
		return ExitCompilationFailed
	case errs.KindNoCredentials:
		return ExitNoCredentials
	case errs.KindCancelled:
		return ExitCancelled
	default:
		return ExitError
	}
}

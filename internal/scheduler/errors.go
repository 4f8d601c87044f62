package scheduler

import "github.com/opendsp/audiocore/pkg/xerror"

func errInvalidArg(op string) error {
	return xerror.New(xerror.InvalidArg, op, nil)
}

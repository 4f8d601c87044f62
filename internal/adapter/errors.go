package adapter

import "github.com/opendsp/audiocore/pkg/xerror"

func errOutOfMemory(op string) error {
	return xerror.New(xerror.OutOfMemory, op, nil)
}

func errInvalidArg(op string) error {
	return xerror.New(xerror.InvalidArg, op, nil)
}

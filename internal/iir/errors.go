package iir

import "github.com/opendsp/audiocore/pkg/xerror"

func errInvalidArg(op string) error {
	return xerror.New(xerror.InvalidArg, op, nil)
}

func errOutOfMemory(op string) error {
	return xerror.New(xerror.OutOfMemory, op, nil)
}

package module

import (
	"fmt"

	"github.com/opendsp/audiocore/pkg/xerror"
)

func errIllegalTransition(op string, from State) error {
	return xerror.New(xerror.InvalidState, fmt.Sprintf("%s: from %s", op, from), nil)
}

func errInvalidArg(op string) error {
	return xerror.New(xerror.InvalidArg, op, nil)
}


package ring

import "github.com/opendsp/audiocore/pkg/xerror"

// errNoData wraps xerror.NoData for the get_buffer/get_data insufficient-room path.
func errNoData(op string) error {
	return xerror.New(xerror.NoData, op, nil)
}

// errInvalidArg wraps xerror.InvalidArg for malformed sizing requests.
func errInvalidArg(op string, cause error) error {
	return xerror.New(xerror.InvalidArg, op, cause)
}

// errOutOfMemory wraps xerror.OutOfMemory for construction failures.
func errOutOfMemory(op string, cause error) error {
	return xerror.New(xerror.OutOfMemory, op, cause)
}

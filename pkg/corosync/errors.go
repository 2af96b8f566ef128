package corosync

import (
	"errors"
	"fmt"
)

// ErrNotBuilt reports that the native bindings were not linked into the
// current binary. Build with cgo on Linux and the "corosync" tag to link
// libcpg and libcfg.
var ErrNotBuilt = errors.New("corosync: native bindings not built")

// CsError is a cs_error_t result code. CsOK is the only success value; every
// other value also satisfies the error interface so callers can match it with
// errors.Is.
type CsError int32

const (
	CsOK                   CsError = 1
	CsErrLibrary           CsError = 2
	CsErrVersion           CsError = 3
	CsErrInit              CsError = 4
	CsErrTimeout           CsError = 5
	CsErrTryAgain          CsError = 6
	CsErrInvalidParam      CsError = 7
	CsErrNoMemory          CsError = 8
	CsErrBadHandle         CsError = 9
	CsErrBusy              CsError = 10
	CsErrAccess            CsError = 11
	CsErrNotExist          CsError = 12
	CsErrNameTooLong       CsError = 13
	CsErrExist             CsError = 14
	CsErrNoSpace           CsError = 15
	CsErrInterrupt         CsError = 16
	CsErrNameNotFound      CsError = 17
	CsErrNoResources       CsError = 18
	CsErrNotSupported      CsError = 19
	CsErrBadOperation      CsError = 20
	CsErrFailedOperation   CsError = 21
	CsErrMessageError      CsError = 22
	CsErrQueueFull         CsError = 23
	CsErrQueueNotAvailable CsError = 24
	CsErrBadFlags          CsError = 25
	CsErrTooBig            CsError = 26
	CsErrNoSections        CsError = 27
	CsErrContextNotFound   CsError = 28
	CsErrTooManyGroups     CsError = 30
	CsErrSecurity          CsError = 100
)

var csErrorNames = map[CsError]string{
	CsOK:                   "CS_OK",
	CsErrLibrary:           "CS_ERR_LIBRARY",
	CsErrVersion:           "CS_ERR_VERSION",
	CsErrInit:              "CS_ERR_INIT",
	CsErrTimeout:           "CS_ERR_TIMEOUT",
	CsErrTryAgain:          "CS_ERR_TRY_AGAIN",
	CsErrInvalidParam:      "CS_ERR_INVALID_PARAM",
	CsErrNoMemory:          "CS_ERR_NO_MEMORY",
	CsErrBadHandle:         "CS_ERR_BAD_HANDLE",
	CsErrBusy:              "CS_ERR_BUSY",
	CsErrAccess:            "CS_ERR_ACCESS",
	CsErrNotExist:          "CS_ERR_NOT_EXIST",
	CsErrNameTooLong:       "CS_ERR_NAME_TOO_LONG",
	CsErrExist:             "CS_ERR_EXIST",
	CsErrNoSpace:           "CS_ERR_NO_SPACE",
	CsErrInterrupt:         "CS_ERR_INTERRUPT",
	CsErrNameNotFound:      "CS_ERR_NAME_NOT_FOUND",
	CsErrNoResources:       "CS_ERR_NO_RESOURCES",
	CsErrNotSupported:      "CS_ERR_NOT_SUPPORTED",
	CsErrBadOperation:      "CS_ERR_BAD_OPERATION",
	CsErrFailedOperation:   "CS_ERR_FAILED_OPERATION",
	CsErrMessageError:      "CS_ERR_MESSAGE_ERROR",
	CsErrQueueFull:         "CS_ERR_QUEUE_FULL",
	CsErrQueueNotAvailable: "CS_ERR_QUEUE_NOT_AVAILABLE",
	CsErrBadFlags:          "CS_ERR_BAD_FLAGS",
	CsErrTooBig:            "CS_ERR_TOO_BIG",
	CsErrNoSections:        "CS_ERR_NO_SECTIONS",
	CsErrContextNotFound:   "CS_ERR_CONTEXT_NOT_FOUND",
	CsErrTooManyGroups:     "CS_ERR_TOO_MANY_GROUPS",
	CsErrSecurity:          "CS_ERR_SECURITY",
}

func (e CsError) Error() string {
	if name, ok := csErrorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("CS_ERR_UNKNOWN(%d)", int32(e))
}

// Class groups result codes into the failure kinds callers usually branch
// on.
type Class int

const (
	ClassNone Class = iota
	ClassInvalidParam
	ClassLibrary
	ClassNotFound
	ClassAccess
	ClassResource
	ClassTryAgain
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInvalidParam:
		return "invalid_param"
	case ClassLibrary:
		return "library"
	case ClassNotFound:
		return "not_found"
	case ClassAccess:
		return "access"
	case ClassResource:
		return "resource"
	case ClassTryAgain:
		return "try_again"
	default:
		return "other"
	}
}

// Class returns the failure kind of e.
func (e CsError) Class() Class {
	switch e {
	case CsOK:
		return ClassNone
	case CsErrInvalidParam, CsErrBadFlags, CsErrBadOperation, CsErrVersion:
		return ClassInvalidParam
	case CsErrLibrary, CsErrInit, CsErrFailedOperation, CsErrMessageError:
		return ClassLibrary
	case CsErrNotExist, CsErrBadHandle, CsErrNameNotFound, CsErrNoSections, CsErrContextNotFound:
		return ClassNotFound
	case CsErrAccess, CsErrSecurity:
		return ClassAccess
	case CsErrNoMemory, CsErrNameTooLong, CsErrNoSpace, CsErrNoResources,
		CsErrTooBig, CsErrQueueFull, CsErrTooManyGroups:
		return ClassResource
	case CsErrTryAgain, CsErrTimeout, CsErrBusy, CsErrInterrupt, CsErrQueueNotAvailable:
		return ClassTryAgain
	default:
		return ClassOther
	}
}

// OpError records the native call that produced an error.
type OpError struct {
	Op  string // native call, e.g. "cpg_join"
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("corosync: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Check converts the result of the native call op into an error. It returns
// nil for CsOK.
func Check(op string, code CsError) error {
	if code == CsOK {
		return nil
	}
	return &OpError{Op: op, Err: code}
}

// Errorf returns an OpError for op that wraps code with extra detail.
func Errorf(op string, code CsError, format string, args ...any) error {
	return &OpError{
		Op:  op,
		Err: fmt.Errorf("%w: %s", code, fmt.Sprintf(format, args...)),
	}
}

// InvalidParam reports a parameter rejected before it reached native code.
func InvalidParam(op string, format string, args ...any) error {
	return Errorf(op, CsErrInvalidParam, format, args...)
}

// ClassOf returns the failure kind carried by err. Errors that do not wrap a
// CsError are ClassOther; a nil error is ClassNone.
func ClassOf(err error) Class {
	if err == nil {
		return ClassNone
	}
	var code CsError
	if errors.As(err, &code) {
		return code.Class()
	}
	return ClassOther
}

// IsTryAgain reports whether err is a transient condition worth retrying.
func IsTryAgain(err error) bool {
	return ClassOf(err) == ClassTryAgain
}

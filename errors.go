package fatfs

import "github.com/pkg/errors"

// status is the internal result code every low-level operation returns.
// It implements error so callers that only care about err != nil keep
// working, while callers that need to branch on the specific failure can
// type-assert back to status.
type status uint8

const (
	statusOK status = iota
	statusDiskErr
	statusIntErr
	statusNotReady
	statusNoFile
	statusNoPath
	statusInvalidName
	statusDenied
	statusExist
	statusInvalidObject
	statusWriteProtected
	statusInvalidDrive
	statusNotEnabled
	statusNoFilesystem
	statusTimeout
	statusLocked
	statusNotEnoughCore
	statusTooManyOpenFiles
	statusInvalidParameter
	statusNoSpace
	statusEndOfChain
	statusIsDirectory
	statusNotDirectory
	statusReadOnlyEntry
)

func (s status) Error() string {
	switch s {
	case statusOK:
		return "fatfs: ok"
	case statusDiskErr:
		return "fatfs: disk I/O error"
	case statusIntErr:
		return "fatfs: internal consistency error"
	case statusNotReady:
		return "fatfs: volume not mounted"
	case statusNoFile:
		return "fatfs: no such file"
	case statusNoPath:
		return "fatfs: no such path"
	case statusInvalidName:
		return "fatfs: invalid name"
	case statusDenied:
		return "fatfs: access denied"
	case statusExist:
		return "fatfs: file exists"
	case statusInvalidObject:
		return "fatfs: invalid handle"
	case statusWriteProtected:
		return "fatfs: volume is read-only"
	case statusInvalidDrive:
		return "fatfs: invalid volume"
	case statusNotEnabled:
		return "fatfs: volume work area not initialized"
	case statusNoFilesystem:
		return "fatfs: no valid FAT volume found"
	case statusTimeout:
		return "fatfs: operation timed out"
	case statusLocked:
		return "fatfs: file locked by another handle"
	case statusNotEnoughCore:
		return "fatfs: not enough memory"
	case statusTooManyOpenFiles:
		return "fatfs: too many open files"
	case statusInvalidParameter:
		return "fatfs: invalid parameter"
	case statusNoSpace:
		return "fatfs: no free clusters"
	case statusEndOfChain:
		return "fatfs: end of cluster chain"
	case statusIsDirectory:
		return "fatfs: is a directory"
	case statusNotDirectory:
		return "fatfs: not a directory"
	case statusReadOnlyEntry:
		return "fatfs: file is marked read-only"
	default:
		return "fatfs: unknown error"
	}
}

// diskError pairs statusDiskErr with the block device's underlying error so
// logs retain the root cause while callers can still compare against a
// stable status.
type diskError struct {
	cause error
}

func (e *diskError) Error() string {
	return errors.Wrap(e.cause, statusDiskErr.Error()).Error()
}

func (e *diskError) Unwrap() error { return e.cause }

// Is reports whether target is statusDiskErr, so errors.Is(err, statusDiskErr)
// works against a wrapped diskError the same way it would against a bare
// status value.
func (e *diskError) Is(target error) bool {
	s, ok := target.(status)
	return ok && s == statusDiskErr
}

func wrapDisk(err error) error {
	if err == nil {
		return nil
	}
	return &diskError{cause: err}
}

package nfsgateway

import (
	"errors"
	"io/fs"

	"github.com/aegis-run/orchestrator/internal/fsal"
)

// Status is this package's NFSv3-shaped status code, a subset of
// nfsstat3 sufficient for a wire front end to translate directly,
// named identically to the RFC 1813 constants.
type Status int

const (
	NFS3_OK Status = iota
	NFS3ERR_NOENT
	NFS3ERR_ACCES
	NFS3ERR_NOSPC
	NFS3ERR_IO
	NFS3ERR_INVAL
	NFS3ERR_BADHANDLE
	NFS3ERR_NOTSUPP
)

func (s Status) String() string {
	switch s {
	case NFS3_OK:
		return "NFS3_OK"
	case NFS3ERR_NOENT:
		return "NFS3ERR_NOENT"
	case NFS3ERR_ACCES:
		return "NFS3ERR_ACCES"
	case NFS3ERR_NOSPC:
		return "NFS3ERR_NOSPC"
	case NFS3ERR_IO:
		return "NFS3ERR_IO"
	case NFS3ERR_INVAL:
		return "NFS3ERR_INVAL"
	case NFS3ERR_BADHANDLE:
		return "NFS3ERR_BADHANDLE"
	case NFS3ERR_NOTSUPP:
		return "NFS3ERR_NOTSUPP"
	default:
		return "NFS3ERR_IO"
	}
}

// ToStatus maps an FSAL error to its NFSv3 status code:
// QuotaExceeded → NOSPC; PolicyViolation/unauthorized
// access → ACCES; VolumeNotFound or a not-found path → NOENT; a
// malformed/out-of-bounds path → INVAL; everything else → IO. A nil
// err maps to NFS3_OK.
func ToStatus(err error) Status {
	if err == nil {
		return NFS3_OK
	}

	if fsal.IsQuotaExceeded(err) {
		return NFS3ERR_NOSPC
	}

	var policyErr *fsal.PolicyViolation
	if errors.As(err, &policyErr) {
		return NFS3ERR_ACCES
	}

	var authErr *fsal.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case "volume_not_found":
			return NFS3ERR_NOENT
		case "unauthorized_access":
			return NFS3ERR_ACCES
		case "volume_not_attached":
			return NFS3ERR_ACCES
		}
		return NFS3ERR_IO
	}

	var pathErr *fsal.PathError
	if errors.As(err, &pathErr) {
		if pathErr.Traversal {
			return NFS3ERR_ACCES
		}
		return NFS3ERR_INVAL
	}

	var notReg *ErrVolumeNotRegistered
	if errors.As(err, &notReg) {
		return NFS3ERR_NOENT
	}

	var notFound *ErrHandleNotFound
	if errors.As(err, &notFound) {
		return NFS3ERR_BADHANDLE
	}

	if errors.Is(err, fs.ErrNotExist) {
		return NFS3ERR_NOENT
	}

	return NFS3ERR_IO
}

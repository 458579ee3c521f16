package account

import (
	"errors"
	"fmt"
	"strconv"
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindStatus
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "network"
	}
}

// FetchError names the sub-resource whose request failed.
type FetchError struct {
	Resource   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return e.Resource + ": " + strconv.Itoa(e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s: decode: %v", e.Resource, e.Err)
	default:
		if e.Err == nil {
			return e.Resource + ": request failed"
		}
		return e.Resource + ": " + e.Err.Error()
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

type statusCoder interface {
	StatusCode() int
}

type decodeFailure interface {
	DecodeFailure() bool
}

// NewFetchError classifies err for resource. Gateway errors exposing StatusCode()
// become KindStatus, those reporting DecodeFailure() become KindDecode.
func NewFetchError(resource string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var existing *FetchError
	if errors.As(err, &existing) {
		return existing
	}
	fe := &FetchError{Resource: resource, Kind: KindNetwork, Err: err}
	var sc statusCoder
	var df decodeFailure
	switch {
	case errors.As(err, &sc) && sc.StatusCode() > 0:
		fe.Kind = KindStatus
		fe.StatusCode = sc.StatusCode()
	case errors.As(err, &df) && df.DecodeFailure():
		fe.Kind = KindDecode
	}
	return fe
}

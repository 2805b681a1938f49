package routererr

import "fmt"

// StatusInternalRouterError is a non-standard status code kept for wire
// compatibility with existing router clients.
const StatusInternalRouterError = 532

type Kind string

const (
	KindNetwork      Kind = "network"
	KindDecode       Kind = "decode"
	KindPathNotFound Kind = "path_not_found"
)

type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("router error, caused by worker transport failure: %v", e.Err)
	case KindDecode:
		return fmt.Sprintf("router error, caused by decode failure: %v", e.Err)
	case KindPathNotFound:
		return fmt.Sprintf("no such component: %s", e.Path)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "router error"
}

func (e *Error) Unwrap() error { return e.Err }

func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func Decode(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}

func PathNotFound(path string) *Error {
	return &Error{Kind: KindPathNotFound, Path: path}
}

package gateway

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrUnsupported is returned when the venue cannot perform an operation
// (e.g. leverage management is manual-only on some deployments).
var ErrUnsupported = errors.New("operation not supported by venue")

// ErrNotFound is returned when the requested entity does not exist
// (contract, ticker, mid price source).
var ErrNotFound = errors.New("not found")

// ConnectivityError 标记传输层失败，可由 WithRetry 重试；
// 应用层错误（缺数据、校验失败、交易所拒单）不属于此类。
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string { return "connectivity: " + e.Err.Error() }
func (e *ConnectivityError) Unwrap() error { return e.Err }

// IsConnectivity reports whether err is a transport-level failure.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func connectivity(op string, err error) error {
	return &ConnectivityError{Err: fmt.Errorf("%s: %w", op, err)}
}

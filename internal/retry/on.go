package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

type condition uint8

const (
	on5xx condition = 1 << iota
	onGatewayError
	onConnectFailure
	onRetriable4xx
)

// On describes which responses and errors are worth retrying. The condition
// names follow Envoy's x-envoy-retry-on header.
type On struct {
	conditions  condition
	statusCodes []int
}

func NewDefaultRetryOn() *On {
	return &On{
		conditions: onGatewayError | onConnectFailure | onRetriable4xx,
	}
}

// NewRetryOnFromString parses a comma separated list of condition names and
// status codes, e.g. "gateway-error,connect-failure,429".
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		switch token {
		case "":
		case "5xx":
			o.conditions |= on5xx
		case "gateway-error":
			o.conditions |= onGatewayError
		case "connect-failure":
			o.conditions |= onConnectFailure
		case "retriable-4xx":
			o.conditions |= onRetriable4xx
		default:
			statusCode, err := strconv.Atoi(token)
			if err != nil {
				return nil, xerrors.Errorf("invalid retryOn: %s", token)
			}
			o.statusCodes = append(o.statusCodes, statusCode)
		}
	}
	return o, nil
}

func (o *On) has(c condition) bool {
	return o.conditions&c != 0
}

// https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.has(on5xx) && code >= 500 && code < 600:
		return true
	case o.has(onGatewayError) && code >= 502 && code < 505:
		return true
	case o.has(onRetriable4xx) && code == http.StatusConflict:
		return true
	}

	for _, statusCode := range o.statusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// CheckError reports whether a transport error looks like a dropped or
// refused connection.
func (o *On) CheckError(err error) bool {
	if !o.has(onConnectFailure) && !o.has(on5xx) {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

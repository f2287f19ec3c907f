package protocol

import "errors"

var (
	ErrUnknownCodec   = errors.New("protocol: unknown codec")
	ErrEmptyDatagram  = errors.New("protocol: empty datagram")
	ErrMissingSeq     = errors.New("protocol: missing seq")
	ErrMalformedEvent = errors.New("protocol: malformed log event")
)

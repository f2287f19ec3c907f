package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Codec serializes datagram payloads. Decode must reject records that are
// missing required fields so peers can discard them silently.
type Codec interface {
	Name() string
	EncodeMessage(msg Message) ([]byte, error)
	DecodeMessage(data []byte) (Message, error)
	EncodeAck(ack Ack) ([]byte, error)
	DecodeAck(data []byte) (Ack, error)
}

// CodecByName resolves a configured codec name; empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// wireMessage uses pointers so absent fields are distinguishable from zero values.
type wireMessage struct {
	Msg *string `json:"msg" msgpack:"msg"`
	Seq *uint64 `json:"seq" msgpack:"seq"`
}

type wireAck struct {
	Seq *uint64 `json:"seq" msgpack:"seq"`
}

func (w wireMessage) message() (Message, error) {
	if w.Seq == nil {
		return Message{}, ErrMissingSeq
	}
	if w.Msg == nil {
		return Message{}, fmt.Errorf("protocol: missing msg")
	}
	return Message{Msg: *w.Msg, Seq: *w.Seq}, nil
}

func (w wireAck) ack() (Ack, error) {
	if w.Seq == nil {
		return Ack{}, ErrMissingSeq
	}
	return Ack{Seq: *w.Seq}, nil
}

// JSONCodec is the default text encoding: {"msg":"..","seq":N} and {"seq":N}.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) DecodeMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyDatagram
	}
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("protocol: decode message: %w", err)
	}
	return w.message()
}

func (JSONCodec) EncodeAck(ack Ack) ([]byte, error) {
	return json.Marshal(ack)
}

func (JSONCodec) DecodeAck(data []byte) (Ack, error) {
	if len(data) == 0 {
		return Ack{}, ErrEmptyDatagram
	}
	var w wireAck
	if err := json.Unmarshal(data, &w); err != nil {
		return Ack{}, fmt.Errorf("protocol: decode ack: %w", err)
	}
	return w.ack()
}

// MsgpackCodec is the compact binary alternative; both peers must agree.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }

func (MsgpackCodec) EncodeMessage(msg Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (MsgpackCodec) DecodeMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyDatagram
	}
	var w wireMessage
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("protocol: decode message: %w", err)
	}
	return w.message()
}

func (MsgpackCodec) EncodeAck(ack Ack) ([]byte, error) {
	return msgpack.Marshal(ack)
}

func (MsgpackCodec) DecodeAck(data []byte) (Ack, error) {
	if len(data) == 0 {
		return Ack{}, ErrEmptyDatagram
	}
	var w wireAck
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return Ack{}, fmt.Errorf("protocol: decode ack: %w", err)
	}
	return w.ack()
}

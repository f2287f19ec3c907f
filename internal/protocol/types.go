package protocol

// Message is one user payload on the wire.
type Message struct {
	Msg string `json:"msg" msgpack:"msg"`
	Seq uint64 `json:"seq" msgpack:"seq"`
}

// Ack confirms receipt of the Message carrying the same Seq.
type Ack struct {
	Seq uint64 `json:"seq" msgpack:"seq"`
}

// Seq ids start at 1; zero never appears on the wire.
const FirstSeq uint64 = 1

// Package nats adapts a NATS message's headers to pathway.HeaderCarrier
// so pathway context can ride in-band on a NATS subject alongside the
// message body, the same way it rides HTTP or Kafka headers.
package nats

import (
	natsgo "github.com/nats-io/nats.go"

	"github.com/tgres/tgres/pathway"
)

// MsgCarrier adapts *nats.Msg.Header to pathway.HeaderCarrier. NATS
// headers are natively string-valued; binary pathway context is
// therefore always carried in its base64 form on this transport.
type MsgCarrier struct {
	Msg *natsgo.Msg
}

// Get implements pathway.HeaderCarrier.
func (c MsgCarrier) Get(key string) ([]byte, bool) {
	if c.Msg.Header == nil {
		return nil, false
	}
	v := c.Msg.Header.Get(key)
	if v == "" {
		return nil, false
	}
	return []byte(v), true
}

// Set implements pathway.HeaderCarrier.
func (c MsgCarrier) Set(key string, value []byte) {
	if c.Msg.Header == nil {
		c.Msg.Header = natsgo.Header{}
	}
	c.Msg.Header.Set(key, string(value))
}

// Del implements pathway.HeaderCarrier.
func (c MsgCarrier) Del(key string) {
	if c.Msg.Header == nil {
		return
	}
	c.Msg.Header.Del(key)
}

// Inject writes p onto msg's headers using the base64 header form,
// since raw binary is not representable in a NATS header value.
func Inject(msg *natsgo.Msg, p pathway.Pathway) {
	if msg.Header == nil {
		msg.Header = natsgo.Header{}
	}
	msg.Header.Del("dd-pathway-ctx")
	msg.Header.Del("dd-pathway-ctx-base64")
	msg.Header.Set("dd-pathway-ctx-base64", pathway.EncodeString(p))
}

// Extract reads a propagated pathway back off msg's headers.
func Extract(msg *natsgo.Msg) (pathway.Pathway, bool) {
	return pathway.ExtractHeaders(MsgCarrier{Msg: msg})
}

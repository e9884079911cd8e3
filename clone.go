// Package clone implements a structured-clone codec: it turns a possibly
// cyclic graph of values into a flat, versioned little-endian byte stream and
// rebuilds an equivalent graph from it, possibly in another realm.
//
// Composites are encoded once and referenced by index afterwards, so shared
// and cyclic references survive a round trip. Array buffers listed in a
// Transfer are moved rather than copied: their storage travels out of band
// and every view over them is neutered in the realms of the codec's registry.
package clone

import (
	"bytes"

	"go.uber.org/zap"
)

// Codec serializes and deserializes value graphs. It is safe for concurrent
// use on disjoint graphs.
type Codec struct {
	maxDepth int
	registry *RealmRegistry
	log      *zap.Logger
}

// New returns a Codec configured by opts.
func New(opts ...Option) *Codec {
	c := &Codec{
		maxDepth: DefaultMaxDepth,
		registry: NewRealmRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the realms reached when array buffers are transferred.
func (c *Codec) Registry() *RealmRegistry { return c.registry }

// MaxDepth returns the nesting bound of the codec.
func (c *Codec) MaxDepth() int { return c.maxDepth }

func (c *Codec) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return Logger()
}

// Serialize encodes v. Ports and buffers listed in t are referenced by position;
// on success the listed buffers are detached and their views neutered.
// On failure nothing is written and nothing is transferred.
func (c *Codec) Serialize(v Value, t *Transfer) (*SerializedValue, error) {
	w := NewWriter()
	defer w.Release()

	s := newSerializer(w, t, c.maxDepth)
	if err := s.serialize(v); err != nil {
		c.logger().Warn("serialize failed", zap.Stringer("code", CodeOf(err)), zap.Error(err))
		return nil, err
	}

	var contents [][]byte
	if t != nil {
		var err error
		if contents, err = transferArrayBuffers(t.Buffers, c.registry, c.logger()); err != nil {
			c.logger().Warn("transfer failed", zap.Stringer("code", CodeOf(err)), zap.Error(err))
			return nil, err
		}
	}

	sv := &SerializedValue{
		data:     bytes.Clone(w.Bytes()),
		BlobURLs: s.blobURLs,
		contents: contents,
	}
	c.logger().Debug("serialized value",
		zap.Int("bytes", len(sv.data)),
		zap.Int("strings", s.strings.size()),
		zap.Int("objects", s.objects.size()),
	)
	return sv, nil
}

// Deserialize rebuilds the value encoded in sv. Views created during decoding
// are tracked by realm, which may be nil. ports resolves MessagePort references.
// Transferred buffers take over the storage attached to sv once the call
// succeeds; a later call sees them empty. A failed call leaves sv untouched.
// Calls that share an sv carrying transfers must not run concurrently.
func (c *Codec) Deserialize(sv *SerializedValue, realm Realm, ports []*MessagePort) (Value, error) {
	if sv == nil {
		return c.deserialize(nil, nil, realm, ports)
	}
	return c.deserialize(sv.data, sv, realm, ports)
}

// DeserializeBytes rebuilds a value from a persisted stream. Such a stream
// carries no transfer contents.
func (c *Codec) DeserializeBytes(data []byte, realm Realm, ports []*MessagePort) (Value, error) {
	return c.deserialize(data, nil, realm, ports)
}

func (c *Codec) deserialize(data []byte, sv *SerializedValue, realm Realm, ports []*MessagePort) (Value, error) {
	if len(data) == 0 {
		return nil, newError(ValidationError, ErrEmptyPayload)
	}
	d := newDeserializer(data, sv, ports, c.maxDepth)
	v, err := d.deserialize()
	if err != nil {
		c.logger().Warn("deserialize failed", zap.Stringer("code", CodeOf(err)), zap.Error(err))
		return nil, err
	}
	if sv != nil {
		sv.releaseContents(d.transferred())
	}
	if realm != nil {
		for _, view := range d.views {
			realm.Track(view)
		}
	}
	c.logger().Debug("deserialized value",
		zap.Int("bytes", len(data)),
		zap.Int("strings", len(d.strings.strings)),
		zap.Int("objects", len(d.objects.values)),
	)
	return v, nil
}

var defaultCodec = New()

// Default returns the codec used by the package-level functions.
func Default() *Codec { return defaultCodec }

// Serialize encodes v with the default codec.
func Serialize(v Value, t *Transfer) (*SerializedValue, error) {
	return defaultCodec.Serialize(v, t)
}

// Deserialize decodes sv with the default codec.
func Deserialize(sv *SerializedValue, realm Realm, ports []*MessagePort) (Value, error) {
	return defaultCodec.Deserialize(sv, realm, ports)
}

// WireFormatVersion returns the newest format version this package reads and writes.
func WireFormatVersion() uint32 { return CurrentVersion }

// encodeTerminal encodes a value that needs no traversal and no transfer.
func encodeTerminal(v Value) (*SerializedValue, error) {
	w := NewWriter()
	defer w.Release()
	if err := newSerializer(w, nil, DefaultMaxDepth).serialize(v); err != nil {
		return nil, err
	}
	return &SerializedValue{data: bytes.Clone(w.Bytes())}, nil
}

// StringValue encodes a single string.
func StringValue(s string) (*SerializedValue, error) { return encodeTerminal(String(s)) }

// NumberValue encodes f as a double, whatever its value.
func NumberValue(f float64) *SerializedValue {
	sv, _ := encodeTerminal(Float64(f))
	return sv
}

// BooleanValue encodes a single boolean.
func BooleanValue(b bool) *SerializedValue {
	sv, _ := encodeTerminal(Bool(b))
	return sv
}

// NullValue encodes null.
func NullValue() *SerializedValue {
	sv, _ := encodeTerminal(Null{})
	return sv
}

// UndefinedValue encodes undefined.
func UndefinedValue() *SerializedValue {
	sv, _ := encodeTerminal(Undefined{})
	return sv
}

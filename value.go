package clone

import (
	"math"
	"strconv"
)

// Kind enumerates every value kind the codec understands.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt32
	KindFloat64
	KindString
	KindDate
	KindRegExp
	KindArray
	KindObject
	KindBooleanObject
	KindNumberObject
	KindStringObject
	KindFile
	KindFileList
	KindBlob
	KindImageData
	KindMessagePort
	KindArrayBuffer
	KindArrayBufferView
	KindAccessor
	KindOpaque
)

var kindNames = [...]string{
	KindUndefined:       "undefined",
	KindNull:            "null",
	KindBool:            "boolean",
	KindInt32:           "int32",
	KindFloat64:         "float64",
	KindString:          "string",
	KindDate:            "Date",
	KindRegExp:          "RegExp",
	KindArray:           "Array",
	KindObject:          "Object",
	KindBooleanObject:   "Boolean",
	KindNumberObject:    "Number",
	KindStringObject:    "String",
	KindFile:            "File",
	KindFileList:        "FileList",
	KindBlob:            "Blob",
	KindImageData:       "ImageData",
	KindMessagePort:     "MessagePort",
	KindArrayBuffer:     "ArrayBuffer",
	KindArrayBufferView: "ArrayBufferView",
	KindAccessor:        "accessor",
	KindOpaque:          "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the closed set of values a graph handed to the codec may contain.
// Composite kinds are pointers: their identity, not their content, decides
// whether a second occurrence is encoded as a back-reference.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	Undefined struct{}
	Null      struct{}
	Bool      bool
	Int32     int32
	Float64   float64

	// String must hold valid UTF-8; the serializer rejects anything else.
	String string

	// Date is a time value in milliseconds since the epoch.
	Date float64

	RegExp struct {
		Pattern string
		Flags   string
	}
)

func (Undefined) Kind() Kind { return KindUndefined }
func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Int32) Kind() Kind     { return KindInt32 }
func (Float64) Kind() Kind   { return KindFloat64 }
func (String) Kind() Kind    { return KindString }
func (Date) Kind() Kind      { return KindDate }
func (RegExp) Kind() Kind    { return KindRegExp }

func (Undefined) isValue() {}
func (Null) isValue()      {}
func (Bool) isValue()      {}
func (Int32) isValue()     {}
func (Float64) isValue()   {}
func (String) isValue()    {}
func (Date) isValue()      {}
func (RegExp) isValue()    {}

// Number returns the canonical representation of a numeric value: Int32 when f
// is integral and fits in 32 bits (negative zero excluded), Float64 otherwise.
func Number(f float64) Value {
	if f >= math.MinInt32 && f <= math.MaxInt32 && f == math.Trunc(f) && !(f == 0 && math.Signbit(f)) {
		return Int32(int32(f))
	}
	return Float64(f)
}

// BooleanObject is a boolean wrapped as an object with its own identity.
type BooleanObject struct{ Value bool }

// NumberObject is a number wrapped as an object with its own identity.
type NumberObject struct{ Value float64 }

// StringObject is a string wrapped as an object with its own identity.
type StringObject struct{ Value string }

func (*BooleanObject) Kind() Kind { return KindBooleanObject }
func (*NumberObject) Kind() Kind  { return KindNumberObject }
func (*StringObject) Kind() Kind  { return KindStringObject }
func (*BooleanObject) isValue()   {}
func (*NumberObject) isValue()    {}
func (*StringObject) isValue()    {}

// Object is a plain data object with ordered own properties.
type Object struct {
	Properties
}

// NewObject returns an empty plain object.
func NewObject() *Object { return &Object{} }

func (*Object) Kind() Kind { return KindObject }
func (*Object) isValue()   {}

// File is an opaque host record describing a file.
type File struct {
	Path string
	URL  string
	Type string
}

// FileList is an ordered list of files.
type FileList struct {
	Files []*File
}

// Blob is an opaque host record describing binary content addressed by URL.
type Blob struct {
	URL  string
	Type string
	Size uint64
}

// ImageData is a bitmap of Width x Height pixels.
type ImageData struct {
	Width  int32
	Height int32
	Data   []byte
}

// MessagePort is a host communication endpoint. It is never encoded by content:
// the stream refers to its position in the port list of the call.
type MessagePort struct {
	Name string
}

func (*File) Kind() Kind        { return KindFile }
func (*FileList) Kind() Kind    { return KindFileList }
func (*Blob) Kind() Kind        { return KindBlob }
func (*ImageData) Kind() Kind   { return KindImageData }
func (*MessagePort) Kind() Kind { return KindMessagePort }
func (*File) isValue()          {}
func (*FileList) isValue()      {}
func (*Blob) isValue()          {}
func (*ImageData) isValue()     {}
func (*MessagePort) isValue()   {}

// Accessor is a property whose value is computed by the host when the
// serializer reaches it. A nil value with a nil error means the property
// disappeared and is skipped.
type Accessor struct {
	Get func() (Value, error)
}

func (*Accessor) Kind() Kind { return KindAccessor }
func (*Accessor) isValue()   {}

// Opaque stands for a live value the codec cannot clone, such as a function.
type Opaque struct {
	Name string
}

func (Opaque) Kind() Kind { return KindOpaque }
func (Opaque) isValue()   {}

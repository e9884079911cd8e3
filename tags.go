package clone

// CurrentVersion tracks the wire format so that persisted payloads written by a
// newer implementation are rejected instead of misread.
//
//   - 1: initial format.
//   - 2: ObjectReferenceTag, cyclic graphs.
//   - 3: TrueObjectTag, FalseObjectTag, NumberObjectTag, StringObjectTag and
//     EmptyStringObjectTag for boxed primitives.
//   - 4: non-index properties of arrays.
const CurrentVersion uint32 = 4

// DefaultMaxDepth bounds the number of nested composites on the walker stacks.
const DefaultMaxDepth = 40000

// u32 sentinels sharing the space of string lengths and array indexes.
const (
	TerminatorTag         uint32 = 0xFFFFFFFF
	StringPoolTag         uint32 = 0xFFFFFFFE
	NonIndexPropertiesTag uint32 = 0xFFFFFFFD
)

// MaxArrayIndex is the largest index an Array may carry on the wire.
const MaxArrayIndex = NonIndexPropertiesTag - 1

// Tag identifies the kind of the next value in the stream.
// Tags are never renumbered; new tags are only appended.
type Tag uint8

const (
	ArrayTag                Tag = 1
	ObjectTag               Tag = 2
	UndefinedTag            Tag = 3
	NullTag                 Tag = 4
	IntTag                  Tag = 5
	ZeroTag                 Tag = 6
	OneTag                  Tag = 7
	FalseTag                Tag = 8
	TrueTag                 Tag = 9
	DoubleTag               Tag = 10
	DateTag                 Tag = 11
	FileTag                 Tag = 12
	FileListTag             Tag = 13
	ImageDataTag            Tag = 14
	BlobTag                 Tag = 15
	StringTag               Tag = 16
	EmptyStringTag          Tag = 17
	RegExpTag               Tag = 18
	ObjectReferenceTag      Tag = 19
	MessagePortReferenceTag Tag = 20
	ArrayBufferTag          Tag = 21
	ArrayBufferViewTag      Tag = 22
	ArrayBufferTransferTag  Tag = 23
	TrueObjectTag           Tag = 24
	FalseObjectTag          Tag = 25
	StringObjectTag         Tag = 26
	EmptyStringObjectTag    Tag = 27
	NumberObjectTag         Tag = 28
)

var tagNames = [...]string{
	ArrayTag:                "Array",
	ObjectTag:               "Object",
	UndefinedTag:            "Undefined",
	NullTag:                 "Null",
	IntTag:                  "Int",
	ZeroTag:                 "Zero",
	OneTag:                  "One",
	FalseTag:                "False",
	TrueTag:                 "True",
	DoubleTag:               "Double",
	DateTag:                 "Date",
	FileTag:                 "File",
	FileListTag:             "FileList",
	ImageDataTag:            "ImageData",
	BlobTag:                 "Blob",
	StringTag:               "String",
	EmptyStringTag:          "EmptyString",
	RegExpTag:               "RegExp",
	ObjectReferenceTag:      "ObjectReference",
	MessagePortReferenceTag: "MessagePortReference",
	ArrayBufferTag:          "ArrayBuffer",
	ArrayBufferViewTag:      "ArrayBufferView",
	ArrayBufferTransferTag:  "ArrayBufferTransfer",
	TrueObjectTag:           "TrueObject",
	FalseObjectTag:          "FalseObject",
	StringObjectTag:         "StringObject",
	EmptyStringObjectTag:    "EmptyStringObject",
	NumberObjectTag:         "NumberObject",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) && tagNames[t] != "" {
		return tagNames[t]
	}
	return "Unknown"
}

// ViewSubtag identifies the element type of an ArrayBufferView.
type ViewSubtag uint8

const (
	DataViewTag          ViewSubtag = 0
	Int8ArrayTag         ViewSubtag = 1
	Uint8ArrayTag        ViewSubtag = 2
	Uint8ClampedArrayTag ViewSubtag = 3
	Int16ArrayTag        ViewSubtag = 4
	Uint16ArrayTag       ViewSubtag = 5
	Int32ArrayTag        ViewSubtag = 6
	Uint32ArrayTag       ViewSubtag = 7
	Float32ArrayTag      ViewSubtag = 8
	Float64ArrayTag      ViewSubtag = 9
)

// ElementSize returns the byte width of one element, or 0 for an unknown subtag.
func (t ViewSubtag) ElementSize() uint32 {
	switch t {
	case DataViewTag, Int8ArrayTag, Uint8ArrayTag, Uint8ClampedArrayTag:
		return 1
	case Int16ArrayTag, Uint16ArrayTag:
		return 2
	case Int32ArrayTag, Uint32ArrayTag, Float32ArrayTag:
		return 4
	case Float64ArrayTag:
		return 8
	default:
		return 0
	}
}

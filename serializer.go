package clone

import (
	"errors"
	"fmt"
	"math"
)

// walkerState is the continuation recorded on the state stack while a
// composite's members are visited.
type walkerState uint8

const (
	stateUnknown walkerState = iota
	stateArrayStart
	stateArrayVisitMember
	stateArrayEndVisitMember
	stateObjectStart
	stateObjectVisitMember
	stateObjectEndVisitMember
)

// serializer holds the private state of one Serialize call.
type serializer struct {
	w        *Writer
	strings  *stringPool
	objects  *objectPool
	ports    map[*MessagePort]uint32
	buffers  map[*ArrayBuffer]uint32
	blobURLs []string
	maxDepth int
}

func newSerializer(w *Writer, t *Transfer, maxDepth int) *serializer {
	s := &serializer{
		w:        w,
		strings:  newStringPool(),
		objects:  newObjectPool(),
		ports:    make(map[*MessagePort]uint32),
		buffers:  make(map[*ArrayBuffer]uint32),
		maxDepth: maxDepth,
	}
	if t != nil {
		// a value listed twice keeps its first position
		for i, p := range t.Ports {
			if _, ok := s.ports[p]; !ok && p != nil {
				s.ports[p] = uint32(i)
			}
		}
		for i, b := range t.Buffers {
			if _, ok := s.buffers[b]; !ok && b != nil {
				s.buffers[b] = uint32(i)
			}
		}
	}
	return s
}

// serialize writes the version header followed by root.
func (s *serializer) serialize(root Value) error {
	s.w.WriteUint32(CurrentVersion)

	var (
		inputStack    []Value // *Array or *Object being visited
		indexStack    []int
		propertyStack [][]string
		stateStack    []walkerState
	)
	state := stateUnknown
	in, ok, err := resolve(root)
	if err != nil {
		return err
	}
	if !ok {
		in = Undefined{}
	}

	for {
		if err := s.w.Err(); err != nil {
			return writeFailure(err)
		}
		switch state {
		case stateUnknown:
			terminal, err := s.dumpIfTerminal(in)
			if err != nil {
				return err
			}
			if terminal {
				break
			}
			if _, isArray := in.(*Array); isArray {
				state = stateArrayStart
			} else {
				state = stateObjectStart
			}
			continue

		case stateArrayStart:
			if len(inputStack) > s.maxDepth {
				return newError(StackOverflowError, nil)
			}
			a := in.(*Array)
			if !s.objects.startObject(s.w, a) {
				break
			}
			s.w.WriteTag(ArrayTag)
			s.w.WriteUint32(a.Length)
			inputStack = append(inputStack, a)
			indexStack = append(indexStack, 0)
			state = stateArrayVisitMember
			continue

		case stateArrayVisitMember:
			top := len(indexStack) - 1
			a := inputStack[len(inputStack)-1].(*Array)
			index, v, present := a.entry(indexStack[top])
			if !present {
				indexStack = indexStack[:top]
				if names := a.Props.Names(); len(names) > 0 {
					s.w.WriteUint32(NonIndexPropertiesTag)
					propertyStack = append(propertyStack, names)
					indexStack = append(indexStack, 0)
					state = stateObjectVisitMember
					continue
				}
				s.w.WriteUint32(TerminatorTag)
				inputStack = inputStack[:len(inputStack)-1]
				break
			}
			v, present, err := resolve(v)
			if err != nil {
				return err
			}
			if !present {
				indexStack[top]++
				continue
			}
			if index > MaxArrayIndex {
				return newError(UnspecifiedError, fmt.Errorf("%w: %d", ErrIndexTooLarge, index))
			}
			s.w.WriteUint32(index)
			terminal, err := s.dumpIfTerminal(v)
			if err != nil {
				return err
			}
			if terminal {
				indexStack[top]++
				continue
			}
			stateStack = append(stateStack, stateArrayEndVisitMember)
			in, state = v, stateUnknown
			continue

		case stateArrayEndVisitMember:
			indexStack[len(indexStack)-1]++
			state = stateArrayVisitMember
			continue

		case stateObjectStart:
			if len(inputStack) > s.maxDepth {
				return newError(StackOverflowError, nil)
			}
			o := in.(*Object)
			if !s.objects.startObject(s.w, o) {
				break
			}
			s.w.WriteTag(ObjectTag)
			inputStack = append(inputStack, o)
			indexStack = append(indexStack, 0)
			propertyStack = append(propertyStack, o.Names())
			state = stateObjectVisitMember
			continue

		case stateObjectVisitMember:
			top := len(indexStack) - 1
			names := propertyStack[len(propertyStack)-1]
			if indexStack[top] == len(names) {
				s.w.WriteUint32(TerminatorTag)
				inputStack = inputStack[:len(inputStack)-1]
				indexStack = indexStack[:top]
				propertyStack = propertyStack[:len(propertyStack)-1]
				break
			}
			name := names[indexStack[top]]
			v, present := propertiesOf(inputStack[len(inputStack)-1]).Get(name)
			if present {
				var err error
				if v, present, err = resolve(v); err != nil {
					return err
				}
			}
			if !present {
				// removed while serializing
				indexStack[top]++
				continue
			}
			s.strings.write(s.w, name)
			terminal, err := s.dumpIfTerminal(v)
			if err != nil {
				return err
			}
			if !terminal {
				stateStack = append(stateStack, stateObjectEndVisitMember)
				in, state = v, stateUnknown
				continue
			}
			indexStack[top]++
			continue

		case stateObjectEndVisitMember:
			indexStack[len(indexStack)-1]++
			state = stateObjectVisitMember
			continue
		}

		if len(stateStack) == 0 {
			break
		}
		state = stateStack[len(stateStack)-1]
		stateStack = stateStack[:len(stateStack)-1]
	}

	if err := s.w.Err(); err != nil {
		return writeFailure(err)
	}
	return nil
}

// writeFailure classifies an error latched on the writer. Strings with no
// UTF-16 form are rejected as uncloneable values; anything else is internal.
func writeFailure(err error) error {
	if errors.Is(err, ErrInvalidString) {
		return newError(DataCloneError, err)
	}
	return newError(UnspecifiedError, err)
}

// resolve runs an accessor. present is false when the accessor produced no value.
func resolve(v Value) (_ Value, present bool, _ error) {
	acc, ok := v.(*Accessor)
	if !ok || acc == nil {
		return v, true, nil
	}
	if acc.Get == nil {
		return nil, false, nil
	}
	got, err := acc.Get()
	if err != nil {
		return nil, false, newError(ExistingExceptionError, err)
	}
	if got == nil {
		return nil, false, nil
	}
	return got, true, nil
}

// propertiesOf returns the named members of a composite on the input stack.
func propertiesOf(v Value) *Properties {
	switch c := v.(type) {
	case *Array:
		return &c.Props
	case *Object:
		return &c.Properties
	}
	return &Properties{}
}

// dumpIfTerminal encodes v when it needs no member traversal and reports
// whether it did. Arrays and plain objects are left to the walker.
func (s *serializer) dumpIfTerminal(v Value) (bool, error) {
	w := s.w
	if isNilValue(v) {
		// absent values are written as null
		w.WriteTag(NullTag)
		return true, nil
	}
	switch x := v.(type) {
	case Null:
		w.WriteTag(NullTag)
	case Undefined:
		w.WriteTag(UndefinedTag)
	case Bool:
		if x {
			w.WriteTag(TrueTag)
		} else {
			w.WriteTag(FalseTag)
		}
	case Int32:
		switch x {
		case 0:
			w.WriteTag(ZeroTag)
		case 1:
			w.WriteTag(OneTag)
		default:
			w.WriteTag(IntTag)
			w.WriteInt32(int32(x))
		}
	case Float64:
		w.WriteTag(DoubleTag)
		w.WriteFloat64(float64(x))
	case String:
		s.writeString(string(x), StringTag, EmptyStringTag)
	case Date:
		w.WriteTag(DateTag)
		w.WriteFloat64(float64(x))

	case *Array, *Object:
		return false, nil

	case *BooleanObject:
		if !s.objects.startObject(w, x) {
			break
		}
		if x.Value {
			w.WriteTag(TrueObjectTag)
		} else {
			w.WriteTag(FalseObjectTag)
		}
	case *StringObject:
		if !s.objects.startObject(w, x) {
			break
		}
		s.writeString(x.Value, StringObjectTag, EmptyStringObjectTag)
	case *NumberObject:
		if !s.objects.startObject(w, x) {
			break
		}
		w.WriteTag(NumberObjectTag)
		w.WriteFloat64(x.Value)

	case *File:
		w.WriteTag(FileTag)
		s.writeFile(x)
	case *FileList:
		if uint64(len(x.Files)) > math.MaxUint32 {
			return false, newError(UnspecifiedError, fmt.Errorf("file list of %d entries", len(x.Files)))
		}
		for _, f := range x.Files {
			if f == nil {
				return false, newError(DataCloneError, fmt.Errorf("nil file in file list"))
			}
		}
		w.WriteTag(FileListTag)
		w.WriteUint32(uint32(len(x.Files)))
		for _, f := range x.Files {
			s.writeFile(f)
		}
	case *Blob:
		s.blobURLs = append(s.blobURLs, x.URL)
		w.WriteTag(BlobTag)
		s.strings.write(w, x.URL)
		s.strings.write(w, x.Type)
		w.WriteUint64(x.Size)
	case *ImageData:
		if uint64(len(x.Data)) > math.MaxUint32 {
			return false, newError(UnspecifiedError, fmt.Errorf("image data of %d bytes", len(x.Data)))
		}
		w.WriteTag(ImageDataTag)
		w.WriteInt32(x.Width)
		w.WriteInt32(x.Height)
		w.WriteUint32(uint32(len(x.Data)))
		w.WriteBytes(x.Data)
	case RegExp:
		w.WriteTag(RegExpTag)
		s.strings.write(w, x.Pattern)
		s.strings.write(w, x.Flags)

	case *MessagePort:
		i, ok := s.ports[x]
		if !ok {
			return false, newError(ValidationError, fmt.Errorf("%w: %q", ErrUnknownPort, x.Name))
		}
		w.WriteTag(MessagePortReferenceTag)
		w.WriteUint32(i)
	case *ArrayBuffer:
		return true, s.writeArrayBuffer(x)
	case *ArrayBufferView:
		return true, s.writeArrayBufferView(x)

	default:
		return false, newError(DataCloneError, fmt.Errorf("%s value", v.Kind()))
	}
	return true, nil
}

// isNilValue reports whether v is nil or a typed nil pointer.
func isNilValue(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *Array:
		return x == nil
	case *Object:
		return x == nil
	case *BooleanObject:
		return x == nil
	case *NumberObject:
		return x == nil
	case *StringObject:
		return x == nil
	case *File:
		return x == nil
	case *FileList:
		return x == nil
	case *Blob:
		return x == nil
	case *ImageData:
		return x == nil
	case *MessagePort:
		return x == nil
	case *ArrayBuffer:
		return x == nil
	case *ArrayBufferView:
		return x == nil
	case *Accessor:
		return x == nil
	}
	return false
}

func (s *serializer) writeString(str string, tag, emptyTag Tag) {
	if str == "" {
		s.w.WriteTag(emptyTag)
		return
	}
	s.w.WriteTag(tag)
	s.strings.write(s.w, str)
}

func (s *serializer) writeFile(f *File) {
	s.blobURLs = append(s.blobURLs, f.URL)
	s.strings.write(s.w, f.Path)
	s.strings.write(s.w, f.URL)
	s.strings.write(s.w, f.Type)
}

func (s *serializer) writeArrayBuffer(b *ArrayBuffer) error {
	var (
		data     []byte
		neutered bool
	)
	b.snapshot(func(d []byte, n bool) { data, neutered = d, n })
	if neutered {
		return newError(ValidationError, ErrNeutered)
	}
	if i, ok := s.buffers[b]; ok {
		s.w.WriteTag(ArrayBufferTransferTag)
		s.w.WriteUint32(i)
		return nil
	}
	if !s.objects.startObject(s.w, b) {
		return nil
	}
	if uint64(len(data)) > math.MaxUint32 {
		return newError(UnspecifiedError, fmt.Errorf("array buffer of %d bytes", len(data)))
	}
	s.w.WriteTag(ArrayBufferTag)
	s.w.WriteUint32(uint32(len(data)))
	s.w.WriteBytes(data)
	return nil
}

// writeArrayBufferView writes the view geometry and then its buffer. The view
// takes its pool index after the buffer, matching decode order.
func (s *serializer) writeArrayBufferView(v *ArrayBufferView) error {
	if s.objects.writeReference(s.w, v) {
		return nil
	}
	if v.Subtype.ElementSize() == 0 {
		return newError(DataCloneError, fmt.Errorf("%w: unknown subtype %d", ErrBadView, v.Subtype))
	}
	if v.buffer == nil {
		return newError(ValidationError, fmt.Errorf("%w: no backing buffer", ErrBadView))
	}
	s.w.WriteTag(ArrayBufferViewTag)
	s.w.WriteUint8(uint8(v.Subtype))
	s.w.WriteUint32(v.ByteOffset())
	s.w.WriteUint32(v.ByteLength())
	if err := s.writeArrayBuffer(v.buffer); err != nil {
		return err
	}
	s.objects.record(v)
	return nil
}

package clone

import "fmt"

// deserializer holds the private state of one Deserialize call.
type deserializer struct {
	r        *Reader
	strings  readStringPool
	objects  readObjectPool
	ports    []*MessagePort
	sv       *SerializedValue // source of transferred contents; may be nil
	buffers  []*ArrayBuffer   // transferred buffers materialized so far
	views    []*ArrayBufferView
	maxDepth int
}

func newDeserializer(data []byte, sv *SerializedValue, ports []*MessagePort, maxDepth int) *deserializer {
	return &deserializer{
		r:        NewReader(data),
		ports:    ports,
		sv:       sv,
		maxDepth: maxDepth,
	}
}

// deserialize decodes the version header and the root value. Trailing bytes
// are tolerated only as zero padding.
func (d *deserializer) deserialize() (Value, error) {
	r := d.r
	version := r.ReadUint32()
	if err := r.Err(); err != nil {
		return nil, newError(ValidationError, err)
	}
	if version > CurrentVersion {
		return nil, newError(ValidationError, fmt.Errorf("%w: %d, newest known is %d", ErrUnsupportedVersion, version, CurrentVersion))
	}

	var (
		outputStack       []Value // *Array or *Object under construction
		indexStack        []uint32
		propertyNameStack []string
		stateStack        []walkerState
		out               Value
	)
	state := stateUnknown

	for {
		if err := r.Err(); err != nil {
			return nil, newError(ValidationError, err)
		}
		switch state {
		case stateUnknown:
			if v, ok := d.readTerminal(); ok {
				out = v
				break
			}
			switch tag := r.ReadTag(); tag {
			case ArrayTag:
				state = stateArrayStart
			case ObjectTag:
				state = stateObjectStart
			default:
				// readTerminal already latched the failure
			}
			continue

		case stateArrayStart:
			if len(outputStack) > d.maxDepth {
				return nil, newError(StackOverflowError, nil)
			}
			length := r.ReadUint32()
			if r.Err() != nil {
				continue
			}
			a := NewArray(length)
			d.objects.add(a)
			outputStack = append(outputStack, a)
			state = stateArrayVisitMember
			continue

		case stateArrayVisitMember:
			top := len(outputStack) - 1
			index := r.ReadUint32()
			if r.Err() != nil {
				continue
			}
			if index == TerminatorTag {
				out = outputStack[top]
				outputStack = outputStack[:top]
				break
			}
			if index == NonIndexPropertiesTag {
				state = stateObjectVisitMember
				continue
			}
			if index > MaxArrayIndex {
				r.fail(ErrIndexTooLarge, "array index %d", index)
				continue
			}
			if v, ok := d.readTerminal(); ok {
				outputStack[top].(*Array).Set(index, v)
				continue
			}
			indexStack = append(indexStack, index)
			stateStack = append(stateStack, stateArrayEndVisitMember)
			state = stateUnknown
			continue

		case stateArrayEndVisitMember:
			top := len(indexStack) - 1
			outputStack[len(outputStack)-1].(*Array).Set(indexStack[top], out)
			indexStack = indexStack[:top]
			state = stateArrayVisitMember
			continue

		case stateObjectStart:
			if len(outputStack) > d.maxDepth {
				return nil, newError(StackOverflowError, nil)
			}
			o := NewObject()
			d.objects.add(o)
			outputStack = append(outputStack, o)
			state = stateObjectVisitMember
			continue

		case stateObjectVisitMember:
			top := len(outputStack) - 1
			name, terminator, ok := d.strings.read(r)
			if terminator {
				out = outputStack[top]
				outputStack = outputStack[:top]
				break
			}
			if !ok {
				continue
			}
			if v, ok := d.readTerminal(); ok {
				propertiesOf(outputStack[top]).Set(name, v)
				continue
			}
			propertyNameStack = append(propertyNameStack, name)
			stateStack = append(stateStack, stateObjectEndVisitMember)
			state = stateUnknown
			continue

		case stateObjectEndVisitMember:
			top := len(propertyNameStack) - 1
			propertiesOf(outputStack[len(outputStack)-1]).Set(propertyNameStack[top], out)
			propertyNameStack = propertyNameStack[:top]
			state = stateObjectVisitMember
			continue
		}

		if len(stateStack) == 0 {
			break
		}
		state = stateStack[len(stateStack)-1]
		stateStack = stateStack[:len(stateStack)-1]
	}

	if err := r.Err(); err != nil {
		return nil, newError(ValidationError, err)
	}
	if err := CheckTrailingZeros(r.Rest()); err != nil {
		return nil, newError(ValidationError, err)
	}
	return out, nil
}

// readTerminal decodes the next value if it needs no member traversal.
// For ArrayTag and ObjectTag the tag is pushed back and ok is false; any
// other failure is latched on the reader.
func (d *deserializer) readTerminal() (_ Value, ok bool) {
	r := d.r
	tag := r.ReadTag()
	if r.Err() != nil {
		return nil, false
	}

	var v Value
	switch tag {
	case ArrayTag, ObjectTag:
		r.Unread()
		return nil, false
	case UndefinedTag:
		v = Undefined{}
	case NullTag:
		v = Null{}
	case IntTag:
		v = Int32(r.ReadInt32())
	case ZeroTag:
		v = Int32(0)
	case OneTag:
		v = Int32(1)
	case FalseTag:
		v = Bool(false)
	case TrueTag:
		v = Bool(true)
	case DoubleTag:
		v = Float64(r.ReadFloat64())
	case DateTag:
		v = Date(r.ReadFloat64())

	case FalseObjectTag, TrueObjectTag:
		v = d.pooled(&BooleanObject{Value: tag == TrueObjectTag})
	case NumberObjectTag:
		f := r.ReadFloat64()
		v = d.pooled(&NumberObject{Value: f})
	case StringObjectTag:
		s, _ := d.strings.readData(r)
		v = d.pooled(&StringObject{Value: s})
	case EmptyStringObjectTag:
		v = d.pooled(&StringObject{})

	case StringTag:
		s, _ := d.strings.readData(r)
		v = String(s)
	case EmptyStringTag:
		v = String("")

	case FileTag:
		v = d.readFile()
	case FileListTag:
		v = d.readFileList()
	case BlobTag:
		url, _ := d.strings.readData(r)
		typ, _ := d.strings.readData(r)
		size := r.ReadUint64()
		v = &Blob{URL: url, Type: typ, Size: size}
	case ImageDataTag:
		width := r.ReadInt32()
		height := r.ReadInt32()
		n := r.ReadUint32()
		v = &ImageData{Width: width, Height: height, Data: r.ReadBytes(n)}
	case RegExpTag:
		pattern, _ := d.strings.readData(r)
		flags, _ := d.strings.readData(r)
		v = RegExp{Pattern: pattern, Flags: flags}

	case ObjectReferenceTag:
		v, _ = d.objects.read(r)
	case MessagePortReferenceTag:
		i := r.ReadUint32()
		if r.Err() == nil && int64(i) >= int64(len(d.ports)) {
			r.fail(ErrUnknownPort, "port index %d of %d", i, len(d.ports))
		}
		if r.Err() == nil {
			v = d.ports[i]
		}
	case ArrayBufferTag:
		n := r.ReadUint32()
		data := r.ReadBytes(n)
		v = d.pooled(ArrayBufferOf(data))
	case ArrayBufferTransferTag:
		v = d.readTransferred(r.ReadUint32())
	case ArrayBufferViewTag:
		v = d.readArrayBufferView()

	default:
		r.Unread()
		r.fail(ErrUnknownTag, "tag %d", uint8(tag))
	}

	if r.Err() != nil {
		return nil, false
	}
	return v, true
}

// pooled adds v to the object pool unless the reader already failed.
func (d *deserializer) pooled(v Value) Value {
	if d.r.Err() == nil {
		d.objects.add(v)
	}
	return v
}

func (d *deserializer) readFile() *File {
	path, _ := d.strings.readData(d.r)
	url, _ := d.strings.readData(d.r)
	typ, _ := d.strings.readData(d.r)
	return &File{Path: path, URL: url, Type: typ}
}

func (d *deserializer) readFileList() *FileList {
	n := d.r.ReadUint32()
	list := &FileList{}
	// n is not trusted for preallocation; every entry must be present in the stream
	for i := uint32(0); i < n && d.r.Err() == nil; i++ {
		list.Files = append(list.Files, d.readFile())
	}
	return list
}

// readTransferred materializes transfer slot i, once per call. The slot itself
// is released by the caller only when the whole call succeeds.
func (d *deserializer) readTransferred(i uint32) *ArrayBuffer {
	if d.r.Err() != nil {
		return nil
	}
	count := 0
	if d.sv != nil {
		count = d.sv.transferCount()
	}
	if int64(i) >= int64(count) {
		d.r.fail(ErrBadPoolIndex, "transfer index %d of %d", i, count)
		return nil
	}
	if d.buffers == nil {
		d.buffers = make([]*ArrayBuffer, count)
	}
	if d.buffers[i] == nil {
		d.buffers[i] = ArrayBufferOf(d.sv.contentsAt(int(i)))
	}
	return d.buffers[i]
}

// transferred returns the transfer slots materialized by this call.
func (d *deserializer) transferred() []int {
	var slots []int
	for i, b := range d.buffers {
		if b != nil {
			slots = append(slots, i)
		}
	}
	return slots
}

// readArrayBufferView decodes a view header and its backing buffer. The buffer
// must be encoded inline or by reference; the view is pooled after it.
func (d *deserializer) readArrayBufferView() *ArrayBufferView {
	r := d.r
	subtype := ViewSubtag(r.ReadUint8())
	byteOffset := r.ReadUint32()
	byteLength := r.ReadUint32()
	if r.Err() != nil {
		return nil
	}
	if subtype.ElementSize() == 0 {
		r.fail(ErrBadView, "unknown subtype %d", subtype)
		return nil
	}
	switch tag := r.ReadTag(); tag {
	case ArrayBufferTag, ArrayBufferTransferTag, ObjectReferenceTag:
		r.Unread()
	default:
		if r.Err() == nil {
			r.fail(ErrBadView, "backing value tagged %s", tag)
		}
		return nil
	}
	v, ok := d.readTerminal()
	if !ok {
		return nil
	}
	buf, isBuffer := v.(*ArrayBuffer)
	if !isBuffer {
		r.fail(ErrBadView, "backing value is %s", v.Kind())
		return nil
	}
	view, err := NewArrayBufferView(subtype, buf, byteOffset, byteLength)
	if err != nil {
		r.setError(fmt.Errorf("%w at offset %d", err, r.Offset()))
		return nil
	}
	d.objects.add(view)
	d.views = append(d.views, view)
	return view
}

package clone

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type CloneTestSuite struct {
	suite.Suite
	codec *Codec
}

func (s *CloneTestSuite) SetupTest() {
	s.codec = New()
}

func (s *CloneTestSuite) roundTrip(v Value) Value {
	sv, err := s.codec.Serialize(v, nil)
	s.Require().NoError(err)
	got, err := s.codec.Deserialize(sv, nil, nil)
	s.Require().NoError(err)
	return got
}

func (s *CloneTestSuite) TestPrimitives() {
	for _, v := range []Value{
		Undefined{}, Null{}, Bool(true), Bool(false),
		Int32(0), Int32(1), Int32(math.MinInt32), Int32(math.MaxInt32),
		Float64(0.1), Float64(math.Inf(-1)), Date(1.5e12),
		String(""), String("plain"), String("été \U0001F600"),
		RegExp{Pattern: "^a+$", Flags: "gi"},
	} {
		s.Assert().Equal(v, s.roundTrip(v), "%s", v.Kind())
	}

	negZero := s.roundTrip(Float64(math.Copysign(0, -1)))
	s.Assert().True(math.Signbit(float64(negZero.(Float64))))

	nan := s.roundTrip(Float64(math.NaN()))
	s.Assert().True(math.IsNaN(float64(nan.(Float64))))
}

func (s *CloneTestSuite) TestSharedReferencesKeepIdentity() {
	shared := NewObject()
	shared.Set("n", Int32(5))
	root := NewObject()
	root.Set("left", shared)
	root.Set("right", shared)
	root.Set("list", ArrayOf(shared, root))

	got := s.roundTrip(root).(*Object)
	left, _ := got.Get("left")
	right, _ := got.Get("right")
	s.Assert().Same(left, right)
	s.Assert().NotSame(shared, left)

	list, _ := got.Get("list")
	first, _ := list.(*Array).Get(0)
	back, _ := list.(*Array).Get(1)
	s.Assert().Same(left, first)
	s.Assert().Same(got, back)

	n, _ := left.(*Object).Get("n")
	s.Assert().Equal(Int32(5), n)
}

func (s *CloneTestSuite) TestBoxedPrimitivesKeepIdentity() {
	str := &StringObject{Value: "s"}
	num := &NumberObject{Value: 2.5}
	got := s.roundTrip(ArrayOf(str, num, str, num, &BooleanObject{}, &StringObject{})).(*Array)

	v0, _ := got.Get(0)
	v1, _ := got.Get(1)
	v2, _ := got.Get(2)
	v3, _ := got.Get(3)
	v4, _ := got.Get(4)
	v5, _ := got.Get(5)
	s.Assert().Same(v0, v2)
	s.Assert().Same(v1, v3)
	s.Assert().Equal(&StringObject{Value: "s"}, v0)
	s.Assert().Equal(&NumberObject{Value: 2.5}, v1)
	s.Assert().Equal(&BooleanObject{}, v4)
	s.Assert().Equal(&StringObject{}, v5)
}

func (s *CloneTestSuite) TestHostRecords() {
	file := &File{Path: "/tmp/a.txt", URL: "blob:a", Type: "text/plain"}
	in := ArrayOf(
		file,
		&FileList{Files: []*File{file, {Path: "b", URL: "blob:b"}}},
		&FileList{},
		&Blob{URL: "blob:c", Type: "application/octet-stream", Size: 1 << 40},
		&ImageData{Width: 2, Height: 1, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		&ImageData{},
	)
	sv, err := s.codec.Serialize(in, nil)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"blob:a", "blob:a", "blob:b", "blob:c"}, sv.BlobURLs)

	v, err := s.codec.Deserialize(sv, nil, nil)
	s.Require().NoError(err)
	got := v.(*Array)
	for i, want := range []Value{
		file,
		&FileList{Files: []*File{file, {Path: "b", URL: "blob:b"}}},
		&FileList{},
		&Blob{URL: "blob:c", Type: "application/octet-stream", Size: 1 << 40},
		&ImageData{Width: 2, Height: 1, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	} {
		el, _ := got.Get(uint32(i))
		s.Assert().Equal(want, el, "element %d", i)
	}
	empty, _ := got.Get(5)
	s.Assert().Empty(empty.(*ImageData).Data)
}

func (s *CloneTestSuite) TestViewsShareTheirBuffer() {
	buf := ArrayBufferOf([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	whole, err := NewArrayBufferView(DataViewTag, buf, 0, 8)
	s.Require().NoError(err)
	tail, err := NewArrayBufferView(Float32ArrayTag, buf, 4, 4)
	s.Require().NoError(err)

	sv, err := s.codec.Serialize(ArrayOf(whole, tail, buf), nil)
	s.Require().NoError(err)

	realm := NewRealm("dest")
	v, err := s.codec.Deserialize(sv, realm, nil)
	s.Require().NoError(err)
	got := v.(*Array)

	g0, _ := got.Get(0)
	g1, _ := got.Get(1)
	g2, _ := got.Get(2)
	w, t := g0.(*ArrayBufferView), g1.(*ArrayBufferView)
	s.Assert().Same(w.Buffer(), t.Buffer())
	s.Assert().Same(g2, w.Buffer())
	s.Assert().Equal([]byte{4, 5, 6, 7}, t.Bytes())
	s.Assert().Equal(1, t.Len())
	s.Assert().Equal(Float32ArrayTag, t.Subtype)

	s.Assert().ElementsMatch([]*ArrayBufferView{w, t}, realm.ViewsOf(w.Buffer()))
	s.Assert().Empty(realm.ViewsOf(buf))

	// copies, not aliases
	buf.WriteAt([]byte{9}, 4)
	s.Assert().Equal([]byte{4, 5, 6, 7}, t.Bytes())
}

func (s *CloneTestSuite) TestWidePools() {
	s.Run("Strings", func() {
		a := NewArray(0)
		for i := range 300 {
			a.Set(uint32(i), String(fmt.Sprintf("s%d", i)))
		}
		a.Set(300, String("s299"))

		sv, err := s.codec.Serialize(a, nil)
		s.Require().NoError(err)
		tail := []byte{
			0x2C, 0x01, 0x00, 0x00, 16, 0xFE, 0xFF, 0xFF, 0xFF, 0x2B, 0x01,
			0xFF, 0xFF, 0xFF, 0xFF,
		}
		s.Assert().Equal(tail, sv.Bytes()[sv.Size()-len(tail):])

		got := s.roundTrip(a).(*Array)
		last, _ := got.Get(300)
		s.Assert().Equal(String("s299"), last)
		s.Assert().Equal(301, got.Count())
	})

	s.Run("Objects", func() {
		a := NewArray(0)
		for i := range 300 {
			o := NewObject()
			o.Set("i", Int32(int32(i)))
			a.Set(uint32(i), o)
		}
		first, _ := a.Get(0)
		a.Set(300, first)

		sv, err := s.codec.Serialize(a, nil)
		s.Require().NoError(err)
		tail := []byte{0x2C, 0x01, 0x00, 0x00, 19, 0x01, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
		s.Assert().Equal(tail, sv.Bytes()[sv.Size()-len(tail):])

		got := s.roundTrip(a).(*Array)
		g0, _ := got.Get(0)
		g300, _ := got.Get(300)
		s.Assert().Same(g0, g300)
	})
}

func (s *CloneTestSuite) TestDeepNestingWithinBound() {
	got := s.roundTrip(nested(1000))
	depth := 0
	for v := got; ; depth++ {
		child, ok := v.(*Array).Get(0)
		if !ok {
			break
		}
		v = child
	}
	s.Assert().Equal(999, depth)
}

func (s *CloneTestSuite) TestPorts() {
	p1, p2 := &MessagePort{Name: "one"}, &MessagePort{Name: "two"}
	o := NewObject()
	o.Set("a", p2)
	o.Set("b", p1)
	o.Set("c", p2)

	sv, err := s.codec.Serialize(o, &Transfer{Ports: []*MessagePort{p1, p2}})
	s.Require().NoError(err)

	q1, q2 := &MessagePort{Name: "one'"}, &MessagePort{Name: "two'"}
	v, err := s.codec.Deserialize(sv, nil, []*MessagePort{q1, q2})
	s.Require().NoError(err)
	a, _ := v.(*Object).Get("a")
	b, _ := v.(*Object).Get("b")
	c, _ := v.(*Object).Get("c")
	s.Assert().Same(q2, a)
	s.Assert().Same(q1, b)
	s.Assert().Same(q2, c)
}

func TestClone(t *testing.T) {
	suite.Run(t, new(CloneTestSuite))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, stream(10, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F), NumberValue(1).Bytes())
	assert.Equal(t, stream(9), BooleanValue(true).Bytes())
	assert.Equal(t, stream(8), BooleanValue(false).Bytes())
	assert.Equal(t, stream(4), NullValue().Bytes())
	assert.Equal(t, stream(3), UndefinedValue().Bytes())

	sv, err := StringValue("\U0001F600")
	require.NoError(t, err)
	assert.Equal(t, stream(16, 2, 0, 0, 0, 0x3D, 0xD8, 0x00, 0xDE), sv.Bytes())

	v, err := Deserialize(NumberValue(1), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Float64(1), v)
	assert.Equal(t, CurrentVersion, WireFormatVersion())
}

func TestToString(t *testing.T) {
	sv, err := StringValue("héllo \U0001F600")
	require.NoError(t, err)
	str, ok := sv.ToString()
	assert.True(t, ok)
	assert.Equal(t, "héllo \U0001F600", str)

	padded := NewSerializedValue(append(sv.Bytes(), 0, 0, 0))
	str, ok = padded.ToString()
	assert.True(t, ok)
	assert.Equal(t, "héllo \U0001F600", str)

	empty, err := StringValue("")
	require.NoError(t, err)

	for name, sv := range map[string]*SerializedValue{
		"EmptyString": empty,
		"Number":      NumberValue(3),
		"Truncated":   NewSerializedValue(sv.Bytes()[:sv.Size()-1]),
		"Trailing":    NewSerializedValue(append(sv.Bytes(), 1)),
		"NewVersion":  NewSerializedValue([]byte{5, 0, 0, 0, 16, 1, 0, 0, 0, 0x61, 0x00}),
		"Pooled":      NewSerializedValue(stream(16, 0xFE, 0xFF, 0xFF, 0xFF, 0)),
		"Header":      NewSerializedValue(header[:2]),
	} {
		_, ok := sv.ToString()
		assert.False(t, ok, name)
	}
}

func TestConcurrentUse(t *testing.T) {
	codec := New()
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				o := NewObject()
				o.Set("g", Int32(int32(g)))
				o.Set("i", Int32(int32(i)))
				o.Set("self", o)

				sv, err := codec.Serialize(o, nil)
				if !assert.NoError(t, err) {
					return
				}
				v, err := codec.Deserialize(sv, nil, nil)
				if !assert.NoError(t, err) {
					return
				}
				got := v.(*Object)
				gv, _ := got.Get("g")
				iv, _ := got.Get("i")
				self, _ := got.Get("self")
				assert.Equal(t, Int32(int32(g)), gv)
				assert.Equal(t, Int32(int32(i)), iv)
				assert.Same(t, got, self)
			}
		}()
	}
	wg.Wait()
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "StackOverflowError", StackOverflowError.String())
	assert.Equal(t, "UnspecifiedError", UnspecifiedError.String())
	assert.Equal(t, "Code(9)", Code(9).String())
	assert.Equal(t, Code(0), CodeOf(errors.New("other")))
	assert.Equal(t, Code(0), CodeOf(nil))

	err := newError(StackOverflowError, nil)
	assert.Equal(t, ErrStackOverflow.Error(), err.Error())
	assert.ErrorIs(t, err, ErrStackOverflow)

	wrapped := fmt.Errorf("outer: %w", newError(ValidationError, ErrBadView))
	assert.Equal(t, ValidationError, CodeOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.ErrorIs(t, wrapped, ErrBadView)
	assert.NotErrorIs(t, wrapped, ErrDataClone)
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	codec := New(WithLogger(zap.New(core)))

	sv, err := codec.Serialize(ArrayOf(String("a")), nil)
	require.NoError(t, err)
	_, err = codec.Deserialize(sv, nil, nil)
	require.NoError(t, err)
	_, err = codec.Serialize(Opaque{Name: "fn"}, nil)
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("serialized value").Len())
	assert.Equal(t, 1, logs.FilterMessage("deserialized value").Len())

	failed := logs.FilterMessage("serialize failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "DataCloneError", failed[0].ContextMap()["code"])
}

func TestPackageLogger(t *testing.T) {
	defer SetLogger(nil)

	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	_, err := Serialize(Null{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("serialized value").Len())

	SetLogger(nil)
	assert.NotNil(t, Logger())
	_, err = Serialize(Null{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
}

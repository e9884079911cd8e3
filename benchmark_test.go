package clone

import (
	"fmt"
	"testing"
)

func benchmarkGraph() Value {
	root := NewObject()
	items := NewArray(0)
	for i := range 64 {
		item := NewObject()
		item.Set("id", Int32(int32(i)))
		item.Set("name", String(fmt.Sprintf("item-%d", i)))
		item.Set("kind", String("widget"))
		item.Set("price", Float64(float64(i)*1.25))
		item.Set("tags", ArrayOf(String("a"), String("b")))
		items.Set(uint32(i), item)
	}
	root.Set("items", items)
	root.Set("blob", ArrayBufferOf(make([]byte, 1024)))
	root.Set("self", root)
	return root
}

func BenchmarkSerialize(b *testing.B) {
	c := New()
	v := benchmarkGraph()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Serialize(v, nil)
	}
}

func BenchmarkDeserialize(b *testing.B) {
	c := New()
	sv, err := c.Serialize(benchmarkGraph(), nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Deserialize(sv, nil, nil)
	}
}

func BenchmarkToString(b *testing.B) {
	sv, err := StringValue("a moderately long string value used as a message payload")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sv.ToString()
	}
}

// Baseline: a composite-free payload, to see the cost of the walker itself.
func BenchmarkSerializeString(b *testing.B) {
	v := String("a moderately long string value used as a message payload")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Serialize(v, nil)
	}
}

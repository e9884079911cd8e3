package main

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/oy3o/clone"
)

func runDecode(e *env, args []string) error {
	var common commonFlags
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	common.register(fs)
	if help, err := parse(e, fs, args); help || err != nil {
		return err
	}
	if err := common.setup(e); err != nil {
		return err
	}
	data, err := readInput(e, common.in)
	if err != nil {
		return err
	}
	v, err := e.codec.DeserializeBytes(data, clone.NewRealm("clonetool"), nil)
	if err != nil {
		return err
	}
	d := &dumper{w: e.stdout, ids: make(map[clone.Value]int)}
	d.value(v, 0)
	fmt.Fprintln(d.w)
	return nil
}

func runInspect(e *env, args []string) error {
	var common commonFlags
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	common.register(fs)
	if help, err := parse(e, fs, args); help || err != nil {
		return err
	}
	data, err := readInput(e, common.in)
	if err != nil {
		return err
	}
	sv := clone.NewSerializedValue(data)
	version, ok := sv.Version()
	if !ok {
		return fmt.Errorf("payload of %d bytes has no header", len(data))
	}
	fmt.Fprintf(e.stdout, "version: %d (current %d)\n", version, clone.WireFormatVersion())
	fmt.Fprintf(e.stdout, "size:    %d bytes\n", sv.Size())
	if len(data) > 4 {
		fmt.Fprintf(e.stdout, "root:    %s\n", clone.Tag(data[4]))
	}
	if s, ok := sv.ToString(); ok {
		fmt.Fprintf(e.stdout, "string:  %s\n", strconv.Quote(s))
	}
	return nil
}

// dumper prints a value graph. Composites get an id on first sight so that
// shared and cyclic references print as back-references.
type dumper struct {
	w   io.Writer
	ids map[clone.Value]int
}

func (d *dumper) indent(depth int) {
	io.WriteString(d.w, strings.Repeat("  ", depth))
}

// seen reports whether v was printed before, assigning an id otherwise.
func (d *dumper) seen(v clone.Value) (int, bool) {
	if id, ok := d.ids[v]; ok {
		return id, true
	}
	id := len(d.ids)
	d.ids[v] = id
	return id, false
}

func (d *dumper) value(v clone.Value, depth int) {
	switch x := v.(type) {
	case clone.Undefined:
		io.WriteString(d.w, "undefined")
	case clone.Null:
		io.WriteString(d.w, "null")
	case clone.Bool:
		fmt.Fprint(d.w, bool(x))
	case clone.Int32:
		fmt.Fprint(d.w, int32(x))
	case clone.Float64:
		io.WriteString(d.w, strconv.FormatFloat(float64(x), 'g', -1, 64))
	case clone.String:
		io.WriteString(d.w, strconv.Quote(string(x)))
	case clone.Date:
		fmt.Fprintf(d.w, "Date(%s)", strconv.FormatFloat(float64(x), 'f', -1, 64))
	case clone.RegExp:
		fmt.Fprintf(d.w, "/%s/%s", x.Pattern, x.Flags)
	case *clone.Array:
		id, seen := d.seen(x)
		if seen {
			fmt.Fprintf(d.w, "<ref #%d>", id)
			return
		}
		fmt.Fprintf(d.w, "Array #%d (length %d) [\n", id, x.Length)
		for i, el := range x.Elements() {
			d.indent(depth + 1)
			fmt.Fprintf(d.w, "%d: ", i)
			d.value(el, depth+1)
			io.WriteString(d.w, "\n")
		}
		d.members(x.Props.All(), depth)
		d.indent(depth)
		io.WriteString(d.w, "]")
	case *clone.Object:
		id, seen := d.seen(x)
		if seen {
			fmt.Fprintf(d.w, "<ref #%d>", id)
			return
		}
		fmt.Fprintf(d.w, "Object #%d {\n", id)
		d.members(x.All(), depth)
		d.indent(depth)
		io.WriteString(d.w, "}")
	case *clone.BooleanObject:
		fmt.Fprintf(d.w, "Boolean(%t)", x.Value)
	case *clone.NumberObject:
		fmt.Fprintf(d.w, "Number(%s)", strconv.FormatFloat(x.Value, 'g', -1, 64))
	case *clone.StringObject:
		fmt.Fprintf(d.w, "String(%s)", strconv.Quote(x.Value))
	case *clone.File:
		fmt.Fprintf(d.w, "File(%q, %q, %q)", x.Path, x.URL, x.Type)
	case *clone.FileList:
		fmt.Fprintf(d.w, "FileList(%d files)", len(x.Files))
	case *clone.Blob:
		fmt.Fprintf(d.w, "Blob(%q, %q, %d bytes)", x.URL, x.Type, x.Size)
	case *clone.ImageData:
		fmt.Fprintf(d.w, "ImageData(%dx%d, %d bytes)", x.Width, x.Height, len(x.Data))
	case *clone.MessagePort:
		fmt.Fprintf(d.w, "MessagePort(%q)", x.Name)
	case *clone.ArrayBuffer:
		fmt.Fprintf(d.w, "ArrayBuffer(%d bytes)", x.ByteLength())
	case *clone.ArrayBufferView:
		fmt.Fprintf(d.w, "ArrayBufferView(subtype %d, offset %d, %d bytes)", x.Subtype, x.ByteOffset(), x.ByteLength())
	default:
		fmt.Fprintf(d.w, "%v", v)
	}
}

func (d *dumper) members(all iter.Seq2[string, clone.Value], depth int) {
	for name, v := range all {
		d.indent(depth + 1)
		fmt.Fprintf(d.w, "%s: ", strconv.Quote(name))
		d.value(v, depth+1)
		io.WriteString(d.w, "\n")
	}
}

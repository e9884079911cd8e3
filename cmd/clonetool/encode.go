package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"github.com/oy3o/clone"
)

func runEncode(e *env, args []string) error {
	var (
		common commonFlags
		out    string
		align  int
	)
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	fs.IntVar(&align, "align", 0, "pad the payload with zero bytes to a multiple of this size")
	if help, err := parse(e, fs, args); help || err != nil {
		return err
	}
	if align < 0 || align&(align-1) != 0 {
		return fmt.Errorf("--align must be a power of two, got %d", align)
	}
	if err := common.setup(e); err != nil {
		return err
	}

	src, err := readInput(e, common.in)
	if err != nil {
		return err
	}
	v, err := fromJSON(src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", common.in, err)
	}
	sv, err := e.codec.Serialize(v, nil)
	if err != nil {
		return err
	}
	data := clone.Pad(sv.Bytes(), align)
	e.log.Debug("encoded", zap.String("in", common.in), zap.Int("bytes", len(data)))

	if out == "-" {
		_, err = e.stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

// fromJSON decodes one JSONC document, keeping the key order of objects.
func fromJSON(src []byte) (clone.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(src)))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the document")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (clone.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			a := clone.NewArray(0)
			for i := uint32(0); dec.More(); i++ {
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				a.Set(i, v)
			}
			_, err := dec.Token()
			return a, err
		case '{':
			o := clone.NewObject()
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				o.Set(key.(string), v)
			}
			_, err := dec.Token()
			return o, err
		}
	case string:
		return clone.String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return clone.Number(f), nil
	case bool:
		return clone.Bool(t), nil
	case nil:
		return clone.Null{}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

package output

import (
	"fmt"
	"io"
	"reflect"
)

// RawLiner is implemented by values with a single-line raw form.
type RawLiner interface {
	RawLine() string
}

// RawFormatter writes one line per element: RawLine when implemented,
// fmt's %v otherwise.
type RawFormatter struct{}

// Format writes data, or each element of a slice, on its own line.
func (f *RawFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return writeRawLine(w, data)
	}
	for i := 0; i < v.Len(); i++ {
		if err := writeRawLine(w, v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func writeRawLine(w io.Writer, v any) error {
	if r, ok := v.(RawLiner); ok {
		_, err := fmt.Fprintln(w, r.RawLine())
		return err
	}
	_, err := fmt.Fprintln(w, v)
	return err
}

// Package emit writes features as newline-delimited JSON.
package emit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/beetlebugorg/etakehr/internal/join"
)

// Writer serialises one feature per line. Non-ASCII text is written as
// UTF-8 and HTML characters are left unescaped.
//
// Output is buffered; call Flush when done.
type Writer struct {
	dst  *countingWriter
	buf  *bufio.Writer
	line bytes.Buffer
	enc  *json.Encoder

	// ends holds the cumulative byte offset at which each buffered
	// feature ends, oldest first.
	ends    []int64
	encoded int64
	count   int
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	dst := &countingWriter{w: w}
	out := &Writer{dst: dst, buf: bufio.NewWriter(dst)}
	out.enc = json.NewEncoder(&out.line)
	out.enc.SetEscapeHTML(false)
	return out
}

// Emit encodes f followed by a newline into the buffer. An error means f
// could not be encoded or the underlying writer failed while the buffer
// was being drained.
func (w *Writer) Emit(f join.Feature) error {
	w.line.Reset()
	if err := w.enc.Encode(f); err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	n, err := w.buf.Write(w.line.Bytes())
	w.encoded += int64(n)
	if n == w.line.Len() {
		w.ends = append(w.ends, w.encoded)
	}
	w.settle()
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	return nil
}

// Count returns the number of features the underlying writer has fully
// accepted. Features still sitting in the buffer are not counted until a
// Flush delivers them.
func (w *Writer) Count() int {
	return w.count
}

// Flush writes any buffered output to the underlying writer.
func (w *Writer) Flush() error {
	err := w.buf.Flush()
	w.settle()
	if err != nil {
		return fmt.Errorf("emit: flush: %w", err)
	}
	return nil
}

// settle moves features whose last byte has reached the destination from
// ends into count.
func (w *Writer) settle() {
	i := 0
	for i < len(w.ends) && w.ends[i] <= w.dst.n {
		i++
	}
	w.count += i
	w.ends = w.ends[i:]
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

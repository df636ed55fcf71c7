package source

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"

	"github.com/spf13/afero"
)

// DefaultSeparator terminates lines unless configured otherwise.
const DefaultSeparator = "\n"

// LogLine is one line of the source file with its terminator stripped.
type LogLine struct {
	Number int   // 1-based
	Offset int64 // byte offset of the first byte of the line
	Text   string
}

// Reader produces the lines of a file in order until EOF.
// It is not safe for concurrent use.
type Reader struct {
	path      string
	separator string
	offset    int64

	file   afero.File
	reader *bufio.Reader
	buf    []byte // carries partial data across reads for multi-byte separators
	line   int
	eof    bool
}

// Open opens path on fs for sequential reading. A nil fs means the OS filesystem.
func Open(fs afero.Fs, path, separator string) (*Reader, error) {
	if separator == "" {
		return nil, ErrEmptySeparator
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, &OpenError{Path: path, Err: errors.New("is a directory")}
	}
	return &Reader{
		path:      path,
		separator: separator,
		file:      f,
		reader:    bufio.NewReader(f),
	}, nil
}

func (r *Reader) readNextChunk() ([]byte, error) {
	sep := []byte(r.separator)
	for {
		if idx := bytes.Index(r.buf, sep); idx >= 0 {
			end := idx + len(sep)
			chunk := r.buf[:end]
			r.buf = append([]byte{}, r.buf[end:]...)
			return chunk, nil
		}
		if r.eof {
			if len(r.buf) == 0 {
				return nil, io.EOF
			}
			// unterminated last line
			chunk := r.buf
			r.buf = nil
			return chunk, nil
		}
		data, err := r.reader.ReadBytes(sep[len(sep)-1])
		r.buf = append(r.buf, data...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.eof = true
				continue
			}
			return nil, err
		}
	}
}

// Next returns the next line, or io.EOF once the file is exhausted.
func (r *Reader) Next() (LogLine, error) {
	if r.reader == nil {
		return LogLine{}, io.EOF
	}
	chunk, err := r.readNextChunk()
	if err != nil {
		return LogLine{}, err
	}
	ln := LogLine{Number: r.line + 1, Offset: r.offset}
	r.line++
	r.offset += int64(len(chunk))

	text := bytes.TrimSuffix(chunk, []byte(r.separator))
	if r.separator == DefaultSeparator {
		text = bytes.TrimSuffix(text, []byte("\r"))
	}
	ln.Text = string(text)
	return ln, nil
}

// All returns the remaining lines as a lazy sequence. A read error is
// yielded once and ends the sequence.
func (r *Reader) All() iter.Seq2[LogLine, error] {
	return func(yield func(LogLine, error) bool) {
		for {
			ln, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(LogLine{}, err)
				return
			}
			if !yield(ln, nil) {
				return
			}
		}
	}
}

// Path returns the file the reader was opened on.
func (r *Reader) Path() string { return r.path }

// Separator returns the line terminator fixed at Open.
func (r *Reader) Separator() string { return r.separator }

// Offset is the byte position just past the last line returned.
func (r *Reader) Offset() int64 { return r.offset }

// Count returns the number of lines read so far.
func (r *Reader) Count() int { return r.line }

// Close releases the file handle. Calling Close more than once is a no-op.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.reader = nil
	r.buf = nil
	return err
}

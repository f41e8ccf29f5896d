package storage

import (
	"bytes"
	"context"
	"io"

	json "github.com/goccy/go-json"
)

// ReadBytes downloads the whole object at path.
func ReadBytes(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only
	return io.ReadAll(rc)
}

// WriteBytes uploads data to path.
func WriteBytes(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// ReadJSON downloads the object at path and decodes it into v.
func ReadJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := ReadBytes(ctx, s, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteJSON encodes v as indented JSON and uploads it to path.
func WriteJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteBytes(ctx, s, path, data)
}

// DeletePrefix removes every object under prefix.
func DeletePrefix(ctx context.Context, s Storage, prefix string) error {
	files, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.Delete(ctx, f.Path); err != nil {
			return err
		}
	}
	return nil
}

// WriteStream uploads whatever write produces to path. write runs on the
// calling goroutine while the upload consumes its output through a pipe, so
// the object is never held in memory by this function.
func WriteStream(ctx context.Context, s Storage, path string, write func(w io.Writer) error) error {
	w := NewWriter(ctx, s, path)
	if err := write(w); err != nil {
		_ = w.Abort(err)
		return err
	}
	return w.Close()
}

// Writer streams an object to storage as it is written. The upload runs on
// its own goroutine; Close waits for it to finish.
type Writer struct {
	pw   *io.PipeWriter
	done chan error
	err  error
	shut bool
}

// NewWriter starts uploading path. Every Writer must be closed or aborted.
func NewWriter(ctx context.Context, s Storage, path string) *Writer {
	pr, pw := io.Pipe()
	w := &Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		err := s.Upload(ctx, path, pr)
		// unblock the writer if the upload stopped reading early
		pr.CloseWithError(uploadStopped(err))
		w.done <- err
	}()
	return w
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close ends the object and returns the upload's result.
func (w *Writer) Close() error {
	return w.finish(nil)
}

// Abort stops the upload with cause. The partial object may or may not be
// left behind, depending on the backend.
func (w *Writer) Abort(cause error) error {
	if cause == nil {
		cause = io.ErrClosedPipe
	}
	return w.finish(cause)
}

func (w *Writer) finish(cause error) error {
	if w.shut {
		return w.err
	}
	w.shut = true
	w.pw.CloseWithError(cause) //nolint:errcheck // always nil
	w.err = <-w.done
	if cause != nil && w.err == nil {
		w.err = cause
	}
	return w.err
}

func uploadStopped(err error) error {
	if err != nil {
		return err
	}
	return io.ErrClosedPipe
}

package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dshills/reviewdeck/internal/review"
)

// Writer writes a cycle result in a specific format.
type Writer interface {
	Write(w io.Writer, res *review.Result) error
}

// Options tune the writers.
type Options struct {
	// Color enables ANSI colors in text output.
	Color bool
	// Now is the reference time for relative timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{opts: opts}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteResult writes the result to outPath: an s3://bucket/key URL, a file
// path, or stdout when empty.
func WriteResult(ctx context.Context, res *review.Result, format, outPath string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}

	if strings.HasPrefix(outPath, "s3://") {
		bucket, key, err := ParseS3URL(outPath)
		if err != nil {
			return err
		}
		dest, err := NewS3Destination(ctx, bucket, key, os.Getenv("AWS_REGION"), os.Getenv("REVIEWDECK_S3_ENDPOINT"))
		if err != nil {
			return err
		}
		var buf strings.Builder
		if err := writer.Write(&buf, res); err != nil {
			return err
		}
		return dest.Write(ctx, []byte(buf.String()), contentType(format))
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, res)
}

func contentType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "markdown", "md":
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/linkrank/core"
)

// UnavailableNotice is shown when the provider cannot be reached.
const UnavailableNotice = "Failed to fetch search results. Please check your API key, search engine ID, and ensure your Google Cloud project is properly configured."

// Notifier presents user-visible notices.
type Notifier interface {
	Notify(ctx context.Context, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, err error)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, err error) {
	f(ctx, err)
}

// Notice returns the human-readable text for err.
func Notice(err error) string {
	var cfgErr *core.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return cfgErr.Prompt()
	case errors.Is(err, core.ErrSearchUnavailable):
		return UnavailableNotice
	default:
		return err.Error()
	}
}

// WriterNotifier writes one notice per line to w.
type WriterNotifier struct {
	w io.Writer
}

// NewWriterNotifier creates a notifier that writes to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier.
func (n *WriterNotifier) Notify(ctx context.Context, err error) {
	fmt.Fprintln(n.w, Notice(err))
}

// logNotifier is the default; it only logs.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Notify(ctx context.Context, err error) {
	n.logger.Warn(Notice(err))
}

package ttscache

import (
	"context"
	"log/slog"

	"github.com/ivlev/quickcut/internal/tts"
)

// Synthesizer serves requests from a Store and falls through to Next on a
// miss. Cache failures are logged and never fail the synthesis.
type Synthesizer struct {
	Next   tts.Synthesizer
	Store  *Store
	Logger *slog.Logger
}

func (c *Synthesizer) Name() string { return c.Next.Name() }

func (c *Synthesizer) Synthesize(ctx context.Context, req tts.Request, outPath string) (tts.Result, error) {
	key := Key(c.Next.Name(), req)

	if e, ok, err := c.Store.Lookup(ctx, key); err != nil {
		c.warn("narration cache lookup failed", err)
	} else if ok {
		return tts.Result{AudioPath: e.AudioPath, Duration: e.Duration}, nil
	}

	res, err := c.Next.Synthesize(ctx, req, outPath)
	if err != nil {
		return res, err
	}

	if _, err := c.Store.Put(ctx, key, c.Next.Name(), res.AudioPath, res.Duration); err != nil {
		c.warn("narration cache store failed", err)
	}
	return res, nil
}

func (c *Synthesizer) warn(msg string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, "error", err)
	}
}

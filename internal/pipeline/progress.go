package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/youtube"
)

// progressLookuper wraps a Lookuper with a live lookup counter. Hand
// enrich.LookupFunc(p.lookup) to Enrich. On a TTY it writes an inline
// \r-overwritten line; otherwise it is a no-op (the miss warnings already
// provide enough breadcrumbs in piped/logged output).
type progressLookuper struct {
	inner   enrich.Lookuper
	out     io.Writer
	total   int
	current int
	misses  int
	enabled bool
}

func newProgressLookuper(inner enrich.Lookuper, total int, isTTY bool) *progressLookuper {
	return &progressLookuper{inner: inner, out: os.Stdout, total: total, enabled: isTTY && total > 0}
}

func (p *progressLookuper) lookup(ctx context.Context, id string) (youtube.Metadata, error) {
	p.current++
	p.print(id)
	md, err := p.inner.Lookup(ctx, id)
	if err != nil {
		p.misses++
		// Keep the warning that follows on its own line.
		p.clear()
	}
	return md, err
}

func (p *progressLookuper) print(id string) {
	if !p.enabled {
		return
	}
	pct := p.current * 100 / p.total
	status := fmt.Sprintf("  Fetching [%d/%d] %d%% ", p.current, p.total, pct)
	if p.misses > 0 {
		status += fmt.Sprintf("(%d missed) ", p.misses)
	}
	status += truncate(id, 40)

	// Pad to 80 chars to overwrite previous longer lines, then \r.
	if n := width(status); n < 80 {
		status += strings.Repeat(" ", 80-n)
	}
	fmt.Fprintf(p.out, "\r%s", status)
}

// clear erases the inline progress line on a TTY.
func (p *progressLookuper) clear() {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
}

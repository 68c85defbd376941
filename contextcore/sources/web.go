package sources

import (
	"context"
	"errors"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

// ErrWebSourceNotConfigured is returned by an unconfigured WebSource,
// modeled by spec §4.6 as a timeout: the caller is expected to treat
// it the same as any other per-source failure (empty result, no
// surfaced error from the Source Manager).
var ErrWebSourceNotConfigured = errors.New("web source: not configured")

// WebSource is the optional external-search context source. Spec §4.6
// describes it only as "optional; fails with a timeout error if not
// configured" — this module has no external search collaborator, so
// Fetch is left nil by default and GetContext always returns the
// not-configured error until a caller supplies one.
type WebSource struct {
	priority int
	Fetch    func(ctx context.Context, query string) ([]contextcore.Item, error)
}

// NewWebSource creates a WebSource at the given fan-out priority, with
// no Fetch collaborator wired in.
func NewWebSource(priority int) *WebSource {
	return &WebSource{priority: priority}
}

func (w *WebSource) SourceType() string { return "external:web" }
func (w *WebSource) Priority() int      { return w.priority }

func (w *WebSource) GetContext(ctx context.Context, query string, _ Options) ([]contextcore.Item, error) {
	if w.Fetch == nil {
		return nil, ErrWebSourceNotConfigured
	}
	return w.Fetch(ctx, query)
}

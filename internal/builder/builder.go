package builder

import (
	"github.com/seanpdoyle/emberjs-build/internal/logging"
	"github.com/seanpdoyle/emberjs-build/internal/registry"
	"github.com/seanpdoyle/emberjs-build/internal/transform"
)

// LintOptions selects the lint passes whose results are merged into test
// trees.
type LintOptions struct {
	Syntax bool
	Style  bool
}

type Builder struct {
	registry *registry.Registry
	vendored registry.Vendored
	prims    transform.Primitives
	session  *Session
	lint     LintOptions
	log      *logging.Logger
}

func New(reg *registry.Registry, prims transform.Primitives) *Builder {
	return &Builder{
		registry: reg,
		vendored: registry.Vendored{},
		prims:    prims,
		session:  NewSession(),
		lint:     LintOptions{Syntax: true, Style: true},
		log:      logging.NewNoOpLogger(),
	}
}

func (b *Builder) WithVendored(v registry.Vendored) *Builder {
	b.vendored = v
	return b
}

// WithSession replaces the session, for example to share package builds
// between several builders.
func (b *Builder) WithSession(s *Session) *Builder {
	b.session = s
	return b
}

func (b *Builder) WithLint(opts LintOptions) *Builder {
	b.lint = opts
	return b
}

func (b *Builder) WithLogger(l *logging.Logger) *Builder {
	b.log = l
	return b
}

func (b *Builder) Session() *Session {
	return b.session
}

package builder

import (
	"fmt"

	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/registry"
	"github.com/nomis52/msc/service"
	"github.com/nomis52/msc/task"
)

type dependencySpec struct {
	registry *registry.Registry
	name     name.Name
	opts     depgraph.Options
}

// ServiceBuilder accumulates a new controller's configuration before a
// terminal call to Install.
type ServiceBuilder struct {
	ctx      *ServiceContext
	registry *registry.Registry
	name     name.Name

	mode    service.Mode
	svc     service.Service
	aliases []name.Name
	deps    []dependencySpec

	err error
}

// SetMode sets the controller's mode (default ModeActive).
func (b *ServiceBuilder) SetMode(m service.Mode) *ServiceBuilder {
	b.mode = m
	return b
}

// SetService sets the user-supplied service implementation. Required.
func (b *ServiceBuilder) SetService(s service.Service) *ServiceBuilder {
	b.svc = s
	return b
}

// AddAliases registers additional names under which the installed
// controller will also be reachable, in the builder's own registry.
func (b *ServiceBuilder) AddAliases(names ...name.Name) *ServiceBuilder {
	b.aliases = append(b.aliases, names...)
	return b
}

// AddDependency adds an outgoing dependency edge to the registration for n
// in reg (or the builder's own registry, if reg is nil). Fails the build
// with ErrForeignController if reg is non-nil and not one of the
// ServiceContext's known registries.
func (b *ServiceBuilder) AddDependency(reg *registry.Registry, n name.Name, opts depgraph.Options) *ServiceBuilder {
	if reg == nil {
		reg = b.registry
	}
	if !b.ctx.known[reg] {
		if b.err == nil {
			b.err = fmt.Errorf("dependency %s: %w", n.String(), ErrForeignController)
		}
		return b
	}
	b.deps = append(b.deps, dependencySpec{registry: reg, name: n, opts: opts})
	return b
}

// Install wires and activates the controller: installs the primary and
// alias registrations, wires every outgoing dependency edge, runs the
// install-time cycle check, and, if all of that succeeds, activates the
// controller against the transaction's task runtime. On CYCLE or
// DUPLICATE_SERVICE the partial registration binding is rolled back.
func (b *ServiceBuilder) Install() (*service.Controller, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.svc == nil {
		return nil, ErrServiceRequired
	}

	ctrl := service.NewController(b.name, b.svc, b.mode, nil)

	primary := b.registry.GetOrCreate(b.name)
	if err := primary.Install(ctrl); err != nil {
		return nil, err
	}
	ctrl.SetPrimaryRegistration(primary)

	var installedAliases []*registry.Registration
	for _, aliasName := range b.aliases {
		aliasReg := b.registry.GetOrCreate(aliasName)
		if err := aliasReg.Install(ctrl); err != nil {
			b.rollback(ctrl, b.ctx.tx.Runtime())
			return nil, err
		}
		ctrl.AddAlias(aliasReg)
		installedAliases = append(installedAliases, aliasReg)
	}

	rt := b.ctx.tx.Runtime()
	for _, d := range b.deps {
		target := d.registry.GetOrCreate(d.name)
		edge := depgraph.NewEdge(ctrl, target, d.opts, rt)
		ctrl.AddEdge(edge)
	}

	if depgraph.Reaches(ctrl, ctrl) {
		// A cycle is only detectable once every edge of the cyclic
		// controller's own install is wired, which is also the point the
		// cycle first existed. Rollback unwinds this controller's own
		// registration slots and edges; a controller on the other side of
		// the cycle that was itself still mid-install keeps whatever this
		// controller already wired onto it (e.g. an incoming edge on its
		// target registration) until its own Install call returns, since it
		// has no way to know this sibling's install failed.
		b.rollback(ctrl, rt)
		return nil, depgraph.ErrCycle
	}

	ctrl.Activate(rt)
	return ctrl, nil
}

func (b *ServiceBuilder) rollback(ctrl *service.Controller, rt *task.Runtime) {
	for _, e := range ctrl.Edges() {
		e.Detach(rt)
	}
	for _, a := range ctrl.Aliases() {
		a.Clear()
	}
	if reg := ctrl.Registration(); reg != nil {
		reg.Clear()
	}
}

// Package builder implements the fluent installation façade described in
// spec.md §6: ServiceContext.addService(registry, name) -> ServiceBuilder,
// with setMode/setService/addAliases/addDependency/install().
//
// Grounded on the teacher's functional-options idiom (server.Option,
// metrics.WithPrefix, ipmi.WithUsername) adapted to a builder-with-
// terminal-Install() shape instead of options-to-constructor, since the
// builder here is scoped to one update transaction rather than being a
// one-shot constructor call.
package builder

import (
	"github.com/nomis52/msc/name"
	"github.com/nomis52/msc/registry"
	"github.com/nomis52/msc/txn"
)

// ServiceContext is bound to a single update transaction and is the entry
// point for installing new services during it.
type ServiceContext struct {
	tx    *txn.Transaction
	known map[*registry.Registry]bool
}

// NewServiceContext binds a ServiceContext to tx, restricting AddDependency
// to the given set of registries (the container's own registries).
func NewServiceContext(tx *txn.Transaction, registries ...*registry.Registry) *ServiceContext {
	known := make(map[*registry.Registry]bool, len(registries))
	for _, r := range registries {
		known[r] = true
	}
	return &ServiceContext{tx: tx, known: known}
}

// AddService starts building a new controller to be installed under n in
// reg.
func (sc *ServiceContext) AddService(reg *registry.Registry, n name.Name) *ServiceBuilder {
	return &ServiceBuilder{ctx: sc, registry: reg, name: n}
}

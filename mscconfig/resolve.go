package mscconfig

import (
	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/service"
)

// ResolveMode translates the spec's mode string to a service.Mode. Assumes
// the config has already been validated.
func (s ServiceSpec) ResolveMode() service.Mode {
	switch s.Mode {
	case "lazy":
		return service.ModeLazy
	case "on_demand":
		return service.ModeOnDemand
	default:
		return service.ModeActive
	}
}

// ResolveOptions translates a dependency spec into depgraph.Options.
// Assumes the config has already been validated.
func (d DependencySpec) ResolveOptions() depgraph.Options {
	opts := depgraph.Options{}

	switch d.Requirement {
	case "unrequired":
		opts.Requirement = depgraph.Unrequired
	default:
		opts.Requirement = depgraph.Required
	}

	switch d.Demand {
	case "no_demand":
		opts.DemandPropagation = depgraph.NoDemand
	default:
		opts.DemandPropagation = depgraph.PropagateDemand
	}

	switch d.Linkage {
	case "parent_child":
		opts.Linkage = depgraph.ParentChild
	default:
		opts.Linkage = depgraph.Peer
	}

	return opts
}

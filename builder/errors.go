package builder

import "errors"

// ErrForeignController is returned by AddDependency when the caller passes
// a *registry.Registry that the builder's ServiceContext does not
// recognize as belonging to the same container — guarding against a
// dependency being wired against the wrong container's registry table.
var ErrForeignController = errors.New("builder: dependency registry does not belong to this container")

// ErrServiceRequired is returned by Install when SetService was never
// called.
var ErrServiceRequired = errors.New("builder: SetService is required before Install")

package registry

import "errors"

// ErrDuplicateService is returned by Install when the registration already
// holds a controller, per spec.md I4.
var ErrDuplicateService = errors.New("registry: a controller is already installed under this name")

// ErrServiceNotFound is returned by GetRequiredService when no registration
// exists, or exists but holds no controller.
var ErrServiceNotFound = errors.New("registry: service not found")

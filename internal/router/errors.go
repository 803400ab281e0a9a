package router

import (
	"fmt"
	"strings"
)

// UnknownSchemeError reports an identifier or query whose scheme does
// not match any registered repository. The message lists the schemes
// that are registered so an operator can see what the host can serve.
type UnknownSchemeError struct {
	Scheme string
	Known  []string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("scheme %q does not match any registered repository (registered: %s)",
		e.Scheme, strings.Join(e.Known, ", "))
}

// ConfigurationError reports an invalid registry construction, such as
// two repositories claiming the same scheme. It is raised at startup
// and never surfaced on a per-request basis.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "registry configuration error: " + e.Reason
}

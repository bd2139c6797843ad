package server

import (
	"context"

	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/library"
	"github.com/quasar/launchercore/internal/mcversion"
)

func errMissingField(name string) error {
	return corerr.New(corerr.Internal, "missing required field: "+name)
}

// materializeLibraries installs eff's libraries and returns the resulting
// classpath, relaying progress over the event bus.
func (s *Server) materializeLibraries(ctx context.Context, instanceID string, eff *mcversion.Details) ([]string, error) {
	return library.Install(ctx, s.root, s.fetcher, s.bus, instanceID, eff)
}

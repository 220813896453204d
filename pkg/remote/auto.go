package remote

import (
	"strings"

	"github.com/clearlinux/speedupdate/log"
)

// AutoRepository picks a RemoteRepository implementation from a URL's
// scheme: file:// and bare paths resolve to a FileRepository, http://
// and https:// resolve to an HTTPRepository. Mirrors the scheme check
// internal/client.NewState performs on baseContent.
func AutoRepository(location string) RemoteRepository {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		log.Debug(log.Remote, "using HTTP repository at %s", location)
		return NewHTTPRepository(location, nil)
	case strings.HasPrefix(location, "file://"):
		dir := strings.TrimPrefix(location, "file://")
		log.Debug(log.Remote, "using file repository at %s", dir)
		return NewFileRepository(dir)
	default:
		log.Debug(log.Remote, "using file repository at %s", location)
		return NewFileRepository(location)
	}
}

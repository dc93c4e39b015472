package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/sirupsen/logrus"
)

// metadataHosts are cloud metadata services, the usual SSRF targets.
var metadataHosts = map[string]bool{
	"169.254.169.254":          true, // AWS, GCP, Azure
	"metadata.google.internal": true,
	"metadata.goog":            true,
	"100.100.100.200":          true, // Alibaba Cloud
	"169.254.170.2":            true, // AWS ECS task metadata
}

// Guard refuses requests to cloud metadata endpoints and warns about
// plaintext, loopback and private destinations. It runs as a security
// provider so it sees the final URL of every request.
type Guard struct {
	Log *logrus.Logger

	// AllowMetadata disables the metadata endpoint block.
	AllowMetadata bool
}

// NewGuard returns a Guard logging to log, or the standard logger if nil.
func NewGuard(log *logrus.Logger) *Guard {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Guard{Log: log}
}

// Sign inspects the request destination.
func (g *Guard) Sign(req *http.Request) error {
	scheme := strings.ToLower(req.URL.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", req.URL.Scheme)
	}

	hostname := strings.ToLower(req.URL.Hostname())
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	if metadataHosts[hostname] && !g.AllowMetadata {
		return fmt.Errorf("blocked request to cloud metadata endpoint: %s", hostname)
	}

	log := g.Log.WithField("host", hostname)
	if scheme == "http" {
		log.Warn("using insecure HTTP connection, data will be transmitted unencrypted")
	}

	if hostname == "localhost" {
		log.Warn("making request to loopback address")
		return nil
	}
	if addr, err := netip.ParseAddr(hostname); err == nil {
		switch {
		case addr.IsLoopback():
			log.Warn("making request to loopback address")
		case addr.IsPrivate(), addr.IsLinkLocalUnicast(), addr.IsUnspecified():
			log.Warn("making request to private or internal address")
		}
	}
	return nil
}

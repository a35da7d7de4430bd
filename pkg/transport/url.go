package transport

import (
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// FeedPath is where the job runner serves its pipeline event feed.
const FeedPath = "/ws/pipeline"

// URLFromBase derives the feed URL from the job runner's HTTP base URL.
func URLFromBase(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", errors.Wrapf(err, "parse base url %q", base)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported scheme %q in base url %q", u.Scheme, base)
	}
	if u.Host == "" {
		return "", errors.Errorf("base url %q has no host", base)
	}
	u.Path = path.Join("/", u.Path, FeedPath)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

package descriptor

import (
	"context"
	"io"
	"net/url"
)

// Resource is a handle on one descriptor resource.
type Resource interface {
	// Location is the resource's own URL, e.g. file:/app/META-INF/persistence.xml.
	Location() *url.URL
	Open() (io.ReadCloser, error)
}

// Locator yields the descriptor resources visible to the application, in a
// stable order.
type Locator interface {
	Locate(ctx context.Context) ([]Resource, error)
}

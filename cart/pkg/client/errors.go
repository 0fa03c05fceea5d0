package client

import "github.com/Alturino/storefront/internal/upstream"

// APIError is returned for non-2xx answers and for 2xx answers carrying
// success=false.
type APIError = upstream.APIError

type Credentials = upstream.Credentials

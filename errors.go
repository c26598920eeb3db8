package kickoff

import (
	"fmt"
)

var (
	// When storage doesn't contain requested stream name
	ErrStreamNotFound = fmt.Errorf("Stream not found for provided name")
	// When posted stream has no name neither in path nor in body
	ErrEmptyStreamName = fmt.Errorf("Stream name is empty")
	// When video codec from configuration is not known to transcoder
	ErrUnknownVideoCodec = fmt.Errorf("Unknown video codec")
)

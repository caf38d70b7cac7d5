package ingest

import "errors"

// ErrParse is wrapped by any error returned while decoding a probe line.
var ErrParse = errors.New("ingest: parse error")

// ErrProbe is wrapped by any error starting or supervising a probe process.
var ErrProbe = errors.New("ingest: probe error")

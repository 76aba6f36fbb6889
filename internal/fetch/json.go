package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// countingReader compte le nombre d'octets lus via Read.
type countingReader struct {
	R io.Reader
	N int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	if n > 0 {
		c.N += int64(n)
	}
	return n, err
}

// FetchJSONInto télécharge rawURL et décode le JSON directement dans dst (pointeur).
// Le decode se fait sur un reader limité ; si le compteur dépasse maxBytes,
// on retourne ErrTooLarge.
func FetchJSONInto(ctx context.Context, rawURL string, opts Options, dst any) error {
	resp, cancel, err := get(ctx, rawURL, opts)
	if err != nil {
		return fmt.Errorf("fetch json: %w", err)
	}
	defer cancel()
	defer resp.Body.Close()

	maxBytes := opts.withDefaults().MaxBytes
	cr := &countingReader{R: io.LimitReader(resp.Body, maxBytes+1)}
	if err := json.NewDecoder(cr).Decode(dst); err != nil {
		return fmt.Errorf("fetch json: decode: %w", err)
	}
	if cr.N > maxBytes {
		return ErrTooLarge
	}
	return nil
}

// FetchJSON générique : fetch + unmarshal dans une valeur typée.
func FetchJSON[T any](ctx context.Context, rawURL string, opts Options) (T, error) {
	var v T
	if err := FetchJSONInto(ctx, rawURL, opts, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

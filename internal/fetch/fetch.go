// Package fetch fournit des utilitaires légers et testables pour télécharger
// des ressources HTTP (pistes de sous-titres, endpoints DevTools).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 10_000_000
	DefaultUserAgent = "CaptionSync/1.0"
)

// Erreurs exportées
var (
	ErrStatus   = errors.New("unexpected HTTP status")
	ErrTooLarge = errors.New("response body too large")
)

// Options regroupe les réglages d'un téléchargement. Les zéros valent défauts.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Client    *http.Client // nil -> client neuf (les tests passent celui de httptest)
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	return o
}

// FetchBytes télécharge l'URL avec les options données.
// Note : lit tout en mémoire (OK pour des pistes de sous-titres).
func FetchBytes(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	resp, cancel, err := get(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	maxBytes := opts.withDefaults().MaxBytes
	r := io.LimitReader(resp.Body, maxBytes+1) // +1 pour détecter dépassement
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("fetch: body exceeds %d bytes: %w", maxBytes, ErrTooLarge)
	}
	return data, nil
}

// get exécute la requête et vérifie statut + Content-Length.
// L'appelant doit fermer resp.Body et appeler cancel.
func get(ctx context.Context, rawURL string, opts Options) (*http.Response, context.CancelFunc, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = opts.withDefaults()

	// valider l'URL tôt
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, nil, fmt.Errorf("fetch: invalid url %q: %w", rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := opts.Client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("fetch: request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("fetch: %s: %w", resp.Status, ErrStatus)
	}

	// Content-Length connu et supérieur à maxBytes -> échouer vite
	if resp.ContentLength > 0 && resp.ContentLength > opts.MaxBytes {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("fetch: content-length %d exceeds limit %d: %w", resp.ContentLength, opts.MaxBytes, ErrTooLarge)
	}
	return resp, cancel, nil
}

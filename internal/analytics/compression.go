// internal/analytics/compression.go
package analytics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// acceptEncoding is what the export API is asked to use.
const acceptEncoding = "gzip, br"

var (
	gzipReaderPool = sync.Pool{
		New: func() interface{} { return new(gzip.Reader) },
	}
	brotliReaderPool = sync.Pool{
		New: func() interface{} { return brotli.NewReader(nil) },
	}
	emptyReader = strings.NewReader("")
)

func getGzipReader(r io.Reader) (*gzip.Reader, error) {
	zr := gzipReaderPool.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		gzipReaderPool.Put(zr)
		return nil, err
	}
	return zr, nil
}

func putGzipReader(zr *gzip.Reader) {
	_ = zr.Reset(emptyReader)
	gzipReaderPool.Put(zr)
}

func getBrotliReader(r io.Reader) (*brotli.Reader, error) {
	br := brotliReaderPool.Get().(*brotli.Reader)
	if err := br.Reset(r); err != nil {
		brotliReaderPool.Put(br)
		return nil, err
	}
	return br, nil
}

func putBrotliReader(br *brotli.Reader) {
	_ = br.Reset(emptyReader)
	brotliReaderPool.Put(br)
}

// decompressingTransport advertises gzip and brotli and unwraps the response
// body. Setting Accept-Encoding by hand turns off net/http's own gzip
// handling, so this layer has to do it.
type decompressingTransport struct {
	next http.RoundTripper
}

func newDecompressingTransport(next http.RoundTripper) *decompressingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &decompressingTransport{next: next}
}

func (t *decompressingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

type closeWrapper struct {
	io.ReadCloser
	originalBody io.ReadCloser
	release      func()
}

func (w *closeWrapper) Close() error {
	err1 := w.ReadCloser.Close()
	if w.release != nil {
		w.release()
		w.release = nil
	}
	return errors.Join(err1, w.originalBody.Close())
}

// decompressResponse unwraps Content-Encoding layers in reverse order.
func decompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	for i := len(encodings) - 1; i >= 0; i-- {
		layers := strings.Split(encodings[i], ",")
		slices.Reverse(layers)
		for _, layer := range layers {
			encoding := strings.ToLower(strings.TrimSpace(layer))

			var (
				reader  io.ReadCloser
				release func()
			)
			switch encoding {
			case "gzip", "x-gzip":
				zr, err := getGzipReader(resp.Body)
				if err != nil {
					return fmt.Errorf("gzip initialization error: %w", err)
				}
				reader = zr
				release = func() { putGzipReader(zr) }
			case "br":
				br, err := getBrotliReader(resp.Body)
				if err != nil {
					return fmt.Errorf("brotli initialization error: %w", err)
				}
				reader = io.NopCloser(br)
				release = func() { putBrotliReader(br) }
			case "identity", "":
				continue
			default:
				return fmt.Errorf("unsupported Content-Encoding: %s", encoding)
			}
			resp.Body = &closeWrapper{ReadCloser: reader, originalBody: resp.Body, release: release}
		}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

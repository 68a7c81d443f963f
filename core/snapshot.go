package core

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
)

// snapshotResponse converts a response to its HTTP/1.1 wire form so it can be
// stored as an opaque cache value. The response body is consumed in the
// process and replaced with a fresh reader, so the response stays usable by
// the caller afterwards.
func snapshotResponse(res *http.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, err
	}
	snapshot := buf.Bytes()
	// re-read the serialized form to restore the body
	restored, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(snapshot)), res.Request)
	if err != nil {
		return nil, err
	}
	res.Body = restored.Body
	return snapshot, nil
}

// responseFromSnapshot converts a stored wire-form snapshot back to a response.
func responseFromSnapshot(snapshot []byte, req *http.Request) (*http.Response, error) {
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(snapshot)), req)
}

// writeResponse sends a response to the client, tagging it with the cache
// disposition header.
func writeResponse(w http.ResponseWriter, res *http.Response, cacheStatus string) error {
	if res.Body != nil {
		defer res.Body.Close()
	}
	copyHeader(w.Header(), res.Header)
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(res.StatusCode)
	_, err := io.Copy(w, res.Body)
	return err
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// strip forwarding headers added by upstream proxies
		if k != "X-Forwarded-For" && k != "X-Forwarded-Proto" && k != "X-Forwarded-Host" {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}

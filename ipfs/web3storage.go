package ipfs

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/metrics"
	"github.com/pkg/errors"
)

// Web3Storage uploads blobs through the web3.storage HTTP API. Each blob is
// sent as a single multipart file so the network wraps it in a directory
// and the gateway can serve it as /ipfs/<cid>/<name>.
type Web3Storage struct {
	URL     string
	Token   string
	Client  *http.Client
	Metrics *metrics.Metrics
}

func NewWeb3Storage(url, token string, timeout time.Duration, m *metrics.Metrics) *Web3Storage {
	return &Web3Storage{
		URL:     strings.TrimSuffix(url, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		Metrics: m,
	}
}

func (w *Web3Storage) Put(ctx context.Context, name string, v any) (string, error) {
	start := time.Now()
	cid, err := w.put(ctx, name, v)
	w.Metrics.ObserveUpload(err, time.Since(start))
	if err != nil {
		return "", err
	}
	log.Debugf("ipfs.upload: %s -> %s", name, cid)
	return cid, nil
}

func (w *Web3Storage) put(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "ipfs.upload.encode")
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", errors.Wrap(err, "ipfs.upload.multipart")
	}
	_, err = part.Write(data)
	if err != nil {
		return "", errors.Wrap(err, "ipfs.upload.multipart")
	}
	err = mw.Close()
	if err != nil {
		return "", errors.Wrap(err, "ipfs.upload.multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL+"/upload", body)
	if err != nil {
		return "", errors.Wrap(err, "ipfs.upload.request")
	}
	req.Header.Set("Authorization", "Bearer "+w.Token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Name", name)

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "ipfs.upload %s", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("ipfs.upload %s: status %d: %s", name, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out struct {
		CID string `json:"cid"`
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return "", errors.Wrapf(err, "ipfs.upload %s: decode response", name)
	}
	if out.CID == "" {
		return "", errors.Errorf("ipfs.upload %s: empty cid in response", name)
	}
	return out.CID, nil
}

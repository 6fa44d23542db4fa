// Package pinning uploads NFT images and metadata to IPFS through Pinata.
package pinning

import (
	"bytes"
	"context"
	"contract-orchestrator/internal/config"
	"contract-orchestrator/internal/interfaces"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var _ interfaces.AssetStore = (*Pinata)(nil)

const maxErrorBody = 4 << 10

// pinResponse is the part of Pinata's pin response we use
type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Pinata is an interfaces.AssetStore backed by the Pinata pinning API
type Pinata struct {
	httpClient *http.Client
	apiURL     string
	gatewayURL string
	logger     *zerolog.Logger
}

// keyTransport adds Pinata's key headers to every request
type keyTransport struct {
	Base      http.RoundTripper
	ApiKey    string
	ApiSecret string
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("pinata_api_key", t.ApiKey)
	req.Header.Set("pinata_secret_api_key", t.ApiSecret)
	return t.Base.RoundTrip(req)
}

func NewPinata(cfg config.PinataConfig, logger *zerolog.Logger) (*Pinata, error) {
	if cfg.ApiKey == "" || cfg.ApiSecret == "" {
		return nil, errors.New("PINATA_API_KEY and PINATA_API_SECRET are required")
	}
	gateway := cfg.GatewayURL
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Pinata{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &keyTransport{
				Base:      http.DefaultTransport,
				ApiKey:    cfg.ApiKey,
				ApiSecret: cfg.ApiSecret,
			},
		},
		apiURL:     strings.TrimSuffix(cfg.ApiURL, "/"),
		gatewayURL: gateway,
		logger:     logger,
	}, nil
}

// UploadBinary pins data as a file called name and returns its gateway URL
func (p *Pinata) UploadBinary(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	header.Set("Content-Type", MimeType(name))
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	url, err := p.pin(ctx, "/pinning/pinFileToIPFS", form.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	p.logger.Info().Str("name", name).Str("url", url).Int("bytes", len(data)).Msg("Image pinned to IPFS")
	return url, nil
}

// UploadJSON pins document as JSON and returns its gateway URL
func (p *Pinata) UploadJSON(ctx context.Context, name string, document any) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"pinataContent":  document,
		"pinataMetadata": map[string]string{"name": name},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	url, err := p.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}
	p.logger.Info().Str("name", name).Str("url", url).Msg("Metadata pinned to IPFS")
	return url, nil
}

func (p *Pinata) pin(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+path, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("pinata returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode pinata response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", errors.New("pinata response has no IpfsHash")
	}
	return p.gatewayURL + out.IpfsHash, nil
}

// MimeType guesses an image content type from the file extension, falling back to JPEG
func MimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png", ".gif", ".webp":
		return "image/" + ext[1:]
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}

package jimeng

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

const (
	uploadTokenPath = "/mweb/v1/get_upload_token"
	imageXVersion   = "2018-08-01"
	imageXService   = "imagex"
	imageXRegion    = "cn-north-1"
	maxImageBytes   = 20 << 20
	uploadScene     = 2
)

type uploadToken struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	SpaceName       string `json:"space_name"`
}

type imageXResponse[T any] struct {
	ResponseMetadata struct {
		RequestID string `json:"RequestId"`
		Error     *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error,omitempty"`
	} `json:"ResponseMetadata"`
	Result T `json:"Result"`
}

type applyUploadResult struct {
	UploadAddress struct {
		StoreInfos []struct {
			StoreURI string `json:"StoreUri"`
			Auth     string `json:"Auth"`
		} `json:"StoreInfos"`
		UploadHosts []string `json:"UploadHosts"`
		SessionKey  string   `json:"SessionKey"`
	} `json:"UploadAddress"`
}

type commitUploadResult struct {
	Results []struct {
		URI       string `json:"Uri"`
		URIStatus int    `json:"UriStatus"`
	} `json:"Results"`
}

// UploadImage stores a reference image on the media host and returns its
// image URI. source may be an http(s) URL or a data: URI, and a local file
// path when WithLocalFiles is set.
func (c *Client) UploadImage(ctx context.Context, source string) (string, error) {
	data, ext, err := c.readImage(ctx, source)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	uri, err := c.uploadImage(ctx, data, ext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	slog.InfoContext(ctx, "reference image uploaded", "uri", uri, "bytes", len(data))
	return uri, nil
}

func (c *Client) uploadImage(ctx context.Context, data []byte, ext string) (string, error) {
	var token uploadToken
	if err := c.call(ctx, uploadTokenPath, nil, map[string]int{"scene": uploadScene}, &token); err != nil {
		return "", fmt.Errorf("fetching upload token: %w", err)
	}
	creds := aws.Credentials{
		AccessKeyID:     token.AccessKeyID,
		SecretAccessKey: token.SecretAccessKey,
		SessionToken:    token.SessionToken,
	}

	var apply imageXResponse[applyUploadResult]
	query := url.Values{
		"Action":        {"ApplyImageUpload"},
		"Version":       {imageXVersion},
		"ServiceId":     {token.SpaceName},
		"FileSize":      {strconv.Itoa(len(data))},
		"FileExtension": {ext},
	}
	if err := c.imageX(ctx, http.MethodGet, query, nil, creds, &apply); err != nil {
		return "", err
	}

	addr := apply.Result.UploadAddress
	if len(addr.StoreInfos) == 0 || len(addr.UploadHosts) == 0 {
		return "", fmt.Errorf("apply upload returned no store address")
	}
	store := addr.StoreInfos[0]

	if err := c.putObject(ctx, addr.UploadHosts[0], store.StoreURI, store.Auth, data); err != nil {
		return "", err
	}

	var commit imageXResponse[commitUploadResult]
	query = url.Values{
		"Action":    {"CommitImageUpload"},
		"Version":   {imageXVersion},
		"ServiceId": {token.SpaceName},
	}
	payload, err := json.Marshal(map[string]string{"SessionKey": addr.SessionKey})
	if err != nil {
		return "", fmt.Errorf("marshaling commit request: %w", err)
	}
	if err := c.imageX(ctx, http.MethodPost, query, payload, creds, &commit); err != nil {
		return "", err
	}

	if len(commit.Result.Results) == 0 || commit.Result.Results[0].URI == "" {
		return "", fmt.Errorf("commit upload returned no image uri")
	}
	return commit.Result.Results[0].URI, nil
}

// imageX sends a SigV4 signed request to the media API.
func (c *Client) imageX(ctx context.Context, method string, query url.Values, payload []byte, creds aws.Credentials, out any) error {
	action := query.Get("Action")
	req, err := http.NewRequestWithContext(ctx, method, c.imageXURL+"/?"+query.Encode(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", action, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	sum := sha256.Sum256(payload)
	signer := v4.NewSigner()
	if err := signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), imageXService, imageXRegion, c.clock.Now()); err != nil {
		return fmt.Errorf("signing %s request: %w", action, err)
	}

	resp, err := c.media.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", action, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Path: action, StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBodyLength)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}

	// Every imageXResponse exposes its metadata error through this interface.
	if e, ok := out.(interface{ apiError() error }); ok {
		return e.apiError()
	}
	return nil
}

func (r *imageXResponse[T]) apiError() error {
	if r.ResponseMetadata.Error == nil || r.ResponseMetadata.Error.Code == "" {
		return nil
	}
	return fmt.Errorf("imagex error %s: %s", r.ResponseMetadata.Error.Code, r.ResponseMetadata.Error.Message)
}

// putObject uploads the raw image bytes to the store address.
func (c *Client) putObject(ctx context.Context, host, storeURI, auth string, data []byte) error {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/upload/v1/"+storeURI, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-CRC32", fmt.Sprintf("%08x", crc32.ChecksumIEEE(data)))

	resp, err := c.media.Do(req)
	if err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Path: "upload", StatusCode: resp.StatusCode}
	}
	return nil
}

// readImage loads image bytes and picks a file extension for them.
func (c *Client) readImage(ctx context.Context, source string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(source, "data:"):
		return decodeDataURI(source)

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, "", fmt.Errorf("creating image request: %w", err)
		}
		resp, err := c.fetch.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetching image: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
		}
		data, err := readLimited(resp.Body)
		if err != nil {
			return nil, "", err
		}
		return data, imageExtension(data, filepath.Ext(resp.Request.URL.Path)), nil

	case !c.allowLocalFiles:
		return nil, "", fmt.Errorf("%w: local file paths are disabled", ErrSourceNotAllowed)

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, "", fmt.Errorf("opening image: %w", err)
		}
		defer func() { _ = f.Close() }()

		data, err := readLimited(f)
		if err != nil {
			return nil, "", err
		}
		return data, imageExtension(data, filepath.Ext(source)), nil
	}
}

func decodeDataURI(source string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(source, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}

	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decoding data uri: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decoding data uri: %w", err)
		}
		data = []byte(unescaped)
	}

	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty data uri")
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	ext := ""
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return data, imageExtension(data, ext), nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	return data, nil
}

// imageExtension prefers the sniffed content type over the hinted extension.
func imageExtension(data []byte, hint string) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}

	if ext := strings.TrimPrefix(strings.ToLower(hint), "."); ext != "" {
		return ext
	}
	return "png"
}

// FetchImage reads an image from the same sources as UploadImage.
func (c *Client) FetchImage(ctx context.Context, source string) ([]byte, error) {
	data, _, err := c.readImage(ctx, source)
	return data, err
}

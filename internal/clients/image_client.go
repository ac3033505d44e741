package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// UploadedImage is the image store's handle for a stored file
type UploadedImage struct {
	URL         string `json:"url"`
	ExternalRef string `json:"externalRef"`
}

// ImageStoreInterface is the external image storage collaborator. Both calls
// are independently fallible; callers treat failures as best-effort.
type ImageStoreInterface interface {
	Upload(ctx context.Context, file io.Reader, filename, folder string) (*UploadedImage, error)
	Delete(ctx context.Context, externalRef string) error
}

// ImageClient talks to the image storage service over HTTP
type ImageClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ ImageStoreInterface = (*ImageClient)(nil)

type imageUploadResponse struct {
	Success bool           `json:"success"`
	Data    *UploadedImage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewImageClient creates an image store client for the given base URL
func NewImageClient(baseURL string) *ImageClient {
	if baseURL == "" {
		baseURL = "http://image-service:8080"
	}
	return &ImageClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload stores a file in the given folder and returns its public URL plus
// the external reference needed to delete it later
func (c *ImageClient) Upload(ctx context.Context, file io.Reader, filename, folder string) (*UploadedImage, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	writer.WriteField("folder", folder)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy upload body: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/images/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image store unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image upload failed: %d - %s", resp.StatusCode, string(respBody))
	}

	var result imageUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode image store response: %w", err)
	}
	if result.Data == nil {
		return nil, fmt.Errorf("image store returned no data")
	}
	return result.Data, nil
}

// Delete removes a stored file by its external reference. A 404 counts as
// success since the file is already gone.
func (c *ImageClient) Delete(ctx context.Context, externalRef string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/images/"+externalRef, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image store unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("image delete failed: %d - %s", resp.StatusCode, string(respBody))
}

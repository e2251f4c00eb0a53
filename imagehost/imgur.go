package imagehost

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

	"github.com/anjiri1684/stuplan/models"
	"go.uber.org/zap"
)

// Imgur uploads images through the Imgur v3 API.
type Imgur struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	recorder   UploadRecorder
	log        *zap.Logger
}

type imgurResponse struct {
	Data struct {
		ID         string `json:"id"`
		Link       string `json:"link"`
		DeleteHash string `json:"deletehash"`
		Error      any    `json:"error"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// NewImgur builds a client. scheme is "Client-ID" for anonymous uploads or
// "Bearer" for an OAuth access token.
func NewImgur(baseURL, scheme, credential string, recorder UploadRecorder, log *zap.Logger) *Imgur {
	if log == nil {
		log = zap.NewNop()
	}
	if scheme == "" {
		scheme = "Client-ID"
	}
	return &Imgur{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: scheme + " " + credential,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		recorder:   recorder,
		log:        log,
	}
}

func (i *Imgur) Provider() string { return ProviderImgur }

func (i *Imgur) Upload(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/3/image", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", i.authHeader)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("upload image: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload imgurResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if payload.Data.Link == "" {
		return "", fmt.Errorf("upload image: link missing from response")
	}

	i.record(ctx, userID, payload.Data.DeleteHash, payload.Data.Link)
	return payload.Data.Link, nil
}

// Delete removes an image using the deletehash returned at upload time.
func (i *Imgur) Delete(ctx context.Context, deleteHash string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, i.baseURL+"/3/image/"+deleteHash, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", i.authHeader)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("delete image: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func (i *Imgur) record(ctx context.Context, userID, deleteHash, link string) {
	if i.recorder == nil || deleteHash == "" {
		return
	}
	err := i.recorder.Record(ctx, &models.AvatarUpload{
		UserID:   userID,
		Provider: ProviderImgur,
		RemoteID: deleteHash,
		URL:      link,
	})
	if err != nil {
		i.log.Warn("failed to record imgur upload", zap.String("url", link), zap.Error(err))
	}
}

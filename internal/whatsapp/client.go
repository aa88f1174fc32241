package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
)

// APIError is a non-2xx answer from the Graph API. The local mirror is
// never written when a send fails with one of these.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: graph api status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	Config *config.Config
	http   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config: cfg,
		http:   &http.Client{Timeout: time.Duration(cfg.GraphTimeoutSecs) * time.Second},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	Text             *TextObj     `json:"text,omitempty"`
	Image            *MediaObj    `json:"image,omitempty"`
	Video            *MediaObj    `json:"video,omitempty"`
	Audio            *MediaObj    `json:"audio,omitempty"`
	Document         *MediaObj    `json:"document,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // For documents
}

type TemplateObj struct {
	Name     string      `json:"name"`
	Language LanguageObj `json:"language"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

// SendResponse is the Graph API answer to a successful message send.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}, headers map[string]string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// --- Messaging Methods ---

// SendRawMessage posts one message and returns the provider-assigned
// message id.
func (c *Client) SendRawMessage(ctx context.Context, msg GenericMessage) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", c.Config.GraphAPIBaseURL, c.Config.PhoneNumberID)
	respBody, err := c.sendRequest(ctx, "POST", url, msg, nil)
	if err != nil {
		return "", err
	}

	var resp SendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("whatsapp: decode send response: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("whatsapp: send response carried no message id")
	}
	return resp.Messages[0].ID, nil
}

func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text: &TextObj{
			Body: body,
		},
	}
	return c.SendRawMessage(ctx, msg)
}

func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &TemplateObj{
			Name: templateName,
			Language: LanguageObj{
				Code: languageCode,
			},
		},
	}
	return c.SendRawMessage(ctx, msg)
}

func (c *Client) SendImage(ctx context.Context, to, imageUrl, caption string) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "image",
		Image: &MediaObj{
			Link:    imageUrl,
			Caption: caption,
		},
	}
	return c.SendRawMessage(ctx, msg)
}

// --- Media Methods ---

type MediaResponse struct {
	ID string `json:"id"`
}

func (c *Client) UploadMedia(ctx context.Context, fileData []byte, mimeType, filename string) (*MediaResponse, error) {
	url := fmt.Sprintf("%s/%s/media", c.Config.GraphAPIBaseURL, c.Config.PhoneNumberID)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	part.Write(fileData)

	writer.WriteField("messaging_product", "whatsapp")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var mediaResp MediaResponse
	if err := json.Unmarshal(respBody, &mediaResp); err != nil {
		return nil, err
	}

	return &mediaResp, nil
}

func (c *Client) RetrieveMediaURL(ctx context.Context, mediaID string) (string, error) {
	// First get the media object URL
	url := fmt.Sprintf("%s/%s", c.Config.GraphAPIBaseURL, mediaID)
	resp, err := c.sendRequest(ctx, "GET", url, nil, nil)
	if err != nil {
		return "", err
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp, &obj); err != nil {
		return "", err
	}

	// Downloading the bytes needs another request to obj.URL with the
	// Authorization header.
	return obj.URL, nil
}

func (c *Client) DeleteMedia(ctx context.Context, mediaID string) error {
	url := fmt.Sprintf("%s/%s", c.Config.GraphAPIBaseURL, mediaID)
	_, err := c.sendRequest(ctx, "DELETE", url, nil, nil)
	return err
}

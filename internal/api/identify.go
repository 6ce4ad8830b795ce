package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

// Identification is the result of the species-identification endpoint:
// the newly created plant instance plus its matched catalog record.
type Identification struct {
	UserPlant   UserPlant   `json:"userPlant"`
	MasterPlant MasterPlant `json:"masterPlant"`
}

// Identify uploads a plant photo and returns the identification result.
// The caller owns durable persistence of the image; this only transmits it.
func (c *Client) Identify(ctx context.Context, image []byte) (*Identification, error) {
	body, contentType, err := encodeImageForm(image)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/plants/identify", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ident Identification
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("%w: decoding identification: %w", ErrDecode, err)
	}

	return &ident, nil
}

// encodeImageForm builds the multipart form body for the identify upload.
func encodeImageForm(image []byte) ([]byte, string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", "photo.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("api: building image form: %w", err)
	}

	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("api: writing image form: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("api: closing image form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to an ALPR recognition service over HTTP: one JPEG region
// in, a list of plate candidates out.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type recognizeResponse struct {
	ProcessingTime float64           `json:"processing_time_ms"`
	Results        []recognizeResult `json:"results"`
}

type recognizeResult struct {
	Plate       string       `json:"plate"`
	Confidence  float64      `json:"confidence"`
	Coordinates []coordinate `json:"coordinates"`
}

type coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c *Client) Recognize(ctx context.Context, image []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/plate-reader", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("recognition service returned %d: %s", resp.StatusCode, body)
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode recognition response: %w", err)
	}

	dets := make([]Detection, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		d := Detection{
			Text:       r.Plate,
			Confidence: r.Confidence,
		}
		if len(r.Coordinates) > 0 {
			d.X = r.Coordinates[0].X
			d.Y = r.Coordinates[0].Y
			for _, pt := range r.Coordinates[1:] {
				if pt.X < d.X {
					d.X = pt.X
				}
				if pt.Y < d.Y {
					d.Y = pt.Y
				}
			}
		}
		dets = append(dets, d)
	}
	return dets, nil
}

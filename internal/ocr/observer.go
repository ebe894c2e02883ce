package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"parkgate-service/internal/config"
	"parkgate-service/internal/domain/parking"
)

// SnapshotSource yields a JPEG of a camera image region; w == 0 requests
// the full frame.
type SnapshotSource interface {
	Snapshot(ctx context.Context, x, y, w, h int) ([]byte, error)
}

// CameraClient fetches snapshots from an IP camera's HTTP endpoint.
type CameraClient struct {
	baseURL string
	http    *http.Client
}

func NewCameraClient(baseURL string, timeout time.Duration) *CameraClient {
	return &CameraClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *CameraClient) Snapshot(ctx context.Context, x, y, w, h int) ([]byte, error) {
	url := c.baseURL + "/snapshot"
	if w > 0 {
		url = fmt.Sprintf("%s?x=%d&y=%d&w=%d&h=%d", url, x, y, w, h)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SlotObserver produces one observation per configured slot region each
// tick. Recognition failures and low-confidence reads degrade to an empty
// observation; the monitoring loop never sees them as errors.
type SlotObserver struct {
	frames    SnapshotSource
	rec       Recognizer
	regions   []config.SlotRegion
	mergeConf float64
	log       zerolog.Logger
}

func NewSlotObserver(frames SnapshotSource, rec Recognizer, regions []config.SlotRegion, mergeConf float64, log zerolog.Logger) *SlotObserver {
	return &SlotObserver{
		frames:    frames,
		rec:       rec,
		regions:   regions,
		mergeConf: mergeConf,
		log:       log,
	}
}

func (o *SlotObserver) Observe(ctx context.Context) []parking.Observation {
	now := time.Now()
	obs := make([]parking.Observation, 0, len(o.regions))

	for _, region := range o.regions {
		observation := parking.Observation{
			Slot:       region.Slot,
			ObservedAt: now,
		}

		image, err := o.frames.Snapshot(ctx, region.X, region.Y, region.W, region.H)
		if err != nil {
			o.log.Debug().Err(err).Int("slot", region.Slot).Msg("slot snapshot failed, treating as empty")
			obs = append(obs, observation)
			continue
		}

		dets, err := o.rec.Recognize(ctx, image)
		if err != nil {
			o.log.Debug().Err(err).Int("slot", region.Slot).Msg("slot recognition failed, treating as empty")
			obs = append(obs, observation)
			continue
		}

		observation.Plate = MergePlate(dets, o.mergeConf)
		for _, d := range dets {
			if d.Confidence > observation.Confidence {
				observation.Confidence = d.Confidence
			}
		}
		obs = append(obs, observation)
	}
	return obs
}

// GateCamera watches a gate camera's full frame for a single authoritative
// plate. With stability > 0 the same plate must be read on that many
// consecutive frames before it is reported, which filters one-frame OCR
// glitches at the entry gate.
type GateCamera struct {
	frames    SnapshotSource
	rec       Recognizer
	liveConf  float64
	stability int
	lastPlate string
	streak    int
	log       zerolog.Logger
}

func NewGateCamera(frames SnapshotSource, rec Recognizer, liveConf float64, stability int, log zerolog.Logger) *GateCamera {
	return &GateCamera{
		frames:    frames,
		rec:       rec,
		liveConf:  liveConf,
		stability: stability,
		log:       log,
	}
}

func (g *GateCamera) CurrentPlate(ctx context.Context) (string, bool) {
	image, err := g.frames.Snapshot(ctx, 0, 0, 0, 0)
	if err != nil {
		g.log.Debug().Err(err).Msg("gate snapshot failed")
		g.streak = 0
		return "", false
	}

	dets, err := g.rec.Recognize(ctx, image)
	if err != nil {
		g.log.Debug().Err(err).Msg("gate recognition failed")
		g.streak = 0
		return "", false
	}

	plate, ok := LivePlate(dets, g.liveConf)
	if !ok {
		g.streak = 0
		return "", false
	}

	if plate == g.lastPlate {
		g.streak++
	} else {
		g.lastPlate = plate
		g.streak = 1
	}

	if g.streak < g.stability {
		return "", false
	}
	return plate, true
}

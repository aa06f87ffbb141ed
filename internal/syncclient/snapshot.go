package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/inkroom/inkroom/internal/shape"
)

const maxSnapshotSize = 32 << 20

// FetchSnapshot loads the room's current shapes. Records that fail the
// strict decoder are dropped and counted in skipped.
func FetchSnapshot(ctx context.Context, hc *http.Client, serverURL, roomID, token string) ([]shape.Shape, int, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	endpoint := strings.TrimRight(serverURL, "/") + "/api/rooms/" + url.PathEscape(roomID) + "/shapes"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch snapshot: status %d", resp.StatusCode)
	}

	var body struct {
		Shapes json.RawMessage `json:"shapes"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotSize)).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(body.Shapes) == 0 || string(body.Shapes) == "null" {
		return nil, 0, nil
	}
	shapes, skipped, err := shape.DecodeList(body.Shapes)
	if err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	return shapes, skipped, nil
}

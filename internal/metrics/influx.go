package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dockgen/dockgen/internal/logging"
)

// StartInfluxPusher starts a background loop to push metrics to InfluxDB.
// It blocks until ctx is done.
func StartInfluxPusher(ctx context.Context, baseURL, token, org, bucket string, interval time.Duration) {
	if baseURL == "" || bucket == "" {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	log := logging.Component("influx")
	log.Info().Str("url", baseURL).Dur("interval", interval).Msg("starting influxdb pusher")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}
	writeURL := influxWriteURL(baseURL, org, bucket)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pushToInflux(ctx, client, writeURL, token, GetSnapshot(), time.Now()); err != nil {
				log.Warn().Err(err).Msg("influxdb push failed")
			}
		}
	}
}

func influxWriteURL(baseURL, org, bucket string) string {
	q := url.Values{}
	q.Set("org", org)
	q.Set("bucket", bucket)
	q.Set("precision", "s")
	return strings.TrimRight(baseURL, "/") + "/api/v2/write?" + q.Encode()
}

// lineProtocol encodes s as one InfluxDB line:
// measurement field=value,... timestamp
func lineProtocol(s StatsSnapshot, now time.Time) string {
	return fmt.Sprintf(
		"dockgen renders=%di,renders_unchanged=%di,render_failures=%di,target_writes=%di,events=%di,actions=%di,actions_failed=%di,last_render=%di %d",
		s.Renders, s.RendersUnchanged, s.RenderFailures, s.TargetWrites, s.EventsHandled,
		s.ActionsExecuted, s.ActionsFailed, s.LastRender, now.Unix(),
	)
}

func pushToInflux(ctx context.Context, client *http.Client, writeURL, token string, s StatsSnapshot, now time.Time) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, writeURL, bytes.NewReader([]byte(lineProtocol(s, now))))
	if err != nil {
		return fmt.Errorf("influxdb request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("influxdb rejected metrics: status %d", resp.StatusCode)
	}
	return nil
}

package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultScrapeTimeout = 10 * time.Second

// Gateway metric family names.
const (
	connectionsGauge  = "nexusboard_connections"
	roomsGauge        = "nexusboard_rooms"
	connectionsOpened = "nexusboard_connections_opened_total"
	connectionsClosed = "nexusboard_connections_closed_total"
	commandsTotal     = "nexusboard_commands_total"
	protocolErrors    = "nexusboard_protocol_errors_total"
	broadcastsTotal   = "nexusboard_broadcasts_total"
	deliveryAttempts  = "nexusboard_delivery_attempts_total"
	deliveryFailures  = "nexusboard_delivery_failures_total"
	notificationsSent = "nexusboard_notifications_total"
)

// Summary is the reduced view of one gateway scrape. Totals are raw
// counter values since gateway start.
type Summary struct {
	ScrapedAt time.Time

	Connections int
	Rooms       int

	ConnectionsOpened float64
	ConnectionsClosed float64
	Broadcasts        float64
	DeliveryAttempts  float64
	DeliveryFailures  float64
	Notifications     float64

	// Commands is keyed by command kind, ProtocolErrors by error kind.
	Commands       map[string]float64
	ProtocolErrors map[string]float64
}

// Scraper fetches and summarises one gateway metrics endpoint.
type Scraper struct {
	url    string
	client *http.Client
}

// New returns a Scraper for url. A nil client gets a default with a 10s
// timeout.
func New(url string, client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: defaultScrapeTimeout}
	}
	return &Scraper{url: url, client: client}
}

// Scrape fetches the endpoint and returns its Summary.
func (s *Scraper) Scrape(ctx context.Context) (*Summary, error) {
	mfs, err := fetchMetrics(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.url, err)
	}
	return summarize(mfs), nil
}

func summarize(mfs map[string]*dto.MetricFamily) *Summary {
	return &Summary{
		ScrapedAt:         time.Now().UTC(),
		Connections:       int(sumFamily(mfs[connectionsGauge])),
		Rooms:             int(sumFamily(mfs[roomsGauge])),
		ConnectionsOpened: sumFamily(mfs[connectionsOpened]),
		ConnectionsClosed: sumFamily(mfs[connectionsClosed]),
		Broadcasts:        sumFamily(mfs[broadcastsTotal]),
		DeliveryAttempts:  sumFamily(mfs[deliveryAttempts]),
		DeliveryFailures:  sumFamily(mfs[deliveryFailures]),
		Notifications:     sumFamily(mfs[notificationsSent]),
		Commands:          byLabel(mfs[commandsTotal], "kind"),
		ProtocolErrors:    byLabel(mfs[protocolErrors], "error_kind"),
	}
}

// WriteTo prints s as aligned name/value lines.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	var n int64
	line := func(name string, v float64) error {
		c, err := fmt.Fprintf(w, "%-28s %v\n", name, v)
		n += int64(c)
		return err
	}

	rows := []struct {
		name string
		v    float64
	}{
		{"connections", float64(s.Connections)},
		{"rooms", float64(s.Rooms)},
		{"connections_opened", s.ConnectionsOpened},
		{"connections_closed", s.ConnectionsClosed},
		{"broadcasts", s.Broadcasts},
		{"delivery_attempts", s.DeliveryAttempts},
		{"delivery_failures", s.DeliveryFailures},
		{"notifications", s.Notifications},
	}
	for _, r := range rows {
		if err := line(r.name, r.v); err != nil {
			return n, err
		}
	}
	for _, k := range sortedKeys(s.Commands) {
		if err := line("commands{"+k+"}", s.Commands[k]); err != nil {
			return n, err
		}
	}
	for _, k := range sortedKeys(s.ProtocolErrors) {
		if err := line("protocol_errors{"+k+"}", s.ProtocolErrors[k]); err != nil {
			return n, err
		}
	}
	return n, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += value(m)
	}
	return total
}

// byLabel sums mf per value of label.
func byLabel(mf *dto.MetricFamily, label string) map[string]float64 {
	out := make(map[string]float64)
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += value(m)
			}
		}
	}
	return out
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

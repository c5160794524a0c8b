package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/db"
	"github.com/pepperonas/Affentanz/internal/logging"
	"github.com/pepperonas/Affentanz/internal/models"
)

var (
	watchRun     string
	watchTypes   []string
	watchSince   string
	watchReplay  bool
	watchPollInt time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchRun, "run", "", "only stream events of this run")
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "only stream these event types (e.g. action.failed)")
	watchCmd.Flags().StringVar(&watchSince, "since", "", "replay events since a time or duration (e.g. 1h, 7d, 2024-01-15)")
	watchCmd.Flags().BoolVar(&watchReplay, "replay", false, "emit existing events before following new ones")
	watchCmd.Flags().DurationVar(&watchPollInt, "poll-interval", 500*time.Millisecond, "how often to check for new events")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream playback events as JSON lines",
	Long: `Follow the event log and write every new event as one JSON line. Runs
started from other terminals show up as they happen.`,
	Example: `  affentanz watch
  affentanz watch --since 1h --type run.finished
  affentanz watch --run 3f2a9c1e-... --replay | jq .type`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		since, err := ParseSince(watchSince)
		if err != nil {
			return err
		}

		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		config := DefaultStreamConfig()
		config.PollInterval = watchPollInt
		config.Since = since
		config.IncludeExisting = watchReplay || since != nil
		config.RunID = watchRun
		for _, t := range watchTypes {
			config.EventTypes = append(config.EventTypes, models.EventType(strings.TrimSpace(t)))
		}

		return NewEventStreamer(db.NewEventRepository(database), cmd.OutOrStdout(), config).Stream(ctx)
	},
}

// StreamConfig configures an EventStreamer.
type StreamConfig struct {
	// PollInterval is how often the event log is checked.
	PollInterval time.Duration

	// BatchSize caps the events fetched per poll.
	BatchSize int

	// IncludeExisting emits events already in the log before following.
	IncludeExisting bool

	// Since limits replayed events to those at or after this time.
	Since *time.Time

	// EntityTypes, EventTypes and RunID filter the stream when set.
	EntityTypes []models.EntityType
	EventTypes  []models.EventType
	RunID       string

	Reconnect ReconnectConfig
}

// ReconnectConfig controls retries after a failed poll.
type ReconnectConfig struct {
	Enabled           bool
	MaxAttempts       int // 0 means unlimited
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultStreamConfig returns the default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		PollInterval: 500 * time.Millisecond,
		BatchSize:    100,
		Reconnect: ReconnectConfig{
			Enabled:           true,
			InitialBackoff:    time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		},
	}
}

// EventStreamer follows the event log and writes events as JSON lines.
type EventStreamer struct {
	repo   *db.EventRepository
	enc    *json.Encoder
	config StreamConfig
}

// NewEventStreamer creates a streamer writing to w.
func NewEventStreamer(repo *db.EventRepository, w io.Writer, config StreamConfig) *EventStreamer {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	return &EventStreamer{repo: repo, enc: json.NewEncoder(w), config: config}
}

// Stream writes events until ctx is done. It returns nil on cancellation.
func (s *EventStreamer) Stream(ctx context.Context) error {
	logger := logging.Component("watch")

	cursor := ""
	if !s.config.IncludeExisting {
		tail, err := s.tail(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		cursor = tail
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	attempts := 0
	var backoff time.Duration
	for {
		batch, next, err := s.poll(ctx, cursor, s.config.Since)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			if !s.config.Reconnect.Enabled {
				return err
			}
			attempts++
			if s.config.Reconnect.MaxAttempts > 0 && attempts > s.config.Reconnect.MaxAttempts {
				return fmt.Errorf("max reconnection attempts (%d) exceeded: %w", s.config.Reconnect.MaxAttempts, err)
			}
			backoff = s.calculateBackoff(attempts, backoff)
			logger.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", backoff).Msg("event poll failed")
			if !sleep(ctx, backoff) {
				return nil
			}
			continue
		}
		attempts = 0
		backoff = 0

		for _, event := range batch {
			if err := s.writeEvent(event); err != nil {
				return err
			}
		}
		cursor = next
		if len(batch) == s.config.BatchSize {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll fetches the next batch after cursor and returns the events passing
// the filters together with the cursor to continue from.
func (s *EventStreamer) poll(ctx context.Context, cursor string, since *time.Time) ([]*models.Event, string, error) {
	q := db.EventQuery{
		Since:  since,
		Cursor: cursor,
		Limit:  s.config.BatchSize,
	}
	if s.config.RunID != "" {
		entityType := models.EntityTypeRun
		q.EntityType = &entityType
		q.EntityID = &s.config.RunID
	}

	page, err := s.repo.Query(ctx, q)
	if err != nil {
		return nil, cursor, err
	}
	if len(page.Events) == 0 {
		return nil, cursor, nil
	}

	next := page.Events[len(page.Events)-1].ID
	filtered := make([]*models.Event, 0, len(page.Events))
	for _, event := range page.Events {
		if s.matches(event) {
			filtered = append(filtered, event)
		}
	}
	return filtered, next, nil
}

// tail returns the ID of the newest event, or "" for an empty log.
func (s *EventStreamer) tail(ctx context.Context) (string, error) {
	cursor := ""
	for {
		page, err := s.repo.Query(ctx, db.EventQuery{Cursor: cursor, Limit: s.config.BatchSize})
		if err != nil {
			return "", err
		}
		if len(page.Events) > 0 {
			cursor = page.Events[len(page.Events)-1].ID
		}
		if page.NextCursor == "" {
			return cursor, nil
		}
	}
}

func (s *EventStreamer) matches(event *models.Event) bool {
	if len(s.config.EntityTypes) > 0 && !slices.Contains(s.config.EntityTypes, event.EntityType) {
		return false
	}
	if len(s.config.EventTypes) > 0 && !slices.Contains(s.config.EventTypes, event.Type) {
		return false
	}
	return true
}

func (s *EventStreamer) writeEvent(event *models.Event) error {
	return s.enc.Encode(event)
}

func (s *EventStreamer) calculateBackoff(attempt int, current time.Duration) time.Duration {
	if attempt <= 1 || current <= 0 {
		return s.config.Reconnect.InitialBackoff
	}
	next := time.Duration(float64(current) * s.config.Reconnect.BackoffMultiplier)
	if s.config.Reconnect.MaxBackoff > 0 && next > s.config.Reconnect.MaxBackoff {
		return s.config.Reconnect.MaxBackoff
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ParseSince parses a relative duration ("1h", "7d") or an absolute time
// (RFC3339, "2006-01-02T15:04:05" or "2006-01-02"). An empty string yields
// nil.
func ParseSince(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if d, err := parseDurationWithDays(value); err == nil {
		t := time.Now().UTC().Add(-d)
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.Local); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid --since value %q: use a duration like 1h or 7d, or a date", value)
}

func parseDurationWithDays(value string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		if n < 0 {
			return 0, errors.New("duration must not be negative")
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	return time.ParseDuration(value)
}

package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

const (
	keyPrefix      = "ult"
	changesPattern = keyPrefix + ":*:changes"
	maxAccounts    = 3
)

func accountKey(userID string, id int) string {
	return fmt.Sprintf("%s:%s:account:%d", keyPrefix, userID, id)
}

func settingsKey(userID string) string {
	return fmt.Sprintf("%s:%s:settings", keyPrefix, userID)
}

func historyKey(userID string) string {
	return fmt.Sprintf("%s:%s:history", keyPrefix, userID)
}

func historySeqKey(userID string) string {
	return fmt.Sprintf("%s:%s:history:seq", keyPrefix, userID)
}

func changesChannel(userID string) string {
	return fmt.Sprintf("%s:%s:changes", keyPrefix, userID)
}

// parseAccount converts a Redis hash to an Account. Missing fields keep
// their defaults.
func parseAccount(id int, data map[string]string) (*models.Account, error) {
	if len(data) == 0 {
		return nil, store.ErrNotFound
	}

	acc := models.NewAccount(id)

	if v, ok := data["usage_percent"]; ok {
		usage, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse usage_percent: %w", err)
		}
		acc.Usage = usage
	}

	if v := data["reset_date"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reset_date: %w", err)
		}
		acc.ResetDate = &t
	}

	if v, ok := data["needs_update"]; ok {
		flag, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse needs_update: %w", err)
		}
		acc.NeedsAttention = flag
	}

	if v := data["updated_at"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			acc.UpdatedAt = t
		}
	}

	return &acc, nil
}

// patchFields returns the hash fields written for a patch.
func patchFields(p models.AccountPatch, now time.Time) []any {
	fields := []any{"updated_at", now.UTC().Format(time.RFC3339Nano)}
	if p.Usage != nil {
		fields = append(fields, "usage_percent", strconv.FormatFloat(*p.Usage, 'f', -1, 64))
	}
	if p.ResetDate != nil {
		fields = append(fields, "reset_date", p.ResetDate.UTC().Format(time.RFC3339Nano))
	}
	if p.NeedsAttention != nil {
		fields = append(fields, "needs_update", strconv.FormatBool(*p.NeedsAttention))
	}
	return fields
}

// historyRecord is the JSON payload of a history member.
type historyRecord struct {
	Timestamp time.Time       `json:"ts"`
	Usage     map[int]float64 `json:"usage"`
}

// encodeSample builds the sorted set member for a sample. The zero-padded
// id prefix orders samples that share a score by insertion.
func encodeSample(s *models.Sample) (string, error) {
	payload, err := json.Marshal(historyRecord{Timestamp: s.Timestamp.UTC(), Usage: s.Usage})
	if err != nil {
		return "", fmt.Errorf("failed to encode sample: %w", err)
	}
	return fmt.Sprintf("%020d|%s", s.ID, payload), nil
}

func decodeSample(member string) (models.Sample, error) {
	idPart, payload, ok := strings.Cut(member, "|")
	if !ok {
		return models.Sample{}, fmt.Errorf("malformed history member %q", member)
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return models.Sample{}, fmt.Errorf("failed to parse sample id: %w", err)
	}

	var rec historyRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return models.Sample{}, fmt.Errorf("failed to decode sample: %w", err)
	}
	if rec.Usage == nil {
		rec.Usage = map[int]float64{}
	}
	return models.Sample{ID: id, Timestamp: rec.Timestamp, Usage: rec.Usage}, nil
}

func sampleScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

func validAccountNumber(id int) error {
	if id < 1 || id > maxAccounts {
		return fmt.Errorf("invalid account number %d", id)
	}
	return nil
}

// GetAccounts returns the stored accounts of a user ordered by number.
func (s *Store) GetAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, maxAccounts)
	for i := range cmds {
		cmds[i] = pipe.HGetAll(ctx, accountKey(userID, i+1))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	var accounts []models.Account
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		acc, err := parseAccount(i+1, data)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, nil
}

// GetAccount returns one account, or nil when it has no record.
func (s *Store) GetAccount(ctx context.Context, userID string, id int) (*models.Account, error) {
	data, err := s.client.HGetAll(ctx, accountKey(userID, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	acc, err := parseAccount(id, data)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return acc, err
}

// SaveAccount writes the fields set in patch, creating the account when
// absent.
func (s *Store) SaveAccount(ctx context.Context, userID string, id int, patch models.AccountPatch) error {
	if err := validAccountNumber(id); err != nil {
		return err
	}

	key := accountKey(userID, id)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if patch.ClearResetDate && patch.ResetDate == nil {
			pipe.HDel(ctx, key, "reset_date")
		}
		pipe.HSet(ctx, key, patchFields(patch, time.Now())...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	op := models.OpUpdate
	if exists == 0 {
		op = models.OpInsert
	}
	s.publish(ctx, models.TableAccounts, op, userID, id)
	return nil
}

// SaveAllAccounts overwrites every given account atomically.
func (s *Store) SaveAllAccounts(ctx context.Context, userID string, accounts []models.Account) error {
	for _, acc := range accounts {
		if err := validAccountNumber(acc.ID); err != nil {
			return err
		}
	}

	now := time.Now()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, acc := range accounts {
			key := accountKey(userID, acc.ID)
			patch := models.PatchFrom(acc)
			if patch.ClearResetDate {
				pipe.HDel(ctx, key, "reset_date")
			}
			pipe.HSet(ctx, key, patchFields(patch, now)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	s.publish(ctx, models.TableAccounts, models.OpUpdate, userID, 0)
	return nil
}

// GetSettings returns the settings of a user, or nil when none are stored.
func (s *Store) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	data, err := s.client.HGetAll(ctx, settingsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	settings := models.DefaultSettings()
	if v, ok := data["x2_mode"]; ok {
		doubled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse x2_mode: %w", err)
		}
		if doubled {
			settings.CapacityMode = models.CapacityDoubled
		}
	}
	if v := data["account_names"]; v != "" {
		if err := json.Unmarshal([]byte(v), &settings.AccountNames); err != nil {
			return nil, fmt.Errorf("failed to decode account names: %w", err)
		}
	}
	return &settings, nil
}

// SaveSettings overwrites the settings of a user.
func (s *Store) SaveSettings(ctx context.Context, userID string, settings models.Settings) error {
	names := settings.AccountNames
	if names == nil {
		names = map[int]string{}
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode account names: %w", err)
	}

	err = s.client.HSet(ctx, settingsKey(userID),
		"x2_mode", strconv.FormatBool(settings.Doubled()),
		"account_names", string(encoded),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.publish(ctx, models.TableSettings, models.OpUpdate, userID, 0)
	return nil
}

// GetHistory returns the usage samples of a user.
func (s *Store) GetHistory(ctx context.Context, userID string, q store.HistoryQuery) ([]models.Sample, error) {
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !q.Since.IsZero() {
		rng.Min = strconv.FormatFloat(sampleScore(q.Since), 'f', -1, 64)
	}

	members, err := s.client.ZRangeByScore(ctx, historyKey(userID), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}

	samples := make([]models.Sample, 0, len(members))
	for _, m := range members {
		sample, err := decodeSample(m)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return q.Apply(samples), nil
}

// SaveHistoryPoint appends a sample and sets its ID.
func (s *Store) SaveHistoryPoint(ctx context.Context, userID string, sample *models.Sample) error {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	id, err := s.client.Incr(ctx, historySeqKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sample id: %w", err)
	}
	sample.ID = id

	member, err := encodeSample(sample)
	if err != nil {
		return err
	}

	err = s.client.ZAdd(ctx, historyKey(userID), redis.Z{
		Score:  sampleScore(sample.Timestamp),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to insert usage sample: %w", err)
	}

	s.publish(ctx, models.TableHistory, models.OpInsert, userID, 0)
	return nil
}

// ClearHistory deletes every sample of a user. Sample ids keep increasing.
func (s *Store) ClearHistory(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Del(ctx, historyKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to clear usage history: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	s.publish(ctx, models.TableHistory, models.OpDelete, userID, 0)
	return true, nil
}

// CountHistory returns the number of stored samples of a user.
func (s *Store) CountHistory(ctx context.Context, userID string) (int, error) {
	n, err := s.client.ZCard(ctx, historyKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count usage history: %w", err)
	}
	return int(n), nil
}

// InitializeUserData creates default accounts 1..n and default settings for
// a user. Existing fields are kept.
func (s *Store) InitializeUserData(ctx context.Context, userID string, n int) error {
	if n < 1 || n > maxAccounts {
		return fmt.Errorf("invalid account count %d", n)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	pipe := s.client.TxPipeline()
	created := make([]*redis.BoolCmd, 0, n)
	for id := 1; id <= n; id++ {
		key := accountKey(userID, id)
		created = append(created, pipe.HSetNX(ctx, key, "usage_percent", "0"))
		pipe.HSetNX(ctx, key, "needs_update", "false")
		pipe.HSetNX(ctx, key, "updated_at", now)
	}
	settingsCreated := pipe.HSetNX(ctx, settingsKey(userID), "x2_mode", "false")
	pipe.HSetNX(ctx, settingsKey(userID), "account_names", "{}")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to initialize user data: %w", err)
	}

	for _, cmd := range created {
		if cmd.Val() {
			s.publish(ctx, models.TableAccounts, models.OpInsert, userID, 0)
			break
		}
	}
	if settingsCreated.Val() {
		s.publish(ctx, models.TableSettings, models.OpInsert, userID, 0)
	}
	return nil
}

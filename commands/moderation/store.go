package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"KasutamaizaBot/db"

	"github.com/google/uuid"
)

// Case is one row of moderation_logs
type Case struct {
	ID          uuid.UUID
	GuildID     int64
	UserID      int64
	ModeratorID int64
	Action      string
	Reason      string
	CreatedAt   time.Time
}

// Store persists moderation cases
type Store struct {
	pool *db.Pool
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Record inserts c with a fresh case id, creating the users row if needed
func (st *Store) Record(ctx context.Context, c Case) (Case, error) {
	c.ID = uuid.New()

	if _, err := st.pool.Execute(ctx,
		`INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		c.UserID,
	); err != nil {
		return Case{}, fmt.Errorf("ensure user: %w", err)
	}

	if _, err := st.pool.Execute(ctx,
		`INSERT INTO moderation_logs (case_id, guild_id, user_id, moderator_id, action, reason) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID.String(), c.GuildID, c.UserID, c.ModeratorID, c.Action, c.Reason,
	); err != nil {
		return Case{}, fmt.Errorf("insert case: %w", err)
	}
	return c, nil
}

// Cases returns the most recent cases for a user in a guild, newest first
func (st *Store) Cases(ctx context.Context, guildID, userID int64, limit int) ([]Case, error) {
	records, err := st.pool.Fetch(ctx,
		`SELECT case_id, moderator_id, action, reason, created_at FROM moderation_logs WHERE guild_id = $1 AND user_id = $2 ORDER BY created_at DESC LIMIT $3`,
		guildID, userID, limit,
	)
	if err != nil {
		return nil, err
	}

	cases := make([]Case, 0, len(records))
	for _, rec := range records {
		id, err := uuid.Parse(rec.String("case_id"))
		if err != nil {
			return nil, fmt.Errorf("bad case id %q: %w", rec.String("case_id"), err)
		}
		cases = append(cases, Case{
			ID:          id,
			GuildID:     guildID,
			UserID:      userID,
			ModeratorID: rec.Int64("moderator_id"),
			Action:      rec.String("action"),
			Reason:      rec.String("reason"),
			CreatedAt:   rec.Time("created_at"),
		})
	}
	return cases, nil
}

func snowflake(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"KasutamaizaBot/db"
)

// ErrNoProfile is returned for users the bot has never stored
var ErrNoProfile = errors.New("profile not found")

type Profile struct {
	UserID       int64
	Username     string
	Bio          string
	FavoriteCard string
	MemberSince  time.Time
	Commands     int64
}

// Store reads and writes users and user_profiles
type Store struct {
	pool *db.Pool
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

const profileQuery = `SELECT u.username, u.created_at, COALESCE(p.bio, '') AS bio, COALESCE(p.favorite_card, '') AS favorite_card,
(SELECT COUNT(*) FROM command_usage c WHERE c.user_id = u.user_id) AS commands
FROM users u LEFT JOIN user_profiles p ON p.user_id = u.user_id WHERE u.user_id = $1`

func (st *Store) Get(ctx context.Context, userID int64) (Profile, error) {
	rec, err := st.pool.FetchRow(ctx, profileQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNoProfile
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return Profile{
		UserID:       userID,
		Username:     rec.String("username"),
		Bio:          rec.String("bio"),
		FavoriteCard: rec.String("favorite_card"),
		MemberSince:  rec.Time("created_at"),
		Commands:     rec.Int64("commands"),
	}, nil
}

// SetBio stores the bio, and the favorite card when one is given, creating the user
// if needed. Both rows are written in one transaction.
func (st *Store) SetBio(ctx context.Context, userID int64, username, bio, favoriteCard string) error {
	return st.pool.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (user_id, username) VALUES ($1, $2) ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username`,
			userID, username,
		); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_profiles (user_id, bio, favorite_card, updated_at) VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id) DO UPDATE SET bio = EXCLUDED.bio,
favorite_card = CASE WHEN EXCLUDED.favorite_card = '' THEN user_profiles.favorite_card ELSE EXCLUDED.favorite_card END,
updated_at = NOW()`,
			userID, bio, favoriteCard,
		); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
}

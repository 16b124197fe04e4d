package bot

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

const usageTimeout = 5 * time.Second

const insertUsage = `INSERT INTO command_usage (command, user_id, guild_id, succeeded) VALUES ($1, $2, $3, $4)`

// recordUsage stores one command invocation. DMs are stored without a guild.
func (b *Bot) recordUsage(ctx context.Context, command, userID, guildID string, succeeded bool) {
	user, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		b.Logger.Debug().Str("user", userID).Msg("Skipping usage record for unparseable user id")
		return
	}
	var guild sql.NullInt64
	if id, err := strconv.ParseInt(guildID, 10, 64); err == nil {
		guild = sql.NullInt64{Int64: id, Valid: true}
	}

	// the bound command context is cancelled at shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageTimeout)
	defer cancel()
	if _, err := b.Pool.Execute(ctx, insertUsage, command, user, guild, succeeded); err != nil {
		b.Logger.Warn().Err(err).Str("command", command).Msg("Failed to record command usage")
	}
}

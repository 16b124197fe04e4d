package schema

// Tables returns the bot's schema in creation order
func Tables() []Table {
	return []Table{
		{
			Name: "users",
			DDL: `CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
		{
			Name: "user_profiles",
			DDL: `CREATE TABLE IF NOT EXISTS user_profiles (
    user_id BIGINT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
    bio TEXT NOT NULL DEFAULT '',
    favorite_card TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
			ForeignKeys: []ForeignKey{{Column: "user_id", References: "users", OnDelete: "CASCADE"}},
		},
		{
			Name: "user_preferences",
			DDL: `CREATE TABLE IF NOT EXISTS user_preferences (
    user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    setting_key TEXT NOT NULL,
    setting_value TEXT NOT NULL,
    PRIMARY KEY (user_id, setting_key)
);`,
			ForeignKeys: []ForeignKey{{Column: "user_id", References: "users", OnDelete: "CASCADE"}},
		},
		{
			Name: "moderation_logs",
			DDL: `CREATE TABLE IF NOT EXISTS moderation_logs (
    case_id UUID PRIMARY KEY,
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    moderator_id BIGINT NOT NULL,
    action TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
			ForeignKeys: []ForeignKey{{Column: "user_id", References: "users", OnDelete: "CASCADE"}},
		},
		{
			Name: "custom_cards",
			DDL: `CREATE TABLE IF NOT EXISTS custom_cards (
    card_id SERIAL PRIMARY KEY,
    creator_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    card_type TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    atk INTEGER,
    def INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
			ForeignKeys: []ForeignKey{{Column: "creator_id", References: "users", OnDelete: "CASCADE"}},
		},
		{
			Name: "command_usage",
			DDL: `CREATE TABLE IF NOT EXISTS command_usage (
    id BIGSERIAL PRIMARY KEY,
    command TEXT NOT NULL,
    user_id BIGINT NOT NULL,
    guild_id BIGINT,
    succeeded BOOLEAN NOT NULL,
    used_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
	}
}

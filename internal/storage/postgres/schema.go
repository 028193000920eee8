package postgres

type schemaStatement struct {
	table string
	sql   string
}

// Envelope first: payload tables reference it.
var schemaStatements = []schemaStatement{
	{
		table: "ethereum_logs",
		sql: `
			CREATE TABLE IF NOT EXISTS ethereum_logs (
				id BIGSERIAL PRIMARY KEY,
				transaction_hash BYTEA NOT NULL CHECK (octet_length(transaction_hash) = 32),
				block_number BYTEA NOT NULL CHECK (octet_length(block_number) = 8),
				address BYTEA NOT NULL CHECK (octet_length(address) = 20),
				timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		table: "swap_logs",
		sql: `
			CREATE TABLE IF NOT EXISTS swap_logs (
				id BIGSERIAL PRIMARY KEY,
				ethereum_log_id BIGINT NOT NULL UNIQUE REFERENCES ethereum_logs(id) ON DELETE CASCADE,
				sender_address BYTEA NOT NULL,
				receiver_address BYTEA NOT NULL,
				amount0 BYTEA NOT NULL,
				amount1 BYTEA NOT NULL,
				sqrt_price_x96 BYTEA NOT NULL,
				liquidity BYTEA NOT NULL,
				tick INT NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		table: "burn_logs",
		sql: `
			CREATE TABLE IF NOT EXISTS burn_logs (
				id BIGSERIAL PRIMARY KEY,
				ethereum_log_id BIGINT NOT NULL UNIQUE REFERENCES ethereum_logs(id) ON DELETE CASCADE,
				owner_address BYTEA NOT NULL,
				tick_lower INT NOT NULL,
				tick_upper INT NOT NULL,
				amount BYTEA NOT NULL,
				amount0 BYTEA NOT NULL,
				amount1 BYTEA NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		table: "mint_logs",
		sql: `
			CREATE TABLE IF NOT EXISTS mint_logs (
				id BIGSERIAL PRIMARY KEY,
				ethereum_log_id BIGINT NOT NULL UNIQUE REFERENCES ethereum_logs(id) ON DELETE CASCADE,
				sender_address BYTEA NOT NULL,
				owner_address BYTEA NOT NULL,
				tick_lower INT NOT NULL,
				tick_upper INT NOT NULL,
				amount BYTEA NOT NULL,
				amount0 BYTEA NOT NULL,
				amount1 BYTEA NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		table: "flash_logs",
		sql: `
			CREATE TABLE IF NOT EXISTS flash_logs (
				id BIGSERIAL PRIMARY KEY,
				ethereum_log_id BIGINT NOT NULL UNIQUE REFERENCES ethereum_logs(id) ON DELETE CASCADE,
				sender_address BYTEA NOT NULL,
				receiver_address BYTEA NOT NULL,
				amount0 BYTEA NOT NULL,
				amount1 BYTEA NOT NULL,
				paid0 BYTEA NOT NULL,
				paid1 BYTEA NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
}

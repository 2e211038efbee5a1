package database

import (
	"github.com/gocql/gocql"
)

// InitSchema creates the healchain keyspace and tables if they do not exist.
// Safe to run on every startup.
func InitSchema(session *gocql.Session) error {
	if err := session.Query(`
		CREATE KEYSPACE IF NOT EXISTS healchain
		WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': 1
		}`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS healchain.task_data (
			task_id text PRIMARY KEY,
			publisher text,
			commit_hash text,
			nonce text,
			deadline timestamp,
			dataset text,
			min_miners int,
			max_miners int,
			aggregator text,
			escrow_tx_hash text,
			contract_address text,
			status text,
			created_at timestamp,
			updated_at timestamp
		)`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS healchain.miner_data (
			task_id text,
			miner_address text,
			proof_ref text,
			proof_verified boolean,
			public_key text,
			stake_wei varint,
			registered_at timestamp,
			PRIMARY KEY (task_id, miner_address)
		) WITH CLUSTERING ORDER BY (miner_address ASC)`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS healchain.key_delivery_data (
			task_id text,
			aggregator_address text,
			ciphertext text,
			delivered_at timestamp,
			PRIMARY KEY (task_id, aggregator_address)
		)`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS healchain.vote_data (
			task_id text,
			voter_address text,
			verdict text,
			signature text,
			voted_at timestamp,
			PRIMARY KEY (task_id, voter_address)
		)`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS healchain.reward_data (
			task_id text,
			miner_address text,
			score double,
			amount_wei varint,
			settlement_status text,
			PRIMARY KEY (task_id, miner_address)
		)`).Exec(); err != nil {
		return err
	}

	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS healchain.result_data (
			task_id text PRIMARY KEY,
			model_hash text,
			accuracy double,
			published_at timestamp
		)`).Exec(); err != nil {
		return err
	}

	return session.Query(`
		CREATE INDEX IF NOT EXISTS task_status_idx ON healchain.task_data (status)`).Exec()
}

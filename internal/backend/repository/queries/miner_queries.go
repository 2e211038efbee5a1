package queries

const (
	CreateMinerQuery = `
		INSERT INTO healchain.miner_data (
			task_id, miner_address, proof_ref, proof_verified,
			public_key, stake_wei, registered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`

	GetMinerQuery = `
		SELECT task_id, miner_address, proof_ref, proof_verified,
			public_key, stake_wei, registered_at
		FROM healchain.miner_data
		WHERE task_id = ? AND miner_address = ?`

	ListMinersByTaskQuery = `
		SELECT task_id, miner_address, proof_ref, proof_verified,
			public_key, stake_wei, registered_at
		FROM healchain.miner_data WHERE task_id = ?`

	SetProofVerifiedQuery = `
		UPDATE healchain.miner_data SET proof_verified = true
		WHERE task_id = ? AND miner_address = ?`

	UpdateMinerStakeQuery = `
		UPDATE healchain.miner_data SET stake_wei = ?
		WHERE task_id = ? AND miner_address = ?`

	CountMinersByTaskQuery = `
		SELECT COUNT(*) FROM healchain.miner_data WHERE task_id = ?`
)

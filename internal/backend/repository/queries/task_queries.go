package queries

const (
	CreateTaskQuery = `
		INSERT INTO healchain.task_data (
			task_id, publisher, commit_hash, nonce, deadline, dataset,
			min_miners, max_miners, aggregator, escrow_tx_hash,
			contract_address, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetTaskByIDQuery = `
		SELECT task_id, publisher, commit_hash, nonce, deadline, dataset,
			min_miners, max_miners, aggregator, escrow_tx_hash,
			contract_address, status, created_at, updated_at
		FROM healchain.task_data WHERE task_id = ?`

	ListTasksByStatusQuery = `
		SELECT task_id, publisher, commit_hash, nonce, deadline, dataset,
			min_miners, max_miners, aggregator, escrow_tx_hash,
			contract_address, status, created_at, updated_at
		FROM healchain.task_data WHERE status = ?`

	CompareAndSetStatusQuery = `
		UPDATE healchain.task_data SET status = ?, updated_at = ?
		WHERE task_id = ? IF status = ?`

	SetAggregatorQuery = `
		UPDATE healchain.task_data SET aggregator = ?, updated_at = ?
		WHERE task_id = ?`

	CountTasksQuery = `SELECT COUNT(*) FROM healchain.task_data`
)

package queries

const (
	ListRewardsByTaskQuery = `
		SELECT task_id, miner_address, score, amount_wei, settlement_status
		FROM healchain.reward_data WHERE task_id = ?`

	GetResultQuery = `
		SELECT task_id, model_hash, accuracy, published_at
		FROM healchain.result_data WHERE task_id = ?`
)

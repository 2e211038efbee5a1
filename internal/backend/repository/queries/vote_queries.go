package queries

const (
	InsertVoteIfAbsentQuery = `
		INSERT INTO healchain.vote_data (
			task_id, voter_address, verdict, signature, voted_at
		) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`

	ListVotesByTaskQuery = `
		SELECT task_id, voter_address, verdict, signature, voted_at
		FROM healchain.vote_data WHERE task_id = ?`
)
